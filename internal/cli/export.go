/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"oshicropper/internal/export"
	"oshicropper/internal/layout"
	"oshicropper/internal/storage"
	"oshicropper/internal/ui"
)

func (c *CLI) exportCommand() *cobra.Command {
	var (
		preset  string
		formats []string
		modes   []string
		dpi     int
		guides  bool
		outDir  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render the sheets to PDF, PNG, HTML or a ZIP of the images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := c.open()
			if err != nil {
				return err
			}
			opt := export.BatchOptions{Preset: export.PresetName(preset), Formats: formats, DPI: dpi, OutDir: outDir}
			if opt.DPI == 0 {
				opt.DPI = c.cfg.General.DPI
			}
			if len(opt.Formats) == 0 && !cmd.Flags().Changed("preset") {
				opt.Formats = c.cfg.General.Formats
			}
			if cmd.Flags().Changed("guides") {
				opt.Guides = &guides
			}
			if len(modes) == 0 {
				opt.Modes = []layout.Mode{h.Manifest.Mode}
			}
			for _, m := range modes {
				if m == "all" {
					opt.Modes = nil
					break
				}
				pm, err := layout.ParseMode(m)
				if err != nil {
					return err
				}
				opt.Modes = append(opt.Modes, pm)
			}
			files, err := export.Batch(cmd.Context(), h, opt)
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&preset, "preset", "p", string(export.PresetPrint), "export preset: print or proof")
	cmd.Flags().StringSliceVarP(&formats, "format", "f", nil, "formats: pdf, png, html, zip (default from preset or config)")
	cmd.Flags().StringSliceVarP(&modes, "mode", "m", nil, "layout modes: badge, photo or all (default: session mode)")
	cmd.Flags().IntVar(&dpi, "dpi", 0, "raster resolution (default from config)")
	cmd.Flags().BoolVar(&guides, "guides", false, "draw the image-area guide")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (default <session>/exports/<preset>)")
	return cmd
}

func (c *CLI) thumbsCommand() *cobra.Command {
	var (
		edge  int
		prune bool
	)
	cmd := &cobra.Command{
		Use:   "thumbs",
		Short: "Build the preview cache for every listed image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := c.open()
			if err != nil {
				return err
			}
			pc, err := c.cache(h)
			if err != nil {
				return err
			}
			defer func() { _ = pc.Close() }()
			if edge <= 0 {
				edge = c.cfg.Previews.Edge
			}
			ctx := cmd.Context()
			entries := h.List.Entries()
			digests := make([]string, 0, len(entries))
			for i, e := range entries {
				if _, err := pc.Thumbnail(ctx, e, edge); err != nil {
					return fmt.Errorf("thumbnail %d (%s): %w", i, e.Name, err)
				}
				digests = append(digests, e.Digest())
			}
			var freed int64
			if prune {
				if freed, err = pc.Retain(ctx, digests); err != nil {
					return err
				}
			}
			return printCache(ctx, cmd, pc, len(entries), freed)
		},
	}
	cmd.Flags().IntVar(&edge, "edge", 0, "thumbnail bounding box in pixels (default from config)")
	cmd.Flags().BoolVar(&prune, "prune", false, "drop previews of images no longer listed")
	return cmd
}

func printCache(ctx context.Context, cmd *cobra.Command, pc *storage.Cache, images int, freed int64) error {
	n, err := pc.Count(ctx)
	if err != nil {
		return err
	}
	total, err := pc.TotalBytes(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d image(s), %d preview(s), %d bytes cached, %d bytes pruned\n", images, n, total, freed)
	return nil
}

func (c *CLI) uiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Launch the desktop UI (build with -tags fyne)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ui.Run(c.sessionDir)
		},
	}
}
