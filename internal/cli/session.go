/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"oshicropper/internal/imagelist"
	"oshicropper/internal/layout"
	"oshicropper/internal/paper"
	"oshicropper/internal/session"
)

func (c *CLI) initCommand() *cobra.Command {
	var modeFlag string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an empty session in the session directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if modeFlag == "" {
				modeFlag = c.cfg.General.Mode
			}
			mode, err := layout.ParseMode(modeFlag)
			if err != nil {
				return err
			}
			h, err := session.Init(c.sessionDir, mode)
			if err != nil {
				return err
			}
			if n, err := paper.Parse(c.cfg.General.Sheet); err == nil && n != h.Manifest.Settings.Photo.Sheet {
				h.Manifest.Settings.Photo.Sheet = n
				if err := c.save(h); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s session at %s\n", mode, h.Root)
			return nil
		},
	}
	cmd.Flags().StringVarP(&modeFlag, "mode", "m", "", "layout mode: badge or photo (default from config)")
	return cmd
}

func (c *CLI) addCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add <file>...",
		Short: "Append image files to the list",
		Long:  "Append image files to the list in argument order. Files that are not images are reported and skipped.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := c.open()
			if err != nil {
				return err
			}
			entries, loadErr := imagelist.LoadFiles(args...)
			if loadErr != nil {
				c.log.Warn("some files were rejected", "err", loadErr)
			}
			if len(entries) > 0 {
				h.List.Append(entries...)
				if err := c.save(h); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Added %d image(s), %d in list\n", len(entries), h.List.Len())
			if loadErr != nil {
				return fmt.Errorf("rejected: %w", loadErr)
			}
			return nil
		},
	}
}

func (c *CLI) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show the images with their sheet and slot",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := c.open()
			if err != nil {
				return err
			}
			p := h.Manifest.Settings.Plan(h.Manifest.Mode, h.List.Len())
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tNAME\tTYPE\tBYTES\tSHEET\tSLOT")
			for i, e := range h.List.Entries() {
				sheet, slot := "-", "-"
				if pg, sl, ok := layout.Locate(i, p.PerPage); ok {
					sheet, slot = fmt.Sprint(pg+1), fmt.Sprint(sl+1)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n", i, e.Name, e.MIME, e.Size(), sheet, slot)
			}
			return tw.Flush()
		},
	}
}

func (c *CLI) restoreCommand() *cobra.Command {
	var listOnly bool
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Roll the session back to the previous save",
		Long:  "Replace the manifest with the latest backup. The replaced manifest is backed up first, so restoring twice undoes a restore.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if listOnly {
				files, err := session.Backups(c.sessionDir)
				if err != nil {
					return err
				}
				for _, f := range files {
					fmt.Fprintln(out, f)
				}
				return nil
			}
			h, err := session.Restore(c.sessionDir)
			if err != nil {
				return fmt.Errorf("restore: %w", err)
			}
			fmt.Fprintf(out, "Restored %d image(s) from backup\n", h.List.Len())
			return nil
		},
	}
	cmd.Flags().BoolVar(&listOnly, "list", false, "list backups instead of restoring")
	return cmd
}
