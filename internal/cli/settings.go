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
	"io"
	"strings"

	"github.com/spf13/cobra"

	"oshicropper/internal/layout"
	"oshicropper/internal/session"
)

// modeOf resolves an optional --mode flag against the session mode.
func modeOf(h *session.Handle, flag string) (layout.Mode, error) {
	if strings.TrimSpace(flag) == "" {
		return h.Manifest.Mode, nil
	}
	return layout.ParseMode(flag)
}

func (c *CLI) settingsCommand() *cobra.Command {
	var modeFlag string
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the layout settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := c.open()
			if err != nil {
				return err
			}
			m, err := modeOf(h, modeFlag)
			if err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), h, m)
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&modeFlag, "mode", "m", "", "settings group: badge or photo (default: session mode)")

	set := &cobra.Command{
		Use:   "set <field> <value> [<field> <value>...]",
		Short: "Set layout fields (millimetres, or a paper name for paper/sheet)",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 || len(args)%2 != 0 {
				return fmt.Errorf("expected field/value pairs, got %d argument(s)", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := c.open()
			if err != nil {
				return err
			}
			m, err := modeOf(h, modeFlag)
			if err != nil {
				return err
			}
			s := h.Manifest.Settings
			for i := 0; i < len(args); i += 2 {
				if err := s.Set(m, args[i], args[i+1]); err != nil {
					return err
				}
			}
			h.Manifest.Settings = s
			if err := c.save(h); err != nil {
				return err
			}
			printSettings(cmd.OutOrStdout(), h, m)
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Restore every layout field to its default",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := c.open()
			if err != nil {
				return err
			}
			h.Manifest.Settings.Reset()
			if err := c.save(h); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Settings reset to defaults")
			return nil
		},
	}

	mode := &cobra.Command{
		Use:   "mode <badge|photo>",
		Short: "Switch the session between can badge and photo layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := layout.ParseMode(args[0])
			if err != nil {
				return err
			}
			h, err := c.open()
			if err != nil {
				return err
			}
			if h.Manifest.Mode != m && h.Manifest.Selection != nil {
				// the pending crop was made for the other aspect
				h.Manifest.Selection = nil
			}
			h.Manifest.Mode = m
			if err := c.save(h); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Mode: %s\n", m)
			return nil
		},
	}

	cmd.AddCommand(set, reset, mode)
	return cmd
}

func printSettings(w io.Writer, h *session.Handle, m layout.Mode) {
	s := h.Manifest.Settings
	fmt.Fprintf(w, "mode: %s\n", m)
	if m == layout.ModePhoto {
		fmt.Fprintf(w, "paper: %s (%s)\n", s.Photo.Paper.Label(), s.Photo.Item())
		fmt.Fprintf(w, "sheet: %s (%s)\n", s.Photo.Sheet.Label(), s.Photo.SheetSize())
	}
	for _, p := range s.Params(m) {
		fmt.Fprintf(w, "%s: %s\n", p.Name, p.Value())
	}
}

// maxListedCells bounds the slots printed by plan --cells.
const maxListedCells = 1000

func (c *CLI) planCommand() *cobra.Command {
	var (
		modeFlag string
		cells    bool
	)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show how the list is paginated onto sheets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := c.open()
			if err != nil {
				return err
			}
			m, err := modeOf(h, modeFlag)
			if err != nil {
				return err
			}
			n := h.List.Len()
			p := h.Manifest.Settings.Plan(m, n)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "mode: %s\nsheet: %s\nitem: %s\n", m, p.Sheet, p.Item)
			fmt.Fprintf(out, "grid: %d x %d\nper sheet: %d\nimages: %d\nsheets: %d\n", p.Grid.Columns, p.Grid.Rows, p.PerPage, n, p.Pages)
			if p.PerPage == 0 && n > 0 {
				fmt.Fprintln(out, "warning: no item fits on a sheet with these settings")
			}
			if cells {
				for i, r := range p.Cells(maxListedCells) {
					fmt.Fprintf(out, "slot %d: x=%.2f y=%.2f w=%.2f h=%.2f\n", i+1, r.X, r.Y, r.W, r.H)
				}
				if p.PerPage > maxListedCells {
					fmt.Fprintf(out, "... %d more slot(s)\n", p.PerPage-maxListedCells)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&modeFlag, "mode", "m", "", "layout mode (default: session mode)")
	cmd.Flags().BoolVar(&cells, "cells", false, "print slot rectangles in millimetres")
	return cmd
}
