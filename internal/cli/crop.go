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
	"strconv"

	"github.com/spf13/cobra"

	"oshicropper/internal/crop"
	"oshicropper/internal/layout"
	"oshicropper/internal/session"
)

// editorRun opens the session editor, runs fn and persists the resulting selection.
func (c *CLI) editorRun(fn func(h *session.Handle, ed *crop.Coordinator) error) error {
	h, err := c.open()
	if err != nil {
		return err
	}
	pc, err := c.cache(h)
	if err != nil {
		c.log.Warn("preview cache unavailable", "err", err)
	} else {
		defer func() { _ = pc.Close() }()
	}
	ed := h.Editor()
	if err := fn(h, ed); err != nil {
		return err
	}
	ed.Wait()
	h.Capture(ed)
	return c.save(h)
}

func printStatus(w io.Writer, st crop.Status) {
	if st.State != crop.Editing {
		fmt.Fprintln(w, "idle")
		return
	}
	fmt.Fprintf(w, "editing %d (%s, aspect %.4f)", st.Index, st.Mode, st.Aspect)
	if st.Rect != nil {
		fmt.Fprintf(w, " rect %s", st.Rect)
	}
	fmt.Fprintln(w)
}

func (c *CLI) cropCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crop",
		Short: "Edit one image at a time: open, set a rectangle, save",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := c.open()
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), h.Editor().Status())
			return nil
		},
	}
	cmd.AddCommand(c.cropOpenCommand(), c.cropRectCommand())

	cmd.AddCommand(&cobra.Command{
		Use:   "flip",
		Short: "Swap the crop orientation (photo mode)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.editorRun(func(_ *session.Handle, ed *crop.Coordinator) error {
				a, err := ed.Flip()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "aspect %.4f\n", a)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "save",
		Short: "Apply the crop rectangle and replace the image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.editorRun(func(_ *session.Handle, ed *crop.Coordinator) error {
				res, err := ed.Save(cmd.Context())
				if err != nil {
					return err
				}
				if res.Changed {
					fmt.Fprintf(cmd.OutOrStdout(), "Cropped %d -> %s (%d bytes)\n", res.Index, res.Entry.Name, res.Entry.Size())
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Closed without changes")
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "cancel",
		Short: "Close the editor without changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.editorRun(func(_ *session.Handle, ed *crop.Coordinator) error {
				ed.Cancel()
				fmt.Fprintln(cmd.OutOrStdout(), "idle")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Remove the open image from the list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.editorRun(func(h *session.Handle, ed *crop.Coordinator) error {
				res, err := ed.Delete()
				if err != nil {
					return err
				}
				if res.Changed {
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d (%s), %d left\n", res.Index, res.Entry.Name, h.List.Len())
				}
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "download [dest]",
		Short: "Write the cropped image to a file without changing the list (photo mode)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := ""
			if len(args) == 1 {
				dest = args[0]
			}
			return c.editorRun(func(_ *session.Handle, ed *crop.Coordinator) error {
				path, err := ed.Download(cmd.Context(), dest)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
				return nil
			})
		},
	})
	return cmd
}

func (c *CLI) cropOpenCommand() *cobra.Command {
	var (
		page, slot int
		aspect     float64
	)
	cmd := &cobra.Command{
		Use:   "open [index]",
		Short: "Open an image by list index, or by --page and --slot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.editorRun(func(h *session.Handle, ed *crop.Coordinator) error {
				idx := -1
				switch {
				case len(args) == 1:
					n, err := strconv.Atoi(args[0])
					if err != nil {
						return fmt.Errorf("index %q: %w", args[0], err)
					}
					idx = n
				case page > 0 && slot > 0:
					p := h.Manifest.Settings.Plan(h.Manifest.Mode, h.List.Len())
					if slot > p.PerPage {
						return fmt.Errorf("slot %d: only %d slots per sheet", slot, p.PerPage)
					}
					idx = layout.GlobalIndex(page-1, slot-1, p.PerPage)
				default:
					return fmt.Errorf("give an index or both --page and --slot")
				}
				a := h.Manifest.Settings.Aspect(h.Manifest.Mode)
				if cmd.Flags().Changed("aspect") {
					a = aspect
				}
				if err := ed.Open(idx, h.Manifest.Mode, a); err != nil {
					return err
				}
				printStatus(cmd.OutOrStdout(), ed.Status())
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "sheet number (1-based)")
	cmd.Flags().IntVar(&slot, "slot", 0, "slot on the sheet (1-based)")
	cmd.Flags().Float64Var(&aspect, "aspect", 0, "crop aspect width/height (default from settings)")
	return cmd
}

func (c *CLI) cropRectCommand() *cobra.Command {
	var auto bool
	cmd := &cobra.Command{
		Use:   "rect [x,y,w,h]",
		Short: "Set the crop rectangle in source pixels",
		Long:  "Set the crop rectangle in source pixels. With --auto the largest centred rectangle of the crop aspect is used.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.editorRun(func(h *session.Handle, ed *crop.Coordinator) error {
				var r crop.Rect
				switch {
				case auto:
					st := ed.Status()
					if st.State != crop.Editing {
						return crop.ErrNoSelection
					}
					e, _ := h.List.At(st.Index)
					img, err := crop.Decode(e)
					if err != nil {
						return err
					}
					b := img.Bounds()
					r = crop.Centered(b.Dx(), b.Dy(), st.Aspect)
				case len(args) == 1:
					var err error
					if r, err = crop.ParseRect(args[0]); err != nil {
						return err
					}
				default:
					return fmt.Errorf("give x,y,w,h or --auto")
				}
				if err := ed.SetRect(r); err != nil {
					return err
				}
				printStatus(cmd.OutOrStdout(), ed.Status())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&auto, "auto", false, "use the largest centred rectangle of the crop aspect")
	return cmd
}
