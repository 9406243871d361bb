/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders the paginated sheets of an image list to printable files.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"runtime"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"oshicropper/internal/crop"
	"oshicropper/internal/imagelist"
	"oshicropper/internal/layout"
)

// DefaultDPI is the raster resolution used when none is configured.
const DefaultDPI = 300

// ErrNothingToExport is returned when the list is empty or no item fits on a sheet.
var ErrNothingToExport = errors.New("nothing to export")

// Job is one list laid out in one mode.
type Job struct {
	Mode     layout.Mode
	Settings layout.Settings
	Entries  []imagelist.Entry
}

// Plan is the sheet layout of the job.
func (j Job) Plan() layout.Plan { return j.Settings.Plan(j.Mode, len(j.Entries)) }

// pages splits entry indexes into sheets.
func (j Job) pages() (layout.Plan, [][]int, error) {
	p := j.Plan()
	if p.Pages == 0 {
		return p, nil, fmt.Errorf("%s: %w (%d images, %d per sheet)", j.Mode, ErrNothingToExport, len(j.Entries), p.PerPage)
	}
	idx := make([]int, len(j.Entries))
	for i := range idx {
		idx[i] = i
	}
	return p, layout.Paginate(idx, p.PerPage), nil
}

// pixels converts millimetres to device pixels at dpi.
func pixels(mm float64, dpi int) int {
	return max(1, int(math.Round(mm/25.4*float64(dpi))))
}

func resolveDPI(dpi int) int {
	if dpi <= 0 {
		return DefaultDPI
	}
	return dpi
}

// prepare decodes every entry, spread over the available CPUs.
func prepare(ctx context.Context, entries []imagelist.Entry) ([]image.Image, error) {
	imgs := make([]image.Image, len(entries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, e := range entries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			img, err := crop.Decode(e)
			if err != nil {
				return fmt.Errorf("image %d (%s): %w", i, e.Name, err)
			}
			imgs[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return imgs, nil
}

// cover scales the centred crop of src with the target aspect to exactly w x h.
func cover(src image.Image, w, h int) *image.NRGBA {
	b := src.Bounds()
	r := crop.Centered(b.Dx(), b.Dy(), float64(w)/float64(h)).Image(b.Min)
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, r, xdraw.Src, nil)
	return dst
}

// itemPixels is the pixel size an entry is rendered at in one slot.
func itemPixels(j Job, p layout.Plan, dpi int) (w, h int) {
	if j.Mode == layout.ModeBadge {
		d := pixels(j.Settings.Badge.ImageCircle(), dpi)
		return d, d
	}
	return pixels(p.Item.Width, dpi), pixels(p.Item.Height, dpi)
}
