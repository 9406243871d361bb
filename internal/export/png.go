/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"oshicropper/internal/layout"
	applog "oshicropper/internal/log"
)

// PNGOptions controls PNG export behavior.
// - DPI: output resolution, DefaultDPI when zero
// - Guides: draw the image-area guide (badges) or slot outlines (photos)
type PNGOptions struct {
	Guides bool
	DPI    int
}

var (
	white     = color.RGBA{255, 255, 255, 255}
	cutColor  = color.RGBA{0, 0, 0, 255}
	areaColor = color.RGBA{255, 0, 0, 255}
	slotColor = color.RGBA{160, 160, 160, 255}
)

// RenderSheets rasterizes every sheet of the job.
func RenderSheets(ctx context.Context, job Job, opt PNGOptions) ([]*image.RGBA, error) {
	p, pages, err := job.pages()
	if err != nil {
		return nil, err
	}
	imgs, err := prepare(ctx, job.Entries)
	if err != nil {
		return nil, err
	}
	dpi := resolveDPI(opt.DPI)
	iw, ih := itemPixels(job, p, dpi)
	cells := p.Cells(len(job.Entries))
	px := func(mm float64) int { return int(math.Round(mm / 25.4 * float64(dpi))) }

	scaled := make(map[int]*image.NRGBA, len(job.Entries))
	out := make([]*image.RGBA, 0, len(pages))
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img := image.NewRGBA(image.Rect(0, 0, pixels(p.Sheet.Width, dpi), pixels(p.Sheet.Height, dpi)))
		draw.Draw(img, img.Bounds(), &image.Uniform{C: white}, image.Point{}, draw.Src)
		for slot, idx := range page {
			src, ok := scaled[idx]
			if !ok {
				src = cover(imgs[idx], iw, ih)
				scaled[idx] = src
			}
			cell := cells[slot]
			cx, cy := cell.Center()
			if job.Mode == layout.ModeBadge {
				b := job.Settings.Badge
				at := image.Pt(px(cx)-iw/2, px(cy)-ih/2)
				if b.ImageCircle() > 0 {
					draw.DrawMask(img, image.Rectangle{Min: at, Max: at.Add(image.Pt(iw, ih))}, src, image.Point{}, circleMask{size: iw}, image.Point{}, draw.Over)
				}
				dashCircle(img, float64(px(cx)), float64(px(cy)), float64(px(b.Diameter/2)), float64(px(1)), cutColor)
				if opt.Guides && b.ImageArea > 0 {
					dashCircle(img, float64(px(cx)), float64(px(cy)), float64(px(b.ImageArea/2)), float64(px(1)), areaColor)
				}
				continue
			}
			at := image.Pt(px(cell.X), px(cell.Y))
			draw.Draw(img, image.Rectangle{Min: at, Max: at.Add(image.Pt(iw, ih))}, src, image.Point{}, draw.Src)
			if opt.Guides {
				strokeRect(img, at.X, at.Y, at.X+iw-1, at.Y+ih-1, slotColor)
			}
		}
		out = append(out, img)
	}
	return out, nil
}

// ExportPNG writes one PNG per sheet into outDir as <mode>-sheet-<n>.png and returns the paths.
func ExportPNG(ctx context.Context, job Job, outDir string, opt PNGOptions) ([]string, error) {
	sheets, err := RenderSheets(ctx, job, opt)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	paths := make([]string, 0, len(sheets))
	for i, img := range sheets {
		name := filepath.Join(outDir, fmt.Sprintf("%s-sheet-%02d.png", job.Mode, i+1))
		f, err := os.Create(name)
		if err != nil {
			return paths, fmt.Errorf("create png: %w", err)
		}
		if err := png.Encode(f, img); err != nil {
			_ = f.Close()
			return paths, fmt.Errorf("encode png: %w", err)
		}
		if err := f.Close(); err != nil {
			return paths, fmt.Errorf("close png: %w", err)
		}
		paths = append(paths, name)
	}
	applog.WithComponent("export").Info("png sheets written", "dir", outDir, "mode", job.Mode, "sheets", len(paths))
	return paths, nil
}

// circleMask is opaque inside the circle inscribed in a size x size square.
type circleMask struct{ size int }

func (c circleMask) ColorModel() color.Model { return color.AlphaModel }

func (c circleMask) Bounds() image.Rectangle { return image.Rect(0, 0, c.size, c.size) }

func (c circleMask) At(x, y int) color.Color {
	r := float64(c.size) / 2
	dx, dy := float64(x)+0.5-r, float64(y)+0.5-r
	if dx*dx+dy*dy <= r*r {
		return color.Alpha{A: 255}
	}
	return color.Alpha{}
}

// dashCircle strokes a 1px circle, dashed two units on and one off. dash is the unit in pixels.
func dashCircle(img *image.RGBA, cx, cy, r, dash float64, col color.RGBA) {
	if r <= 0 {
		return
	}
	dash = max(dash, 1)
	step := 0.5 / r
	for a := 0.0; a < 2*math.Pi; a += step {
		if int(a*r/dash)%3 == 2 {
			continue
		}
		x := int(math.Round(cx + r*math.Cos(a)))
		y := int(math.Round(cy + r*math.Sin(a)))
		if (image.Point{X: x, Y: y}).In(img.Rect) {
			img.SetRGBA(x, y, col)
		}
	}
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}
