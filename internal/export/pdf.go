/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/jung-kurt/gofpdf"

	"oshicropper/internal/layout"
	applog "oshicropper/internal/log"
	"oshicropper/internal/version"
)

// PDFOptions controls PDF export behavior.
// Units are millimetres; the page origin is top-left.
//
// The cut guide (dashed outer circle of a badge) is always drawn because it is
// part of the printed sheet. The image-area guide is a proofing aid and is only
// drawn with Guides.
type PDFOptions struct {
	Guides bool
	DPI    int // resolution images are embedded at
}

// WritePDF renders every sheet of the job into one multi-page PDF.
func WritePDF(ctx context.Context, w io.Writer, job Job, opt PDFOptions) error {
	p, pages, err := job.pages()
	if err != nil {
		return err
	}
	imgs, err := prepare(ctx, job.Entries)
	if err != nil {
		return err
	}
	dpi := resolveDPI(opt.DPI)
	iw, ih := itemPixels(job, p, dpi)
	cells := p.Cells(len(job.Entries))

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "mm",
		Size:    gofpdf.SizeType{Wd: p.Sheet.Width, Ht: p.Sheet.Height},
	})
	pdf.SetTitle(fmt.Sprintf("%s sheets", job.Mode), true)
	pdf.SetCreator("oshicropper "+version.Version, true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	registered := make(map[string]bool)
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		pdf.AddPage()
		for slot, idx := range page {
			name := fmt.Sprintf("%s-%dx%d", job.Entries[idx].Digest(), iw, ih)
			if !registered[name] {
				data, err := jpegBytes(cover(imgs[idx], iw, ih))
				if err != nil {
					return fmt.Errorf("encode image %d: %w", idx, err)
				}
				pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: "JPG"}, bytes.NewReader(data))
				registered[name] = true
			}
			if job.Mode == layout.ModeBadge {
				drawBadgePDF(pdf, cells[slot], job.Settings.Badge, name, opt.Guides)
			} else {
				drawPhotoPDF(pdf, cells[slot], name, opt.Guides)
			}
		}
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}

// ExportPDF writes the job to outPath, creating parent directories.
func ExportPDF(ctx context.Context, job Job, outPath string, opt PDFOptions) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create pdf: %w", err)
	}
	if err := WritePDF(ctx, f, job, opt); err != nil {
		_ = f.Close()
		_ = os.Remove(outPath)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close pdf: %w", err)
	}
	applog.WithComponent("export").Info("pdf written", "path", outPath, "mode", job.Mode, "images", len(job.Entries))
	return nil
}

func drawBadgePDF(pdf *gofpdf.Fpdf, cell layout.Rect, b layout.BadgeSettings, img string, guides bool) {
	cx, cy := cell.Center()
	r := b.ImageCircle() / 2
	if r > 0 {
		pdf.ClipCircle(cx, cy, r, false)
		pdf.ImageOptions(img, cx-r, cy-r, 2*r, 2*r, false, gofpdf.ImageOptions{ImageType: "JPG"}, 0, "")
		pdf.ClipEnd()
	}

	pdf.SetLineWidth(0.2)
	pdf.SetDashPattern([]float64{2, 1}, 0)
	pdf.SetDrawColor(0, 0, 0)
	pdf.Circle(cx, cy, b.Diameter/2, "D")
	if guides && b.ImageArea > 0 {
		pdf.SetDrawColor(255, 0, 0)
		pdf.Circle(cx, cy, b.ImageArea/2, "D")
	}
	pdf.SetDashPattern([]float64{}, 0)
}

func drawPhotoPDF(pdf *gofpdf.Fpdf, cell layout.Rect, img string, guides bool) {
	pdf.ImageOptions(img, cell.X, cell.Y, cell.W, cell.H, false, gofpdf.ImageOptions{ImageType: "JPG"}, 0, "")
	if guides {
		pdf.SetLineWidth(0.1)
		pdf.SetDrawColor(160, 160, 160)
		pdf.Rect(cell.X, cell.Y, cell.W, cell.H, "D")
	}
}

// jpegBytes flattens img onto white and encodes it for embedding.
func jpegBytes(img image.Image) ([]byte, error) {
	b := img.Bounds()
	flat := imaging.Overlay(imaging.New(b.Dx(), b.Dy(), color.White), img, image.Pt(0, 0), 1)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(92)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
