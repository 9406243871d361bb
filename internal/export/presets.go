/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0
 */

package export

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"oshicropper/internal/layout"
	applog "oshicropper/internal/log"
	"oshicropper/internal/session"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetPrint PresetName = "print"
	PresetProof PresetName = "proof"
)

// Formats understood by Batch.
const (
	FormatPDF  = "pdf"
	FormatPNG  = "png"
	FormatHTML = "html"
	FormatZIP  = "zip"
)

// BatchOptions controls batch export across formats and modes.
//
// Path semantics:
//   - If OutDir is empty or relative, it is created under <session>/exports/<preset>/.
//   - Single-file outputs are named <mode>.pdf and <mode>.html; PNG sheets go to png/.
//   - The zip bundle is images.zip and does not depend on the mode.
type BatchOptions struct {
	Preset  PresetName
	Formats []string      // empty means preset defaults
	Modes   []layout.Mode // empty means both modes
	DPI     int           // raster and embedding resolution, DefaultDPI when zero
	Guides  *bool         // overrides the preset's default for the image-area guide
	OutDir  string
}

// Batch runs exports for the session according to the preset and returns the files written.
func Batch(ctx context.Context, h *session.Handle, opt BatchOptions) ([]string, error) {
	if h == nil {
		return nil, fmt.Errorf("session handle is nil")
	}
	entries := h.List.Entries()
	if len(entries) == 0 {
		return nil, fmt.Errorf("session has no images: %w", ErrNothingToExport)
	}
	log := applog.WithOperation(applog.WithComponent("export"), "batch")

	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	modes := opt.Modes
	if len(modes) == 0 {
		modes = []layout.Mode{layout.ModeBadge, layout.ModePhoto}
	}
	guides := presetGuides(opt.Preset)
	if opt.Guides != nil {
		guides = *opt.Guides
	}

	baseOut := opt.OutDir
	if baseOut == "" {
		baseOut = string(opt.Preset)
		if baseOut == "" {
			baseOut = string(PresetPrint)
		}
	}
	if !filepath.IsAbs(baseOut) {
		baseOut = filepath.Join(h.Root, "exports", baseOut)
	}

	var written []string
	for _, raw := range formats {
		f := strings.ToLower(strings.TrimSpace(raw))
		if f == FormatZIP {
			out := filepath.Join(baseOut, "images.zip")
			if err := ExportBundle(ctx, entries, out); err != nil {
				return written, fmt.Errorf("zip: %w", err)
			}
			written = append(written, out)
			continue
		}
		for _, m := range modes {
			job := Job{Mode: m, Settings: h.Manifest.Settings, Entries: entries}
			switch f {
			case FormatPDF:
				out := filepath.Join(baseOut, string(m)+".pdf")
				if err := ExportPDF(ctx, job, out, PDFOptions{Guides: guides, DPI: opt.DPI}); err != nil {
					return written, fmt.Errorf("pdf %s: %w", m, err)
				}
				written = append(written, out)
			case FormatHTML:
				out := filepath.Join(baseOut, string(m)+".html")
				if err := ExportHTML(ctx, job, out, HTMLOptions{Guides: guides}); err != nil {
					return written, fmt.Errorf("html %s: %w", m, err)
				}
				written = append(written, out)
			case FormatPNG:
				paths, err := ExportPNG(ctx, job, filepath.Join(baseOut, "png"), PNGOptions{Guides: guides, DPI: opt.DPI})
				written = append(written, paths...)
				if err != nil {
					return written, fmt.Errorf("png %s: %w", m, err)
				}
			default:
				return written, fmt.Errorf("unknown format: %s", raw)
			}
		}
	}
	log.Info("batch export finished", "preset", opt.Preset, "files", len(written), "dir", baseOut)
	return written, nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetProof:
		return []string{FormatPNG, FormatPDF}
	default:
		return []string{FormatPDF, FormatHTML}
	}
}

func presetGuides(p PresetName) bool { return p == PresetProof }
