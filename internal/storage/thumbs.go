/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package storage

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"

	"oshicropper/internal/imagelist"
)

// RenderThumbnail scales e to fit an edge x edge box and encodes it as PNG.
// Images already smaller than the box keep their size.
func RenderThumbnail(e imagelist.Entry, edge int) ([]byte, error) {
	if edge <= 0 {
		return nil, fmt.Errorf("thumbnail edge must be positive, got %d", edge)
	}
	img, err := imaging.Decode(bytes.NewReader(e.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", e.Name, err)
	}
	b := img.Bounds()
	if b.Dx() > edge || b.Dy() > edge {
		img = imaging.Fit(img, edge, edge, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
