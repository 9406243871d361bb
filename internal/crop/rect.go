/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package crop

import (
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"
)

// Rect is a crop rectangle in source pixel space.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FromFloat rounds fractional widget output to whole pixels. Values beyond
// maxCoord (and NaN) are clamped so later arithmetic cannot overflow.
func FromFloat(x, y, w, h float64) Rect {
	return Rect{X: coord(x), Y: coord(y), Width: coord(w), Height: coord(h)}
}

// maxCoord is far beyond any decodable image.
const maxCoord = 1 << 40

func coord(v float64) int {
	switch {
	case math.IsNaN(v):
		return 0
	case v > maxCoord:
		return maxCoord
	case v < -maxCoord:
		return -maxCoord
	}
	return int(math.Round(v))
}

// ParseRect reads "x,y,width,height".
func ParseRect(s string) (Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Rect{}, fmt.Errorf("crop rect %q: want x,y,width,height", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Rect{}, fmt.Errorf("crop rect %q: %w", s, err)
		}
		v[i] = f
	}
	return FromFloat(v[0], v[1], v[2], v[3]), nil
}

func (r Rect) String() string { return fmt.Sprintf("%d,%d,%d,%d", r.X, r.Y, r.Width, r.Height) }

// Image converts to an image.Rectangle relative to origin.
func (r Rect) Image(origin image.Point) image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height).Add(origin)
}

// Clip intersects r with bounds. Zero or negative extents, and rectangles that
// miss bounds entirely, are degenerate. Extents are compared in float64 so huge
// offsets cannot wrap around into the image.
func (r Rect) Clip(bounds image.Rectangle) (image.Rectangle, error) {
	if r.Width <= 0 || r.Height <= 0 {
		return image.Rectangle{}, fmt.Errorf("%w: %dx%d", ErrDegenerateRect, r.Width, r.Height)
	}
	x0, x1, okX := span(r.X, r.Width, bounds.Dx())
	y0, y1, okY := span(r.Y, r.Height, bounds.Dy())
	if !okX || !okY {
		return image.Rectangle{}, fmt.Errorf("%w: %s outside %dx%d", ErrDegenerateRect, r, bounds.Dx(), bounds.Dy())
	}
	return image.Rect(x0, y0, x1, y1).Add(bounds.Min), nil
}

// span clamps [off, off+length) to [0, limit).
func span(off, length, limit int) (lo, hi int, ok bool) {
	a := math.Max(float64(off), 0)
	b := math.Min(float64(off)+float64(length), float64(limit))
	if b <= a {
		return 0, 0, false
	}
	return int(a), int(b), true
}

// Centered returns the largest rectangle of the given aspect (width/height) centred
// in a w x h image. A non-positive aspect selects the whole image.
func Centered(w, h int, aspect float64) Rect {
	if w <= 0 || h <= 0 {
		return Rect{}
	}
	if aspect <= 0 || math.IsNaN(aspect) || math.IsInf(aspect, 0) {
		return Rect{Width: w, Height: h}
	}
	cw, ch := float64(w), float64(w)/aspect
	if ch > float64(h) {
		cw, ch = float64(h)*aspect, float64(h)
	}
	rw, rh := max(1, int(math.Round(cw))), max(1, int(math.Round(ch)))
	rw, rh = min(rw, w), min(rh, h)
	return Rect{X: (w - rw) / 2, Y: (h - rh) / 2, Width: rw, Height: rh}
}
