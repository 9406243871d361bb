/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"oshicropper/internal/paper"
)

// Mode selects between the two layouts.
type Mode string

const (
	ModeBadge Mode = "badge"
	ModePhoto Mode = "photo"
)

// ParseMode accepts the canonical names plus their aliases.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "badge", "can", "canbadge":
		return ModeBadge, nil
	case "photo", "bromide":
		return ModePhoto, nil
	}
	return "", fmt.Errorf("unknown mode %q (want badge or photo)", s)
}

// BadgeSettings parameterize the circular layout. All values are millimetres.
type BadgeSettings struct {
	Diameter   float64 `json:"diameter"`
	ImageArea  float64 `json:"imageArea"`
	SafeMargin float64 `json:"safeMargin"`
	Gap        float64 `json:"gap"`
	Padding    float64 `json:"padding"`
}

// PhotoSettings parameterize the rectangular layout.
type PhotoSettings struct {
	Paper   paper.Name `json:"paper"`
	Sheet   paper.Name `json:"sheet"`
	Gap     float64    `json:"gap"`
	Padding float64    `json:"padding"`
}

// Settings is the full set of layout fields. Reset restores the fixed defaults.
type Settings struct {
	Badge BadgeSettings `json:"badge"`
	Photo PhotoSettings `json:"photo"`
}

// DefaultBadge returns the badge defaults.
func DefaultBadge() BadgeSettings {
	return BadgeSettings{Diameter: 80, ImageArea: 57, SafeMargin: 5, Gap: 2, Padding: 5}
}

// DefaultPhoto returns the photo defaults.
func DefaultPhoto() PhotoSettings {
	return PhotoSettings{Paper: paper.Default, Sheet: paper.A4, Gap: 2, Padding: 5}
}

// Defaults returns both default groups.
func Defaults() Settings { return Settings{Badge: DefaultBadge(), Photo: DefaultPhoto()} }

// Reset restores every field to its default.
func (s *Settings) Reset() { *s = Defaults() }

// BadgeSheet is the sheet badges are printed on.
func BadgeSheet() paper.Size { return paper.MustLookup(paper.A4) }

// ImageCircle is the diameter of the printed image: the image area plus the safe margin on both sides.
func (b BadgeSettings) ImageCircle() float64 { return b.ImageArea + 2*b.SafeMargin }

// Item is the square cell one badge occupies.
func (b BadgeSettings) Item() paper.Size { return paper.Size{Width: b.Diameter, Height: b.Diameter} }

// Item is the rectangle one photo occupies. Unknown paper names yield a zero size.
func (p PhotoSettings) Item() paper.Size {
	s, _ := paper.Lookup(string(p.Paper))
	return s
}

// SheetSize is the sheet photos are printed on. Unknown names fall back to A4.
func (p PhotoSettings) SheetSize() paper.Size {
	if s, ok := paper.Lookup(string(p.Sheet)); ok {
		return s
	}
	return paper.MustLookup(paper.A4)
}

// Aspect is the crop aspect ratio (width/height) for a mode.
func (s Settings) Aspect(m Mode) float64 {
	if m == ModePhoto {
		return s.Photo.Item().Aspect()
	}
	return 1
}

// Plan is the derived sheet layout for a mode and a list length.
type Plan struct {
	Mode    Mode
	Sheet   paper.Size
	Item    paper.Size
	Grid    Grid
	PerPage int
	Pages   int
	Padding float64
	Gap     float64
}

// Plan derives the sheet layout. It is a pure function of the settings and n.
func (s Settings) Plan(m Mode, n int) Plan {
	p := Plan{Mode: m}
	if m == ModePhoto {
		p.Sheet, p.Item = s.Photo.SheetSize(), s.Photo.Item()
		p.Gap, p.Padding = s.Photo.Gap, s.Photo.Padding
	} else {
		p.Sheet, p.Item = BadgeSheet(), s.Badge.Item()
		p.Gap, p.Padding = s.Badge.Gap, s.Badge.Padding
	}
	p.Grid = GridCapacity(p.Sheet, p.Item, p.Gap, p.Padding)
	p.PerPage = p.Grid.Slots()
	p.Pages = PageCount(n, p.PerPage)
	return p
}

// Cells returns the first n slot rectangles of one sheet for this plan
// (at most PerPage).
func (p Plan) Cells(n int) []Rect { return Cells(p.Sheet, p.Item, p.Grid, p.Padding, n) }

// Field names accepted by Set, matching the rendering parameter names.
var fieldNames = map[Mode][]string{
	ModeBadge: {ParamDiameter, ParamImageArea, ParamSafeMargin, ParamGap, ParamPadding},
	ModePhoto: {"paper", "sheet", ParamGap, ParamPadding},
}

// Fields lists the settable field names of a mode.
func Fields(m Mode) []string { return append([]string(nil), fieldNames[m]...) }

// Set parses value into the named field. Numbers must be finite but are not range
// checked: the planner copes with negative or degenerate values.
func (s *Settings) Set(m Mode, field, value string) error {
	field = strings.ToLower(strings.TrimSpace(field))
	value = strings.TrimSpace(value)
	if m == ModePhoto && (field == "paper" || field == "sheet") {
		n, err := paper.Parse(value)
		if err != nil {
			return err
		}
		if field == "paper" {
			s.Photo.Paper = n
		} else {
			s.Photo.Sheet = n
		}
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(value, "mm"), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%s: not a number: %q", field, value)
	}
	var dst *float64
	switch {
	case m == ModeBadge && field == ParamDiameter:
		dst = &s.Badge.Diameter
	case m == ModeBadge && field == ParamImageArea:
		dst = &s.Badge.ImageArea
	case m == ModeBadge && field == ParamSafeMargin:
		dst = &s.Badge.SafeMargin
	case m == ModeBadge && field == ParamGap:
		dst = &s.Badge.Gap
	case m == ModeBadge && field == ParamPadding:
		dst = &s.Badge.Padding
	case m == ModePhoto && field == ParamGap:
		dst = &s.Photo.Gap
	case m == ModePhoto && field == ParamPadding:
		dst = &s.Photo.Padding
	default:
		return fmt.Errorf("unknown %s field %q (known: %s)", m, field, strings.Join(fieldNames[m], ", "))
	}
	*dst = f
	return nil
}
