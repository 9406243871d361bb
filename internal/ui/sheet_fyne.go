//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"oshicropper/internal/layout"
)

const sheetMargin = 12

const maxDrawnSlots = 200

var (
	sheetBg     = color.NRGBA{R: 60, G: 60, B: 60, A: 255}
	cutStroke   = color.NRGBA{A: 255}
	areaStroke  = color.NRGBA{R: 255, A: 255}
	slotEmpty   = color.NRGBA{R: 235, G: 235, B: 235, A: 255}
	selectColor = color.NRGBA{R: 30, G: 120, B: 255, A: 255}
)

// SheetCanvas shows one sheet of the plan and reports taps on its slots.
type SheetCanvas struct {
	widget.BaseWidget

	plan     layout.Plan
	badge    layout.BadgeSettings
	thumbs   []fyne.Resource
	selected int
	guides   bool

	// OnTapped receives the slot index on the current sheet.
	OnTapped func(slot int)
}

// NewSheetCanvas creates an empty canvas.
func NewSheetCanvas() *SheetCanvas {
	s := &SheetCanvas{selected: -1}
	s.ExtendBaseWidget(s)
	return s
}

// SetSheet replaces the shown sheet. thumbs holds one resource per filled slot.
func (s *SheetCanvas) SetSheet(p layout.Plan, b layout.BadgeSettings, thumbs []fyne.Resource, selected int, guides bool) {
	s.plan, s.badge, s.thumbs, s.selected, s.guides = p, b, thumbs, selected, guides
	s.Refresh()
}

// scale returns millimetre-to-unit factor and the sheet origin for a widget size.
func (s *SheetCanvas) scale(size fyne.Size) (float32, fyne.Position) {
	w, h := float32(s.plan.Sheet.Width), float32(s.plan.Sheet.Height)
	if w <= 0 || h <= 0 {
		return 0, fyne.NewPos(0, 0)
	}
	k := min((size.Width-2*sheetMargin)/w, (size.Height-2*sheetMargin)/h)
	if k <= 0 {
		return 0, fyne.NewPos(0, 0)
	}
	return k, fyne.NewPos((size.Width-w*k)/2, (size.Height-h*k)/2)
}

// cells returns the slots worth drawing: every filled one plus empty outlines up
// to maxDrawnSlots.
func (s *SheetCanvas) cells() []layout.Rect {
	return s.plan.Cells(max(len(s.thumbs), maxDrawnSlots))
}

// SlotAt maps a widget position to a slot index, or -1 outside every slot.
func (s *SheetCanvas) SlotAt(pos fyne.Position) int {
	k, o := s.scale(s.Size())
	if k == 0 {
		return -1
	}
	x, y := float64((pos.X-o.X)/k), float64((pos.Y-o.Y)/k)
	for i, c := range s.cells() {
		if x >= c.X && x < c.X+c.W && y >= c.Y && y < c.Y+c.H {
			return i
		}
	}
	return -1
}

// Tapped implements fyne.Tappable.
func (s *SheetCanvas) Tapped(ev *fyne.PointEvent) {
	if i := s.SlotAt(ev.Position); i >= 0 && i < len(s.thumbs) && s.OnTapped != nil {
		s.OnTapped(i)
	}
}

// CreateRenderer implements fyne.Widget.
func (s *SheetCanvas) CreateRenderer() fyne.WidgetRenderer {
	r := &sheetRenderer{s: s, bg: canvas.NewRectangle(sheetBg), page: canvas.NewRectangle(color.White)}
	r.rebuild()
	return r
}

type sheetRenderer struct {
	s        *SheetCanvas
	bg, page *canvas.Rectangle
	slots    []*canvas.Rectangle
	images   []*canvas.Image
	cuts     []*canvas.Circle
	areas    []*canvas.Circle
	objects  []fyne.CanvasObject
}

func (r *sheetRenderer) Destroy()                     {}
func (r *sheetRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *sheetRenderer) MinSize() fyne.Size           { return fyne.NewSize(320, 420) }

func (r *sheetRenderer) Refresh() {
	r.rebuild()
	r.Layout(r.s.Size())
	canvas.Refresh(r.s)
}

func (r *sheetRenderer) rebuild() {
	r.objects = []fyne.CanvasObject{r.bg, r.page}
	r.slots, r.images, r.cuts, r.areas = nil, nil, nil, nil
	badge := r.s.plan.Mode == layout.ModeBadge
	for i := range r.s.cells() {
		slot := canvas.NewRectangle(color.Transparent)
		if i >= len(r.s.thumbs) {
			slot.FillColor = slotEmpty
		}
		if i == r.s.selected {
			slot.StrokeColor, slot.StrokeWidth = selectColor, 2
		}
		r.slots = append(r.slots, slot)
		r.objects = append(r.objects, slot)
		if i < len(r.s.thumbs) {
			img := canvas.NewImageFromResource(r.s.thumbs[i])
			img.FillMode = canvas.ImageFillContain
			r.images = append(r.images, img)
			r.objects = append(r.objects, img)
		}
		if badge {
			cut := canvas.NewCircle(color.Transparent)
			cut.StrokeColor, cut.StrokeWidth = cutStroke, 1
			r.cuts = append(r.cuts, cut)
			r.objects = append(r.objects, cut)
			if r.s.guides {
				area := canvas.NewCircle(color.Transparent)
				area.StrokeColor, area.StrokeWidth = areaStroke, 1
				r.areas = append(r.areas, area)
				r.objects = append(r.objects, area)
			}
		}
	}
}

func (r *sheetRenderer) Layout(size fyne.Size) {
	r.bg.Move(fyne.NewPos(0, 0))
	r.bg.Resize(size)
	k, o := r.s.scale(size)
	mm := func(v float64) float32 { return float32(v) * k }
	r.page.Move(o)
	r.page.Resize(fyne.NewSize(mm(r.s.plan.Sheet.Width), mm(r.s.plan.Sheet.Height)))

	circle := func(obj fyne.CanvasObject, cx, cy, d float64) {
		obj.Move(fyne.NewPos(o.X+mm(cx-d/2), o.Y+mm(cy-d/2)))
		obj.Resize(fyne.NewSize(mm(d), mm(d)))
	}
	for i, c := range r.s.cells() {
		if i >= len(r.slots) {
			break
		}
		r.slots[i].Move(fyne.NewPos(o.X+mm(c.X), o.Y+mm(c.Y)))
		r.slots[i].Resize(fyne.NewSize(mm(c.W), mm(c.H)))
		cx, cy := c.Center()
		if i < len(r.images) {
			if r.s.plan.Mode == layout.ModeBadge {
				circle(r.images[i], cx, cy, r.s.badge.ImageCircle())
			} else {
				r.images[i].Move(r.slots[i].Position())
				r.images[i].Resize(r.slots[i].Size())
			}
		}
		if i < len(r.cuts) {
			circle(r.cuts[i], cx, cy, r.s.badge.Diameter)
		}
		if i < len(r.areas) {
			circle(r.areas[i], cx, cy, r.s.badge.ImageArea)
		}
	}
}
