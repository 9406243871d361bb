//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// These tests validate the Fyne sheet canvas. They are gated behind the
// "fyne" build tag so CI (which is headless) does not need Fyne or a display.
// To run locally:
//
//	go test -tags fyne ./internal/ui
package ui

import (
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"

	"oshicropper/internal/layout"
)

func newTestSheet(t *testing.T, n int) (*SheetCanvas, layout.Plan) {
	t.Helper()
	test.NewTempApp(t)
	s := layout.Defaults()
	p := s.Plan(layout.ModeBadge, n)
	thumbs := make([]fyne.Resource, min(n, p.PerPage))
	for i := range thumbs {
		thumbs[i] = fyne.NewStaticResource("t.png", nil)
	}
	sc := NewSheetCanvas()
	sc.SetSheet(p, s.Badge, thumbs, -1, true)
	// A4 plus the margin on both sides: one unit per millimetre
	sc.Resize(fyne.NewSize(210+2*sheetMargin, 297+2*sheetMargin))
	return sc, p
}

func TestSheetCanvas_ScaleFitsSheet(t *testing.T) {
	sc, _ := newTestSheet(t, 3)
	k, o := sc.scale(sc.Size())
	if k != 1 {
		t.Fatalf("expected scale 1, got %v", k)
	}
	if o.X != sheetMargin || o.Y != sheetMargin {
		t.Fatalf("unexpected origin: %v", o)
	}
	if k, _ := sc.scale(fyne.NewSize(10, 10)); k != 0 {
		t.Fatalf("expected zero scale for a tiny widget, got %v", k)
	}
}

func TestSheetCanvas_SlotAt(t *testing.T) {
	sc, p := newTestSheet(t, 3)
	for i, c := range p.Cells(p.PerPage) {
		pos := fyne.NewPos(float32(c.X+c.W/2)+sheetMargin, float32(c.Y+c.H/2)+sheetMargin)
		if got := sc.SlotAt(pos); got != i {
			t.Fatalf("slot at centre of cell %d: got %d", i, got)
		}
	}
	if got := sc.SlotAt(fyne.NewPos(1, 1)); got != -1 {
		t.Fatalf("expected -1 outside the sheet, got %d", got)
	}
}

func TestSheetCanvas_TapOnlyFilledSlots(t *testing.T) {
	sc, p := newTestSheet(t, 2)
	var tapped []int
	sc.OnTapped = func(slot int) { tapped = append(tapped, slot) }
	for _, c := range p.Cells(p.PerPage) {
		pos := fyne.NewPos(float32(c.X+c.W/2)+sheetMargin, float32(c.Y+c.H/2)+sheetMargin)
		sc.Tapped(&fyne.PointEvent{Position: pos})
	}
	if len(tapped) != 2 || tapped[0] != 0 || tapped[1] != 1 {
		t.Fatalf("unexpected taps: %v", tapped)
	}
}

func TestSheetCanvas_EmptyPlan(t *testing.T) {
	test.NewTempApp(t)
	sc := NewSheetCanvas()
	sc.Resize(fyne.NewSize(300, 300))
	if got := sc.SlotAt(fyne.NewPos(150, 150)); got != -1 {
		t.Fatalf("expected -1 without a plan, got %d", got)
	}
	if ms := sc.MinSize(); ms.Width < 320 || ms.Height < 420 {
		t.Fatalf("unexpected MinSize: %v", ms)
	}
}
