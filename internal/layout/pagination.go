/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"math"

	"oshicropper/internal/paper"
)

// MaxPerAxis caps the columns/rows computed for absurdly small items so the
// slot count always fits an int.
const MaxPerAxis = 10000

// Grid is the number of item slots that fit on one sheet.
type Grid struct {
	Columns int
	Rows    int
}

// Slots is Columns*Rows.
func (g Grid) Slots() int { return g.Columns * g.Rows }

// ItemsPerPage returns how many round items of the given diameter fit on a page:
//
//	columns = floor((pageWidth  - 2*padding) / (itemDiameter + gap/2))
//	rows    = floor((pageHeight - 2*padding) / (itemDiameter + gap/2))
//
// Degenerate input (non-positive or non-finite sizes, items larger than the page)
// yields 0; callers render nothing for a zero result.
func ItemsPerPage(pageWidth, pageHeight, itemDiameter, gap, padding float64) int {
	page := paper.Size{Width: pageWidth, Height: pageHeight}
	item := paper.Size{Width: itemDiameter, Height: itemDiameter}
	return GridCapacity(page, item, gap, padding).Slots()
}

// GridCapacity generalizes ItemsPerPage to rectangular items: columns are
// computed from the item width, rows from the item height.
func GridCapacity(page, item paper.Size, gap, padding float64) Grid {
	cols := fit(page.Width, item.Width, gap, padding)
	rows := fit(page.Height, item.Height, gap, padding)
	if cols == 0 || rows == 0 {
		return Grid{}
	}
	return Grid{Columns: cols, Rows: rows}
}

func fit(extent, item, gap, padding float64) int {
	usable := extent - 2*padding
	step := item + gap/2
	if !finite(usable) || !finite(step) || usable <= 0 || step <= 0 || item <= 0 {
		return 0
	}
	n := math.Floor(usable / step)
	if n <= 0 || math.IsNaN(n) {
		return 0
	}
	if n > MaxPerAxis {
		return MaxPerAxis
	}
	return int(n)
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// Paginate splits items into consecutive pages of perPage entries; the last page may be
// shorter. Empty input or perPage <= 0 yields zero pages. Pages share the backing array
// of items but are capacity-clipped, so appending to a page never clobbers its neighbour.
func Paginate[T any](items []T, perPage int) [][]T {
	if perPage <= 0 || len(items) == 0 {
		return nil
	}
	pages := make([][]T, 0, PageCount(len(items), perPage))
	for start := 0; start < len(items); start += perPage {
		end := min(start+perPage, len(items))
		pages = append(pages, items[start:end:end])
	}
	return pages
}

// PageCount returns the number of pages Paginate produces for n items.
func PageCount(n, perPage int) int {
	if perPage <= 0 || n <= 0 {
		return 0
	}
	return (n + perPage - 1) / perPage
}

// GlobalIndex maps a slot on a page back to its Image List index.
func GlobalIndex(page, slot, perPage int) int { return perPage*page + slot }

// Locate maps an Image List index to its page and slot.
func Locate(index, perPage int) (page, slot int, ok bool) {
	if perPage <= 0 || index < 0 {
		return 0, 0, false
	}
	return index / perPage, index % perPage, true
}

// Rect is an axis-aligned rectangle on a sheet, in millimetres from the top-left corner.
type Rect struct {
	X, Y, W, H float64
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() (x, y float64) { return r.X + r.W/2, r.Y + r.H/2 }

// Cells places every slot of grid on the sheet. Columns are distributed with equal
// space around each item, rows with equal space between them (first and last row
// touch the padding), which is how the print stylesheet lays the grid out.
// Slots are returned row-major, matching Paginate's order, and only the first
// limit of them are built: a grid of tiny items can hold far more slots than there
// are images to place.
func Cells(sheet, item paper.Size, grid Grid, padding float64, limit int) []Rect {
	n := min(limit, grid.Slots())
	if n <= 0 {
		return nil
	}
	usableW := sheet.Width - 2*padding
	usableH := sheet.Height - 2*padding
	around := (usableW - float64(grid.Columns)*item.Width) / float64(grid.Columns)
	between := 0.0
	if grid.Rows > 1 {
		between = (usableH - float64(grid.Rows)*item.Height) / float64(grid.Rows-1)
	}
	cells := make([]Rect, 0, n)
	for r := 0; r < grid.Rows && len(cells) < n; r++ {
		y := padding + float64(r)*(item.Height+between)
		for c := 0; c < grid.Columns && len(cells) < n; c++ {
			x := padding + around*(float64(c)+0.5) + float64(c)*item.Width
			cells = append(cells, Rect{X: x, Y: y, W: item.Width, H: item.Height})
		}
	}
	return cells
}
