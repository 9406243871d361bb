package layout

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"oshicropper/internal/paper"
)

func TestItemsPerPage_A4Badge(t *testing.T) {
	// floor((210-10)/81)=2 columns, floor((297-10)/81)=3 rows
	require.Equal(t, 6, ItemsPerPage(210, 297, 80, 2, 5))
}

func TestItemsPerPage_Degenerate(t *testing.T) {
	cases := []struct {
		name                        string
		w, h, diameter, gap, padding float64
	}{
		{"too large", 210, 297, 300, 2, 5},
		{"zero diameter", 210, 297, 0, 2, 5},
		{"negative diameter", 210, 297, -80, 2, 5},
		{"negative step", 210, 297, 10, -40, 5},
		{"padding eats page", 210, 297, 80, 2, 200},
		{"nan", 210, 297, math.NaN(), 2, 5},
		{"inf page", math.Inf(1), 297, 80, 2, 5},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, 0, ItemsPerPage(c.w, c.h, c.diameter, c.gap, c.padding))
		})
	}
}

func TestItemsPerPage_TinyItemsAreCapped(t *testing.T) {
	n := ItemsPerPage(210, 297, 1e-12, 0, 0)
	require.Equal(t, MaxPerAxis*MaxPerAxis, n)
}

func TestItemsPerPage_MonotoneInPageSize(t *testing.T) {
	for _, d := range []float64{10, 25, 57, 80, 120} {
		for _, gap := range []float64{0, 2, 7.5} {
			for _, pad := range []float64{0, 5, 12} {
				a := ItemsPerPage(210, 297, d, gap, pad)
				b := ItemsPerPage(420, 594, d, gap, pad)
				require.GreaterOrEqual(t, a, 0)
				require.GreaterOrEqual(t, b, a, "d=%v gap=%v pad=%v", d, gap, pad)
				require.Equal(t, a, ItemsPerPage(210, 297, d, gap, pad))
			}
		}
	}
}

func TestGridCapacity_PhotoOnA4(t *testing.T) {
	g := GridCapacity(paper.MustLookup(paper.A4), paper.MustLookup(paper.L), 2, 5)
	require.Equal(t, Grid{Columns: 1, Rows: 3}, g)
	require.Equal(t, 3, g.Slots())
}

func TestPaginate_Scenario(t *testing.T) {
	pages := Paginate([]string{"A", "B", "C"}, 2)
	require.Equal(t, [][]string{{"A", "B"}, {"C"}}, pages)
}

func TestPaginate_ZeroPerPageYieldsNoPages(t *testing.T) {
	require.Empty(t, Paginate([]int{1, 2, 3}, 0))
	require.Empty(t, Paginate([]int{1, 2, 3}, -4))
	require.Empty(t, Paginate([]int{}, 3))
	require.Equal(t, 0, PageCount(3, 0))
}

func TestPaginate_ConcatenationReproducesInput(t *testing.T) {
	for n := 0; n <= 23; n++ {
		items := make([]int, n)
		for i := range items {
			items[i] = i * 7
		}
		for per := 1; per <= 9; per++ {
			pages := Paginate(items, per)
			require.Len(t, pages, PageCount(n, per))
			var joined []int
			for i, p := range pages {
				if i < len(pages)-1 {
					require.Len(t, p, per)
				} else {
					require.GreaterOrEqual(t, len(p), 1)
					require.LessOrEqual(t, len(p), per)
				}
				joined = append(joined, p...)
			}
			if n == 0 {
				require.Empty(t, pages)
				continue
			}
			require.True(t, slices.Equal(items, joined))
			require.Equal(t, pages, Paginate(items, per))
		}
	}
}

func TestPaginate_AppendDoesNotClobberNextPage(t *testing.T) {
	items := []string{"A", "B", "C", "D"}
	pages := Paginate(items, 2)
	_ = append(pages[0], "X")
	require.Equal(t, []string{"C", "D"}, pages[1])
	require.Equal(t, []string{"A", "B", "C", "D"}, items)
}

func TestGlobalIndexAndLocate(t *testing.T) {
	require.Equal(t, 13, GlobalIndex(2, 1, 6))
	page, slot, ok := Locate(13, 6)
	require.True(t, ok)
	require.Equal(t, 2, page)
	require.Equal(t, 1, slot)
	_, _, ok = Locate(3, 0)
	require.False(t, ok)
	_, _, ok = Locate(-1, 6)
	require.False(t, ok)
}

func TestCells_StayOnSheetAndDoNotOverlap(t *testing.T) {
	sheet := paper.MustLookup(paper.A4)
	item := paper.Size{Width: 80, Height: 80}
	grid := GridCapacity(sheet, item, 2, 5)
	cells := Cells(sheet, item, grid, 5, grid.Slots())
	require.Len(t, cells, 6)
	for i, c := range cells {
		require.GreaterOrEqual(t, c.X, 5.0)
		require.GreaterOrEqual(t, c.Y, 5.0)
		require.LessOrEqual(t, c.X+c.W, sheet.Width-5+1e-9)
		require.LessOrEqual(t, c.Y+c.H, sheet.Height-5+1e-9)
		for j := i + 1; j < len(cells); j++ {
			o := cells[j]
			overlapX := c.X < o.X+o.W && o.X < c.X+c.W
			overlapY := c.Y < o.Y+o.H && o.Y < c.Y+c.H
			require.False(t, overlapX && overlapY, "cells %d and %d overlap", i, j)
		}
	}
	// first row hugs the top padding, last row the bottom padding
	require.InDelta(t, 5.0, cells[0].Y, 1e-9)
	require.InDelta(t, sheet.Height-5, cells[5].Y+cells[5].H, 1e-9)
	require.Nil(t, Cells(sheet, item, Grid{}, 5, 10))
}

func TestCells_LimitBuildsOnlyFilledSlots(t *testing.T) {
	s := Defaults()
	s.Badge.Diameter, s.Badge.Gap = 0.001, 0
	p := s.Plan(ModeBadge, 3)
	require.Equal(t, MaxPerAxis*MaxPerAxis, p.PerPage)
	cells := p.Cells(3)
	require.Len(t, cells, 3)
	require.Equal(t, cells[0].Y, cells[2].Y, "first slots share the top row")
	require.Less(t, cells[0].X, cells[1].X)
	require.Len(t, Defaults().Plan(ModeBadge, 1).Cells(100), 6)
	require.Nil(t, p.Cells(0))
}
