package paper

import "testing"

func TestLookupIsCaseInsensitive(t *testing.T) {
	s, ok := Lookup(" 2L ")
	if !ok || s.Width != 178 || s.Height != 127 {
		t.Fatalf("Lookup(2L) = %v, %v", s, ok)
	}
	if _, ok := Lookup("letter"); ok {
		t.Fatalf("letter should be unknown")
	}
}

func TestCatalogueMatchesPrintSizes(t *testing.T) {
	want := map[Name]Size{
		A4: {210, 297}, L: {127, 89}, TwoL: {178, 127},
		Postcard: {148, 100}, A6: {148, 105}, B6: {182, 128},
	}
	names := Names()
	if len(names) != len(want) {
		t.Fatalf("expected %d sizes, got %d", len(want), len(names))
	}
	for _, n := range names {
		if got := MustLookup(n); got != want[n] {
			t.Fatalf("%s = %v, want %v", n, got, want[n])
		}
	}
	if Default != L {
		t.Fatalf("default paper should be L")
	}
}

func TestParseAndAspect(t *testing.T) {
	n, err := Parse("Postcard")
	if err != nil || n != Postcard {
		t.Fatalf("Parse = %q, %v", n, err)
	}
	if _, err := Parse("poster"); err == nil {
		t.Fatalf("expected error for unknown size")
	}
	s := MustLookup(L)
	if a := s.Rotated().Aspect() * s.Aspect(); a < 0.999999 || a > 1.000001 {
		t.Fatalf("rotated aspect should be the reciprocal, product=%v", a)
	}
	if (Size{}).Aspect() != 0 {
		t.Fatalf("degenerate aspect should be 0")
	}
	if TwoL.Label() != "2L" {
		t.Fatalf("label = %q", TwoL.Label())
	}
}
