package crop

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"oshicropper/internal/imagelist"
)

// pattern returns an image whose every pixel is distinct.
func pattern(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 13), G: uint8(y * 29), B: uint8(x ^ y), A: 255})
		}
	}
	return img
}

func pngEntry(t *testing.T, name string, img image.Image) imagelist.Entry {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return imagelist.Entry{Name: name, MIME: "image/png", Data: buf.Bytes()}
}

func decodeNRGBA(t *testing.T, e imagelist.Entry) image.Image {
	t.Helper()
	img, _, err := image.Decode(bytes.NewReader(e.Data))
	require.NoError(t, err)
	return img
}

func requireSamePixels(t *testing.T, want, got image.Image, off image.Point) {
	t.Helper()
	b := got.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			w := color.NRGBAModel.Convert(want.At(x-b.Min.X+off.X, y-b.Min.Y+off.Y))
			g := color.NRGBAModel.Convert(got.At(x, y))
			require.Equal(t, w, g, "pixel %d,%d", x, y)
		}
	}
}

func TestApply_FullBoundsRoundTrip(t *testing.T) {
	src := pattern(17, 11)
	e := pngEntry(t, "pattern.png", src)
	out, err := Apply(context.Background(), e, Rect{Width: 17, Height: 11})
	require.NoError(t, err)
	require.Equal(t, "image/png", out.MIME)
	require.Equal(t, "pattern.png", out.Name)
	got := decodeNRGBA(t, out)
	require.Equal(t, 17, got.Bounds().Dx())
	require.Equal(t, 11, got.Bounds().Dy())
	requireSamePixels(t, src, got, image.Point{})
}

func TestApply_SubRect(t *testing.T) {
	src := pattern(20, 20)
	out, err := Apply(context.Background(), pngEntry(t, "p.png", src), Rect{X: 3, Y: 5, Width: 7, Height: 4})
	require.NoError(t, err)
	got := decodeNRGBA(t, out)
	require.Equal(t, image.Rect(0, 0, 7, 4), got.Bounds())
	requireSamePixels(t, src, got, image.Pt(3, 5))
}

func TestApply_PartiallyOutsideIsClipped(t *testing.T) {
	src := pattern(10, 10)
	out, err := Apply(context.Background(), pngEntry(t, "p.png", src), Rect{X: 6, Y: -2, Width: 10, Height: 5})
	require.NoError(t, err)
	got := decodeNRGBA(t, out)
	require.Equal(t, image.Rect(0, 0, 4, 3), got.Bounds())
	requireSamePixels(t, src, got, image.Pt(6, 0))
}

func TestApply_Degenerate(t *testing.T) {
	e := pngEntry(t, "p.png", pattern(10, 10))
	for _, r := range []Rect{
		{Width: 0, Height: 5},
		{Width: 5, Height: -1},
		{X: 20, Y: 20, Width: 5, Height: 5},
		{X: -10, Y: 0, Width: 10, Height: 5},
		{X: 1 << 62, Width: 1 << 62, Height: 10},
		{Y: 1 << 62, Width: 10, Height: 1 << 62},
	} {
		_, err := Apply(context.Background(), e, r)
		require.ErrorIs(t, err, ErrCropFailed, "rect %s", r)
		require.ErrorIs(t, err, ErrDegenerateRect, "rect %s", r)
	}
}

func TestApply_DecodeFailure(t *testing.T) {
	_, err := Apply(context.Background(), imagelist.Entry{Name: "x.png", MIME: "image/png", Data: []byte("garbage")}, Rect{Width: 1, Height: 1})
	require.ErrorIs(t, err, ErrCropFailed)
	require.ErrorIs(t, err, ErrDecode)
}

func TestApply_UnwritableFormatFallsBackToPNG(t *testing.T) {
	e := pngEntry(t, "holiday.webp", pattern(4, 4))
	e.MIME = "image/webp"
	out, err := Apply(context.Background(), e, Rect{Width: 2, Height: 2})
	require.NoError(t, err)
	require.Equal(t, "image/png", out.MIME)
	require.Equal(t, "holiday.png", out.Name)
}

func TestApply_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Apply(ctx, pngEntry(t, "p.png", pattern(2, 2)), Rect{Width: 1, Height: 1})
	require.True(t, errors.Is(err, context.Canceled))
}

func TestCentered(t *testing.T) {
	require.Equal(t, Rect{X: 20, Y: 0, Width: 60, Height: 60}, Centered(100, 60, 1))
	require.Equal(t, Rect{X: 0, Y: 0, Width: 100, Height: 60}, Centered(100, 60, 0))
	r := Centered(1270, 1000, 127.0/89.0)
	require.Equal(t, 1270, r.Width)
	require.Equal(t, 890, r.Height)
	require.Equal(t, 55, r.Y)
	require.Equal(t, Rect{}, Centered(0, 10, 1))
}

func TestParseRect(t *testing.T) {
	r, err := ParseRect("1, 2.4,30,40.6")
	require.NoError(t, err)
	require.Equal(t, Rect{X: 1, Y: 2, Width: 30, Height: 41}, r)
	_, err = ParseRect("1,2,3")
	require.Error(t, err)
	_, err = ParseRect("a,b,c,d")
	require.Error(t, err)
}

func TestClip_HugeValuesDoNotWrap(t *testing.T) {
	b := image.Rect(0, 0, 10, 10)
	r, err := ParseRect("5e18,0,5e18,10")
	require.NoError(t, err)
	_, err = r.Clip(b)
	require.ErrorIs(t, err, ErrDegenerateRect)

	r, err = ParseRect("1e300,NaN,1e300,10")
	require.NoError(t, err)
	_, err = r.Clip(b)
	require.ErrorIs(t, err, ErrDegenerateRect)

	// a huge rectangle starting inside still clips to the image
	got, err := Rect{X: 2, Y: 3, Width: 1 << 62, Height: 1 << 62}.Clip(b)
	require.NoError(t, err)
	require.Equal(t, image.Rect(2, 3, 10, 10), got)

	got, err = Rect{X: 1, Y: 1, Width: 2, Height: 2}.Clip(image.Rect(5, 5, 15, 15))
	require.NoError(t, err)
	require.Equal(t, image.Rect(6, 6, 8, 8), got)
}
