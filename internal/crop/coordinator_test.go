package crop

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"oshicropper/internal/imagelist"
	"oshicropper/internal/layout"
)

func TestMain(m *testing.M) { goleak.VerifyTestMain(m) }

func fixture(t *testing.T, n int) *imagelist.List {
	t.Helper()
	es := make([]imagelist.Entry, n)
	for i := range es {
		es[i] = pngEntry(t, string(rune('a'+i))+".png", pattern(8+i, 6+i))
	}
	return imagelist.New(es)
}

func TestCoordinator_CancelLeavesListUnchanged(t *testing.T) {
	l := fixture(t, 2)
	before := l.Entries()
	c := NewCoordinator(l)
	require.NoError(t, c.Open(1, layout.ModeBadge, 1))
	require.NoError(t, c.SetRect(Rect{Width: 2, Height: 2}))
	c.Cancel()
	require.Equal(t, Idle, c.Status().State)
	require.Nil(t, c.Status().Rect)
	require.Equal(t, before, l.Entries())
}

func TestCoordinator_OpenValidates(t *testing.T) {
	c := NewCoordinator(fixture(t, 1))
	require.ErrorIs(t, c.Open(1, layout.ModeBadge, 1), imagelist.ErrIndexOutOfRange)
	require.NoError(t, c.Open(0, layout.ModeBadge, 1))
	require.ErrorIs(t, c.Open(0, layout.ModeBadge, 1), ErrAlreadyEditing)
}

func TestCoordinator_SaveWithoutRectClosesEditor(t *testing.T) {
	l := fixture(t, 2)
	before := l.Entries()
	c := NewCoordinator(l)
	require.NoError(t, c.Open(0, layout.ModeBadge, 1))
	res, err := c.Save(context.Background())
	require.NoError(t, err)
	require.False(t, res.Changed)
	require.Equal(t, Idle, c.Status().State)
	require.Equal(t, before, l.Entries())
}

func TestCoordinator_SaveIdle(t *testing.T) {
	c := NewCoordinator(fixture(t, 1))
	_, err := c.Save(context.Background())
	require.ErrorIs(t, err, ErrNoSelection)
}

func TestCoordinator_SaveReplacesInPlace(t *testing.T) {
	l := fixture(t, 3)
	before := l.Entries()
	c := NewCoordinator(l)
	require.NoError(t, c.Open(1, layout.ModeBadge, 1))
	require.NoError(t, c.SetRect(Rect{X: 1, Y: 1, Width: 4, Height: 4}))
	res, err := c.Save(context.Background())
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.Equal(t, 1, res.Index)
	require.Equal(t, Idle, c.Status().State)

	after := l.Entries()
	require.Len(t, after, 3)
	require.Equal(t, before[0], after[0])
	require.Equal(t, before[2], after[2])
	require.Equal(t, res.Entry, after[1])
	img := decodeNRGBA(t, after[1])
	require.Equal(t, 4, img.Bounds().Dx())
}

func TestCoordinator_FailedCropKeepsEditorOpen(t *testing.T) {
	l := imagelist.New([]imagelist.Entry{{Name: "bad.png", MIME: "image/png", Data: []byte("not png")}})
	c := NewCoordinator(l)
	require.NoError(t, c.Open(0, layout.ModeBadge, 1))
	require.NoError(t, c.SetRect(Rect{Width: 1, Height: 1}))
	_, err := c.Save(context.Background())
	require.ErrorIs(t, err, ErrCropFailed)
	st := c.Status()
	require.Equal(t, Editing, st.State)
	require.False(t, st.Busy)
	require.Equal(t, "not png", string(mustAt(t, l, 0).Data))
}

func TestCoordinator_Delete(t *testing.T) {
	l := fixture(t, 3)
	before := l.Entries()
	c := NewCoordinator(l)
	require.NoError(t, c.Open(1, layout.ModePhoto, 1.5))
	res, err := c.Delete()
	require.NoError(t, err)
	require.True(t, res.Changed)
	require.Equal(t, Idle, c.Status().State)
	require.Equal(t, []imagelist.Entry{before[0], before[2]}, l.Entries())

	_, err = c.Delete()
	require.ErrorIs(t, err, ErrNoSelection)
}

func TestCoordinator_StaleSelectionRevertsToIdle(t *testing.T) {
	l := fixture(t, 3)
	c := NewCoordinator(l)
	require.NoError(t, c.Open(2, layout.ModeBadge, 1))
	require.NoError(t, c.SetRect(Rect{Width: 2, Height: 2}))

	_, err := l.Remove(0)
	require.NoError(t, err)

	idx, ok := c.Selection()
	require.False(t, ok)
	require.Equal(t, -1, idx)

	res, err := c.Save(context.Background())
	require.NoError(t, err)
	require.False(t, res.Changed)
	require.Equal(t, 2, l.Len())
}

func TestCoordinator_FlipIsSelfInverse(t *testing.T) {
	c := NewCoordinator(fixture(t, 1))
	require.NoError(t, c.Open(0, layout.ModePhoto, 127.0/89.0))
	require.NoError(t, c.SetRect(Rect{Width: 3, Height: 2}))
	a, err := c.Flip()
	require.NoError(t, err)
	require.InDelta(t, 89.0/127.0, a, 1e-12)
	require.Nil(t, c.Status().Rect)
	a, err = c.Flip()
	require.NoError(t, err)
	require.InDelta(t, 127.0/89.0, a, 1e-12)
	c.Cancel()

	require.NoError(t, c.Open(0, layout.ModePhoto, 0))
	a, err = c.Flip()
	require.NoError(t, err)
	require.Equal(t, 0.0, a)
	c.Cancel()

	require.NoError(t, c.Open(0, layout.ModeBadge, 1))
	_, err = c.Flip()
	require.ErrorIs(t, err, ErrPhotoOnly)
}

func TestCoordinator_BusyRejectsSecondSave(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	slow := func(ctx context.Context, src imagelist.Entry, r Rect) (imagelist.Entry, error) {
		close(started)
		<-release
		return Apply(ctx, src, r)
	}
	l := fixture(t, 1)
	c := NewCoordinator(l, WithApply(slow))
	require.NoError(t, c.Open(0, layout.ModeBadge, 1))
	require.NoError(t, c.SetRect(Rect{Width: 2, Height: 2}))

	errc := make(chan error, 1)
	go func() {
		_, err := c.Save(context.Background())
		errc <- err
	}()
	<-started
	require.True(t, c.Status().Busy)
	_, err := c.Save(context.Background())
	require.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-errc)
	c.Wait()
	require.Equal(t, Idle, c.Status().State)
}

func TestCoordinator_CancelDuringApplyDiscardsResult(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	slow := func(ctx context.Context, src imagelist.Entry, r Rect) (imagelist.Entry, error) {
		close(started)
		<-release
		return Apply(ctx, src, r)
	}
	l := fixture(t, 2)
	before := l.Entries()
	c := NewCoordinator(l, WithApply(slow))
	require.NoError(t, c.Open(1, layout.ModeBadge, 1))
	require.NoError(t, c.SetRect(Rect{Width: 2, Height: 2}))

	errc := make(chan error, 1)
	go func() {
		_, err := c.Save(context.Background())
		errc <- err
	}()
	<-started
	c.Cancel()
	close(release)
	require.ErrorIs(t, <-errc, ErrDiscarded)
	c.Wait()
	require.Equal(t, before, l.Entries())
}

func TestCoordinator_EntryChangedDuringApplyIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	slow := func(ctx context.Context, src imagelist.Entry, r Rect) (imagelist.Entry, error) {
		close(started)
		<-release
		return Apply(ctx, src, r)
	}
	l := fixture(t, 3)
	c := NewCoordinator(l, WithApply(slow))
	require.NoError(t, c.Open(1, layout.ModeBadge, 1))
	require.NoError(t, c.SetRect(Rect{Width: 2, Height: 2}))

	errc := make(chan error, 1)
	go func() {
		_, err := c.Save(context.Background())
		errc <- err
	}()
	<-started
	_, err := l.Remove(0)
	require.NoError(t, err)
	shifted := l.Entries()
	close(release)
	require.ErrorIs(t, <-errc, ErrDiscarded)
	c.Wait()
	require.Equal(t, shifted, l.Entries())
	require.Equal(t, Idle, c.Status().State)
}

func TestCoordinator_SaveHonoursContext(t *testing.T) {
	release := make(chan struct{})
	slow := func(ctx context.Context, src imagelist.Entry, r Rect) (imagelist.Entry, error) {
		<-release
		return src, nil
	}
	l := fixture(t, 1)
	c := NewCoordinator(l, WithApply(slow))
	require.NoError(t, c.Open(0, layout.ModeBadge, 1))
	require.NoError(t, c.SetRect(Rect{Width: 2, Height: 2}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Save(ctx)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	st := c.Status()
	require.Equal(t, Editing, st.State)
	// the abandoned crop still runs, so a retry must not start a second one
	require.True(t, st.Busy)
	_, err = c.Save(context.Background())
	require.ErrorIs(t, err, ErrBusy)

	close(release)
	c.Wait()
	require.False(t, c.Status().Busy)
	res, err := c.Save(context.Background())
	require.NoError(t, err)
	require.True(t, res.Changed)
}

func TestCoordinator_CancelledSaveAfterCropFinishedIsNotBusy(t *testing.T) {
	l := fixture(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	quick := func(_ context.Context, src imagelist.Entry, _ Rect) (imagelist.Entry, error) {
		cancel()
		return src, nil
	}
	c := NewCoordinator(l, WithApply(quick))
	require.NoError(t, c.Open(0, layout.ModeBadge, 1))
	require.NoError(t, c.SetRect(Rect{Width: 2, Height: 2}))
	_, err := c.Save(ctx)
	c.Wait()
	if err != nil {
		require.ErrorIs(t, err, context.Canceled)
	}
	require.False(t, c.Status().Busy)
}

func TestCoordinator_Download(t *testing.T) {
	l := fixture(t, 1)
	before := l.Entries()
	c := NewCoordinator(l)
	dir := t.TempDir()

	require.NoError(t, c.Open(0, layout.ModePhoto, 1.5))
	_, err := c.Download(context.Background(), dir)
	require.ErrorIs(t, err, ErrNoCrop)

	require.NoError(t, c.SetRect(Rect{Width: 3, Height: 2}))
	path, err := c.Download(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "a-cropped.png"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	img := decodeNRGBA(t, imagelist.Entry{Data: data})
	require.Equal(t, 3, img.Bounds().Dx())

	require.Equal(t, Editing, c.Status().State)
	require.Equal(t, before, l.Entries())

	custom := filepath.Join(dir, "sub", "mine.png")
	path, err = c.Download(context.Background(), custom)
	require.NoError(t, err)
	require.Equal(t, custom, path)
	c.Cancel()

	require.NoError(t, c.Open(0, layout.ModeBadge, 1))
	require.NoError(t, c.SetRect(Rect{Width: 3, Height: 3}))
	_, err = c.Download(context.Background(), dir)
	require.ErrorIs(t, err, ErrPhotoOnly)
}

func mustAt(t *testing.T, l *imagelist.List, i int) imagelist.Entry {
	t.Helper()
	e, ok := l.At(i)
	require.True(t, ok)
	return e
}
