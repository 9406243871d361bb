/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package crop cuts rectangles out of images and coordinates the per-image editor:
// which entry is open, the pending crop rectangle, and how a finished crop lands in the list.
package crop

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"oshicropper/internal/imagelist"
	"oshicropper/internal/layout"
	applog "oshicropper/internal/log"
)

// State is the editor state.
type State int

const (
	Idle State = iota
	Editing
)

func (s State) String() string {
	if s == Editing {
		return "editing"
	}
	return "idle"
}

// ApplyFunc produces the cropped entry. Apply is the default.
type ApplyFunc func(ctx context.Context, src imagelist.Entry, r Rect) (imagelist.Entry, error)

// Status is a point-in-time view of the coordinator.
type Status struct {
	State  State
	Index  int
	Mode   layout.Mode
	Aspect float64
	Rect   *Rect
	Busy   bool
}

// Result reports the outcome of Save or Delete. Changed is false when the editor
// closed without touching the list.
type Result struct {
	Changed bool
	Index   int
	Entry   imagelist.Entry
}

// Coordinator is the Idle/Editing state machine over an image list.
// Only one entry is edited at a time. It is safe for concurrent use.
type Coordinator struct {
	list  *imagelist.List
	apply ApplyFunc
	log   *slog.Logger

	mu     sync.Mutex
	state  State
	index  int
	mode   layout.Mode
	aspect float64
	rect   *Rect
	busy   bool
	// gen is bumped whenever the selection closes, so in-flight results can tell they are stale.
	gen uint64

	inflight sync.WaitGroup
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithApply replaces the crop implementation.
func WithApply(fn ApplyFunc) Option { return func(c *Coordinator) { c.apply = fn } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(c *Coordinator) { c.log = l } }

// NewCoordinator creates an idle coordinator over list.
func NewCoordinator(list *imagelist.List, opts ...Option) *Coordinator {
	c := &Coordinator{list: list, apply: Apply}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = applog.WithComponent("crop")
	}
	return c
}

// Open starts editing entry i with the given crop aspect (width/height).
func (c *Coordinator) Open(i int, mode layout.Mode, aspect float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revertIfStaleLocked()
	if c.state == Editing {
		return fmt.Errorf("open %d: %w (editing %d)", i, ErrAlreadyEditing, c.index)
	}
	if i < 0 || i >= c.list.Len() {
		return fmt.Errorf("open %d: %w", i, imagelist.ErrIndexOutOfRange)
	}
	c.state, c.index, c.mode, c.aspect, c.rect = Editing, i, mode, aspect, nil
	c.log.Debug("editor opened", "index", i, "mode", mode, "aspect", aspect)
	return nil
}

// Status returns the current state. A selection that no longer fits the list reads as Idle.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revertIfStaleLocked()
	st := Status{State: c.state, Index: -1, Mode: c.mode, Aspect: c.aspect, Busy: c.busy}
	if c.state == Editing {
		st.Index = c.index
	}
	if c.rect != nil {
		r := *c.rect
		st.Rect = &r
	}
	return st
}

// Selection returns the open index.
func (c *Coordinator) Selection() (int, bool) {
	st := c.Status()
	return st.Index, st.State == Editing
}

// SetRect records the rectangle chosen in the crop widget.
func (c *Coordinator) SetRect(r Rect) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.editingLocked() {
		return ErrNoSelection
	}
	c.rect = &r
	return nil
}

// Cancel closes the editor and drops the pending rectangle. An in-flight Save is discarded.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Editing {
		c.log.Debug("editor cancelled", "index", c.index)
	}
	c.closeLocked()
}

// Flip inverts the crop aspect (a -> 1/a) in photo mode. Non-positive aspects are left alone.
// The pending rectangle belongs to the old aspect and is dropped.
func (c *Coordinator) Flip() (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.editingLocked() {
		return 0, ErrNoSelection
	}
	if c.mode != layout.ModePhoto {
		return c.aspect, fmt.Errorf("flip: %w", ErrPhotoOnly)
	}
	if c.aspect > 0 {
		c.aspect = 1 / c.aspect
		c.rect = nil
	}
	return c.aspect, nil
}

// Delete removes the open entry and closes the editor.
func (c *Coordinator) Delete() (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.editingLocked() {
		return Result{}, ErrNoSelection
	}
	i := c.index
	removed, err := c.list.Remove(i)
	c.closeLocked()
	if err != nil {
		// the list shrank underneath us; nothing left to delete
		c.log.Debug("delete of stale selection ignored", "index", i, "err", err)
		return Result{Index: i}, nil
	}
	c.log.Info("image deleted", "index", i, "name", removed.Name)
	return Result{Changed: true, Index: i, Entry: removed}, nil
}

// Save applies the pending rectangle to the open entry and replaces it in the list.
// Without a rectangle, or with a selection the list no longer holds, the editor closes
// and the list is unchanged. While the crop runs the coordinator is busy; a second
// Save fails with ErrBusy, also after ctx is cancelled until the abandoned crop
// has returned. If the editor is closed or
// the entry changes before the crop finishes, the result is dropped with ErrDiscarded.
// A failed crop keeps the editor open so the user can retry.
func (c *Coordinator) Save(ctx context.Context) (Result, error) {
	c.mu.Lock()
	if c.revertIfStaleLocked() {
		c.mu.Unlock()
		return Result{}, nil
	}
	if c.state != Editing {
		c.mu.Unlock()
		return Result{}, ErrNoSelection
	}
	if c.busy {
		c.mu.Unlock()
		return Result{}, ErrBusy
	}
	i := c.index
	if c.rect == nil {
		c.closeLocked()
		c.mu.Unlock()
		c.log.Debug("save without crop rectangle closes editor", "index", i)
		return Result{Index: i}, nil
	}
	src, ok := c.list.At(i)
	if !ok {
		c.closeLocked()
		c.mu.Unlock()
		return Result{Index: i}, nil
	}
	r, gen := *c.rect, c.gen
	c.busy = true
	c.mu.Unlock()

	done := make(chan applyResult, 1)
	// abandoned is guarded by c.mu; once set, the worker clears busy itself.
	abandoned := false
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		e, err := c.apply(ctx, src, r)
		done <- applyResult{entry: e, err: err}
		c.mu.Lock()
		if abandoned && c.gen == gen {
			c.busy = false
		}
		c.mu.Unlock()
	}()

	var res applyResult
	select {
	case <-ctx.Done():
		c.mu.Lock()
		select {
		case <-done:
			if c.gen == gen {
				c.busy = false
			}
		default:
			// the crop is still running; stay busy until it returns
			abandoned = true
		}
		c.mu.Unlock()
		return Result{Index: i}, ctx.Err()
	case res = <-done:
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen || c.state != Editing || c.index != i {
		c.log.Debug("crop result discarded", "index", i)
		return Result{Index: i}, ErrDiscarded
	}
	c.busy = false
	if res.err != nil {
		c.log.Warn("crop failed", "index", i, "rect", r.String(), "err", res.err)
		return Result{Index: i}, res.err
	}
	replaced, err := c.list.CompareAndReplace(i, src, res.entry)
	if err != nil || !replaced {
		c.closeLocked()
		c.log.Debug("crop target changed during apply", "index", i, "err", err)
		return Result{Index: i}, ErrDiscarded
	}
	c.closeLocked()
	c.log.Info("image cropped", "index", i, "rect", r.String(), "bytes", res.entry.Size())
	return Result{Changed: true, Index: i, Entry: res.entry}, nil
}

type applyResult struct {
	entry imagelist.Entry
	err   error
}

// Preview runs the crop for the open entry without touching the list or the editor.
func (c *Coordinator) Preview(ctx context.Context) (imagelist.Entry, error) {
	c.mu.Lock()
	if !c.editingLocked() {
		c.mu.Unlock()
		return imagelist.Entry{}, ErrNoSelection
	}
	if c.rect == nil {
		c.mu.Unlock()
		return imagelist.Entry{}, ErrNoCrop
	}
	src, ok := c.list.At(c.index)
	r := *c.rect
	c.mu.Unlock()
	if !ok {
		return imagelist.Entry{}, ErrNoSelection
	}
	return c.apply(ctx, src, r)
}

// DownloadName is the default filename for a downloaded crop: "<base>-cropped<ext>".
func DownloadName(e imagelist.Entry) string { return e.Base() + "-cropped" + e.Ext() }

// Download writes the current crop result to dest (photo mode only). An empty dest or
// a directory gets the default filename. The list and the editor are left as they are.
func (c *Coordinator) Download(ctx context.Context, dest string) (string, error) {
	c.mu.Lock()
	mode, editing := c.mode, c.editingLocked()
	c.mu.Unlock()
	if !editing {
		return "", ErrNoSelection
	}
	if mode != layout.ModePhoto {
		return "", fmt.Errorf("download: %w", ErrPhotoOnly)
	}
	out, err := c.Preview(ctx)
	if err != nil {
		return "", err
	}
	path := dest
	if path == "" {
		path = DownloadName(out)
	} else if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		path = filepath.Join(path, DownloadName(out))
	}
	if err := writeFileAtomic(path, out.Data); err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	c.log.Info("crop downloaded", "path", path, "bytes", out.Size())
	return path, nil
}

// Wait blocks until every crop started by Save has returned.
func (c *Coordinator) Wait() { c.inflight.Wait() }

func (c *Coordinator) editingLocked() bool {
	c.revertIfStaleLocked()
	return c.state == Editing
}

func (c *Coordinator) revertIfStaleLocked() bool {
	if c.state == Editing && c.index >= c.list.Len() {
		c.log.Debug("stale selection reverted", "index", c.index, "len", c.list.Len())
		c.closeLocked()
		return true
	}
	return false
}

func (c *Coordinator) closeLocked() {
	c.state, c.rect, c.busy = Idle, nil, false
	c.index = 0
	c.gen++
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
