/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package imagelist holds the ordered list of images a session works on.
// It is the single owner of the entries; pages and views are derived from it on read.
package imagelist

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"sync"

	"oshicropper/internal/undo"
)

// ErrIndexOutOfRange is returned by index based mutations past the list bounds.
var ErrIndexOutOfRange = errors.New("index out of range")

// ChangeKind classifies a list mutation.
type ChangeKind int

const (
	Appended ChangeKind = iota + 1
	Replaced
	Removed
	Inserted
)

// Change is delivered to subscribers after every mutation. Old is the entry that left
// the list (Replaced, Removed), New the one that entered it (Appended, Replaced, Inserted).
type Change struct {
	Kind  ChangeKind
	Index int
	Old   Entry
	New   Entry
}

// List is an ordered, index-addressed image list. It is safe for concurrent use.
type List struct {
	mu      sync.RWMutex
	entries []Entry
	version uint64
	hist    *undo.History[Entry]
	subs    []func(Change)
}

// Option configures a List.
type Option func(*List)

// WithHistory enables undo/redo of replace and remove edits.
func WithHistory(cfg undo.Config) Option {
	return func(l *List) { l.hist = undo.New[Entry](cfg, Entry.Size) }
}

// New creates a list holding a copy of entries.
func New(entries []Entry, opts ...Option) *List {
	l := &List{entries: slices.Clone(entries)}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Subscribe registers fn for change notifications. fn runs after the list lock is released.
func (l *List) Subscribe(fn func(Change)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs = append(l.subs, fn)
}

func (l *List) notify(subs []func(Change), changes ...Change) {
	for _, c := range changes {
		for _, fn := range subs {
			fn(c)
		}
	}
}

// Len returns the number of entries.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Version increments on every mutation.
func (l *List) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// At returns the entry at i.
func (l *List) At(i int) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i < 0 || i >= len(l.entries) {
		return Entry{}, false
	}
	return l.entries[i], true
}

// Entries returns a snapshot of the list.
func (l *List) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.entries)
}

// Append adds entries at the tail, in order.
func (l *List) Append(es ...Entry) {
	if len(es) == 0 {
		return
	}
	l.mu.Lock()
	start := len(l.entries)
	l.entries = append(l.entries, es...)
	l.version++
	subs := slices.Clone(l.subs)
	l.mu.Unlock()

	changes := make([]Change, len(es))
	for i, e := range es {
		changes[i] = Change{Kind: Appended, Index: start + i, New: e}
	}
	l.notify(subs, changes...)
}

// Replace swaps the entry at i, keeping its position.
func (l *List) Replace(i int, e Entry) error {
	l.mu.Lock()
	old, err := l.replaceLocked(i, e, true)
	subs := slices.Clone(l.subs)
	l.mu.Unlock()
	if err != nil {
		return err
	}
	l.notify(subs, Change{Kind: Replaced, Index: i, Old: old, New: e})
	return nil
}

// CompareAndReplace replaces the entry at i only if it still holds the same bytes as
// expected. It reports whether the replacement happened.
func (l *List) CompareAndReplace(i int, expected, e Entry) (bool, error) {
	l.mu.Lock()
	if i < 0 || i >= len(l.entries) {
		l.mu.Unlock()
		return false, fmt.Errorf("replace %d of %d: %w", i, len(l.entries), ErrIndexOutOfRange)
	}
	if !bytes.Equal(l.entries[i].Data, expected.Data) {
		l.mu.Unlock()
		return false, nil
	}
	old, _ := l.replaceLocked(i, e, true)
	subs := slices.Clone(l.subs)
	l.mu.Unlock()
	l.notify(subs, Change{Kind: Replaced, Index: i, Old: old, New: e})
	return true, nil
}

func (l *List) replaceLocked(i int, e Entry, record bool) (Entry, error) {
	if i < 0 || i >= len(l.entries) {
		return Entry{}, fmt.Errorf("replace %d of %d: %w", i, len(l.entries), ErrIndexOutOfRange)
	}
	old := l.entries[i]
	l.entries[i] = e
	l.version++
	if record && l.hist != nil {
		l.hist.Push(undo.Record[Entry]{Op: undo.OpReplace, Index: i, Before: old, After: e})
	}
	return old, nil
}

// Remove deletes the entry at i; later entries shift down by one.
func (l *List) Remove(i int) (Entry, error) {
	l.mu.Lock()
	old, err := l.removeLocked(i, true)
	subs := slices.Clone(l.subs)
	l.mu.Unlock()
	if err != nil {
		return Entry{}, err
	}
	l.notify(subs, Change{Kind: Removed, Index: i, Old: old})
	return old, nil
}

func (l *List) removeLocked(i int, record bool) (Entry, error) {
	if i < 0 || i >= len(l.entries) {
		return Entry{}, fmt.Errorf("remove %d of %d: %w", i, len(l.entries), ErrIndexOutOfRange)
	}
	old := l.entries[i]
	l.entries = slices.Delete(l.entries, i, i+1)
	l.version++
	if record && l.hist != nil {
		l.hist.Push(undo.Record[Entry]{Op: undo.OpRemove, Index: i, Before: old})
	}
	return old, nil
}

func (l *List) insertLocked(i int, e Entry) error {
	if i < 0 || i > len(l.entries) {
		return fmt.Errorf("insert %d of %d: %w", i, len(l.entries), ErrIndexOutOfRange)
	}
	l.entries = slices.Insert(l.entries, i, e)
	l.version++
	return nil
}

// Undo reverts the newest replace or remove. It reports false when there is nothing to undo.
func (l *List) Undo() (bool, error) {
	if l.hist == nil {
		return false, nil
	}
	l.mu.Lock()
	r, ok := l.hist.Undo()
	if !ok {
		l.mu.Unlock()
		return false, nil
	}
	var (
		c   Change
		err error
	)
	switch r.Op {
	case undo.OpReplace:
		c = Change{Kind: Replaced, Index: r.Index, Old: r.After, New: r.Before}
		_, err = l.replaceLocked(r.Index, r.Before, false)
	case undo.OpRemove:
		c = Change{Kind: Inserted, Index: r.Index, New: r.Before}
		err = l.insertLocked(r.Index, r.Before)
	}
	subs := slices.Clone(l.subs)
	l.mu.Unlock()
	if err != nil {
		return false, fmt.Errorf("undo %s: %w", r.Op, err)
	}
	l.notify(subs, c)
	return true, nil
}

// Redo re-applies the newest undone edit.
func (l *List) Redo() (bool, error) {
	if l.hist == nil {
		return false, nil
	}
	l.mu.Lock()
	r, ok := l.hist.Redo()
	if !ok {
		l.mu.Unlock()
		return false, nil
	}
	var (
		c   Change
		err error
	)
	switch r.Op {
	case undo.OpReplace:
		c = Change{Kind: Replaced, Index: r.Index, Old: r.Before, New: r.After}
		_, err = l.replaceLocked(r.Index, r.After, false)
	case undo.OpRemove:
		c = Change{Kind: Removed, Index: r.Index, Old: r.Before}
		_, err = l.removeLocked(r.Index, false)
	}
	subs := slices.Clone(l.subs)
	l.mu.Unlock()
	if err != nil {
		return false, fmt.Errorf("redo %s: %w", r.Op, err)
	}
	l.notify(subs, c)
	return true, nil
}
