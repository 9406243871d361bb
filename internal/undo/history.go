/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo keeps a bounded, linear edit history.
package undo

import (
	"sync"
	"time"
)

// Op is the kind of edit a Record reverts.
type Op int

const (
	OpReplace Op = iota + 1
	OpRemove
)

func (o Op) String() string {
	switch o {
	case OpReplace:
		return "replace"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Record describes one edit at a list position. Before is the value that was there,
// After the value that replaced it (zero for removals).
type Record[T any] struct {
	Op     Op
	Index  int
	Before T
	After  T
	TS     time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; the oldest records are pruned when exceeded.
	MaxBytes int
	// MaxDepth limits the number of undoable records (0 means unlimited).
	MaxDepth int
	// MinInterval coalesces consecutive replaces of the same index pushed within the
	// interval: the older Before is kept, the newer After wins. Zero disables coalescing.
	MinInterval time.Duration
}

// History is an undo/redo stack of edits. It is safe for concurrent use.
type History[T any] struct {
	cfg  Config
	size func(T) int
	mu   sync.Mutex
	undo []Record[T]
	redo []Record[T]
	// accounting covers the undo stack only
	totalBytes int
}

// New creates a history; size estimates the memory held by one value.
func New[T any](cfg Config, size func(T) int) *History[T] {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 64 * 1024 * 1024 // 64 MiB
	}
	if size == nil {
		size = func(T) int { return 0 }
	}
	return &History[T]{cfg: cfg, size: size}
}

func (h *History[T]) cost(r Record[T]) int { return h.size(r.Before) + h.size(r.After) }

// Push records an edit and clears the redo stack.
func (h *History[T]) Push(r Record[T]) {
	if r.TS.IsZero() {
		r.TS = time.Now()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.redo = nil
	if n := len(h.undo); n > 0 && h.cfg.MinInterval > 0 && r.Op == OpReplace {
		last := h.undo[n-1]
		if last.Op == OpReplace && last.Index == r.Index && r.TS.Sub(last.TS) < h.cfg.MinInterval {
			h.totalBytes -= h.cost(last)
			last.After, last.TS = r.After, r.TS
			h.undo[n-1] = last
			h.totalBytes += h.cost(last)
			h.enforceCapsLocked()
			return
		}
	}
	h.undo = append(h.undo, r)
	h.totalBytes += h.cost(r)
	h.enforceCapsLocked()
}

// Undo pops the newest edit and moves it to the redo stack.
func (h *History[T]) Undo() (Record[T], bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.undo) == 0 {
		return Record[T]{}, false
	}
	r := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.totalBytes -= h.cost(r)
	h.redo = append(h.redo, r)
	return r, true
}

// Redo pops the newest undone edit and moves it back to the undo stack.
func (h *History[T]) Redo() (Record[T], bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.redo) == 0 {
		return Record[T]{}, false
	}
	r := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = append(h.undo, r)
	h.totalBytes += h.cost(r)
	h.enforceCapsLocked()
	return r, true
}

// Clear drops both stacks.
func (h *History[T]) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.undo, h.redo, h.totalBytes = nil, nil, 0
}

// Stats returns current sizes for diagnostics.
func (h *History[T]) Stats() (totalBytes, undoDepth, redoDepth int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.totalBytes, len(h.undo), len(h.redo)
}

func (h *History[T]) enforceCapsLocked() {
	if h.cfg.MaxDepth > 0 && len(h.undo) > h.cfg.MaxDepth {
		drop := len(h.undo) - h.cfg.MaxDepth
		for _, r := range h.undo[:drop] {
			h.totalBytes -= h.cost(r)
		}
		h.undo = append([]Record[T]{}, h.undo[drop:]...)
	}
	// keep at least the newest record so the last edit stays undoable
	for h.totalBytes > h.cfg.MaxBytes && len(h.undo) > 1 {
		h.totalBytes -= h.cost(h.undo[0])
		h.undo = h.undo[1:]
	}
	if h.totalBytes < 0 {
		h.totalBytes = 0
	}
}
