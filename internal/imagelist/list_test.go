/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package imagelist

import (
	"errors"
	"testing"

	"oshicropper/internal/undo"
)

func names(es []Entry) string {
	s := ""
	for _, e := range es {
		s += e.Name
	}
	return s
}

func abc() []Entry {
	return []Entry{
		{Name: "A", Data: []byte("a")},
		{Name: "B", Data: []byte("b")},
		{Name: "C", Data: []byte("c")},
	}
}

func TestRemoveKeepsRelativeOrder(t *testing.T) {
	for i := 0; i < 3; i++ {
		l := New(abc())
		removed, err := l.Remove(i)
		if err != nil {
			t.Fatalf("Remove(%d): %v", i, err)
		}
		if l.Len() != 2 {
			t.Fatalf("expected 2 entries, got %d", l.Len())
		}
		want := map[int]string{0: "BC", 1: "AC", 2: "AB"}[i]
		if got := names(l.Entries()); got != want {
			t.Fatalf("Remove(%d) left %q, want %q", i, got, want)
		}
		if removed.Name != string("ABC"[i]) {
			t.Fatalf("Remove(%d) returned %q", i, removed.Name)
		}
	}
}

func TestOutOfRange(t *testing.T) {
	l := New(abc())
	if _, err := l.Remove(3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := l.Replace(-1, Entry{}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if _, ok := l.At(3); ok {
		t.Fatalf("At(3) should fail")
	}
	if names(l.Entries()) != "ABC" {
		t.Fatalf("failed mutation changed the list")
	}
}

func TestReplaceKeepsPosition(t *testing.T) {
	l := New(abc())
	v := l.Version()
	if err := l.Replace(1, Entry{Name: "X"}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if got := names(l.Entries()); got != "AXC" {
		t.Fatalf("got %q", got)
	}
	if l.Version() == v {
		t.Fatalf("version not bumped")
	}
}

func TestCompareAndReplace(t *testing.T) {
	l := New(abc())
	a, _ := l.At(0)
	b, _ := l.At(1)
	ok, err := l.CompareAndReplace(0, b, Entry{Name: "X"})
	if err != nil || ok {
		t.Fatalf("mismatched expectation must not replace: ok=%v err=%v", ok, err)
	}
	ok, err = l.CompareAndReplace(0, a, Entry{Name: "X"})
	if err != nil || !ok {
		t.Fatalf("expected replacement: ok=%v err=%v", ok, err)
	}
	if _, err := l.CompareAndReplace(9, a, Entry{}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
}

func TestEntriesIsSnapshot(t *testing.T) {
	src := abc()
	l := New(src)
	src[0].Name = "Z"
	es := l.Entries()
	es[1].Name = "Y"
	if got := names(l.Entries()); got != "ABC" {
		t.Fatalf("list aliased caller slices: %q", got)
	}
}

func TestSubscribeReceivesChanges(t *testing.T) {
	l := New(nil)
	var got []Change
	l.Subscribe(func(c Change) { got = append(got, c) })
	l.Append(abc()...)
	_ = l.Replace(0, Entry{Name: "X"})
	_, _ = l.Remove(2)
	if len(got) != 5 {
		t.Fatalf("expected 5 changes, got %d", len(got))
	}
	if got[3].Kind != Replaced || got[3].Old.Name != "A" || got[3].New.Name != "X" {
		t.Fatalf("unexpected replace change %+v", got[3])
	}
	if got[4].Kind != Removed || got[4].Index != 2 || got[4].Old.Name != "C" {
		t.Fatalf("unexpected remove change %+v", got[4])
	}
}

func TestUndoRedo(t *testing.T) {
	l := New(abc(), WithHistory(undo.Config{MaxDepth: 10}))
	_ = l.Replace(1, Entry{Name: "X", Data: []byte("x")})
	_, _ = l.Remove(0)
	if got := names(l.Entries()); got != "XC" {
		t.Fatalf("got %q", got)
	}
	if ok, err := l.Undo(); !ok || err != nil {
		t.Fatalf("undo remove: ok=%v err=%v", ok, err)
	}
	if got := names(l.Entries()); got != "AXC" {
		t.Fatalf("after undo remove got %q", got)
	}
	if ok, _ := l.Undo(); !ok {
		t.Fatalf("undo replace failed")
	}
	if got := names(l.Entries()); got != "ABC" {
		t.Fatalf("after undo replace got %q", got)
	}
	if ok, _ := l.Undo(); ok {
		t.Fatalf("nothing left to undo")
	}
	if ok, _ := l.Redo(); !ok {
		t.Fatalf("redo failed")
	}
	if ok, _ := l.Redo(); !ok {
		t.Fatalf("redo failed")
	}
	if got := names(l.Entries()); got != "XC" {
		t.Fatalf("after redo got %q", got)
	}
}

func TestUndoWithoutHistory(t *testing.T) {
	l := New(abc())
	_, _ = l.Remove(0)
	if ok, err := l.Undo(); ok || err != nil {
		t.Fatalf("list without history must not undo: ok=%v err=%v", ok, err)
	}
}
