/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package paper holds the catalogue of named physical paper sizes, in millimetres.
package paper

import (
	"fmt"
	"strings"
)

// Name identifies a paper size. Names are lower case; lookups are case-insensitive.
type Name string

const (
	A4       Name = "a4"
	L        Name = "l"
	TwoL     Name = "2l"
	Postcard Name = "postcard"
	A6       Name = "a6"
	B6       Name = "b6"
)

// Default is the paper size photo mode starts with.
const Default = L

// Size is a physical width/height pair in millimetres.
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Aspect returns width/height, or 0 for a degenerate size.
func (s Size) Aspect() float64 {
	if s.Width <= 0 || s.Height <= 0 {
		return 0
	}
	return s.Width / s.Height
}

// Rotated swaps width and height.
func (s Size) Rotated() Size { return Size{Width: s.Height, Height: s.Width} }

func (s Size) String() string { return fmt.Sprintf("%gx%gmm", s.Width, s.Height) }

// catalogue order is the display order.
var catalogue = []struct {
	name Name
	size Size
}{
	{A4, Size{Width: 210, Height: 297}},
	{L, Size{Width: 127, Height: 89}},
	{TwoL, Size{Width: 178, Height: 127}},
	{Postcard, Size{Width: 148, Height: 100}},
	{A6, Size{Width: 148, Height: 105}},
	{B6, Size{Width: 182, Height: 128}},
}

// Names returns all known paper names in display order.
func Names() []Name {
	out := make([]Name, len(catalogue))
	for i, c := range catalogue {
		out[i] = c.name
	}
	return out
}

// Lookup resolves a paper name case-insensitively.
func Lookup(name string) (Size, bool) {
	n := Name(strings.ToLower(strings.TrimSpace(name)))
	for _, c := range catalogue {
		if c.name == n {
			return c.size, true
		}
	}
	return Size{}, false
}

// MustLookup is Lookup for names known at compile time.
func MustLookup(n Name) Size {
	s, ok := Lookup(string(n))
	if !ok {
		panic(fmt.Sprintf("paper: unknown size %q", n))
	}
	return s
}

// Parse validates a user-supplied paper name.
func Parse(name string) (Name, error) {
	if _, ok := Lookup(name); !ok {
		return "", fmt.Errorf("unknown paper size %q (known: %s)", name, strings.Join(labels(), ", "))
	}
	return Name(strings.ToLower(strings.TrimSpace(name))), nil
}

// Label is the display form of a name, e.g. "2L".
func (n Name) Label() string { return strings.ToUpper(string(n)) }

func labels() []string {
	out := make([]string, 0, len(catalogue))
	for _, c := range catalogue {
		out = append(out, string(c.name))
	}
	return out
}
