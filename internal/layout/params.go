/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package layout

import (
	"strconv"
	"strings"
)

// Rendering parameter names. Print templates bind to these exact names.
const (
	ParamDiameter   = "diameter"
	ParamImageArea  = "image-area"
	ParamGap        = "gap"
	ParamPadding    = "padding"
	ParamSafeMargin = "safe-margin"
	ParamWidth      = "width"
	ParamHeight     = "height"
)

// Param is one named millimetre value handed to the presentation layer.
type Param struct {
	Name string
	MM   float64
}

// Value renders the value with its unit, e.g. "80mm".
func (p Param) Value() string { return strconv.FormatFloat(p.MM, 'f', -1, 64) + "mm" }

// Params is an ordered parameter set.
type Params []Param

// Params returns the badge rendering parameters.
func (b BadgeSettings) Params() Params {
	return Params{
		{ParamDiameter, b.Diameter},
		{ParamImageArea, b.ImageArea},
		{ParamGap, b.Gap},
		{ParamPadding, b.Padding},
		{ParamSafeMargin, b.SafeMargin},
	}
}

// Params returns the photo rendering parameters.
func (p PhotoSettings) Params() Params {
	item := p.Item()
	return Params{
		{ParamWidth, item.Width},
		{ParamHeight, item.Height},
		{ParamGap, p.Gap},
		{ParamPadding, p.Padding},
	}
}

// Params returns the parameters of the given mode.
func (s Settings) Params(m Mode) Params {
	if m == ModePhoto {
		return s.Photo.Params()
	}
	return s.Badge.Params()
}

// Lookup returns the value of a named parameter.
func (ps Params) Lookup(name string) (float64, bool) {
	for _, p := range ps {
		if p.Name == name {
			return p.MM, true
		}
	}
	return 0, false
}

// CSS renders the set as custom property declarations: "--diameter: 80mm; --gap: 2mm".
func (ps Params) CSS() string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = "--" + p.Name + ": " + p.Value()
	}
	return strings.Join(parts, "; ")
}

// ControlGroup identifies a block of the rendered page.
type ControlGroup string

const (
	GroupSettings       ControlGroup = "settings"
	GroupTabs           ControlGroup = "tabs"
	GroupFileUpload     ControlGroup = "file-upload"
	GroupPrintButton    ControlGroup = "print-button"
	GroupFooter         ControlGroup = "footer"
	GroupPages          ControlGroup = "pages"
	GroupCutGuide       ControlGroup = "cut-guide"
	GroupImageAreaGuide ControlGroup = "image-area-guide"
)

var printVisible = map[ControlGroup]bool{
	GroupPages:    true,
	GroupCutGuide: true,
}

// PrintVisible reports whether a control group is rendered when printing.
// Interactive controls and the image-area guide are screen-only.
func PrintVisible(g ControlGroup) bool { return printVisible[g] }

// ControlGroups lists every known group.
func ControlGroups() []ControlGroup {
	return []ControlGroup{GroupSettings, GroupTabs, GroupFileUpload, GroupPrintButton, GroupFooter, GroupPages, GroupCutGuide, GroupImageAreaGuide}
}
