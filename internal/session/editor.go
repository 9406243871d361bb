/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"oshicropper/internal/crop"
)

// Editor returns a crop coordinator over the session list, reopened at the persisted
// selection. A persisted selection the list no longer holds is dropped.
func (h *Handle) Editor(opts ...crop.Option) *crop.Coordinator {
	c := crop.NewCoordinator(h.List, opts...)
	if s := h.Manifest.Selection; s != nil {
		if err := c.Open(s.Index, h.Manifest.Mode, s.Aspect); err == nil && s.Rect != nil {
			_ = c.SetRect(*s.Rect)
		}
	}
	return c
}

// Capture stores the coordinator's selection in the manifest; call Save to persist it.
func (h *Handle) Capture(c *crop.Coordinator) {
	st := c.Status()
	if st.State != crop.Editing {
		h.Manifest.Selection = nil
		return
	}
	h.Manifest.Selection = &Selection{Index: st.Index, Aspect: st.Aspect, Rect: st.Rect}
}
