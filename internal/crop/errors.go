/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package crop

import "errors"

var (
	// ErrCropFailed wraps every failure of Apply. The image list is left untouched.
	ErrCropFailed = errors.New("crop failed")
	// ErrDecode means the source bytes could not be decoded.
	ErrDecode = errors.New("cannot decode image")
	// ErrDegenerateRect means the rectangle has no area inside the source.
	ErrDegenerateRect = errors.New("degenerate crop rectangle")

	ErrNoSelection    = errors.New("no image selected")
	ErrAlreadyEditing = errors.New("another image is being edited")
	ErrBusy           = errors.New("crop already in progress")
	ErrNoCrop         = errors.New("no crop rectangle")
	ErrDiscarded      = errors.New("crop result discarded: selection changed")
	ErrPhotoOnly      = errors.New("only available in photo mode")
)
