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

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"oshicropper/internal/imagelist"
)

// encodable maps entry formats to the encoders imaging ships with.
var encodable = map[string]imaging.Format{
	"jpeg": imaging.JPEG,
	"png":  imaging.PNG,
	"gif":  imaging.GIF,
	"tiff": imaging.TIFF,
	"bmp":  imaging.BMP,
}

// Decode decodes an entry, honouring EXIF orientation.
func Decode(e imagelist.Entry) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(e.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %v", ErrCropFailed, ErrDecode, err)
	}
	return img, nil
}

// Apply cuts r out of src and re-encodes it. The result keeps the source format when
// it can be written, PNG otherwise. src is never modified.
func Apply(ctx context.Context, src imagelist.Entry, r Rect) (imagelist.Entry, error) {
	if err := ctx.Err(); err != nil {
		return imagelist.Entry{}, err
	}
	img, err := Decode(src)
	if err != nil {
		return imagelist.Entry{}, err
	}
	area, err := r.Clip(img.Bounds())
	if err != nil {
		return imagelist.Entry{}, fmt.Errorf("%w: %w", ErrCropFailed, err)
	}
	out := imaging.Crop(img, area)
	if err := ctx.Err(); err != nil {
		return imagelist.Entry{}, err
	}

	mime := src.MIME
	format, ok := encodable[src.Format()]
	if !ok {
		format, mime = imaging.PNG, "image/png"
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, format, imaging.JPEGQuality(92)); err != nil {
		return imagelist.Entry{}, fmt.Errorf("%w: encode %s: %v", ErrCropFailed, format, err)
	}
	res := imagelist.Entry{MIME: mime, Data: buf.Bytes()}
	res.Name = src.Base() + res.Ext()
	return res, nil
}
