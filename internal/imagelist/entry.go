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
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrNotImage is returned for input that does not decode as a supported image.
var ErrNotImage = errors.New("not an image")

// Entry is one user-supplied image. It has no identity beyond its list position;
// Name only seeds derived filenames.
type Entry struct {
	Name string
	MIME string
	Data []byte
}

// Size is the number of bytes held by the entry.
func (e Entry) Size() int { return len(e.Data) }

// Digest is the hex sha256 of the image bytes.
func (e Entry) Digest() string {
	sum := sha256.Sum256(e.Data)
	return hex.EncodeToString(sum[:])
}

// Format is the short image format derived from MIME, e.g. "png".
func (e Entry) Format() string {
	f := strings.TrimPrefix(e.MIME, "image/")
	switch f {
	case "x-ms-bmp":
		return "bmp"
	case "jpg":
		return "jpeg"
	}
	return f
}

// Ext is the file extension for the entry's format, with the leading dot.
func (e Entry) Ext() string {
	switch f := e.Format(); f {
	case "jpeg":
		return ".jpg"
	case "":
		return ".bin"
	default:
		return "." + f
	}
}

// Base is Name without its extension.
func (e Entry) Base() string {
	n := filepath.Base(e.Name)
	if n == "." || n == string(filepath.Separator) || n == "" {
		return "image"
	}
	return strings.TrimSuffix(n, filepath.Ext(n))
}

// MIMEFor maps a decoder format name to its MIME type.
func MIMEFor(format string) string {
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		return "image/jpeg"
	case "":
		return "application/octet-stream"
	default:
		return "image/" + strings.ToLower(format)
	}
}

// FromBytes validates data as an image and wraps it in an Entry.
func FromBytes(name string, data []byte) (Entry, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Entry{}, fmt.Errorf("%s: %w: %v", name, ErrNotImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Entry{}, fmt.Errorf("%s: %w: empty bounds", name, ErrNotImage)
	}
	return Entry{Name: filepath.Base(name), MIME: MIMEFor(format), Data: data}, nil
}

// FromFile reads and validates an image file.
func FromFile(path string) (Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, err
	}
	return FromBytes(path, data)
}

// LoadFiles validates every path independently. Valid entries are returned in
// argument order; rejected paths are reported through the joined error.
func LoadFiles(paths ...string) ([]Entry, error) {
	var (
		out  []Entry
		errs []error
	)
	for _, p := range paths {
		e, err := FromFile(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, e)
	}
	return out, errors.Join(errs...)
}
