/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"oshicropper/internal/imagelist"
	applog "oshicropper/internal/log"
)

// BundleIndexName is the listing stored next to the images in a bundle.
const BundleIndexName = "index.json"

// BundleItem describes one image inside a bundle.
type BundleItem struct {
	File   string `json:"file"`
	Name   string `json:"name"`
	MIME   string `json:"mime"`
	SHA256 string `json:"sha256"`
	Bytes  int    `json:"bytes"`
}

// ExportBundle packages the entries, in list order, into a ZIP archive at outPath.
// Files are named <n>-<name> with n zero padded to the list length.
func ExportBundle(ctx context.Context, entries []imagelist.Entry, outPath string) error {
	if len(entries) == 0 {
		return fmt.Errorf("bundle: %w", ErrNothingToExport)
	}
	if !strings.HasSuffix(strings.ToLower(outPath), ".zip") {
		outPath += ".zip"
	}
	zw, f, err := createZip(outPath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	pad := len(fmt.Sprint(len(entries)))
	index := make([]BundleItem, 0, len(entries))
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := fmt.Sprintf("%0*d-%s", pad, i+1, e.Base()+e.Ext())
		if err := addZipFile(zw, name, e.Data); err != nil {
			return fmt.Errorf("zip add image: %w", err)
		}
		index = append(index, BundleItem{File: name, Name: e.Name, MIME: e.MIME, SHA256: e.Digest(), Bytes: e.Size()})
	}
	manifest, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := addZipFile(zw, BundleIndexName, manifest); err != nil {
		return fmt.Errorf("zip add index: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	applog.WithComponent("export").Info("bundle written", "path", outPath, "images", len(entries))
	return nil
}

func createZip(outPath string) (*zip.Writer, *os.File, error) {
	dir := filepath.Dir(outPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return nil, nil, fmt.Errorf("create zip: %w", err)
	}
	return zip.NewWriter(f), f, nil
}

func addZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
