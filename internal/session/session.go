/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session persists a working session in a directory:
//
//	session.json           manifest: mode, layout settings, ordered image refs, open editor
//	images/<sha256>.<ext>  content-addressed image bytes
//	backups/               timestamped copies of previous manifests
//
// Saves are transactional (temp file + rename) and back up the manifest they replace.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"oshicropper/internal/crop"
	"oshicropper/internal/imagelist"
	"oshicropper/internal/layout"
	applog "oshicropper/internal/log"
	"oshicropper/internal/undo"
)

const (
	ManifestFileName = "session.json"
	ImagesDirName    = "images"
	BackupsDirName   = "backups"
	// MaxBackups is how many manifest backups Save keeps.
	MaxBackups = 20
	// ManifestVersion is the manifest format written by this build.
	ManifestVersion = 1
)

// ErrInvalidManifest is returned when a manifest fails schema validation or references missing images.
var ErrInvalidManifest = errors.New("invalid session manifest")

// Manifest is the on-disk description of a session.
type Manifest struct {
	Version   int             `json:"version"`
	ID        string          `json:"id"`
	Created   time.Time       `json:"created"`
	Updated   time.Time       `json:"updated"`
	Mode      layout.Mode     `json:"mode"`
	Settings  layout.Settings `json:"settings"`
	Images    []ImageRef      `json:"images"`
	Selection *Selection      `json:"selection,omitempty"`
}

// ImageRef points at one stored image.
type ImageRef struct {
	Name   string `json:"name"`
	MIME   string `json:"mime"`
	SHA256 string `json:"sha256"`
	Bytes  int64  `json:"bytes"`
}

// Selection is the editor state carried between invocations.
type Selection struct {
	Index  int        `json:"index"`
	Aspect float64    `json:"aspect"`
	Rect   *crop.Rect `json:"rect,omitempty"`
}

// Handle is an open session.
type Handle struct {
	Root         string
	ManifestPath string
	Manifest     Manifest
	List         *imagelist.List
}

// HistoryConfig bounds the in-memory undo history of opened sessions.
var HistoryConfig = undo.Config{MaxBytes: 256 * 1024 * 1024, MaxDepth: 50}

// Init creates a new, empty session at root.
func Init(root string, mode layout.Mode) (*Handle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if _, err := os.Stat(filepath.Join(root, ManifestFileName)); err == nil {
		return nil, fmt.Errorf("session already exists at %s", root)
	}
	for _, d := range []string{root, filepath.Join(root, ImagesDirName), filepath.Join(root, BackupsDirName)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", d, err)
		}
	}
	now := time.Now().UTC()
	h := &Handle{
		Root:         root,
		ManifestPath: filepath.Join(root, ManifestFileName),
		Manifest: Manifest{
			Version:  ManifestVersion,
			ID:       uuid.NewString(),
			Created:  now,
			Updated:  now,
			Mode:     mode,
			Settings: layout.Defaults(),
			Images:   []ImageRef{},
		},
		List: imagelist.New(nil, imagelist.WithHistory(HistoryConfig)),
	}
	if err := Save(h); err != nil {
		return nil, err
	}
	applog.WithComponent("session").Info("session created", "root", root, "id", h.Manifest.ID, "mode", mode)
	return h, nil
}

// Open loads the session at root. A missing or invalid manifest falls back to the latest backup.
func Open(root string) (*Handle, error) {
	mpath := filepath.Join(root, ManifestFileName)
	m, err := readManifest(mpath)
	if err != nil {
		bm, berr := latestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("open manifest: %w; backup attempt: %v", err, berr)
		}
		applog.WithComponent("session").Warn("manifest unreadable, opened latest backup", "root", root, "err", err)
		m = bm
	}
	h := &Handle{Root: root, ManifestPath: mpath, Manifest: *m}
	entries, err := h.loadImages(m.Images)
	if err != nil {
		return nil, err
	}
	h.List = imagelist.New(entries, imagelist.WithHistory(HistoryConfig))
	return h, nil
}

// Restore replaces the current manifest with the latest backup and returns the reopened session.
// The replaced manifest is itself backed up, so a restore can be undone by restoring again.
func Restore(root string) (*Handle, error) {
	m, err := latestBackup(root)
	if err != nil {
		return nil, err
	}
	h := &Handle{Root: root, ManifestPath: filepath.Join(root, ManifestFileName), Manifest: *m}
	entries, err := h.loadImages(m.Images)
	if err != nil {
		return nil, err
	}
	h.List = imagelist.New(entries, imagelist.WithHistory(HistoryConfig))
	if err := saveManifest(h, false); err != nil {
		return nil, err
	}
	applog.WithComponent("session").Info("session restored from backup", "root", root, "images", len(entries))
	return h, nil
}

// Save stores new image bytes and writes the manifest from the current list.
func Save(h *Handle) error {
	if h == nil {
		return errors.New("nil session handle")
	}
	if h.Root == "" || h.ManifestPath == "" {
		return errors.New("invalid session handle: missing paths")
	}
	if h.List != nil {
		refs, err := h.storeImages(h.List.Entries())
		if err != nil {
			return err
		}
		h.Manifest.Images = refs
	}
	if h.Manifest.Images == nil {
		h.Manifest.Images = []ImageRef{}
	}
	return saveManifest(h, true)
}

func saveManifest(h *Handle, touch bool) error {
	if touch {
		h.Manifest.Updated = time.Now().UTC()
	}
	data, err := json.MarshalIndent(h.Manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')
	if err := Validate(data); err != nil {
		return err
	}

	bdir := filepath.Join(h.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(h.ManifestPath); statErr == nil {
		stamp := time.Now().UTC().Format("20060102-150405.000000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", ManifestFileName, stamp))
		if cerr := copyFile(h.ManifestPath, bpath); cerr != nil {
			return fmt.Errorf("backup current manifest: %w", cerr)
		}
	}

	temp := filepath.Join(h.Root, fmt.Sprintf(".%s.tmp-%d-%d", ManifestFileName, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp manifest: %w", werr)
	}
	if rerr := os.Rename(temp, h.ManifestPath); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace manifest: %w", rerr)
	}
	if err := pruneBackups(h.Root, MaxBackups); err != nil {
		applog.WithComponent("session").Warn("prune backups failed", "err", err)
	}
	if err := collectGarbage(h.Root); err != nil {
		applog.WithComponent("session").Warn("image cleanup failed", "err", err)
	}
	return nil
}

// ImagePath returns where the bytes of ref are stored.
func (h *Handle) ImagePath(ref ImageRef) string {
	return filepath.Join(h.Root, ImagesDirName, blobName(ref.SHA256, ref.MIME))
}

func blobName(sha, mime string) string {
	return sha + imagelist.Entry{MIME: mime}.Ext()
}

func (h *Handle) storeImages(entries []imagelist.Entry) ([]ImageRef, error) {
	if err := os.MkdirAll(filepath.Join(h.Root, ImagesDirName), 0o755); err != nil {
		return nil, fmt.Errorf("ensure images dir: %w", err)
	}
	refs := make([]ImageRef, 0, len(entries))
	for _, e := range entries {
		ref := ImageRef{Name: e.Name, MIME: e.MIME, SHA256: e.Digest(), Bytes: int64(e.Size())}
		p := h.ImagePath(ref)
		if _, err := os.Stat(p); err != nil {
			if err := writeFileSync(p, e.Data); err != nil {
				return nil, fmt.Errorf("store %s: %w", e.Name, err)
			}
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (h *Handle) loadImages(refs []ImageRef) ([]imagelist.Entry, error) {
	out := make([]imagelist.Entry, 0, len(refs))
	for i, ref := range refs {
		data, err := os.ReadFile(h.ImagePath(ref))
		if err != nil {
			return nil, fmt.Errorf("%w: image %d (%s): %v", ErrInvalidManifest, i, ref.Name, err)
		}
		e := imagelist.Entry{Name: ref.Name, MIME: ref.MIME, Data: data}
		if e.Digest() != ref.SHA256 {
			return nil, fmt.Errorf("%w: image %d (%s): checksum mismatch", ErrInvalidManifest, i, ref.Name)
		}
		out = append(out, e)
	}
	return out, nil
}

func readManifest(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := Validate(b); err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if m.Version > ManifestVersion {
		return nil, fmt.Errorf("%w: version %d is newer than supported %d", ErrInvalidManifest, m.Version, ManifestVersion)
	}
	return &m, nil
}

func backupFiles(root string) ([]string, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ManifestFileName+".") && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	// timestamp in name yields lexicographic order
	slices.Sort(out)
	return out, nil
}

// Backups lists backup manifests, oldest first.
func Backups(root string) ([]string, error) { return backupFiles(root) }

func latestBackup(root string) (*Manifest, error) {
	files, err := backupFiles(root)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.New("no backups found")
	}
	var lastErr error
	for i := len(files) - 1; i >= 0; i-- {
		m, err := readManifest(files[i])
		if err == nil {
			return m, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no readable backup: %w", lastErr)
}

func pruneBackups(root string, keep int) error {
	files, err := backupFiles(root)
	if err != nil || len(files) <= keep {
		return err
	}
	var errs []error
	for _, f := range files[:len(files)-keep] {
		if err := os.Remove(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// collectGarbage removes image blobs referenced neither by the manifest nor by any kept backup.
func collectGarbage(root string) error {
	live := map[string]bool{}
	manifests, err := backupFiles(root)
	if err != nil {
		return err
	}
	manifests = append(manifests, filepath.Join(root, ManifestFileName))
	for _, p := range manifests {
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var m Manifest
		if json.Unmarshal(b, &m) != nil {
			// unknown references; keep everything rather than guess
			return nil
		}
		for _, r := range m.Images {
			live[blobName(r.SHA256, r.MIME)] = true
		}
	}
	dir := filepath.Join(root, ImagesDirName)
	ents, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var errs []error
	for _, e := range ents {
		if e.IsDir() || live[e.Name()] {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
