package crash

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"oshicropper/internal/layout"
	"oshicropper/internal/session"
)

func TestWriteReportCreatesFileInTemp(t *testing.T) {
	path, err := writeReport(nil, "boom", []byte("stacktrace"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	defer os.Remove(path)
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "oshicropper crash report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") {
		t.Fatalf("panic content missing: %s", s)
	}
	if !strings.Contains(s, "ID: ") {
		t.Fatalf("report id missing: %s", s)
	}
}

func TestWriteReportCreatesFileInSessionBackups(t *testing.T) {
	root := t.TempDir()
	h, err := session.Init(root, layout.ModeBadge)
	if err != nil {
		t.Fatalf("init session: %v", err)
	}

	path, err := writeReport(h, "kaboom", []byte("stack"))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if !strings.HasPrefix(path, filepath.Join(root, session.BackupsDirName)) {
		t.Fatalf("expected crash report under backups dir, got %s", path)
	}
	b, _ := os.ReadFile(path)
	if !strings.Contains(string(b), h.Manifest.ID) {
		t.Fatalf("report should name the session id")
	}
	// reports must not be mistaken for manifest backups
	backups, err := session.Backups(root)
	if err != nil {
		t.Fatalf("Backups: %v", err)
	}
	for _, p := range backups {
		if p == path {
			t.Fatalf("crash report listed as manifest backup")
		}
	}
}
