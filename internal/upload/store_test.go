// AngelaMos | 2026
// store_test.go

package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ascendlabs/ascend-api/internal/config"
	"github.com/ascendlabs/ascend-api/internal/core"
)

func testStore(t *testing.T, maxFileSize int64) *Store {
	t.Helper()

	store, err := NewStore(config.UploadsConfig{
		BaseDir:          t.TempDir(),
		MaxFileSize:      maxFileSize,
		MaxFilesPerBatch: 5,
	}, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

// fileHeader builds a real multipart.FileHeader the way the HTTP stack
// would.
func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fw, err := w.CreateFormFile("files", name)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(32 << 20)
	if err != nil {
		t.Fatalf("ReadForm() error = %v", err)
	}
	t.Cleanup(func() { _ = form.RemoveAll() })

	return form.File["files"][0]
}

func TestSaveAndOpen(t *testing.T) {
	store := testStore(t, 1<<20)
	content := []byte("chapter one: start before you are ready\n")

	saved, err := store.Save("owner-1", fileHeader(t, "My Ebook (draft).txt", content))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if saved.OriginalName != "My Ebook (draft).txt" {
		t.Errorf("OriginalName = %q", saved.OriginalName)
	}
	if saved.FileType != "txt" {
		t.Errorf("FileType = %q, want txt", saved.FileType)
	}
	if saved.SizeBytes != int64(len(content)) {
		t.Errorf("SizeBytes = %d, want %d", saved.SizeBytes, len(content))
	}
	if !strings.HasPrefix(saved.MimeType, "text/") {
		t.Errorf("MimeType = %q, want text/*", saved.MimeType)
	}
	if strings.ContainsAny(saved.Filename, "() ") {
		t.Errorf("stored name %q not sanitized", saved.Filename)
	}
	if !strings.HasPrefix(saved.Path, filepath.Join("products", "owner-1")) {
		t.Errorf("Path = %q, want under products/owner-1", saved.Path)
	}

	f, info, err := store.Open(saved.Path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()

	if info.Size() != int64(len(content)) {
		t.Errorf("stored size = %d, want %d", info.Size(), len(content))
	}
	got, _ := io.ReadAll(f)
	if !bytes.Equal(got, content) {
		t.Error("stored content does not round-trip")
	}
}

func TestSaveRejections(t *testing.T) {
	store := testStore(t, 64)

	tests := []struct {
		name     string
		filename string
		content  []byte
	}{
		{"oversize", "big.txt", bytes.Repeat([]byte("x"), 65)},
		{"denied executable", "setup.exe", []byte("plain text, still no")},
		{"denied script", "install.sh", []byte("#!/bin/sh")},
		{"unsupported extension", "notes.xyz", []byte("hello")},
		{"no extension", "README", []byte("hello")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Save("owner-1", fileHeader(t, tt.filename, tt.content))
			if !errors.Is(err, core.ErrInvalidInput) {
				t.Errorf("Save(%q) error = %v, want ErrInvalidInput", tt.filename, err)
			}
		})
	}
}

func TestSaveUniqueNames(t *testing.T) {
	store := testStore(t, 1<<20)

	first, err := store.Save("owner-1", fileHeader(t, "guide.txt", []byte("v1")))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	second, err := store.Save("owner-1", fileHeader(t, "guide.txt", []byte("v2")))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if first.Filename == second.Filename {
		t.Errorf("same stored name %q for repeated upload", first.Filename)
	}
}

func TestOpenConfinesPath(t *testing.T) {
	store := testStore(t, 1<<20)

	// Plant a file outside the store's base directory.
	outside := filepath.Join(filepath.Dir(store.baseDir), "secret.txt")
	if err := os.WriteFile(outside, []byte("nope"), 0o600); err != nil {
		t.Fatalf("write outside file: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(outside) })

	for _, rel := range []string{
		"../secret.txt",
		"products/../../secret.txt",
		"/etc/passwd",
	} {
		if _, _, err := store.Open(rel); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("Open(%q) error = %v, want ErrNotFound", rel, err)
		}
	}
}

func TestPing(t *testing.T) {
	store := testStore(t, 1<<20)

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}

	// No probe artifacts left behind.
	entries, err := os.ReadDir(store.baseDir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("upload dir has %d leftover entries after Ping", len(entries))
	}
}

func TestPingMissingDir(t *testing.T) {
	store := testStore(t, 1<<20)

	if err := os.RemoveAll(store.baseDir); err != nil {
		t.Fatalf("RemoveAll() error = %v", err)
	}

	if err := store.Ping(context.Background()); err == nil {
		t.Error("Ping() = nil, want error for missing upload dir")
	}
}

func TestRemoveToleratesMissing(t *testing.T) {
	store := testStore(t, 1<<20)

	if err := store.Remove("products/owner-1/gone.txt"); err != nil {
		t.Errorf("Remove() of missing file error = %v", err)
	}
}

func TestCleanup(t *testing.T) {
	store := testStore(t, 1<<20)

	saved, err := store.Save("owner-1", fileHeader(t, "guide.txt", []byte("v1")))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	store.Cleanup([]SavedFile{*saved})

	if _, _, err := store.Open(saved.Path); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("file still present after Cleanup: %v", err)
	}
}

func TestHumanSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}

	for _, tt := range tests {
		if got := HumanSize(tt.size); got != tt.want {
			t.Errorf("HumanSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}
