// AngelaMos | 2026
// handler_test.go

package product

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/ascendlabs/ascend-api/internal/config"
	"github.com/ascendlabs/ascend-api/internal/core"
	"github.com/ascendlabs/ascend-api/internal/upload"
)

func (f *fakeRepo) GetFile(
	_ context.Context,
	productID, fileID string,
) (*File, error) {
	for _, file := range f.files[productID] {
		if file.ID == fileID {
			found := file
			return &found, nil
		}
	}
	return nil, fmt.Errorf("file %q: %w", fileID, core.ErrNotFound)
}

type fakeGate struct {
	err   error
	calls int
}

func (f *fakeGate) AuthorizeDownload(
	_ context.Context,
	_, _, _ string,
) error {
	f.calls++
	return f.err
}

type downloadFixture struct {
	router *chi.Mux
	repo   *fakeRepo
	gate   *fakeGate
}

// newDownloadFixture wires a published product with one stored file
// behind the public routes.
func newDownloadFixture(t *testing.T) *downloadFixture {
	t.Helper()

	dir := t.TempDir()
	logger := slog.New(slog.DiscardHandler)

	store, err := upload.NewStore(config.UploadsConfig{
		BaseDir:          dir,
		MaxFileSize:      1 << 20,
		MaxFilesPerBatch: 3,
	}, logger)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	repo := newFakeRepo()
	repo.products["prod-1"] = &Product{
		ID:        "prod-1",
		CreatorID: "creator-1",
		Slug:      "launch-course",
		Name:      "Launch Course",
		Published: true,
	}

	relPath := filepath.Join("products", "creator-1", "guide.txt")
	if err := os.MkdirAll(filepath.Join(dir, "products", "creator-1"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, relPath), []byte("module one\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	repo.files["prod-1"] = []File{{
		ID:           "file-1",
		ProductID:    "prod-1",
		OriginalName: "guide.txt",
		MimeType:     "text/plain",
		Path:         relPath,
	}}

	gate := &fakeGate{}
	h := NewHandler(NewService(repo, store, logger), gate)

	router := chi.NewRouter()
	h.RegisterRoutes(router, func(next http.Handler) http.Handler {
		return next
	})

	return &downloadFixture{router: router, repo: repo, gate: gate}
}

func (fx *downloadFixture) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)
	return w
}

func TestPublicDownload(t *testing.T) {
	fx := newDownloadFixture(t)

	w := fx.get("/digital-products/download/launch-course/file-1?email=buyer@example.com")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := w.Body.String(); got != "module one\n" {
		t.Errorf("body = %q", got)
	}
	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="guide.txt"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if fx.gate.calls != 1 {
		t.Errorf("gate calls = %d, want 1", fx.gate.calls)
	}
}

func TestPublicDownloadAccessErrors(t *testing.T) {
	tests := []struct {
		name       string
		gateErr    error
		wantStatus int
	}{
		{"no credentials", fmt.Errorf("access: %w", core.ErrUnauthorized), http.StatusUnauthorized},
		{"expired token", fmt.Errorf("token: %w", core.ErrTokenExpired), http.StatusUnauthorized},
		{"invalid token", fmt.Errorf("token: %w", core.ErrTokenInvalid), http.StatusUnauthorized},
		{"no purchase", fmt.Errorf("access: %w", core.ErrForbidden), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newDownloadFixture(t)
			fx.gate.err = tt.gateErr

			w := fx.get("/digital-products/download/launch-course/file-1?token=whatever")
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestPublicDownloadUnpublishedProduct(t *testing.T) {
	fx := newDownloadFixture(t)
	fx.repo.products["prod-1"].Published = false

	w := fx.get("/digital-products/download/launch-course/file-1?email=x@example.com")

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	// The gate never sees requests for products that are not public.
	if fx.gate.calls != 0 {
		t.Errorf("gate calls = %d, want 0", fx.gate.calls)
	}
}

func TestPublicDownloadUnknownFile(t *testing.T) {
	fx := newDownloadFixture(t)

	w := fx.get("/digital-products/download/launch-course/file-404?email=x@example.com")

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestGetPublicStorefront(t *testing.T) {
	fx := newDownloadFixture(t)

	w := fx.get("/digital-products/public/launch-course")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Slug  string          `json:"slug"`
			Files []json.RawMessage `json:"files"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if !resp.Success {
		t.Error("success = false")
	}
	if resp.Data.Slug != "launch-course" {
		t.Errorf("slug = %q", resp.Data.Slug)
	}
	if len(resp.Data.Files) != 1 {
		t.Errorf("files = %d, want 1", len(resp.Data.Files))
	}

	w = fx.get("/digital-products/public/no-such-product")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for unknown product", w.Code)
	}
}
