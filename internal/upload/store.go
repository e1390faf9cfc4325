// AngelaMos | 2026
// store.go

package upload

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ascendlabs/ascend-api/internal/config"
	"github.com/ascendlabs/ascend-api/internal/core"
)

// Stored file metadata returned by Save, ready to persist alongside the
// owning product.
type SavedFile struct {
	Filename     string
	OriginalName string
	FileType     string
	SizeBytes    int64
	SizeLabel    string
	Path         string
	MimeType     string
}

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".epub": true,
	".zip":  true,
	".rar":  true,
	".7z":   true,
	".mp3":  true,
	".wav":  true,
	".mp4":  true,
	".mov":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".svg":  true,
	".psd":  true,
	".ai":   true,
	".fig":  true,
	".txt":  true,
	".md":   true,
	".csv":  true,
	".json": true,
	".xlsx": true,
	".docx": true,
	".pptx": true,
}

var allowedMimePrefixes = []string{
	"application/pdf",
	"application/epub",
	"application/zip",
	"application/x-zip",
	"application/x-rar",
	"application/x-7z",
	"application/octet-stream",
	"application/json",
	"application/vnd.openxmlformats",
	"audio/",
	"video/",
	"image/",
	"text/",
}

// Rejected regardless of what the MIME sniffer reports.
var deniedExtensions = map[string]bool{
	".exe": true,
	".bat": true,
	".cmd": true,
	".com": true,
	".msi": true,
	".scr": true,
	".sh":  true,
	".ps1": true,
	".dll": true,
	".so":  true,
	".app": true,
	".apk": true,
	".jar": true,
}

type Store struct {
	baseDir      string
	maxFileSize  int64
	maxBatchSize int
	logger       *slog.Logger
}

func NewStore(cfg config.UploadsConfig, logger *slog.Logger) (*Store, error) {
	baseDir, err := filepath.Abs(cfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	return &Store{
		baseDir:      baseDir,
		maxFileSize:  cfg.MaxFileSize,
		maxBatchSize: cfg.MaxFilesPerBatch,
		logger:       logger,
	}, nil
}

// Ping verifies the upload root still exists and is writable. Used by
// the readiness probe: a store that cannot write cannot serve uploads,
// and a missing directory cannot serve downloads either.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	probe, err := os.CreateTemp(s.baseDir, ".readyz-*")
	if err != nil {
		return fmt.Errorf("upload dir not writable: %w", err)
	}
	name := probe.Name()
	_ = probe.Close()

	return os.Remove(name)
}

// MaxBatchSize is the number of files accepted in a single upload request.
func (s *Store) MaxBatchSize() int {
	return s.maxBatchSize
}

// MaxFileSize is the per-file byte cap.
func (s *Store) MaxFileSize() int64 {
	return s.maxFileSize
}

// Save validates and writes one multipart file under
// products/<ownerID>/. Any failure after the file has been created
// removes the partial write.
func (s *Store) Save(
	ownerID string,
	header *multipart.FileHeader,
) (*SavedFile, error) {
	if header.Size > s.maxFileSize {
		return nil, fmt.Errorf(
			"file %q exceeds the %s limit: %w",
			header.Filename,
			HumanSize(s.maxFileSize),
			core.ErrInvalidInput,
		)
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if deniedExtensions[ext] {
		return nil, fmt.Errorf(
			"file type %q is not allowed: %w",
			ext,
			core.ErrInvalidInput,
		)
	}
	if !allowedExtensions[ext] {
		return nil, fmt.Errorf(
			"unsupported file type %q: %w",
			ext,
			core.ErrInvalidInput,
		)
	}

	src, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open uploaded file: %w", err)
	}
	defer src.Close()

	mimeType, err := sniffMime(src)
	if err != nil {
		return nil, err
	}
	if !mimeAllowed(mimeType) {
		return nil, fmt.Errorf(
			"unsupported content type %q: %w",
			mimeType,
			core.ErrInvalidInput,
		)
	}

	dir := filepath.Join(s.baseDir, "products", ownerID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create owner dir: %w", err)
	}

	storedName := storedFilename(header.Filename, ext)
	fullPath := filepath.Join(dir, storedName)

	written, err := writeFile(fullPath, src)
	if err != nil {
		return nil, err
	}

	// Post-write integrity check: a short write that slipped past
	// io.Copy means the artifact on disk is corrupt.
	info, err := os.Stat(fullPath)
	if err != nil || info.Size() != written {
		_ = os.Remove(fullPath)
		return nil, fmt.Errorf("file integrity check failed for %q", header.Filename)
	}

	relPath, err := filepath.Rel(s.baseDir, fullPath)
	if err != nil {
		_ = os.Remove(fullPath)
		return nil, fmt.Errorf("resolve stored path: %w", err)
	}

	return &SavedFile{
		Filename:     storedName,
		OriginalName: header.Filename,
		FileType:     strings.TrimPrefix(ext, "."),
		SizeBytes:    written,
		SizeLabel:    HumanSize(written),
		Path:         relPath,
		MimeType:     mimeType,
	}, nil
}

// Open returns a reader for a stored file. The path is confined to the
// store's base directory; anything escaping it is treated as not found.
func (s *Store) Open(relPath string) (*os.File, os.FileInfo, error) {
	fullPath := filepath.Join(s.baseDir, filepath.Clean("/"+relPath))
	if !strings.HasPrefix(fullPath, s.baseDir+string(os.PathSeparator)) {
		return nil, nil, fmt.Errorf("open stored file: %w", core.ErrNotFound)
	}

	f, err := os.Open(fullPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("open stored file: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open stored file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat stored file: %w", err)
	}

	return f, info, nil
}

// Remove deletes a stored file, tolerating an already-missing artifact.
func (s *Store) Remove(relPath string) error {
	fullPath := filepath.Join(s.baseDir, filepath.Clean("/"+relPath))
	if !strings.HasPrefix(fullPath, s.baseDir+string(os.PathSeparator)) {
		return nil
	}

	err := os.Remove(fullPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stored file: %w", err)
	}

	return nil
}

// Cleanup removes a batch of already-saved files after a later failure
// in the same request.
func (s *Store) Cleanup(files []SavedFile) {
	for _, f := range files {
		if err := s.Remove(f.Path); err != nil {
			s.logger.Warn("upload cleanup failed",
				slog.String("path", f.Path),
				slog.String("error", err.Error()),
			)
		}
	}
}

func sniffMime(src multipart.File) (string, error) {
	buf := make([]byte, 512)
	n, err := src.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read uploaded file: %w", err)
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind uploaded file: %w", err)
	}

	mimeType := http.DetectContentType(buf[:n])
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}

	return mimeType, nil
}

func mimeAllowed(mimeType string) bool {
	for _, prefix := range allowedMimePrefixes {
		if strings.HasPrefix(mimeType, prefix) {
			return true
		}
	}
	return false
}

func writeFile(fullPath string, src io.Reader) (int64, error) {
	dst, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create stored file: %w", err)
	}

	written, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(fullPath)
		return 0, fmt.Errorf("write stored file: %w", err)
	}

	return written, nil
}

// storedFilename sanitizes the original base name and appends a
// timestamp plus random suffix so concurrent uploads of the same file
// never collide.
func storedFilename(original, ext string) string {
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	sanitized := b.String()
	if len(sanitized) > 60 {
		sanitized = sanitized[:60]
	}
	if sanitized == "" {
		sanitized = "file"
	}

	suffix := make([]byte, 4)
	_, _ = rand.Read(suffix)

	return fmt.Sprintf(
		"%s_%d-%s%s",
		sanitized,
		time.Now().UnixNano(),
		hex.EncodeToString(suffix),
		ext,
	)
}

// HumanSize formats a byte count the way the dashboard displays it.
func HumanSize(size int64) string {
	const unit = 1024

	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
