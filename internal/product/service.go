// AngelaMos | 2026
// service.go

package product

import (
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/ascendlabs/ascend-api/internal/core"
	"github.com/ascendlabs/ascend-api/internal/upload"
)

// maxSlugAttempts bounds the suffix search when a name collides with
// many existing slugs.
const maxSlugAttempts = 50

type Service struct {
	repo   Repository
	store  *upload.Store
	logger *slog.Logger
}

func NewService(
	repo Repository,
	store *upload.Store,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:   repo,
		store:  store,
		logger: logger,
	}
}

func (s *Service) Create(
	ctx context.Context,
	creatorID string,
	req CreateProductRequest,
) (*Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("product name is required: %w", core.ErrInvalidInput)
	}

	category := req.Category
	if category == "" {
		category = CategoryOther
	}
	if !ValidCategory(category) {
		return nil, fmt.Errorf(
			"unknown category %q: %w",
			category,
			core.ErrInvalidInput,
		)
	}

	productType := req.Type
	if productType == "" {
		productType = TypeDigital
	}

	slug, err := s.uniqueSlug(ctx, name)
	if err != nil {
		return nil, err
	}

	p := &Product{
		ID:          uuid.New().String(),
		CreatorID:   creatorID,
		Slug:        slug,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Category:    category,
		Type:        productType,
		Price:       *req.Price,
		Published:   false,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("product created",
		slog.String("product_id", p.ID),
		slog.String("creator_id", creatorID),
		slog.String("slug", p.Slug),
	)

	return p, nil
}

func (s *Service) Get(ctx context.Context, id, creatorID string) (*Product, error) {
	return s.repo.GetByID(ctx, id, creatorID)
}

// GetPublic resolves a published product by ID or slug and counts the
// view. View counting is best effort: a failed increment never blocks
// the read.
func (s *Service) GetPublic(
	ctx context.Context,
	identifier string,
) (*Product, []File, error) {
	p, err := s.repo.GetPublicByIdentifier(ctx, identifier)
	if err != nil {
		return nil, nil, err
	}

	if err := s.repo.IncrementViews(ctx, p.ID); err != nil {
		s.logger.Warn("view increment failed",
			slog.String("product_id", p.ID),
			slog.String("error", err.Error()),
		)
	} else {
		p.Views++
	}

	files, err := s.repo.ListFiles(ctx, p.ID)
	if err != nil {
		return nil, nil, err
	}

	return p, files, nil
}

func (s *Service) Update(
	ctx context.Context,
	id, creatorID string,
	req UpdateProductRequest,
) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id, creatorID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf(
				"product name cannot be empty: %w",
				core.ErrInvalidInput,
			)
		}
		p.Name = name
	}
	if req.Description != nil {
		p.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		if !ValidCategory(*req.Category) {
			return nil, fmt.Errorf(
				"unknown category %q: %w",
				*req.Category,
				core.ErrInvalidInput,
			)
		}
		p.Category = *req.Category
	}
	if req.Type != nil {
		p.Type = *req.Type
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, fmt.Errorf(
				"price cannot be negative: %w",
				core.ErrInvalidInput,
			)
		}
		p.Price = *req.Price
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

func (s *Service) TogglePublished(
	ctx context.Context,
	id, creatorID string,
) (bool, error) {
	published, err := s.repo.TogglePublished(ctx, id, creatorID)
	if err != nil {
		return false, err
	}

	s.logger.Info("product publish toggled",
		slog.String("product_id", id),
		slog.Bool("published", published),
	)

	return published, nil
}

func (s *Service) Delete(ctx context.Context, id, creatorID string) error {
	return s.repo.SoftDelete(ctx, id, creatorID)
}

func (s *Service) List(
	ctx context.Context,
	creatorID string,
	params ListProductsParams,
) ([]Product, int, *CreatorStats, error) {
	products, total, err := s.repo.List(ctx, creatorID, params)
	if err != nil {
		return nil, 0, nil, err
	}

	stats, err := s.repo.Stats(ctx, creatorID)
	if err != nil {
		return nil, 0, nil, err
	}

	return products, total, stats, nil
}

func (s *Service) Files(ctx context.Context, productID string) ([]File, error) {
	return s.repo.ListFiles(ctx, productID)
}

// UploadFiles stores a batch of files for an owned product. If any file
// fails validation or persistence, every file already written in this
// batch is removed before the error is returned.
func (s *Service) UploadFiles(
	ctx context.Context,
	productID, creatorID string,
	headers []*multipart.FileHeader,
) ([]File, error) {
	if _, err := s.repo.GetByID(ctx, productID, creatorID); err != nil {
		return nil, err
	}

	if len(headers) == 0 {
		return nil, fmt.Errorf("no files provided: %w", core.ErrInvalidInput)
	}
	if len(headers) > s.store.MaxBatchSize() {
		return nil, fmt.Errorf(
			"too many files: limit is %d per upload: %w",
			s.store.MaxBatchSize(),
			core.ErrInvalidInput,
		)
	}

	var saved []upload.SavedFile
	files := make([]File, 0, len(headers))

	for _, header := range headers {
		sf, err := s.store.Save(creatorID, header)
		if err != nil {
			s.store.Cleanup(saved)
			return nil, err
		}
		saved = append(saved, *sf)

		f := File{
			ID:           uuid.New().String(),
			ProductID:    productID,
			Filename:     sf.Filename,
			OriginalName: sf.OriginalName,
			FileType:     sf.FileType,
			SizeBytes:    sf.SizeBytes,
			SizeLabel:    sf.SizeLabel,
			Path:         sf.Path,
			MimeType:     sf.MimeType,
		}
		if err := s.repo.AddFile(ctx, &f); err != nil {
			s.store.Cleanup(saved)
			return nil, err
		}

		files = append(files, f)
	}

	s.logger.Info("files uploaded",
		slog.String("product_id", productID),
		slog.Int("count", len(files)),
	)

	return files, nil
}

// DeleteFile removes a file record and its on-disk artifact. A missing
// artifact is not an error once the row is gone.
func (s *Service) DeleteFile(
	ctx context.Context,
	productID, creatorID, fileID string,
) error {
	if _, err := s.repo.GetByID(ctx, productID, creatorID); err != nil {
		return err
	}

	f, err := s.repo.DeleteFile(ctx, productID, fileID)
	if err != nil {
		return err
	}

	if err := s.store.Remove(f.Path); err != nil {
		s.logger.Warn("file artifact removal failed",
			slog.String("path", f.Path),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// ResolvePublic finds a published product by ID or slug without
// touching the view counter. Used by checkout and download paths where
// a lookup is not a storefront visit.
func (s *Service) ResolvePublic(
	ctx context.Context,
	identifier string,
) (*Product, error) {
	return s.repo.GetPublicByIdentifier(ctx, identifier)
}

// OpenPublicFile resolves a published product and opens one of its
// files. Authorization is the caller's problem.
func (s *Service) OpenPublicFile(
	ctx context.Context,
	identifier, fileID string,
) (*Product, *File, *os.File, os.FileInfo, error) {
	p, err := s.repo.GetPublicByIdentifier(ctx, identifier)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	f, err := s.repo.GetFile(ctx, p.ID, fileID)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	reader, info, err := s.store.Open(f.Path)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	return p, f, reader, info, nil
}

// OpenFile returns the metadata and an open reader for an owned
// product's file. The caller closes the reader.
func (s *Service) OpenFile(
	ctx context.Context,
	productID, creatorID, fileID string,
) (*File, *os.File, os.FileInfo, error) {
	if _, err := s.repo.GetByID(ctx, productID, creatorID); err != nil {
		return nil, nil, nil, err
	}

	f, err := s.repo.GetFile(ctx, productID, fileID)
	if err != nil {
		return nil, nil, nil, err
	}

	reader, info, err := s.store.Open(f.Path)
	if err != nil {
		return nil, nil, nil, err
	}

	return f, reader, info, nil
}

// uniqueSlug derives a slug from the name, appending -2, -3, ... until
// a free one is found.
func (s *Service) uniqueSlug(ctx context.Context, name string) (string, error) {
	base := Slugify(name)

	slug := base
	for i := 2; i <= maxSlugAttempts; i++ {
		exists, err := s.repo.SlugExists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}

	// Exhausted the counter: fall back to a random suffix.
	return fmt.Sprintf("%s-%s", base, uuid.New().String()[:8]), nil
}
