// AngelaMos | 2026
// handler.go

package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ascendlabs/ascend-api/internal/core"
	"github.com/ascendlabs/ascend-api/internal/middleware"
)

// multipartMemoryLimit is how much of an upload is buffered in memory
// before spilling to temp files.
const multipartMemoryLimit = 32 << 20

// DownloadGate decides whether a public download request may proceed.
// Implemented by the payment service, which knows about completed
// purchases and download tokens.
type DownloadGate interface {
	AuthorizeDownload(
		ctx context.Context,
		productID, email, token string,
	) error
}

type Handler struct {
	service   *Service
	gate      DownloadGate
	validator *validator.Validate
}

func NewHandler(service *Service, gate DownloadGate) *Handler {
	return &Handler{
		service:   service,
		gate:      gate,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/digital-products", func(r chi.Router) {
		// Public storefront lookup by ID or slug.
		r.Get("/public/{identifier}", h.GetPublic)

		// Purchase-gated download: ?email= of a completed purchase, or
		// ?token= issued at verification time.
		r.Get("/download/{productSlug}/{fileID}", h.PublicDownload)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)

			r.Post("/", h.Create)
			r.Get("/", h.List)
			r.Get("/{productID}", h.Get)
			r.Put("/{productID}", h.Update)
			r.Patch("/{productID}/toggle-published", h.TogglePublished)
			r.Get("/{productID}/analytics", h.Analytics)
			r.Delete("/{productID}", h.Delete)

			r.Post("/{productID}/files", h.UploadFiles)
			r.Get("/{productID}/files/{fileID}/download", h.DownloadFile)
			r.Delete("/{productID}/files/{fileID}", h.DeleteFile)
		})
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	creatorID := middleware.GetUserID(r.Context())

	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	p, err := h.service.Create(r.Context(), creatorID, req)
	if err != nil {
		if errors.Is(err, core.ErrInvalidInput) {
			core.BadRequest(w, err.Error())
			return
		}
		if errors.Is(err, core.ErrDuplicateKey) {
			core.JSONError(w, core.DuplicateError("slug"))
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, ToProductResponse(p, nil))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	creatorID := middleware.GetUserID(r.Context())

	params := ListProductsParams{
		Page:     parseIntQuery(r, "page", 1),
		Limit:    parseIntQuery(r, "limit", 10),
		Category: r.URL.Query().Get("category"),
		Search:   r.URL.Query().Get("search"),
	}

	products, total, stats, err := h.service.List(r.Context(), creatorID, params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	params.Normalize()

	responses := make([]ProductResponse, 0, len(products))
	for i := range products {
		responses = append(responses, ToProductResponse(&products[i], nil))
	}

	core.Paginated(w, ProductListResponse{
		Products: responses,
		Stats:    *stats,
	}, params.Page, params.Limit, total)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	creatorID := middleware.GetUserID(r.Context())
	productID := chi.URLParam(r, "productID")

	p, err := h.service.Get(r.Context(), productID, creatorID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "product")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	files, err := h.service.Files(r.Context(), p.ID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToProductResponse(p, files))
}

// GetPublic serves the storefront view. Unpublished and deleted
// products 404 even with a valid identifier.
func (h *Handler) GetPublic(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")

	p, files, err := h.service.GetPublic(r.Context(), identifier)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "product")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToPublicProductResponse(p, files))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	creatorID := middleware.GetUserID(r.Context())
	productID := chi.URLParam(r, "productID")

	var req UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	p, err := h.service.Update(r.Context(), productID, creatorID, req)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "product")
			return
		}
		if errors.Is(err, core.ErrInvalidInput) {
			core.BadRequest(w, err.Error())
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToProductResponse(p, nil))
}

func (h *Handler) TogglePublished(w http.ResponseWriter, r *http.Request) {
	creatorID := middleware.GetUserID(r.Context())
	productID := chi.URLParam(r, "productID")

	published, err := h.service.TogglePublished(r.Context(), productID, creatorID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "product")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, map[string]bool{"published": published})
}

// Analytics reports one product's sales performance to its owner.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	creatorID := middleware.GetUserID(r.Context())
	productID := chi.URLParam(r, "productID")

	resp, err := h.service.Analytics(r.Context(), productID, creatorID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "product")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	creatorID := middleware.GetUserID(r.Context())
	productID := chi.URLParam(r, "productID")

	if err := h.service.Delete(r.Context(), productID, creatorID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "product")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.NoContent(w)
}

// UploadFiles accepts a multipart batch under the "files" field.
func (h *Handler) UploadFiles(w http.ResponseWriter, r *http.Request) {
	creatorID := middleware.GetUserID(r.Context())
	productID := chi.URLParam(r, "productID")

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		core.BadRequest(w, "invalid multipart request")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	headers := r.MultipartForm.File["files"]

	files, err := h.service.UploadFiles(r.Context(), productID, creatorID, headers)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "product")
			return
		}
		if errors.Is(err, core.ErrInvalidInput) {
			core.BadRequest(w, err.Error())
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, ToFileResponseList(files))
}

// DownloadFile streams an owned file as an attachment.
func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	creatorID := middleware.GetUserID(r.Context())
	productID := chi.URLParam(r, "productID")
	fileID := chi.URLParam(r, "fileID")

	f, reader, info, err := h.service.OpenFile(r.Context(), productID, creatorID, fileID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "file")
			return
		}
		core.InternalServerError(w, err)
		return
	}
	defer reader.Close()

	ServeFileDownload(w, f, reader, info.Size())
}

// PublicDownload streams a purchased file to a buyer. Access requires
// either an email with a completed purchase or a valid download token.
func (h *Handler) PublicDownload(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "productSlug")
	fileID := chi.URLParam(r, "fileID")
	email := r.URL.Query().Get("email")
	token := r.URL.Query().Get("token")

	p, err := h.service.ResolvePublic(r.Context(), identifier)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "product")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	if err := h.gate.AuthorizeDownload(r.Context(), p.ID, email, token); err != nil {
		switch {
		case errors.Is(err, core.ErrUnauthorized):
			core.Unauthorized(w, "email or download token required")
		case errors.Is(err, core.ErrTokenExpired):
			core.Unauthorized(w, "download token expired")
		case errors.Is(err, core.ErrTokenInvalid):
			core.Unauthorized(w, "invalid download token")
		case errors.Is(err, core.ErrForbidden):
			core.Forbidden(w, "no completed purchase for this product")
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	_, f, reader, info, err := h.service.OpenPublicFile(r.Context(), identifier, fileID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "file")
			return
		}
		core.InternalServerError(w, err)
		return
	}
	defer reader.Close()

	ServeFileDownload(w, f, reader, info.Size())
}

func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	creatorID := middleware.GetUserID(r.Context())
	productID := chi.URLParam(r, "productID")
	fileID := chi.URLParam(r, "fileID")

	err := h.service.DeleteFile(r.Context(), productID, creatorID, fileID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "file")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.NoContent(w)
}

// ServeFileDownload writes a stored file to the response as an
// attachment. Shared with the public purchase-gated download endpoint.
func ServeFileDownload(
	w http.ResponseWriter,
	f *File,
	reader io.Reader,
	size int64,
) {
	w.Header().Set("Content-Type", f.MimeType)
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", f.OriginalName),
	)
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))

	_, _ = io.Copy(w, reader)
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}
