// AngelaMos | 2026
// handler.go

package generate

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ascendlabs/ascend-api/internal/core"
	"github.com/ascendlabs/ascend-api/internal/middleware"
)

type BusinessPlanRequest struct {
	Idea     string `json:"idea"     validate:"required,min=10,max=2000"`
	Audience string `json:"audience" validate:"omitempty,max=500"`
	Budget   string `json:"budget"   validate:"omitempty,max=100"`
}

type ProductIdeasRequest struct {
	Niche  string `json:"niche"  validate:"required,min=3,max=500"`
	Skills string `json:"skills" validate:"omitempty,max=1000"`
	Count  int    `json:"count"  validate:"omitempty,min=1,max=10"`
}

type GenerationResponse struct {
	Content string `json:"content"`
}

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/generate", func(r chi.Router) {
		r.Use(authenticator)

		r.Post("/business-plan", h.BusinessPlan)
		r.Post("/product-ideas", h.ProductIdeas)
	})
}

func (h *Handler) BusinessPlan(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req BusinessPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	content, err := h.service.BusinessPlan(r.Context(), userID, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	core.OK(w, GenerationResponse{Content: content})
}

func (h *Handler) ProductIdeas(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req ProductIdeasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	content, err := h.service.ProductIdeas(r.Context(), userID, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	core.OK(w, GenerationResponse{Content: content})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrForbidden):
		core.Forbidden(w, err.Error())
	case errors.Is(err, core.ErrRateLimited):
		core.TooManyRequests(w, err.Error())
	case errors.Is(err, core.ErrUpstream):
		core.JSONError(w, core.UpstreamError("LLM", "generation is temporarily unavailable"))
	default:
		core.InternalServerError(w, err)
	}
}
