// AngelaMos | 2026
// handler.go

package payment

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ascendlabs/ascend-api/internal/core"
	"github.com/ascendlabs/ascend-api/internal/middleware"
)

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
	authenticator, optionalAuth func(http.Handler) http.Handler,
) {
	r.Route("/payments", func(r chi.Router) {
		// Guest checkout is a feature: no auth required to buy.
		r.Post("/create-checkout-session", h.CreateCheckout)
		r.Post("/verify-session", h.VerifySession)

		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)
			r.Get("/purchases", h.ListPurchases)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Get("/analytics", h.Analytics)
		})
	})
}

func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req CreateCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.CreateCheckout(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) VerifySession(w http.ResponseWriter, r *http.Request) {
	var req VerifySessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.VerifySession(r.Context(), req.SessionID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	core.OK(w, resp)
}

// ListPurchases serves authenticated buyers by identity and guests by
// `?email=`.
func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	email := r.URL.Query().Get("email")

	purchases, err := h.service.ListPurchases(r.Context(), userID, email)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	core.OK(w, ToPurchaseResponseList(purchases))
}

func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	creatorID := middleware.GetUserID(r.Context())

	resp, err := h.service.Analytics(r.Context(), creatorID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "product")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, err.Error())
	case errors.Is(err, core.ErrUpstream):
		core.JSONError(w, core.UpstreamError("STRIPE", err.Error()))
	default:
		core.InternalServerError(w, err)
	}
}
