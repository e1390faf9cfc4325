// AngelaMos | 2026
// handler.go

package chat

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
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/chat", func(r chi.Router) {
		r.Use(authenticator)

		r.Post("/", h.CreateChat)
		r.Get("/history", h.ListChats)
		r.Get("/{chatID}", h.GetChat)
		r.Delete("/{chatID}", h.DeleteChat)
		r.Post("/{chatID}/message", h.SendMessage)
	})
}

func (h *Handler) CreateChat(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	c, err := h.service.CreateChat(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	core.Created(w, ToChatResponse(c))
}

func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	chats, err := h.service.ListChats(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	core.OK(w, ToChatResponseList(chats))
}

func (h *Handler) GetChat(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	chatID := chi.URLParam(r, "chatID")

	c, messages, err := h.service.GetChat(r.Context(), chatID, userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	core.OK(w, ChatDetailResponse{
		Chat:     ToChatResponse(c),
		Messages: ToMessageResponseList(messages),
	})
}

func (h *Handler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	chatID := chi.URLParam(r, "chatID")

	if err := h.service.DeleteChat(r.Context(), chatID, userID); err != nil {
		h.writeServiceError(w, err)
		return
	}

	core.NoContent(w)
}

// SendMessage runs one turn. A model failure still persists the user
// message and reports success=false with the turn left unanswered.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	chatID := chi.URLParam(r, "chatID")

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	result, err := h.service.SendMessage(r.Context(), chatID, userID, req.Message)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	resp := SendMessageResponse{
		ChatID:      chatID,
		UserMessage: ToMessageResponse(result.UserMessage),
		Answered:    result.Answered,
	}
	if result.AssistantMessage != nil {
		assistant := ToMessageResponse(result.AssistantMessage)
		resp.AssistantMessage = &assistant
	}

	if !result.Answered {
		core.Degraded(w, resp)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "chat")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, err.Error())
	case errors.Is(err, core.ErrForbidden):
		core.Forbidden(w, err.Error())
	case errors.Is(err, core.ErrRateLimited):
		core.TooManyRequests(w, err.Error())
	default:
		core.InternalServerError(w, err)
	}
}
