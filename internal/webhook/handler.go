// AngelaMos | 2026
// handler.go

package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/ascendlabs/ascend-api/internal/core"
)

// bodyLimit caps the webhook payload read. Stripe events are small;
// anything bigger is not Stripe.
const bodyLimit = 1 << 20

// PaymentRecorder is the slice of the payment service the webhook
// needs. Signature verification is the authentication for this
// endpoint; everything past it trusts the event.
type PaymentRecorder interface {
	ConfirmSessionFromWebhook(ctx context.Context, sessionID string) error
	MarkIntentSucceeded(ctx context.Context, paymentIntentID string) error
	MarkIntentFailed(ctx context.Context, paymentIntentID string) error
	MarkDisputed(ctx context.Context, paymentIntentID string) error
}

type Handler struct {
	payments      PaymentRecorder
	webhookSecret string
	logger        *slog.Logger
}

func NewHandler(
	payments PaymentRecorder,
	webhookSecret string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		payments:      payments,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/webhooks/stripe-digital-products", h.HandleStripeWebhook)
}

// HandleStripeWebhook verifies the Stripe signature over the raw body
// before any parsing, then dispatches on event type. Processing
// failures return non-2xx so Stripe retries; unknown event types are
// acknowledged.
func (h *Handler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		core.BadRequest(w, "failed to read request body")
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		r.Header.Get("Stripe-Signature"),
		h.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		h.logger.Warn("stripe signature verification failed",
			slog.String("error", err.Error()),
		)
		core.BadRequest(w, "invalid stripe signature")
		return
	}

	if err := h.handleEvent(r.Context(), &event); err != nil {
		// A purchase the webhook has never seen can mean the verify
		// call hasn't landed yet; Stripe's retry will find it.
		h.logger.Error("stripe webhook processing failed",
			slog.String("event_id", event.ID),
			slog.String("type", string(event.Type)),
			slog.String("error", err.Error()),
		)
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, map[string]bool{"received": true})
}

func (h *Handler) handleEvent(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var session struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("decode checkout.session: %w", err)
		}
		return h.payments.ConfirmSessionFromWebhook(ctx, session.ID)

	case "payment_intent.succeeded":
		intentID, err := decodeIntentID(event)
		if err != nil {
			return err
		}
		return h.tolerateUnknown(
			h.payments.MarkIntentSucceeded(ctx, intentID),
			event,
		)

	case "payment_intent.payment_failed":
		intentID, err := decodeIntentID(event)
		if err != nil {
			return err
		}
		return h.tolerateUnknown(
			h.payments.MarkIntentFailed(ctx, intentID),
			event,
		)

	case "charge.dispute.created":
		var dispute struct {
			PaymentIntent string `json:"payment_intent"`
		}
		if err := json.Unmarshal(event.Data.Raw, &dispute); err != nil {
			return fmt.Errorf("decode dispute: %w", err)
		}
		return h.tolerateUnknown(
			h.payments.MarkDisputed(ctx, dispute.PaymentIntent),
			event,
		)

	case "invoice.payment_failed":
		h.logger.Warn("invoice payment failed",
			slog.String("event_id", event.ID),
		)
		return nil

	default:
		h.logger.Info("stripe event ignored",
			slog.String("type", string(event.Type)),
			slog.String("event_id", event.ID),
		)
		return nil
	}
}

// tolerateUnknown acknowledges events for purchases this platform
// never recorded (e.g. payments from another product line on the same
// Stripe account) instead of making Stripe retry forever.
func (h *Handler) tolerateUnknown(err error, event *stripe.Event) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, core.ErrNotFound) {
		h.logger.Info("stripe event for unknown purchase",
			slog.String("type", string(event.Type)),
			slog.String("event_id", event.ID),
		)
		return nil
	}
	return err
}

func decodeIntentID(event *stripe.Event) (string, error) {
	var intent struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return "", fmt.Errorf("decode payment_intent: %w", err)
	}
	return intent.ID, nil
}
