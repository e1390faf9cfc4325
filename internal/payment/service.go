// AngelaMos | 2026
// service.go

package payment

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"

	"github.com/ascendlabs/ascend-api/internal/core"
	"github.com/ascendlabs/ascend-api/internal/notify"
	"github.com/ascendlabs/ascend-api/internal/product"
	"github.com/ascendlabs/ascend-api/internal/user"
)

type Service struct {
	products    product.Repository
	users       *user.Service
	stripe      StripeClient
	tokens      *TokenSigner
	notifier    notify.Notifier
	frontendURL string
	logger      *slog.Logger
}

func NewService(
	products product.Repository,
	users *user.Service,
	stripeClient StripeClient,
	tokens *TokenSigner,
	notifier notify.Notifier,
	frontendURL string,
	logger *slog.Logger,
) *Service {
	return &Service{
		products:    products,
		users:       users,
		stripe:      stripeClient,
		tokens:      tokens,
		notifier:    notifier,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger,
	}
}

// CreateCheckout builds a Stripe checkout session for a published
// product. The charge amount always comes from the product's current
// price, never from the request.
func (s *Service) CreateCheckout(
	ctx context.Context,
	req CreateCheckoutRequest,
) (*CheckoutSessionResponse, error) {
	identifier := req.Identifier()
	if identifier == "" {
		return nil, fmt.Errorf(
			"product id or slug is required: %w",
			core.ErrInvalidInput,
		)
	}

	p, err := s.products.GetPublicByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.CustomerInfo.Email))

	customerID, err := s.stripe.FindOrCreateCustomer(
		ctx,
		email,
		req.CustomerInfo.FullName(),
	)
	if err != nil {
		return nil, err
	}

	session, err := s.stripe.CreateCheckoutSession(ctx, CheckoutParams{
		CustomerID:    customerID,
		CustomerEmail: email,
		ProductID:     p.ID,
		ProductSlug:   p.Slug,
		ProductName:   p.Name,
		Description:   p.Description,
		AmountCents:   int64(math.Round(p.Price * 100)),
		SuccessURL: fmt.Sprintf(
			"%s/purchase/success?session_id={CHECKOUT_SESSION_ID}",
			s.frontendURL,
		),
		CancelURL: fmt.Sprintf("%s/products/%s", s.frontendURL, p.Slug),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("checkout session created",
		slog.String("session_id", session.ID),
		slog.String("product_id", p.ID),
	)

	return &CheckoutSessionResponse{
		SessionID: session.ID,
		URL:       session.URL,
	}, nil
}

// VerifySession confirms payment with Stripe and records the purchase.
// Safe to call any number of times for the same session: the first call
// records, later calls return the existing purchase.
func (s *Service) VerifySession(
	ctx context.Context,
	sessionID string,
) (*VerifySessionResponse, error) {
	result, p, err := s.confirmSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	token, expiresAt := s.tokens.Sign(
		result.Purchase.ProductID,
		result.Purchase.CustomerEmail,
	)

	if result.Recorded {
		s.notifyPurchase(result.Purchase, p, token)
	}

	return &VerifySessionResponse{
		Purchase:        ToPurchaseResponse(result.Purchase),
		AlreadyRecorded: !result.Recorded,
		DownloadToken:   token,
		TokenExpiresAt:  expiresAt,
	}, nil
}

// ConfirmSessionFromWebhook runs the same record path for a
// checkout.session.completed event. Either the webhook or a client
// verify can arrive first; the session id constraint keeps them from
// both counting.
func (s *Service) ConfirmSessionFromWebhook(
	ctx context.Context,
	sessionID string,
) error {
	result, p, err := s.confirmSession(ctx, sessionID)
	if err != nil {
		return err
	}

	if result.Recorded {
		token, _ := s.tokens.Sign(
			result.Purchase.ProductID,
			result.Purchase.CustomerEmail,
		)
		s.notifyPurchase(result.Purchase, p, token)
	}

	return nil
}

func (s *Service) confirmSession(
	ctx context.Context,
	sessionID string,
) (*product.RecordResult, *product.Product, error) {
	session, err := s.stripe.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return nil, nil, fmt.Errorf(
			"session %s is not paid (%s): %w",
			sessionID,
			session.PaymentStatus,
			core.ErrInvalidInput,
		)
	}

	productID := session.Metadata["product_id"]
	if productID == "" {
		return nil, nil, fmt.Errorf(
			"session %s has no product metadata: %w",
			sessionID,
			core.ErrInvalidInput,
		)
	}

	email, name := sessionCustomer(session)
	if email == "" {
		return nil, nil, fmt.Errorf(
			"session %s has no customer email: %w",
			sessionID,
			core.ErrInvalidInput,
		)
	}

	buyer, err := s.users.FindOrCreateByEmail(ctx, email, name)
	if err != nil {
		return nil, nil, err
	}

	if session.Customer != nil && buyer.StripeCustomer == "" {
		if err := s.users.SetStripeCustomer(ctx, buyer.ID, session.Customer.ID); err != nil {
			s.logger.Warn("stripe customer link failed",
				slog.String("user_id", buyer.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	purchase := &product.Purchase{
		ID:              uuid.New().String(),
		ProductID:       productID,
		BuyerID:         &buyer.ID,
		CustomerEmail:   buyer.Email,
		CustomerName:    name,
		Amount:          float64(session.AmountTotal) / 100,
		StripeSessionID: session.ID,
		Status:          product.StatusCompleted,
	}
	if session.PaymentIntent != nil {
		purchase.StripePaymentIntent = session.PaymentIntent.ID
	}

	result, err := s.products.RecordPurchase(ctx, purchase)
	if err != nil {
		return nil, nil, err
	}

	if result.Recorded {
		s.logger.Info("purchase recorded",
			slog.String("purchase_id", result.Purchase.ID),
			slog.String("session_id", session.ID),
			slog.String("product_id", productID),
		)
	}

	p, err := s.products.GetPublicByIdentifier(ctx, productID)
	if err != nil {
		// Product may have been unpublished since purchase; the
		// purchase itself still stands.
		p = nil
	}

	return result, p, nil
}

// MarkIntentSucceeded promotes a pending purchase once the payment
// intent settles.
func (s *Service) MarkIntentSucceeded(
	ctx context.Context,
	paymentIntentID string,
) error {
	return s.products.TransitionPurchaseByIntent(
		ctx,
		paymentIntentID,
		product.StatusCompleted,
	)
}

func (s *Service) MarkIntentFailed(
	ctx context.Context,
	paymentIntentID string,
) error {
	return s.products.TransitionPurchaseByIntent(
		ctx,
		paymentIntentID,
		product.StatusFailed,
	)
}

// MarkDisputed flags the purchase and backs its amount out of the
// product counters.
func (s *Service) MarkDisputed(
	ctx context.Context,
	paymentIntentID string,
) error {
	return s.products.TransitionPurchaseByIntent(
		ctx,
		paymentIntentID,
		product.StatusDisputed,
	)
}

// ListPurchases returns the authenticated user's purchases, or a
// guest's by email.
func (s *Service) ListPurchases(
	ctx context.Context,
	userID, email string,
) ([]product.Purchase, error) {
	if userID != "" {
		return s.products.ListPurchasesByBuyer(ctx, userID)
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf(
			"email is required for guest lookup: %w",
			core.ErrInvalidInput,
		)
	}

	return s.products.ListPurchasesByEmail(ctx, email)
}

// Analytics recomputes the creator dashboard from purchase rows on
// every call. Only completed purchases count.
func (s *Service) Analytics(
	ctx context.Context,
	creatorID string,
) (*AnalyticsResponse, error) {
	stats, err := s.products.Stats(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	purchases, err := s.products.ListPurchasesByCreator(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	resp := &AnalyticsResponse{
		TotalProducts:     stats.TotalProducts,
		PublishedProducts: stats.PublishedProducts,
		TotalSales:        stats.TotalSales,
		TotalRevenue:      stats.TotalRevenue,
		TotalViews:        stats.TotalViews,
		Monthly:           product.BucketPurchasesByMonth(purchases),
	}

	if stats.TotalViews > 0 {
		resp.ConversionRate = float64(stats.TotalSales) / float64(stats.TotalViews)
	}
	if stats.TotalSales > 0 {
		resp.AverageOrderValue = stats.TotalRevenue / float64(stats.TotalSales)
	}

	return resp, nil
}

// AuthorizeDownload gates the public download endpoint. A valid token
// proves the bearer completed checkout for this product; otherwise the
// email must match a completed purchase.
func (s *Service) AuthorizeDownload(
	ctx context.Context,
	productID, email, token string,
) error {
	if token != "" {
		if _, err := s.tokens.Verify(token, productID); err != nil {
			return err
		}
		return nil
	}

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return fmt.Errorf("download access: %w", core.ErrUnauthorized)
	}

	has, err := s.products.HasCompletedPurchase(ctx, productID, email)
	if err != nil {
		return err
	}
	if !has {
		return fmt.Errorf("download access: %w", core.ErrForbidden)
	}

	return nil
}

func (s *Service) notifyPurchase(
	purchase *product.Purchase,
	p *product.Product,
	token string,
) {
	notice := notify.PurchaseNotice{
		CustomerEmail: purchase.CustomerEmail,
		CustomerName:  purchase.CustomerName,
		Amount:        purchase.Amount,
		DownloadToken: token,
	}
	if p != nil {
		notice.ProductName = p.Name
		notice.ProductSlug = p.Slug
	}

	// Fire and forget: delivery never blocks or fails the purchase.
	go s.notifier.PurchaseCompleted(context.WithoutCancel(context.Background()), notice)
}

func sessionCustomer(session *stripe.CheckoutSession) (email, name string) {
	if session.CustomerDetails != nil {
		email = session.CustomerDetails.Email
		name = session.CustomerDetails.Name
	}
	if email == "" {
		email = session.Metadata["customer_email"]
	}
	return strings.ToLower(strings.TrimSpace(email)), name
}
