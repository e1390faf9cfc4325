// AngelaMos | 2026
// service_test.go

package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v82"

	"github.com/ascendlabs/ascend-api/internal/core"
	"github.com/ascendlabs/ascend-api/internal/notify"
	"github.com/ascendlabs/ascend-api/internal/product"
	"github.com/ascendlabs/ascend-api/internal/user"
)

// fakeProductRepo implements the slice of product.Repository the
// payment service touches. Unimplemented methods panic through the
// embedded nil interface.
type fakeProductRepo struct {
	product.Repository

	products  map[string]*product.Product
	purchases map[string]*product.Purchase
	completed map[string]bool
	stats     *product.CreatorStats
	byCreator []product.Purchase
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{
		products:  make(map[string]*product.Product),
		purchases: make(map[string]*product.Purchase),
		completed: make(map[string]bool),
	}
}

func (f *fakeProductRepo) GetPublicByIdentifier(
	_ context.Context,
	identifier string,
) (*product.Product, error) {
	for _, p := range f.products {
		if p.ID == identifier || p.Slug == identifier {
			return p, nil
		}
	}
	return nil, fmt.Errorf("product %q: %w", identifier, core.ErrNotFound)
}

func (f *fakeProductRepo) RecordPurchase(
	_ context.Context,
	p *product.Purchase,
) (*product.RecordResult, error) {
	if existing, ok := f.purchases[p.StripeSessionID]; ok {
		return &product.RecordResult{Purchase: existing, Recorded: false}, nil
	}
	f.purchases[p.StripeSessionID] = p
	return &product.RecordResult{Purchase: p, Recorded: true}, nil
}

func (f *fakeProductRepo) ListPurchasesByBuyer(
	_ context.Context,
	buyerID string,
) ([]product.Purchase, error) {
	var out []product.Purchase
	for _, p := range f.purchases {
		if p.BuyerID != nil && *p.BuyerID == buyerID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProductRepo) ListPurchasesByEmail(
	_ context.Context,
	email string,
) ([]product.Purchase, error) {
	var out []product.Purchase
	for _, p := range f.purchases {
		if p.CustomerEmail == email {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProductRepo) Stats(
	_ context.Context,
	_ string,
) (*product.CreatorStats, error) {
	return f.stats, nil
}

func (f *fakeProductRepo) ListPurchasesByCreator(
	_ context.Context,
	_ string,
) ([]product.Purchase, error) {
	return f.byCreator, nil
}

func (f *fakeProductRepo) HasCompletedPurchase(
	_ context.Context,
	productID, email string,
) (bool, error) {
	return f.completed[productID+"|"+email], nil
}

// fakeUserRepo backs a real user.Service so the find-or-create buyer
// path runs for real.
type fakeUserRepo struct {
	user.Repository

	byEmail map[string]*user.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: make(map[string]*user.User)}
}

func (f *fakeUserRepo) GetByEmail(
	_ context.Context,
	email string,
) (*user.User, error) {
	if u, ok := f.byEmail[email]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user %q: %w", email, core.ErrNotFound)
}

func (f *fakeUserRepo) Create(_ context.Context, u *user.User) error {
	if _, ok := f.byEmail[u.Email]; ok {
		return core.ErrDuplicateKey
	}
	f.byEmail[u.Email] = u
	return nil
}

func (f *fakeUserRepo) SetStripeCustomer(
	_ context.Context,
	id, customerID string,
) error {
	for _, u := range f.byEmail {
		if u.ID == id {
			u.StripeCustomer = customerID
			return nil
		}
	}
	return core.ErrNotFound
}

type fakeStripe struct {
	created       []CheckoutParams
	customerID    string
	session       *stripe.CheckoutSession
	getSessionErr error
}

func (f *fakeStripe) FindOrCreateCustomer(
	_ context.Context,
	_, _ string,
) (string, error) {
	if f.customerID == "" {
		return "cus_test", nil
	}
	return f.customerID, nil
}

func (f *fakeStripe) CreateCheckoutSession(
	_ context.Context,
	params CheckoutParams,
) (*stripe.CheckoutSession, error) {
	f.created = append(f.created, params)
	return &stripe.CheckoutSession{
		ID:  "cs_test_123",
		URL: "https://checkout.stripe.com/c/pay/cs_test_123",
	}, nil
}

func (f *fakeStripe) GetCheckoutSession(
	_ context.Context,
	_ string,
) (*stripe.CheckoutSession, error) {
	if f.getSessionErr != nil {
		return nil, f.getSessionErr
	}
	return f.session, nil
}

func newTestService(
	repo *fakeProductRepo,
	stripeClient *fakeStripe,
) (*Service, *fakeUserRepo) {
	logger := slog.New(slog.DiscardHandler)
	userRepo := newFakeUserRepo()

	svc := NewService(
		repo,
		user.NewService(userRepo),
		stripeClient,
		NewTokenSigner("test-secret"),
		notify.NewLogNotifier(logger),
		"https://ascend.test/",
		logger,
	)
	return svc, userRepo
}

func paidSession() *stripe.CheckoutSession {
	return &stripe.CheckoutSession{
		ID:            "cs_test_123",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		AmountTotal:   4999,
		Metadata:      map[string]string{"product_id": "prod-1"},
		CustomerDetails: &stripe.CheckoutSessionCustomerDetails{
			Email: "Buyer@Example.com",
			Name:  "Jordan Buyer",
		},
		Customer:      &stripe.Customer{ID: "cus_test"},
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_test_123"},
	}
}

func TestCreateCheckout(t *testing.T) {
	repo := newFakeProductRepo()
	repo.products["prod-1"] = &product.Product{
		ID:        "prod-1",
		Slug:      "launch-course",
		Name:      "Launch Course",
		Price:     49.99,
		Published: true,
	}
	stripeClient := &fakeStripe{}
	svc, _ := newTestService(repo, stripeClient)

	resp, err := svc.CreateCheckout(context.Background(), CreateCheckoutRequest{
		Slug: "launch-course",
		CustomerInfo: CustomerInfo{
			Email:     "Buyer@Example.com",
			FirstName: "Jordan",
		},
	})
	if err != nil {
		t.Fatalf("CreateCheckout() error = %v", err)
	}

	if resp.SessionID != "cs_test_123" {
		t.Errorf("SessionID = %q", resp.SessionID)
	}

	if len(stripeClient.created) != 1 {
		t.Fatalf("created %d sessions, want 1", len(stripeClient.created))
	}
	params := stripeClient.created[0]

	if params.AmountCents != 4999 {
		t.Errorf("AmountCents = %d, want 4999", params.AmountCents)
	}
	if params.CustomerEmail != "buyer@example.com" {
		t.Errorf("CustomerEmail = %q, want lowercased", params.CustomerEmail)
	}
	if params.ProductID != "prod-1" {
		t.Errorf("ProductID = %q", params.ProductID)
	}
	if want := "https://ascend.test/purchase/success?session_id={CHECKOUT_SESSION_ID}"; params.SuccessURL != want {
		t.Errorf("SuccessURL = %q, want %q", params.SuccessURL, want)
	}
	if want := "https://ascend.test/products/launch-course"; params.CancelURL != want {
		t.Errorf("CancelURL = %q, want %q", params.CancelURL, want)
	}
}

func TestCreateCheckoutUnknownProduct(t *testing.T) {
	svc, _ := newTestService(newFakeProductRepo(), &fakeStripe{})

	_, err := svc.CreateCheckout(context.Background(), CreateCheckoutRequest{
		Slug:         "nope",
		CustomerInfo: CustomerInfo{Email: "buyer@example.com"},
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestVerifySessionRecordsOnce(t *testing.T) {
	repo := newFakeProductRepo()
	repo.products["prod-1"] = &product.Product{
		ID:   "prod-1",
		Slug: "launch-course",
		Name: "Launch Course",
	}
	stripeClient := &fakeStripe{session: paidSession()}
	svc, userRepo := newTestService(repo, stripeClient)

	first, err := svc.VerifySession(context.Background(), "cs_test_123")
	if err != nil {
		t.Fatalf("VerifySession() error = %v", err)
	}

	if first.AlreadyRecorded {
		t.Error("first verify reported AlreadyRecorded")
	}
	if first.Purchase.Amount != 49.99 {
		t.Errorf("Amount = %v, want 49.99", first.Purchase.Amount)
	}
	if first.Purchase.Status != product.StatusCompleted {
		t.Errorf("Status = %q, want completed", first.Purchase.Status)
	}
	if first.Purchase.CustomerEmail != "buyer@example.com" {
		t.Errorf("CustomerEmail = %q, want lowercased", first.Purchase.CustomerEmail)
	}

	// The issued token must open this product's downloads.
	if _, err := svc.tokens.Verify(first.DownloadToken, "prod-1"); err != nil {
		t.Errorf("download token does not verify: %v", err)
	}

	// Guest buyer account was provisioned and linked to Stripe.
	buyer, ok := userRepo.byEmail["buyer@example.com"]
	if !ok {
		t.Fatal("buyer account was not created")
	}
	if buyer.StripeCustomer != "cus_test" {
		t.Errorf("StripeCustomer = %q, want cus_test", buyer.StripeCustomer)
	}

	// Webhook replay of the same session must not double-record.
	if err := svc.ConfirmSessionFromWebhook(context.Background(), "cs_test_123"); err != nil {
		t.Fatalf("ConfirmSessionFromWebhook() error = %v", err)
	}
	if len(repo.purchases) != 1 {
		t.Fatalf("purchases recorded = %d, want 1", len(repo.purchases))
	}

	second, err := svc.VerifySession(context.Background(), "cs_test_123")
	if err != nil {
		t.Fatalf("second VerifySession() error = %v", err)
	}
	if !second.AlreadyRecorded {
		t.Error("second verify did not report AlreadyRecorded")
	}
	if second.Purchase.ID != first.Purchase.ID {
		t.Errorf("purchase id changed between verifies: %q vs %q",
			first.Purchase.ID, second.Purchase.ID)
	}
}

func TestVerifySessionRejectsUnpaid(t *testing.T) {
	session := paidSession()
	session.PaymentStatus = stripe.CheckoutSessionPaymentStatusUnpaid

	svc, _ := newTestService(newFakeProductRepo(), &fakeStripe{session: session})

	_, err := svc.VerifySession(context.Background(), "cs_test_123")
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
}

func TestVerifySessionRequiresProductMetadata(t *testing.T) {
	session := paidSession()
	session.Metadata = nil

	svc, _ := newTestService(newFakeProductRepo(), &fakeStripe{session: session})

	_, err := svc.VerifySession(context.Background(), "cs_test_123")
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
}

func TestAuthorizeDownload(t *testing.T) {
	repo := newFakeProductRepo()
	repo.completed["prod-1|buyer@example.com"] = true

	svc, _ := newTestService(repo, &fakeStripe{})
	token, _ := svc.tokens.Sign("prod-1", "buyer@example.com")

	tests := []struct {
		name    string
		email   string
		token   string
		wantErr error
	}{
		{"valid token", "", token, nil},
		{"token for another product", "", mustSign(svc, "prod-9"), core.ErrTokenInvalid},
		{"purchased email", "Buyer@Example.com", "", nil},
		{"unpurchased email", "stranger@example.com", "", core.ErrForbidden},
		{"no credentials", "", "", core.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.AuthorizeDownload(context.Background(), "prod-1", tt.email, tt.token)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("AuthorizeDownload() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("AuthorizeDownload() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func mustSign(svc *Service, productID string) string {
	token, _ := svc.tokens.Sign(productID, "buyer@example.com")
	return token
}

func TestListPurchasesGuestRequiresEmail(t *testing.T) {
	svc, _ := newTestService(newFakeProductRepo(), &fakeStripe{})

	_, err := svc.ListPurchases(context.Background(), "", "  ")
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
}

func TestAnalytics(t *testing.T) {
	repo := newFakeProductRepo()
	repo.stats = &product.CreatorStats{
		TotalProducts:     4,
		PublishedProducts: 3,
		TotalSales:        10,
		TotalRevenue:      500,
		TotalViews:        200,
	}
	repo.byCreator = []product.Purchase{
		{Status: product.StatusCompleted, Amount: 50, CreatedAt: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)},
		{Status: product.StatusCompleted, Amount: 30, CreatedAt: time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)},
		{Status: product.StatusFailed, Amount: 99, CreatedAt: time.Date(2026, 1, 25, 0, 0, 0, 0, time.UTC)},
		{Status: product.StatusCompleted, Amount: 20, CreatedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
	}

	svc, _ := newTestService(repo, &fakeStripe{})

	resp, err := svc.Analytics(context.Background(), "creator-1")
	if err != nil {
		t.Fatalf("Analytics() error = %v", err)
	}

	if resp.ConversionRate != 0.05 {
		t.Errorf("ConversionRate = %v, want 0.05", resp.ConversionRate)
	}
	if resp.AverageOrderValue != 50 {
		t.Errorf("AverageOrderValue = %v, want 50", resp.AverageOrderValue)
	}

	want := []product.MonthlyBucket{
		{Month: "2026-01", Sales: 2, Revenue: 80},
		{Month: "2026-02", Sales: 1, Revenue: 20},
	}
	if len(resp.Monthly) != len(want) {
		t.Fatalf("Monthly buckets = %d, want %d", len(resp.Monthly), len(want))
	}
	for i := range want {
		if resp.Monthly[i] != want[i] {
			t.Errorf("Monthly[%d] = %+v, want %+v", i, resp.Monthly[i], want[i])
		}
	}
}

func TestSessionCustomerFallback(t *testing.T) {
	session := &stripe.CheckoutSession{
		Metadata: map[string]string{"customer_email": "Meta@Example.com"},
	}

	email, name := sessionCustomer(session)
	if email != "meta@example.com" {
		t.Errorf("email = %q, want metadata fallback lowercased", email)
	}
	if name != "" {
		t.Errorf("name = %q, want empty", name)
	}

	session.CustomerDetails = &stripe.CheckoutSessionCustomerDetails{
		Email: " Direct@Example.com ",
		Name:  "Dana",
	}
	email, name = sessionCustomer(session)
	if email != "direct@example.com" {
		t.Errorf("email = %q, want customer details trimmed and lowercased", email)
	}
	if name != "Dana" {
		t.Errorf("name = %q, want Dana", name)
	}
}
