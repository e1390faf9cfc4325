// AngelaMos | 2026
// stripe.go

package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/ascendlabs/ascend-api/internal/core"
)

// CheckoutParams is the subset of a Stripe checkout session this
// platform sets. Amounts are in cents.
type CheckoutParams struct {
	CustomerID    string
	CustomerEmail string
	ProductID     string
	ProductSlug   string
	ProductName   string
	Description   string
	AmountCents   int64
	SuccessURL    string
	CancelURL     string
}

// StripeClient is the payment provider port. The real implementation
// talks to Stripe; tests substitute a fake.
type StripeClient interface {
	FindOrCreateCustomer(ctx context.Context, email, name string) (string, error)
	CreateCheckoutSession(
		ctx context.Context,
		params CheckoutParams,
	) (*stripe.CheckoutSession, error)
	GetCheckoutSession(
		ctx context.Context,
		sessionID string,
	) (*stripe.CheckoutSession, error)
}

type stripeClient struct {
	api *client.API
}

func NewStripeClient(secretKey string) StripeClient {
	return &stripeClient{
		api: client.New(secretKey, nil),
	}
}

// FindOrCreateCustomer reuses an existing Stripe customer with the
// same email so repeat buyers keep one payment history.
func (c *stripeClient) FindOrCreateCustomer(
	ctx context.Context,
	email, name string,
) (string, error) {
	listParams := &stripe.CustomerListParams{
		Email: stripe.String(email),
	}
	listParams.Context = ctx
	listParams.Limit = stripe.Int64(1)

	iter := c.api.Customers.List(listParams)
	if iter.Next() {
		return iter.Customer().ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", fmt.Errorf("list stripe customers: %w", wrapStripeErr(err))
	}

	createParams := &stripe.CustomerParams{
		Email: stripe.String(email),
	}
	createParams.Context = ctx
	if name != "" {
		createParams.Name = stripe.String(name)
	}

	customer, err := c.api.Customers.New(createParams)
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", wrapStripeErr(err))
	}

	return customer.ID, nil
}

func (c *stripeClient) CreateCheckoutSession(
	ctx context.Context,
	p CheckoutParams,
) (*stripe.CheckoutSession, error) {
	productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name: stripe.String(p.ProductName),
	}
	if p.Description != "" {
		productData.Description = stripe.String(p.Description)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:     stripe.String(string(stripe.CheckoutSessionModePayment)),
		Customer: stripe.String(p.CustomerID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:    stripe.String(string(stripe.CurrencyUSD)),
					UnitAmount:  stripe.Int64(p.AmountCents),
					ProductData: productData,
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
	}
	params.Context = ctx
	params.AddMetadata("product_id", p.ProductID)
	params.AddMetadata("product_slug", p.ProductSlug)
	params.AddMetadata("customer_email", p.CustomerEmail)

	session, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", wrapStripeErr(err))
	}

	return session, nil
}

func (c *stripeClient) GetCheckoutSession(
	ctx context.Context,
	sessionID string,
) (*stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")

	session, err := c.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, fmt.Errorf("get checkout session: %w", wrapStripeErr(err))
	}

	return session, nil
}

// wrapStripeErr surfaces Stripe's own message while keeping the
// upstream sentinel checkable.
func wrapStripeErr(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		return fmt.Errorf("%s: %w", stripeErr.Msg, core.ErrUpstream)
	}
	return fmt.Errorf("%v: %w", err, core.ErrUpstream)
}
