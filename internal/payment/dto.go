// AngelaMos | 2026
// dto.go

package payment

import (
	"time"

	"github.com/ascendlabs/ascend-api/internal/product"
)

type CustomerInfo struct {
	Email     string `json:"email"     validate:"required,email"`
	FirstName string `json:"firstName" validate:"omitempty,max=100"`
	LastName  string `json:"lastName"  validate:"omitempty,max=100"`
}

func (c CustomerInfo) FullName() string {
	switch {
	case c.FirstName != "" && c.LastName != "":
		return c.FirstName + " " + c.LastName
	case c.FirstName != "":
		return c.FirstName
	default:
		return c.LastName
	}
}

// CreateCheckoutRequest accepts either a product UUID or a slug.
type CreateCheckoutRequest struct {
	ProductID    string       `json:"productId"    validate:"omitempty,max=100"`
	Slug         string       `json:"slug"         validate:"omitempty,max=100"`
	CustomerInfo CustomerInfo `json:"customerInfo" validate:"required"`
}

func (r CreateCheckoutRequest) Identifier() string {
	if r.ProductID != "" {
		return r.ProductID
	}
	return r.Slug
}

type CheckoutSessionResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

type VerifySessionRequest struct {
	SessionID string `json:"sessionId" validate:"required,max=255"`
}

type PurchaseResponse struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"product_id"`
	CustomerEmail string    `json:"customer_email"`
	CustomerName  string    `json:"customer_name,omitempty"`
	Amount        float64   `json:"amount"`
	Status        string    `json:"status"`
	PurchasedAt   time.Time `json:"purchased_at"`
}

type VerifySessionResponse struct {
	Purchase        PurchaseResponse `json:"purchase"`
	AlreadyRecorded bool             `json:"already_recorded"`
	DownloadToken   string           `json:"download_token"`
	TokenExpiresAt  time.Time        `json:"token_expires_at"`
}

type AnalyticsResponse struct {
	TotalProducts     int                     `json:"total_products"`
	PublishedProducts int                     `json:"published_products"`
	TotalSales        int                     `json:"total_sales"`
	TotalRevenue      float64                 `json:"total_revenue"`
	TotalViews        int64                   `json:"total_views"`
	ConversionRate    float64                 `json:"conversion_rate"`
	AverageOrderValue float64                 `json:"average_order_value"`
	Monthly           []product.MonthlyBucket `json:"monthly"`
}

func ToPurchaseResponse(p *product.Purchase) PurchaseResponse {
	return PurchaseResponse{
		ID:            p.ID,
		ProductID:     p.ProductID,
		CustomerEmail: p.CustomerEmail,
		CustomerName:  p.CustomerName,
		Amount:        p.Amount,
		Status:        p.Status,
		PurchasedAt:   p.CreatedAt,
	}
}

func ToPurchaseResponseList(purchases []product.Purchase) []PurchaseResponse {
	responses := make([]PurchaseResponse, 0, len(purchases))
	for i := range purchases {
		responses = append(responses, ToPurchaseResponse(&purchases[i]))
	}
	return responses
}
