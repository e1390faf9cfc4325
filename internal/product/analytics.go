// AngelaMos | 2026
// analytics.go

package product

import (
	"context"
	"sort"
)

type MonthlyBucket struct {
	Month   string  `json:"month"`
	Sales   int     `json:"sales"`
	Revenue float64 `json:"revenue"`
}

type ProductAnalyticsResponse struct {
	ProductID         string          `json:"product_id"`
	Name              string          `json:"name"`
	Views             int             `json:"views"`
	Sales             int             `json:"sales"`
	Revenue           float64         `json:"revenue"`
	ConversionRate    float64         `json:"conversion_rate"`
	AverageOrderValue float64         `json:"average_order_value"`
	Monthly           []MonthlyBucket `json:"monthly"`
}

// Analytics builds one product's owner dashboard: the live counters off
// the product row plus a month-bucketed series recomputed from its
// purchase rows on every call.
func (s *Service) Analytics(
	ctx context.Context,
	productID, creatorID string,
) (*ProductAnalyticsResponse, error) {
	p, err := s.repo.GetByID(ctx, productID, creatorID)
	if err != nil {
		return nil, err
	}

	purchases, err := s.repo.ListPurchasesByProduct(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	resp := &ProductAnalyticsResponse{
		ProductID: p.ID,
		Name:      p.Name,
		Views:     p.Views,
		Sales:     p.Sales,
		Revenue:   p.Revenue,
		Monthly:   BucketPurchasesByMonth(purchases),
	}

	if p.Views > 0 {
		resp.ConversionRate = float64(p.Sales) / float64(p.Views)
	}
	if p.Sales > 0 {
		resp.AverageOrderValue = p.Revenue / float64(p.Sales)
	}

	return resp, nil
}

// BucketPurchasesByMonth folds completed purchases into a month-keyed
// sales and revenue series, oldest month first. Pending, failed, and
// disputed purchases never contribute.
func BucketPurchasesByMonth(purchases []Purchase) []MonthlyBucket {
	byMonth := make(map[string]*MonthlyBucket)

	for i := range purchases {
		p := &purchases[i]
		if p.Status != StatusCompleted {
			continue
		}

		month := p.CreatedAt.UTC().Format("2006-01")
		bucket, ok := byMonth[month]
		if !ok {
			bucket = &MonthlyBucket{Month: month}
			byMonth[month] = bucket
		}
		bucket.Sales++
		bucket.Revenue += p.Amount
	}

	months := make([]string, 0, len(byMonth))
	for month := range byMonth {
		months = append(months, month)
	}
	sort.Strings(months)

	buckets := make([]MonthlyBucket, 0, len(months))
	for _, month := range months {
		buckets = append(buckets, *byMonth[month])
	}

	return buckets
}
