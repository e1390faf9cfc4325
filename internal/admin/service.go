// AngelaMos | 2026
// service.go

package admin

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ascendlabs/ascend-api/internal/user"
)

// planPrices is the monthly price per paid plan, used for the MRR
// aggregate on the admin dashboard.
var planPrices = map[string]float64{
	user.PlanStarter: 19,
	user.PlanPro:     49,
	user.PlanEmpire:  99,
}

type PlatformStatsResponse struct {
	Users           []user.PlanCount `json:"users"`
	Products        ProductTotals    `json:"products"`
	SubscriptionMRR float64          `json:"subscription_mrr"`
}

type Service struct {
	repo   Repository
	users  *user.Service
	logger *slog.Logger
}

func NewService(
	repo Repository,
	users *user.Service,
	logger *slog.Logger,
) *Service {
	return &Service{
		repo:   repo,
		users:  users,
		logger: logger,
	}
}

// PlatformStats aggregates the marketplace for the admin dashboard.
// MRR counts only paying subscribers, so gifted plans contribute
// nothing to revenue.
func (s *Service) PlatformStats(
	ctx context.Context,
) (*PlatformStatsResponse, error) {
	counts, err := s.users.PlanCounts(ctx)
	if err != nil {
		return nil, err
	}

	totals, err := s.repo.ProductTotals(ctx)
	if err != nil {
		return nil, err
	}

	var mrr float64
	for _, c := range counts {
		mrr += float64(c.Paying) * planPrices[c.Plan]
	}

	return &PlatformStatsResponse{
		Users:           counts,
		Products:        *totals,
		SubscriptionMRR: mrr,
	}, nil
}

func (s *Service) CreatePayout(
	ctx context.Context,
	req CreatePayoutRequest,
) (*Payout, error) {
	// The creator must exist; a typo'd UUID should fail loudly here,
	// not at payment time.
	if _, err := s.users.GetUser(ctx, req.CreatorID); err != nil {
		return nil, err
	}

	p := &Payout{
		ID:        uuid.New().String(),
		CreatorID: req.CreatorID,
		Amount:    *req.Amount,
		Status:    PayoutPending,
		Notes:     req.Notes,
	}
	if err := s.repo.CreatePayout(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("payout created",
		slog.String("payout_id", p.ID),
		slog.String("creator_id", p.CreatorID),
		slog.Float64("amount", p.Amount),
	)

	return p, nil
}

func (s *Service) ListPayouts(
	ctx context.Context,
	status string,
) ([]Payout, error) {
	return s.repo.ListPayouts(ctx, status)
}

func (s *Service) UpdatePayoutStatus(
	ctx context.Context,
	id, status string,
) (*Payout, error) {
	p, err := s.repo.UpdatePayoutStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}

	s.logger.Info("payout status updated",
		slog.String("payout_id", p.ID),
		slog.String("status", p.Status),
	)

	return p, nil
}
