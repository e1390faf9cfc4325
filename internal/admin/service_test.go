// AngelaMos | 2026
// service_test.go

package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/ascendlabs/ascend-api/internal/core"
	"github.com/ascendlabs/ascend-api/internal/user"
)

func TestPayoutTransitions(t *testing.T) {
	tests := []struct {
		from, to string
		allowed  bool
	}{
		{PayoutPending, PayoutProcessing, true},
		{PayoutProcessing, PayoutPaid, true},
		{PayoutProcessing, PayoutFailed, true},

		{PayoutPending, PayoutPaid, false},
		{PayoutPending, PayoutFailed, false},
		{PayoutPaid, PayoutProcessing, false},
		{PayoutPaid, PayoutFailed, false},
		{PayoutFailed, PayoutProcessing, false},
		{PayoutProcessing, PayoutPending, false},
		{PayoutPaid, PayoutPaid, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"_to_"+tt.to, func(t *testing.T) {
			if got := payoutTransitionAllowed(tt.from, tt.to); got != tt.allowed {
				t.Errorf("payoutTransitionAllowed(%q, %q) = %v, want %v",
					tt.from, tt.to, got, tt.allowed)
			}
		})
	}
}

func TestValidPayoutStatus(t *testing.T) {
	for _, status := range []string{
		PayoutPending, PayoutProcessing, PayoutPaid, PayoutFailed,
	} {
		if !ValidPayoutStatus(status) {
			t.Errorf("ValidPayoutStatus(%q) = false", status)
		}
	}
	if ValidPayoutStatus("cancelled") {
		t.Error(`ValidPayoutStatus("cancelled") = true`)
	}
}

type fakeAdminRepo struct {
	Repository

	payouts map[string]*Payout
	totals  ProductTotals
}

func (f *fakeAdminRepo) CreatePayout(_ context.Context, p *Payout) error {
	f.payouts[p.ID] = p
	return nil
}

func (f *fakeAdminRepo) ProductTotals(_ context.Context) (*ProductTotals, error) {
	return &f.totals, nil
}

type fakeUserRepo struct {
	user.Repository

	users  map[string]*user.User
	counts []user.PlanCount
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user %q: %w", id, core.ErrNotFound)
}

func (f *fakeUserRepo) PlanCounts(_ context.Context) ([]user.PlanCount, error) {
	return f.counts, nil
}

func TestPlatformStatsMRR(t *testing.T) {
	userRepo := &fakeUserRepo{
		counts: []user.PlanCount{
			{Plan: user.PlanFree, Total: 100, Active: 100, Paying: 0},
			{Plan: user.PlanStarter, Total: 12, Active: 12, Paying: 10},
			{Plan: user.PlanPro, Total: 5, Active: 5, Paying: 3},
			{Plan: user.PlanEmpire, Total: 2, Active: 2, Paying: 1},
		},
	}
	repo := &fakeAdminRepo{
		payouts: make(map[string]*Payout),
		totals:  ProductTotals{TotalProducts: 40, PublishedProducts: 25},
	}
	svc := NewService(repo, user.NewService(userRepo), slog.New(slog.DiscardHandler))

	stats, err := svc.PlatformStats(context.Background())
	if err != nil {
		t.Fatalf("PlatformStats() error = %v", err)
	}

	// Gifted and free subscriptions contribute nothing: only the
	// Paying column is priced (10*19 + 3*49 + 1*99).
	if want := float64(10*19 + 3*49 + 1*99); stats.SubscriptionMRR != want {
		t.Errorf("SubscriptionMRR = %v, want %v", stats.SubscriptionMRR, want)
	}
	if stats.Products.PublishedProducts != 25 {
		t.Errorf("PublishedProducts = %d, want 25", stats.Products.PublishedProducts)
	}
}

func TestCreatePayoutUnknownCreator(t *testing.T) {
	repo := &fakeAdminRepo{payouts: make(map[string]*Payout)}
	userRepo := &fakeUserRepo{users: map[string]*user.User{}}
	svc := NewService(repo, user.NewService(userRepo), slog.New(slog.DiscardHandler))

	amount := 125.50
	_, err := svc.CreatePayout(context.Background(), CreatePayoutRequest{
		CreatorID: "2b1f5be4-54c8-4f1c-94a8-aaaaaaaaaaaa",
		Amount:    &amount,
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
	if len(repo.payouts) != 0 {
		t.Error("payout created for unknown creator")
	}
}

func TestCreatePayout(t *testing.T) {
	creator := &user.User{ID: "2b1f5be4-54c8-4f1c-94a8-bbbbbbbbbbbb"}
	repo := &fakeAdminRepo{payouts: make(map[string]*Payout)}
	userRepo := &fakeUserRepo{users: map[string]*user.User{creator.ID: creator}}
	svc := NewService(repo, user.NewService(userRepo), slog.New(slog.DiscardHandler))

	amount := 125.50
	p, err := svc.CreatePayout(context.Background(), CreatePayoutRequest{
		CreatorID: creator.ID,
		Amount:    &amount,
		Notes:     "January sales",
	})
	if err != nil {
		t.Fatalf("CreatePayout() error = %v", err)
	}

	if p.Status != PayoutPending {
		t.Errorf("Status = %q, want pending", p.Status)
	}
	if p.Amount != 125.50 {
		t.Errorf("Amount = %v, want 125.50", p.Amount)
	}
	if _, ok := repo.payouts[p.ID]; !ok {
		t.Error("payout not persisted")
	}
}
