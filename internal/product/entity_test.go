// AngelaMos | 2026
// entity_test.go

package product

import (
	"math"
	"testing"
)

func TestPurchaseCounterDelta(t *testing.T) {
	const amount = 49.99

	tests := []struct {
		name        string
		from, to    string
		wantSales   int
		wantRevenue float64
	}{
		{"pending to completed", StatusPending, StatusCompleted, 1, amount},
		{"completed to disputed", StatusCompleted, StatusDisputed, -1, -amount},
		{"completed to failed", StatusCompleted, StatusFailed, -1, -amount},
		{"completed to refunded", StatusCompleted, StatusRefunded, -1, -amount},
		{"disputed back to completed", StatusDisputed, StatusCompleted, 1, amount},
		{"pending to failed", StatusPending, StatusFailed, 0, 0},
		{"failed to disputed", StatusFailed, StatusDisputed, 0, 0},
		{"completed replay", StatusCompleted, StatusCompleted, 0, 0},
		{"pending replay", StatusPending, StatusPending, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sales, revenue := purchaseCounterDelta(tt.from, tt.to, amount)
			if sales != tt.wantSales || revenue != tt.wantRevenue {
				t.Errorf("purchaseCounterDelta(%s, %s) = (%d, %.2f), want (%d, %.2f)",
					tt.from, tt.to, sales, revenue, tt.wantSales, tt.wantRevenue)
			}
		})
	}
}

// The product counters must equal the set of completed purchases after
// any sequence of webhook-driven status events.
func TestPurchaseCountersMatchCompleted(t *testing.T) {
	const amount = 19.99

	sequences := []struct {
		name   string
		events []string
	}{
		{"settle then dispute", []string{StatusCompleted, StatusDisputed}},
		{"settle, fail, settle again", []string{StatusCompleted, StatusFailed, StatusCompleted}},
		{"intent settles a pending purchase", []string{StatusPending, StatusCompleted}},
		{"dispute after refund attempt", []string{StatusCompleted, StatusRefunded, StatusDisputed}},
		{"duplicate success events", []string{StatusCompleted, StatusCompleted, StatusCompleted}},
		{"never settles", []string{StatusPending, StatusFailed, StatusFailed}},
	}

	for _, seq := range sequences {
		t.Run(seq.name, func(t *testing.T) {
			// Recording starts every purchase from the uncounted state.
			status := StatusPending
			sales := 0
			revenue := 0.0

			for _, next := range seq.events {
				ds, dr := purchaseCounterDelta(status, next, amount)
				sales += ds
				revenue += dr
				status = next

				wantSales := 0
				wantRevenue := 0.0
				if status == StatusCompleted {
					wantSales = 1
					wantRevenue = amount
				}

				if sales != wantSales || math.Abs(revenue-wantRevenue) > 1e-9 {
					t.Fatalf("after %s: counters = (%d, %.2f), want (%d, %.2f)",
						next, sales, revenue, wantSales, wantRevenue)
				}
			}
		})
	}
}
