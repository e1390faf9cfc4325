// AngelaMos | 2026
// payout.go

package admin

import "time"

// Payout is money owed to a creator for their product sales.
type Payout struct {
	ID        string    `db:"id"`
	CreatorID string    `db:"creator_id"`
	Amount    float64   `db:"amount"`
	Status    string    `db:"status"`
	Notes     string    `db:"notes"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

const (
	PayoutPending    = "pending"
	PayoutProcessing = "processing"
	PayoutPaid       = "paid"
	PayoutFailed     = "failed"
)

// payoutTransitions encodes the allowed status moves: pending →
// processing → paid or failed. Terminal states never move.
var payoutTransitions = map[string][]string{
	PayoutPending:    {PayoutProcessing},
	PayoutProcessing: {PayoutPaid, PayoutFailed},
}

func ValidPayoutStatus(status string) bool {
	switch status {
	case PayoutPending, PayoutProcessing, PayoutPaid, PayoutFailed:
		return true
	default:
		return false
	}
}

func payoutTransitionAllowed(from, to string) bool {
	for _, allowed := range payoutTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

type CreatePayoutRequest struct {
	CreatorID string   `json:"creator_id" validate:"required,uuid"`
	Amount    *float64 `json:"amount"     validate:"required,gt=0"`
	Notes     string   `json:"notes"      validate:"omitempty,max=1000"`
}

type UpdatePayoutStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=processing paid failed"`
}

type PayoutResponse struct {
	ID        string    `json:"id"`
	CreatorID string    `json:"creator_id"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ToPayoutResponse(p *Payout) PayoutResponse {
	return PayoutResponse{
		ID:        p.ID,
		CreatorID: p.CreatorID,
		Amount:    p.Amount,
		Status:    p.Status,
		Notes:     p.Notes,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func ToPayoutResponseList(payouts []Payout) []PayoutResponse {
	responses := make([]PayoutResponse, 0, len(payouts))
	for i := range payouts {
		responses = append(responses, ToPayoutResponse(&payouts[i]))
	}
	return responses
}
