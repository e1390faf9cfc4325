// AngelaMos | 2026
// entity.go

package product

import (
	"time"
)

// Product is a creator-owned sellable digital good. Files and purchases
// live in their own tables but have no lifecycle independent of the
// product that owns them.
type Product struct {
	ID          string     `db:"id"`
	CreatorID   string     `db:"creator_id"`
	Slug        string     `db:"slug"`
	Name        string     `db:"name"`
	Description string     `db:"description"`
	Category    string     `db:"category"`
	Type        string     `db:"type"`
	Price       float64    `db:"price"`
	Published   bool       `db:"published"`
	Views       int        `db:"views"`
	Sales       int        `db:"sales"`
	Revenue     float64    `db:"revenue"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
	DeletedAt   *time.Time `db:"deleted_at"`
}

func (p *Product) IsDeleted() bool {
	return p.DeletedAt != nil
}

type File struct {
	ID           string    `db:"id"`
	ProductID    string    `db:"product_id"`
	Filename     string    `db:"filename"`
	OriginalName string    `db:"original_name"`
	FileType     string    `db:"file_type"`
	SizeBytes    int64     `db:"size_bytes"`
	SizeLabel    string    `db:"size_label"`
	Path         string    `db:"path"`
	MimeType     string    `db:"mime_type"`
	CreatedAt    time.Time `db:"created_at"`
}

// Purchase records one buyer paying for one product via one Stripe
// checkout session. Once completed it is immutable except for the
// webhook-driven status transitions.
type Purchase struct {
	ID                  string    `db:"id"`
	ProductID           string    `db:"product_id"`
	BuyerID             *string   `db:"buyer_id"`
	CustomerEmail       string    `db:"customer_email"`
	CustomerName        string    `db:"customer_name"`
	Amount              float64   `db:"amount"`
	StripeSessionID     string    `db:"stripe_session_id"`
	StripePaymentIntent string    `db:"stripe_payment_intent"`
	Status              string    `db:"status"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusRefunded  = "refunded"
	StatusDisputed  = "disputed"
)

const (
	TypeDigital = "digital"
	TypeService = "service"
)

const (
	CategoryCourse   = "course"
	CategoryEbook    = "ebook"
	CategoryTemplate = "template"
	CategorySoftware = "software"
	CategoryGraphics = "graphics"
	CategoryAudio    = "audio"
	CategoryVideo    = "video"
	CategoryOther    = "other"
)

func ValidCategory(category string) bool {
	switch category {
	case CategoryCourse, CategoryEbook, CategoryTemplate, CategorySoftware,
		CategoryGraphics, CategoryAudio, CategoryVideo, CategoryOther:
		return true
	}
	return false
}

func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusCompleted, StatusFailed,
		StatusRefunded, StatusDisputed:
		return true
	}
	return false
}

// purchaseCounterDelta reports how a product's sales and revenue
// counters change when a purchase of the given amount moves between
// statuses. Only completed purchases count toward the totals, so the
// delta is nonzero exactly when a transition crosses the completed
// boundary in either direction.
func purchaseCounterDelta(from, to string, amount float64) (sales int, revenue float64) {
	wasCounted := from == StatusCompleted
	willCount := to == StatusCompleted

	switch {
	case wasCounted && !willCount:
		return -1, -amount
	case !wasCounted && willCount:
		return 1, amount
	default:
		return 0, 0
	}
}
