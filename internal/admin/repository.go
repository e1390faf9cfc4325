// AngelaMos | 2026
// repository.go

package admin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ascendlabs/ascend-api/internal/core"
)

type Repository interface {
	CreatePayout(ctx context.Context, p *Payout) error
	GetPayout(ctx context.Context, id string) (*Payout, error)
	ListPayouts(ctx context.Context, status string) ([]Payout, error)
	UpdatePayoutStatus(ctx context.Context, id, status string) (*Payout, error)

	ProductTotals(ctx context.Context) (*ProductTotals, error)
}

// ProductTotals is the marketplace-wide aggregate for the admin
// dashboard.
type ProductTotals struct {
	TotalProducts     int     `db:"total_products"`
	PublishedProducts int     `db:"published_products"`
	TotalSales        int     `db:"total_sales"`
	TotalRevenue      float64 `db:"total_revenue"`
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const payoutColumns = `id, creator_id, amount, status, notes,
	       created_at, updated_at`

func (r *repository) CreatePayout(ctx context.Context, p *Payout) error {
	query := `
		INSERT INTO payouts (id, creator_id, amount, status, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, p, query,
		p.ID,
		p.CreatorID,
		p.Amount,
		p.Status,
		p.Notes,
	)
	if err != nil {
		return fmt.Errorf("create payout: %w", err)
	}

	return nil
}

func (r *repository) GetPayout(ctx context.Context, id string) (*Payout, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM payouts WHERE id = $1",
		payoutColumns,
	)

	var p Payout
	err := r.db.GetContext(ctx, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get payout: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get payout: %w", err)
	}

	return &p, nil
}

func (r *repository) ListPayouts(
	ctx context.Context,
	status string,
) ([]Payout, error) {
	var (
		query string
		args  []any
	)

	if status != "" {
		query = fmt.Sprintf(
			"SELECT %s FROM payouts WHERE status = $1 ORDER BY created_at DESC",
			payoutColumns,
		)
		args = []any{status}
	} else {
		query = fmt.Sprintf(
			"SELECT %s FROM payouts ORDER BY created_at DESC",
			payoutColumns,
		)
	}

	var payouts []Payout
	if err := r.db.SelectContext(ctx, &payouts, query, args...); err != nil {
		return nil, fmt.Errorf("list payouts: %w", err)
	}

	return payouts, nil
}

// UpdatePayoutStatus moves the payout through the lifecycle inside a
// transaction so two admins cannot race the same transition.
func (r *repository) UpdatePayoutStatus(
	ctx context.Context,
	id, status string,
) (*Payout, error) {
	var updated Payout

	err := core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := fmt.Sprintf(
			"SELECT %s FROM payouts WHERE id = $1 FOR UPDATE",
			payoutColumns,
		)

		var p Payout
		err := tx.GetContext(ctx, &p, query, id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("update payout: %w", core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("update payout: %w", err)
		}

		if !payoutTransitionAllowed(p.Status, status) {
			return fmt.Errorf(
				"payout cannot move from %s to %s: %w",
				p.Status,
				status,
				core.ErrInvalidInput,
			)
		}

		update := `
			UPDATE payouts
			SET status = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING ` + payoutColumns

		if err := tx.GetContext(ctx, &updated, update, id, status); err != nil {
			return fmt.Errorf("update payout: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

func (r *repository) ProductTotals(ctx context.Context) (*ProductTotals, error) {
	query := `
		SELECT COUNT(*) AS total_products,
		       COUNT(*) FILTER (WHERE published) AS published_products,
		       COALESCE(SUM(sales), 0) AS total_sales,
		       COALESCE(SUM(revenue), 0) AS total_revenue
		FROM products
		WHERE deleted_at IS NULL`

	var totals ProductTotals
	if err := r.db.GetContext(ctx, &totals, query); err != nil {
		return nil, fmt.Errorf("product totals: %w", err)
	}

	return &totals, nil
}
