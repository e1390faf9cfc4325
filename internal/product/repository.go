// AngelaMos | 2026
// repository.go

package product

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/ascendlabs/ascend-api/internal/core"
)

type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id, creatorID string) (*Product, error)
	GetPublicByIdentifier(
		ctx context.Context,
		identifier string,
	) (*Product, error)
	IncrementViews(ctx context.Context, id string) error
	Update(ctx context.Context, p *Product) error
	TogglePublished(ctx context.Context, id, creatorID string) (bool, error)
	SoftDelete(ctx context.Context, id, creatorID string) error
	List(
		ctx context.Context,
		creatorID string,
		params ListProductsParams,
	) ([]Product, int, error)
	Stats(ctx context.Context, creatorID string) (*CreatorStats, error)
	SlugExists(ctx context.Context, slug string) (bool, error)

	AddFile(ctx context.Context, f *File) error
	GetFile(ctx context.Context, productID, fileID string) (*File, error)
	ListFiles(ctx context.Context, productID string) ([]File, error)
	DeleteFile(ctx context.Context, productID, fileID string) (*File, error)

	RecordPurchase(ctx context.Context, p *Purchase) (*RecordResult, error)
	GetPurchaseBySession(
		ctx context.Context,
		sessionID string,
	) (*Purchase, error)
	TransitionPurchaseByIntent(
		ctx context.Context,
		paymentIntentID, toStatus string,
	) error
	ListPurchasesByEmail(ctx context.Context, email string) ([]Purchase, error)
	ListPurchasesByBuyer(ctx context.Context, buyerID string) ([]Purchase, error)
	ListPurchasesByProduct(
		ctx context.Context,
		productID string,
	) ([]Purchase, error)
	ListPurchasesByCreator(
		ctx context.Context,
		creatorID string,
	) ([]Purchase, error)
	HasCompletedPurchase(
		ctx context.Context,
		productID, email string,
	) (bool, error)
}

// RecordResult reports whether a purchase was newly recorded or the
// session had already been seen (verify-session vs webhook race).
type RecordResult struct {
	Purchase *Purchase
	Recorded bool
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const productColumns = `id, creator_id, slug, name, description, category,
	       type, price, published, views, sales, revenue,
	       created_at, updated_at, deleted_at`

const purchaseColumns = `id, product_id, buyer_id, customer_email,
	       customer_name, amount, stripe_session_id, stripe_payment_intent,
	       status, created_at, updated_at`

func (r *repository) Create(ctx context.Context, p *Product) error {
	query := `
		INSERT INTO products (id, creator_id, slug, name, description,
		                      category, type, price, published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, p, query,
		p.ID,
		p.CreatorID,
		p.Slug,
		p.Name,
		p.Description,
		p.Category,
		p.Type,
		p.Price,
		p.Published,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create product: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create product: %w", err)
	}

	return nil
}

// GetByID is owner-scoped: the creator filter is part of the query
// shape, so cross-tenant reads are structurally impossible.
func (r *repository) GetByID(
	ctx context.Context,
	id, creatorID string,
) (*Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE id = $1 AND creator_id = $2 AND deleted_at IS NULL`,
		productColumns)

	var p Product
	err := r.db.GetContext(ctx, &p, query, id, creatorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get product: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	return &p, nil
}

// GetPublicByIdentifier resolves a product by ID or slug. Unpublished
// and soft-deleted products are invisible here regardless of a valid
// identifier.
func (r *repository) GetPublicByIdentifier(
	ctx context.Context,
	identifier string,
) (*Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE (id = $1 OR slug = $1)
		  AND published = TRUE
		  AND deleted_at IS NULL`,
		productColumns)

	var p Product
	err := r.db.GetContext(ctx, &p, query, identifier)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get public product: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get public product: %w", err)
	}

	return &p, nil
}

func (r *repository) IncrementViews(ctx context.Context, id string) error {
	query := `UPDATE products SET views = views + 1 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("increment views: %w", err)
	}

	return nil
}

func (r *repository) Update(ctx context.Context, p *Product) error {
	query := `
		UPDATE products
		SET name = $3, description = $4, category = $5, type = $6,
		    price = $7, updated_at = NOW()
		WHERE id = $1 AND creator_id = $2 AND deleted_at IS NULL
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &p.UpdatedAt, query,
		p.ID,
		p.CreatorID,
		p.Name,
		p.Description,
		p.Category,
		p.Type,
		p.Price,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update product: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}

	return nil
}

// TogglePublished flips the gate atomically; concurrent toggles resolve
// last-write-wins without ever erroring.
func (r *repository) TogglePublished(
	ctx context.Context,
	id, creatorID string,
) (bool, error) {
	query := `
		UPDATE products
		SET published = NOT published, updated_at = NOW()
		WHERE id = $1 AND creator_id = $2 AND deleted_at IS NULL
		RETURNING published`

	var published bool
	err := r.db.GetContext(ctx, &published, query, id, creatorID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("toggle published: %w", core.ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("toggle published: %w", err)
	}

	return published, nil
}

// SoftDelete unpublishes as it deletes so the checkout path cannot race
// a deleted product back into a cart. On-disk files stay; purchase
// history depends on the rows surviving.
func (r *repository) SoftDelete(ctx context.Context, id, creatorID string) error {
	query := `
		UPDATE products
		SET deleted_at = NOW(), published = FALSE, updated_at = NOW()
		WHERE id = $1 AND creator_id = $2 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, creatorID)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete product: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) List(
	ctx context.Context,
	creatorID string,
	params ListProductsParams,
) ([]Product, int, error) {
	params.Normalize()

	conditions := []string{"creator_id = $1", "deleted_at IS NULL"}
	args := []any{creatorID}
	argIdx := 2

	if params.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIdx))
		args = append(args, params.Category)
		argIdx++
	}

	if params.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(name ILIKE $%d OR description ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM products WHERE %s",
		whereClause,
	)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		productColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.Limit, params.Offset())

	var products []Product
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}

	return products, total, nil
}

func (r *repository) Stats(
	ctx context.Context,
	creatorID string,
) (*CreatorStats, error) {
	query := `
		SELECT COUNT(*) AS total_products,
		       COUNT(*) FILTER (WHERE published) AS published_products,
		       COALESCE(SUM(sales), 0) AS total_sales,
		       COALESCE(SUM(revenue), 0) AS total_revenue,
		       COALESCE(SUM(views), 0) AS total_views
		FROM products
		WHERE creator_id = $1 AND deleted_at IS NULL`

	var stats CreatorStats
	if err := r.db.GetContext(ctx, &stats, query, creatorID); err != nil {
		return nil, fmt.Errorf("creator stats: %w", err)
	}

	return &stats, nil
}

func (r *repository) SlugExists(
	ctx context.Context,
	slug string,
) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM products WHERE slug = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, slug); err != nil {
		return false, fmt.Errorf("check slug exists: %w", err)
	}

	return exists, nil
}

func (r *repository) AddFile(ctx context.Context, f *File) error {
	query := `
		INSERT INTO product_files (id, product_id, filename, original_name,
		                           file_type, size_bytes, size_label, path,
		                           mime_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &f.CreatedAt, query,
		f.ID,
		f.ProductID,
		f.Filename,
		f.OriginalName,
		f.FileType,
		f.SizeBytes,
		f.SizeLabel,
		f.Path,
		f.MimeType,
	)
	if err != nil {
		return fmt.Errorf("add file: %w", err)
	}

	return nil
}

func (r *repository) GetFile(
	ctx context.Context,
	productID, fileID string,
) (*File, error) {
	query := `
		SELECT id, product_id, filename, original_name, file_type,
		       size_bytes, size_label, path, mime_type, created_at
		FROM product_files
		WHERE id = $1 AND product_id = $2`

	var f File
	err := r.db.GetContext(ctx, &f, query, fileID, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get file: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	return &f, nil
}

func (r *repository) ListFiles(
	ctx context.Context,
	productID string,
) ([]File, error) {
	query := `
		SELECT id, product_id, filename, original_name, file_type,
		       size_bytes, size_label, path, mime_type, created_at
		FROM product_files
		WHERE product_id = $1
		ORDER BY created_at`

	var files []File
	if err := r.db.SelectContext(ctx, &files, query, productID); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	return files, nil
}

// DeleteFile removes the row and returns the deleted file so the caller
// can unlink the on-disk artifact.
func (r *repository) DeleteFile(
	ctx context.Context,
	productID, fileID string,
) (*File, error) {
	query := `
		DELETE FROM product_files
		WHERE id = $1 AND product_id = $2
		RETURNING id, product_id, filename, original_name, file_type,
		          size_bytes, size_label, path, mime_type, created_at`

	var f File
	err := r.db.GetContext(ctx, &f, query, fileID, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("delete file: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("delete file: %w", err)
	}

	return &f, nil
}

// RecordPurchase appends a purchase and bumps the product's sales and
// revenue counters in one transaction. The unique index on
// stripe_session_id makes the operation idempotent: replaying the same
// session (client verify plus webhook) records exactly once.
func (r *repository) RecordPurchase(
	ctx context.Context,
	p *Purchase,
) (*RecordResult, error) {
	var result RecordResult

	err := core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		insert := `
			INSERT INTO purchases (id, product_id, buyer_id, customer_email,
			                       customer_name, amount, stripe_session_id,
			                       stripe_payment_intent, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (stripe_session_id) DO NOTHING
			RETURNING created_at, updated_at`

		err := tx.QueryRowxContext(ctx, insert,
			p.ID,
			p.ProductID,
			p.BuyerID,
			p.CustomerEmail,
			p.CustomerName,
			p.Amount,
			p.StripeSessionID,
			p.StripePaymentIntent,
			p.Status,
		).Scan(&p.CreatedAt, &p.UpdatedAt)

		if errors.Is(err, sql.ErrNoRows) {
			existing, getErr := getPurchaseBySessionTx(
				ctx,
				tx,
				p.StripeSessionID,
			)
			if getErr != nil {
				return getErr
			}
			result.Purchase = existing
			result.Recorded = false
			return nil
		}
		if err != nil {
			return fmt.Errorf("insert purchase: %w", err)
		}

		// A fresh row starts uncounted, so inserting is a transition
		// out of pending.
		if sales, revenue := purchaseCounterDelta(StatusPending, p.Status, p.Amount); sales != 0 {
			if err := adjustCounters(ctx, tx, p.ProductID, sales, revenue); err != nil {
				return err
			}
		}

		result.Purchase = p
		result.Recorded = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *repository) GetPurchaseBySession(
	ctx context.Context,
	sessionID string,
) (*Purchase, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM purchases
		WHERE stripe_session_id = $1`, purchaseColumns)

	var p Purchase
	err := r.db.GetContext(ctx, &p, query, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get purchase: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get purchase: %w", err)
	}

	return &p, nil
}

// TransitionPurchaseByIntent moves a purchase to a new status and keeps
// the product counters consistent with the set of completed purchases.
// The purchase row is locked for the duration so a concurrent webhook
// replay cannot double-adjust.
func (r *repository) TransitionPurchaseByIntent(
	ctx context.Context,
	paymentIntentID, toStatus string,
) error {
	if !ValidStatus(toStatus) {
		return fmt.Errorf(
			"transition purchase: invalid status %q: %w",
			toStatus,
			core.ErrInvalidInput,
		)
	}

	return core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := fmt.Sprintf(`
			SELECT %s
			FROM purchases
			WHERE stripe_payment_intent = $1
			FOR UPDATE`, purchaseColumns)

		var p Purchase
		err := tx.GetContext(ctx, &p, query, paymentIntentID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("transition purchase: %w", core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("transition purchase: %w", err)
		}

		if p.Status == toStatus {
			return nil
		}

		if sales, revenue := purchaseCounterDelta(p.Status, toStatus, p.Amount); sales != 0 {
			if err := adjustCounters(ctx, tx, p.ProductID, sales, revenue); err != nil {
				return err
			}
		}

		update := `
			UPDATE purchases
			SET status = $2, updated_at = NOW()
			WHERE id = $1`

		if _, err := tx.ExecContext(ctx, update, p.ID, toStatus); err != nil {
			return fmt.Errorf("transition purchase: %w", err)
		}

		return nil
	})
}

func (r *repository) ListPurchasesByEmail(
	ctx context.Context,
	email string,
) ([]Purchase, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM purchases
		WHERE customer_email = $1
		ORDER BY created_at DESC`, purchaseColumns)

	var purchases []Purchase
	if err := r.db.SelectContext(ctx, &purchases, query, email); err != nil {
		return nil, fmt.Errorf("list purchases by email: %w", err)
	}

	return purchases, nil
}

func (r *repository) ListPurchasesByBuyer(
	ctx context.Context,
	buyerID string,
) ([]Purchase, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM purchases
		WHERE buyer_id = $1
		ORDER BY created_at DESC`, purchaseColumns)

	var purchases []Purchase
	if err := r.db.SelectContext(ctx, &purchases, query, buyerID); err != nil {
		return nil, fmt.Errorf("list purchases by buyer: %w", err)
	}

	return purchases, nil
}

func (r *repository) ListPurchasesByProduct(
	ctx context.Context,
	productID string,
) ([]Purchase, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM purchases
		WHERE product_id = $1
		ORDER BY created_at`, purchaseColumns)

	var purchases []Purchase
	if err := r.db.SelectContext(ctx, &purchases, query, productID); err != nil {
		return nil, fmt.Errorf("list purchases by product: %w", err)
	}

	return purchases, nil
}

// ListPurchasesByCreator returns every purchase across the creator's
// products, deleted products included so history survives a delete.
func (r *repository) ListPurchasesByCreator(
	ctx context.Context,
	creatorID string,
) ([]Purchase, error) {
	query := `
		SELECT pu.id, pu.product_id, pu.buyer_id, pu.customer_email,
		       pu.customer_name, pu.amount, pu.stripe_session_id,
		       pu.stripe_payment_intent, pu.status, pu.created_at,
		       pu.updated_at
		FROM purchases pu
		JOIN products pr ON pr.id = pu.product_id
		WHERE pr.creator_id = $1
		ORDER BY pu.created_at`

	var purchases []Purchase
	if err := r.db.SelectContext(ctx, &purchases, query, creatorID); err != nil {
		return nil, fmt.Errorf("list purchases by creator: %w", err)
	}

	return purchases, nil
}

func (r *repository) HasCompletedPurchase(
	ctx context.Context,
	productID, email string,
) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM purchases
			WHERE product_id = $1
			  AND customer_email = $2
			  AND status = $3
		)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, productID, email, StatusCompleted)
	if err != nil {
		return false, fmt.Errorf("check completed purchase: %w", err)
	}

	return exists, nil
}

func getPurchaseBySessionTx(
	ctx context.Context,
	tx *sqlx.Tx,
	sessionID string,
) (*Purchase, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM purchases
		WHERE stripe_session_id = $1`, purchaseColumns)

	var p Purchase
	err := tx.GetContext(ctx, &p, query, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get purchase: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get purchase: %w", err)
	}

	return &p, nil
}

func adjustCounters(
	ctx context.Context,
	tx *sqlx.Tx,
	productID string,
	salesDelta int,
	revenueDelta float64,
) error {
	query := `
		UPDATE products
		SET sales = sales + $2, revenue = revenue + $3, updated_at = NOW()
		WHERE id = $1`

	if _, err := tx.ExecContext(ctx, query, productID, salesDelta, revenueDelta); err != nil {
		return fmt.Errorf("adjust product counters: %w", err)
	}

	return nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
