package cart

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"servicehub-be/internal/logger"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Repository stores one cart row per owner. Items and summary live in the
// same row, so every write replaces both together.
type Repository interface {
	GetByUserID(ctx context.Context, userID uint) (*Cart, error)

	// Create inserts a new cart at version 1. A cart already stored for
	// the owner is reported as ErrCartConflict.
	Create(ctx context.Context, c *Cart) error

	// Update writes c if the stored version still equals expectedVersion
	// and reports how many rows matched.
	Update(ctx context.Context, c *Cart, expectedVersion int64) (int64, error)

	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByUserID(ctx context.Context, userID uint) (*Cart, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Cart"),
		zap.String("method", "GetByUserID"),
	)

	query := `
	SELECT
		id,
		user_id,
		items,
		total_services,
		total_items,
		subtotal,
		tax_amount,
		total,
		version,
		last_updated,
		expires_at
	FROM carts
	WHERE user_id = $1
	`

	var c Cart
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&c.ID,
		&c.UserID,
		&c.Items,
		&c.Summary.TotalServices,
		&c.Summary.TotalItems,
		&c.Summary.Subtotal,
		&c.Summary.TaxAmount,
		&c.Summary.Total,
		&c.Version,
		&c.LastUpdated,
		&c.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		log.Error("failed to load cart", zap.Error(err))
		return nil, err
	}

	return &c, nil
}

func (r *repository) Create(ctx context.Context, c *Cart) error {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Cart"),
		zap.String("method", "Create"),
		zap.String("cart_id", c.ID.String()),
	)

	query := `
	INSERT INTO carts (
		id, user_id, items,
		total_services, total_items, subtotal, tax_amount, total,
		version, last_updated, expires_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9, $10)
	ON CONFLICT (user_id) DO NOTHING
	`

	res, err := r.db.ExecContext(ctx, query,
		c.ID, c.UserID, c.Items,
		c.Summary.TotalServices, c.Summary.TotalItems,
		c.Summary.Subtotal, c.Summary.TaxAmount, c.Summary.Total,
		c.LastUpdated, c.ExpiresAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == PgUniqueViolation {
			return ErrCartConflict
		}
		log.Error("failed to insert cart", zap.Error(err))
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		log.Error("failed to read rows affected", zap.Error(err))
		return err
	}
	if n == 0 {
		log.Warn("cart already exists for owner")
		return ErrCartConflict
	}

	c.Version = 1
	return nil
}

func (r *repository) Update(ctx context.Context, c *Cart, expectedVersion int64) (int64, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Cart"),
		zap.String("method", "Update"),
		zap.String("cart_id", c.ID.String()),
		zap.Int64("expected_version", expectedVersion),
	)

	query := `
	UPDATE carts
	SET items = $3,
	    total_services = $4,
	    total_items = $5,
	    subtotal = $6,
	    tax_amount = $7,
	    total = $8,
	    last_updated = $9,
	    expires_at = $10,
	    version = version + 1
	WHERE user_id = $1 AND version = $2
	`

	res, err := r.db.ExecContext(ctx, query,
		c.UserID, expectedVersion, c.Items,
		c.Summary.TotalServices, c.Summary.TotalItems,
		c.Summary.Subtotal, c.Summary.TaxAmount, c.Summary.Total,
		c.LastUpdated, c.ExpiresAt,
	)
	if err != nil {
		log.Error("failed to update cart", zap.Error(err))
		return 0, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		log.Error("failed to read rows affected", zap.Error(err))
		return 0, err
	}
	if n > 0 {
		c.Version = expectedVersion + 1
	}
	return n, nil
}

func (r *repository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE expires_at < $1`, before)
	if err != nil {
		logger.FromCtx(ctx).Error("failed to delete expired carts",
			zap.String("repo", "Cart"),
			zap.Error(err),
		)
		return 0, err
	}
	return res.RowsAffected()
}
