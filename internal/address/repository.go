package address

import (
	"context"
	"database/sql"
	"errors"

	"servicehub-be/internal/logger"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Repository is the address store. Conditional writes report how many rows
// matched their filter so callers can tell a lost precondition from success.
type Repository interface {
	GetByID(ctx context.Context, userID uint, id uuid.UUID) (*Address, error)
	ListByUser(ctx context.Context, userID uint, active bool) ([]*Address, error)
	CountActive(ctx context.Context, userID uint) (int, error)
	HasDefault(ctx context.Context, userID uint) (bool, error)

	Create(ctx context.Context, addr *Address) error
	Update(ctx context.Context, addr *Address) (int64, error)

	ClearDefault(ctx context.Context, userID uint, exceptID uuid.UUID) (int64, error)
	SetDefault(ctx context.Context, userID uint, id uuid.UUID) (int64, error)
	UnsetDefault(ctx context.Context, userID uint, id uuid.UUID) (int64, error)

	Deactivate(ctx context.Context, userID uint, id uuid.UUID) (int64, error)
	Restore(ctx context.Context, userID uint, id uuid.UUID) (int64, error)
	Delete(ctx context.Context, userID uint, id uuid.UUID) (int64, error)

	// WithinTx runs fn against a view of the store whose writes commit
	// together or not at all.
	WithinTx(ctx context.Context, fn func(Repository) error) error
}

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repository struct {
	db *sql.DB
	q  dbtx
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db, q: db}
}

const selectColumns = `
	SELECT
		id, user_id,
		house, street, full_address, landmark,
		pincode, city, state, country, phone,
		address_type, is_default, is_active,
		created_at, updated_at
	FROM addresses
`

type scanner interface {
	Scan(dest ...any) error
}

func scanAddress(s scanner) (*Address, error) {
	var a Address
	if err := s.Scan(
		&a.ID, &a.UserID,
		&a.House, &a.Street, &a.FullAddress, &a.Landmark,
		&a.Pincode, &a.City, &a.State, &a.Country, &a.Phone,
		&a.AddressType, &a.IsDefault, &a.IsActive,
		&a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repository) WithinTx(ctx context.Context, fn func(Repository) error) error {
	if _, inTx := r.q.(*sql.Tx); inTx {
		return fn(r)
	}

	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Address"),
		zap.String("method", "WithinTx"),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("begin failed", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	if err := fn(&repository{db: r.db, q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		log.Error("commit failed", zap.Error(err))
		return mapWriteErr(err)
	}
	return nil
}

func (r *repository) GetByID(
	ctx context.Context,
	userID uint,
	id uuid.UUID,
) (*Address, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Address"),
		zap.String("method", "GetByID"),
		zap.String("address_id", id.String()),
	)

	const q = selectColumns + `
		WHERE id = $1 AND user_id = $2
		LIMIT 1
	`

	a, err := scanAddress(r.q.QueryRowContext(ctx, q, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}

	return a, nil
}

func (r *repository) ListByUser(
	ctx context.Context,
	userID uint,
	active bool,
) ([]*Address, error) {

	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Address"),
		zap.String("method", "ListByUser"),
		zap.Bool("active", active),
	)

	const q = selectColumns + `
		WHERE user_id = $1
		  AND is_active = $2
		ORDER BY is_default DESC, created_at DESC
	`

	rows, err := r.q.QueryContext(ctx, q, userID, active)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	res := make([]*Address, 0)
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			log.Error("scan failed", zap.Error(err))
			return nil, err
		}
		res = append(res, a)
	}
	if err := rows.Err(); err != nil {
		log.Error("rows iteration failed", zap.Error(err))
		return nil, err
	}

	return res, nil
}

func (r *repository) CountActive(ctx context.Context, userID uint) (int, error) {
	const q = `
		SELECT COUNT(*)
		FROM addresses
		WHERE user_id = $1 AND is_active = true
	`

	var n int
	if err := r.q.QueryRowContext(ctx, q, userID).Scan(&n); err != nil {
		logger.FromCtx(ctx).Error("count active addresses failed",
			zap.String("repo", "Address"),
			zap.Error(err),
		)
		return 0, err
	}
	return n, nil
}

func (r *repository) HasDefault(ctx context.Context, userID uint) (bool, error) {
	const q = `
		SELECT EXISTS(
			SELECT 1 FROM addresses
			WHERE user_id = $1 AND is_active = true AND is_default = true
		)
	`

	var exists bool
	if err := r.q.QueryRowContext(ctx, q, userID).Scan(&exists); err != nil {
		logger.FromCtx(ctx).Error("default lookup failed",
			zap.String("repo", "Address"),
			zap.Error(err),
		)
		return false, err
	}
	return exists, nil
}

func (r *repository) Create(ctx context.Context, addr *Address) error {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Address"),
		zap.String("method", "Create"),
		zap.String("address_id", addr.ID.String()),
	)

	const q = `
		INSERT INTO addresses (
			id, user_id,
			house, street, full_address, landmark,
			pincode, city, state, country, phone,
			address_type, is_default, is_active,
			created_at, updated_at
		) VALUES (
			$1, $2,
			$3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, $13, $14,
			$15, $16
		)
	`

	_, err := r.q.ExecContext(
		ctx, q,
		addr.ID, addr.UserID,
		addr.House, addr.Street, addr.FullAddress, addr.Landmark,
		addr.Pincode, addr.City, addr.State, addr.Country, addr.Phone,
		addr.AddressType, addr.IsDefault, addr.IsActive,
		addr.CreatedAt, addr.UpdatedAt,
	)
	if err != nil {
		log.Error("insert failed", zap.Error(err))
		return mapWriteErr(err)
	}

	return nil
}

func (r *repository) Update(ctx context.Context, addr *Address) (int64, error) {
	const q = `
		UPDATE addresses
		SET house = $3, street = $4, full_address = $5, landmark = $6,
		    pincode = $7, city = $8, state = $9, country = $10, phone = $11,
		    address_type = $12, updated_at = $13
		WHERE id = $1 AND user_id = $2 AND is_active = true
	`

	return r.exec(ctx, "Update", q,
		addr.ID, addr.UserID,
		addr.House, addr.Street, addr.FullAddress, addr.Landmark,
		addr.Pincode, addr.City, addr.State, addr.Country, addr.Phone,
		addr.AddressType, addr.UpdatedAt,
	)
}

// ClearDefault unsets the default flag on every active address of the owner
// except exceptID.
func (r *repository) ClearDefault(
	ctx context.Context,
	userID uint,
	exceptID uuid.UUID,
) (int64, error) {

	const q = `
		UPDATE addresses
		SET is_default = false, updated_at = NOW()
		WHERE user_id = $1
		  AND is_default = true
		  AND id <> $2
	`

	return r.exec(ctx, "ClearDefault", q, userID, exceptID)
}

func (r *repository) SetDefault(
	ctx context.Context,
	userID uint,
	id uuid.UUID,
) (int64, error) {

	const q = `
		UPDATE addresses
		SET is_default = true, updated_at = NOW()
		WHERE user_id = $1
		  AND id = $2
		  AND is_active = true
	`

	return r.exec(ctx, "SetDefault", q, userID, id)
}

func (r *repository) UnsetDefault(
	ctx context.Context,
	userID uint,
	id uuid.UUID,
) (int64, error) {

	const q = `
		UPDATE addresses
		SET is_default = false, updated_at = NOW()
		WHERE user_id = $1
		  AND id = $2
		  AND is_active = true
	`

	return r.exec(ctx, "UnsetDefault", q, userID, id)
}

func (r *repository) Deactivate(
	ctx context.Context,
	userID uint,
	id uuid.UUID,
) (int64, error) {

	const q = `
		UPDATE addresses
		SET is_active = false,
		    is_default = false,
		    updated_at = NOW()
		WHERE user_id = $1
		  AND id = $2
		  AND is_active = true
	`

	return r.exec(ctx, "Deactivate", q, userID, id)
}

func (r *repository) Restore(
	ctx context.Context,
	userID uint,
	id uuid.UUID,
) (int64, error) {

	const q = `
		UPDATE addresses
		SET is_active = true,
		    is_default = false,
		    updated_at = NOW()
		WHERE user_id = $1
		  AND id = $2
		  AND is_active = false
	`

	return r.exec(ctx, "Restore", q, userID, id)
}

func (r *repository) Delete(
	ctx context.Context,
	userID uint,
	id uuid.UUID,
) (int64, error) {

	const q = `
		DELETE FROM addresses
		WHERE user_id = $1
		  AND id = $2
		  AND is_active = false
	`

	return r.exec(ctx, "Delete", q, userID, id)
}

func (r *repository) exec(ctx context.Context, method, q string, args ...any) (int64, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("repo", "Address"),
		zap.String("method", method),
	)
	log.Debug("executing write")

	res, err := r.q.ExecContext(ctx, q, args...)
	if err != nil {
		log.Error("write failed", zap.Error(err))
		return 0, mapWriteErr(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		log.Error("rows affected failed", zap.Error(err))
		return 0, err
	}
	return n, nil
}

// mapWriteErr turns a violation of the one-default-per-owner index into the
// retryable conflict error.
func mapWriteErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == PgUniqueViolation {
		return ErrDefaultConflict
	}
	return err
}
