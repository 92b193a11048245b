package address

import (
	"context"
	"errors"
	"time"

	"servicehub-be/internal/apperror"
	"servicehub-be/internal/lock"
	"servicehub-be/internal/logger"
	"servicehub-be/internal/metrics"
	"servicehub-be/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service owns every change to an owner's default address. Each mutation
// holds the owner lock and runs in one store transaction, so at most one
// active address per owner is default once the call returns.
type Service interface {
	List(ctx context.Context) ([]*Address, error)
	ListDeleted(ctx context.Context) ([]*Address, error)
	Get(ctx context.Context, addressID uuid.UUID) (*Address, error)
	GetDefault(ctx context.Context) (*Address, error)

	Create(ctx context.Context, input CreateAddressInput) (*Result, error)
	Update(ctx context.Context, input UpdateAddressInput) (*Result, error)
	SetDefault(ctx context.Context, addressID uuid.UUID) (*Result, error)
	SoftDelete(ctx context.Context, addressID uuid.UUID) (*Result, error)
	Restore(ctx context.Context, addressID uuid.UUID) (*Result, error)
	HardDelete(ctx context.Context, addressID uuid.UUID) error
}

type service struct {
	repo    Repository
	locker  lock.Locker
	metrics *metrics.Recorder
	now     func() time.Time
}

func NewService(repo Repository, locker lock.Locker, rec *metrics.Recorder) Service {
	return &service{
		repo:    repo,
		locker:  locker,
		metrics: rec,
		now:     time.Now,
	}
}

func (s *service) List(ctx context.Context) ([]*Address, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	logger.FromCtx(ctx).Debug("listing addresses",
		zap.String("service", "Address"),
		zap.String("method", "List"),
	)

	return s.repo.ListByUser(ctx, userID, true)
}

func (s *service) ListDeleted(ctx context.Context) ([]*Address, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}
	return s.repo.ListByUser(ctx, userID, false)
}

func (s *service) Get(ctx context.Context, addressID uuid.UUID) (*Address, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	addr, err := s.repo.GetByID(ctx, userID, addressID)
	if err != nil {
		return nil, apperror.Wrap(err, userID, addressID.String())
	}
	if !addr.IsActive {
		return nil, apperror.Wrap(ErrAddressNotFound, userID, addressID.String())
	}

	return addr, nil
}

func (s *service) GetDefault(ctx context.Context) (*Address, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	addrs, err := s.repo.ListByUser(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	for _, a := range addrs {
		if a.IsDefault {
			return a, nil
		}
	}

	return nil, apperror.Wrap(ErrNoDefaultAddress, userID, "")
}

func (s *service) Create(ctx context.Context, input CreateAddressInput) (*Result, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	log := logger.FromCtx(ctx).With(
		zap.String("service", "Address"),
		zap.String("method", "Create"),
	)

	res := &Result{}
	err := s.mutate(ctx, userID, func(tx Repository) error {
		active, err := tx.CountActive(ctx, userID)
		if err != nil {
			return err
		}
		if active >= MaxActivePerOwner {
			return apperror.Wrap(ErrAddressLimit, userID, "")
		}

		hasDefault, err := tx.HasDefault(ctx, userID)
		if err != nil {
			return err
		}

		now := s.now()
		addr := &Address{
			ID:        uuid.New(),
			UserID:    userID,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		addr.apply(input.Fields)

		res.Reason = defaultReason(active, input.SetAsDefault, hasDefault)
		addr.IsDefault = res.Reason != ReasonNone

		if addr.IsDefault {
			if _, err := tx.ClearDefault(ctx, userID, addr.ID); err != nil {
				return err
			}
		}
		if err := tx.Create(ctx, addr); err != nil {
			return apperror.Wrap(err, userID, addr.ID.String())
		}

		res.Address = addr
		res.Addresses, err = tx.ListByUser(ctx, userID, true)
		return err
	})
	if err != nil {
		return nil, s.observe(err)
	}

	if res.Address.IsDefault {
		s.metrics.DefaultAssigned(string(res.Reason))
	}
	log.Info("address created",
		zap.String("address_id", res.Address.ID.String()),
		zap.Bool("is_default", res.Address.IsDefault),
		zap.String("reason", string(res.Reason)),
	)
	return res, nil
}

func (s *service) Update(ctx context.Context, input UpdateAddressInput) (*Result, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	recordID := input.AddressID.String()
	log := logger.FromCtx(ctx).With(
		zap.String("service", "Address"),
		zap.String("method", "Update"),
		zap.String("address_id", recordID),
	)

	res := &Result{}
	err := s.mutate(ctx, userID, func(tx Repository) error {
		addr, err := activeAddress(ctx, tx, userID, input.AddressID)
		if err != nil {
			return err
		}

		addr.apply(input.Fields)
		addr.UpdatedAt = s.now()
		n, err := tx.Update(ctx, addr)
		if err != nil {
			return apperror.Wrap(err, userID, recordID)
		}
		if n == 0 {
			return apperror.Wrap(ErrDefaultConflict, userID, recordID)
		}

		if input.SetAsDefault != nil {
			switch {
			case *input.SetAsDefault && !addr.IsDefault:
				if err := promote(ctx, tx, userID, addr.ID); err != nil {
					return err
				}
				addr.IsDefault = true
				res.Reason = ReasonRequested
			case !*input.SetAsDefault && addr.IsDefault:
				if _, err := tx.UnsetDefault(ctx, userID, addr.ID); err != nil {
					return apperror.Wrap(err, userID, recordID)
				}
				addr.IsDefault = false
			}
		}

		res.Address = addr
		res.Addresses, err = tx.ListByUser(ctx, userID, true)
		return err
	})
	if err != nil {
		return nil, s.observe(err)
	}

	if res.Reason != ReasonNone {
		s.metrics.DefaultAssigned(string(res.Reason))
	}
	log.Info("address updated", zap.Bool("is_default", res.Address.IsDefault))
	return res, nil
}

func (s *service) SetDefault(ctx context.Context, addressID uuid.UUID) (*Result, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	log := logger.FromCtx(ctx).With(
		zap.String("service", "Address"),
		zap.String("method", "SetDefault"),
		zap.String("address_id", addressID.String()),
	)

	res := &Result{Reason: ReasonRequested}
	err := s.mutate(ctx, userID, func(tx Repository) error {
		addr, err := activeAddress(ctx, tx, userID, addressID)
		if err != nil {
			return err
		}
		if err := promote(ctx, tx, userID, addressID); err != nil {
			return err
		}

		addr.IsDefault = true
		res.Address = addr
		res.Addresses, err = tx.ListByUser(ctx, userID, true)
		return err
	})
	if err != nil {
		return nil, s.observe(err)
	}

	s.metrics.DefaultAssigned(string(res.Reason))
	log.Info("default address set")
	return res, nil
}

// SoftDelete deactivates an address. A deleted default is not replaced;
// the owner is left without a default until they pick one.
func (s *service) SoftDelete(ctx context.Context, addressID uuid.UUID) (*Result, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	log := logger.FromCtx(ctx).With(
		zap.String("service", "Address"),
		zap.String("method", "SoftDelete"),
		zap.String("address_id", addressID.String()),
	)

	res := &Result{}
	var wasDefault bool
	err := s.mutate(ctx, userID, func(tx Repository) error {
		addr, err := activeAddress(ctx, tx, userID, addressID)
		if err != nil {
			return err
		}
		wasDefault = addr.IsDefault

		n, err := tx.Deactivate(ctx, userID, addressID)
		if err != nil {
			return apperror.Wrap(err, userID, addressID.String())
		}
		if n == 0 {
			return apperror.Wrap(ErrAddressNotFound, userID, addressID.String())
		}

		addr.IsActive = false
		addr.IsDefault = false
		res.Address = addr
		res.Addresses, err = tx.ListByUser(ctx, userID, true)
		return err
	})
	if err != nil {
		return nil, s.observe(err)
	}

	log.Info("address deleted", zap.Bool("was_default", wasDefault))
	return res, nil
}

// Restore reactivates a soft-deleted address. It never comes back as the
// default.
func (s *service) Restore(ctx context.Context, addressID uuid.UUID) (*Result, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUnauthenticated
	}

	recordID := addressID.String()
	log := logger.FromCtx(ctx).With(
		zap.String("service", "Address"),
		zap.String("method", "Restore"),
		zap.String("address_id", recordID),
	)

	res := &Result{}
	err := s.mutate(ctx, userID, func(tx Repository) error {
		addr, err := inactiveAddress(ctx, tx, userID, addressID)
		if err != nil {
			return err
		}

		active, err := tx.CountActive(ctx, userID)
		if err != nil {
			return err
		}
		if active >= MaxActivePerOwner {
			return apperror.Wrap(ErrAddressLimit, userID, recordID)
		}

		n, err := tx.Restore(ctx, userID, addressID)
		if err != nil {
			return apperror.Wrap(err, userID, recordID)
		}
		if n == 0 {
			return apperror.Wrap(ErrInactiveAddressNotFound, userID, recordID)
		}

		addr.IsActive = true
		addr.IsDefault = false
		res.Address = addr
		res.Addresses, err = tx.ListByUser(ctx, userID, true)
		return err
	})
	if err != nil {
		return nil, s.observe(err)
	}

	log.Info("address restored")
	return res, nil
}

func (s *service) HardDelete(ctx context.Context, addressID uuid.UUID) error {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return ErrUnauthenticated
	}

	recordID := addressID.String()
	err := s.mutate(ctx, userID, func(tx Repository) error {
		if _, err := inactiveAddress(ctx, tx, userID, addressID); err != nil {
			return err
		}
		n, err := tx.Delete(ctx, userID, addressID)
		if err != nil {
			return apperror.Wrap(err, userID, recordID)
		}
		if n == 0 {
			return apperror.Wrap(ErrInactiveAddressNotFound, userID, recordID)
		}
		return nil
	})
	if err != nil {
		return s.observe(err)
	}

	logger.FromCtx(ctx).Info("address permanently deleted",
		zap.String("service", "Address"),
		zap.String("address_id", recordID),
	)
	return nil
}

// mutate runs fn under the owner lock inside one store transaction.
func (s *service) mutate(ctx context.Context, userID uint, fn func(tx Repository) error) error {
	unlock, err := s.locker.Lock(ctx, lock.OwnerKey("address", userID))
	if err != nil {
		return err
	}
	defer unlock()

	return s.repo.WithinTx(ctx, fn)
}

func (s *service) observe(err error) error {
	switch apperror.Kind(err) {
	case apperror.ErrConsistencyConflict:
		s.metrics.Conflict("address")
	case apperror.ErrLimitExceeded:
		s.metrics.LimitRejected("address", "active_addresses")
	}
	return err
}

// promote clears every other default of the owner and marks id as default.
// A set that matches nothing means the target changed underneath us.
func promote(ctx context.Context, tx Repository, userID uint, id uuid.UUID) error {
	if _, err := tx.ClearDefault(ctx, userID, id); err != nil {
		return apperror.Wrap(err, userID, id.String())
	}
	n, err := tx.SetDefault(ctx, userID, id)
	if err != nil {
		return apperror.Wrap(err, userID, id.String())
	}
	if n == 0 {
		return apperror.Wrap(ErrDefaultConflict, userID, id.String())
	}
	return nil
}

func activeAddress(ctx context.Context, tx Repository, userID uint, id uuid.UUID) (*Address, error) {
	addr, err := tx.GetByID(ctx, userID, id)
	if err != nil {
		return nil, apperror.Wrap(err, userID, id.String())
	}
	if !addr.IsActive {
		return nil, apperror.Wrap(ErrAddressNotFound, userID, id.String())
	}
	return addr, nil
}

func inactiveAddress(ctx context.Context, tx Repository, userID uint, id uuid.UUID) (*Address, error) {
	addr, err := tx.GetByID(ctx, userID, id)
	if errors.Is(err, ErrAddressNotFound) {
		return nil, apperror.Wrap(ErrInactiveAddressNotFound, userID, id.String())
	}
	if err != nil {
		return nil, apperror.Wrap(err, userID, id.String())
	}
	if addr.IsActive {
		return nil, apperror.Wrap(ErrInactiveAddressNotFound, userID, id.String())
	}
	return addr, nil
}

// defaultReason decides whether a new address becomes the default. Any
// reason suffices; the first one that applies is reported.
func defaultReason(active int, requested, hasDefault bool) DefaultReason {
	switch {
	case active == 0:
		return ReasonFirstAddress
	case requested:
		return ReasonRequested
	case !hasDefault:
		return ReasonNoExistingDefault
	}
	return ReasonNone
}
