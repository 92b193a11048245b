package cart

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

// Service defines the business logic for carts. Every mutation loads the
// owner's cart, changes its items, recomputes the summary and persists both
// in one conditional write.
type Service interface {
	Get(ctx context.Context) (*Cart, error)
	AddItem(ctx context.Context, in ItemInput) (*Cart, error)
	SetQuantity(ctx context.Context, serviceID string, qty int) (*Cart, error)
	RemoveItem(ctx context.Context, serviceID string) (*Cart, error)
	Clear(ctx context.Context) (*Cart, error)
	Save(ctx context.Context, items []ItemInput) (*Cart, error)
	Restore(ctx context.Context, items []ItemInput) (*Cart, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type service struct {
	repo    Repository
	locker  lock.Locker
	metrics *metrics.Recorder
	ttl     time.Duration
	now     func() time.Time
}

// NewService creates a new cart service. A non-positive ttl falls back to
// DefaultTTL.
func NewService(repo Repository, locker lock.Locker, rec *metrics.Recorder, ttl time.Duration) Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &service{
		repo:    repo,
		locker:  locker,
		metrics: rec,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *service) Get(ctx context.Context) (*Cart, error) {
	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUserNotAuthenticated
	}

	c, err := s.load(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) AddItem(ctx context.Context, in ItemInput) (*Cart, error) {
	return s.mutate(ctx, "add", in.ServiceID, func(c *Cart, now time.Time) error {
		return c.add(in, now)
	})
}

func (s *service) SetQuantity(ctx context.Context, serviceID string, qty int) (*Cart, error) {
	return s.mutate(ctx, "set_quantity", serviceID, func(c *Cart, now time.Time) error {
		return c.setQuantity(serviceID, qty, now)
	})
}

// RemoveItem is idempotent: removing a service that is not in the cart
// still succeeds and refreshes the cart's expiry.
func (s *service) RemoveItem(ctx context.Context, serviceID string) (*Cart, error) {
	return s.mutate(ctx, "remove", serviceID, func(c *Cart, _ time.Time) error {
		c.remove(serviceID)
		return nil
	})
}

func (s *service) Clear(ctx context.Context) (*Cart, error) {
	return s.mutate(ctx, "clear", "", func(c *Cart, _ time.Time) error {
		c.clear()
		return nil
	})
}

func (s *service) Save(ctx context.Context, items []ItemInput) (*Cart, error) {
	return s.mutate(ctx, "save", "", func(c *Cart, now time.Time) error {
		return c.replace(items, now)
	})
}

// Restore merges a client-held cart into the stored one, or seeds a new
// cart from it. Applying the same items twice leaves the cart unchanged.
func (s *service) Restore(ctx context.Context, items []ItemInput) (*Cart, error) {
	return s.mutate(ctx, "restore", "", func(c *Cart, now time.Time) error {
		c.Items = Merge(c.Items, items, now)
		return nil
	})
}

func (s *service) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repo.DeleteExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.FromCtx(ctx).Info("expired carts purged",
			zap.String("service", "Cart"),
			zap.Int64("count", n),
		)
	}
	return n, nil
}

// load returns the owner's cart, or a fresh unsaved one when none is stored.
// An expired cart keeps its identity and version but loses its items.
func (s *service) load(ctx context.Context, userID uint, now time.Time) (*Cart, error) {
	c, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, ErrCartNotFound) {
		return &Cart{
			ID:      uuid.New(),
			UserID:  userID,
			Items:   Items{},
			Summary: Summarize(nil),
		}, nil
	}
	if err != nil {
		return nil, apperror.Wrap(err, userID, "")
	}

	if !c.ExpiresAt.IsZero() && c.ExpiresAt.Before(now) {
		c.Items = Items{}
		c.Summary = Summarize(nil)
	}
	return c, nil
}

func (s *service) mutate(
	ctx context.Context,
	op string,
	serviceID string,
	fn func(c *Cart, now time.Time) error,
) (*Cart, error) {

	userID, ok := utils.GetUserIDFromContext(ctx)
	if !ok {
		return nil, ErrUserNotAuthenticated
	}

	unlock, err := s.locker.Lock(ctx, lock.OwnerKey("cart", userID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := s.now()
	c, err := s.load(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	if err := fn(c, now); err != nil {
		return nil, s.observe(apperror.Wrap(err, userID, serviceID))
	}

	c.Summary = Summarize(c.Items)
	c.LastUpdated = now
	c.ExpiresAt = now.Add(s.ttl)

	if err := s.persist(ctx, c); err != nil {
		return nil, s.observe(apperror.Wrap(err, userID, c.ID.String()))
	}

	s.metrics.CartMutation(op)
	logger.FromCtx(ctx).Debug("cart updated",
		zap.String("service", "Cart"),
		zap.String("op", op),
		zap.Int("services", c.Summary.TotalServices),
		zap.Int64("version", c.Version),
	)
	return c, nil
}

func (s *service) persist(ctx context.Context, c *Cart) error {
	if c.Version == 0 {
		return s.repo.Create(ctx, c)
	}

	n, err := s.repo.Update(ctx, c, c.Version)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCartConflict
	}
	return nil
}

func (s *service) observe(err error) error {
	switch {
	case errors.Is(err, ErrQuantityLimit):
		s.metrics.LimitRejected("cart", "quantity")
	case errors.Is(err, ErrServiceLimit):
		s.metrics.LimitRejected("cart", "services")
	case apperror.IsConflict(err):
		s.metrics.Conflict("cart")
	}
	return err
}
