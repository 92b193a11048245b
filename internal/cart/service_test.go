package cart

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"servicehub-be/internal/apperror"
	"servicehub-be/internal/lock"
	"servicehub-be/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// --- Mocks ---

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetByUserID(ctx context.Context, userID uint) (*Cart, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Cart), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, c *Cart) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockRepository) Update(ctx context.Context, c *Cart, expectedVersion int64) (int64, error) {
	args := m.Called(ctx, c, expectedVersion)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// --- Helpers ---

func ctxWithUser(userID uint) context.Context {
	return utils.SetUserContext(context.Background(), userID, "", "user")
}

func newMemoryService(now time.Time) (*MemoryRepository, *service) {
	repo := NewMemoryRepository()
	svc := NewService(repo, lock.NewLocal(), nil, 0).(*service)
	svc.now = func() time.Time { return now }
	return repo, svc
}

// --- Tests ---

func TestService_Unauthenticated(t *testing.T) {
	_, svc := newMemoryService(time.Now())

	_, err := svc.Get(context.Background())
	assert.ErrorIs(t, err, ErrUserNotAuthenticated)

	_, err = svc.AddItem(context.Background(), input("a", "1", 1))
	assert.ErrorIs(t, err, ErrUserNotAuthenticated)
}

func TestService_Get(t *testing.T) {
	t.Run("EmptyWhenMissing", func(t *testing.T) {
		_, svc := newMemoryService(time.Now())

		c, err := svc.Get(ctxWithUser(1))
		require.NoError(t, err)
		assert.Empty(t, c.Items)
		assert.Zero(t, c.Version)
		assert.True(t, c.Summary.Total.IsZero())
	})

	t.Run("ExpiredCartIsEmpty", func(t *testing.T) {
		now := time.Now()
		repo, svc := newMemoryService(now)
		ctx := ctxWithUser(1)

		_, err := svc.AddItem(ctx, input("a", "10", 1))
		require.NoError(t, err)

		svc.now = func() time.Time { return now.Add(DefaultTTL + time.Hour) }
		c, err := svc.Get(ctx)
		require.NoError(t, err)
		assert.Empty(t, c.Items)

		// The stored row is untouched until the next write or purge.
		stored, err := repo.GetByUserID(context.Background(), 1)
		require.NoError(t, err)
		assert.Len(t, stored.Items, 1)
	})
}

func TestService_AddItem(t *testing.T) {
	now := time.Now()
	_, svc := newMemoryService(now)
	ctx := ctxWithUser(1)

	c, err := svc.AddItem(ctx, input("a", "250", 1))
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Version)
	assert.True(t, c.ExpiresAt.Equal(now.Add(DefaultTTL)))
	assertSummaryConsistent(t, c)

	for i := 1; i < MaxQuantity; i++ {
		c, err = svc.AddItem(ctx, input("a", "250", 1))
		require.NoError(t, err)
	}
	assert.Equal(t, MaxQuantity, c.Items[0].Quantity)
	assertSummaryConsistent(t, c)

	_, err = svc.AddItem(ctx, input("a", "250", 1))
	assert.ErrorIs(t, err, apperror.ErrLimitExceeded)

	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, uint(1), appErr.OwnerID)
	assert.Equal(t, "a", appErr.RecordID)

	c, err = svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, MaxQuantity, c.Items[0].Quantity)
}

func TestService_SnapshotIsKept(t *testing.T) {
	_, svc := newMemoryService(time.Now())
	ctx := ctxWithUser(1)

	_, err := svc.AddItem(ctx, input("a", "100", 1))
	require.NoError(t, err)

	c, err := svc.AddItem(ctx, input("a", "999", 1))
	require.NoError(t, err)
	assert.Equal(t, "100", c.Items[0].Snapshot.Price.String())
	assert.Equal(t, "200", c.Items[0].Subtotal.String())
}

func TestService_SetQuantity(t *testing.T) {
	_, svc := newMemoryService(time.Now())
	ctx := ctxWithUser(1)

	_, err := svc.AddItem(ctx, input("a", "10", 1))
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, input("b", "20", 1))
	require.NoError(t, err)

	t.Run("Overwrite", func(t *testing.T) {
		c, err := svc.SetQuantity(ctx, "a", 4)
		require.NoError(t, err)
		assert.Equal(t, 4, c.Items[0].Quantity)
		assertSummaryConsistent(t, c)
	})

	t.Run("ZeroRemoves", func(t *testing.T) {
		c, err := svc.SetQuantity(ctx, "a", 0)
		require.NoError(t, err)
		require.Len(t, c.Items, 1)
		assert.Equal(t, "b", c.Items[0].ServiceID)
		assert.Equal(t, "20", c.Summary.Subtotal.String())
		assertSummaryConsistent(t, c)
	})

	t.Run("Absent", func(t *testing.T) {
		_, err := svc.SetQuantity(ctx, "nope", 2)
		assert.ErrorIs(t, err, ErrCartItemNotFound)
	})
}

func TestService_RemoveAndClear(t *testing.T) {
	_, svc := newMemoryService(time.Now())
	ctx := ctxWithUser(1)

	_, err := svc.AddItem(ctx, input("a", "10", 1))
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, input("b", "20", 1))
	require.NoError(t, err)

	c, err := svc.RemoveItem(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)
	assertSummaryConsistent(t, c)

	c, err = svc.RemoveItem(ctx, "a")
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)

	c, err = svc.Clear(ctx)
	require.NoError(t, err)
	assert.Empty(t, c.Items)
	assert.True(t, c.Summary.Total.IsZero())
	assert.Zero(t, c.Summary.TotalServices)
}

func TestService_Save(t *testing.T) {
	_, svc := newMemoryService(time.Now())
	ctx := ctxWithUser(1)

	c, err := svc.Save(ctx, []ItemInput{input("a", "10", 2), input("b", "3.5", 1), input("a", "10", 3)})
	require.NoError(t, err)
	require.Len(t, c.Items, 2)
	assert.Equal(t, 3, c.Items[0].Quantity)
	assert.Equal(t, "33.5", c.Summary.Subtotal.String())
	assertSummaryConsistent(t, c)

	_, err = svc.Save(ctx, []ItemInput{input("a", "10", MaxQuantity+1)})
	assert.ErrorIs(t, err, apperror.ErrLimitExceeded)

	c, err = svc.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, c.Items, 2)
}

func TestService_Restore(t *testing.T) {
	_, svc := newMemoryService(time.Now())
	ctx := ctxWithUser(1)
	client := []ItemInput{input("a", "99", 5), input("b", "5", 2)}

	t.Run("SeedsNewCart", func(t *testing.T) {
		c, err := svc.Restore(ctxWithUser(2), client)
		require.NoError(t, err)
		assert.Len(t, c.Items, 2)
		assertSummaryConsistent(t, c)
	})

	t.Run("ServerWinsAndIdempotent", func(t *testing.T) {
		_, err := svc.AddItem(ctx, input("a", "10", 1))
		require.NoError(t, err)

		once, err := svc.Restore(ctx, client)
		require.NoError(t, err)
		require.Len(t, once.Items, 2)
		assert.Equal(t, 1, once.Items[0].Quantity)
		assert.Equal(t, "10", once.Items[0].Snapshot.Price.String())
		assertSummaryConsistent(t, once)

		twice, err := svc.Restore(ctx, client)
		require.NoError(t, err)
		assert.Equal(t, once.Items, twice.Items)
		assert.Equal(t, once.Summary, twice.Summary)
	})
}

func TestService_PurgeExpired(t *testing.T) {
	now := time.Now()
	repo, svc := newMemoryService(now)

	_, err := svc.AddItem(ctxWithUser(1), input("a", "1", 1))
	require.NoError(t, err)

	n, err := svc.PurgeExpired(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = svc.PurgeExpired(context.Background(), now.Add(DefaultTTL+time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.GetByUserID(context.Background(), 1)
	assert.ErrorIs(t, err, ErrCartNotFound)
}

func TestService_VersionConflict(t *testing.T) {
	ctx := ctxWithUser(1)
	stored := &Cart{UserID: 1, Items: Items{}, Version: 3}

	t.Run("UpdateMatchesNothing", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := NewService(mockRepo, lock.NewLocal(), nil, time.Hour)

		mockRepo.On("GetByUserID", ctx, uint(1)).Return(stored.clone(), nil)
		mockRepo.On("Update", ctx, mock.AnythingOfType("*cart.Cart"), int64(3)).Return(int64(0), nil)

		_, err := svc.AddItem(ctx, input("a", "1", 1))

		assert.ErrorIs(t, err, ErrCartConflict)
		assert.True(t, apperror.IsConflict(err))
		mockRepo.AssertExpectations(t)
	})

	t.Run("CreateRace", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := NewService(mockRepo, lock.NewLocal(), nil, time.Hour)

		mockRepo.On("GetByUserID", ctx, uint(1)).Return(nil, ErrCartNotFound)
		mockRepo.On("Create", ctx, mock.AnythingOfType("*cart.Cart")).Return(ErrCartConflict)

		_, err := svc.AddItem(ctx, input("a", "1", 1))
		assert.True(t, apperror.IsConflict(err))
	})

	t.Run("StoreError", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := NewService(mockRepo, lock.NewLocal(), nil, time.Hour)

		mockRepo.On("GetByUserID", ctx, uint(1)).Return(nil, errors.New("db error"))

		_, err := svc.AddItem(ctx, input("a", "1", 1))
		assert.ErrorContains(t, err, "db error")
		mockRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_ConcurrentAdds(t *testing.T) {
	_, svc := newMemoryService(time.Now())
	ctx := ctxWithUser(1)

	var g errgroup.Group
	for i := 0; i < MaxServices; i++ {
		id := fmt.Sprintf("svc-%d", i%5)
		g.Go(func() error {
			_, err := svc.AddItem(ctx, input(id, "7.25", 1))
			return err
		})
	}
	require.NoError(t, g.Wait())

	c, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, c.Items, 5)
	assert.Equal(t, MaxServices, c.Summary.TotalItems)
	assert.Equal(t, int64(MaxServices), c.Version)
	assertSummaryConsistent(t, c)
}
