package cart

import (
	"errors"
	"fmt"

	"servicehub-be/internal/apperror"
)

var (
	// -- Authentication --
	ErrUserNotAuthenticated = errors.New("user not authenticated")

	// -- Resource State --
	ErrCartNotFound     = fmt.Errorf("cart %w", apperror.ErrNotFound)
	ErrCartItemNotFound = fmt.Errorf("cart item %w", apperror.ErrNotFound)

	// -- Business Caps --
	ErrQuantityLimit = fmt.Errorf("cart item quantity %w", apperror.ErrLimitExceeded)
	ErrServiceLimit  = fmt.Errorf("cart service count %w", apperror.ErrLimitExceeded)

	// -- Concurrency --
	ErrCartConflict = fmt.Errorf("cart %w", apperror.ErrConsistencyConflict)

	// -- Constants (External Systems) --
	PgUniqueViolation = "23505"
)
