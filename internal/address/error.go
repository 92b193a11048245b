package address

import (
	"errors"
	"fmt"

	"servicehub-be/internal/apperror"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")

	ErrAddressNotFound         = fmt.Errorf("address %w", apperror.ErrNotFound)
	ErrInactiveAddressNotFound = fmt.Errorf("inactive address %w", apperror.ErrNotFound)
	ErrNoDefaultAddress        = fmt.Errorf("default address %w", apperror.ErrNotFound)

	ErrAddressLimit = fmt.Errorf("active address %w", apperror.ErrLimitExceeded)

	ErrDefaultConflict = fmt.Errorf("default address %w", apperror.ErrConsistencyConflict)

	PgUniqueViolation = "23505"
)
