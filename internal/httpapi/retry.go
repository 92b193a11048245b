package httpapi

import (
	"context"
	"errors"
	"fmt"

	"servicehub-be/internal/apperror"
	"servicehub-be/internal/logger"

	"go.uber.org/zap"
)

// errConflictPersisted marks a conflict that survived the retry. It is
// reported as a server error rather than a client one.
var errConflictPersisted = errors.New("conflict persisted after retry")

// retryOnConflict runs op and, if it lost a race, runs it once more against
// fresh state. A second conflict comes back wrapped in errConflictPersisted.
func retryOnConflict(ctx context.Context, op func() error) error {
	err := op()
	if !apperror.IsConflict(err) {
		return err
	}

	logger.FromCtx(ctx).Warn("retrying after consistency conflict", zap.Error(err))
	err = op()
	if apperror.IsConflict(err) {
		return fmt.Errorf("%w: %w", errConflictPersisted, err)
	}
	return err
}
