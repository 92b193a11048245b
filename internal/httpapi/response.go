package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"servicehub-be/internal/address"
	"servicehub-be/internal/apperror"
	"servicehub-be/internal/cart"
	"servicehub-be/internal/logger"

	"go.uber.org/zap"
)

const (
	HeaderContentType = "Content-Type"
	HeaderValueJSON   = "application/json"
)

var errBadRequest = errors.New("bad request")

type envelope struct {
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message,omitempty"`
	Data       any    `json:"data,omitempty"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set(HeaderContentType, HeaderValueJSON)
	w.WriteHeader(status)

	body := envelope{
		Status:     "success",
		StatusCode: status,
		Message:    message,
		Data:       data,
	}
	if status >= http.StatusBadRequest {
		body.Status = "failed"
	}

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.FromCtx(ctx).Error("failed to encode response body", zap.Error(err))
	}
}

// statusFor maps a service error onto an HTTP status. Anything outside the
// known kinds is a server error, and so is a conflict the retry could not
// resolve.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errConflictPersisted):
		return http.StatusInternalServerError
	case errors.Is(err, address.ErrUnauthenticated), errors.Is(err, cart.ErrUserNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	}

	switch apperror.Kind(err) {
	case apperror.ErrNotFound:
		return http.StatusNotFound
	case apperror.ErrLimitExceeded:
		return http.StatusUnprocessableEntity
	case apperror.ErrConsistencyConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusFor(err)
	log := logger.FromCtx(ctx)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
		msg = http.StatusText(status)
	} else {
		log.Info("request rejected", zap.Int("status", status), zap.Error(err))
	}

	writeJSON(ctx, w, status, msg, nil)
}
