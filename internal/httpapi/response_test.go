package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"servicehub-be/internal/address"
	"servicehub-be/internal/apperror"
	"servicehub-be/internal/cart"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"address unauthenticated", address.ErrUnauthenticated, http.StatusUnauthorized},
		{"cart unauthenticated", cart.ErrUserNotAuthenticated, http.StatusUnauthorized},
		{"bad request", fmt.Errorf("%w: missing field", errBadRequest), http.StatusBadRequest},
		{"not found", apperror.Wrap(address.ErrAddressNotFound, 1, "x"), http.StatusNotFound},
		{"limit", cart.ErrQuantityLimit, http.StatusUnprocessableEntity},
		{"conflict", address.ErrDefaultConflict, http.StatusConflict},
		{"conflict after retry", fmt.Errorf("%w: %w", errConflictPersisted, cart.ErrCartConflict), http.StatusInternalServerError},
		{"unknown", errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, statusFor(tc.err))
		})
	}
}

func TestWriteError_HidesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(context.Background(), w, errors.New("pq: connection refused"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, HeaderValueJSON, w.Header().Get(HeaderContentType))

	var body envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "failed", body.Status)
	assert.Equal(t, http.StatusText(http.StatusInternalServerError), body.Message)
	assert.NotContains(t, body.Message, "pq")
}

func TestWriteError_KeepsDomainMessage(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(context.Background(), w, cart.ErrServiceLimit)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, cart.ErrServiceLimit.Error(), body.Message)
}
