// Package httpapi exposes the address and cart services over JSON/HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"servicehub-be/internal/address"
	"servicehub-be/internal/cart"

	"github.com/gorilla/mux"
)

type Deps struct {
	Addresses address.Service
	Cart      cart.Service

	// Health reports whether the backing store is reachable. Nil means
	// always healthy.
	Health func(ctx context.Context) error

	// Metrics serves /metrics when set.
	Metrics http.Handler

	Middlewares []mux.MiddlewareFunc
}

func NewRouter(d Deps) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/healthz", healthz(d.Health)).Methods(http.MethodGet)
	if d.Metrics != nil {
		router.Handle("/metrics", d.Metrics).Methods(http.MethodGet)
	}

	api := router.NewRoute().Subrouter()
	api.Use(d.Middlewares...)
	attachAddressHandler(api, d.Addresses)
	attachCartHandler(api, d.Cart)

	return router
}

func healthz(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := check(ctx); err != nil {
				writeJSON(r.Context(), w, http.StatusServiceUnavailable, "store unreachable", nil)
				return
			}
		}
		writeJSON(r.Context(), w, http.StatusOK, "ok", nil)
	}
}
