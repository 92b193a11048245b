package middleware

import (
	"net/http"

	"servicehub-be/internal/auth"
	"servicehub-be/internal/logger"
	"servicehub-be/internal/utils"

	"go.uber.org/zap"
)

// Auth resolves the caller from the access token and places the owner id in
// the request context. Requests without a token continue anonymously and the
// services reject them where an owner is required; a token that fails to
// verify is answered with 401.
func Auth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := auth.ExtractAccessToken(r)
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := auth.ParseToken(secret, tokenStr)
			if err != nil {
				logger.FromCtx(r.Context()).Debug("rejected access token", zap.Error(err))
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			ctx := utils.SetUserContext(r.Context(), claims.UserID, claims.Email, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
