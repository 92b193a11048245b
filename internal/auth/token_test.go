package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAccessToken(t *testing.T) {
	t.Run("Cookie Preferred", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: "cookie_token"})
		req.Header.Set("Authorization", "Bearer header_token")

		assert.Equal(t, "cookie_token", ExtractAccessToken(req))
	})

	t.Run("Header Fallback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer header_token")

		assert.Equal(t, "header_token", ExtractAccessToken(req))
	})

	t.Run("No Token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.Empty(t, ExtractAccessToken(req))
	})

	t.Run("Malformed Header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic user:pass")
		assert.Empty(t, ExtractAccessToken(req))
	})
}

func TestGenerateAndParseToken(t *testing.T) {
	secret := []byte("test-secret")

	t.Run("Round trip", func(t *testing.T) {
		tok, err := GenerateToken(secret, 42, "a@b.c", "user", time.Hour)
		require.NoError(t, err)

		claims, err := ParseToken(secret, tok)
		require.NoError(t, err)
		assert.Equal(t, uint(42), claims.UserID)
		assert.Equal(t, "a@b.c", claims.Email)
		assert.Equal(t, "user", claims.Role)
	})

	t.Run("Wrong secret", func(t *testing.T) {
		tok, err := GenerateToken(secret, 42, "", "user", time.Hour)
		require.NoError(t, err)

		_, err = ParseToken([]byte("other"), tok)
		assert.Error(t, err)
	})

	t.Run("Expired", func(t *testing.T) {
		tok, err := GenerateToken(secret, 42, "", "user", -time.Minute)
		require.NoError(t, err)

		_, err = ParseToken(secret, tok)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("Missing secret", func(t *testing.T) {
		_, err := GenerateToken(nil, 1, "", "", time.Hour)
		assert.ErrorIs(t, err, ErrMissingSecret)

		_, err = ParseToken(nil, "x")
		assert.ErrorIs(t, err, ErrMissingSecret)
	})

	t.Run("Zero user id rejected", func(t *testing.T) {
		tok, err := GenerateToken(secret, 0, "", "user", time.Hour)
		require.NoError(t, err)

		_, err = ParseToken(secret, tok)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
