package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"servicehub-be/internal/auth"
	"servicehub-be/internal/logger"
	"servicehub-be/internal/metrics"
	"servicehub-be/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCors(t *testing.T) {
	handler := CORS([]string{"http://localhost:3000"})(okHandler())

	t.Run("OPTIONS request", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/cart", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("Normal request", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/cart", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Unknown origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/cart", nil)
		req.Header.Set("Origin", "http://evil.example")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAuth(t *testing.T) {
	mw := Auth(testSecret)

	t.Run("Missing Token", func(t *testing.T) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok := utils.GetUserIDFromContext(r.Context())
			assert.False(t, ok, "Context should not contain user ID")
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest("GET", "/addresses", nil)
		w := httptest.NewRecorder()

		mw(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Invalid Token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/addresses", nil)
		req.Header.Set("Authorization", "Bearer invalid-token")
		w := httptest.NewRecorder()

		mw(http.NotFoundHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Valid Token", func(t *testing.T) {
		tokenString, err := auth.GenerateToken(testSecret, 1, "a@b.c", "user", time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/addresses", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)
		w := httptest.NewRecorder()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := utils.GetUserIDFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, uint(1), userID)
			assert.Equal(t, "user", utils.GetUserRoleFromContext(r.Context()))
			w.WriteHeader(http.StatusOK)
		})

		mw(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Cookie Token", func(t *testing.T) {
		tokenString, err := auth.GenerateToken(testSecret, 8, "", "user", time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest("GET", "/cart", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: tokenString})
		w := httptest.NewRecorder()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, _ := utils.GetUserIDFromContext(r.Context())
			assert.Equal(t, uint(8), userID)
		})

		mw(next).ServeHTTP(w, req)
	})

	t.Run("Expired Token", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": float64(1),
			"exp":     time.Now().Add(-time.Hour).Unix(),
		})
		tokenString, err := token.SignedString(testSecret)
		assert.NoError(t, err)

		req := httptest.NewRequest("GET", "/addresses", nil)
		req.Header.Set("Authorization", "Bearer "+tokenString)
		w := httptest.NewRecorder()

		mw(http.NotFoundHandler()).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Malformed Header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/addresses", nil)
		req.Header.Set("Authorization", "Basic user:pass")
		w := httptest.NewRecorder()

		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, ok := utils.GetUserIDFromContext(r.Context())
			assert.False(t, ok)
			w.WriteHeader(http.StatusOK)
		})

		mw(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestLimiter(t *testing.T) {
	t.Run("Write burst exhausted", func(t *testing.T) {
		l := NewLimiter()
		handler := l.Middleware(okHandler())

		codes := make([]int, 0, burstWrite+1)
		for i := 0; i <= burstWrite; i++ {
			req := httptest.NewRequest(http.MethodPost, "/cart/items", nil)
			req.RemoteAddr = "10.0.0.1:1234"
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			codes = append(codes, w.Code)
		}

		assert.Equal(t, http.StatusOK, codes[0])
		assert.Equal(t, http.StatusTooManyRequests, codes[burstWrite])
	})

	t.Run("Separate identities", func(t *testing.T) {
		l := NewLimiter()
		handler := l.Middleware(okHandler())

		for i := 0; i < burstWrite; i++ {
			req := httptest.NewRequest(http.MethodPost, "/cart/items", nil)
			req = req.WithContext(utils.SetUserContext(req.Context(), 1, "", "user"))
			handler.ServeHTTP(httptest.NewRecorder(), req)
		}

		req := httptest.NewRequest(http.MethodPost, "/cart/items", nil)
		req = req.WithContext(utils.SetUserContext(req.Context(), 2, "", "user"))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Sweep idle", func(t *testing.T) {
		l := NewLimiter()
		base := time.Now()
		l.now = func() time.Time { return base }

		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req.Header.Set("X-Device-ID", "dev-1")
		l.Middleware(okHandler()).ServeHTTP(httptest.NewRecorder(), req)

		assert.Zero(t, l.Sweep())

		l.now = func() time.Time { return base.Add(visitorIdle + time.Second) }
		assert.Equal(t, 1, l.Sweep())
	})
}

func TestLogging(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)

	handler := logger.RequestIDMiddleware(Logging(rec)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, 1, testutil.CollectAndCount(reg, "servicehub_http_request_duration_seconds"))

	t.Run("Nil recorder", func(t *testing.T) {
		w := httptest.NewRecorder()
		assert.NotPanics(t, func() {
			Logging(nil)(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
