package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"servicehub-be/internal/utils"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInit(t *testing.T) {
	originalLog := log
	defer func() { log = originalLog }()

	t.Run("Production", func(t *testing.T) {
		Init("production")
		assert.NotNil(t, log)
	})

	t.Run("Development", func(t *testing.T) {
		Init("development")
		assert.NotNil(t, log)
	})
}

func TestNewLogger_FieldsDoNotCollide(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	l := newLogger("production", zap.WrapCore(func(zapcore.Core) zapcore.Core { return core }))

	l.With(zap.String("service", "Cart")).Info("cart saved")

	logs := observed.TakeAll()
	assert.Len(t, logs, 1)

	serviceKeys := 0
	for _, f := range logs[0].Context {
		if f.Key == "service" {
			serviceKeys++
		}
	}
	assert.Equal(t, 1, serviceKeys)
	assert.Equal(t, "Cart", logs[0].ContextMap()["service"])
	assert.Equal(t, appName, logs[0].ContextMap()["app"])
}

func TestL(t *testing.T) {
	originalLog := log
	defer func() { log = originalLog }()

	log = nil
	os.Setenv("APP_ENV", "test")

	assert.NotNil(t, L())
	assert.NotNil(t, log)
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestIDFrom(ctx))
	assert.Equal(t, "", RequestIDFrom(context.Background()))
}

func TestFromCtx(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	originalLog := log
	log = zap.New(core)
	defer func() { log = originalLog }()

	t.Run("WithRequestIDAndUser", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "req-abc-123")
		ctx = utils.SetUserContext(ctx, 7, "", "user")

		FromCtx(ctx).Info("with fields")

		logs := observed.TakeAll()
		assert.Len(t, logs, 1)
		fields := logs[0].ContextMap()
		assert.Equal(t, "req-abc-123", fields["request_id"])
		assert.Equal(t, uint64(7), fields["user_id"])
	})

	t.Run("WithoutFields", func(t *testing.T) {
		FromCtx(context.Background()).Info("bare")

		logs := observed.TakeAll()
		assert.Len(t, logs, 1)
		_, ok := logs[0].ContextMap()["request_id"]
		assert.False(t, ok)
		_, ok = logs[0].ContextMap()["user_id"]
		assert.False(t, ok)
	})
}

func TestSync(t *testing.T) {
	assert.NotPanics(t, func() {
		Sync()
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, RequestIDFrom(r.Context()))
	})

	handler := RequestIDMiddleware(nextHandler)

	t.Run("Generates ID when missing", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
	})

	t.Run("Preserves existing ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, "test-id-123")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, "test-id-123", w.Header().Get(RequestIDHeader))
	})
}
