package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"servicehub-be/internal/address"
	"servicehub-be/internal/cart"
	"servicehub-be/internal/config"
	"servicehub-be/internal/db"
	"servicehub-be/internal/httpapi"
	"servicehub-be/internal/lock"
	"servicehub-be/internal/logger"
	"servicehub-be/internal/metrics"
	"servicehub-be/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Seams for tests.
var (
	initDBFunc      = db.InitDB
	startServerFunc = serve
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server exited", zap.Error(err))
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer st.close()

	locker, closeLocker, err := newLocker(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLocker()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := newApp(cfg, st, locker, reg)
	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           a.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return startServerFunc(gctx, srv)
	})
	g.Go(func() error { return a.limiter.Run(gctx) })
	g.Go(func() error { return sweepCarts(gctx, a.carts, cfg.SweepInterval) })

	logger.L().Info("server started",
		zap.String("addr", srv.Addr),
		zap.String("store", cfg.StoreDriver),
		zap.String("lock", cfg.LockDriver),
	)
	return g.Wait()
}

type stores struct {
	addresses address.Repository
	carts     cart.Repository
	health    func(ctx context.Context) error
	close     func()
}

func openStores(cfg *config.Config) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logger.L().Warn("using in-memory store, data is lost on restart")
		return &stores{
			addresses: address.NewMemoryRepository(),
			carts:     cart.NewMemoryRepository(),
			close:     func() {},
		}, nil

	case config.StoreDriverPostgres:
		database := initDBFunc(cfg)
		return &stores{
			addresses: address.NewRepository(database),
			carts:     cart.NewRepository(database),
			health:    database.PingContext,
			close:     func() { _ = database.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func newLocker(ctx context.Context, cfg *config.Config) (lock.Locker, func(), error) {
	if cfg.LockDriver != config.LockDriverRedis {
		return lock.NewLocal(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis unavailable: %w", err)
	}

	logger.L().Info("redis lock connected", zap.String("addr", cfg.RedisAddr))
	return lock.NewRedis(client), func() { _ = client.Close() }, nil
}

type app struct {
	handler http.Handler
	limiter *middleware.Limiter
	carts   cart.Service
}

func newApp(cfg *config.Config, st *stores, locker lock.Locker, reg *prometheus.Registry) *app {
	rec := metrics.New(reg)
	limiter := middleware.NewLimiter()

	addresses := address.NewService(st.addresses, locker, rec)
	carts := cart.NewService(st.carts, locker, rec, cfg.CartTTL)

	router := httpapi.NewRouter(httpapi.Deps{
		Addresses: addresses,
		Cart:      carts,
		Health:    st.health,
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Middlewares: []mux.MiddlewareFunc{
			logger.RequestIDMiddleware,
			middleware.Logging(rec),
			middleware.Auth([]byte(cfg.JWTSecret)),
			limiter.Middleware,
		},
	})

	return &app{
		handler: middleware.CORS(cfg.CORSOrigins)(router),
		limiter: limiter,
		carts:   carts,
	}
}

// sweepCarts deletes expired carts every interval until ctx is done. A
// failed sweep is logged and retried on the next tick.
func sweepCarts(ctx context.Context, carts cart.Service, every time.Duration) error {
	if every <= 0 {
		every = time.Hour
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := carts.PurgeExpired(ctx, time.Now()); err != nil {
				logger.L().Error("cart sweep failed", zap.Error(err))
			}
		}
	}
}

func serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
