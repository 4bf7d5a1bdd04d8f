// Package server assembles the JUSH API: stores, services, realtime hub,
// event sinks and the HTTP middleware chain. Nothing here is global; cmd/jush
// builds a Server from config and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jushkitchen/jush/app/controllers"
	"github.com/jushkitchen/jush/app/repositories"
	"github.com/jushkitchen/jush/app/routes"
	"github.com/jushkitchen/jush/app/services"
	"github.com/jushkitchen/jush/pkg/auth"
	"github.com/jushkitchen/jush/pkg/broadcast"
	"github.com/jushkitchen/jush/pkg/cache"
	"github.com/jushkitchen/jush/pkg/database"
	"github.com/jushkitchen/jush/pkg/event"
	"github.com/jushkitchen/jush/pkg/logger"
	"github.com/jushkitchen/jush/pkg/metrics"
	"github.com/jushkitchen/jush/pkg/middleware"
	"github.com/jushkitchen/jush/pkg/realtime"
	"github.com/jushkitchen/jush/pkg/reqid"
	"github.com/jushkitchen/jush/pkg/router"
	"github.com/jushkitchen/jush/pkg/telemetry"
	"github.com/jushkitchen/jush/pkg/workerpool"
)

const (
	logRetention    = 30 * 24 * time.Hour
	shutdownTimeout = 10 * time.Second
)

type orderStore interface {
	services.OrderStore
	EnsureIndexes(ctx context.Context) error
}

type adminStore interface {
	services.AdminStore
	EnsureIndexes(ctx context.Context) error
}

// Server owns every long-lived dependency of the API process.
type Server struct {
	cfg     Config
	router  *router.Router
	hub     *realtime.Hub
	pool    *workerpool.Pool
	limiter *middleware.RateLimiter
	relay   *broadcast.Relay

	Auth   *services.AuthService
	Orders *services.OrderService

	// closers run in reverse order on shutdown.
	closers []func() error
}

// New connects to the configured backends and builds the route table.
// On error, anything already opened is closed.
func New(ctx context.Context, cfg Config) (_ *Server, err error) {
	s := &Server{cfg: cfg}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	shutdownTracing, err := telemetry.Init(ctx, cfg.OTLPEndpoint, serviceName, Version)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdownTracing(ctx)
	})

	orders, admins, err := s.openStores(ctx)
	if err != nil {
		return nil, err
	}
	if err := orders.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("order indexes: %w", err)
	}
	if err := admins.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("admin indexes: %w", err)
	}

	s.pool = workerpool.New(4, 256).WithTimeout(5 * time.Second)
	s.closers = append(s.closers, func() error { s.pool.Shutdown(); return nil })

	s.hub = realtime.NewHub()
	bus := event.NewBus()
	bus.Listen("*", broadcast.ToHub(s.hub))

	var stats cache.Store = cache.NewMemory()
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, rdb.Close)
		stats = cache.NewRedis(rdb, "jush:")
		s.relay = broadcast.NewRelay(rdb, s.hub, s.pool)
		bus.Listen("*", s.relay.Publish)
		logger.Info("redis enabled", "addr", cfg.RedisAddr)
	}

	if len(cfg.KafkaBrokers) > 0 {
		sink := broadcast.NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic, s.pool)
		s.closers = append(s.closers, sink.Close)
		bus.Listen("*", sink.Publish)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	// Drain queued publishes before the sinks close. Shutdown is idempotent.
	s.closers = append(s.closers, func() error { s.pool.Shutdown(); return nil })

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	s.Auth = services.NewAuthService(admins, issuer)
	s.Orders = services.NewOrderService(orders, bus, services.WithStatsCache(stats, cfg.StatsCacheTTL))

	if _, err := s.Auth.EnsureDefaultAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return nil, fmt.Errorf("default admin: %w", err)
	}

	s.limiter = middleware.NewRateLimiter(cfg.RateLimit, time.Minute)
	s.router = s.buildRouter(issuer)
	return s, nil
}

func (s *Server) openStores(ctx context.Context) (orderStore, adminStore, error) {
	switch s.cfg.StoreDriver {
	case "memory":
		logger.Warn("using in-memory stores, data is lost on restart")
		return repositories.NewMemoryOrderRepository(), repositories.NewMemoryAdminRepository(), nil
	case "", "mongo":
	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", s.cfg.StoreDriver)
	}

	client, err := database.Connect(ctx, s.cfg.MongoURI)
	if err != nil {
		return nil, nil, err
	}
	s.closers = append(s.closers, func() error { return database.Disconnect(client) })
	db := client.Database(s.cfg.MongoDB)

	if s.cfg.LogMongo {
		if err := s.teeLogs(ctx, db); err != nil {
			return nil, nil, err
		}
	}

	logger.Info("mongodb connected", "db", s.cfg.MongoDB)
	return repositories.NewOrderRepository(db), repositories.NewAdminRepository(db), nil
}

func (s *Server) teeLogs(ctx context.Context, db *mongo.Database) error {
	col := db.Collection("logs")
	if err := logger.EnsureLogIndexes(ctx, col, logRetention); err != nil {
		return fmt.Errorf("log indexes: %w", err)
	}
	h := logger.NewMongoHandler(col, slog.LevelInfo)
	logger.Tee(h)
	s.closers = append(s.closers, func() error { h.Close(); return nil })
	return nil
}

// buildRouter applies the global middleware, outermost first: metrics for
// total latency, request id before anything logs, the request logger,
// recovery inside it so panics are logged with the request_id, tracing,
// CORS, then the per-IP limiter.
func (s *Server) buildRouter(issuer *auth.Issuer) *router.Router {
	r := router.New()
	r.Use(
		metrics.Middleware(),
		reqid.Middleware(),
		middleware.Logger,
		middleware.Recovery,
		telemetry.Middleware(serviceName),
		middleware.CORS(middleware.DefaultCORSOptions(s.cfg.CORSOrigins...)),
		s.limiter.Middleware,
	)

	routes.RegisterAPI(r, routes.Handlers{
		Orders: controllers.NewOrderController(s.Orders),
		Auth:   controllers.NewAuthController(s.Auth),
		Tokens: issuer,
		Socket: realtime.NewSocketHandler(s.hub, issuer, s.cfg.CORSOrigins),
		Events: realtime.NewSSEHandler(s.hub),
	})
	return r
}

func (s *Server) Handler() http.Handler { return s.router.Handler() }

func (s *Server) Routes() []router.Route { return s.router.Routes() }

// Hub is exposed for tests and in-process tools.
func (s *Server) Hub() *realtime.Hub { return s.hub }

// background starts the hub, the limiter sweeper and the Redis relay. They
// stop with ctx.
func (s *Server) background(ctx context.Context) {
	go s.hub.Run(ctx)
	go s.limiter.Run(ctx)
	if s.relay != nil {
		go func() {
			if err := s.relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("redis relay stopped", "error", err)
			}
		}()
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests and
// closes every backend.
func (s *Server) Run(ctx context.Context) error {
	bgCtx, stopBackground := context.WithCancel(context.Background())
	s.background(bgCtx)

	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("JUSH API listening", "port", s.cfg.Port, "version", Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}

	stopBackground()
	s.Close()
	return serveErr
}

// Close releases every backend opened by New. Run calls it on shutdown.
func (s *Server) Close() {
	if s == nil {
		return
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
	s.closers = nil
}

// Bootstrap creates the default admin without starting the API. It reports
// whether an admin was created.
func Bootstrap(ctx context.Context, cfg Config) (bool, error) {
	s := &Server{cfg: cfg}
	defer s.Close()

	_, admins, err := s.openStores(ctx)
	if err != nil {
		return false, err
	}
	if err := admins.EnsureIndexes(ctx); err != nil {
		return false, fmt.Errorf("admin indexes: %w", err)
	}
	svc := services.NewAuthService(admins, auth.NewIssuer(cfg.JWTSecret, cfg.JWTTTL))
	return svc.EnsureDefaultAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
}
