package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"mapleerp/internal/domain/badges"
	"mapleerp/internal/domain/employees"
	"mapleerp/internal/platform/config"
	"mapleerp/internal/platform/db"
	"mapleerp/internal/platform/logging"
	"mapleerp/internal/platform/metrics"
	"mapleerp/internal/platform/photos"
	"mapleerp/internal/platform/render"
	badgeshandler "mapleerp/internal/transport/http/handlers/badges"
	employeeshandler "mapleerp/internal/transport/http/handlers/employees"
	healthhandler "mapleerp/internal/transport/http/handlers/health"
	"mapleerp/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	DB      *pgxpool.Pool
	Router  http.Handler
	Metrics *metrics.Collector
}

// Dependencies are the collaborators the router is built from.
type Dependencies struct {
	Store   employees.StoreAPI
	Photos  employees.PhotoGateway
	Engine  render.Engine
	Metrics *metrics.Collector
	// PhotoCheck is nil when no photo storage is configured.
	PhotoCheck healthhandler.Pinger
}

// New connects to the database, applies migrations when enabled and builds
// the router. Callers must Close the returned App.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}

	deps := Dependencies{
		Store:   employees.NewStore(pool),
		Engine:  render.NewPDFEngine(cfg.PhotoFetchTimeout),
		Metrics: metrics.New(),
	}

	gateway, err := photos.NewCloudinary(cfg.CloudinaryURL, cfg.CloudinaryFolder)
	switch {
	case err == nil:
		deps.Photos = gateway
		deps.PhotoCheck = gateway
	case errors.Is(err, photos.ErrNotConfigured):
		log.Warn().Msg("CLOUDINARY_URL not set; employee creation will fail until photo storage is configured")
		deps.Photos = gateway
	default:
		pool.Close()
		return nil, err
	}

	return &App{
		Config:  cfg,
		DB:      pool,
		Router:  NewRouter(cfg, deps),
		Metrics: deps.Metrics,
	}, nil
}

func NewRouter(cfg config.Config, deps Dependencies) http.Handler {
	employeeService := employees.NewService(deps.Store, deps.Photos, cfg.UploadTimeout)
	badgeService := badges.NewService(deps.Store, badges.NewRenderer(deps.Engine, cfg.RenderTimeout))

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(deps.Metrics))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))

	health := healthhandler.NewHandler(employeeService, deps.PhotoCheck, cfg.Environment, cfg.Version)
	health.RegisterRoutes(router)

	if cfg.MetricsEnabled {
		router.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	employeeHandler := employeeshandler.NewHandler(employeeService, deps.Metrics)
	employeeHandler.CreateLimit = middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute)
	badgeHandler := badgeshandler.NewHandler(badgeService, deps.Metrics)
	badgeHandler.Limit = middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute)

	router.Route("/employees", func(r chi.Router) {
		employeeHandler.RegisterRoutes(r)
		badgeHandler.RegisterRoutes(r)
	})

	return router
}

func (a *App) Close() {
	if a != nil && a.DB != nil {
		a.DB.Close()
	}
}

// Run serves until SIGINT or SIGTERM, then drains in-flight requests for at
// most ShutdownTimeout.
func Run() error {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel, cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.Addr).Str("environment", cfg.Environment).Msg("employee badge server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
