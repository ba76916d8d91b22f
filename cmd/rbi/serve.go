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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/barangay-rbi/registry/internal/cache"
	"github.com/barangay-rbi/registry/internal/lookup"
	"github.com/barangay-rbi/registry/internal/psgc"
	"github.com/barangay-rbi/registry/internal/psoc"
	"github.com/barangay-rbi/registry/internal/resident"
	"github.com/barangay-rbi/registry/internal/sectoral"
	"github.com/barangay-rbi/registry/internal/shared/auth"
	"github.com/barangay-rbi/registry/internal/shared/config"
	"github.com/barangay-rbi/registry/internal/shared/database"
	"github.com/barangay-rbi/registry/internal/shared/events"
	"github.com/barangay-rbi/registry/internal/shared/httpx"
	"github.com/barangay-rbi/registry/internal/shared/metrics"
	secmiddleware "github.com/barangay-rbi/registry/internal/shared/middleware"
)

const maxBodyBytes = 1 << 20

// App holds all application dependencies. DB, Redis and Bus are optional.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Rules  *sectoral.Rules
	DB     *database.DB
	Redis  *redis.Client
	Bus    *events.Bus
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			app, err := connect(cmd.Context(), cfg, logger, true)
			if err != nil {
				return err
			}
			defer app.Close()

			return serve(app)
		},
	}
}

// connect opens the backing services. Every one of them is optional: without
// a database only the option lists are served, without Redis nothing is
// cached and without KurrentDB events are dropped.
func connect(ctx context.Context, cfg *config.Config, logger *zap.Logger, migrate bool) (*App, error) {
	rules, err := sectoral.LoadRules(cfg.Sectoral.RulesPath)
	if err != nil {
		return nil, err
	}
	app := &App{Config: cfg, Logger: logger, Rules: rules}

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		logger.Warn("database not available, running with option lists only", zap.Error(err))
	} else {
		app.DB = db
		if migrate {
			if err := database.Migrate(ctx, db.Pool, logger); err != nil {
				logger.Warn("migration failed", zap.Error(err))
			}
		}
	}

	if cfg.Redis.Enabled {
		client := cache.NewClient(cfg.Redis)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis not available, search caching disabled", zap.Error(err))
			client.Close()
		} else {
			app.Redis = client
		}
	}

	if cfg.KurrentDB.Enabled {
		bus, err := events.NewBus(cfg.KurrentDB, logger)
		if err != nil {
			logger.Warn("KurrentDB not available, events are dropped", zap.Error(err))
		} else {
			app.Bus = bus
			logger.Info("KurrentDB event bus initialized",
				zap.String("host", cfg.KurrentDB.Host),
				zap.Int("port", cfg.KurrentDB.Port),
			)
		}
	}

	return app, nil
}

// Close releases every open connection.
func (a *App) Close() {
	if a.Bus != nil {
		a.Bus.Close()
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

func (a *App) publisher() events.Publisher {
	if a.Bus == nil {
		return events.Discard{}
	}
	return a.Bus
}

func (a *App) searchCache() *cache.SearchCache {
	if a.Redis == nil {
		return nil
	}
	return cache.NewSearchCache(a.Redis, a.Config.Search.CacheTTL, a.Logger)
}

// services are the module services wired against the database.
type services struct {
	psgc     *psgc.Service
	psoc     *psoc.Service
	resident *resident.Service
}

func (a *App) services() *services {
	if a.DB == nil {
		return nil
	}
	c := a.searchCache()
	places := psgc.NewService(psgc.NewRepository(a.DB.Pool), c, a.Config.Search, a.Logger)
	occupations := psoc.NewService(psoc.NewRepository(a.DB.Pool), c, a.publisher(), a.Config.Search, a.Logger)
	calc := sectoral.NewCalculator(a.Rules, nil)

	return &services{
		psgc: places,
		psoc: occupations,
		resident: resident.NewService(resident.Deps{
			Store:             resident.NewRepository(a.DB.Pool),
			Calculator:        calc,
			Catalog:           lookup.NewCatalog(a.Rules),
			ResolvePlace:      places.Resolve,
			ResolveOccupation: occupations.Resolve,
			Publisher:         a.publisher(),
			Logger:            a.Logger,
		}),
	}
}

// Router builds the HTTP handler.
func (a *App) Router() http.Handler {
	cfg := a.Config
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(secmiddleware.RequestLogger(a.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(metrics.Middleware)
	r.Use(secmiddleware.CORS(secmiddleware.DefaultCORSConfig()))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	r.Get("/ready", a.readyHandler)
	r.Handle("/metrics", metrics.Handler())

	limiter := secmiddleware.NewIPRateLimiter(cfg.Search.RateLimit, cfg.Search.RateBurst)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(secmiddleware.BodyLimit(maxBodyBytes))
		if cfg.Server.Env == "production" {
			r.Use(auth.Middleware(cfg.Auth))
		}

		r.Mount("/options", lookup.NewHandler(lookup.NewCatalog(a.Rules)).Routes())

		svc := a.services()
		if svc == nil {
			return
		}
		r.With(limiter.Middleware).Mount("/psgc", psgc.NewHandler(svc.psgc, cfg.Search).Routes())
		r.With(limiter.Middleware).Mount("/psoc", psoc.NewHandler(svc.psoc, cfg.Search).Routes())
		r.Mount("/residents", resident.NewHandler(svc.resident).Routes())
	})

	return r
}

func (a *App) readyHandler(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"server": "ready"}
	check := func(name string, configured bool, ping func() error) {
		if !configured {
			checks[name] = "not configured"
			return
		}
		if err := ping(); err != nil {
			checks[name] = "not ready: " + err.Error()
			return
		}
		checks[name] = "ready"
	}

	ctx := r.Context()
	check("database", a.DB != nil, func() error { return a.DB.Health(ctx) })
	check("redis", a.Redis != nil, func() error { return a.Redis.Ping(ctx).Err() })
	check("kurrentdb", a.Bus != nil, func() error { return a.Bus.Health(ctx) })

	allReady := true
	for _, status := range checks {
		if status != "ready" && status != "not configured" {
			allReady = false
			break
		}
	}

	status, label := http.StatusOK, "ready"
	if !allReady {
		status, label = http.StatusServiceUnavailable, "not ready"
	}
	httpx.WriteJSON(w, status, map[string]any{"status": label, "checks": checks})
}

func serve(app *App) error {
	cfg := app.Config
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		app.Logger.Info("shutting down server")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			app.Logger.Error("server shutdown error", zap.Error(err))
		}
		close(done)
	}()

	app.Logger.Info("server starting",
		zap.String("env", cfg.Server.Env),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("database", app.DB != nil),
		zap.Bool("redis", app.Redis != nil),
		zap.Bool("kurrentdb", app.Bus != nil),
	)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	app.Logger.Info("server stopped")
	return nil
}
