package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"

	"github.com/liamcoop/cartrules/internal/config"
	"github.com/liamcoop/cartrules/internal/db"
	"github.com/liamcoop/cartrules/internal/logger"
	"github.com/liamcoop/cartrules/migrations"
	"github.com/liamcoop/cartrules/projectengine"
	"github.com/liamcoop/cartrules/rules"
)

type Server struct {
	db             *sqlx.DB
	engineManager  *projectengine.Manager
	router         *chi.Mux
	requestTimeout time.Duration
}

// NewServer builds the project engines and the router. conn may be nil, in
// which case projects only live in memory.
func NewServer(conn *sqlx.DB, cfg *config.Config) (*Server, error) {
	engineManager := projectengine.NewManager(conn, engineOptions(cfg)...)

	logger.Info("loading projects from database")
	if err := engineManager.LoadAllProjects(); err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}

	s := &Server{
		db:             conn,
		engineManager:  engineManager,
		requestTimeout: cfg.RequestTimeout,
	}
	s.setupRoutes()

	return s, nil
}

// engineOptions maps configuration onto every project engine
func engineOptions(cfg *config.Config) []rules.Option {
	return []rules.Option{
		rules.WithConcurrency(cfg.EvaluationConcurrency),
		rules.WithCacheConfig(rules.CacheConfig{TTL: cfg.DiscountCacheTTL}),
		rules.WithSlowThreshold(cfg.SlowEvaluationThreshold),
	}
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if s.requestTimeout > 0 {
		r.Use(middleware.Timeout(s.requestTimeout))
	}

	r.Get("/api/v1/health", s.handleHealth)
	r.Get("/api/v1/metrics", s.handleMetrics)

	// Evaluation
	r.Post("/api/v1/evaluate", s.handleEvaluate)

	r.Route("/api/v1/predicates", func(r chi.Router) {
		r.Post("/evaluate", s.handleEvaluatePredicate)
		r.Post("/parse", s.handleParsePredicate)
		r.Post("/stringify", s.handleStringifyPredicate)
	})

	// Project management
	r.Route("/api/v1/projects", func(r chi.Router) {
		r.Get("/", s.handleListProjects)
		r.Post("/", s.handleCreateProject)

		r.Route("/{projectKey}", func(r chi.Router) {
			r.Get("/", s.handleGetProject)
			r.Delete("/", s.handleDeleteProject)

			r.Put("/categories", s.handleReplaceCategories)
			r.Get("/categories", s.handleGetCategories)

			// Discount management
			r.Post("/discounts", s.handleCreateDiscount)
			r.Get("/discounts", s.handleListDiscounts)
			r.Get("/discounts/{discountId}", s.handleGetDiscount)
			r.Put("/discounts/{discountId}", s.handleUpdateDiscount)
			r.Delete("/discounts/{discountId}", s.handleDeleteDiscount)
		})
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func main() {
	configPath := flag.String("config", os.Getenv("CARTRULES_CONFIG"), "Optional config file (yaml, json or toml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}
	if err := logger.Configure(cfg.LogLevel, cfg.ErrorSampleRate); err != nil {
		logger.Warn("invalid log configuration", "error", err)
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to open database", "error", err)
	}
	defer conn.Close()

	if cfg.MigrateOnStart {
		if err := migrations.Up(conn); err != nil {
			logger.Fatal("failed to migrate database", "error", err)
		}
	}

	server, err := NewServer(conn, cfg)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      server,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port, "projects", len(server.engineManager.ListProjects()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server stopped")

	if err := logger.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "failed to flush logs: %v\n", err)
	}
}
