package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/Lixing-Zhang/kart-challenge/catering/internal/config"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/handlers"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/handoff"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/identity"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/metrics"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/middleware"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/repository"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/routing"
	"github.com/Lixing-Zhang/kart-challenge/catering/internal/service"
	"github.com/Lixing-Zhang/kart-challenge/catering/pkg/logger"
)

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("starting catering server",
		"port", cfg.Server.Port,
		"host", cfg.Server.Host,
		"log_level", cfg.LogLevel,
	)

	// Identity provider
	identityStore, err := identity.OpenStore(cfg.Database.Path)
	if err != nil {
		log.Error("failed to open identity store", "path", cfg.Database.Path, "error", err)
		os.Exit(1)
	}
	defer identityStore.Close()

	identityService := identity.NewService(identityStore, identity.Options{
		Secret:     cfg.Auth.JWTSecret,
		Issuer:     cfg.Auth.JWTIssuer,
		TokenTTL:   cfg.Auth.AccessTokenTTL,
		BcryptCost: cfg.Auth.BcryptCost,
	}, log)

	checks := map[string]handlers.Pinger{"identity": identityStore}

	// Per-tab handoff storage
	handoffStore, closeHandoff, err := openHandoff(cfg.Handoff, log)
	if err != nil {
		log.Error("failed to open handoff store", "error", err)
		os.Exit(1)
	}
	defer closeHandoff()
	if p, ok := handoffStore.(handlers.Pinger); ok {
		checks["handoff"] = p
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Initialize repositories
	catererRepo := repository.NewInMemoryCatererRepository()
	menuRepo := repository.NewInMemoryMenuRepository()
	orderRepo := repository.NewInMemoryOrderRepository()

	// Initialize services
	catererService := service.NewCatererService(catererRepo, menuRepo)
	menuService := service.NewMenuService(catererService, menuRepo)
	orderService := service.NewOrderService(orderRepo, menuRepo)
	curationService := service.NewCurationService(handoffStore, menuRepo, cfg.Handoff.TTL)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(log, checks)
	authHandler := handlers.NewAuthHandler(handoffStore, handlers.CookieConfig{
		Name:   cfg.Auth.CookieName,
		Secure: cfg.Auth.CookieSecure,
	}, cfg.Handoff.TTL, m, log)
	eventsHandler := handlers.NewEventsHandler(cfg.CORS.AllowedOrigins, m, log)
	customerHandler := handlers.NewCustomerHandler(catererService, curationService, orderService, m, log)
	catererHandler := handlers.NewCatererHandler(catererService, menuService, orderService, log)

	pages := routing.NewMux(
		handlers.Tables(authHandler, eventsHandler, customerHandler, catererHandler),
		handlers.Fallbacks(log),
		func(id routing.TableID) { m.TableSelected(id.String()) },
	)

	// Create router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", middleware.TabHeader},
		ExposedHeaders:   []string{"Link", "Location"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Register operational endpoints
	r.Get("/health", healthHandler.ServeHTTP)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Pages, served from the route table of the caller's session
	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(identityService, cfg.Auth.CookieName, log))
		r.Mount("/", pages)
	})

	// Create HTTP server
	addr := cfg.Server.Addr()
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		return
	}

	log.Info("server stopped gracefully")
}

// openHandoff picks Redis when an address is configured and the in-process
// store otherwise
func openHandoff(cfg config.HandoffConfig, log *slog.Logger) (handoff.Store, func(), error) {
	if cfg.RedisAddr == "" {
		store := handoff.NewMemoryStore(time.Minute)
		log.Info("using in-memory handoff store")
		return store, func() { store.Close() }, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
	}

	log.Info("using redis handoff store", "addr", cfg.RedisAddr)
	return handoff.NewRedisStore(client), func() { client.Close() }, nil
}
