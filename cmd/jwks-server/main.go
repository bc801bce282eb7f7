package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/TylerAdamMartinez/JWKS-server/pkg/api"
	"github.com/TylerAdamMartinez/JWKS-server/pkg/authlog"
	"github.com/TylerAdamMartinez/JWKS-server/pkg/config"
	"github.com/TylerAdamMartinez/JWKS-server/pkg/keypool"
	"github.com/TylerAdamMartinez/JWKS-server/pkg/keystore"
	"github.com/TylerAdamMartinez/JWKS-server/pkg/ratelimit"
	"github.com/TylerAdamMartinez/JWKS-server/pkg/register"
	"github.com/TylerAdamMartinez/JWKS-server/pkg/token"
)

func main() {
	// Create a logger with source enabled
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true, // Enables line number & file path
	}))
	slog.SetDefault(logger)

	// Load .env file if present (before reading environment variables)
	if err := godotenv.Load(); err == nil {
		slog.Info("Configuration loaded from .env file")
	}

	cfg := config.Config{}
	cleanenv.ReadEnv(&cfg)

	keyRepo, authLogRepo, userRepo, err := buildRepositories(&cfg)
	if err != nil {
		slog.Error("Failed to initialize storage backend", "backend", cfg.Keys.Backend, "err", err)
		os.Exit(-1)
	}

	keyService := keypool.NewService(keyRepo, cfg.Keys.KeySize, cfg.Keys.ReloadOnRead)
	if err := keyService.Seed(context.Background(), cfg.Keys.PoolSize); err != nil {
		slog.Error("Failed to seed key pool", "err", err)
		os.Exit(-1)
	}

	registerService := register.NewService(userRepo, nil)
	issuer := token.NewIssuer(cfg.Token.Issuer, cfg.Token.Audience)

	handle := api.NewHandle(
		api.WithKeyService(keyService),
		api.WithIssuer(issuer),
		api.WithRegisterService(registerService),
		api.WithAuthLog(authLogRepo),
	)

	rateLimiter := ratelimit.NewMiddleware(&ratelimit.Config{
		Enabled:        cfg.RateLimit.Enabled,
		Capacity:       cfg.RateLimit.Capacity,
		RefillRate:     cfg.RateLimit.RefillRate,
		BucketTTL:      cfg.RateLimit.BucketTTL(),
		IncludeHeaders: true,
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(rateLimiter.Handler)
	api.Routes(r, handle)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "addr", cfg.Server.Addr(), "backend", cfg.Keys.Backend,
			"pool_size", cfg.Keys.PoolSize, "key_size", cfg.Keys.KeySize)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "err", err)
			os.Exit(-1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Graceful shutdown failed", "err", err)
	}
}

// buildRepositories selects the storage implementations for the
// configured backend. The memory and file backends keep users and auth
// logs in memory; postgres persists all three.
func buildRepositories(cfg *config.Config) (keystore.Repository, authlog.Repository, register.Repository, error) {
	switch cfg.Keys.Backend {
	case "postgres":
		pool, err := pgxpool.New(context.Background(), cfg.Database.ToDatabaseURL())
		if err != nil {
			return nil, nil, nil, err
		}

		keyRepo, err := keystore.NewPostgresRepository(pool)
		if err != nil {
			return nil, nil, nil, err
		}
		authLogRepo, err := authlog.NewPostgresRepository(pool)
		if err != nil {
			return nil, nil, nil, err
		}
		userRepo, err := register.NewPostgresRepository(pool)
		if err != nil {
			return nil, nil, nil, err
		}
		return keyRepo, authLogRepo, userRepo, nil

	case "file":
		keyRepo, err := keystore.NewFileRepository(cfg.Keys.DataDir)
		if err != nil {
			return nil, nil, nil, err
		}
		return keyRepo, authlog.NewInMemoryRepository(), register.NewInMemoryRepository(), nil

	default:
		return keystore.NewInMemoryRepository(), authlog.NewInMemoryRepository(), register.NewInMemoryRepository(), nil
	}
}
