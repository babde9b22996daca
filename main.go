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
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"

	"zafo-tickets/internal/auth"
	"zafo-tickets/internal/backend"
	"zafo-tickets/internal/config"
	"zafo-tickets/internal/database"
	"zafo-tickets/internal/database/migrations"
	"zafo-tickets/internal/kafka"
	"zafo-tickets/internal/logger"
	"zafo-tickets/internal/models"
	"zafo-tickets/internal/tickets/db"
	"zafo-tickets/internal/tickets/qr"
	"zafo-tickets/internal/tickets/render"
	tickets "zafo-tickets/internal/tickets/service"
	"zafo-tickets/internal/tickets/template"
	"zafo-tickets/internal/tickets/ticket_api"
)

func openStore(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*bun.DB, error) {
	bunDB, err := database.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	log.Info("DATABASE", fmt.Sprintf("✅ %s connection successful", cfg.Driver))

	if cfg.Driver == database.DriverPostgres {
		runner := migrations.NewRunner(bunDB, log)
		defer runner.Close()
		err = runner.Up()
	} else {
		err = (&db.DB{Bun: bunDB}).EnsureSchema(ctx)
	}
	if err != nil {
		_ = bunDB.Close()
		return nil, fmt.Errorf("prepare schema: %w", err)
	}
	return bunDB, nil
}

func newPublisher(ctx context.Context, cfg config.KafkaConfig, log *logger.Logger) kafka.Publisher {
	if !cfg.Enabled || cfg.MockMode {
		log.Info("KAFKA", "Kafka disabled, document events are not published")
		return kafka.NoopPublisher{Logger: log}
	}

	if err := kafka.EnsureTopicsExist(ctx, cfg.Brokers, []string{cfg.Topic}, log); err != nil {
		log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	}
	log.Info("KAFKA", fmt.Sprintf("Publishing document events to %s via %v", cfg.Topic, cfg.Brokers))
	return kafka.NewProducer(cfg.Brokers, cfg.Topic, log)
}

func newTokenSource(ctx context.Context, cfg *config.Config, client *http.Client, log *logger.Logger) (*auth.TokenSource, *redis.Client) {
	keycloak := models.KeycloakConfig{
		KeycloakURL:   cfg.Auth.KeycloakURL,
		KeycloakRealm: cfg.Auth.KeycloakRealm,
		ClientID:      cfg.Auth.ClientID,
		ClientSecret:  cfg.Auth.ClientSecret,
	}
	if keycloak.KeycloakURL == "" {
		log.Warn("AUTH", "KEYCLOAK_URL not set, backend calls are sent without a service token")
		return nil, nil
	}

	if cfg.Redis.Addr == "" {
		return auth.NewTokenSource(keycloak, client, nil, log), nil
	}
	redisClient, err := auth.ConnectRedis(ctx, cfg.Redis.Addr)
	if err != nil {
		log.Warn("REDIS", fmt.Sprintf("Token cache disabled: %v", err))
		return auth.NewTokenSource(keycloak, client, nil, log), nil
	}
	log.Info("REDIS", fmt.Sprintf("✅ Token cache connected to %s", cfg.Redis.Addr))
	return auth.NewTokenSource(keycloak, client, auth.NewRedisTokenCache(redisClient), log), redisClient
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Ticket Document Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()
	client := &http.Client{Timeout: cfg.Backend.Timeout}

	bunDB, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer bunDB.Close()

	publisher := newPublisher(ctx, cfg.Kafka, log)
	defer publisher.Close()

	var tokens backend.TokenSource
	tokenSource, redisClient := newTokenSource(ctx, cfg, client, log)
	if tokenSource != nil {
		tokens = tokenSource
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	renderer := render.NewRenderer(
		render.WithScale(cfg.Render.Scale),
		render.WithQRSize(cfg.Render.DocumentQRSize),
		render.WithTemplate(template.Options{Brand: cfg.Render.Brand, Accent: cfg.Render.Accent}),
		render.WithLogger(log),
	)

	documents := &tickets.DocumentService{
		Renderer:    renderer,
		Store:       &db.DB{Bun: bunDB},
		Tickets:     backend.NewClient(cfg.Backend.URL, client, tokens, log),
		Publisher:   publisher,
		QR:          qr.NewEncoder(),
		Logger:      log,
		PreviewSize: cfg.Render.PreviewQRSize,
	}
	handler := &ticket_api.Handler{Documents: documents, Logger: log}

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(ticket_api.RequestLogger(log))

	// --- Public Routes ---
	handler.RegisterPublicRoutes(r)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		if cfg.Auth.Skip {
			log.Warn("AUTH", "AUTH_SKIP set, requests are not authenticated")
			r.Use(auth.SkipMiddleware())
		} else {
			authMiddleware, err := auth.Middleware(ctx, cfg.Auth.OIDCIssuer, log)
			if err != nil {
				log.Fatal("AUTH", err.Error())
			}
			r.Use(authMiddleware)
			log.Info("AUTH", "OIDC middleware applied to document routes")
		}
		handler.RegisterRoutes(r)
	})
	log.Info("ROUTER", "Document routes registered under /api/tickets")

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("🚀 Ticket Document Service running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		log.Info("HTTP", "✅ Ticket Document Service shutdown complete")
	}
}
