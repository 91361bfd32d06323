package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"promptdeck/internal/auth"
	"promptdeck/internal/config"
	"promptdeck/internal/domain/events"
	"promptdeck/internal/handler"
	"promptdeck/internal/middleware"
	"promptdeck/internal/repository/postgres"
	"promptdeck/internal/service"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// JWT verifier against the identity provider's JWKS endpoint
	jwtVerifier, err := auth.NewJWKSVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected")

	tables := postgres.NewTableNames(cfg.TablePrefix)
	store := postgres.NewStore(&postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	})

	// Change notification hub: the quick-access linker registers its
	// prompt-deletion cascade here
	hub := events.NewHub()

	identity := auth.NewIdentityClient(cfg.IdentityURL, cfg.IdentityKey)

	// Services
	quickAccess := service.NewQuickAccessLinker(store, hub, logger)
	folderService := service.NewFolderService(store, hub, logger)
	promptService := service.NewPromptService(store, hub, logger)
	subscriptions := service.NewSubscriptionResolver(store, identity, quickAccess, hub, logger)
	copies := service.NewCopyResolver(store, hub, logger)

	// Handlers
	folderHandler := handler.NewFolderHandler(folderService, promptService, logger)
	promptHandler := handler.NewPromptHandler(promptService, copies, logger)
	shareHandler := handler.NewShareHandler(subscriptions, logger)
	quickAccessHandler := handler.NewQuickAccessHandler(quickAccess, logger)

	logger.Info("services initialized")

	// HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", handler.HealthCheck)

	// Folder routes
	mux.HandleFunc("POST /api/folders", folderHandler.CreateFolder)
	mux.HandleFunc("GET /api/folders", folderHandler.ListFolders)
	mux.HandleFunc("POST /api/folders/reorder", folderHandler.ReorderFolders)
	mux.HandleFunc("GET /api/folders/{id}", folderHandler.GetFolder)
	mux.HandleFunc("PATCH /api/folders/{id}", folderHandler.UpdateFolder)
	mux.HandleFunc("DELETE /api/folders/{id}", folderHandler.DeleteFolder)
	mux.HandleFunc("GET /api/folders/{id}/prompts", folderHandler.ListPrompts)
	mux.HandleFunc("POST /api/folders/{id}/prompts/reorder", folderHandler.ReorderPrompts)

	// Prompt routes
	mux.HandleFunc("POST /api/prompts", promptHandler.CreatePrompt)
	mux.HandleFunc("GET /api/prompts/{id}", promptHandler.GetPrompt)
	mux.HandleFunc("PATCH /api/prompts/{id}", promptHandler.UpdatePrompt)
	mux.HandleFunc("DELETE /api/prompts/{id}", promptHandler.DeletePrompt)
	mux.HandleFunc("POST /api/prompts/{id}/move", promptHandler.MovePrompt)
	mux.HandleFunc("POST /api/prompts/{id}/use", promptHandler.RecordUse)
	mux.HandleFunc("POST /api/prompts/{id}/copy", promptHandler.CopyPrompt)

	// Sharing and subscription routes
	mux.HandleFunc("POST /api/folders/{id}/share", shareHandler.ShareFolder)
	mux.HandleFunc("DELETE /api/folders/{id}/share", shareHandler.RevokeShare)
	mux.HandleFunc("POST /api/subscriptions", shareHandler.Subscribe)
	mux.HandleFunc("GET /api/subscriptions", shareHandler.ListSubscriptions)
	mux.HandleFunc("GET /api/subscriptions/{id}/prompts", shareHandler.SubscriptionPrompts)
	mux.HandleFunc("DELETE /api/subscriptions/{id}", shareHandler.Unsubscribe)

	// Quick access routes
	mux.HandleFunc("POST /api/quick-access/folders", quickAccessHandler.CreateFolder)
	mux.HandleFunc("GET /api/quick-access/folders", quickAccessHandler.ListFolders)
	mux.HandleFunc("POST /api/quick-access/folders/reorder", quickAccessHandler.ReorderFolders)
	mux.HandleFunc("DELETE /api/quick-access/folders/{id}", quickAccessHandler.DeleteFolder)
	mux.HandleFunc("GET /api/quick-access/folders/{id}/items", quickAccessHandler.ListItems)
	mux.HandleFunc("POST /api/quick-access/folders/{id}/items/reorder", quickAccessHandler.ReorderItems)
	mux.HandleFunc("POST /api/quick-access/items", quickAccessHandler.AddItem)
	mux.HandleFunc("DELETE /api/quick-access/items/{id}", quickAccessHandler.RemoveItem)

	// Build middleware chain in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	var h http.Handler = mux
	h = middleware.Auth(jwtVerifier, logger)(h)
	h = middleware.Recovery(logger)(h)

	// CORS must be outermost to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM
	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
