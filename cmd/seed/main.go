package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"promptdeck/internal/config"
	"promptdeck/internal/domain/events"
	"promptdeck/internal/domain/models"
	"promptdeck/internal/repository/postgres"
	"promptdeck/internal/service"
)

// Seeds the database with a demo user's folders and prompts so a fresh
// environment has something to look at.
func main() {
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed sample data")
	userID := flag.String("user", "00000000-0000-0000-0000-000000000001", "User id to seed data for")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	if cfg.Environment == "prod" {
		log.Fatalf("BLOCKED: refusing to seed a production environment")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)
	if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}
	logger.Info("schema ready", "prefix", cfg.TablePrefix)

	if *schemaOnly {
		return
	}

	store := postgres.NewStore(&postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	})
	hub := events.NewHub()
	folders := service.NewFolderService(store, hub, logger)
	prompts := service.NewPromptService(store, hub, logger)

	samples := map[string][]models.CreatePromptRequest{
		"Writing": {
			{Title: "Summarize", Text: "Summarize the following text in three bullet points:"},
			{Title: "Tone check", Text: "Rewrite the following to sound friendly but concise:"},
		},
		"Code review": {
			{Title: "Review", Text: "Review this diff for correctness and naming:"},
			{Title: "Explain", Text: "Explain what this function does, line by line:"},
		},
	}

	for name, reqs := range samples {
		folder, err := folders.CreateFolder(ctx, *userID, &models.CreateFolderRequest{Name: name})
		if err != nil {
			log.Fatalf("Failed to seed folder %q: %v", name, err)
		}
		for i := range reqs {
			reqs[i].FolderID = folder.ID
			if _, err := prompts.CreatePrompt(ctx, *userID, &reqs[i]); err != nil {
				log.Fatalf("Failed to seed prompt %q: %v", reqs[i].Title, err)
			}
		}
		logger.Info("seeded folder", "name", name, "prompts", len(reqs))
	}

	logger.Info("seeding complete", "user_id", *userID)
}
