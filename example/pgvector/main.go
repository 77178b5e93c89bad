package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/oran-nephio/docrag"
	"github.com/oran-nephio/docrag/core/pipeline"
	"github.com/oran-nephio/docrag/database"
	"github.com/oran-nephio/docrag/helper"
	"github.com/oran-nephio/docrag/model"
	loadSql "github.com/oran-nephio/docrag/sql"
)

func main() {
	_ = godotenv.Load()

	// Start a test PostgreSQL container with pgvector
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{Level: slog.LevelInfo},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	db := helper.NewDatabase("docrag", dbConfig, logger)
	if err := loadSql.Init(db.Instance); err != nil {
		log.Fatalf("Failed to initialize database extensions: %v", err)
	}

	cfg := model.DefaultConfig()

	// The store is pinned to the embedder's dimension at creation
	embedder := pipeline.NewDefaultEmbedder(cfg, logger)
	store, err := database.NewPgStore(db, embedder.Dimension(), false)
	if err != nil {
		log.Fatalf("Failed to create pgvector store: %v", err)
	}

	rag, err := docrag.New(cfg, nil, store)
	if err != nil {
		log.Fatalf("Failed to create rag: %v", err)
	}
	defer rag.Close()

	chunker := pipeline.WindowChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err := rag.SetPipeline(embedder, chunker); err != nil {
		log.Fatalf("Failed to set up pipeline: %v", err)
	}

	ctx := context.Background()

	fmt.Println("Syncing documentation sources into pgvector...")
	report, err := rag.Sync(ctx, false)
	if err != nil {
		log.Fatalf("Failed to sync: %v", err)
	}
	fmt.Printf("Synced %d sources, %d chunks total\n", report.Processed(), report.TotalChunks)

	status, err := rag.Status(ctx)
	if err != nil {
		log.Fatalf("Failed to read status: %v", err)
	}
	for _, src := range status.Sources {
		fmt.Printf("  %s: %d chunks, synced %s\n", src.URL, src.ChunkCount, src.SyncedAt.Format("2006-01-02 15:04:05"))
	}

	question := "What is the O-RAN near-RT RIC?"
	fmt.Printf("\nQuerying: %s\n", question)
	result, err := rag.Retrieve(ctx, question, 5)
	if err != nil {
		log.Fatalf("Failed to retrieve: %v", err)
	}
	for _, scored := range result.Results {
		fmt.Printf("  [%.3f] %s (chunk %d)\n", scored.Similarity, scored.Chunk.SourceURL, scored.Chunk.ChunkIndex)
	}
}
