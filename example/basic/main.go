package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/oran-nephio/docrag"
)

func main() {
	// Optional .env for CHUNK_SIZE, RETRIEVER_K, OPENAI_API_KEY etc.
	_ = godotenv.Load()

	rag, err := docrag.NewWithDefaults()
	if err != nil {
		log.Fatalf("Failed to create rag: %v", err)
	}
	defer rag.Close()

	// Set up the default pipeline (overlapping windows + embeddings)
	if err := rag.UseDefaultPipeline(); err != nil {
		log.Fatalf("Failed to set up pipeline: %v", err)
	}

	ctx := context.Background()

	// Ingest the default Nephio and O-RAN SC documentation sources
	fmt.Println("Syncing documentation sources...")
	report, err := rag.Sync(ctx, false)
	if err != nil {
		log.Fatalf("Failed to sync: %v", err)
	}
	fmt.Printf("Synced %d sources: %d succeeded, %d failed, %d skipped, %d chunks total\n",
		report.Processed(), len(report.Succeeded), len(report.Failed), len(report.Skipped), report.TotalChunks)
	for _, failure := range report.Failed {
		fmt.Printf("  failed %s at stage %s: %s\n", failure.URL, failure.Stage, failure.Reason)
	}

	// Retrieve relevant chunks for a question
	question := "How does Nephio automate network function deployment?"
	fmt.Printf("\nQuerying: %s\n", question)

	result, err := rag.Retrieve(ctx, question, 0)
	if err != nil {
		log.Fatalf("Failed to retrieve: %v", err)
	}
	fmt.Printf("Found %d chunks in %s:\n", len(result.Results), result.RetrievalTime)
	for _, scored := range result.Results {
		fmt.Printf("  [%.3f] %s (chunk %d)\n", scored.Similarity, scored.Chunk.SourceURL, scored.Chunk.ChunkIndex)
	}

	// Answer with the configured backend (mock unless replaced)
	answer, _, err := rag.Answer(ctx, question)
	if err != nil {
		log.Fatalf("Failed to answer: %v", err)
	}
	fmt.Printf("\nAnswer:\n%s\n", answer)
}
