package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"ai-docchat-be/internal/config"
	"ai-docchat-be/internal/repository/implementation"
	"ai-docchat-be/internal/repository/memory"
	"ai-docchat-be/internal/repository/unitofwork"
	"ai-docchat-be/pkg/database"
	"ai-docchat-be/pkg/embedding"
	"ai-docchat-be/pkg/embedding/jina"
	"ai-docchat-be/pkg/llm/factory"
	"ai-docchat-be/pkg/rag"
	"ai-docchat-be/pkg/rag/executor"
	"ai-docchat-be/pkg/rag/history"
	"ai-docchat-be/pkg/rag/partition"
	"ai-docchat-be/pkg/rag/rerank"
	"ai-docchat-be/pkg/rag/stream"

	"github.com/google/uuid"
)

// Runs one query through the full pipeline against live providers, printing
// every stream event. Use it to watch strategy selection and fallback
// behavior without the HTTP layer in the way.
func main() {
	userFlag := flag.String("user", "", "user uuid (random if empty)")
	sessionFlag := flag.String("session", "", "session uuid (random if empty; fresh sessions have no documents)")
	query := flag.String("query", "What is this document about?", "query to trace")
	flag.Parse()

	cfg := config.Load()

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatalf("DB connection failed: %v", err)
	}

	var embeddingProvider embedding.EmbeddingProvider
	switch cfg.Ai.EmbeddingProvider {
	case "ollama":
		embeddingProvider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
	case "jina":
		embeddingProvider = jina.NewJinaProvider(cfg.Keys.Jina)
	default:
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
	}

	llmProvider, err := factory.NewLLMProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, cfg.Ai.OllamaBaseURL, cfg.Keys.HuggingFace)
	if err != nil {
		log.Fatalf("LLM provider init failed: %v", err)
	}

	uowFactory := unitofwork.NewRepositoryFactory(db)
	partitionManager := partition.NewManager(
		implementation.NewPartitionRepository(db),
		memory.NewPartitionCache(),
		log.New(os.Stdout, "[PROBE] ", log.LstdFlags),
	)

	pipeline := executor.NewExecutor(
		llmProvider,
		embeddingProvider,
		partitionManager,
		history.NewLoader(uowFactory),
		rerank.NewLexicalBlend(0.3),
		uowFactory,
		rag.DefaultConfig(),
		log.New(os.Stdout, "[PROBE] ", log.LstdFlags),
	)

	userId := parseOrNew(*userFlag)
	sessionId := parseOrNew(*sessionFlag)

	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("PIPELINE PROBE\n  user:    %s\n  session: %s\n  query:   %s\n", userId, sessionId, *query)
	fmt.Println(strings.Repeat("=", 70))

	start := time.Now()
	events := pipeline.ExecuteStream(context.Background(), executor.Request{
		UserId:    userId,
		SessionId: sessionId,
		Query:     *query,
	})

	for event := range events {
		switch event.Type {
		case stream.TypeLayerUpdate:
			fmt.Printf("\n[%7.2fs] LAYER  %s\n", time.Since(start).Seconds(), event.Label)
		case stream.TypeSource:
			fmt.Printf("[%7.2fs] SOURCE %s p.%d\n", time.Since(start).Seconds(), event.Citation.FileName, event.Citation.PageNumber)
		case stream.TypeTextDelta:
			fmt.Print(event.Chunk)
		case stream.TypeError:
			fmt.Printf("\n[%7.2fs] ERROR  %s\n", time.Since(start).Seconds(), event.Message)
		case stream.TypeDone:
			fmt.Printf("\n[%7.2fs] DONE\n", time.Since(start).Seconds())
		}
	}

	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Total: %v\n", time.Since(start))
}

func parseOrNew(raw string) uuid.UUID {
	if raw == "" {
		return uuid.New()
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		log.Fatalf("Invalid uuid %q: %v", raw, err)
	}
	return id
}
