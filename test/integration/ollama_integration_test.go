package integration

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"ai-docchat-be/pkg/embedding"
	"ai-docchat-be/pkg/llm"
	"ai-docchat-be/pkg/llm/ollama"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests talk to a local Ollama server and skip when none is running.
// They cover the two provider adapters the pipeline depends on: chat
// generation and embeddings.

const ollamaTestModel = "gemma:2b"

func ollamaBaseURL() string {
	if url := os.Getenv("OLLAMA_BASE_URL"); url != "" {
		return url
	}
	return "http://localhost:11434"
}

func requireOllama(t *testing.T) {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(ollamaBaseURL() + "/api/tags")
	if err != nil {
		t.Skipf("Skipping: Ollama not reachable at %s", ollamaBaseURL())
	}
	resp.Body.Close()
}

func TestOllamaGenerate(t *testing.T) {
	requireOllama(t)

	provider := ollama.NewOllamaProvider(ollamaBaseURL(), ollamaTestModel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	answer, err := provider.Generate(ctx, "Reply with exactly one word: pong")
	require.NoError(t, err)
	assert.NotEmpty(t, answer)
	t.Logf("Generate answer: %q", answer)
}

func TestOllamaMultiTurnChat(t *testing.T) {
	requireOllama(t)

	provider := ollama.NewOllamaProvider(ollamaBaseURL(), ollamaTestModel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// One turn uses the legacy "model" role on purpose: the adapter must map
	// it to "assistant" before Ollama sees it.
	history := []llm.Message{
		{Role: "user", Content: "My favorite color is green. Remember that."},
		{Role: "model", Content: "Understood, your favorite color is green."},
		{Role: "user", Content: "What is my favorite color? Answer with one word."},
	}

	answer, err := provider.Chat(ctx, history, llm.WithTemperature(0.0))
	require.NoError(t, err)
	assert.NotEmpty(t, answer)
	t.Logf("Chat answer: %q", answer)
}

func TestOllamaEmbedding(t *testing.T) {
	requireOllama(t)

	provider := embedding.NewOllamaProvider(ollamaBaseURL(), "nomic-embed-text")

	first, err := provider.Generate("Photosynthesis converts light into chemical energy.", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.NotEmpty(t, first.Embedding.Values)

	second, err := provider.Generate("Interest rates moved again last quarter.", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.NotEmpty(t, second.Embedding.Values)

	// Same model, same dimensionality, different content
	assert.Equal(t, len(first.Embedding.Values), len(second.Embedding.Values))
	assert.NotEqual(t, first.Embedding.Values, second.Embedding.Values)
}
