package classify

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"ai-docchat-be/pkg/llm"
	"ai-docchat-be/pkg/store"

	"github.com/stretchr/testify/assert"
)

type fakeLLM struct {
	response string
	err      error
	calls    int
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	f.calls++
	return f.response, f.err
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	f.calls++
	return f.response, f.err
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestMatchGreeting(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  bool
	}{
		{"exact lowercase", "hi", true},
		{"exact with punctuation", "Hello!", true},
		{"multi word entry", "good morning", true},
		{"short prefix", "hi there", true},
		{"thanks prefix", "thanks a lot", true},
		{"farewell", "bye", true},
		{"transliterated", "namaste", true},
		{"prefix is part of a word", "high revenue in 2023", false},
		{"long query with greeting prefix", "hi, can you summarize my contract and the annex", false},
		{"substantive question", "explain photosynthesis", false},
		{"empty", "", false},
		{"whitespace only", "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := matchGreeting(tt.query)
			if got != tt.want {
				t.Errorf("matchGreeting(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestClassifyDefaults(t *testing.T) {
	c := NewClassifier(nil, discardLogger())

	withDocs := c.Classify(context.Background(), "what does chapter 2 say about erosion", true, nil)
	assert.Equal(t, store.RouteRAG, withDocs.Route)

	withoutDocs := c.Classify(context.Background(), "what does chapter 2 say about erosion", false, nil)
	assert.Equal(t, store.RouteSimple, withoutDocs.Route)
}

func TestClassifyGreetingSkipsLLM(t *testing.T) {
	provider := &fakeLLM{response: `{"route":"RAG","reason":"x"}`}
	c := NewClassifier(provider, discardLogger())

	got := c.Classify(context.Background(), "good evening", true, nil)
	assert.Equal(t, store.RouteGreeting, got.Route)
	assert.Equal(t, 0, provider.calls, "lexical tier must not call the LLM")
}

func TestClassifyRefinement(t *testing.T) {
	tests := []struct {
		name         string
		response     string
		err          error
		hasDocuments bool
		want         store.Route
	}{
		{
			name:         "refined to simple",
			response:     `{"route":"SIMPLE","reason":"question about the assistant"}`,
			hasDocuments: true,
			want:         store.RouteSimple,
		},
		{
			name:         "json wrapped in prose",
			response:     "Sure, here is the routing:\n{\"route\": \"rag\", \"reason\": \"content question\"}\nHope that helps.",
			hasDocuments: true,
			want:         store.RouteRAG,
		},
		{
			name:         "provider error keeps default",
			err:          errors.New("model not loaded"),
			hasDocuments: true,
			want:         store.RouteRAG,
		},
		{
			name:         "invalid route keeps default",
			response:     `{"route":"MAYBE","reason":"?"}`,
			hasDocuments: true,
			want:         store.RouteRAG,
		},
		{
			name:         "non json keeps default",
			response:     "I think this needs retrieval.",
			hasDocuments: true,
			want:         store.RouteRAG,
		},
		{
			name:         "rag without documents is demoted",
			response:     `{"route":"RAG","reason":"content question"}`,
			hasDocuments: false,
			want:         store.RouteSimple,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeLLM{response: tt.response, err: tt.err}
			c := NewClassifier(provider, discardLogger())

			got := c.Classify(context.Background(), "tell me about the uploaded report", tt.hasDocuments, nil)
			assert.Equal(t, tt.want, got.Route)
			assert.True(t, got.Route.Valid())
		})
	}
}

func TestParseClassification(t *testing.T) {
	got, err := parseClassification(`{"route":"greeting","reason":"small talk"}`)
	assert.NoError(t, err)
	assert.Equal(t, store.RouteGreeting, got.Route)
	assert.Equal(t, "small talk", got.Reason)

	_, err = parseClassification(`{"route":""}`)
	assert.Error(t, err)

	_, err = parseClassification("")
	assert.Error(t, err)
}
