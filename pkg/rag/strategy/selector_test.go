package strategy

import (
	"testing"

	"ai-docchat-be/pkg/rag"
	"ai-docchat-be/pkg/store"
)

func TestIsComplex(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  bool
	}{
		{"compare and", "compare chapter 1 and chapter 3", true},
		{"compare uppercase", "Compare the budget AND the forecast", true},
		{"difference between", "what is the difference between mitosis and meiosis", true},
		{"summarize and", "summarize the intro and the conclusion", true},
		{"relate to", "relate the drought chapter to the irrigation chapter", true},
		{"first then", "first list the assumptions, then check them", true},
		{"explain considering", "explain the verdict considering the appendix", true},
		{"plain summary", "summarize this document", false},
		{"plain question", "what does page 4 say about erosion", false},
		{"compare without and", "compare the results", false},
		{"and without verb", "salt and pepper", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsComplex(tt.query); got != tt.want {
				t.Errorf("IsComplex(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestSelect(t *testing.T) {
	cfg := rag.DefaultConfig()

	tests := []struct {
		name       string
		totalPages int64
		query      string
		want       store.Strategy
	}{
		{"small corpus simple query", 10, "summarize this document", store.StrategyFullDocument},
		{"at the ceiling", 50, "what is the main argument", store.StrategyFullDocument},
		{"small corpus compound query", 10, "compare chapter 1 and chapter 3", store.StrategyDecompose},
		{"large corpus compound query", 400, "compare chapter 1 and chapter 3", store.StrategyDecompose},
		{"large corpus simple query", 51, "what is the main argument", store.StrategySmartChunk},
		{"huge corpus", 5000, "list the safety rules", store.StrategySmartChunk},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Select(tt.totalPages, tt.query, cfg); got != tt.want {
				t.Errorf("Select(%d, %q) = %s, want %s", tt.totalPages, tt.query, got, tt.want)
			}
		})
	}
}
