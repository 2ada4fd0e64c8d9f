package assemble

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"ai-docchat-be/pkg/rag"
	"ai-docchat-be/pkg/store"

	"github.com/stretchr/testify/assert"
)

func candidate(fileName string, page int, content string, score float64) store.Candidate {
	return store.Candidate{
		Chunk: store.Chunk{
			FileName:   fileName,
			PageNumber: page,
			Content:    content,
		},
		Score: score,
	}
}

func TestAssembleLabelsAndSeparates(t *testing.T) {
	in := []store.Candidate{
		candidate("notes.pdf", 3, "photosynthesis in leaves", 0.9),
		candidate("annex.pdf", 7, "chlorophyll absorbs light", 0.8),
	}

	got := Assemble(in, rag.DefaultConfig())

	assert.Contains(t, got.Text, "[Source 1: notes.pdf, Page 3]\nphotosynthesis in leaves")
	assert.Contains(t, got.Text, "[Source 2: annex.pdf, Page 7]\nchlorophyll absorbs light")
	assert.Equal(t, 1, strings.Count(got.Text, Separator))
}

func TestAssembleCapsChunkCount(t *testing.T) {
	cfg := rag.DefaultConfig()

	var in []store.Candidate
	for i := 0; i < cfg.MaxContextChunks+3; i++ {
		in = append(in, candidate("a.pdf", i+1, fmt.Sprintf("page %d text", i+1), 0.9))
	}

	got := Assemble(in, cfg)
	assert.Equal(t, cfg.MaxContextChunks, strings.Count(got.Text, "[Source "))
}

func TestAssembleDropsLowestRankedOverBudget(t *testing.T) {
	cfg := rag.DefaultConfig()
	cfg.ContextCharBudget = 200

	in := []store.Candidate{
		candidate("a.pdf", 1, strings.Repeat("alpha ", 20), 0.9),
		candidate("a.pdf", 2, strings.Repeat("beta ", 20), 0.8),
		candidate("a.pdf", 3, strings.Repeat("gamma ", 20), 0.7),
	}

	got := Assemble(in, cfg)

	assert.LessOrEqual(t, utf8.RuneCountInString(got.Text), cfg.ContextCharBudget)
	assert.Contains(t, got.Text, "[Source 1: a.pdf, Page 1]", "best chunk survives")
	assert.NotContains(t, got.Text, "Page 3]", "worst chunk is dropped first")
}

func TestAssembleSingleOversizedChunk(t *testing.T) {
	cfg := rag.DefaultConfig()
	cfg.ContextCharBudget = 80

	in := []store.Candidate{
		candidate("a.pdf", 1, strings.Repeat("overflow ", 50), 0.9),
	}

	got := Assemble(in, cfg)
	assert.LessOrEqual(t, utf8.RuneCountInString(got.Text), cfg.ContextCharBudget)
	assert.Contains(t, got.Text, "[Source 1: a.pdf, Page 1]")
}

func TestAssembleCitations(t *testing.T) {
	cfg := rag.DefaultConfig()

	in := []store.Candidate{
		candidate("a.pdf", 1, "first chunk body", 0.9),
		candidate("a.pdf", 1, "same page again", 0.85),
		candidate("b.pdf", 2, "second file", 0.8),
		candidate("c.pdf", 3, "third file", 0.7),
		candidate("d.pdf", 4, "fourth file", 0.6),
	}

	got := Assemble(in, cfg)

	assert.Len(t, got.Citations, cfg.MaxCitations)

	seen := make(map[string]bool)
	for _, c := range got.Citations {
		key := fmt.Sprintf("%s#%d", c.FileName, c.PageNumber)
		assert.False(t, seen[key], "duplicate citation for %s", key)
		seen[key] = true
	}

	assert.Equal(t, "a.pdf", got.Citations[0].FileName)
	assert.Equal(t, "first chunk body", got.Citations[0].Snippet)
	assert.Equal(t, "b.pdf", got.Citations[1].FileName)
	assert.Equal(t, "c.pdf", got.Citations[2].FileName)
}

func TestAssembleEmpty(t *testing.T) {
	got := Assemble(nil, rag.DefaultConfig())
	assert.Equal(t, "", got.Text)
	assert.Empty(t, got.Citations)
}

func TestSnippet(t *testing.T) {
	tests := []struct {
		name    string
		content string
		limit   int
		want    string
	}{
		{"short stays whole", "a tidy sentence", 150, "a tidy sentence"},
		{"newlines flattened", "line one\nline two", 150, "line one line two"},
		{"cut at word boundary", "alpha beta gamma delta", 12, "alpha beta..."},
		{"zero limit", "anything", 0, "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Snippet(tt.content, tt.limit)
			if got != tt.want {
				t.Errorf("Snippet(%q, %d) = %q, want %q", tt.content, tt.limit, got, tt.want)
			}
		})
	}
}
