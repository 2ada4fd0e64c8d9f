// Package assemble turns ranked retrieval candidates into a bounded
// prompt context plus the citation metadata shown to the user.
package assemble

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"ai-docchat-be/pkg/rag"
	"ai-docchat-be/pkg/store"
)

// Separator sits between source blocks so the model can tell chunks apart.
const Separator = "\n\n---\n\n"

// Context is the generation-ready bundle built from ranked candidates.
type Context struct {
	Text      string
	Citations []store.Citation
}

// Assemble concatenates up to cfg.MaxContextChunks chunks, each prefixed
// with its source label, and derives at most cfg.MaxCitations citations
// from distinct (fileName, page) pairs. When the character budget is
// exceeded the lowest-ranked chunks are dropped first; candidates must
// arrive best first.
func Assemble(candidates []store.Candidate, cfg rag.Config) Context {
	kept := candidates
	if len(kept) > cfg.MaxContextChunks {
		kept = kept[:cfg.MaxContextChunks]
	}

	blocks := make([]string, len(kept))
	for i, c := range kept {
		blocks[i] = fmt.Sprintf("[Source %d: %s, Page %d]\n%s",
			i+1, c.Chunk.FileName, c.Chunk.PageNumber, c.Chunk.Content)
	}

	text := strings.Join(blocks, Separator)
	for len(blocks) > 1 && utf8.RuneCountInString(text) > cfg.ContextCharBudget {
		blocks = blocks[:len(blocks)-1]
		kept = kept[:len(kept)-1]
		text = strings.Join(blocks, Separator)
	}
	if utf8.RuneCountInString(text) > cfg.ContextCharBudget {
		// A single chunk can still blow the budget; cut inside it.
		text = cutRunes(text, cfg.ContextCharBudget)
	}

	return Context{
		Text:      text,
		Citations: buildCitations(kept, cfg),
	}
}

func buildCitations(candidates []store.Candidate, cfg rag.Config) []store.Citation {
	type sourceKey struct {
		file string
		page int
	}

	seen := make(map[sourceKey]bool)
	citations := make([]store.Citation, 0, cfg.MaxCitations)

	for _, c := range candidates {
		key := sourceKey{c.Chunk.FileName, c.Chunk.PageNumber}
		if seen[key] {
			continue
		}
		seen[key] = true

		citations = append(citations, store.Citation{
			FileName:   c.Chunk.FileName,
			PageNumber: c.Chunk.PageNumber,
			Snippet:    Snippet(c.Chunk.Content, cfg.SnippetLength),
		})
		if len(citations) == cfg.MaxCitations {
			break
		}
	}

	return citations
}

// Snippet returns the first limit runes of content flattened to one
// line, cut at a word boundary with an ellipsis when shortened.
func Snippet(content string, limit int) string {
	flat := strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(flat) <= limit {
		return flat
	}

	cut := cutRunes(flat, limit)
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}

func cutRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
