package rerank

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"ai-docchat-be/pkg/store"
)

// DefaultLimit is the citation set size used when callers pass limit <= 0.
const DefaultLimit = 3

// Reranker narrows ranked retrieval candidates down to the final
// citation set. Implementations must be pure functions of their inputs:
// no hidden state, and the caller's slice is never mutated.
type Reranker interface {
	Rerank(query string, candidates []store.Candidate, limit int) []store.Candidate
}

// ByScore keeps the vector-similarity order and truncates to limit.
type ByScore struct{}

func NewByScore() ByScore {
	return ByScore{}
}

func (ByScore) Rerank(query string, candidates []store.Candidate, limit int) []store.Candidate {
	out := make([]store.Candidate, len(candidates))
	copy(out, candidates)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	return truncate(out, limit)
}

// LexicalBlend mixes vector similarity with query-term overlap, so a
// chunk that literally contains the asked-about terms can outrank a
// semantically close but vaguer one. Weight is the lexical share in
// [0, 1]; 0 degenerates to ByScore.
type LexicalBlend struct {
	Weight float64
}

func NewLexicalBlend(weight float64) LexicalBlend {
	if weight < 0 {
		weight = 0
	}
	if weight > 1 {
		weight = 1
	}
	return LexicalBlend{Weight: weight}
}

func (r LexicalBlend) Rerank(query string, candidates []store.Candidate, limit int) []store.Candidate {
	queryTerms := terms(query)

	type scored struct {
		candidate store.Candidate
		final     float64
	}

	rescored := make([]scored, len(candidates))
	for i, c := range candidates {
		lex := overlap(queryTerms, c.Chunk.Content)
		rescored[i] = scored{
			candidate: c,
			final:     (1-r.Weight)*c.Score + r.Weight*lex,
		}
	}

	sort.SliceStable(rescored, func(i, j int) bool {
		return rescored[i].final > rescored[j].final
	})

	out := make([]store.Candidate, len(rescored))
	for i, s := range rescored {
		out[i] = s.candidate
	}

	return truncate(out, limit)
}

func truncate(candidates []store.Candidate, limit int) []store.Candidate {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(candidates) > limit {
		return candidates[:limit]
	}
	return candidates
}

// overlap is the fraction of query terms present in the content.
func overlap(queryTerms map[string]struct{}, content string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}

	contentTerms := terms(content)
	hits := 0
	for term := range queryTerms {
		if _, ok := contentTerms[term]; ok {
			hits++
		}
	}

	return float64(hits) / float64(len(queryTerms))
}

func terms(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, field := range strings.Fields(strings.ToLower(text)) {
		field = strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		// Particles like "is" and "a" only add noise to the overlap.
		if utf8.RuneCountInString(field) < 3 {
			continue
		}
		out[field] = struct{}{}
	}
	return out
}
