// Package strategy picks the answering approach for a query from corpus
// size and query shape.
package strategy

import (
	"regexp"

	"ai-docchat-be/pkg/rag"
	"ai-docchat-be/pkg/store"
)

// complexPatterns mark compound questions that should be decomposed into
// sub-queries instead of answered in one retrieval pass.
var complexPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)\bcompare\b.+\band\b`),
	regexp.MustCompile(`(?is)\bdifference\s+between\b`),
	regexp.MustCompile(`(?is)\bsummarize\b.+\band\b`),
	regexp.MustCompile(`(?is)\brelate\b.+\bto\b`),
	regexp.MustCompile(`(?is)\bfirst\b.+\bthen\b`),
	regexp.MustCompile(`(?is)\bexplain\b.+\bconsidering\b`),
}

// Select applies the decision rules in order: a corpus small enough to
// read whole goes full-document unless the query is compound, compound
// queries decompose, everything else uses chunked retrieval.
func Select(totalPages int64, query string, cfg rag.Config) store.Strategy {
	complex := IsComplex(query)

	if totalPages <= int64(cfg.FullDocPageLimit) && !complex {
		return store.StrategyFullDocument
	}
	if complex {
		return store.StrategyDecompose
	}
	return store.StrategySmartChunk
}

// IsComplex reports whether the query matches a compound-question pattern.
func IsComplex(query string) bool {
	for _, p := range complexPatterns {
		if p.MatchString(query) {
			return true
		}
	}
	return false
}
