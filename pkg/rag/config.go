package rag

import "time"

// Config consolidates every retrieval tunable in one place. Earlier revisions
// of the pipeline carried diverging constants per call site (topK 5 vs 8,
// threshold 0.4 vs 0.5); this struct is now the single authority.
type Config struct {
	TopK           int     // nearest neighbours fetched per vector search
	ScoreThreshold float64 // candidates below 1 - distance are dropped

	RerankLimit       int // candidates surviving the reranker
	MaxContextChunks  int // chunks concatenated into the prompt context
	ContextCharBudget int // assembled context size cap, lowest-ranked truncated first
	MaxCitations      int // distinct (file, page) citations per answer
	SnippetLength     int // citation snippet size in runes

	FullDocPageLimit int // page ceiling for the FULL_DOCUMENT strategy

	MaxSubQueries     int // decomposition cap
	SubQueryBatchSize int // sub-queries executed concurrently per batch

	StageTimeout    time.Duration // bound on every external call
	StreamWordChunk int           // words per text-delta event
}

// DefaultConfig returns the authoritative defaults.
// TopK=8 with threshold 0.40 is the widest-recall pairing: the threshold is
// the precision gate and the reranker narrows to MaxCitations anyway.
func DefaultConfig() Config {
	return Config{
		TopK:              8,
		ScoreThreshold:    0.40,
		RerankLimit:       3,
		MaxContextChunks:  5,
		ContextCharBudget: 6000,
		MaxCitations:      3,
		SnippetLength:     150,
		FullDocPageLimit:  50,
		MaxSubQueries:     5,
		SubQueryBatchSize: 2,
		StageTimeout:      60 * time.Second,
		StreamWordChunk:   4,
	}
}

// Normalize clamps out-of-range values back to the defaults so a bad env var
// can never switch off filtering or unbound the decomposer.
func (c Config) Normalize() Config {
	def := DefaultConfig()
	if c.TopK <= 0 {
		c.TopK = def.TopK
	}
	if c.ScoreThreshold <= 0 || c.ScoreThreshold >= 1 {
		c.ScoreThreshold = def.ScoreThreshold
	}
	if c.RerankLimit <= 0 {
		c.RerankLimit = def.RerankLimit
	}
	if c.MaxContextChunks <= 0 {
		c.MaxContextChunks = def.MaxContextChunks
	}
	if c.ContextCharBudget <= 0 {
		c.ContextCharBudget = def.ContextCharBudget
	}
	if c.MaxCitations <= 0 {
		c.MaxCitations = def.MaxCitations
	}
	if c.SnippetLength <= 0 {
		c.SnippetLength = def.SnippetLength
	}
	if c.FullDocPageLimit <= 0 {
		c.FullDocPageLimit = def.FullDocPageLimit
	}
	if c.MaxSubQueries <= 0 || c.MaxSubQueries > def.MaxSubQueries {
		c.MaxSubQueries = def.MaxSubQueries
	}
	if c.SubQueryBatchSize <= 0 {
		c.SubQueryBatchSize = def.SubQueryBatchSize
	}
	if c.StageTimeout <= 0 {
		c.StageTimeout = def.StageTimeout
	}
	if c.StreamWordChunk <= 0 {
		c.StreamWordChunk = def.StreamWordChunk
	}
	return c
}
