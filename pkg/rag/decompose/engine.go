// Package decompose splits a compound question into sub-queries, runs
// them with bounded concurrency, and synthesizes a single answer.
package decompose

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"ai-docchat-be/pkg/llm"
	"ai-docchat-be/pkg/rag"
	"ai-docchat-be/pkg/store"
)

// PlaceholderAnswer stands in for a failed sub-query so the remaining
// parts can still be synthesized.
const PlaceholderAnswer = "Unable to retrieve this part of the question."

// SubQuery is one independently retrievable part of a compound question.
type SubQuery struct {
	Text        string
	TargetPages []int
	Answer      string
	Citations   []store.Citation
	Failed      bool
}

// Result carries the synthesized answer plus the per-part trace.
type Result struct {
	Answer     string
	Citations  []store.Citation
	SubQueries []SubQuery
}

// Runner executes one sub-query end to end (retrieve, rerank, assemble,
// generate). The engine stays ignorant of how that happens.
type Runner interface {
	RunSubQuery(ctx context.Context, query string) (string, []store.Citation, error)
}

// Engine is the decomposition coordinator.
type Engine struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

// NewEngine creates a new decomposition engine
func NewEngine(llmProvider llm.LLMProvider, logger *log.Logger) *Engine {
	return &Engine{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Execute answers a compound query. Sub-queries run in strict batches of
// cfg.SubQueryBatchSize; a batch starts only after the previous one
// finished. A failed sub-query degrades to PlaceholderAnswer instead of
// aborting the rest. Exactly one synthesis call produces the final text.
func (e *Engine) Execute(ctx context.Context, query string, runner Runner, cfg rag.Config) (*Result, error) {
	subs := e.Split(ctx, query, cfg)
	e.logger.Printf("[DECOMPOSE] Split into %d sub-queries", len(subs))

	e.runAll(ctx, subs, runner, cfg)

	answer, err := e.synthesize(ctx, query, subs)
	if err != nil {
		e.logger.Printf("[ERROR] Synthesis failed: %v", err)
		return nil, rag.NewFailure(rag.KindGeneration, "synthesize", err)
	}

	return &Result{
		Answer:     answer,
		Citations:  unionCitations(subs, cfg.MaxCitations),
		SubQueries: subs,
	}, nil
}

// Split produces at most cfg.MaxSubQueries parts. The LLM plans the
// split; when it fails or returns junk, a conjunction-based rule takes
// over, so Split itself never fails.
func (e *Engine) Split(ctx context.Context, query string, cfg rag.Config) []SubQuery {
	if e.llmProvider != nil {
		subs, err := e.splitWithLLM(ctx, query, cfg)
		if err == nil && len(subs) > 0 {
			return subs
		}
		if err != nil {
			e.logger.Printf("[WARN] LLM decomposition failed, using rule split: %v", err)
		}
	}
	return fallbackSplit(query, cfg.MaxSubQueries)
}

func (e *Engine) splitWithLLM(ctx context.Context, query string, cfg rag.Config) ([]SubQuery, error) {
	prompt := buildSplitPrompt(query, cfg.MaxSubQueries)

	response, err := e.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		return nil, err
	}

	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var raw struct {
		SubQueries []struct {
			Text        string `json:"text"`
			TargetPages []int  `json:"target_pages"`
		} `json:"sub_queries"`
	}
	if err := json.Unmarshal([]byte(jsonContent), &raw); err != nil {
		return nil, fmt.Errorf("JSON unmarshal failed: %w", err)
	}

	var subs []SubQuery
	for _, sq := range raw.SubQueries {
		text := strings.TrimSpace(sq.Text)
		if text == "" {
			continue
		}
		subs = append(subs, SubQuery{Text: text, TargetPages: sq.TargetPages})
		if len(subs) == cfg.MaxSubQueries {
			break
		}
	}
	return subs, nil
}

func buildSplitPrompt(query string, maxParts int) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You split a compound question into independent retrieval queries.\n")
	prompt.WriteString("You do NOT answer the question.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString("<user_query>\n")
	prompt.WriteString(query)
	prompt.WriteString("\n</user_query>\n\n")

	prompt.WriteString("<rules>\n")
	prompt.WriteString(fmt.Sprintf("1. Produce between 2 and %d sub-queries.\n", maxParts))
	prompt.WriteString("2. Each sub-query must stand alone: repeat the subject instead of using pronouns.\n")
	prompt.WriteString("3. Keep the user's language.\n")
	prompt.WriteString("4. target_pages is optional; include it only when the query names pages.\n")
	prompt.WriteString("</rules>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with ONLY valid JSON:\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"sub_queries\": [\n")
	prompt.WriteString("    {\"text\": \"first sub-query\", \"target_pages\": []},\n")
	prompt.WriteString("    {\"text\": \"second sub-query\", \"target_pages\": []}\n")
	prompt.WriteString("  ]\n")
	prompt.WriteString("}\n")
	prompt.WriteString("</output_format>")

	return prompt.String()
}

// fallbackSplit cuts the query on coordinating phrases. The original
// query becomes the single sub-query when nothing splits.
func fallbackSplit(query string, maxParts int) []SubQuery {
	separators := []string{", then ", " then ", " and also ", " and ", "; "}

	parts := []string{query}
	for _, sep := range separators {
		var next []string
		for _, part := range parts {
			next = append(next, strings.Split(part, sep)...)
		}
		parts = next
	}

	var subs []SubQuery
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		subs = append(subs, SubQuery{Text: part})
		if len(subs) == maxParts {
			break
		}
	}
	if len(subs) == 0 {
		subs = []SubQuery{{Text: query}}
	}
	return subs
}

// runAll executes sub-queries in strict batches: the next batch does not
// start until the previous one completed, keeping at most
// cfg.SubQueryBatchSize external calls in flight.
func (e *Engine) runAll(ctx context.Context, subs []SubQuery, runner Runner, cfg rag.Config) {
	batchSize := cfg.SubQueryBatchSize
	if batchSize < 1 {
		batchSize = 1
	}

	for start := 0; start < len(subs); start += batchSize {
		end := start + batchSize
		if end > len(subs) {
			end = len(subs)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				e.runOne(ctx, &subs[idx], idx, runner)
			}(i)
		}
		wg.Wait()
	}
}

func (e *Engine) runOne(ctx context.Context, sq *SubQuery, idx int, runner Runner) {
	answer, citations, err := runner.RunSubQuery(ctx, sq.Text)
	if err != nil {
		failure := rag.NewFailure(rag.KindSubQuery, "decompose", err)
		e.logger.Printf("[WARN] Sub-query %d (%q) failed: %v", idx+1, sq.Text, failure)
		sq.Failed = true
		sq.Answer = PlaceholderAnswer
		return
	}

	sq.Answer = answer
	sq.Citations = citations
	e.logger.Printf("[DECOMPOSE] Sub-query %d answered with %d citations", idx+1, len(citations))
}

func (e *Engine) synthesize(ctx context.Context, query string, subs []SubQuery) (string, error) {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You combine partial answers into one coherent reply.\n")
	prompt.WriteString("Use ONLY the partial answers below. Do not invent content.\n")
	prompt.WriteString("If a part is marked unavailable, say so briefly instead of guessing.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString("<original_question>\n")
	prompt.WriteString(query)
	prompt.WriteString("\n</original_question>\n\n")

	prompt.WriteString("<partial_answers>\n")
	for i, sq := range subs {
		prompt.WriteString(fmt.Sprintf("Part %d: %s\n", i+1, sq.Text))
		prompt.WriteString(fmt.Sprintf("Answer: %s\n\n", sq.Answer))
	}
	prompt.WriteString("</partial_answers>\n\n")

	prompt.WriteString("Write the final answer in the user's language, addressing every part in order.")

	return e.llmProvider.Generate(ctx, prompt.String())
}

func unionCitations(subs []SubQuery, limit int) []store.Citation {
	type sourceKey struct {
		file string
		page int
	}

	seen := make(map[sourceKey]bool)
	var out []store.Citation

	for _, sq := range subs {
		for _, c := range sq.Citations {
			key := sourceKey{c.FileName, c.PageNumber}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, c)
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}

func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}

	return response[startIdx : endIdx+1]
}
