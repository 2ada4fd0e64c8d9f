package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"unicode"

	"ai-docchat-be/pkg/llm"
	"ai-docchat-be/pkg/store"
)

// greetingLexicon covers greetings, farewells and thanks. Entries are
// matched case-insensitively against the normalized query, exact first,
// then as word-boundary prefixes.
var greetingLexicon = []string{
	"hi",
	"hello",
	"hey",
	"yo",
	"howdy",
	"hiya",
	"greetings",
	"namaste",
	"namaskar",
	"good morning",
	"good afternoon",
	"good evening",
	"good night",
	"goodbye",
	"bye",
	"see you",
	"farewell",
	"thanks",
	"thank you",
	"thx",
}

// prefixWordLimit bounds how long a query may be for a prefix match to
// count. "hi there, how are you" is a greeting; "hi, can you summarize
// my contract and the annex" is not.
const prefixWordLimit = 6

// Classifier routes a query onto GREETING, SIMPLE or RAG. Tier one is a
// deterministic lexical check that never calls an external service. Tier
// two defaults on hasDocuments. An optional LLM tier refines the default
// but can never break the request: every failure path keeps the rule
// verdict.
type Classifier struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

// NewClassifier builds a classifier. llmProvider may be nil, which
// disables the refinement tier and leaves the lexical rules in charge.
func NewClassifier(llmProvider llm.LLMProvider, logger *log.Logger) *Classifier {
	return &Classifier{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Classify never fails and never blocks the pipeline on the LLM tier.
func (c *Classifier) Classify(ctx context.Context, query string, hasDocuments bool, history []llm.Message) store.Classification {
	if entry, ok := matchGreeting(query); ok {
		c.logger.Printf("[CLASSIFY] Route GREETING (lexical match on %q)", entry)
		return store.Classification{
			Route:  store.RouteGreeting,
			Reason: fmt.Sprintf("lexical greeting match on %q", entry),
		}
	}

	verdict := store.Classification{Route: store.RouteSimple, Reason: "no documents in session"}
	if hasDocuments {
		verdict = store.Classification{Route: store.RouteRAG, Reason: "session has documents"}
	}

	if c.llmProvider == nil {
		c.logger.Printf("[CLASSIFY] Route %s (%s)", verdict.Route, verdict.Reason)
		return verdict
	}

	refined, err := c.refine(ctx, query, hasDocuments, history)
	if err != nil {
		c.logger.Printf("[WARN] Classifier refinement failed, keeping %s: %v", verdict.Route, err)
		return verdict
	}
	if refined.Route == store.RouteRAG && !hasDocuments {
		// Retrieval over an empty session is pointless, the rule verdict wins.
		c.logger.Printf("[WARN] Refinement chose RAG without documents, keeping %s", verdict.Route)
		return verdict
	}

	c.logger.Printf("[CLASSIFY] Route %s refined (%s)", refined.Route, refined.Reason)
	return refined
}

func (c *Classifier) refine(ctx context.Context, query string, hasDocuments bool, history []llm.Message) (store.Classification, error) {
	prompt := buildRefinePrompt(query, hasDocuments, history)

	response, err := c.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		return store.Classification{}, err
	}

	return parseClassification(response)
}

func buildRefinePrompt(query string, hasDocuments bool, history []llm.Message) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You are a query router for a document question-answering assistant.\n")
	prompt.WriteString("You do NOT answer the query. You only choose a route.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString("<session_state>\n")
	if hasDocuments {
		prompt.WriteString("The session has uploaded documents available for retrieval.\n")
	} else {
		prompt.WriteString("The session has NO uploaded documents.\n")
	}
	prompt.WriteString("</session_state>\n\n")

	if len(history) > 0 {
		prompt.WriteString("<recent_history>\n")
		start := len(history) - 4
		if start < 0 {
			start = 0
		}
		for _, msg := range history[start:] {
			prompt.WriteString(fmt.Sprintf("%s: %s\n", msg.Role, msg.Content))
		}
		prompt.WriteString("</recent_history>\n\n")
	}

	prompt.WriteString("<user_query>\n")
	prompt.WriteString(query)
	prompt.WriteString("\n</user_query>\n\n")

	prompt.WriteString("<route_definitions>\n")
	prompt.WriteString("GREETING: small talk, greetings, farewells, thanks. No document content needed.\n")
	prompt.WriteString("SIMPLE: conversational question about the assistant itself or the chat, answerable without documents (e.g. 'what can you do?', 'what did I just ask?').\n")
	prompt.WriteString("RAG: question about the content of the uploaded documents. Always prefer RAG when in doubt and documents exist.\n")
	prompt.WriteString("</route_definitions>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with ONLY valid JSON:\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"route\": \"GREETING|SIMPLE|RAG\",\n")
	prompt.WriteString("  \"reason\": \"Brief explanation\"\n")
	prompt.WriteString("}\n")
	prompt.WriteString("</output_format>")

	return prompt.String()
}

func parseClassification(response string) (store.Classification, error) {
	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return store.Classification{}, fmt.Errorf("no JSON found in response")
	}

	var raw struct {
		Route  string `json:"route"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(jsonContent), &raw); err != nil {
		return store.Classification{}, fmt.Errorf("JSON unmarshal failed: %w", err)
	}

	route := store.Route(strings.ToUpper(strings.TrimSpace(raw.Route)))
	if !route.Valid() {
		return store.Classification{}, fmt.Errorf("route %q is not one of GREETING, SIMPLE, RAG", raw.Route)
	}

	return store.Classification{Route: route, Reason: raw.Reason}, nil
}

// matchGreeting reports whether the query is small talk and which
// lexicon entry matched. Exact matches always count; prefix matches only
// count on short queries and only on a word boundary, so "high revenue"
// is never mistaken for "hi".
func matchGreeting(query string) (string, bool) {
	norm := normalizeQuery(query)
	if norm == "" {
		return "", false
	}
	wordCount := len(strings.Fields(norm))

	for _, entry := range greetingLexicon {
		if norm == entry {
			return entry, true
		}
		if wordCount > prefixWordLimit {
			continue
		}
		if strings.HasPrefix(norm, entry) && !startsWithLetter(norm[len(entry):]) {
			return entry, true
		}
	}
	return "", false
}

func normalizeQuery(query string) string {
	norm := strings.ToLower(strings.TrimSpace(query))
	return strings.TrimRightFunc(norm, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}

func startsWithLetter(s string) bool {
	for _, r := range s {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}
	return false
}

func extractJSON(response string) string {
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}

	return response[startIdx : endIdx+1]
}
