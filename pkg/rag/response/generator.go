package response

import (
	"context"
	"log"
	"strings"

	"ai-docchat-be/pkg/llm"
	"ai-docchat-be/pkg/rag"
)

// Generator produces answer text from assembled context. It is the only
// place the pipeline calls the model for free-form text.
type Generator struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

// NewGenerator creates a new response generator
func NewGenerator(llmProvider llm.LLMProvider, logger *log.Logger) *Generator {
	return &Generator{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// GenerateGrounded answers the query using ONLY the supplied context
// text. Failures come back typed so the fallback chain can degrade.
func (g *Generator) GenerateGrounded(ctx context.Context, query, contextText string, history []llm.Message) (string, error) {
	prompt := buildGroundedPrompt(query, contextText)
	fullHistory := append(history, llm.Message{Role: "user", Content: prompt})

	answer, err := g.llmProvider.Chat(ctx, fullHistory)
	if err != nil {
		g.logger.Printf("[ERROR] Grounded generation failed: %v", err)
		return "", rag.NewFailure(rag.KindGeneration, "generate", err)
	}

	g.logger.Printf("[GENERATION] Grounded answer generated (%d context chars)", len(contextText))
	return answer, nil
}

// GenerateConversational answers chat-level questions ("what can you
// do?", "what did I just ask?") without any document context.
func (g *Generator) GenerateConversational(ctx context.Context, query string, history []llm.Message) (string, error) {
	prompt := buildConversationalPrompt(query)
	fullHistory := append(history, llm.Message{Role: "user", Content: prompt})

	answer, err := g.llmProvider.Chat(ctx, fullHistory)
	if err != nil {
		g.logger.Printf("[ERROR] Conversational generation failed: %v", err)
		return "", rag.NewFailure(rag.KindGeneration, "generate", err)
	}
	return answer, nil
}

func buildGroundedPrompt(query, contextText string) string {
	var prompt strings.Builder

	prompt.WriteString("<reference_material>\n")
	prompt.WriteString("CRITICAL: This is the ONLY data source. Do NOT use outside knowledge.\n")
	prompt.WriteString("Each source block is labeled with its file and page.\n\n")
	prompt.WriteString(contextText)
	prompt.WriteString("\n</reference_material>\n\n")

	prompt.WriteString("<task_instructions>\n")
	prompt.WriteString("1. Answer ONLY from the reference material. If it does not contain the answer, say so.\n")
	prompt.WriteString("2. Answer in the same language as the question.\n")
	prompt.WriteString("3. Be direct; lead with the answer, then supporting detail.\n")
	prompt.WriteString("4. Do NOT emit source markers like [Source 1]. Citations are attached separately.\n")
	prompt.WriteString("5. Use plain markdown: short paragraphs, bullet lists where they help.\n")
	prompt.WriteString("</task_instructions>\n\n")

	prompt.WriteString("<user_question>\n")
	prompt.WriteString(query)
	prompt.WriteString("\n</user_question>\n\n")

	prompt.WriteString("Answer:")

	return prompt.String()
}

func buildConversationalPrompt(query string) string {
	var prompt strings.Builder

	prompt.WriteString("<task>\n")
	prompt.WriteString("You are a document question-answering assistant. Answer the user's\n")
	prompt.WriteString("conversational question from the chat so far. Do NOT invent document\n")
	prompt.WriteString("content; if the question needs document material, ask for an upload.\n")
	prompt.WriteString("Answer in the user's language, briefly.\n")
	prompt.WriteString("</task>\n\n")

	prompt.WriteString("Question: ")
	prompt.WriteString(query)

	return prompt.String()
}
