package response

import "ai-docchat-be/pkg/store"

// Canned replies are fixed on purpose: clients and tests key on them,
// and none of them may depend on a working model.
const (
	GreetingMessage = "Hello! Ask me anything about the documents in this conversation, or upload a new one to get started."

	UploadPromptMessage = "I don't see any documents in this conversation yet. Please upload a document and I'll answer questions about its content."

	NoRelevantInfoMessage = "I couldn't find anything related to your question in the uploaded documents. Try rephrasing it, or ask about a different part of the material."

	ApologyMessage = "I'm sorry, I ran into a problem while answering your question. Please try again in a moment."

	ServiceUnavailableMessage = "The service is temporarily unavailable. Please try again in a moment."
)

// Greeting answers small talk without touching retrieval.
func Greeting() *store.Answer {
	return &store.Answer{
		Text:      GreetingMessage,
		Sources:   []store.Citation{},
		Reasoning: "greeting short-circuit",
	}
}

// UploadPrompt answers a content question in a session with no documents.
func UploadPrompt() *store.Answer {
	return &store.Answer{
		Text:      UploadPromptMessage,
		Sources:   []store.Citation{},
		Reasoning: "no documents in session",
	}
}

// NoRelevantInfo answers a query whose retrieval came back empty.
func NoRelevantInfo(strategy store.Strategy) *store.Answer {
	return &store.Answer{
		Text:      NoRelevantInfoMessage,
		Sources:   []store.Citation{},
		Strategy:  strategy,
		Reasoning: "no candidate above the similarity threshold",
	}
}

// Apology is the terminal answer after every strategy failed.
func Apology() *store.Answer {
	return &store.Answer{
		Text:      ApologyMessage,
		Sources:   []store.Citation{},
		Reasoning: "all strategies exhausted",
	}
}

// IsApology reports whether an answer is the exhaustion apology, which
// callers record as an error response rather than a normal one.
func IsApology(answer *store.Answer) bool {
	return answer != nil && answer.Text == ApologyMessage
}
