package store

import "github.com/google/uuid"

// Chunk is the unit of retrievable text: one page of one uploaded file.
type Chunk struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	FileName   string    `json:"file_name"`
	PageNumber int       `json:"page_number"`
	Content    string    `json:"content"`
	Language   string    `json:"language"`
}

// Candidate is a chunk returned by vector search, scored for the current query.
// Score is 1 - cosine distance, so higher is more relevant.
type Candidate struct {
	Chunk    Chunk   `json:"chunk"`
	Distance float64 `json:"distance"`
	Score    float64 `json:"score"`
}

// Citation points the user at the material an answer was grounded on.
type Citation struct {
	FileName   string `json:"file_name"`
	PageNumber int    `json:"page_number"`
	Snippet    string `json:"snippet"`
}

// Page is page-wise document text as stored at ingestion time.
type Page struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}

// Route is the classifier's verdict on how to handle a query.
type Route string

const (
	RouteGreeting Route = "GREETING"
	RouteSimple   Route = "SIMPLE"
	RouteRAG      Route = "RAG"
)

// Valid reports whether r is one of the three known routes.
func (r Route) Valid() bool {
	return r == RouteGreeting || r == RouteSimple || r == RouteRAG
}

// Classification is the ephemeral result of query classification.
type Classification struct {
	Route  Route  `json:"route"`
	Reason string `json:"reason"`
}

// Strategy is the answering approach chosen per request.
type Strategy string

const (
	StrategyFullDocument Strategy = "FULL_DOCUMENT"
	StrategySmartChunk   Strategy = "SMART_CHUNKING"
	StrategyDecompose    Strategy = "AGENTIC_DECOMPOSITION"
	StrategySimpleRAG    Strategy = "SIMPLE_RAG"
)

// Answer is the structured result every query resolves to, even on failure.
type Answer struct {
	Text      string     `json:"text"`
	Sources   []Citation `json:"sources"`
	Strategy  Strategy   `json:"strategy"`
	Reasoning string     `json:"reasoning"`
}

// HistoryMessage is a prior turn handed to the classifier and generator.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
