package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	SMTP      SMTPConfig
	Keys      APIKeys
	Ai        AIConfig
	Rag       RagConfig
	Translate TranslateConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

type APIKeys struct {
	GoogleGemini string
	Jina         string
	HuggingFace  string
	IngestTopic  string // document ingestion topic
}

type AIConfig struct {
	EmbeddingProvider string // "gemini", "ollama" or "jina"
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "ollama" or "huggingface"
	LLMModel          string // e.g. "llama3", "qwen2.5"
}

// RagConfig carries the retrieval tunables. Zero or out-of-range values
// fall back to the pipeline defaults at wiring time.
type RagConfig struct {
	TopK              int
	ScoreThreshold    float64
	RerankLimit       int
	MaxContextChunks  int
	ContextCharBudget int
	MaxCitations      int
	SnippetLength     int
	FullDocPageLimit  int
	MaxSubQueries     int
	SubQueryBatchSize int
	StageTimeoutSecs  int
	StreamWordChunk   int
}

type TranslateConfig struct {
	Enabled     bool
	BaseURL     string
	TimeoutSecs int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "DocChat"),
		},
		Keys: APIKeys{
			GoogleGemini: getEnv("GOOGLE_GEMINI_API_KEY", ""),
			Jina:         getEnv("JINA_API_KEY", ""),
			HuggingFace:  getEnv("HUGGINGFACE_API_KEY", ""),
			IngestTopic:  getEnv("INGEST_DOCUMENT_TOPIC_NAME", "INGEST_DOCUMENT"),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
		},
		Rag: RagConfig{
			TopK:              getEnvAsInt("RAG_TOP_K", 8),
			ScoreThreshold:    getEnvAsFloat("RAG_SCORE_THRESHOLD", 0.40),
			RerankLimit:       getEnvAsInt("RAG_RERANK_LIMIT", 3),
			MaxContextChunks:  getEnvAsInt("RAG_MAX_CONTEXT_CHUNKS", 5),
			ContextCharBudget: getEnvAsInt("RAG_CONTEXT_CHAR_BUDGET", 6000),
			MaxCitations:      getEnvAsInt("RAG_MAX_CITATIONS", 3),
			SnippetLength:     getEnvAsInt("RAG_SNIPPET_LENGTH", 150),
			FullDocPageLimit:  getEnvAsInt("RAG_FULL_DOC_PAGE_LIMIT", 50),
			MaxSubQueries:     getEnvAsInt("RAG_MAX_SUB_QUERIES", 5),
			SubQueryBatchSize: getEnvAsInt("RAG_SUB_QUERY_BATCH_SIZE", 2),
			StageTimeoutSecs:  getEnvAsInt("RAG_STAGE_TIMEOUT_SECS", 60),
			StreamWordChunk:   getEnvAsInt("RAG_STREAM_WORD_CHUNK", 4),
		},
		Translate: TranslateConfig{
			Enabled:     getEnvAsBool("TRANSLATE_ENABLED", false),
			BaseURL:     getEnv("TRANSLATE_BASE_URL", "http://localhost:8000"),
			TimeoutSecs: getEnvAsInt("TRANSLATE_TIMEOUT_SECS", 30),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}
