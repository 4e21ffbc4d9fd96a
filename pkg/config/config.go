package config

import (
	"os"
	"strconv"
)

type Config struct {
	OpenAIApiKey   string
	TavilyApiKey   string
	GoogleApiKey   string
	DatabaseURL    string
	ReasoningModel string
	EmbeddingModel string
	Port           string
	MaxIterations  int
	MaxResults     int
	SearchDepth    string
	MinQuality     float64
	MinRelevance   float64
}

func Load() *Config {
	return &Config{
		OpenAIApiKey:   getEnv("OPENAI_API_KEY", ""),
		TavilyApiKey:   getEnv("TAVILY_API_KEY", ""),
		GoogleApiKey:   getEnv("GOOGLE_API_KEY", ""),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		ReasoningModel: getEnv("REASONING_MODEL", "gpt-4o"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "gemini-embedding-001"),
		Port:           getEnv("PORT", "8081"),
		MaxIterations:  getEnvAsInt("MAX_ITERATIONS", 5),
		MaxResults:     getEnvAsInt("MAX_RESULTS_PER_QUERY", 5),
		SearchDepth:    getEnv("SEARCH_DEPTH", "advanced"),
		MinQuality:     getEnvAsFloat("MIN_SOURCE_QUALITY", 0.4),
		MinRelevance:   getEnvAsFloat("MIN_RELEVANCE", 0.3),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
