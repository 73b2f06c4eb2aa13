package config

import "os"

type Config struct {
	Port string

	// Provider selects the completion backend: "gemini" (default) or
	// "openai". An empty API key for the selected provider degrades the
	// game to canned fallback content rather than failing startup.
	Provider string

	GeminiKey     string
	GeminiModel   string
	GeminiBaseURL string

	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string
}

func FromEnv() Config {
	return Config{
		Port:          getenv("PORT", "3001"),
		Provider:      getenv("AI_PROVIDER", "gemini"),
		GeminiKey:     getenv("GEMINI_API_KEY", os.Getenv("API_KEY")),
		GeminiModel:   getenv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiBaseURL: os.Getenv("GEMINI_BASE_URL"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   getenv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
