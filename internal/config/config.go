// Package config loads configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds runtime settings.
type Config struct {
	// DatabaseURL enables the Postgres persistence backend and the
	// conversation memory feature. Empty means file-backed storage.
	DatabaseURL string
	DataDir     string

	GoogleAPIKey string
	OpenAIAPIKey string

	ChatModel      string
	PlannerModel   string
	ImageModel     string
	EditImageModel string
	VideoModel     string
	SpeechModel    string
	EmbeddingModel string

	AspectRatio string
	// ImageSafetyLevel feeds the text-to-image safety filter; empty keeps
	// the provider default.
	ImageSafetyLevel    string
	HistoryLimit        int
	TopK                int
	SimilarityThreshold float64

	ListenAddr    string
	JWTSigningKey string

	// VideoEnabled gates GENERATE_VIDEO directives (cost control, off by default).
	VideoEnabled bool
}

// Load reads env vars, applies defaults, and validates required fields.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DataDir:      getEnv("DATA_DIR", "data"),
		GoogleAPIKey: os.Getenv("GOOGLE_API_KEY"),
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),

		ChatModel:      getEnv("CHAT_MODEL", "gemini-2.5-flash"),
		PlannerModel:   getEnv("PLANNER_MODEL", "gemini-2.5-flash-lite"),
		ImageModel:     getEnv("IMAGE_MODEL", "imagen-4.0-generate-001"),
		EditImageModel: getEnv("EDIT_IMAGE_MODEL", "gemini-2.5-flash-image-preview"),
		VideoModel:     getEnv("VIDEO_MODEL", "veo-3.0-generate-001"),
		SpeechModel:    getEnv("SPEECH_MODEL", "gemini-2.5-flash-preview-tts"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-004"),

		AspectRatio:      getEnv("ASPECT_RATIO", "3:4"),
		ImageSafetyLevel: os.Getenv("IMAGE_SAFETY_LEVEL"),
		ListenAddr:       getEnv("LISTEN_ADDR", ":8080"),
		JWTSigningKey:    os.Getenv("JWT_SIGNING_KEY"),
	}

	cfg.HistoryLimit = getEnvInt("HISTORY_LIMIT", 20)
	cfg.TopK = getEnvInt("TOP_K", 5)
	cfg.SimilarityThreshold = getEnvFloat("SIMILARITY_THRESHOLD", 0.7)
	cfg.VideoEnabled = getEnvBool("VIDEO_ENABLED", false)

	if cfg.GoogleAPIKey == "" {
		log.Fatal("GOOGLE_API_KEY environment variable is required")
	}

	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}
