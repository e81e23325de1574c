package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Pathstore connection; the section store is disabled without an API key.
	PathstoreURL    string
	PathstoreAPIKey string

	// Auth
	APIKey string

	// Normalization
	Normalizer      string
	AnthropicAPIKey string
	AnthropicModel  string

	// Worker pool
	WorkerCount            int
	MaxQueueSize           int
	MaxConcurrentNormalize int
	MaxConcurrentStore     int

	// Upload limits
	MaxUploadBytes int64

	// Chunking defaults
	DefaultChunkSize    int
	DefaultChunkOverlap int
	MinChunk            int

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

// Load reads envFiles (".env" when none are given) into the environment
// without overriding variables that are already set, then builds the Config.
// Missing env files are ignored.
func Load(envFiles ...string) Config {
	_ = godotenv.Load(envFiles...)
	return FromEnv()
}

// FromEnv builds the Config from the current environment.
func FromEnv() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		PathstoreURL:    envOr("PATHSTORE_URL", "http://localhost:8080"),
		PathstoreAPIKey: os.Getenv("PATHSTORE_API_KEY"),

		APIKey: os.Getenv("MDSPLIT_API_KEY"),

		Normalizer:      strings.ToLower(envOr("NORMALIZER", "none")),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5"),

		WorkerCount:            envInt("WORKER_COUNT", 4),
		MaxQueueSize:           envInt("MAX_QUEUE_SIZE", 100),
		MaxConcurrentNormalize: envInt("MAX_CONCURRENT_NORMALIZE", 5),
		MaxConcurrentStore:     envInt("MAX_CONCURRENT_STORE", 10),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		DefaultChunkSize:    envInt("DEFAULT_CHUNK_SIZE", 1500),
		DefaultChunkOverlap: envInt("DEFAULT_CHUNK_OVERLAP", 200),
		MinChunk:            envInt("MIN_CHUNK", 100),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxConcurrentNormalize <= 0 {
		cfg.MaxConcurrentNormalize = 5
	}
	if cfg.MaxConcurrentStore <= 0 {
		cfg.MaxConcurrentStore = 10
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.DefaultChunkSize <= 0 {
		cfg.DefaultChunkSize = 1500
	}
	if cfg.DefaultChunkOverlap < 0 {
		cfg.DefaultChunkOverlap = 200
	}
	if cfg.MinChunk < 0 {
		cfg.MinChunk = 100
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

// StoreEnabled reports whether ingested documents are written to pathstore.
func (c Config) StoreEnabled() bool {
	return c.PathstoreAPIKey != ""
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("MDSPLIT_API_KEY is required")
	}
	switch c.Normalizer {
	case "none", "ascii":
	case "claude":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when NORMALIZER=claude")
		}
	default:
		return fmt.Errorf("NORMALIZER must be none, ascii or claude, got %q", c.Normalizer)
	}
	if c.StoreEnabled() && c.PathstoreURL == "" {
		return fmt.Errorf("PATHSTORE_URL is required when PATHSTORE_API_KEY is set")
	}
	if c.DefaultChunkOverlap >= c.DefaultChunkSize {
		return fmt.Errorf("DEFAULT_CHUNK_OVERLAP (%d) must be smaller than DEFAULT_CHUNK_SIZE (%d)",
			c.DefaultChunkOverlap, c.DefaultChunkSize)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
