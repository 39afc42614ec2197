package config

import (
	"fmt"
	"time"

	"github.com/conorbowles51/owl-n4j-sub001/internal/util"
	"github.com/conorbowles51/owl-n4j-sub001/pkg/graph"

	"github.com/go-playground/validator"
)

// Config is the process configuration, read once at startup and passed
// down explicitly. Validation failures here are the only fatal error
// class.
type Config struct {
	Debug bool

	DatabaseURL string `validate:"required"`

	// AIProvider selects the model backend: openai or ollama.
	AIProvider      string `validate:"required,oneof=openai ollama"`
	CompletionModel string `validate:"required"`
	ExtractionModel string `validate:"required"`
	AIBaseURL       string
	AIAPIKey        string
	AIMaxConcurrent int `validate:"gte=0"`

	WorkerLimit int `validate:"gte=0"`
	HintListCap int `validate:"gte=0"`

	ChunkTargetSize int    `validate:"gte=0"`
	ChunkOverlap    int    `validate:"gte=0"`
	TokenEncoder    string

	GeocoderEnabled   bool
	GeocoderBaseURL   string
	GeocoderUserAgent string

	ExtractionTimeout     time.Duration
	DisambiguationTimeout time.Duration
	SummaryTimeout        time.Duration
	GeocodeTimeout        time.Duration
	StoreWriteTimeout     time.Duration

	RabbitMQURL string
	QueueName   string
}

// Load builds the configuration from the environment and validates it.
func Load() (*Config, error) {
	util.LoadEnv()

	cfg := &Config{
		Debug: util.GetEnvBool("DEBUG", false),

		DatabaseURL: util.GetEnv("DATABASE_URL"),

		AIProvider:      util.GetEnvString("AI_PROVIDER", "openai"),
		CompletionModel: util.GetEnvString("COMPLETION_MODEL", "gpt-4o-mini"),
		ExtractionModel: util.GetEnvString("EXTRACTION_MODEL", "gpt-4o"),
		AIBaseURL:       util.GetEnv("AI_BASE_URL"),
		AIAPIKey:        util.GetEnv("AI_API_KEY"),
		AIMaxConcurrent: util.GetEnvInt("AI_MAX_CONCURRENT", 4),

		WorkerLimit: util.GetEnvInt("WORKER_LIMIT", 3),
		HintListCap: util.GetEnvInt("HINT_LIST_CAP", 50),

		ChunkTargetSize: util.GetEnvInt("CHUNK_TARGET_SIZE", 8000),
		ChunkOverlap:    util.GetEnvInt("CHUNK_OVERLAP", 1600),
		TokenEncoder:    util.GetEnvString("TOKEN_ENCODER", ""),

		GeocoderEnabled:   util.GetEnvBool("GEOCODER_ENABLED", false),
		GeocoderBaseURL:   util.GetEnv("GEOCODER_BASE_URL"),
		GeocoderUserAgent: util.GetEnvString("GEOCODER_USER_AGENT", "owl-ingest/1.0"),

		ExtractionTimeout:     envDuration("EXTRACTION_TIMEOUT", 120*time.Second),
		DisambiguationTimeout: envDuration("DISAMBIGUATION_TIMEOUT", 30*time.Second),
		SummaryTimeout:        envDuration("SUMMARY_TIMEOUT", 60*time.Second),
		GeocodeTimeout:        envDuration("GEOCODE_TIMEOUT", 10*time.Second),
		StoreWriteTimeout:     envDuration("STORE_WRITE_TIMEOUT", 30*time.Second),

		RabbitMQURL: util.GetEnv("RABBITMQ_URL"),
		QueueName:   util.GetEnvString("INGEST_QUEUE", "ingest_queue"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	// the openai provider cannot make a single call without a key; catch
	// that here instead of failing mid-ingestion
	if cfg.AIProvider == "openai" && cfg.AIAPIKey == "" {
		return nil, fmt.Errorf("invalid configuration: AI_API_KEY is required when AI_PROVIDER is openai")
	}
	return cfg, nil
}

// ChunkOpts returns the chunker settings carried by the config.
func (c *Config) ChunkOpts() graph.ChunkOptions {
	return graph.ChunkOptions{
		TargetSize:   c.ChunkTargetSize,
		Overlap:      c.ChunkOverlap,
		TokenEncoder: c.TokenEncoder,
	}
}

// Timeouts returns the per-call timeouts carried by the config.
func (c *Config) Timeouts() graph.Timeouts {
	return graph.Timeouts{
		Extraction:     c.ExtractionTimeout,
		Disambiguation: c.DisambiguationTimeout,
		Summary:        c.SummaryTimeout,
		Geocode:        c.GeocodeTimeout,
		StoreWrite:     c.StoreWriteTimeout,
	}
}

func envDuration(key string, defaultValue time.Duration) time.Duration {
	raw := util.GetEnv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue
	}
	return d
}
