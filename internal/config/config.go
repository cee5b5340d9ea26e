// Package config loads the enrichment core's configuration from
// environment variables (optionally backed by a .env file), defaults
// applied after parsing, mirroring the teacher's env-var-first loader
// convention.
package config

import "time"

// EmbeddingConfig configures the runtime's embed endpoint (C1).
type EmbeddingConfig struct {
	BaseURL   string
	Path      string
	Model     string
	APIKey    string
	APIHeader string
	Timeout   time.Duration
}

// GenerateConfig configures the runtime's classification/generation
// endpoint (used by C4).
type GenerateConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// ObsConfig configures logging and OpenTelemetry export.
type ObsConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	LogPath        string
	LogLevel       string
	OTLPEndpoint   string
}

// VectorIndexConfig configures the vector index's (C3) reload behavior.
type VectorIndexConfig struct {
	StaleAfter time.Duration
}

// ShortTermConfig configures the session window (C5) handed to the
// Assembler.
type ShortTermConfig struct {
	MaxMessages int
	MaxTokens   int
}

// RAGConfig configures default retrieval shaping (C6), overridden per
// route by the Assembler's shaping table.
type RAGConfig struct {
	TopK     int
	MinScore float64
}

// RoutingConfig configures the router's (C4) fallback behavior.
type RoutingConfig struct {
	DefaultRoute    string
	DefaultPriority string
}

// FeaturesConfig toggles optional behavior without removing the code
// paths involved.
type FeaturesConfig struct {
	EmbeddingCache     bool
	HistoryCompression bool
	ActivityLog        bool
}

// DatabaseConfig selects a corpus backend and its connection string.
// Backend is either "memory" or "postgres".
type DatabaseConfig struct {
	Backend string
	DSN     string
}

// DatabasesConfig configures the three corpus sources independently.
type DatabasesConfig struct {
	Memory   DatabaseConfig
	Chat     DatabaseConfig
	Telegram DatabaseConfig
}

// RedisConfig configures the optional activity log sink.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// CacheConfig configures the embedding cache (C2).
type CacheConfig struct {
	MaxSize int
	TTL     time.Duration
}

// EnrichmentConfig groups every enrichment-specific setting under one
// closed key set.
type EnrichmentConfig struct {
	Enabled        bool
	OverallTimeout time.Duration
	BranchTimeout  time.Duration
	VectorIndex    VectorIndexConfig
	ShortTerm      ShortTermConfig
	RAG            RAGConfig
	Routing        RoutingConfig
	Features       FeaturesConfig
	Cache          CacheConfig
}

// Config is the enrichment core's full, validated configuration.
type Config struct {
	Embedding  EmbeddingConfig
	Generate   GenerateConfig
	Obs        ObsConfig
	Enrichment EnrichmentConfig
	Databases  DatabasesConfig
	Redis      RedisConfig
}
