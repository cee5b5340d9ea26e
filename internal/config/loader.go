package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"enrichcore/internal/enrich/errs"
)

// Load reads configuration from environment variables, optionally backed
// by a .env file in the working directory. Values in the file override
// variables already set in the process environment (godotenv.Overload
// semantics), so a local .env wins.
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := Config{}

	cfg.Embedding.BaseURL = strings.TrimSpace(os.Getenv("EMBEDDING_BASE_URL"))
	cfg.Embedding.Path = strings.TrimSpace(os.Getenv("EMBEDDING_PATH"))
	cfg.Embedding.Model = strings.TrimSpace(os.Getenv("EMBEDDING_MODEL"))
	cfg.Embedding.APIKey = strings.TrimSpace(os.Getenv("EMBEDDING_API_KEY"))
	cfg.Embedding.APIHeader = strings.TrimSpace(os.Getenv("EMBEDDING_API_HEADER"))
	cfg.Embedding.Timeout = secondsEnv("EMBEDDING_TIMEOUT_SECONDS", 0)

	cfg.Generate.BaseURL = strings.TrimSpace(os.Getenv("RUNTIME_BASE_URL"))
	cfg.Generate.Model = strings.TrimSpace(os.Getenv("RUNTIME_MODEL"))
	cfg.Generate.Timeout = secondsEnv("RUNTIME_TIMEOUT_SECONDS", 0)

	cfg.Obs.ServiceName = strings.TrimSpace(os.Getenv("OTEL_SERVICE_NAME"))
	cfg.Obs.ServiceVersion = strings.TrimSpace(os.Getenv("OTEL_SERVICE_VERSION"))
	cfg.Obs.Environment = strings.TrimSpace(os.Getenv("OTEL_ENVIRONMENT"))
	cfg.Obs.LogPath = strings.TrimSpace(os.Getenv("LOG_PATH"))
	cfg.Obs.LogLevel = strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	cfg.Obs.OTLPEndpoint = strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))

	cfg.Enrichment.Enabled = boolEnv("ENRICHMENT_ENABLED", true)
	cfg.Enrichment.OverallTimeout = secondsEnv("ENRICHMENT_OVERALL_TIMEOUT_SECONDS", 0)
	cfg.Enrichment.BranchTimeout = secondsEnv("ENRICHMENT_BRANCH_TIMEOUT_SECONDS", 0)
	cfg.Enrichment.VectorIndex.StaleAfter = secondsEnv("ENRICHMENT_INDEX_STALE_AFTER_SECONDS", 0)
	cfg.Enrichment.ShortTerm.MaxMessages = intEnv("ENRICHMENT_SHORT_TERM_MAX_MESSAGES", 0)
	cfg.Enrichment.ShortTerm.MaxTokens = intEnv("ENRICHMENT_SHORT_TERM_MAX_TOKENS", 0)
	cfg.Enrichment.RAG.TopK = intEnv("ENRICHMENT_RAG_TOP_K", 0)
	cfg.Enrichment.RAG.MinScore = floatEnv("ENRICHMENT_RAG_MIN_SCORE", 0)
	cfg.Enrichment.Routing.DefaultRoute = strings.TrimSpace(os.Getenv("ENRICHMENT_DEFAULT_ROUTE"))
	cfg.Enrichment.Routing.DefaultPriority = strings.TrimSpace(os.Getenv("ENRICHMENT_DEFAULT_PRIORITY"))
	cfg.Enrichment.Features.EmbeddingCache = boolEnv("ENRICHMENT_FEATURE_EMBEDDING_CACHE", true)
	cfg.Enrichment.Features.HistoryCompression = boolEnv("ENRICHMENT_FEATURE_HISTORY_COMPRESSION", false)
	cfg.Enrichment.Features.ActivityLog = boolEnv("ENRICHMENT_FEATURE_ACTIVITY_LOG", false)
	cfg.Enrichment.Cache.MaxSize = intEnv("ENRICHMENT_CACHE_MAX_SIZE", 0)
	cfg.Enrichment.Cache.TTL = secondsEnv("ENRICHMENT_CACHE_TTL_SECONDS", 0)

	cfg.Databases.Memory.Backend = strings.TrimSpace(os.Getenv("DB_MEMORY_BACKEND"))
	cfg.Databases.Memory.DSN = strings.TrimSpace(os.Getenv("DB_MEMORY_DSN"))
	cfg.Databases.Chat.Backend = strings.TrimSpace(os.Getenv("DB_CHAT_BACKEND"))
	cfg.Databases.Chat.DSN = strings.TrimSpace(os.Getenv("DB_CHAT_DSN"))
	cfg.Databases.Telegram.Backend = strings.TrimSpace(os.Getenv("DB_TELEGRAM_BACKEND"))
	cfg.Databases.Telegram.DSN = strings.TrimSpace(os.Getenv("DB_TELEGRAM_DSN"))

	cfg.Redis.Addr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.Redis.Password = strings.TrimSpace(os.Getenv("REDIS_PASSWORD"))
	cfg.Redis.DB = intEnv("REDIS_DB", 0)
	cfg.Redis.Key = strings.TrimSpace(os.Getenv("REDIS_ACTIVITY_KEY"))

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "http://127.0.0.1:11434"
	}
	if cfg.Embedding.Path == "" {
		cfg.Embedding.Path = "/v1/embeddings"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "nomic-embed-text"
	}
	if cfg.Embedding.APIHeader == "" {
		cfg.Embedding.APIHeader = "Authorization"
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}

	if cfg.Generate.BaseURL == "" {
		cfg.Generate.BaseURL = "http://127.0.0.1:11434"
	}
	if cfg.Generate.Model == "" {
		cfg.Generate.Model = "qwen2.5:7b-instruct"
	}
	if cfg.Generate.Timeout == 0 {
		cfg.Generate.Timeout = 30 * time.Second
	}

	if cfg.Obs.ServiceName == "" {
		cfg.Obs.ServiceName = "enrichcore"
	}
	if cfg.Obs.LogLevel == "" {
		cfg.Obs.LogLevel = "info"
	}

	if cfg.Enrichment.OverallTimeout == 0 {
		cfg.Enrichment.OverallTimeout = 5 * time.Second
	}
	if cfg.Enrichment.BranchTimeout == 0 {
		cfg.Enrichment.BranchTimeout = 4 * time.Second
	}
	if cfg.Enrichment.VectorIndex.StaleAfter == 0 {
		cfg.Enrichment.VectorIndex.StaleAfter = 5 * time.Minute
	}
	if cfg.Enrichment.ShortTerm.MaxMessages == 0 {
		cfg.Enrichment.ShortTerm.MaxMessages = 20
	}
	if cfg.Enrichment.ShortTerm.MaxTokens == 0 {
		cfg.Enrichment.ShortTerm.MaxTokens = 2000
	}
	if cfg.Enrichment.RAG.TopK == 0 {
		cfg.Enrichment.RAG.TopK = 5
	}
	if cfg.Enrichment.RAG.MinScore == 0 {
		cfg.Enrichment.RAG.MinScore = 0.3
	}
	if cfg.Enrichment.Routing.DefaultRoute == "" {
		cfg.Enrichment.Routing.DefaultRoute = "fallback"
	}
	if cfg.Enrichment.Routing.DefaultPriority == "" {
		cfg.Enrichment.Routing.DefaultPriority = "medium"
	}
	if cfg.Enrichment.Cache.MaxSize == 0 {
		cfg.Enrichment.Cache.MaxSize = 500
	}
	if cfg.Enrichment.Cache.TTL == 0 {
		cfg.Enrichment.Cache.TTL = 15 * time.Minute
	}

	if cfg.Databases.Memory.Backend == "" {
		cfg.Databases.Memory.Backend = "memory"
	}
	if cfg.Databases.Chat.Backend == "" {
		cfg.Databases.Chat.Backend = "memory"
	}
	if cfg.Databases.Telegram.Backend == "" {
		cfg.Databases.Telegram.Backend = "memory"
	}
}

func validate(cfg *Config) error {
	for name, db := range map[string]DatabaseConfig{
		"memory":   cfg.Databases.Memory,
		"chat":     cfg.Databases.Chat,
		"telegram": cfg.Databases.Telegram,
	} {
		switch db.Backend {
		case "memory":
		case "postgres":
			if db.DSN == "" {
				return fmt.Errorf("enrich: %s database backend is postgres but no DSN was set: %w", name, errs.ErrConfigInvalid)
			}
		default:
			return fmt.Errorf("enrich: %s database backend %q is not one of memory|postgres: %w", name, db.Backend, errs.ErrConfigInvalid)
		}
	}
	if cfg.Enrichment.RAG.TopK < 0 {
		return fmt.Errorf("enrich: rag top_k must be >= 0: %w", errs.ErrConfigInvalid)
	}
	if cfg.Enrichment.RAG.MinScore < 0 || cfg.Enrichment.RAG.MinScore > 1 {
		return fmt.Errorf("enrich: rag min_score must be in [0,1]: %w", errs.ErrConfigInvalid)
	}
	return nil
}

func secondsEnv(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(n) * time.Second
}

func intEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func floatEnv(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func boolEnv(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
