package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/catalogsync/ai"
	"github.com/poiesic/catalogsync/core"
	"github.com/poiesic/catalogsync/storage/postgres"
)

// ErrConfigRequired is returned when no configuration is provided.
var ErrConfigRequired = errors.New("config required")

// Config is the process configuration of catalogsync.
type Config struct {
	Feed      FeedConfig
	AI        *ai.Config
	Database  postgres.Params
	Knowledge KnowledgeConfig
	Sync      SyncConfig

	// StateDir holds the local embedding cache and cycle checkpoints.
	// Empty disables both.
	StateDir string

	// parseErrs holds environment values that were set but did not parse.
	parseErrs []error
}

type FeedConfig struct {
	StoresURL string
	Timeout   time.Duration
}

type KnowledgeConfig struct {
	Table       string
	AssistantID int64
	AccountID   int64
}

type SyncConfig struct {
	BatchSize int
	Interval  time.Duration
	Backoff   time.Duration
	EmbedRPS  float64
	CacheTTL  time.Duration
}

// Load reads the configuration from the environment after loading an
// optional .env file, and validates it.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	env := &envReader{}
	aiCfg := ai.NewConfig(
		ai.WithAPIKey(env.getEnv("OPENAI_API_KEY", "")),
		ai.WithEmbeddingHost(env.getEnv("EMBEDDING_HOST", ai.DefaultConfig().EmbeddingHost)),
		ai.WithEmbeddingModel(env.getEnv("EMBEDDING_MODEL", ai.DefaultConfig().EmbeddingModel)),
		ai.WithDimensions(env.getEnvAsInt("EMBEDDING_DIMENSIONS", ai.DefaultConfig().Dimensions)),
		ai.WithMaxInputChars(env.getEnvAsInt("EMBEDDING_MAX_CHARS", ai.DefaultConfig().MaxInputChars)),
		ai.WithRequestTimeout(env.getEnvAsDuration("EMBEDDING_TIMEOUT", ai.DefaultConfig().RequestTimeout)),
	)
	aiCfg.Normalize()

	config := &Config{
		Feed: FeedConfig{
			StoresURL: env.getEnv("STORES_URL", ""),
			Timeout:   env.getEnvAsDuration("FEED_TIMEOUT", 30*time.Second),
		},
		AI: aiCfg,
		Database: postgres.Params{
			Host:     env.getEnv("DB_HOST", ""),
			Port:     env.getEnv("DB_PORT", "5432"),
			User:     env.getEnv("DB_USER", ""),
			Password: env.getEnv("DB_PASS", ""),
			Database: env.getEnv("DB_NAME", ""),
			SSLMode:  env.getEnv("DB_SSLMODE", ""),
		},
		Knowledge: KnowledgeConfig{
			Table:       env.getEnv("KB_TABLE", postgres.DefaultTable),
			AssistantID: env.getEnvAsInt64("KB_ASSISTANT_ID", 1),
			AccountID:   env.getEnvAsInt64("KB_ACCOUNT_ID", 1),
		},
		Sync: SyncConfig{
			BatchSize: env.getEnvAsInt("SYNC_BATCH_SIZE", 20),
			Interval:  env.getEnvAsDuration("SYNC_INTERVAL", 6*time.Hour),
			Backoff:   env.getEnvAsDuration("SYNC_BACKOFF", 5*time.Minute),
			EmbedRPS:  env.getEnvAsFloat("EMBED_RPS", 0),
			CacheTTL:  env.getEnvAsDuration("EMBED_CACHE_TTL", 30*24*time.Hour),
		},
		StateDir: env.getEnv("STATE_DIR", ""),
	}
	config.parseErrs = env.errs

	return config, config.Validate()
}

// Validate reports every malformed value, every missing required key and
// every out-of-range value in a single configuration failure.
func (c *Config) Validate() error {
	if c.AI == nil {
		return core.NewFailure(core.KindConfiguration, "", errors.New("embedding settings missing"))
	}

	var missing []string
	required := []struct {
		key   string
		value string
	}{
		{"OPENAI_API_KEY", c.AI.APIKey},
		{"STORES_URL", c.Feed.StoresURL},
		{"DB_NAME", c.Database.Database},
		{"DB_USER", c.Database.User},
		{"DB_PASS", c.Database.Password},
		{"DB_HOST", c.Database.Host},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.key)
		}
	}

	errs := append([]error(nil), c.parseErrs...)
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", ")))
	}
	if c.AI.Dimensions < 1 {
		errs = append(errs, fmt.Errorf("EMBEDDING_DIMENSIONS must be positive, got %d", c.AI.Dimensions))
	}
	if c.AI.MaxInputChars < 1 {
		errs = append(errs, fmt.Errorf("EMBEDDING_MAX_CHARS must be positive, got %d", c.AI.MaxInputChars))
	}
	if c.Sync.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("SYNC_BATCH_SIZE must be positive, got %d", c.Sync.BatchSize))
	}
	if c.Sync.Interval <= 0 || c.Sync.Backoff <= 0 {
		errs = append(errs, errors.New("SYNC_INTERVAL and SYNC_BACKOFF must be positive"))
	}
	if c.Feed.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("FEED_TIMEOUT must be positive, got %s", c.Feed.Timeout))
	}
	if c.Sync.EmbedRPS < 0 {
		errs = append(errs, fmt.Errorf("EMBED_RPS must not be negative, got %v", c.Sync.EmbedRPS))
	}

	if len(errs) == 0 {
		return nil
	}
	return core.NewFailure(core.KindConfiguration, "", errors.Join(errs...))
}

// envReader reads typed environment values. A value that is set but does
// not parse falls back to the default and is recorded in errs.
type envReader struct {
	errs []error
}

func (e *envReader) invalid(key, value, want string) {
	e.errs = append(e.errs, fmt.Errorf("%s: invalid %s %q", key, want, value))
}

func (e *envReader) getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (e *envReader) getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		e.invalid(key, value, "integer")
		return defaultValue
	}
	return intValue
}

func (e *envReader) getEnvAsInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		e.invalid(key, value, "integer")
		return defaultValue
	}
	return intValue
}

func (e *envReader) getEnvAsFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		e.invalid(key, value, "number")
		return defaultValue
	}
	return floatValue
}

// getEnvAsDuration accepts Go durations ("90s", "6h") or a bare number of seconds.
func (e *envReader) getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	trimmed := strings.TrimSpace(value)
	if d, err := time.ParseDuration(trimmed); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(trimmed); err == nil {
		return time.Duration(secs) * time.Second
	}
	e.invalid(key, value, "duration")
	return defaultValue
}
