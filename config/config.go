// Package config provides configuration management for the application.
//
// Values are resolved in three layers: built-in defaults, an optional YAML
// file (config.yaml, or the path in GATEWIRE_CONFIG) whose strings may
// reference environment variables as ${VAR} or ${VAR:-default}, and finally
// well-known environment variables. A .env file in the working directory is
// loaded into the process environment first.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Server      ServerConfig              `yaml:"server"`
	Logging     LoggingConfig             `yaml:"logging"`
	Storage     StorageConfig             `yaml:"storage"`
	Cache       CacheConfig               `yaml:"cache"`
	ObjectStore ObjectStoreConfig         `yaml:"objectstore"`
	Streaming   StreamingConfig           `yaml:"streaming"`
	Async       AsyncConfig               `yaml:"async"`
	HTTP        HTTPConfig                `yaml:"http"`
	Resilience  ResilienceConfig          `yaml:"resilience"`
	Metrics     MetricsConfig             `yaml:"metrics"`
	Providers   map[string]ProviderConfig `yaml:"providers"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `yaml:"port"`
	// MasterKey enables bearer authentication on /v1 routes when set.
	MasterKey string `yaml:"master_key"`
	// BodySizeLimit is an echo size string such as "10M".
	BodySizeLimit string `yaml:"body_size_limit"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	// Format is "text", "json" or "" (auto: text on a terminal).
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

// StorageConfig selects the invocation store backend.
type StorageConfig struct {
	// Type is "memory", "sqlite", "postgresql" or "mongodb".
	Type       string           `yaml:"type"`
	SQLite     SQLiteConfig     `yaml:"sqlite"`
	PostgreSQL PostgreSQLConfig `yaml:"postgresql"`
	MongoDB    MongoDBConfig    `yaml:"mongodb"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type PostgreSQLConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

type MongoDBConfig struct {
	URL      string `yaml:"url"`
	Database string `yaml:"database"`
}

// CacheConfig configures the redis invocation cache. Empty URL disables it.
type CacheConfig struct {
	RedisURL string        `yaml:"redis_url"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
}

// ObjectStoreConfig configures where generated media is persisted.
type ObjectStoreConfig struct {
	// Type is "local", "memory" or "none".
	Type          string `yaml:"type"`
	Root          string `yaml:"root"`
	PublicBaseURL string `yaml:"public_base_url"`
}

type StreamingConfig struct {
	MaxResyncBytes int `yaml:"max_resync_bytes"`
}

type AsyncConfig struct {
	PollIntervalMs int `yaml:"poll_interval_ms"`
}

type HTTPConfig struct {
	Timeout               time.Duration `yaml:"timeout"`
	ResponseHeaderTimeout time.Duration `yaml:"response_header_timeout"`
}

// ResilienceConfig controls upstream retries and circuit breaking.
type ResilienceConfig struct {
	Retry          RetryConfig          `yaml:"retry"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

type RetryConfig struct {
	MaxRetries     int           `yaml:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	BackoffFactor  float64       `yaml:"backoff_factor"`
}

type CircuitBreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	SuccessThreshold int           `yaml:"success_threshold"`
	Timeout          time.Duration `yaml:"timeout"`
}

type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// ProviderConfig describes one upstream provider. The map key in
// Config.Providers is the provider name (e.g. "replicate").
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	// Categories lists the capability categories served, default ["chat"].
	Categories []string `yaml:"categories"`
	// StatusPath is the job status path template for async providers,
	// with {id} replaced by the job id.
	StatusPath string `yaml:"status_path"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:          "8080",
			BodySizeLimit: "10M",
		},
		Storage: StorageConfig{
			Type:       "memory",
			SQLite:     SQLiteConfig{Path: "data/gatewire.db"},
			PostgreSQL: PostgreSQLConfig{MaxConns: 10},
			MongoDB:    MongoDBConfig{Database: "gatewire"},
		},
		Cache: CacheConfig{
			Prefix: "gatewire:invocation:",
			TTL:    time.Hour,
		},
		ObjectStore: ObjectStoreConfig{
			Type: "none",
			Root: "data/objects",
		},
		Streaming: StreamingConfig{MaxResyncBytes: 64 * 1024},
		Async:     AsyncConfig{PollIntervalMs: 2000},
		HTTP: HTTPConfig{
			Timeout:               600 * time.Second,
			ResponseHeaderTimeout: 600 * time.Second,
		},
		Resilience: ResilienceConfig{
			Retry: RetryConfig{
				MaxRetries:     3,
				InitialBackoff: time.Second,
				MaxBackoff:     30 * time.Second,
				BackoffFactor:  2.0,
			},
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold: 5,
				SuccessThreshold: 2,
				Timeout:          30 * time.Second,
			},
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Endpoint: "/metrics",
		},
		Providers: map[string]ProviderConfig{},
	}
}

// Load reads configuration from .env, the YAML file and the environment.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Defaults()

	path := os.Getenv("GATEWIRE_CONFIG")
	explicit := path != ""
	if !explicit {
		path = "config.yaml"
	}
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal([]byte(expandString(string(raw))), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderConfig{}
	}
	applyProviderEnv(cfg.Providers)
	return &cfg, nil
}

// expandString replaces ${VAR} and ${VAR:-default} references with their
// environment values. References to unset variables without a default are
// kept verbatim so that missing credentials stay detectable.
func expandString(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	var b strings.Builder
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			b.WriteString(s)
			return b.String()
		}
		end := strings.Index(s[start:], "}")
		if end < 0 {
			b.WriteString(s)
			return b.String()
		}
		end += start

		b.WriteString(s[:start])
		ref := s[start+2 : end]
		name, def, hasDefault := strings.Cut(ref, ":-")
		if v := os.Getenv(name); v != "" {
			b.WriteString(v)
		} else if hasDefault {
			b.WriteString(def)
		} else {
			b.WriteString(s[start : end+1])
		}
		s = s[end+1:]
	}
}

func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		v := os.Getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = n
		return nil
	}
	setDuration := func(key string, dst *time.Duration) error {
		v := os.Getenv(key)
		if v == "" {
			return nil
		}
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
		return nil
	}

	setString("PORT", &cfg.Server.Port)
	setString("GATEWIRE_MASTER_KEY", &cfg.Server.MasterKey)
	setString("BODY_SIZE_LIMIT", &cfg.Server.BodySizeLimit)
	setString("LOG_FORMAT", &cfg.Logging.Format)
	setString("LOG_LEVEL", &cfg.Logging.Level)
	setString("STORAGE_TYPE", &cfg.Storage.Type)
	setString("SQLITE_PATH", &cfg.Storage.SQLite.Path)
	setString("POSTGRES_URL", &cfg.Storage.PostgreSQL.URL)
	setString("MONGODB_URL", &cfg.Storage.MongoDB.URL)
	setString("MONGODB_DATABASE", &cfg.Storage.MongoDB.Database)
	setString("REDIS_URL", &cfg.Cache.RedisURL)
	setString("OBJECTSTORE_TYPE", &cfg.ObjectStore.Type)
	setString("OBJECTSTORE_ROOT", &cfg.ObjectStore.Root)
	setString("PUBLIC_BASE_URL", &cfg.ObjectStore.PublicBaseURL)

	if err := setInt("POSTGRES_MAX_CONNS", &cfg.Storage.PostgreSQL.MaxConns); err != nil {
		return err
	}
	if err := setInt("STREAM_MAX_RESYNC_BYTES", &cfg.Streaming.MaxResyncBytes); err != nil {
		return err
	}
	if err := setInt("ASYNC_POLL_INTERVAL_MS", &cfg.Async.PollIntervalMs); err != nil {
		return err
	}
	if err := setInt("MAX_RETRIES", &cfg.Resilience.Retry.MaxRetries); err != nil {
		return err
	}
	if err := setDuration("HTTP_TIMEOUT", &cfg.HTTP.Timeout); err != nil {
		return err
	}
	if err := setDuration("HTTP_RESPONSE_HEADER_TIMEOUT", &cfg.HTTP.ResponseHeaderTimeout); err != nil {
		return err
	}
	if err := setDuration("CACHE_TTL", &cfg.Cache.TTL); err != nil {
		return err
	}
	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid METRICS_ENABLED: %w", err)
		}
		cfg.Metrics.Enabled = enabled
	}
	return nil
}

// parseDuration accepts plain integers as seconds or Go duration strings.
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// knownProviderEnvs maps provider names to their credential variables.
var knownProviderEnvs = []struct {
	name       string
	apiKeyEnv  string
	baseURLEnv string
}{
	{"openai", "OPENAI_API_KEY", "OPENAI_BASE_URL"},
	{"anthropic", "ANTHROPIC_API_KEY", "ANTHROPIC_BASE_URL"},
	{"google-ai-studio", "GEMINI_API_KEY", "GEMINI_BASE_URL"},
	{"groq", "GROQ_API_KEY", "GROQ_BASE_URL"},
	{"mistral", "MISTRAL_API_KEY", "MISTRAL_BASE_URL"},
	{"deepseek", "DEEPSEEK_API_KEY", "DEEPSEEK_BASE_URL"},
	{"perplexity-ai", "PERPLEXITY_API_KEY", "PERPLEXITY_BASE_URL"},
	{"openrouter", "OPENROUTER_API_KEY", "OPENROUTER_BASE_URL"},
	{"together-ai", "TOGETHER_API_KEY", "TOGETHER_BASE_URL"},
	{"cerebras", "CEREBRAS_API_KEY", "CEREBRAS_BASE_URL"},
	{"replicate", "REPLICATE_API_TOKEN", "REPLICATE_BASE_URL"},
	{"ollama", "OLLAMA_API_KEY", "OLLAMA_BASE_URL"},
}

// applyProviderEnv overlays well-known provider variables. Environment
// values win over YAML values for the same provider name.
func applyProviderEnv(providers map[string]ProviderConfig) {
	for _, kp := range knownProviderEnvs {
		apiKey := os.Getenv(kp.apiKeyEnv)
		baseURL := os.Getenv(kp.baseURLEnv)
		if apiKey == "" && baseURL == "" {
			continue
		}
		p := providers[kp.name]
		if apiKey != "" {
			p.APIKey = apiKey
		}
		if baseURL != "" {
			p.BaseURL = baseURL
		}
		providers[kp.name] = p
	}
}
