package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the tunedex service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Providers ProvidersConfig `yaml:"providers"`
	Auth      AuthConfig      `yaml:"auth"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds the index store connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// LLMConfig holds text-generation settings shared by query expansion,
// interpretation, and short-description steps.
type LLMConfig struct {
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	Model           string `yaml:"model"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
	RequestTimeout  int    `yaml:"request_timeout_sec"`
	MaxExpansions   int    `yaml:"max_expansions"`
}

// EmbeddingConfig holds embedding provider settings. One dimension is
// configured per deployment and enforced on both query and document paths.
type EmbeddingConfig struct {
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	QueryInstruction    string `yaml:"query_instruction"`
	DocumentInstruction string `yaml:"document_instruction"`
	CacheEnabled        bool   `yaml:"cache_enabled"`
}

// SearchConfig holds discovery search limits.
type SearchConfig struct {
	DefaultPageSize   int `yaml:"default_page_size"`
	MaxPageSize       int `yaml:"max_page_size"`
	ResultCeiling     int `yaml:"result_ceiling"`
	MaxQueryLength    int `yaml:"max_query_length"`
	RequestTimeoutSec int `yaml:"request_timeout_sec"`
}

// IngestConfig holds ingestion workflow settings.
type IngestConfig struct {
	Concurrency          int     `yaml:"concurrency"`
	ThrottlePerSec       float64 `yaml:"throttle_per_sec"`
	ThrottleBurst        int     `yaml:"throttle_burst"`
	StepTimeoutSec       int     `yaml:"step_timeout_sec"`
	StepRetries          int     `yaml:"step_retries"`
	IdempotencyWindowHrs int     `yaml:"idempotency_window_hrs"`
}

// ScheduleConfig holds library-add scheduling settings.
type ScheduleConfig struct {
	Workers         int `yaml:"workers"`
	SLAThresholdSec int `yaml:"sla_threshold_sec"`
}

// ProvidersConfig holds the external signal providers.
type ProvidersConfig struct {
	AudioFeatures ProviderConfig `yaml:"audio_features"`
	Lyrics        ProviderConfig `yaml:"lyrics"`
}

// ProviderConfig holds one HTTP signal provider's settings.
type ProviderConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// StorageConfig holds index storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR} / ${VAR:-default}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.LLM.MaxOutputTokens <= 0 {
		c.LLM.MaxOutputTokens = 1024
	}
	if c.LLM.RequestTimeout <= 0 {
		c.LLM.RequestTimeout = 30
	}
	if c.LLM.MaxExpansions <= 0 || c.LLM.MaxExpansions > 3 {
		c.LLM.MaxExpansions = 3
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1024
	}
	if c.Embedding.QueryInstruction == "" {
		c.Embedding.QueryInstruction = "Represent this query for retrieving relevant songs: "
	}
	if c.Embedding.DocumentInstruction == "" {
		c.Embedding.DocumentInstruction = "Represent this song description for retrieval: "
	}
	if c.Search.DefaultPageSize <= 0 {
		c.Search.DefaultPageSize = 20
	}
	if c.Search.MaxPageSize <= 0 {
		c.Search.MaxPageSize = 20
	}
	if c.Search.ResultCeiling <= 0 {
		c.Search.ResultCeiling = 100
	}
	if c.Search.MaxQueryLength <= 0 {
		c.Search.MaxQueryLength = 2000
	}
	if c.Search.RequestTimeoutSec <= 0 {
		c.Search.RequestTimeoutSec = 30
	}
	if c.Ingest.Concurrency <= 0 {
		c.Ingest.Concurrency = 4
	}
	if c.Ingest.ThrottlePerSec <= 0 {
		c.Ingest.ThrottlePerSec = 2
	}
	if c.Ingest.ThrottleBurst <= 0 {
		c.Ingest.ThrottleBurst = 4
	}
	if c.Ingest.StepTimeoutSec <= 0 {
		c.Ingest.StepTimeoutSec = 60
	}
	if c.Ingest.StepRetries <= 0 {
		c.Ingest.StepRetries = 3
	}
	if c.Ingest.IdempotencyWindowHrs <= 0 {
		c.Ingest.IdempotencyWindowHrs = 24
	}
	if c.Schedule.Workers <= 0 {
		c.Schedule.Workers = 5
	}
	if c.Schedule.SLAThresholdSec <= 0 {
		c.Schedule.SLAThresholdSec = 30
	}
	if c.Providers.AudioFeatures.TimeoutSec <= 0 {
		c.Providers.AudioFeatures.TimeoutSec = 15
	}
	if c.Providers.Lyrics.TimeoutSec <= 0 {
		c.Providers.Lyrics.TimeoutSec = 15
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "tunedex:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Search.MaxPageSize > 20 {
		return fmt.Errorf("search.max_page_size must not exceed 20, got %d", c.Search.MaxPageSize)
	}
	if c.Search.DefaultPageSize > c.Search.MaxPageSize {
		return fmt.Errorf("search.default_page_size %d exceeds max_page_size %d",
			c.Search.DefaultPageSize, c.Search.MaxPageSize)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
