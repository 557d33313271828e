// Package config loads and validates the Cloud Companion configuration using
// Viper.
//
// Configuration is layered: built-in defaults < YAML config file < environment
// variables. Environment variables use the CC_ prefix (e.g., CC_GRAPH_URI
// overrides graph.uri in the YAML). The layering lets the same binary run with
// a config.yaml in local development and with pure environment variables in
// containerized deployments.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Graph     GraphConfig     `mapstructure:"graph"`
	Vector    VectorConfig    `mapstructure:"vector"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Security  SecurityConfig  `mapstructure:"security"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// GetAddress returns the host:port listen address for the HTTP server
func (s *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GraphConfig holds Neo4j connection configuration
type GraphConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// VectorConfig holds Weaviate connection configuration
type VectorConfig struct {
	// URL is the full base URL of the Weaviate instance, e.g. http://localhost:8080
	URL string `mapstructure:"url"`
	// ClassName is the Weaviate class that stores resource embeddings
	ClassName string `mapstructure:"class_name"`
	// SearchLimit is the default number of semantic search hits
	SearchLimit int `mapstructure:"search_limit"`
}

// LLMConfig holds model backend configuration. BaseURL may point at any
// OpenAI-compatible server (vLLM, Ollama, a local gateway); when empty the
// client uses the upstream OpenAI endpoint.
type LLMConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	BaseURL        string  `mapstructure:"base_url"`
	Model          string  `mapstructure:"model"`
	EmbeddingModel string  `mapstructure:"embedding_model"`
	Temperature    float32 `mapstructure:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// AuthConfig holds API key authentication configuration
type AuthConfig struct {
	// HMACSecret is the server-wide secret under which all key digests are
	// computed. Changing it invalidates every issued key.
	HMACSecret string `mapstructure:"hmac_secret"`
	// KeyPrefix marks raw keys so leaked values are recognizable in scanners
	KeyPrefix string `mapstructure:"key_prefix"`
	// KeyExpiryDays is the default validity of newly created keys
	KeyExpiryDays int `mapstructure:"key_expiry_days"`
	// EncryptionKey is the passphrase for sealing cloud account credentials
	EncryptionKey string `mapstructure:"encryption_key"`
}

// SecurityConfig holds CORS and rate limiting configuration
type SecurityConfig struct {
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
	RateLimitEnabled   bool     `mapstructure:"rate_limit_enabled"`
	RequestsPerMinute  int      `mapstructure:"requests_per_minute"`
	BurstSize          int      `mapstructure:"burst_size"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds metrics configuration
type TelemetryConfig struct {
	MetricsEnabled bool `mapstructure:"metrics_enabled"`
	MetricsPort    int  `mapstructure:"metrics_port"`
}

// JobsConfig holds background job configuration
type JobsConfig struct {
	KeyExpirySweepEnabled    bool `mapstructure:"key_expiry_sweep_enabled"`
	KeyExpiryWarningDays     int  `mapstructure:"key_expiry_warning_days"`
	KeyExpiryCheckIntervalHr int  `mapstructure:"key_expiry_check_interval_hours"`
}

// Load reads configuration from the optional file path, environment
// variables, and defaults, then validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/cloud-companion")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment variables
	}

	v.SetEnvPrefix("CC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind environment variables for nested structures.
	// AutomaticEnv() alone does not cooperate with Unmarshal().
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Expand ${ENV_VAR} references in sensitive fields so secrets can be
	// injected indirectly by infrastructure tooling.
	cfg.Graph.Password = expandEnv(cfg.Graph.Password)
	cfg.LLM.APIKey = expandEnv(cfg.LLM.APIKey)
	cfg.Auth.HMACSecret = expandEnv(cfg.Auth.HMACSecret)
	cfg.Auth.EncryptionKey = expandEnv(cfg.Auth.EncryptionKey)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")

	// Graph store
	v.SetDefault("graph.uri", "bolt://localhost:7687")
	v.SetDefault("graph.username", "neo4j")
	v.SetDefault("graph.database", "neo4j")

	// Vector store
	v.SetDefault("vector.url", "http://localhost:8080")
	v.SetDefault("vector.class_name", "CloudResource")
	v.SetDefault("vector.search_limit", 5)

	// Model backend
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.embedding_model", "text-embedding-3-small")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.timeout_seconds", 60)

	// Auth
	v.SetDefault("auth.key_prefix", "cc_live_")
	v.SetDefault("auth.key_expiry_days", 90)

	// Security
	v.SetDefault("security.cors_allowed_origins", []string{"*"})
	v.SetDefault("security.rate_limit_enabled", true)
	v.SetDefault("security.requests_per_minute", 200)
	v.SetDefault("security.burst_size", 50)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Telemetry
	v.SetDefault("telemetry.metrics_enabled", true)
	v.SetDefault("telemetry.metrics_port", 9090)

	// Jobs
	v.SetDefault("jobs.key_expiry_sweep_enabled", true)
	v.SetDefault("jobs.key_expiry_warning_days", 7)
	v.SetDefault("jobs.key_expiry_check_interval_hours", 24)
}

func bindEnvVars(v *viper.Viper) error {
	keys := []string{
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",

		// Graph store
		"graph.uri",
		"graph.username",
		"graph.password",
		"graph.database",

		// Vector store
		"vector.url",
		"vector.class_name",
		"vector.search_limit",

		// Model backend
		"llm.api_key",
		"llm.base_url",
		"llm.model",
		"llm.embedding_model",
		"llm.temperature",
		"llm.max_tokens",
		"llm.timeout_seconds",

		// Auth
		"auth.hmac_secret",
		"auth.key_prefix",
		"auth.key_expiry_days",
		"auth.encryption_key",

		// Security
		"security.cors_allowed_origins",
		"security.rate_limit_enabled",
		"security.requests_per_minute",
		"security.burst_size",

		// Logging
		"logging.level",
		"logging.format",

		// Telemetry
		"telemetry.metrics_enabled",
		"telemetry.metrics_port",

		// Jobs
		"jobs.key_expiry_sweep_enabled",
		"jobs.key_expiry_warning_days",
		"jobs.key_expiry_check_interval_hours",
	}

	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env var for %s: %w", key, err)
		}
	}
	return nil
}

// Validate checks that the loaded configuration is internally consistent and
// that every required secret is present. Authentication fails closed: a
// missing HMAC secret stops startup rather than producing a server that
// accepts nothing or, worse, everything.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Graph.URI == "" {
		return fmt.Errorf("graph.uri is required")
	}
	if c.Graph.Username == "" {
		return fmt.Errorf("graph.username is required")
	}

	if c.Vector.URL == "" {
		return fmt.Errorf("vector.url is required")
	}
	if c.Vector.ClassName == "" {
		return fmt.Errorf("vector.class_name is required")
	}

	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.MaxTokens < 1 {
		return fmt.Errorf("llm.max_tokens must be positive")
	}

	if c.Auth.HMACSecret == "" {
		return fmt.Errorf("auth.hmac_secret is required")
	}
	if c.Auth.KeyExpiryDays < 1 {
		return fmt.Errorf("auth.key_expiry_days must be positive")
	}

	if c.Security.RateLimitEnabled && c.Security.RequestsPerMinute < 1 {
		return fmt.Errorf("security.requests_per_minute must be positive when rate limiting is enabled")
	}

	if c.Telemetry.MetricsEnabled {
		if c.Telemetry.MetricsPort < 1 || c.Telemetry.MetricsPort > 65535 {
			return fmt.Errorf("invalid metrics port: %d", c.Telemetry.MetricsPort)
		}
		if c.Telemetry.MetricsPort == c.Server.Port {
			return fmt.Errorf("metrics port must differ from server port")
		}
	}

	return nil
}

func expandEnv(s string) string {
	return os.ExpandEnv(s)
}
