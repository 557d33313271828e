package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// validConfig returns a Config that passes Validate, for tests to mutate.
func validConfig() *Config {
	cfg := &Config{}
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8000
	cfg.Graph.URI = "bolt://localhost:7687"
	cfg.Graph.Username = "neo4j"
	cfg.Vector.URL = "http://localhost:8080"
	cfg.Vector.ClassName = "CloudResource"
	cfg.LLM.Model = "gpt-4o-mini"
	cfg.LLM.MaxTokens = 2048
	cfg.Auth.HMACSecret = "test-secret"
	cfg.Auth.KeyExpiryDays = 90
	cfg.Telemetry.MetricsEnabled = true
	cfg.Telemetry.MetricsPort = 9090
	return cfg
}

// ---------------------------------------------------------------------------
// ServerConfig.GetAddress
// ---------------------------------------------------------------------------

func TestServerConfig_GetAddress(t *testing.T) {
	tests := []struct {
		name string
		host string
		port int
		want string
	}{
		{"all interfaces", "0.0.0.0", 8000, "0.0.0.0:8000"},
		{"localhost", "127.0.0.1", 9999, "127.0.0.1:9999"},
		{"empty host", "", 8000, ":8000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := ServerConfig{Host: tt.host, Port: tt.port}
			if got := s.GetAddress(); got != tt.want {
				t.Errorf("GetAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Load — defaults
// ---------------------------------------------------------------------------

func TestLoad_Defaults(t *testing.T) {
	// Point at an empty directory so no config.yaml is picked up, and provide
	// the one required secret via environment.
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("{}\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CC_AUTH_HMAC_SECRET", "env-secret")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("default Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("default Server.ReadTimeout = %v, want 30s", cfg.Server.ReadTimeout)
	}
	if cfg.Graph.URI != "bolt://localhost:7687" {
		t.Errorf("default Graph.URI = %q", cfg.Graph.URI)
	}
	if cfg.Graph.Username != "neo4j" {
		t.Errorf("default Graph.Username = %q, want neo4j", cfg.Graph.Username)
	}
	if cfg.Vector.ClassName != "CloudResource" {
		t.Errorf("default Vector.ClassName = %q, want CloudResource", cfg.Vector.ClassName)
	}
	if cfg.Vector.SearchLimit != 5 {
		t.Errorf("default Vector.SearchLimit = %d, want 5", cfg.Vector.SearchLimit)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Errorf("default LLM.Model = %q", cfg.LLM.Model)
	}
	if cfg.LLM.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("default LLM.EmbeddingModel = %q", cfg.LLM.EmbeddingModel)
	}
	if cfg.Auth.KeyPrefix != "cc_live_" {
		t.Errorf("default Auth.KeyPrefix = %q, want cc_live_", cfg.Auth.KeyPrefix)
	}
	if cfg.Auth.KeyExpiryDays != 90 {
		t.Errorf("default Auth.KeyExpiryDays = %d, want 90", cfg.Auth.KeyExpiryDays)
	}
	if !cfg.Security.RateLimitEnabled {
		t.Error("default Security.RateLimitEnabled = false, want true")
	}
	if cfg.Telemetry.MetricsPort != 9090 {
		t.Errorf("default Telemetry.MetricsPort = %d, want 9090", cfg.Telemetry.MetricsPort)
	}
	if !cfg.Jobs.KeyExpirySweepEnabled {
		t.Error("default Jobs.KeyExpirySweepEnabled = false, want true")
	}
}

// ---------------------------------------------------------------------------
// Load — config file and env layering
// ---------------------------------------------------------------------------

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9001
graph:
  uri: "bolt://graph.internal:7687"
  password: "graph-pass"
auth:
  hmac_secret: "file-secret"
llm:
  model: "llama-3.1-70b"
  base_url: "http://vllm.internal:8000/v1"
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 9001 {
		t.Errorf("Server.Port = %d, want 9001", cfg.Server.Port)
	}
	if cfg.Graph.URI != "bolt://graph.internal:7687" {
		t.Errorf("Graph.URI = %q", cfg.Graph.URI)
	}
	if cfg.Auth.HMACSecret != "file-secret" {
		t.Errorf("Auth.HMACSecret = %q, want file-secret", cfg.Auth.HMACSecret)
	}
	if cfg.LLM.BaseURL != "http://vllm.internal:8000/v1" {
		t.Errorf("LLM.BaseURL = %q", cfg.LLM.BaseURL)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	yaml := `
auth:
  hmac_secret: "file-secret"
graph:
  uri: "bolt://from-file:7687"
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CC_GRAPH_URI", "bolt://from-env:7687")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Graph.URI != "bolt://from-env:7687" {
		t.Errorf("Graph.URI = %q, want env to win over file", cfg.Graph.URI)
	}
}

func TestLoad_ExpandsSecretReferences(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	yaml := `
auth:
  hmac_secret: "${HMAC_FROM_INFRA}"
graph:
  password: "${GRAPH_PASS_FROM_INFRA}"
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("HMAC_FROM_INFRA", "expanded-hmac")
	t.Setenv("GRAPH_PASS_FROM_INFRA", "expanded-pass")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Auth.HMACSecret != "expanded-hmac" {
		t.Errorf("Auth.HMACSecret = %q, want expanded-hmac", cfg.Auth.HMACSecret)
	}
	if cfg.Graph.Password != "expanded-pass" {
		t.Errorf("Graph.Password = %q, want expanded-pass", cfg.Graph.Password)
	}
}

func TestLoad_MissingHMACSecretFails(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("{}\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	_, err := Load(cfgPath)
	if err == nil {
		t.Fatal("Load() succeeded without auth.hmac_secret, want error")
	}
	if !strings.Contains(err.Error(), "hmac_secret") {
		t.Errorf("error = %v, want mention of hmac_secret", err)
	}
}

// ---------------------------------------------------------------------------
// Validate
// ---------------------------------------------------------------------------

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad server port", func(c *Config) { c.Server.Port = 0 }, "server port"},
		{"missing graph uri", func(c *Config) { c.Graph.URI = "" }, "graph.uri"},
		{"missing graph username", func(c *Config) { c.Graph.Username = "" }, "graph.username"},
		{"missing vector url", func(c *Config) { c.Vector.URL = "" }, "vector.url"},
		{"missing vector class", func(c *Config) { c.Vector.ClassName = "" }, "vector.class_name"},
		{"missing model", func(c *Config) { c.LLM.Model = "" }, "llm.model"},
		{"zero max tokens", func(c *Config) { c.LLM.MaxTokens = 0 }, "max_tokens"},
		{"missing hmac secret", func(c *Config) { c.Auth.HMACSecret = "" }, "hmac_secret"},
		{"zero key expiry", func(c *Config) { c.Auth.KeyExpiryDays = 0 }, "key_expiry_days"},
		{"rate limit zero rpm", func(c *Config) {
			c.Security.RateLimitEnabled = true
			c.Security.RequestsPerMinute = 0
		}, "requests_per_minute"},
		{"metrics port clash", func(c *Config) { c.Telemetry.MetricsPort = c.Server.Port }, "metrics port"},
		{"bad metrics port", func(c *Config) { c.Telemetry.MetricsPort = -1 }, "metrics port"},
		{"metrics disabled ignores port", func(c *Config) {
			c.Telemetry.MetricsEnabled = false
			c.Telemetry.MetricsPort = 0
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want to contain %q", err, tt.wantErr)
			}
		})
	}
}
