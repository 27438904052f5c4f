// Package config loads service configuration from an optional YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full service configuration.
type Config struct {
	// HTTP server
	Addr           string        `yaml:"addr"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`

	// Supabase backend
	Supabase SupabaseConfig `yaml:"supabase"`

	// LLM providers
	LLM LLMConfig `yaml:"llm"`

	// Neural web search
	Search SearchConfig `yaml:"search"`

	// Rate limiting
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	// Optional shared infrastructure
	RedisAddr string `yaml:"redis_addr"`
	NATSAddr  string `yaml:"nats_addr"`

	// Answer bank index
	IndexPath string `yaml:"index_path"`
}

// SupabaseConfig configures the hosted backend-as-a-service.
type SupabaseConfig struct {
	ProjectURL string `yaml:"project_url"`
	AnonKey    string `yaml:"anon_key"`
	ServiceKey string `yaml:"service_key"`
	JWTSecret  string `yaml:"jwt_secret"`
}

// LLMConfig configures the primary and fallback language-model providers.
type LLMConfig struct {
	OpenAIKey      string        `yaml:"openai_key"`
	AnthropicKey   string        `yaml:"anthropic_key"`
	OpenAIBaseURL  string        `yaml:"openai_base_url"`
	AnthropicBase  string        `yaml:"anthropic_base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// SearchConfig configures the Exa-style neural search API.
type SearchConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// RateLimitConfig configures the per-client token buckets.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
	MaxClients        int `yaml:"max_clients"`
}

// Default returns the configuration defaults used when neither the YAML file
// nor the environment provides a value.
func Default() Config {
	return Config{
		Addr:           ":8080",
		ReadTimeout:    120 * time.Second,
		WriteTimeout:   120 * time.Second,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		MaxBodyBytes:   1 << 20,
		LLM: LLMConfig{
			OpenAIBaseURL:  "https://api.openai.com/v1",
			AnthropicBase:  "https://api.anthropic.com/v1",
			RequestTimeout: 90 * time.Second,
		},
		Search: SearchConfig{
			BaseURL: "https://api.exa.ai",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 20,
			Burst:             5,
			MaxClients:        4096,
		},
		IndexPath: "./data/answerbank.bleve",
	}
}

// Load builds the configuration from defaults, then the YAML file at path (if
// path is non-empty and the file exists), then environment variables. The
// environment always wins so deployments can override a checked-in file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if cfg.Supabase.ProjectURL == "" {
		return cfg, fmt.Errorf("supabase project URL is required (SUPABASE_URL)")
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if p := os.Getenv("PORT"); p != "" {
		c.Addr = ":" + p
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}

	setString(&c.Supabase.ProjectURL, "SUPABASE_URL")
	setString(&c.Supabase.AnonKey, "SUPABASE_ANON_KEY")
	setString(&c.Supabase.ServiceKey, "SUPABASE_SERVICE_KEY")
	setString(&c.Supabase.JWTSecret, "SUPABASE_JWT_SECRET")

	setString(&c.LLM.OpenAIKey, "OPENAI_API_KEY")
	setString(&c.LLM.AnthropicKey, "ANTHROPIC_API_KEY")
	setString(&c.LLM.OpenAIBaseURL, "OPENAI_BASE_URL")
	setString(&c.LLM.AnthropicBase, "ANTHROPIC_BASE_URL")

	setString(&c.Search.APIKey, "EXA_API_KEY")
	setString(&c.Search.BaseURL, "EXA_BASE_URL")

	setString(&c.RedisAddr, "REDIS_ADDR")
	setString(&c.NATSAddr, "NATS_URL")
	setString(&c.IndexPath, "INDEX_PATH")

	setInt(&c.RateLimit.RequestsPerMinute, "RATE_LIMIT_RPM")
	setInt(&c.RateLimit.Burst, "RATE_LIMIT_BURST")
	setInt(&c.RateLimit.MaxClients, "RATE_LIMIT_MAX_CLIENTS")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
