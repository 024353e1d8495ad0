// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Store backends.
const (
	BackendAirtable = "airtable"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Classifier providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Fallback modes for record-store failures.
const (
	FallbackDegrade = "degrade"
	FallbackStrict  = "strict"
)

// Stage policies.
const (
	StagePolicyFlag   = "flag"
	StagePolicyReject = "reject"
)

// Config holds every externally injected setting.
type Config struct {
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// Embedded so nested keys are not prefixed with the struct name.
	Classifier
	Store
	Allocation

	HouseClientCode string `envconfig:"HOUSE_CLIENT_CODE" default:"HUN"`
	StagePolicy     string `envconfig:"STAGE_POLICY" default:"flag"`
	StageTablePath  string `envconfig:"STAGE_TABLE_PATH"`

	// 0 disables rate limiting.
	RateLimitPerMinute int `envconfig:"RATE_LIMIT_PER_MINUTE" default:"0"`
	TrustedProxyCount  int `envconfig:"TRUSTED_PROXY_COUNT" default:"0"`
}

// Classifier configures the classification provider.
type Classifier struct {
	Provider         string        `envconfig:"CLASSIFIER_PROVIDER" default:"anthropic"`
	Timeout          time.Duration `envconfig:"CLASSIFIER_TIMEOUT" default:"60s"`
	PromptDir        string        `envconfig:"PROMPT_DIR"`
	AnthropicAPIKey  string        `envconfig:"ANTHROPIC_API_KEY"`
	AnthropicModel   string        `envconfig:"ANTHROPIC_MODEL" default:"claude-sonnet-4-20250514"`
	AnthropicBaseURL string        `envconfig:"ANTHROPIC_BASE_URL" default:"https://api.anthropic.com"`
	GeminiAPIKey     string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel      string        `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
}

// Store configures the record store.
type Store struct {
	Backend              string        `envconfig:"STORE_BACKEND" default:"airtable"`
	Timeout              time.Duration `envconfig:"STORE_TIMEOUT" default:"10s"`
	Fallback             string        `envconfig:"STORE_FALLBACK" default:"degrade"`
	AirtableAPIKey       string        `envconfig:"AIRTABLE_API_KEY"`
	AirtableBaseID       string        `envconfig:"AIRTABLE_BASE_ID"`
	AirtableBaseURL      string        `envconfig:"AIRTABLE_BASE_URL" default:"https://api.airtable.com/v0"`
	AirtableClientsTable string        `envconfig:"AIRTABLE_CLIENTS_TABLE" default:"Clients"`
	AirtableJobsTable    string        `envconfig:"AIRTABLE_JOBS_TABLE" default:"Jobs"`
	AirtableUpdatesTable string        `envconfig:"AIRTABLE_UPDATES_TABLE" default:"Updates"`
	DatabaseURL          string        `envconfig:"DATABASE_URL"`
	MemorySeedClients    string        `envconfig:"MEMORY_SEED_CLIENTS"`
}

// Allocation configures the job number critical section.
type Allocation struct {
	RedisURL    string        `envconfig:"REDIS_URL"`
	LockTTL     time.Duration `envconfig:"LOCK_TTL" default:"30s"`
	MaxAttempts int           `envconfig:"ALLOCATOR_MAX_ATTEMPTS" default:"5"`
}

// Load reads an optional .env file and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else {
		for _, f := range envFiles {
			if err := godotenv.Load(f); err != nil {
				return nil, fmt.Errorf("config: load %s: %w", f, err)
			}
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.Classifier.Provider = strings.ToLower(strings.TrimSpace(c.Classifier.Provider))
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	c.Store.Fallback = strings.ToLower(strings.TrimSpace(c.Store.Fallback))
	c.StagePolicy = strings.ToLower(strings.TrimSpace(c.StagePolicy))
	c.HouseClientCode = strings.ToUpper(strings.TrimSpace(c.HouseClientCode))
}

// Validate rejects unknown enum values and impossible numbers.
func (c *Config) Validate() error {
	switch c.Classifier.Provider {
	case ProviderAnthropic, ProviderGemini:
	default:
		return fmt.Errorf("config: unknown CLASSIFIER_PROVIDER %q", c.Classifier.Provider)
	}
	switch c.Store.Backend {
	case BackendAirtable, BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.Store.Backend)
	}
	switch c.Store.Fallback {
	case FallbackDegrade, FallbackStrict:
	default:
		return fmt.Errorf("config: unknown STORE_FALLBACK %q", c.Store.Fallback)
	}
	switch c.StagePolicy {
	case StagePolicyFlag, StagePolicyReject:
	default:
		return fmt.Errorf("config: unknown STAGE_POLICY %q", c.StagePolicy)
	}
	if c.Store.Backend == BackendPostgres && c.Store.DatabaseURL == "" {
		return fmt.Errorf("config: DATABASE_URL is required for the postgres backend")
	}
	if c.Allocation.MaxAttempts < 1 {
		return fmt.Errorf("config: ALLOCATOR_MAX_ATTEMPTS must be at least 1")
	}
	// one attempt is a read plus a compare-and-swap, each bounded by STORE_TIMEOUT,
	// and the allocator stops at 80% of the lock TTL
	if c.Allocation.RedisURL != "" && c.Allocation.LockTTL-c.Allocation.LockTTL/5 < 2*c.Store.Timeout {
		return fmt.Errorf("config: LOCK_TTL %s is too short for STORE_TIMEOUT %s (need at least %s)",
			c.Allocation.LockTTL, c.Store.Timeout, (5*2*c.Store.Timeout)/4)
	}
	if c.RateLimitPerMinute < 0 || c.TrustedProxyCount < 0 {
		return fmt.Errorf("config: RATE_LIMIT_PER_MINUTE and TRUSTED_PROXY_COUNT must not be negative")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid PORT %d", c.Port)
	}
	return nil
}

// AirtableConfigured reports whether record-store credentials are present.
func (s Store) AirtableConfigured() bool {
	return s.AirtableAPIKey != "" && s.AirtableBaseID != ""
}
