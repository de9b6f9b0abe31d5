package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/abdulachik/subposter/internal/identity"
	"github.com/abdulachik/subposter/internal/policy"
	"github.com/abdulachik/subposter/internal/textgen"
)

// Config holds all application configuration.
type Config struct {
	// Database
	DatabasePath string

	// Publication history used to skip repeated drafts. An empty
	// VecLitePath disables it.
	VecLitePath        string
	VecLiteConfigPath  string
	DuplicateThreshold float64

	// Text generation
	LLMProvider     string
	LLMModel        string
	GroqAPIKey      string
	AnthropicAPIKey string
	GeminiAPIKey    string

	// Reddit identities. AccountsFile takes precedence over the single
	// REDDIT_* identity.
	AccountsFile string
	Identities   []identity.Identity

	RedditRequestsPerSecond float64

	// Policies
	PolicySeedFile string
	PolicySeeds    map[string]policy.Policy

	// Content
	DefaultLinkURL string
	DefaultFlair   string
	ExcludedFlairs []string

	// Publishing
	PublishAttempts int
	PublishBackoff  time.Duration

	// Schedule armed by serve. A zero interval leaves the scheduler idle
	// until a prompt arms it.
	ScheduleInterval  time.Duration
	ScheduleCommunity string
	ScheduleTopic     string

	ExportDir        string
	MetricsAddr      string
	NotifyWebhookURL string

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables.
// It automatically loads .env file if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabasePath:      getEnv("DATABASE_PATH", "data/subposter.db"),
		VecLitePath:       getEnv("VECLITE_PATH", "data/history.veclite"),
		VecLiteConfigPath: getEnv("VECLITE_CONFIG", ""),
		LLMProvider:       strings.ToLower(getEnv("LLM_PROVIDER", textgen.ProviderGroq)),
		LLMModel:          getEnv("LLM_MODEL", ""),
		GroqAPIKey:        getEnv("GROQ_API_KEY", ""),
		AnthropicAPIKey:   getEnv("ANTHROPIC_API_KEY", ""),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		AccountsFile:      getEnv("ACCOUNTS_FILE", ""),
		PolicySeedFile:    getEnv("POLICY_SEED_FILE", ""),
		DefaultLinkURL:    getEnv("DEFAULT_LINK_URL", ""),
		DefaultFlair:      getEnv("DEFAULT_FLAIR", ""),
		ExcludedFlairs:    splitList(getEnv("EXCLUDED_FLAIRS", "ban me")),
		ScheduleCommunity: getEnv("SCHEDULE_COMMUNITY", ""),
		ScheduleTopic:     getEnv("SCHEDULE_TOPIC", ""),
		ExportDir:         getEnv("EXPORT_DIR", "exports"),
		MetricsAddr:       getEnv("METRICS_ADDR", ":9090"),
		NotifyWebhookURL:  getEnv("NOTIFY_WEBHOOK_URL", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}

	var err error
	cfg.DuplicateThreshold, err = strconv.ParseFloat(getEnv("DUPLICATE_THRESHOLD", "0.92"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid DUPLICATE_THRESHOLD: %w", err)
	}

	cfg.RedditRequestsPerSecond, err = strconv.ParseFloat(getEnv("REDDIT_REQUESTS_PER_SECOND", "1.5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid REDDIT_REQUESTS_PER_SECOND: %w", err)
	}

	cfg.PublishAttempts, err = strconv.Atoi(getEnv("PUBLISH_ATTEMPTS", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid PUBLISH_ATTEMPTS: %w", err)
	}

	cfg.PublishBackoff, err = time.ParseDuration(getEnv("PUBLISH_BACKOFF", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PUBLISH_BACKOFF: %w", err)
	}

	cfg.ScheduleInterval, err = time.ParseDuration(getEnv("SCHEDULE_INTERVAL", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULE_INTERVAL: %w", err)
	}

	if cfg.AccountsFile != "" {
		cfg.Identities, err = LoadAccounts(cfg.AccountsFile)
		if err != nil {
			return nil, err
		}
	} else if username := getEnv("REDDIT_USERNAME", ""); username != "" {
		cfg.Identities = []identity.Identity{{
			ClientID:     getEnv("REDDIT_CLIENT_ID", ""),
			ClientSecret: getEnv("REDDIT_CLIENT_SECRET", ""),
			UserAgent:    getEnv("REDDIT_USER_AGENT", "subposter:v1.0.0"),
			Username:     username,
			Password:     getEnv("REDDIT_PASSWORD", ""),
		}}
	}

	cfg.PolicySeeds = policy.Seeds()
	if cfg.PolicySeedFile != "" {
		overrides, err := policy.LoadSeedFile(cfg.PolicySeedFile)
		if err != nil {
			return nil, err
		}
		cfg.PolicySeeds = policy.Merge(cfg.PolicySeeds, overrides)
	}

	return cfg, nil
}

// accountsFile is the YAML layout of ACCOUNTS_FILE.
type accountsFile struct {
	Accounts []identity.Identity `yaml:"accounts"`
}

// LoadAccounts reads publishing identities from a YAML file. Identities are
// used in file order.
func LoadAccounts(path string) ([]identity.Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}

	var f accountsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse accounts file: %w", err)
	}

	if len(f.Accounts) == 0 {
		return nil, fmt.Errorf("accounts file %s: %w", path, identity.ErrNoIdentities)
	}

	for i, a := range f.Accounts {
		if a.Username == "" {
			return nil, fmt.Errorf("accounts file %s: account %d has no username", path, i+1)
		}
	}

	return f.Accounts, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.DuplicateThreshold < 0 || c.DuplicateThreshold > 1 {
		return fmt.Errorf("DUPLICATE_THRESHOLD must be between 0 and 1")
	}
	return nil
}

// ValidateForPublishing checks configuration needed to talk to Reddit.
func (c *Config) ValidateForPublishing() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.Identities) == 0 {
		return fmt.Errorf("REDDIT_USERNAME or ACCOUNTS_FILE is required: %w", identity.ErrNoIdentities)
	}
	for _, id := range c.Identities {
		if id.ClientID == "" || id.ClientSecret == "" {
			return fmt.Errorf("identity %s: client id and secret are required", id.Username)
		}
		if id.Password == "" {
			return fmt.Errorf("identity %s: password is required", id.Username)
		}
	}
	if c.PublishAttempts <= 0 {
		return fmt.Errorf("PUBLISH_ATTEMPTS must be positive")
	}
	return nil
}

// ValidateForGeneration checks configuration needed for text generation.
func (c *Config) ValidateForGeneration() error {
	if err := c.Validate(); err != nil {
		return err
	}
	switch c.LLMProvider {
	case textgen.ProviderGroq:
		if c.GroqAPIKey == "" {
			return fmt.Errorf("GROQ_API_KEY is required when LLM_PROVIDER is groq")
		}
	case textgen.ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when LLM_PROVIDER is anthropic")
		}
	case textgen.ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER is gemini")
		}
	default:
		return fmt.Errorf("invalid LLM_PROVIDER: %s (must be 'groq', 'anthropic' or 'gemini')", c.LLMProvider)
	}
	return nil
}

// ValidateForServe checks all configuration needed for serve mode.
func (c *Config) ValidateForServe() error {
	if err := c.ValidateForPublishing(); err != nil {
		return err
	}
	if err := c.ValidateForGeneration(); err != nil {
		return err
	}
	if c.ScheduleInterval < 0 {
		return fmt.Errorf("SCHEDULE_INTERVAL must not be negative")
	}
	if (c.ScheduleCommunity == "") != (c.ScheduleTopic == "") {
		return errors.New("SCHEDULE_COMMUNITY and SCHEDULE_TOPIC must be set together")
	}
	return nil
}

// TextGen returns the text generator settings for the configured provider.
func (c *Config) TextGen() textgen.Config {
	key := c.GroqAPIKey
	switch c.LLMProvider {
	case textgen.ProviderAnthropic:
		key = c.AnthropicAPIKey
	case textgen.ProviderGemini:
		key = c.GeminiAPIKey
	}
	return textgen.Config{
		Provider: c.LLMProvider,
		APIKey:   key,
		Model:    c.LLMModel,
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// splitList parses a comma-separated list, dropping blank entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
