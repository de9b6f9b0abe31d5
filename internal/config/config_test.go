package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdulachik/subposter/internal/identity"
	"github.com/abdulachik/subposter/internal/textgen"
)

var envKeys = []string{
	"DATABASE_PATH", "VECLITE_PATH", "VECLITE_CONFIG", "DUPLICATE_THRESHOLD",
	"LLM_PROVIDER", "LLM_MODEL", "GROQ_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY",
	"ACCOUNTS_FILE", "REDDIT_CLIENT_ID", "REDDIT_CLIENT_SECRET", "REDDIT_USER_AGENT",
	"REDDIT_USERNAME", "REDDIT_PASSWORD", "REDDIT_REQUESTS_PER_SECOND",
	"POLICY_SEED_FILE", "DEFAULT_LINK_URL", "DEFAULT_FLAIR", "EXCLUDED_FLAIRS",
	"PUBLISH_ATTEMPTS", "PUBLISH_BACKOFF", "SCHEDULE_INTERVAL", "SCHEDULE_COMMUNITY",
	"SCHEDULE_TOPIC", "EXPORT_DIR", "METRICS_ADDR", "NOTIFY_WEBHOOK_URL", "LOG_LEVEL",
}

// clearEnv blanks every variable Load reads; getEnv treats empty as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearEnv(t)
		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "data/subposter.db", cfg.DatabasePath)
		assert.Equal(t, "data/history.veclite", cfg.VecLitePath)
		assert.Equal(t, 0.92, cfg.DuplicateThreshold)
		assert.Equal(t, textgen.ProviderGroq, cfg.LLMProvider)
		assert.Equal(t, []string{"ban me"}, cfg.ExcludedFlairs)
		assert.Equal(t, 3, cfg.PublishAttempts)
		assert.Equal(t, 5*time.Second, cfg.PublishBackoff)
		assert.Zero(t, cfg.ScheduleInterval)
		assert.Equal(t, ":9090", cfg.MetricsAddr)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Empty(t, cfg.Identities)
		assert.Contains(t, cfg.PolicySeeds, "startups")
	})

	t.Run("single identity from env", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("REDDIT_CLIENT_ID", "cid")
		t.Setenv("REDDIT_CLIENT_SECRET", "secret")
		t.Setenv("REDDIT_USERNAME", "alice")
		t.Setenv("REDDIT_PASSWORD", "pw")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, []identity.Identity{{
			ClientID:     "cid",
			ClientSecret: "secret",
			UserAgent:    "subposter:v1.0.0",
			Username:     "alice",
			Password:     "pw",
		}}, cfg.Identities)
	})

	t.Run("accounts file wins", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("REDDIT_USERNAME", "ignored")
		t.Setenv("ACCOUNTS_FILE", writeFile(t, "accounts.yaml", `
accounts:
  - client_id: a
    client_secret: b
    username: alice
    password: one
  - client_id: c
    client_secret: d
    username: bob
    password: two
`))

		cfg, err := Load()
		require.NoError(t, err)
		require.Len(t, cfg.Identities, 2)
		assert.Equal(t, "alice", cfg.Identities[0].Username)
		assert.Equal(t, "bob", cfg.Identities[1].Username)
	})

	t.Run("policy seed overrides", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("POLICY_SEED_FILE", writeFile(t, "policies.yaml", `
golang:
  min_body_length: 100
`))

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 100, cfg.PolicySeeds["golang"].MinBodyLength)
		assert.True(t, cfg.PolicySeeds["golang"].TextPostsAllowed)
		assert.Contains(t, cfg.PolicySeeds, "startups")
	})

	t.Run("custom values", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LLM_PROVIDER", "Gemini")
		t.Setenv("EXCLUDED_FLAIRS", "ban me, meta ,")
		t.Setenv("SCHEDULE_INTERVAL", "30m")
		t.Setenv("PUBLISH_ATTEMPTS", "5")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, textgen.ProviderGemini, cfg.LLMProvider)
		assert.Equal(t, []string{"ban me", "meta"}, cfg.ExcludedFlairs)
		assert.Equal(t, 30*time.Minute, cfg.ScheduleInterval)
		assert.Equal(t, 5, cfg.PublishAttempts)
	})

	invalid := map[string]string{
		"PUBLISH_BACKOFF":            "soon",
		"SCHEDULE_INTERVAL":          "often",
		"PUBLISH_ATTEMPTS":           "three",
		"DUPLICATE_THRESHOLD":        "high",
		"REDDIT_REQUESTS_PER_SECOND": "fast",
	}
	for key, value := range invalid {
		t.Run("invalid "+key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}

	t.Run("missing accounts file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ACCOUNTS_FILE", filepath.Join(t.TempDir(), "nope.yaml"))

		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoadAccounts(t *testing.T) {
	t.Run("empty list", func(t *testing.T) {
		_, err := LoadAccounts(writeFile(t, "a.yaml", "accounts: []\n"))
		assert.ErrorIs(t, err, identity.ErrNoIdentities)
	})

	t.Run("missing username", func(t *testing.T) {
		_, err := LoadAccounts(writeFile(t, "a.yaml", "accounts:\n  - client_id: x\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no username")
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		cfg := &Config{DatabasePath: "test.db"}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("missing database path", func(t *testing.T) {
		err := (&Config{}).Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DATABASE_PATH")
	})

	t.Run("threshold out of range", func(t *testing.T) {
		err := (&Config{DatabasePath: "test.db", DuplicateThreshold: 1.5}).Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DUPLICATE_THRESHOLD")
	})
}

func TestConfig_ValidateForPublishing(t *testing.T) {
	valid := identity.Identity{ClientID: "a", ClientSecret: "b", Username: "alice", Password: "pw"}

	t.Run("valid", func(t *testing.T) {
		cfg := &Config{DatabasePath: "test.db", Identities: []identity.Identity{valid}, PublishAttempts: 3}
		assert.NoError(t, cfg.ValidateForPublishing())
	})

	t.Run("no identities", func(t *testing.T) {
		cfg := &Config{DatabasePath: "test.db", PublishAttempts: 3}
		assert.ErrorIs(t, cfg.ValidateForPublishing(), identity.ErrNoIdentities)
	})

	t.Run("missing password", func(t *testing.T) {
		id := valid
		id.Password = ""
		cfg := &Config{DatabasePath: "test.db", Identities: []identity.Identity{id}, PublishAttempts: 3}
		err := cfg.ValidateForPublishing()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "alice")
	})
}

func TestConfig_ValidateForGeneration(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"groq", Config{DatabasePath: "x", LLMProvider: "groq", GroqAPIKey: "k"}, ""},
		{"groq missing key", Config{DatabasePath: "x", LLMProvider: "groq"}, "GROQ_API_KEY"},
		{"anthropic missing key", Config{DatabasePath: "x", LLMProvider: "anthropic"}, "ANTHROPIC_API_KEY"},
		{"gemini", Config{DatabasePath: "x", LLMProvider: "gemini", GeminiAPIKey: "k"}, ""},
		{"unknown", Config{DatabasePath: "x", LLMProvider: "mystery"}, "LLM_PROVIDER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.ValidateForGeneration()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateForServe(t *testing.T) {
	cfg := &Config{
		DatabasePath:    "test.db",
		Identities:      []identity.Identity{{ClientID: "a", ClientSecret: "b", Username: "alice", Password: "pw"}},
		PublishAttempts: 3,
		LLMProvider:     "groq",
		GroqAPIKey:      "k",
	}
	assert.NoError(t, cfg.ValidateForServe())

	cfg.ScheduleCommunity = "golang"
	assert.Error(t, cfg.ValidateForServe())

	cfg.ScheduleTopic = "generics"
	assert.NoError(t, cfg.ValidateForServe())
}

func TestConfig_TextGen(t *testing.T) {
	cfg := &Config{LLMProvider: "anthropic", AnthropicAPIKey: "ak", GroqAPIKey: "gk", LLMModel: "m"}
	assert.Equal(t, textgen.Config{Provider: "anthropic", APIKey: "ak", Model: "m"}, cfg.TextGen())

	cfg.LLMProvider = "groq"
	assert.Equal(t, "gk", cfg.TextGen().APIKey)
}
