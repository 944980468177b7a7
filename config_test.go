package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:              "8080",
		Store:             "sqlite",
		AuthProvider:      "local",
		SessionSecret:     "secret",
		StatusTransitions: "strict",
		LogLevel:          "info",
		LogFormat:         "json",
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE", "SQLite")
	t.Setenv("STATUS_TRANSITIONS", "Lenient")
	t.Setenv("SESSION_TTL_HOURS", "2")
	t.Setenv("WRITE_WORKERS", "not-a-number")
	t.Setenv("SEED_DEMO", "true")

	cfg := LoadConfig()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "http://localhost:9090", cfg.BaseURL)
	assert.Equal(t, "sqlite", cfg.Store)
	assert.Equal(t, "lenient", cfg.StatusTransitions)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 4, cfg.WriteWorkers, "unparseable values fall back to the default")
	assert.True(t, cfg.SeedDemo)
	assert.Equal(t, "gemini-2.5-flash", cfg.GeminiModel)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"unknown store", func(c *Config) { c.Store = "postgres" }, "STORE"},
		{"unknown auth", func(c *Config) { c.AuthProvider = "ldap" }, "AUTH_PROVIDER"},
		{"unknown transitions", func(c *Config) { c.StatusTransitions = "anything" }, "STATUS_TRANSITIONS"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "LOG_LEVEL"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
		{"firestore without project", func(c *Config) { c.Store = "firestore" }, "FIREBASE_PROJECT_ID"},
		{"fcm without project", func(c *Config) { c.FCMEnabled = true }, "FIREBASE_PROJECT_ID"},
		{"firebase auth without key", func(c *Config) {
			c.AuthProvider = "firebase"
			c.FirebaseProjectID = "govinda-seva"
		}, "FIREBASE_API_KEY"},
		{"telegram without chat", func(c *Config) { c.TelegramToken = "123:abc" }, "TELEGRAM_VOLUNTEER_CHAT_ID"},
		{"empty secret", func(c *Config) { c.SessionSecret = "" }, "SESSION_SECRET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidateReportsEveryProblem(t *testing.T) {
	cfg := validConfig()
	cfg.Store = "postgres"
	cfg.LogFormat = "xml"
	cfg.SessionSecret = ""

	err := cfg.Validate()
	require.Error(t, err)
	for _, key := range []string{"STORE", "LOG_FORMAT", "SESSION_SECRET"} {
		assert.Contains(t, err.Error(), key)
	}
}
