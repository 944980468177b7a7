package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config stores all configuration of the application
type Config struct {
	Port         string
	BaseURL      string
	DatabasePath string

	// sqlite or firestore
	Store string
	// local or firebase
	AuthProvider string

	FirebaseProjectID       string
	FirebaseCredentialsFile string
	FirebaseAPIKey          string

	SessionSecret string
	SessionTTL    time.Duration

	GeminiAPIKey string
	GeminiModel  string

	// strict or lenient
	StatusTransitions string

	WriteWorkers    int
	WriteQueueDepth int

	TelegramToken           string
	TelegramVolunteerChatID int64
	FCMEnabled              bool

	DefaultAdminEmail    string
	DefaultAdminPassword string
	SeedDemo             bool

	LogLevel  string
	LogFormat string
}

// LoadConfig reads .env (if present) and then the environment.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("Could not read .env file")
	}

	port := getEnv("PORT", "8080")
	return &Config{
		Port:         port,
		BaseURL:      getEnv("BASE_URL", "http://localhost:"+port),
		DatabasePath: getEnv("DATABASE_PATH", "./govindaseva.db"),

		Store:        strings.ToLower(getEnv("STORE", "sqlite")),
		AuthProvider: strings.ToLower(getEnv("AUTH_PROVIDER", "local")),

		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		FirebaseAPIKey:          getEnv("FIREBASE_API_KEY", ""),

		SessionSecret: getEnv("SESSION_SECRET", "govinda-seva-secret-change-in-production"),
		SessionTTL:    time.Duration(getEnvAsInt("SESSION_TTL_HOURS", 24)) * time.Hour,

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.5-flash"),

		StatusTransitions: strings.ToLower(getEnv("STATUS_TRANSITIONS", "strict")),

		WriteWorkers:    getEnvAsInt("WRITE_WORKERS", 4),
		WriteQueueDepth: getEnvAsInt("WRITE_QUEUE_DEPTH", 256),

		TelegramToken:           getEnv("TELEGRAM_TOKEN", ""),
		TelegramVolunteerChatID: getEnvAsInt64("TELEGRAM_VOLUNTEER_CHAT_ID", 0),
		FCMEnabled:              getEnvAsBool("FCM_ENABLED", false),

		DefaultAdminEmail:    getEnv("DEFAULT_ADMIN_EMAIL", "admin@govindaseva.org"),
		DefaultAdminPassword: getEnv("DEFAULT_ADMIN_PASSWORD", ""),
		SeedDemo:             getEnvAsBool("SEED_DEMO", false),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "json")),
	}
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var problems []string

	switch c.Store {
	case "sqlite", "firestore":
	default:
		problems = append(problems, fmt.Sprintf("STORE must be sqlite or firestore, got %q", c.Store))
	}
	switch c.AuthProvider {
	case "local", "firebase":
	default:
		problems = append(problems, fmt.Sprintf("AUTH_PROVIDER must be local or firebase, got %q", c.AuthProvider))
	}
	if _, err := parseTransitionPolicy(c.StatusTransitions); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, fmt.Sprintf("LOG_LEVEL %q is not a log level", c.LogLevel))
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		problems = append(problems, fmt.Sprintf("LOG_FORMAT must be json or console, got %q", c.LogFormat))
	}

	if c.usesFirebase() {
		if c.FirebaseProjectID == "" {
			problems = append(problems, "FIREBASE_PROJECT_ID is required for the firebase backends")
		}
		if c.AuthProvider == "firebase" && c.FirebaseAPIKey == "" {
			problems = append(problems, "FIREBASE_API_KEY is required when AUTH_PROVIDER=firebase")
		}
	}
	if c.TelegramToken != "" && c.TelegramVolunteerChatID == 0 {
		problems = append(problems, "TELEGRAM_VOLUNTEER_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}
	if c.SessionSecret == "" {
		problems = append(problems, "SESSION_SECRET must not be empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) usesFirebase() bool {
	return c.Store == "firestore" || c.AuthProvider == "firebase" || c.FCMEnabled
}

// setupLogger configures the global zerolog logger.
func setupLogger(level, format string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	if format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
		return
	}
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// Helper function to get environment variable with default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
