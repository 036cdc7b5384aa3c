package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// Config holds the settings shared by the CLI, the HTTP server and the MCP
// server.
type Config struct {
	// GitHub credentials: a token, or a GitHub App
	GitHubToken      string `validate:"required_without=GitHubAppID"`
	GitHubAppID      string `validate:"required_without=GitHubToken"`
	GitHubPrivateKey string `validate:"required_with=GitHubAppID"`

	APIURL string `default:"https://api.github.com/" validate:"required,url"`

	// Comment settings
	Environment string `default:"preview"`
	CommitSHA   string

	// Logging
	LogLevel  string `default:"info" validate:"oneof=trace debug info warn warning error fatal panic"`
	LogFormat string `default:"text" validate:"oneof=text json"`

	// Server settings
	Port int `default:"8000" validate:"min=1,max=65535"`
}

var envNames = map[string]string{
	"GitHubToken":      "GITHUB_TOKEN",
	"GitHubAppID":      "GITHUB_APP_ID",
	"GitHubPrivateKey": "GITHUB_PRIVATE_KEY",
	"APIURL":           "GITHUB_API_URL",
	"LogLevel":         "LOG_LEVEL",
	"LogFormat":        "LOG_FORMAT",
	"Port":             "PORT",
}

var validate = validator.New()

// New returns a Config with default values applied.
func New() (c Config) {
	defaults.MustSet(&c)
	return
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := New()

	cfg.GitHubToken = os.Getenv("GITHUB_TOKEN")
	cfg.GitHubAppID = os.Getenv("GITHUB_APP_ID")
	cfg.GitHubPrivateKey = NormalizePrivateKey(os.Getenv("GITHUB_PRIVATE_KEY"))
	cfg.APIURL = getEnv("GITHUB_API_URL", cfg.APIURL)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
	cfg.CommitSHA = os.Getenv("COMMIT_SHA")
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)
	cfg.Port = getEnvInt("PORT", cfg.Port)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the struct rules and reports the first violation using
// the environment variable name of the offending field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	fe := fieldErrs[0]
	name := envNames[fe.StructField()]
	if name == "" {
		name = fe.StructField()
	}

	switch fe.Tag() {
	case "required_without":
		return fmt.Errorf("GITHUB_TOKEN or GITHUB_APP_ID is required")
	case "required_with":
		return fmt.Errorf("%s is required when GITHUB_APP_ID is set", name)
	case "required":
		return fmt.Errorf("%s is required", name)
	default:
		return fmt.Errorf("invalid %s: %v", name, fe.Value())
	}
}

// NormalizePrivateKey strips surrounding quotes and expands escaped newlines
// so PEM keys survive being passed through env files.
func NormalizePrivateKey(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "\"") && strings.HasSuffix(trimmed, "\"") {
		trimmed = strings.TrimPrefix(trimmed, "\"")
		trimmed = strings.TrimSuffix(trimmed, "\"")
	}
	if strings.HasPrefix(trimmed, "'") && strings.HasSuffix(trimmed, "'") {
		trimmed = strings.TrimPrefix(trimmed, "'")
		trimmed = strings.TrimSuffix(trimmed, "'")
	}

	trimmed = strings.ReplaceAll(trimmed, "\r\n", "\n")
	trimmed = strings.ReplaceAll(trimmed, "\r", "\n")
	if strings.Contains(trimmed, "\\n") {
		trimmed = strings.ReplaceAll(trimmed, "\\r", "")
		trimmed = strings.ReplaceAll(trimmed, "\\n", "\n")
	}

	return trimmed
}

// getEnv gets environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets environment variable as int with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
