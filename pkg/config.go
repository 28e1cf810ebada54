package pkg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DefaultDatabaseURL = "betheprofessional.db"
	DefaultLanguage    = "de"
	DefaultPrefix      = "."
	ProdEnvironment    = "PROD"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type Config struct {
	Token           string `validate:"required"`
	DatabaseURL     string `validate:"required"`
	TopicsFile      string
	LangDir         string
	DefaultLanguage string `validate:"required,bcp47_language_tag"`
	Prefix          string `validate:"required,max=8"`
	SentryDSN       string `validate:"omitempty,url"`
	Environment     string
}

// LoadEnv loads envFile into the process environment. A missing file is not
// an error; variables that are already set win over the file.
func LoadEnv(envFile string) error {
	if envFile == "" {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: error while loading %q: %w", envFile, err)
	}
	return nil
}

// ConfigFromEnv reads the configuration from the environment, filling in
// defaults. The result is not validated.
func ConfigFromEnv() *Config {
	return &Config{
		Token:           getEnv("BTP_BOT_TOKEN", ""),
		DatabaseURL:     getEnv("DATABASE_URL", DefaultDatabaseURL),
		TopicsFile:      getEnv("BTP_TOPICS_FILE", ""),
		LangDir:         getEnv("BTP_LANG_DIR", ""),
		DefaultLanguage: getEnv("BTP_DEFAULT_LANGUAGE", DefaultLanguage),
		Prefix:          getEnv("BTP_PREFIX", DefaultPrefix),
		SentryDSN:       getEnv("SENTRY_DSN", ""),
		Environment:     getEnv("BTP_ENVIRONMENT", ""),
	}
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if strings.ContainsAny(c.Prefix, " \t\r\n") {
		return fmt.Errorf("config: prefix %q must not contain whitespace", c.Prefix)
	}
	return nil
}

func (c *Config) IsProd() bool {
	return c.Environment == ProdEnvironment
}

func getEnv(key string, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
