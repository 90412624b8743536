package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"local"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Benchmark
	DescriptionFile string `env:"DESCRIPTION_FILE" envDefault:"data_description.csv"`
	TaggerPlanFile  string `env:"TAGGER_PLAN_FILE" envDefault:"taggers.yaml"`
	IgnoreErrors    bool   `env:"IGNORE_TAGGER_ERRORS" envDefault:"false"`
	AddCounts       bool   `env:"ADD_CORRECT_COUNT" envDefault:"true"`

	// Remote and LLM taggers
	TaggerHTTPTimeout time.Duration `env:"TAGGER_HTTP_TIMEOUT" envDefault:"30s"`
	TaggerRPS         float64       `env:"TAGGER_RPS" envDefault:"5"`
	LLMAPIKey         string        `env:"LLM_API_KEY"`
	LLMModel          string        `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	LLMBaseURL        string        `env:"LLM_BASE_URL"`

	// Outputs
	MetricsPort        int           `env:"METRICS_PORT" envDefault:"0"`
	ResultsFile        string        `env:"RESULTS_FILE"`
	ResultsLockTimeout time.Duration `env:"RESULTS_LOCK_TIMEOUT" envDefault:"10s"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	applyLLMAliases(cfg)

	return cfg, nil
}

func applyLLMAliases(cfg *Config) {
	if !hasEnv("LLM_API_KEY") {
		setStringFromEnv("OPENAI_API_KEY", &cfg.LLMAPIKey)
	}

	if !hasEnv("LLM_BASE_URL") {
		setStringFromEnv("OPENAI_BASE_URL", &cfg.LLMBaseURL)
	}
}

func hasEnv(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

func setStringFromEnv(key string, target *string) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	val = strings.TrimSpace(val)
	if val == "" {
		return
	}

	*target = val
}
