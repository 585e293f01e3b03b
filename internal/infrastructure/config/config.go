package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/remaimber-it/autograde/internal/embedding"
	"github.com/remaimber-it/autograde/internal/grading"
	"github.com/remaimber-it/autograde/internal/llm"
)

// Judge backends.
const (
	JudgeNone   = "none"
	JudgeGemini = "gemini"
	JudgeOpenAI = "openai"
)

type Config struct {
	ServerAddress   string
	ShutdownTimeout time.Duration

	LogFormat string // "json" or "text"
	LogLevel  string

	// AI judge
	JudgeProvider string
	GeminiAPIKey  string
	GeminiModel   string
	LLMURL        string // OpenAI-compatible endpoint, e.g. "http://localhost:11434"
	LLMModel      string
	LLMAPIKey     string
	JudgeTimeout  time.Duration

	Embedding embedding.Config

	GradingWorkers int
}

// Load reads .env if present, then the environment. Invalid settings are fatal.
func Load() *Config {
	_ = godotenv.Load()
	cfg, err := FromEnv(os.Getenv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

// FromEnv builds a Config from getenv and reports every invalid variable.
func FromEnv(getenv func(string) string) (*Config, error) {
	e := env{getenv: getenv}

	cfg := &Config{
		ServerAddress:   e.getenvDefault("SERVER_ADDRESS", ":8080"),
		ShutdownTimeout: e.getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		LogFormat:       strings.ToLower(e.getenvDefault("LOG_FORMAT", "json")),
		LogLevel:        e.getenvDefault("LOG_LEVEL", "info"),

		JudgeProvider: strings.ToLower(e.getenvDefault("JUDGE_PROVIDER", JudgeNone)),
		GeminiAPIKey:  getenv("GEMINI_API_KEY"),
		GeminiModel:   e.getenvDefault("GEMINI_MODEL", llm.DefaultGeminiModel),
		LLMURL:        e.getenvDefault("LLM_URL", "http://localhost:11434"),
		LLMModel:      e.getenvDefault("LLM_MODEL", "qwen3-8b"),
		LLMAPIKey:     getenv("LLM_API_KEY"),
		JudgeTimeout:  e.getDuration("JUDGE_TIMEOUT", grading.DefaultJudgeTimeout),

		Embedding: embedding.Config{
			Kind:      embedding.Kind(strings.ToLower(e.getenvDefault("EMBEDDING_PROVIDER", string(embedding.KindLocal)))),
			Model:     getenv("EMBEDDING_MODEL"),
			ModelsDir: getenv("EMBEDDING_MODELS_DIR"),
			APIKey:    getenv("EMBEDDING_API_KEY"),
			CacheSize: e.getInt("EMBEDDING_CACHE_SIZE", 1024),
		},

		GradingWorkers: e.getInt("GRADING_WORKERS", 4),
	}

	switch cfg.JudgeProvider {
	case JudgeNone, JudgeOpenAI:
	case JudgeGemini:
		if cfg.GeminiAPIKey == "" {
			e.fail("GEMINI_API_KEY is required when JUDGE_PROVIDER=gemini")
		}
	default:
		e.fail("JUDGE_PROVIDER=%q must be one of gemini, openai, none", cfg.JudgeProvider)
	}

	switch cfg.Embedding.Kind {
	case embedding.KindNone, embedding.KindLocal, embedding.KindOpenAI, embedding.KindGoogleAI:
	default:
		e.fail("EMBEDDING_PROVIDER=%q must be one of local, openai, googleai, none", cfg.Embedding.Kind)
	}

	switch cfg.LogFormat {
	case "json", "text":
	default:
		e.fail("LOG_FORMAT=%q must be json or text", cfg.LogFormat)
	}

	if cfg.GradingWorkers < 1 {
		e.fail("GRADING_WORKERS must be positive, got %d", cfg.GradingWorkers)
	}

	if len(e.errs) > 0 {
		return nil, errors.Join(e.errs...)
	}
	return cfg, nil
}

type env struct {
	getenv func(string) string
	errs   []error
}

func (e *env) fail(format string, args ...any) {
	e.errs = append(e.errs, fmt.Errorf(format, args...))
}

func (e *env) getenvDefault(k, fallback string) string {
	if v := e.getenv(k); v != "" {
		return v
	}
	return fallback
}

func (e *env) getDuration(k string, fallback time.Duration) time.Duration {
	v := e.getenv(k)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail("%s=%q is not a valid duration: %v", k, v, err)
		return fallback
	}
	return d
}

func (e *env) getInt(k string, fallback int) int {
	v := e.getenv(k)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail("%s=%q is not an integer", k, v)
		return fallback
	}
	return n
}
