package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start the tutor server or REPL.
type Profile struct {
	// LLM configuration (OpenAI-compatible protocol)
	LLMProvider string // zai, deepseek, openai, siliconflow, dashscope, openrouter, ollama
	LLMAPIKey   string
	LLMBaseURL  string // optional, has default per provider
	LLMModel    string
	LLMTimeout  int // seconds, default 120

	// Session memory
	MemoryPreset       string // default, development, production, testing
	CacheCapacity      int    // overrides the preset when > 0
	MessagesPerSession int    // overrides the preset when > 0
	LockStrategy       string // global or keyed

	// Pedagogy
	DefaultLevel    string
	ExerciseCadence int
	MinSentences    int
	MaxSentences    int
	PhrasebookPath  string // optional YAML override of the embedded phrasebook

	// Translation calls per second, 0 disables limiting
	TranslateRPS float64

	Mode    string
	Addr    string
	Port    int
	Data    string
	Driver  string // sqlite, postgres, redis
	DSN     string
	Version string
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if an LLM API key is configured.
// Ollama runs without a key.
func (p *Profile) IsAIEnabled() bool {
	return p.LLMAPIKey != "" || p.LLMProvider == "ollama"
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// FromEnv fills the fields that have no command-line flag from POLYGLOT_* variables.
// Fields already set are left untouched.
func (p *Profile) FromEnv() {
	if p.LLMProvider == "" {
		p.LLMProvider = getEnvOrDefault("POLYGLOT_LLM_PROVIDER", "deepseek")
	}
	if p.LLMAPIKey == "" {
		p.LLMAPIKey = getEnvOrDefault("POLYGLOT_LLM_API_KEY", "")
	}
	if p.LLMBaseURL == "" {
		p.LLMBaseURL = getEnvOrDefault("POLYGLOT_LLM_BASE_URL", "")
	}
	if p.LLMModel == "" {
		p.LLMModel = getEnvOrDefault("POLYGLOT_LLM_MODEL", "")
	}
	if p.LLMTimeout <= 0 {
		p.LLMTimeout = getEnvOrDefaultInt("POLYGLOT_LLM_TIMEOUT_SECONDS", 120)
	}

	if p.MemoryPreset == "" {
		p.MemoryPreset = getEnvOrDefault("POLYGLOT_MEMORY_PRESET", "default")
	}
	if p.CacheCapacity <= 0 {
		p.CacheCapacity = getEnvOrDefaultInt("POLYGLOT_MEMORY_CACHE_CAPACITY", 0)
	}
	if p.MessagesPerSession <= 0 {
		p.MessagesPerSession = getEnvOrDefaultInt("POLYGLOT_MEMORY_MESSAGES_PER_SESSION", 0)
	}
	if p.LockStrategy == "" {
		p.LockStrategy = getEnvOrDefault("POLYGLOT_MEMORY_LOCK_STRATEGY", "")
	}

	if p.DefaultLevel == "" {
		p.DefaultLevel = getEnvOrDefault("POLYGLOT_DEFAULT_LEVEL", "A2")
	}
	if p.ExerciseCadence <= 0 {
		p.ExerciseCadence = getEnvOrDefaultInt("POLYGLOT_EXERCISE_CADENCE", 5)
	}
	if p.MinSentences <= 0 {
		p.MinSentences = getEnvOrDefaultInt("POLYGLOT_MIN_SENTENCES", 3)
	}
	if p.MaxSentences <= 0 {
		p.MaxSentences = getEnvOrDefaultInt("POLYGLOT_MAX_SENTENCES", 6)
	}
	if p.PhrasebookPath == "" {
		p.PhrasebookPath = getEnvOrDefault("POLYGLOT_PHRASEBOOK", "")
	}
	if p.TranslateRPS <= 0 {
		p.TranslateRPS = getEnvOrDefaultFloat("POLYGLOT_TRANSLATE_RPS", 2)
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

// Validate normalizes the profile and fills the sqlite DSN from the data directory.
func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	switch p.Driver {
	case "":
		p.Driver = "sqlite"
	case "sqlite", "postgres", "redis":
	default:
		return errors.Errorf("unsupported driver %q", p.Driver)
	}

	if p.Driver != "sqlite" {
		if p.DSN == "" {
			return errors.Errorf("dsn required for driver %s", p.Driver)
		}
		return p.validatePedagogy()
	}

	if p.DSN == "" {
		if p.Data == "" {
			p.Data = "."
		}
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
			return err
		}
		p.Data = dataDir
		p.DSN = filepath.Join(dataDir, fmt.Sprintf("polyglot_%s.db", p.Mode))
	}
	return p.validatePedagogy()
}

func (p *Profile) validatePedagogy() error {
	if p.MinSentences > 0 && p.MaxSentences > 0 && p.MinSentences > p.MaxSentences {
		return errors.Errorf("min sentences %d exceeds max sentences %d", p.MinSentences, p.MaxSentences)
	}
	return nil
}
