package config

import (
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"ciasx/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database  DatabaseConfig `validate:"required"`
	AI        AIConfig
	Loop      LoopConfig   `validate:"required"`
	Server    ServerConfig `validate:"required"`
	Paths     PathConfig
	Profiling ProfilingConfig
}

// DatabaseConfig selects the persistence backend. Driver "memory" keeps
// everything in process.
type DatabaseConfig struct {
	Driver string `validate:"oneof=memory sqlite postgres"`
	URL    string `validate:"required_unless=Driver memory"`
}

// AIConfig holds LLM settings. An empty key selects the heuristic generator.
type AIConfig struct {
	OpenAIKey         string
	OpenAIModel       string  `validate:"required"`
	BaseURL           string  `validate:"omitempty,url"`
	MaxTokens         int     `validate:"gte=1"`
	Temperature       float64 `validate:"gte=0,lte=2"`
	RequestsPerSecond float64       `validate:"gt=0"`
	Timeout           time.Duration `validate:"gt=0"`
	Fallback          bool
}

// LoopConfig holds scientist loop settings
type LoopConfig struct {
	Budget              int     `validate:"gte=0"`
	MaxEmptyRounds      int     `validate:"gte=1"`
	ExecutionTimeout    time.Duration
	Parallelism         int     `validate:"gte=1"`
	Seed                int64
	ExecutorFailureRate float64 `validate:"gte=0,lte=1"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string `validate:"required"`
	GinMode string `validate:"omitempty,oneof=debug release test"`
}

// PathConfig holds file system paths
type PathConfig struct {
	DesignSpaceFile string
	SeedConfigsFile string
	ReportDir       string
}

// ProfilingConfig holds performance profiling settings
type ProfilingConfig struct {
	Port    string
	Enabled bool
}

var validate = validator.New()

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database:  loadDatabaseConfig(),
		AI:        loadAIConfig(),
		Loop:      loadLoopConfig(),
		Server:    loadServerConfig(),
		Paths:     loadPathConfig(),
		Profiling: loadProfilingConfig(),
	}

	if err := Validate(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// Validate checks struct-tag constraints on an assembled configuration
func Validate(config *Config) error {
	if err := validate.Struct(config); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return nil
}

func loadDatabaseConfig() DatabaseConfig {
	driver := getEnvOrDefault("DATABASE_DRIVER", "sqlite")
	defaultURL := ""
	if driver == "sqlite" {
		defaultURL = "ciasx.db"
	}
	return DatabaseConfig{
		Driver: driver,
		URL:    getEnvOrDefault("DATABASE_URL", defaultURL),
	}
}

func loadAIConfig() AIConfig {
	return AIConfig{
		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:       getEnvOrDefault("LLM_MODEL", "gpt-4o-mini"),
		BaseURL:           os.Getenv("OPENAI_BASE_URL"),
		MaxTokens:         getEnvIntOrDefault("MAX_TOKENS", 2000),
		Temperature:       getEnvFloatOrDefault("TEMPERATURE", 0.7),
		RequestsPerSecond: getEnvFloatOrDefault("LLM_RPS", 1.0),
		Timeout:           getEnvDurationOrDefault("LLM_TIMEOUT", 60*time.Second),
		Fallback:          getEnvBoolOrDefault("LLM_FALLBACK", true),
	}
}

func loadLoopConfig() LoopConfig {
	return LoopConfig{
		Budget:              getEnvIntOrDefault("BUDGET", 10),
		MaxEmptyRounds:      getEnvIntOrDefault("MAX_EMPTY_ROUNDS", 3),
		ExecutionTimeout:    getEnvDurationOrDefault("EXECUTION_TIMEOUT", 0),
		Parallelism:         getEnvIntOrDefault("PARALLELISM", 1),
		Seed:                int64(getEnvIntOrDefault("SEED", 42)),
		ExecutorFailureRate: getEnvFloatOrDefault("EXECUTOR_FAILURE_RATE", 0),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "debug"),
	}
}

func loadPathConfig() PathConfig {
	return PathConfig{
		DesignSpaceFile: os.Getenv("DESIGN_SPACE_FILE"),
		SeedConfigsFile: os.Getenv("SEED_CONFIGS_FILE"),
		ReportDir:       getEnvOrDefault("REPORT_DIR", "./reports"),
	}
}

func loadProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Port:    getEnvOrDefault("PPROF_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("PPROF_ENABLED", false),
	}
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
