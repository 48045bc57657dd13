// Package config loads application settings from flags, MOCKSCOPE_*
// environment variables, an optional .env file and an optional
// mockscope.yaml file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/abhisek/mockscope/internal/graphy"
	"github.com/abhisek/mockscope/internal/llm"
	"github.com/abhisek/mockscope/internal/logging"
	"github.com/abhisek/mockscope/internal/mentor"
	"github.com/abhisek/mockscope/internal/store"
)

// EnvPrefix prefixes every environment variable the application reads.
const EnvPrefix = "MOCKSCOPE"

// ProviderAuto selects the first LLM provider with an API key in the
// environment.
const ProviderAuto = "auto"

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Config is the full application configuration.
type Config struct {
	DB     string         `mapstructure:"db"`
	Exam   string         `mapstructure:"exam"`
	Log    logging.Config `mapstructure:"log"`
	LLM    llm.Config     `mapstructure:"llm"`
	Mentor mentor.Config  `mapstructure:"mentor"`
	Graphy graphy.Config  `mapstructure:"graphy"`
	Server ServerConfig   `mapstructure:"server"`
}

// SetDefaults registers every key with its default value. Keys must be
// known to viper for environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	logCfg := logging.DefaultConfig()
	llmCfg := llm.DefaultConfig()
	mentorCfg := mentor.DefaultConfig()

	v.SetDefault("db", "")
	v.SetDefault("exam", store.DefaultExamID)

	v.SetDefault("log.level", logCfg.Level)
	v.SetDefault("log.file", logCfg.File)
	v.SetDefault("log.max_size_mb", logCfg.MaxSizeMB)
	v.SetDefault("log.max_backups", logCfg.MaxBackups)
	v.SetDefault("log.max_age_days", logCfg.MaxAgeDays)
	v.SetDefault("log.compress", logCfg.Compress)

	v.SetDefault("llm.provider", ProviderAuto)
	v.SetDefault("llm.timeout", llmCfg.Timeout)
	v.SetDefault("llm.anthropic.api_key", "")
	v.SetDefault("llm.anthropic.model", llmCfg.Anthropic.Model)
	v.SetDefault("llm.anthropic.base_url", "")
	v.SetDefault("llm.openai.api_key", "")
	v.SetDefault("llm.openai.model", llmCfg.OpenAI.Model)
	v.SetDefault("llm.openai.base_url", "")
	v.SetDefault("llm.gemini.api_key", "")
	v.SetDefault("llm.gemini.model", llmCfg.Gemini.Model)
	v.SetDefault("llm.gemini.base_url", "")
	v.SetDefault("llm.openrouter.api_key", "")
	v.SetDefault("llm.openrouter.model", llmCfg.OpenRouter.Model)
	v.SetDefault("llm.openrouter.base_url", llmCfg.OpenRouter.BaseURL)
	v.SetDefault("llm.retry.max_attempts", llmCfg.Retry.MaxAttempts)
	v.SetDefault("llm.retry.initial_wait", llmCfg.Retry.InitialWait)
	v.SetDefault("llm.retry.max_wait", llmCfg.Retry.MaxWait)
	v.SetDefault("llm.retry.multiplier", llmCfg.Retry.Multiplier)

	v.SetDefault("mentor.exam_name", mentorCfg.ExamName)
	v.SetDefault("mentor.max_tokens", mentorCfg.MaxTokens)
	v.SetDefault("mentor.temperature", mentorCfg.Temperature)

	v.SetDefault("graphy.base_url", graphy.DefaultBaseURL)
	v.SetDefault("graphy.merchant_id", "")
	v.SetDefault("graphy.token", "")
	v.SetDefault("graphy.live", false)
	v.SetDefault("graphy.timeout", 30*time.Second)
	v.SetDefault("graphy.latency", 800*time.Millisecond)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
}

// Load reads configuration into cfg. Flags should already be bound to v.
// A missing config file is not an error; a malformed one is.
func Load(v *viper.Viper) (Config, error) {
	// .env only fills variables that are not already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if v.ConfigFileUsed() == "" {
		v.SetConfigName("mockscope")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, "mockscope"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if cfg.LLM.Provider == ProviderAuto {
		cfg.LLM.Provider = llm.ProviderNone
		if found, ok := llm.DiscoverConfig(cfg.LLM); ok {
			cfg.LLM = found
		}
	}
	if err := cfg.LLM.Validate(); err != nil {
		return Config{}, err
	}
	if cfg.DB == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			return Config{}, fmt.Errorf("resolve database path: %w", err)
		}
		cfg.DB = p
	} else if err := store.EnsureDir(cfg.DB); err != nil {
		return Config{}, fmt.Errorf("create database directory: %w", err)
	}
	cfg.Exam = strings.ToUpper(strings.TrimSpace(cfg.Exam))
	return cfg, nil
}
