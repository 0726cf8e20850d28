// Package config loads application configuration from file and
// environment and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Index      IndexConfig      `yaml:"index" mapstructure:"index"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" mapstructure:"embeddings"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Eval       EvalConfig       `yaml:"eval" mapstructure:"eval"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures run-history persistence.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// IndexConfig selects and configures the vector index backend.
type IndexConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"`
	Key               string  `yaml:"key" mapstructure:"key"`
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	Model             string  `yaml:"model" mapstructure:"model"`
	Dimension         int     `yaml:"dimension" mapstructure:"dimension"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// AnthropicConfig holds Anthropic API settings for synthetic case
// generation.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// EvalConfig configures evaluation behavior.
type EvalConfig struct {
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
	OutputDir   string `yaml:"output_dir" mapstructure:"output_dir"`
}

// ServerConfig configures the search HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ACREVAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", "acr-eval.db")
	v.SetDefault("index.driver", "memory")
	v.SetDefault("embeddings.provider", "openai")
	v.SetDefault("embeddings.model", "text-embedding-3-small")
	v.SetDefault("embeddings.dimension", 1536)
	v.SetDefault("embeddings.requests_per_second", 10)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("eval.concurrency", 8)
	v.SetDefault("eval.output_dir", "results")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the settings a given mode depends on are
// present and sane. mode is the subcommand about to run.
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Eval.Concurrency < 1 || c.Eval.Concurrency > 64 {
		problems = append(problems, "eval.concurrency must be between 1 and 64")
	}

	switch mode {
	case "embed", "eval", "search", "serve":
		if mode == "serve" && c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
		switch c.Embeddings.Provider {
		case "openai":
			if c.Embeddings.Key == "" {
				problems = append(problems, "embeddings.key is required for the openai provider")
			}
		case "local":
			// No credentials needed.
		default:
			problems = append(problems, "embeddings.provider must be openai or local")
		}
		switch c.Index.Driver {
		case "memory":
		case "pgvector":
			if c.Index.DatabaseURL == "" {
				problems = append(problems, "index.database_url is required for the pgvector driver")
			}
		default:
			problems = append(problems, "index.driver must be memory or pgvector")
		}
	case "generate":
		if c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required")
		}
	case "runs":
		// Store path has a default; nothing else required.
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
