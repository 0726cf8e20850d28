package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chTempDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "acr-eval.db", cfg.Store.Path)
	assert.Equal(t, "memory", cfg.Index.Driver)
	assert.Equal(t, "openai", cfg.Embeddings.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Embeddings.Model)
	assert.Equal(t, 1536, cfg.Embeddings.Dimension)
	assert.InDelta(t, 10, cfg.Embeddings.RequestsPerSecond, 0.001)
	assert.Equal(t, 8, cfg.Eval.Concurrency)
	assert.Equal(t, "results", cfg.Eval.OutputDir)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	chTempDir(t)

	yaml := `
index:
  driver: pgvector
  database_url: postgres://localhost/acr
embeddings:
  provider: local
  dimension: 256
log:
  level: debug
  format: console
server:
  port: 9090
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "pgvector", cfg.Index.Driver)
	assert.Equal(t, "postgres://localhost/acr", cfg.Index.DatabaseURL)
	assert.Equal(t, "local", cfg.Embeddings.Provider)
	assert.Equal(t, 256, cfg.Embeddings.Dimension)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.Equal(t, 8, cfg.Eval.Concurrency)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	chTempDir(t)

	yaml := `
embeddings:
  provider: local
log:
  level: debug
`
	dir, _ := os.Getwd()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("ACREVAL_EMBEDDINGS_PROVIDER", "openai")
	t.Setenv("ACREVAL_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "openai", cfg.Embeddings.Provider)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chTempDir(t)

	t.Setenv("ACREVAL_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Index.Driver = "memory"
	cfg.Embeddings.Provider = "local"
	cfg.Eval.Concurrency = 8
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateEval_LocalProvider(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("eval"))
}

func TestValidateEval_OpenAIRequiresKey(t *testing.T) {
	cfg := validDefaults()
	cfg.Embeddings.Provider = "openai"

	err := cfg.Validate("eval")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "embeddings.key is required")

	cfg.Embeddings.Key = "sk-test"
	assert.NoError(t, cfg.Validate("eval"))
}

func TestValidatePgvectorRequiresURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Index.Driver = "pgvector"

	err := cfg.Validate("embed")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "index.database_url is required")

	cfg.Index.DatabaseURL = "postgres://localhost/acr"
	assert.NoError(t, cfg.Validate("embed"))
}

func TestValidateUnknownDrivers(t *testing.T) {
	cfg := validDefaults()
	cfg.Index.Driver = "redis"
	err := cfg.Validate("search")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "index.driver must be memory or pgvector")

	cfg = validDefaults()
	cfg.Embeddings.Provider = "cohere"
	err = cfg.Validate("search")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "embeddings.provider must be openai or local")
}

func TestValidateGenerateRequiresAnthropicKey(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("generate")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")

	cfg.Anthropic.Key = "sk-ant-test"
	assert.NoError(t, cfg.Validate("generate"))
}

func TestValidateServePort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")

	cfg.Server.Port = 9090
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Eval.Concurrency = 0
	err := cfg.Validate("eval")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "eval.concurrency must be between 1 and 64")

	cfg.Eval.Concurrency = 65
	err = cfg.Validate("eval")
	assert.Error(t, err)

	cfg.Eval.Concurrency = 64
	assert.NoError(t, cfg.Validate("eval"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
