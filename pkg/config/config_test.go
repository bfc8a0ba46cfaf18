package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Port     int    `env:"TEST_CFG_PORT" envDefault:"8080"`
	Host     string `env:"TEST_CFG_HOST" envDefault:"localhost"`
	LogLevel string `env:"TEST_CFG_LOG_LEVEL" envDefault:"info"`
	Debug    bool   `env:"TEST_CFG_DEBUG" envDefault:"false"`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg testConfig
	err := Load(&cfg)

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Debug)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "9090")
	t.Setenv("TEST_CFG_HOST", "0.0.0.0")
	t.Setenv("TEST_CFG_DEBUG", "true")

	var cfg testConfig
	err := Load(&cfg)

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.True(t, cfg.Debug)
}

type requiredConfig struct {
	APIKey string `env:"TEST_CFG_API_KEY,required"`
}

func TestLoad_RequiredFieldMissing(t *testing.T) {
	var cfg requiredConfig
	err := Load(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoad_InvalidType(t *testing.T) {
	t.Setenv("TEST_CFG_PORT", "not-a-number")

	var cfg testConfig
	err := Load(&cfg)

	require.Error(t, err)
}

type dotenvConfig struct {
	Region string `env:"TEST_DOTENV_REGION" envDefault:"none"`
	Zone   string `env:"TEST_DOTENV_ZONE" envDefault:"none"`
}

func TestLoadWithDotEnv_FileValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("TEST_DOTENV_REGION=eu-west\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("TEST_DOTENV_REGION") })

	var cfg dotenvConfig
	require.NoError(t, LoadWithDotEnv(&cfg, path))

	assert.Equal(t, "eu-west", cfg.Region)
	assert.Equal(t, "none", cfg.Zone)
}

func TestLoadWithDotEnv_EnvironmentWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("TEST_DOTENV_ZONE=from-file\n"), 0o600))
	t.Setenv("TEST_DOTENV_ZONE", "from-env")

	var cfg dotenvConfig
	require.NoError(t, LoadWithDotEnv(&cfg, path))

	assert.Equal(t, "from-env", cfg.Zone)
}

func TestLoadWithDotEnv_MissingFileIgnored(t *testing.T) {
	var cfg dotenvConfig
	err := LoadWithDotEnv(&cfg, filepath.Join(t.TempDir(), "absent.env"))

	require.NoError(t, err)
	assert.Equal(t, "none", cfg.Region)
}
