package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfigFile(t, `
bitbucket:
  base_url: https://bitbucket.example.com
  project_key: OPS
  api_token: plain-token
concurrency:
  workers: 8
log:
  level: debug
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://bitbucket.example.com", cfg.Bitbucket.BaseURL)
	assert.Equal(t, "OPS", cfg.Bitbucket.ProjectKey)
	assert.Equal(t, "plain-token", cfg.Bitbucket.APIToken)
	assert.Equal(t, 20*time.Second, cfg.Bitbucket.Timeout)
	assert.Equal(t, 2, cfg.Bitbucket.MaxRetries)
	assert.Equal(t, 25, cfg.Bitbucket.PageSize)
	assert.Equal(t, 8, cfg.Concurrency.Workers)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("BBS_BASE_URL", "https://env.example.com")
	t.Setenv("BBS_API_TOKEN", "env-token")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.Bitbucket.BaseURL)
	assert.Equal(t, "env-token", cfg.Bitbucket.APIToken)
	assert.Equal(t, "TEST", cfg.Bitbucket.ProjectKey)
	assert.Equal(t, 4, cfg.Concurrency.Workers)
}

func TestLoadConfigEnvironmentOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
bitbucket:
  base_url: https://file.example.com
  project_key: OPS
`)
	t.Setenv("BBS_PROJECT_KEY", "OVERRIDE")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://file.example.com", cfg.Bitbucket.BaseURL)
	assert.Equal(t, "OVERRIDE", cfg.Bitbucket.ProjectKey)
}

func TestLoadConfigRetriesCanBeDisabled(t *testing.T) {
	path := writeConfigFile(t, `
bitbucket:
  base_url: https://bitbucket.example.com
  max_retries: -1
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	// A negative value means "no retries" and must reach the client intact.
	assert.Equal(t, -1, cfg.Bitbucket.MaxRetries)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	encrypted, err := Encrypt("s3cret-token")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-token", encrypted)

	decrypted, err := Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "s3cret-token", decrypted)
}

func TestLoadConfigDecryptsToken(t *testing.T) {
	encrypted, err := Encrypt("s3cret-token")
	require.NoError(t, err)

	path := writeConfigFile(t, `
bitbucket:
  base_url: https://bitbucket.example.com
  api_token: enc:`+encrypted+`
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret-token", cfg.Bitbucket.APIToken)
}

func TestDecryptRejectsGarbage(t *testing.T) {
	_, err := Decrypt("not-base64!!!")
	assert.Error(t, err)

	_, err = Decrypt("c2hvcnQ=")
	assert.Error(t, err)
}
