package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, ProviderGoogleAI, cfg.Model.Provider)
	assert.Equal(t, "gemini-2.0-flash", cfg.Model.Name)
	assert.Equal(t, int64(10<<20), cfg.Upload.MaxFileSize)
	assert.Equal(t, DispatchLocal, cfg.Dispatch.Mode)
	assert.Equal(t, 2*time.Second, cfg.Status.PollInterval)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Zero(t, cfg.Model.Timeout)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "8080"
database:
  driver: mysql
  dsn: "user:pass@tcp(localhost:3306)/docs"
model:
  provider: openai
  name: qwen-plus
  base_url: https://example.com/v1
  timeout: 30s
worker:
  num: 2
`)
	t.Setenv("MODEL_API_KEY", "secret-key")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, DriverMySQL, cfg.Database.Driver)
	assert.Equal(t, ProviderOpenAI, cfg.Model.Provider)
	assert.Equal(t, 30*time.Second, cfg.Model.Timeout)
	assert.Equal(t, "secret-key", cfg.Model.APIKey)
	assert.Equal(t, 2, cfg.Worker.Num)
	assert.Equal(t, 100, cfg.Worker.QueueSize)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown provider", "model:\n  provider: nope\n"},
		{"unknown driver", "database:\n  driver: oracle\n  dsn: x\n"},
		{"mysql without dsn", "database:\n  driver: mysql\n"},
		{"rocketmq without name server", "dispatch:\n  mode: rocketmq\n"},
		{"oss without bucket", "oss:\n  enabled: true\n  region: cn-hangzhou\n"},
		{"malformed yaml", "server: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLogLevel("WARNING"))
	assert.Equal(t, slog.LevelError, ParseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel("whatever"))
}

func TestNewLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := NewLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("document processed", "document_id", "abc")
	logger.Debug("hidden")

	assert.Contains(t, stderr.String(), "document_id=abc")
	assert.Contains(t, file.String(), `"document_id":"abc"`)
	assert.NotContains(t, file.String(), "hidden")
}
