package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
db:
  driver: badger
  in_memory: true
jwt:
  secret: "0123456789abcdef"
  ttl: 2h
storage:
  driver: local
  path: /tmp/files
logging:
  level: DEBUG
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.Server.Addr)
	require.Equal(t, "badger", cfg.DB.Driver)
	require.True(t, cfg.DB.InMemory)
	require.Equal(t, 2*time.Hour, cfg.JWT.TTL)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "json", cfg.Logging.Format)
	require.Equal(t, []string{"*"}, cfg.Server.CORS.AllowedOrigins)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
db:
  driver: postgres
  source: postgres://file
jwt:
  secret: "0123456789abcdef"
`)
	t.Setenv("DB_SOURCE", "postgres://env")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "postgres://env", cfg.DB.Source)
	require.Equal(t, 24*time.Hour, cfg.JWT.TTL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"short jwt secret", "db: {driver: badger, in_memory: true}\njwt: {secret: short}\n"},
		{"unknown db driver", "db: {driver: mysql}\njwt: {secret: 0123456789abcdef}\n"},
		{"postgres without source", "db: {driver: postgres}\njwt: {secret: 0123456789abcdef}\n"},
		{"s3 without bucket", "db: {driver: badger, in_memory: true}\njwt: {secret: 0123456789abcdef}\nstorage: {driver: s3}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}
}
