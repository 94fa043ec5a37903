package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := ParseConfig("config.toml", []byte(`
[server]
port = ":8080"
`))
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Server.Port)
		assert.Equal(t, "syllabus.db", cfg.Database.DSN)
		assert.Equal(t, RetentionKeep, cfg.Reviews.Retention)
		assert.False(t, cfg.Throttle.Enabled)
		assert.False(t, cfg.Server.TrustProxy)
		assert.Equal(t, int64(10), cfg.Throttle.Limit)
		assert.Equal(t, "科目番号", cfg.Import.Columns.Code)
		assert.Equal(t, "時間割", cfg.Import.Columns.Schedule)
	})

	t.Run("explicit values", func(t *testing.T) {
		cfg, err := ParseConfig("config.toml", []byte(`
[server]
port = ":9000"
trust_proxy = true

[database]
dsn = "postgres://u:p@localhost/syllabus?sslmode=disable"

[reviews]
retention = "purge"

[import.columns]
code = "Code"
`))
		require.NoError(t, err)
		assert.Equal(t, "postgres://u:p@localhost/syllabus?sslmode=disable", cfg.Database.DSN)
		assert.Equal(t, RetentionPurge, cfg.Reviews.Retention)
		assert.True(t, cfg.Server.TrustProxy)
		assert.Equal(t, "Code", cfg.Import.Columns.Code)
		assert.Equal(t, "授業科目名", cfg.Import.Columns.Title)
	})

	t.Run("env overrides file", func(t *testing.T) {
		t.Setenv(envDSN, "/tmp/other.db")
		t.Setenv(envSessionSecret, "s3cr3t")

		cfg, err := ParseConfig("config.toml", []byte("[server]\nport = \":8080\"\n[database]\ndsn = \"a.db\"\n"))
		require.NoError(t, err)
		assert.Equal(t, "/tmp/other.db", cfg.Database.DSN)
		assert.Equal(t, "s3cr3t", cfg.Session.Secret)
	})

	t.Run("missing port", func(t *testing.T) {
		_, err := ParseConfig("config.toml", []byte(`[database]`))
		assert.Error(t, err)
	})

	t.Run("unknown retention", func(t *testing.T) {
		_, err := ParseConfig("config.toml", []byte("[server]\nport = \":1\"\n[reviews]\nretention = \"forever\"\n"))
		assert.Error(t, err)
	})

	t.Run("throttle without redis", func(t *testing.T) {
		_, err := ParseConfig("config.toml", []byte("[server]\nport = \":1\"\n[throttle]\nenabled = true\n"))
		assert.Error(t, err)
	})

	t.Run("malformed toml", func(t *testing.T) {
		_, err := ParseConfig("config.toml", []byte("[server\nport = "))
		assert.Error(t, err)
	})
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = \":7000\"\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Port)

	_, err = LoadConfig(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}
