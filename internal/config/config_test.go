package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/intheflow/pkg/domain"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvStore, EnvRedisAddr, EnvAddr, EnvEncryptionKey, EnvLogLevel, EnvLogFormat, EnvGeminiBaseURL} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, domain.Point{X: 256, Y: 0}, cfg.Canvas.Offset)
	assert.Equal(t, 5*time.Second, cfg.Generator.PollInterval)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "cfg.yaml", `
log_level: debug
log_format: json
canvas:
  offset: {x: 300, y: 20}
  placement:
    base: {x: 0, y: 0}
    step: {x: 10, y: 5}
store:
  driver: redis
  lock_ttl: 10s
  redis:
    addr: redis:6379
    ttl: 1h
generator:
  models:
    text: gemini-pro
  poll_interval: 2s
env_files: []
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, domain.Point{X: 300, Y: 20}, cfg.Canvas.Offset)
	assert.Equal(t, domain.Point{X: 10, Y: 5}, cfg.Canvas.Placement.Step)
	assert.Equal(t, DriverRedis, cfg.Store.Driver)
	assert.Equal(t, 10*time.Second, cfg.Store.LockTTL)
	assert.Equal(t, "redis:6379", cfg.Store.Redis.Addr)
	assert.Equal(t, "intheflow:canvas:", cfg.Store.Redis.Prefix, "unset fields keep defaults")
	assert.Equal(t, time.Hour, cfg.Store.Redis.TTL)
	assert.Equal(t, "gemini-pro", cfg.Generator.Models.Text)
	assert.Equal(t, 2*time.Second, cfg.Generator.PollInterval)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	t.Run("Missing Explicit File", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("Unknown Field", func(t *testing.T) {
		_, err := Load(writeFile(t, dir, "typo.yaml", "stroe:\n  driver: file\n"))
		assert.Error(t, err)
	})

	t.Run("Unknown Driver", func(t *testing.T) {
		_, err := Load(writeFile(t, dir, "driver.yaml", "store:\n  driver: sqlite\nenv_files: []\n"))
		require.ErrorIs(t, err, ErrInvalid)
		assert.Contains(t, err.Error(), "store.driver must be one of")
	})

	t.Run("Bad Log Format", func(t *testing.T) {
		_, err := Load(writeFile(t, dir, "format.yaml", "log_format: xml\nenv_files: []\n"))
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("Bad Schedule", func(t *testing.T) {
		_, err := Load(writeFile(t, dir, "cron.yaml", "store:\n  checkpoint_schedule: every tuesday\nenv_files: []\n"))
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("Zero Poll Interval", func(t *testing.T) {
		_, err := Load(writeFile(t, dir, "poll.yaml", "generator:\n  poll_interval: 0s\nenv_files: []\n"))
		require.ErrorIs(t, err, ErrInvalid)
		assert.Contains(t, err.Error(), "generator.poll_interval")
	})

	t.Run("Bad Log Level", func(t *testing.T) {
		_, err := Load(writeFile(t, dir, "level.yaml", "log_level: loud\nenv_files: []\n"))
		assert.ErrorIs(t, err, ErrInvalid)
	})
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := writeFile(t, dir, "test.env", "INTHEFLOW_REDIS_ADDR=from-dotenv:6379\nINTHEFLOW_STORE=redis\n")
	path := writeFile(t, dir, "cfg.yaml", "env_files: ["+envFile+"]\n")

	t.Setenv(EnvStore, "file")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverFile, cfg.Store.Driver, "process environment wins over .env")
	assert.Equal(t, "from-dotenv:6379", cfg.Store.Redis.Addr)
}

func TestEncryptionKeys(t *testing.T) {
	key := base64.StdEncoding.EncodeToString(make([]byte, 32))
	old := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

	cfg := Default()
	_, ok, err := cfg.EncryptionKeys()
	require.NoError(t, err)
	assert.False(t, ok)

	cfg.Encryption = Encryption{Key: key, FallbackKeys: []string{old}}
	keys, ok, err := cfg.EncryptionKeys()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, keys.ActiveKey, 32)
	require.Len(t, keys.FallbackKeys, 1)
	assert.Equal(t, []byte("0123456789abcdef0123456789abcdef"), keys.FallbackKeys[0])

	cfg.Encryption = Encryption{Key: base64.StdEncoding.EncodeToString([]byte("short"))}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalid)

	cfg.Encryption = Encryption{Key: "%%%"}
	assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
}

func TestLoad_SampleConfig(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join("..", "..", "examples", "intheflow.yaml"))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, DriverFile, cfg.Store.Driver)
	assert.Equal(t, "yaml", cfg.Store.Format)
	assert.True(t, cfg.Store.Autosave)
	assert.Equal(t, def.Canvas, cfg.Canvas)
	assert.Equal(t, def.Generator, cfg.Generator)
	assert.Equal(t, def.Store.Redis, cfg.Store.Redis)
}
