package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:5000", cfg.APIURL)
		assert.Equal(t, 5*time.Second, cfg.AuthTimeout)
		assert.Equal(t, 3*time.Second, cfg.PollInterval)
		assert.True(t, cfg.DemoLoginEnabled)
		assert.Equal(t, "storage.json", filepath.Base(cfg.StoragePath))
		assert.Equal(t, 30*time.Second, cfg.WSPingInterval)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("reads overrides", func(t *testing.T) {
		t.Setenv("SPARK_API_URL", "https://api.spark.test")
		t.Setenv("STATUS_POLL_INTERVAL", "1s")
		t.Setenv("STORAGE_PATH", "/tmp/spark.json")
		t.Setenv("PORT", "9999")
		t.Setenv("ALLOWED_ORIGINS", "http://a.test,http://b.test")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "https://api.spark.test", cfg.APIURL)
		assert.Equal(t, time.Second, cfg.PollInterval)
		assert.Equal(t, "/tmp/spark.json", cfg.StoragePath)
		assert.Equal(t, "127.0.0.1:9999", cfg.Address())
		assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			APIURL:       "http://localhost:5000",
			AuthTimeout:  time.Second,
			PollInterval: time.Second,
			Port:         8090,
		}
	}

	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.APIURL = "localhost"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.PollInterval = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.AuthTimeout = -time.Second
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Port = 70000
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.WSPingInterval = time.Minute
	cfg.WSPongWait = 30 * time.Second
	assert.Error(t, cfg.Validate())
}
