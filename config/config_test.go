package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// LoadConfig looks in ./config relative to the working directory, which for
// this package's tests holds no config directory, so only defaults apply.
func TestLoadConfigDefaults(t *testing.T) {
	v, err := LoadConfig()
	require.NoError(t, err)

	cfg, err := ParseConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Pipeline.Budget)
	assert.Equal(t, int64(4), cfg.Pipeline.MaxConcurrent)
	assert.Equal(t, 16_000_000, cfg.Pipeline.MaxInputPixels)
	assert.Equal(t, 4096, cfg.Models.MaxDimension)
	assert.Equal(t, "auto", cfg.Models.GPU)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "image-enhancement", cfg.Kafka.Topic)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("IMGENHANCE_SERVER_PORT", "9090")
	t.Setenv("IMGENHANCE_PIPELINE_BUDGET", "15s")
	t.Setenv("IMGENHANCE_REDIS_ENABLED", "true")

	v, err := LoadConfig()
	require.NoError(t, err)
	cfg, err := ParseConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Pipeline.Budget)
	assert.True(t, cfg.Redis.Enabled)
}

func TestGetEnv(t *testing.T) {
	t.Setenv("IMGENHANCE_TEST_VALUE", "set")

	assert.Equal(t, "set", GetEnv("IMGENHANCE_TEST_VALUE", "fallback"))
	assert.Equal(t, "fallback", GetEnv("IMGENHANCE_TEST_MISSING", "fallback"))
}
