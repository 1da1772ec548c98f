package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketRegime/internal/domain/models"
)

func TestDefaultConfig(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	assert.Equal(t, models.DefaultWindows(), c.Pipeline.Windows)
	assert.Equal(t, 5, c.Pipeline.HorizonDays)
	assert.Equal(t, 7, c.Pipeline.NewsLookbackDays)
	assert.Len(t, c.Pipeline.Universe, 48)
	assert.Contains(t, c.Pipeline.Universe, "M&M.NS")
	assert.Equal(t, "2018-01-01", c.Pipeline.PriceStart().Format("2006-01-02"))
	assert.True(t, c.Schedule.IsEnabled())
	assert.Equal(t, "30 16 * * 1-5", c.Schedule.Cron)
	assert.False(t, c.Kafka.Enabled)
}

func TestLoadOverridesAndValidation(t *testing.T) {
	dir := t.TempDir()

	write := func(body string) string {
		p := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
		return p
	}

	t.Run("yaml values win over defaults and symbols are normalised", func(t *testing.T) {
		c, err := Load(write(`
pipeline:
  universe: [tcs, infy.ns, TCS]
  horizon_days: 10
schedule:
  enabled: false
`))
		require.NoError(t, err)
		assert.Equal(t, []string{"TCS.NS", "INFY.NS"}, c.Pipeline.Universe)
		assert.Equal(t, 10, c.Pipeline.HorizonDays)
		assert.False(t, c.Schedule.IsEnabled())
	})

	t.Run("windows out of order are rejected", func(t *testing.T) {
		_, err := Load(write(`
pipeline:
  windows: {sma_short: 20, sma_mid: 10, sma_long: 50, volatility: 20}
`))
		assert.Error(t, err)
	})

	t.Run("kafka enabled without brokers is rejected", func(t *testing.T) {
		_, err := Load(write("kafka:\n  enabled: true\n"))
		assert.Error(t, err)
	})
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("SYMBOLS", "reliance,sbin")
	t.Setenv("DATA_DIR", "/tmp/market")
	t.Setenv("NEWS_API_KEY", "k")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")

	c, err := LoadWithEnv("")
	require.NoError(t, err)
	assert.Equal(t, []string{"RELIANCE.NS", "SBIN.NS"}, c.Pipeline.Universe)
	assert.Equal(t, "/tmp/market", c.Storage.DataDir)
	assert.Equal(t, "k", c.Providers.NewsAPIKey)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"a:9092", "b:9092"}, c.Kafka.Brokers)
}
