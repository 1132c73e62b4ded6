package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ddv-scanner/internal/domain/availability"
	"github.com/example/ddv-scanner/internal/transport"
)

func emptyViper(t *testing.T) *viper.Viper {
	v := viper.New()
	v.SetConfigName("ddvscan")
	v.SetConfigType("yaml")
	v.AddConfigPath(t.TempDir())
	return v
}

func TestDefaults(t *testing.T) {
	cfg, err := load(emptyViper(t))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, transport.DefaultEndpoint, cfg.Endpoint)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 10, cfg.Concurrency)
	assert.Equal(t, 2*time.Minute, cfg.RetryWindow())
	assert.Equal(t, availability.ScanConfig{
		EventCode:     "GA",
		PerformanceID: "720553",
		PerformanceAK: "LVR.EVN21.PRF116669",
		PriceTableID:  "1",
	}, cfg.ScanConfig())
	assert.Equal(t, availability.NewWeekdaySet(availability.Monday, availability.Wednesday, availability.Friday, availability.Sunday), cfg.DefaultWeekdays())
	assert.False(t, cfg.IsProduction())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("DDV_CONCURRENCY", "40")
	t.Setenv("DDV_RETRY_WINDOW_SECONDS", "30")
	t.Setenv("DDV_REQUEST_TIMEOUT", "5s")
	t.Setenv("DDV_WEEKDAYS", "sat,sun")
	t.Setenv("DDV_ENV", "production")

	cfg, err := load(emptyViper(t))
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Concurrency)
	assert.Equal(t, 30*time.Second, cfg.RetryWindow())
	assert.Equal(t, 5*time.Second, cfg.TransportOptions().Timeout)
	assert.Equal(t, "sat,sun", cfg.DefaultWeekdays().String())
	assert.True(t, cfg.IsProduction())
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ddvscan.yaml"), []byte("concurrency: 7\nevent_code: XX\n"), 0o600))
	v := viper.New()
	v.SetConfigName("ddvscan")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	cfg, err := load(v)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Concurrency)
	assert.Equal(t, "XX", cfg.EventCode)
}

func TestValidateRanges(t *testing.T) {
	testCases := map[string]string{
		"DDV_CONCURRENCY":          "0",
		"DDV_RETRY_WINDOW_SECONDS": "5",
		"DDV_WEEKDAYS":             "funday",
		"DDV_REQUEST_TIMEOUT":      "0s",
	}
	for key, value := range testCases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := load(emptyViper(t))
			assert.Error(t, err)
		})
	}
}

func TestCookieKeys(t *testing.T) {
	hash, block, err := Config{}.CookieKeys()
	require.NoError(t, err)
	assert.Nil(t, hash)
	assert.Nil(t, block)

	_, _, err = Config{CookieSecret: "short"}.CookieKeys()
	assert.Error(t, err)

	cfg := Config{CookieSecret: "a sufficiently long secret"}
	hash, block, err = cfg.CookieKeys()
	require.NoError(t, err)
	assert.Len(t, hash, 32)
	assert.Len(t, block, 32)
	assert.NotEqual(t, hash, block)

	again, _, err := cfg.CookieKeys()
	require.NoError(t, err)
	assert.Equal(t, hash, again)

	file := filepath.Join(t.TempDir(), "secret")
	require.NoError(t, os.WriteFile(file, []byte("a sufficiently long secret\n"), 0o600))
	fromFile, _, err := Config{CookieSecret: file}.CookieKeys()
	require.NoError(t, err)
	assert.Equal(t, hash, fromFile)
}
