package config

import (
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAndAddDefaults(t *testing.T) {
	cnf := Configuration{
		Redis: RedisConfig{Dns: "localhost:6379"},
	}
	err := cnf.validateAndAddDefaults()
	require.Error(t, err)
	assert.Equal(t, "data source DNS is required", err.Error())

	cnf = Configuration{
		DataSource: DataSourceConfig{Dns: " postgres://localhost:5432/pesquera "},
		Redis:      RedisConfig{Dns: "localhost:6379"},
		Ledger:     LedgerConfig{EnableBoxLock: true},
	}
	require.NoError(t, cnf.validateAndAddDefaults())

	assert.Equal(t, "Pesquera Traceability", cnf.ProjectName)
	assert.Equal(t, "postgres://localhost:5432/pesquera", cnf.DataSource.Dns)
	assert.Equal(t, DEFAULT_PORT, cnf.Server.Port)
	assert.Equal(t, defaultWebhookQueue, cnf.Queue.WebhookQueue)
	assert.Equal(t, 50*time.Millisecond, cnf.Ledger.RetryDelay())
	assert.Equal(t, 5*time.Second, cnf.Ledger.BoxLockTimeout())
	assert.Equal(t, 300*time.Second, cnf.Cache.ProductTTL())
	assert.True(t, cnf.Ledger.EnableBoxLock)
	assert.Nil(t, cnf.RateLimit.RequestsPerSecond)
	assert.Equal(t, defaultCleanupInterval, *cnf.RateLimit.CleanupIntervalSec)
}

func TestValidateWithoutRedisDisablesBoxLock(t *testing.T) {
	cnf := Configuration{
		DataSource: DataSourceConfig{Dns: "postgres://localhost:5432/pesquera"},
		Ledger:     LedgerConfig{EnableBoxLock: true},
	}
	require.NoError(t, cnf.validateAndAddDefaults())
	assert.False(t, cnf.Ledger.EnableBoxLock)
}

func TestRateLimitDefaults(t *testing.T) {
	rps := 10.0
	cnf := Configuration{
		DataSource: DataSourceConfig{Dns: "dns"},
		RateLimit:  RateLimitConfig{RequestsPerSecond: &rps},
	}
	require.NoError(t, cnf.validateAndAddDefaults())
	require.NotNil(t, cnf.RateLimit.Burst)
	assert.Equal(t, 20, *cnf.RateLimit.Burst)

	burst := 8
	cnf = Configuration{
		DataSource: DataSourceConfig{Dns: "dns"},
		RateLimit:  RateLimitConfig{Burst: &burst},
	}
	require.NoError(t, cnf.validateAndAddDefaults())
	require.NotNil(t, cnf.RateLimit.RequestsPerSecond)
	assert.Equal(t, 4.0, *cnf.RateLimit.RequestsPerSecond)
}

func TestLoadConfigFromFile(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "pesquera.json")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	sampleConfig := Configuration{
		ProjectName: "Temp Project",
		DataSource:  DataSourceConfig{Dns: "temp-dns"},
		Redis:       RedisConfig{Dns: "temp-redis"},
		Ledger:      LedgerConfig{RetryDelayMs: 120},
	}
	require.NoError(t, json.NewEncoder(tmpFile).Encode(sampleConfig))
	tmpFile.Close()

	t.Setenv("PESQUERA_PROJECT_NAME", "Env Project")

	require.NoError(t, loadConfigFromFile(tmpFile.Name()))

	loadedConfig, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "Env Project", loadedConfig.ProjectName)
	assert.Equal(t, "temp-dns", loadedConfig.DataSource.Dns)
	assert.Equal(t, 120*time.Millisecond, loadedConfig.Ledger.RetryDelay())
}

func TestInitConfigFromEnvOnly(t *testing.T) {
	t.Setenv("PESQUERA_DATA_SOURCE_DNS", "postgres://env/pesquera")
	t.Setenv("PESQUERA_SERVER_PORT", "6001")

	require.NoError(t, InitConfig("does-not-exist.json"))

	loadedConfig, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/pesquera", loadedConfig.DataSource.Dns)
	assert.Equal(t, "6001", loadedConfig.Server.Port)
}

func TestMockConfig(t *testing.T) {
	MockConfig(&Configuration{ProjectName: "mock"})
	cnf, err := Fetch()
	require.NoError(t, err)
	assert.Equal(t, "mock", cnf.ProjectName)
}
