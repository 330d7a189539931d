package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.DB.Driver)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, 30*time.Minute, cfg.JWT.AccessTTL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.False(t, cfg.IsProd())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_DRIVER", "POSTGRES")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("JWT_ACCESS_TTL", "5m")
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("FRONTEND_URL", "https://pulseloop.example/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 1, cfg.RateLimit.Capacity)
	assert.Equal(t, "https://pulseloop.example", cfg.FrontendURL)
}

func TestLoadRejectsBadSettings(t *testing.T) {
	t.Setenv("APP_ENV", "test")

	t.Setenv("DB_DRIVER", "oracle")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("STORAGE_DRIVER", "s3")
	t.Setenv("S3_BUCKET", "")
	_, err = Load()
	assert.Error(t, err)
}

func TestProdRequiresSecrets(t *testing.T) {
	t.Setenv("APP_ENV", ProdEnv)
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("STORAGE_DRIVER", "local")
	t.Setenv("JWT_ACCESS_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_ACCESS_SECRET", "a")
	t.Setenv("JWT_REFRESH_SECRET", "b")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProd())
}
