package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ADMIN_USERNAME", "admin")
	t.Setenv("ADMIN_PASSWORD", "admin-pass")
	t.Setenv("AWS_USE_SECRETS", "false")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8085", cfg.Port)
	assert.Equal(t, "distributor", cfg.MongoDB)
	assert.Equal(t, "auto", cfg.MongoTransactions)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 5*time.Minute, cfg.OnlineThreshold)
	assert.Equal(t, 100, cfg.RateLimitPerMinute)
	assert.Equal(t, 50, cfg.RateLimitBurst)
	assert.Equal(t, 20000, cfg.BillingMaxShipments)
	assert.Equal(t, "http://localhost:3000", cfg.AllowedOrigins)
	assert.Equal(t, "mongo", cfg.PresenceStore)
	assert.False(t, cfg.InventoryUpsertUnknown)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9000")
	t.Setenv("ONLINE_THRESHOLD", "90s")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("INVENTORY_UPSERT_UNKNOWN", "true")
	t.Setenv("PRESENCE_STORE", "DynamoDB")
	t.Setenv("MONGO_TRANSACTIONS", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 90*time.Second, cfg.OnlineThreshold)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.InventoryUpsertUnknown)
	assert.Equal(t, "dynamodb", cfg.PresenceStore)
	assert.Equal(t, "false", cfg.MongoTransactions)
}

func TestLoadConfigFailsFast(t *testing.T) {
	t.Run("missing required keys", func(t *testing.T) {
		setRequired(t)
		t.Setenv("JWT_SECRET", "")
		t.Setenv("MONGO_URI", "")

		_, err := LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT_SECRET, MONGO_URI")
	})

	t.Run("production needs origins", func(t *testing.T) {
		setRequired(t)
		t.Setenv("APP_ENV", "production")
		t.Setenv("ALLOWED_ORIGINS", "")

		_, err := LoadConfig()
		assert.ErrorContains(t, err, "ALLOWED_ORIGINS")
	})

	bad := map[string]string{
		"SESSION_TTL":              "forever",
		"RATE_LIMIT_PER_MINUTE":    "lots",
		"INVENTORY_UPSERT_UNKNOWN": "maybe",
		"MONGO_TRANSACTIONS":       "sometimes",
		"PRESENCE_STORE":           "postgres",
		"ONLINE_THRESHOLD":         "-1m",
	}
	for key, val := range bad {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, val)
			_, err := LoadConfig()
			assert.ErrorContains(t, err, key)
		})
	}
}
