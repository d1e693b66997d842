package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SESSION_TTL_MINUTES", "")
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("TRACE_SAMPLE_RATIO", "")

	cfg := Load()

	assert.Equal(t, StoreDriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 5*time.Minute, cfg.Redis.BookTTL)
	assert.Equal(t, "market-events", cfg.Kafka.TopicMarketEvents)
	assert.Equal(t, 1.0, cfg.Observ.SampleRatio)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("SESSION_TTL_MINUTES", "30")
	t.Setenv("BOOK_CACHE_TTL_SECONDS", "not-a-number")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("EVENTS_ENABLED", "false")
	t.Setenv("TRACE_SAMPLE_RATIO", "0.25")
	t.Setenv("LOG_LEVEL", "warn")

	cfg := Load()

	assert.Equal(t, StoreDriverMemory, cfg.Database.Driver)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 5*time.Minute, cfg.Redis.BookTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, 0.25, cfg.Observ.SampleRatio)
	assert.Equal(t, "warn", cfg.Server.LogLevel)

	t.Setenv("TRACE_SAMPLE_RATIO", "2")
	assert.Equal(t, 1.0, Load().Observ.SampleRatio)
}
