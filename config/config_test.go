package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/stock")
	t.Setenv("JWT_SECRET_KEY", "segredo")

	cfg := LoadConfig()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.DBTimeout)
	assert.Equal(t, 3, cfg.LedgerMaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.ReservationDefaultTTL)
	assert.Equal(t, time.Minute, cfg.ReservationSweepInterval)
	assert.False(t, cfg.MessagingEnabled())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/stock")
	t.Setenv("JWT_SECRET_KEY", "segredo")
	t.Setenv("LEDGER_MAX_ATTEMPTS", "5")
	t.Setenv("BATCH_CONCURRENCY", "nao-numerico")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, ,kafka-2:9092")

	cfg := LoadConfig()

	assert.Equal(t, 5, cfg.LedgerMaxAttempts)
	assert.Equal(t, 4, cfg.BatchConcurrency) // valor inválido cai no padrão
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.MessagingEnabled())
}
