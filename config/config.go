package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config armazena todas as configurações do serviço de estoque (StockLedger).
type Config struct {
	// Geral
	Port        string
	Environment string
	LogLevel    string

	// Banco de Dados (PostgreSQL)
	DatabaseURL string
	DBTimeout   time.Duration

	// Cache e Locks (Redis)
	RedisAddr string

	// Segurança (JWT emitido por serviço externo)
	JWTSecretKey string

	// Rate Limiting
	RateLimitMaxRequests int
	RateLimitPeriod      time.Duration

	// Ledger e Reservas
	LedgerMaxAttempts        int
	ReservationDefaultTTL    time.Duration
	ReservationSweepInterval time.Duration
	TransferCompleteAttempts int
	BatchConcurrency         int

	// Mensageria (Kafka). Lista vazia desativa consumidor e publicador.
	KafkaBrokers    []string
	KafkaOrderTopic string
	KafkaAlertTopic string
	KafkaGroupID    string

	// Observabilidade (OTLP/HTTP). Vazio desativa a exportação de traces.
	OtelEndpoint string
}

// LoadConfig carrega as configurações a partir das variáveis de ambiente.
func LoadConfig() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// mustGetEnv garante que a aplicação não inicie sem credenciais de DB
		DatabaseURL: mustGetEnv("DATABASE_URL"),
		DBTimeout:   getDurationEnv("DB_TIMEOUT_SEC", 5) * time.Second,

		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		JWTSecretKey: mustGetEnv("JWT_SECRET_KEY"),

		RateLimitMaxRequests: getIntEnv("RATE_LIMIT_MAX_REQUESTS", 100),
		RateLimitPeriod:      getDurationEnv("RATE_LIMIT_PERIOD_MIN", 1) * time.Minute,

		LedgerMaxAttempts:        getIntEnv("LEDGER_MAX_ATTEMPTS", 3),
		ReservationDefaultTTL:    getDurationEnv("RESERVATION_DEFAULT_TTL_MIN", 15) * time.Minute,
		ReservationSweepInterval: getDurationEnv("RESERVATION_SWEEP_INTERVAL_SEC", 60) * time.Second,
		TransferCompleteAttempts: getIntEnv("TRANSFER_COMPLETE_ATTEMPTS", 3),
		BatchConcurrency:         getIntEnv("BATCH_CONCURRENCY", 4),

		KafkaBrokers:    getListEnv("KAFKA_BROKERS"),
		KafkaOrderTopic: getEnv("KAFKA_ORDER_TOPIC", "order-events"),
		KafkaAlertTopic: getEnv("KAFKA_ALERT_TOPIC", "stock-alerts"),
		KafkaGroupID:    getEnv("KAFKA_GROUP_ID", "stockledger"),

		OtelEndpoint: getEnv("OTEL_ENDPOINT", ""),
	}

	return cfg
}

// MessagingEnabled indica se há brokers Kafka configurados.
func (c *Config) MessagingEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// getEnv lê a variável de ambiente ou retorna um valor padrão.
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// mustGetEnv lê a variável de ambiente, fatal se não estiver presente.
func mustGetEnv(key string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Fatalf("❌ Erro de Configuração: A variável de ambiente %s deve ser definida.", key)
	return ""
}

// getDurationEnv lê uma variável numérica e a retorna como time.Duration (sem unidade).
func getDurationEnv(key string, defaultValue int) time.Duration {
	return time.Duration(getIntEnv(key, defaultValue))
}

// getIntEnv lê uma variável de ambiente numérica e retorna-a como int.
func getIntEnv(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil || value <= 0 {
		log.Printf("⚠️ Aviso: Valor de %s ('%s') não é um inteiro positivo. Usando padrão (%d).", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

// getListEnv lê uma lista separada por vírgulas, ignorando itens vazios.
func getListEnv(key string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, ""), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
