package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel"

	// Infraestrutura e utilitários
	"stockledger/config"
	"stockledger/internal/pkg/cache"
	"stockledger/internal/pkg/database"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/pkg/observability"
	"stockledger/internal/pkg/token"

	// Camadas para injeção de dependências
	"stockledger/internal/api/alert"
	"stockledger/internal/api/reservation"
	"stockledger/internal/api/router"
	"stockledger/internal/api/stock"
	"stockledger/internal/api/transfer"
	"stockledger/internal/api/warehouse"
	"stockledger/internal/messaging"
	"stockledger/internal/repository/alertrepo"
	"stockledger/internal/repository/reservationrepo"
	"stockledger/internal/repository/stockrepo"
	"stockledger/internal/repository/transferrepo"
	"stockledger/internal/repository/warehouserepo"
	"stockledger/internal/service/alertservice"
	"stockledger/internal/service/batchservice"
	"stockledger/internal/service/ledgerservice"
	"stockledger/internal/service/reservationservice"
	"stockledger/internal/service/transferservice"
	"stockledger/internal/service/warehouseservice"
	"stockledger/internal/worker/expiry"
)

const tokenExpiry = time.Hour

// @title StockLedger API
// @version 1.0
// @description Ledger de estoque, reservas, transferências entre armazéns e alertas de estoque baixo.
// @BasePath /v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization
func main() {
	// 0. Variáveis de ambiente (.env é opcional; em container vêm do sistema)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ Aviso: arquivo .env não encontrado. Usando apenas o ambiente do sistema.")
	}

	cfg := config.LoadConfig()
	appLog := logger.NewLogger(cfg.LogLevel).With(map[string]interface{}{"service": "stockledger", "env": cfg.Environment})
	defer func() {
		if zl, ok := appLog.(*logger.ZapLogger); ok {
			_ = zl.Sync()
		}
	}()
	appLog.Info("Configurações carregadas.", nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Tracing (no-op sem OTEL_ENDPOINT)
	tp, shutdownTracing, err := observability.SetupTracingSDK(ctx, cfg.OtelEndpoint)
	if err != nil {
		appLog.Error("Falha ao configurar o tracing; seguindo sem exportação.", err)
		tp = otel.GetTracerProvider()
	}

	// 2. Infraestrutura
	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		appLog.Fatal("Falha ao conectar ao banco de dados.", err)
	}
	defer db.Close()
	appLog.Info("Conexão PostgreSQL estabelecida.", nil)

	redisClient, err := cache.NewRedisClient(cfg.RedisAddr)
	if err != nil {
		// Rate limit e locks degradam; o ledger continua correto pelo banco.
		appLog.Warn("Redis indisponível na inicialização.", map[string]interface{}{"addr": cfg.RedisAddr, "error": err.Error()})
	}
	defer redisClient.Close()
	locker := cache.NewRedisLocker(redisClient.Raw())

	// 3. Injeção de dependências: Repository -> Service -> Handler
	stockRepo := stockrepo.NewStockRepository(db, cfg.DBTimeout, appLog)
	reservationRepo := reservationrepo.NewReservationRepository(db, cfg.DBTimeout, appLog)
	transferRepo := transferrepo.NewTransferRepository(db, cfg.DBTimeout, appLog)
	alertRepo := alertrepo.NewAlertRepository(db, cfg.DBTimeout, appLog)
	warehouseRepo := warehouserepo.NewWarehouseRepository(db, cfg.DBTimeout, appLog)

	var alertPublisher alertservice.Publisher
	var alertWriter messaging.Producer
	if cfg.MessagingEnabled() {
		alertWriter, err = messaging.NewAlertWriter(cfg.KafkaBrokers, cfg.KafkaAlertTopic, tp)
		if err != nil {
			appLog.Fatal("Falha ao criar o publicador de alertas.", err)
		}
		alertPublisher = messaging.NewAlertPublisher(alertWriter, appLog)
	}

	alertSvc := alertservice.NewService(alertRepo, alertPublisher, appLog)
	ledgerSvc := ledgerservice.NewService(stockRepo, reservationRepo, alertSvc, cfg.LedgerMaxAttempts, appLog)
	reservationSvc := reservationservice.NewService(reservationRepo, cfg.ReservationDefaultTTL, appLog)
	warehouseSvc := warehouseservice.NewService(warehouseRepo, appLog)
	transferSvc := transferservice.NewService(transferRepo, warehouseSvc, ledgerSvc, locker, cfg.TransferCompleteAttempts, appLog)
	batchSvc := batchservice.NewService(ledgerSvc, cfg.BatchConcurrency, appLog)
	tokenSvc := token.NewService(cfg.JWTSecretKey, tokenExpiry)
	appLog.Debug("Serviços inicializados.", nil)

	handler := router.NewRouter(router.Handlers{
		Stock:       stock.NewHandler(ledgerSvc, batchSvc, appLog),
		Reservation: reservation.NewHandler(reservationSvc, appLog),
		Transfer:    transfer.NewHandler(transferSvc, appLog),
		Alert:       alert.NewHandler(alertSvc, appLog),
		Warehouse:   warehouse.NewHandler(warehouseSvc, appLog),
	}, router.Options{
		TokenService:    tokenSvc,
		Cache:           redisClient,
		RateLimit:       cfg.RateLimitMaxRequests,
		RateLimitWindow: cfg.RateLimitPeriod,
		Logger:          appLog,
	})

	// 4. Workers em segundo plano
	var workers sync.WaitGroup

	sweeper := expiry.NewSweeper(reservationSvc, locker, cfg.ReservationSweepInterval, appLog)
	workers.Add(1)
	go func() {
		defer workers.Done()
		sweeper.Run(ctx)
	}()

	var orderReader messaging.Consumer
	if cfg.MessagingEnabled() {
		orderReader, err = messaging.NewOrderReader(cfg.KafkaBrokers, cfg.KafkaOrderTopic, cfg.KafkaGroupID)
		if err != nil {
			appLog.Fatal("Falha ao criar o consumidor de pedidos.", err)
		}
		consumer := messaging.NewOrderConsumer(orderReader, reservationSvc, ledgerSvc, appLog)
		workers.Add(1)
		go func() {
			defer workers.Done()
			_ = consumer.Start(ctx)
		}()
	} else {
		appLog.Info("KAFKA_BROKERS vazio; mensageria desligada.", nil)
	}

	// 5. Servidor HTTP
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLog.Info("Servidor StockLedger ouvindo na porta", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("Servidor falhou.", err)
			stop()
		}
	}()

	// 6. Graceful shutdown
	<-ctx.Done()
	appLog.Info("Sinal de encerramento recebido. Desligando servidor...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLog.Error("Desligamento do servidor forçado.", err)
	}
	workers.Wait()

	if orderReader != nil {
		if err := orderReader.Close(); err != nil {
			appLog.Error("Falha ao fechar o consumidor Kafka.", err)
		}
	}
	if alertWriter != nil {
		if err := alertWriter.Close(); err != nil {
			appLog.Error("Falha ao fechar o publicador Kafka.", err)
		}
	}
	if shutdownTracing != nil {
		if err := shutdownTracing(shutdownCtx); err != nil {
			appLog.Error("Falha ao encerrar o tracing.", err)
		}
	}

	appLog.Info("Servidor encerrado com sucesso.", nil)
}
