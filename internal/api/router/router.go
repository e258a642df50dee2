package router

import (
	"net/http"
	"time"

	"github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "stockledger/docs" // registra o documento Swagger
	"stockledger/internal/api/alert"
	"stockledger/internal/api/reservation"
	"stockledger/internal/api/stock"
	"stockledger/internal/api/transfer"
	"stockledger/internal/api/warehouse"
	"stockledger/internal/domain"
	"stockledger/internal/pkg/cache"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/pkg/middleware"
)

// Handlers agrupa os Handlers já inicializados por injeção de dependências.
type Handlers struct {
	Stock       *stock.Handler
	Reservation *reservation.Handler
	Transfer    *transfer.Handler
	Alert       *alert.Handler
	Warehouse   *warehouse.Handler
}

// Options configura autenticação e rate limiting das rotas /v1.
type Options struct {
	TokenService    middleware.TokenService
	Cache           cache.Client
	RateLimit       int
	RateLimitWindow time.Duration
	Logger          logger.Logger
}

// NewRouter configura e retorna o roteador HTTP principal.
func NewRouter(h Handlers, opts Options) http.Handler {
	mux := http.NewServeMux()

	// --- 1. Rotas públicas ---
	mux.HandleFunc("GET /ping", PingHandler)
	mux.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// --- 2. Rotas /v1: token obrigatório e rate limit por IP ---
	auth := middleware.NewAuthMiddleware(opts.TokenService)
	limit := middleware.RateLimiter(opts.Cache, opts.RateLimit, opts.RateLimitWindow, opts.Logger)
	protect := func(fn http.HandlerFunc) http.Handler {
		return limit(auth(fn))
	}
	managers := middleware.RequireRoles(domain.RoleAdmin, domain.RoleManager)
	protectManagers := func(fn http.HandlerFunc) http.Handler {
		return limit(auth(managers(fn)))
	}

	// Estoque e ledger
	mux.Handle("POST /v1/stock/records", protectManagers(h.Stock.RegisterRecordHandler))
	mux.Handle("GET /v1/stock/records", protect(h.Stock.GetStockHandler))
	mux.Handle("PUT /v1/stock/records/threshold", protectManagers(h.Stock.UpdateThresholdHandler))
	mux.Handle("POST /v1/stock/changes", protect(h.Stock.RecordChangeHandler))
	mux.Handle("POST /v1/stock/changes/batch", protect(h.Stock.ApplyBatchHandler))
	mux.Handle("GET /v1/stock/ledger", protect(h.Stock.ListLedgerHandler))
	mux.Handle("GET /v1/stock/ledger/replay", protect(h.Stock.ReplayHandler))

	// Reservas
	mux.Handle("POST /v1/reservations", protect(h.Reservation.ReserveHandler))
	mux.Handle("GET /v1/reservations", protect(h.Reservation.ListByOrderHandler))
	mux.Handle("GET /v1/reservations/{id}", protect(h.Reservation.GetReservationHandler))
	mux.Handle("POST /v1/reservations/{id}/fulfill", protect(h.Reservation.FulfillHandler))
	mux.Handle("POST /v1/reservations/{id}/cancel", protect(h.Reservation.CancelHandler))

	// Transferências
	mux.Handle("POST /v1/transfers", protect(h.Transfer.CreateTransferHandler))
	mux.Handle("GET /v1/transfers/{id}", protect(h.Transfer.GetTransferHandler))
	mux.Handle("POST /v1/transfers/{id}/approve", protectManagers(h.Transfer.ApproveTransferHandler))
	mux.Handle("POST /v1/transfers/{id}/complete", protect(h.Transfer.CompleteTransferHandler))
	mux.Handle("POST /v1/transfers/{id}/cancel", protect(h.Transfer.CancelTransferHandler))

	// Alertas
	mux.Handle("GET /v1/alerts", protect(h.Alert.ListAlertsHandler))
	mux.Handle("POST /v1/alerts/{id}/resolve", protect(h.Alert.ResolveAlertHandler))

	// Armazéns
	mux.Handle("POST /v1/warehouses", protectManagers(h.Warehouse.CreateWarehouseHandler))
	mux.Handle("GET /v1/warehouses", protect(h.Warehouse.GetAllWarehousesHandler))
	mux.Handle("GET /v1/warehouses/{id}", protect(h.Warehouse.GetWarehouseByIDHandler))

	// --- 3. Middlewares globais ---
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	return c.Handler(mux)
}

// PingHandler é uma função utilitária para o health check.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
