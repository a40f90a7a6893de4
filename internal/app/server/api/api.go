//POST /api/v1/webhooks/woocommerce            # Вебхук заказов (подпись HMAC)
//GET  /api/v1/health                          # Состояние (публичный)
//POST /api/v1/orders/{id}/sync                # Синхронизировать заказ (admin)
//POST /api/v1/orders/{id}/retry               # Повторить синхронизацию (admin)
//POST /api/v1/orders/{id}/payment             # Применить оплату (admin)
//POST /api/v1/orders/{id}/refunds             # Новые возвраты (admin)
//POST /api/v1/orders/{id}/refunds/{refund_id} # Один возврат (admin)
//GET  /api/v1/orders/{id}/conflicts           # Конфликты (admin)
//GET|DELETE /api/v1/orders/{id}/state         # Состояние синхронизации (admin)
//POST /api/v1/orders/bulk-sync                # Пакетная синхронизация (admin)
//POST /api/v1/retry/run                       # Прогон повторов (admin)
//GET|POST /api/v1/reconciliations             # Сверки (admin)
//GET|PUT /api/v1/settings                     # Настройки (admin)
//GET|PUT|POST /api/v1/credentials...          # Подключение к Zoho (admin)

package api

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"

	credentialsAPI "booksync/internal/app/server/api/http/credentials"
	healthAPI "booksync/internal/app/server/api/http/health"
	"booksync/internal/app/server/api/http/middleware"
	"booksync/internal/app/server/api/http/middleware/auth"
	"booksync/internal/app/server/api/http/middleware/logger"
	ordersAPI "booksync/internal/app/server/api/http/orders"
	reconcileAPI "booksync/internal/app/server/api/http/reconcile"
	retryAPI "booksync/internal/app/server/api/http/retry"
	settingsAPI "booksync/internal/app/server/api/http/settings"
	webhookAPI "booksync/internal/app/server/api/http/webhook"
	"booksync/internal/domain/reconcile"
	"booksync/internal/domain/settings"
	"booksync/internal/domain/sync"
)

// Dependencies собранные сервисы, которые обслуживает HTTP слой
type Dependencies struct {
	Sync        sync.Servicer
	Orders      ordersAPI.OrderSource
	Settings    settings.Servicer
	Credentials credentialsAPI.Store
	Granter     credentialsAPI.Granter
	Retry       retryAPI.Runner
	Reconcile   reconcile.Servicer
	Checks      map[string]healthAPI.Checker

	AdminToken    string
	WebhookSecret string
}

type Handlers struct {
	Health      *healthAPI.Handler
	Webhook     *webhookAPI.Handler
	Orders      *ordersAPI.Handler
	Retry       *retryAPI.Handler
	Reconcile   *reconcileAPI.Handler
	Settings    *settingsAPI.Handler
	Credentials *credentialsAPI.Handler
}

// New создает *chi.Mux со всеми операциями через huma.Register
func New(deps Dependencies, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("Booksync API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {Type: "http", Scheme: "bearer"},
	}

	API := humachi.New(mux, config)

	h := handlers(deps, log)
	h.Health.SetupRoutes(API)
	h.Webhook.SetupRoutes(API)
	h.Orders.SetupRoutes(API)
	h.Retry.SetupRoutes(API)
	h.Reconcile.SetupRoutes(API)
	h.Settings.SetupRoutes(API)
	h.Credentials.SetupRoutes(API)

	return mux
}

func handlers(deps Dependencies, log *slog.Logger) *Handlers {
	authMW := auth.New(deps.AdminToken, log)
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(deps.Checks, log, middlewares.GetAllAndClear())

	middlewares.Add(loggerMW.Middleware())
	webhookHandler := webhookAPI.NewHandler(deps.Sync, deps.Orders, deps.WebhookSecret, log, middlewares.GetAllAndClear())

	admin := func() huma.Middlewares {
		middlewares.Add(loggerMW.Middleware(), authMW.Middleware())
		return middlewares.GetAllAndClear()
	}

	return &Handlers{
		Health:      healthHandler,
		Webhook:     webhookHandler,
		Orders:      ordersAPI.NewHandler(deps.Sync, deps.Orders, deps.Settings, log, admin()),
		Retry:       retryAPI.NewHandler(deps.Retry, log, admin()),
		Reconcile:   reconcileAPI.NewHandler(deps.Reconcile, log, admin()),
		Settings:    settingsAPI.NewHandler(deps.Settings, log, admin()),
		Credentials: credentialsAPI.NewHandler(deps.Credentials, deps.Granter, log, admin()),
	}
}
