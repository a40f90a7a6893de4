package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	gosync "sync"
	"time"

	"golang.org/x/exp/slog"

	"booksync/internal/app/books"
	"booksync/internal/app/commerce"
	"booksync/internal/app/notify"
	"booksync/internal/app/server/api"
	healthAPI "booksync/internal/app/server/api/http/health"
	"booksync/internal/app/server/jobs"
	"booksync/internal/config"
	"booksync/internal/domain/credential"
	"booksync/internal/domain/ratelimit"
	"booksync/internal/domain/reconcile"
	"booksync/internal/domain/retry"
	"booksync/internal/domain/settings"
	"booksync/internal/domain/sync"
	"booksync/internal/infrastructure/crypto"
	"booksync/internal/infrastructure/storage"
)

// ErrOrdersNotConfigured не заданы параметры WooCommerce
var ErrOrdersNotConfigured = errors.New("woocommerce is not configured: set WOO_BASE_URL, WOO_CONSUMER_KEY and WOO_CONSUMER_SECRET")

const shutdownTimeout = 15 * time.Second

// App собранный граф зависимостей сервиса
type App struct {
	config *config.Config
	log    *slog.Logger

	Storage     *storage.Storage
	Credentials *credential.Store
	Limiter     *ratelimit.Limiter
	Books       *books.Client
	Settings    *settings.Service
	Events      *notify.Publisher

	// заполняются, только если настроен WooCommerce
	Orders    *commerce.Client
	Sync      *sync.Service
	Retry     *retry.Driver
	Reconcile *reconcile.Engine

	wg gosync.WaitGroup
}

func New(cfg *config.Config, log *slog.Logger) (*App, error) {
	st, err := storage.Open(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	enc := crypto.NewServerEncryptor(cfg.Security.AppSecret, cfg.Security.SiteSecret, crypto.Mode(cfg.Security.EncryptionMode))
	switch {
	case enc.Mode() == crypto.ModeDegraded:
		log.Warn("credentials are stored base64-encoded only, set ENCRYPTION_MODE=aead")
	case enc.KeySource() == crypto.KeySourceFallback:
		log.Warn("APP_SECRET and SITE_SECRET are empty, using the static fallback key")
	}

	creds := credential.NewStore(st.Options, enc, log)
	limiter := ratelimit.New(st.Counter, cfg.RateLimit, log)

	booksClient, err := books.New(creds, limiter, log, books.Options{
		Region:         cfg.Zoho.Region,
		OrganizationID: cfg.Zoho.OrganizationID,
	})
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("books client: %w", err)
	}
	creds.AddValidationHook(booksClient.ValidateCredentials)

	events, err := notify.New(log, notify.Config{Mode: cfg.Notify.Mode, WebhookURL: cfg.Notify.WebhookURL})
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	app := &App{
		config:      cfg,
		log:         log,
		Storage:     st,
		Credentials: creds,
		Limiter:     limiter,
		Books:       booksClient,
		Settings:    settings.NewService(st.Options, log),
		Events:      events,
	}

	woo, err := commerce.New(log, commerce.Options{
		BaseURL:        cfg.Woo.BaseURL,
		ConsumerKey:    cfg.Woo.ConsumerKey,
		ConsumerSecret: cfg.Woo.ConsumerSecret,
	})
	switch {
	case errors.Is(err, commerce.ErrNotConfigured):
		log.Debug("woocommerce is not configured, order operations are disabled")
		return app, nil
	case err != nil:
		_ = st.Close()
		return nil, err
	}
	app.wireOrders(woo)

	return app, nil
}

func (a *App) wireOrders(woo *commerce.Client) {
	a.Orders = woo
	a.Sync = sync.NewService(sync.Dependencies{
		States:   a.Storage.States,
		Books:    a.Books,
		Orders:   woo,
		Settings: a.Settings,
		Events:   a.Events,
	}, a.log, &sync.ServiceConfig{BulkDelay: a.config.Jobs.BulkSyncDelay})

	a.Retry = retry.NewDriver(retry.Dependencies{
		States:   a.Storage.States,
		Orders:   woo,
		Syncer:   a.Sync,
		Settings: a.Settings,
		Probe:    a.Books,
	}, a.log, &retry.DriverConfig{BatchSize: a.config.Jobs.RetryBatchSize})

	a.Reconcile = reconcile.NewEngine(reconcile.Dependencies{
		Reports:  a.Storage.Reports,
		Books:    a.Books,
		Orders:   woo,
		States:   a.Storage.States,
		Settings: a.Settings,
		Linker:   a.Sync,
	}, a.log, nil)
}

// RequireOrders ошибка, если операции с заказами недоступны
func (a *App) RequireOrders() error {
	if a.Sync == nil {
		return ErrOrdersNotConfigured
	}
	return nil
}

// Router HTTP API поверх собранных сервисов
func (a *App) Router() http.Handler {
	return api.New(api.Dependencies{
		Sync:        a.Sync,
		Orders:      a.Orders,
		Settings:    a.Settings,
		Credentials: a.Credentials,
		Granter:     a.Books,
		Retry:       a.Retry,
		Reconcile:   a.Reconcile,
		Checks: map[string]healthAPI.Checker{
			"storage": a.Storage.Ping,
			"zoho":    a.Books.Ping,
		},
		AdminToken:    a.config.Server.AdminToken,
		WebhookSecret: a.config.Woo.WebhookSecret,
	}, a.log)
}

// Serve запускает HTTP сервер, фоновые задачи и доставку событий.
// Блокируется до отмены ctx, затем корректно завершает сервер.
func (a *App) Serve(ctx context.Context) error {
	if err := a.RequireOrders(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		a.Events.Run(ctx)
	}()
	go func() {
		defer a.wg.Done()
		jobs.NewScheduler(a.Retry, a.Reconcile, a.log, &jobs.Config{
			RetryInterval:     a.config.Jobs.RetryInterval,
			ReconcileInterval: a.config.Jobs.ReconcileInterval,
			ReconcileLookback: a.config.Jobs.ReconcileLookback,
		}).Run(ctx)
	}()

	srv := &http.Server{
		Addr:              a.config.Server.RunAddress,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http server started", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	a.log.Info("shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("http server shutdown failed", "error", err)
	}

	cancel()
	a.wg.Wait()
	return serveErr
}

// Close закрывает хранилище
func (a *App) Close() error {
	a.Events.Flush(context.Background())
	return a.Storage.Close()
}
