package sync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/exp/slog"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"booksync/internal/app/books"
	"booksync/internal/domain/order"
	"booksync/internal/domain/settings"
)

// Servicer интерфейс сервиса синхронизации
type Servicer interface {
	// SyncOrder создает счет заказа; повторный вызов ничего не создает
	SyncOrder(ctx context.Context, o *order.Order, asDraft bool) SyncResult

	// RetrySync повторяет неудачную синхронизацию по текущим триггерам
	RetrySync(ctx context.Context, o *order.Order) SyncResult

	// DetectConflicts проверяет наличие счета и совместимость валюты контакта
	DetectConflicts(ctx context.Context, o *order.Order) (ConflictReport, error)

	// SyncWithConflictCheck привязывает найденный счет вместо создания нового
	SyncWithConflictCheck(ctx context.Context, o *order.Order, asDraft bool) SyncResult

	ApplyPayment(ctx context.Context, o *order.Order) PaymentResult
	ProcessRefund(ctx context.Context, o *order.Order, refund *order.Refund) RefundResult
	SyncNewRefunds(ctx context.Context, o *order.Order) []RefundResult

	// BulkSync последовательно синхронизирует заказы с паузой между ними
	BulkSync(ctx context.Context, orderIDs []int64) BulkResult

	// HandleOrder реакция на событие заказа по настроенным триггерам
	HandleOrder(ctx context.Context, o *order.Order) TriggerResult

	GetState(ctx context.Context, orderID int64) (*State, error)
	DeleteState(ctx context.Context, orderID int64) error
}

// Dependencies внешние зависимости сервиса
type Dependencies struct {
	States   StateRepository
	Books    Books
	Orders   order.Source
	Settings SettingsProvider
	Events   Publisher
}

type Service struct {
	states   StateRepository
	books    Books
	orders   order.Source
	settings SettingsProvider
	events   Publisher
	log      *slog.Logger
	config   *ServiceConfig
	flight   singleflight.Group
	locks    orderLocks
}

func NewService(deps Dependencies, log *slog.Logger, config *ServiceConfig) *Service {
	if config == nil {
		config = &ServiceConfig{}
	}
	if config.BulkDelay <= 0 {
		config.BulkDelay = 600 * time.Millisecond
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Service{
		states:   deps.States,
		books:    deps.Books,
		orders:   deps.Orders,
		settings: deps.Settings,
		events:   deps.Events,
		log:      log.With("component", "sync_service"),
		config:   config,
	}
}

// SyncOrder конкурентные вызовы для одного заказа схлопываются в один
func (s *Service) SyncOrder(ctx context.Context, o *order.Order, asDraft bool) SyncResult {
	v, _, _ := s.flight.Do(flightKey("order", o.ID), func() (any, error) {
		return s.lockedSync(ctx, o, func(ctx context.Context) SyncResult {
			return s.syncOrder(ctx, o, asDraft)
		}), nil
	})
	return v.(SyncResult)
}

func (s *Service) RetrySync(ctx context.Context, o *order.Order) SyncResult {
	v, _, _ := s.flight.Do(flightKey("order", o.ID), func() (any, error) {
		return s.lockedSync(ctx, o, func(ctx context.Context) SyncResult {
			return s.retrySync(ctx, o)
		}), nil
	})
	return v.(SyncResult)
}

// lockedSync выполняет шаг синхронизации под блокировкой заказа
func (s *Service) lockedSync(ctx context.Context, o *order.Order, step func(ctx context.Context) SyncResult) SyncResult {
	var res SyncResult
	err := s.exclusive(ctx, o.ID, func(ctx context.Context) {
		res = step(ctx)
	})
	if err != nil {
		return SyncResult{OrderID: o.ID, Status: StatusFailed, Error: err.Error()}
	}
	return res
}

func (s *Service) retrySync(ctx context.Context, o *order.Order) SyncResult {
	state, err := s.loadState(ctx, o.ID)
	if err != nil {
		return SyncResult{OrderID: o.ID, Status: StatusFailed, Error: err.Error()}
	}
	state.LastError = ""
	state.ErrorKind = ErrorKindNone
	state.RetryCount++
	if err := s.saveState(ctx, state); err != nil {
		return SyncResult{OrderID: o.ID, Status: state.Status, Error: err.Error()}
	}

	// решение о черновике по текущим триггерам, а не по тем, что были при первой попытке
	asDraft := false
	if cfg, err := s.settings.Load(ctx); err == nil {
		asDraft = cfg.AsDraft(o.Status)
	} else {
		s.log.Warn("failed to load settings for retry", "order_id", o.ID, "error", err)
	}

	s.log.Info("retrying order sync", "order_id", o.ID, "retry_count", state.RetryCount, "as_draft", asDraft)
	return s.syncOrder(ctx, o, asDraft)
}

func (s *Service) syncOrder(ctx context.Context, o *order.Order, asDraft bool) SyncResult {
	log := s.log.With("order_id", o.ID)

	state, err := s.loadState(ctx, o.ID)
	if err != nil {
		log.Error("failed to load sync state", "error", err)
		return SyncResult{OrderID: o.ID, Status: StatusFailed, Error: err.Error()}
	}

	if state.InvoiceID != "" {
		return SyncResult{
			Success:   true,
			OrderID:   o.ID,
			InvoiceID: state.InvoiceID,
			ContactID: state.ContactID,
			Status:    state.Status,
			Data:      map[string]any{"already_synced": true, "invoice_number": state.InvoiceNumber},
		}
	}

	now := s.config.Now()
	state.Status = StatusPending
	state.LastSyncAttempt = &now
	if err := s.saveState(ctx, state); err != nil {
		log.Error("failed to mark order pending", "error", err)
		return SyncResult{OrderID: o.ID, Status: StatusFailed, Error: err.Error()}
	}

	result, err := s.runSync(ctx, o, state, asDraft)
	if err != nil {
		return s.fail(ctx, o, state, err)
	}
	return result
}

// runSync шаги контакт -> счет -> сохранение -> вторичные шаги
func (s *Service) runSync(ctx context.Context, o *order.Order, state *State, asDraft bool) (SyncResult, error) {
	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("load settings: %w", err)
	}

	if state.ContactID == "" {
		contact, err := s.FindOrCreateContact(ctx, o)
		if err != nil {
			return SyncResult{}, err
		}
		state.ContactID = contact.ContactID
		state.ContactName = contact.ContactName
	}

	inv, reused, warnings, err := s.createInvoice(ctx, o, state.ContactID, cfg)
	if err != nil {
		return SyncResult{}, err
	}

	remoteDraft := inv.Status == books.InvoiceDraft || inv.Status == ""
	status := StatusSynced
	if asDraft && remoteDraft {
		status = StatusDraft
	}
	if !asDraft && remoteDraft {
		if err := s.books.MarkInvoiceSent(ctx, inv.InvoiceID); err != nil {
			// счет создан, но остался черновиком
			warnings = append(warnings, fmt.Sprintf("invoice %s was created but could not be marked as sent: %v", inv.InvoiceNumber, err))
			status = StatusDraft
		}
	}

	state.InvoiceID = inv.InvoiceID
	state.InvoiceNumber = inv.InvoiceNumber
	state.Status = status
	state.LastError = ""
	state.ErrorKind = ErrorKindNone
	if err := s.saveState(ctx, state); err != nil {
		return SyncResult{}, fmt.Errorf("persist sync state: %w", err)
	}

	if cfg.Payments.AutoApply && status == StatusSynced && o.IsPaid() {
		pay := s.applyPayment(ctx, o, state, cfg)
		if !pay.Success {
			warnings = append(warnings, "automatic payment failed: "+pay.Error)
		}
		warnings = append(warnings, pay.Warnings...)
	}

	verb := "created"
	if reused {
		verb = "linked"
	}
	message := fmt.Sprintf("Zoho Books invoice %s %s (%s).", inv.InvoiceNumber, verb, status)
	s.note(ctx, o.ID, message)
	s.publish(ctx, Event{
		Type:    EventOrderSynced,
		OrderID: o.ID,
		Message: message,
		Data:    map[string]any{"invoice_id": inv.InvoiceID, "invoice_number": inv.InvoiceNumber, "status": string(status)},
	})

	s.log.Info("order synced", "order_id", o.ID, "invoice_id", inv.InvoiceID, "status", status, "reused", reused)
	return SyncResult{
		Success:   true,
		OrderID:   o.ID,
		InvoiceID: inv.InvoiceID,
		ContactID: state.ContactID,
		Status:    status,
		Data:      map[string]any{"invoice_number": inv.InvoiceNumber, "reused": reused},
		Warnings:  warnings,
	}, nil
}

// fail единственная точка превращения ошибки в состояние FAILED и результат
func (s *Service) fail(ctx context.Context, o *order.Order, state *State, err error) SyncResult {
	state.LastError = err.Error()
	state.ErrorKind = classify(err)
	if state.InvoiceID == "" {
		state.Status = StatusFailed
	}
	if saveErr := s.saveState(ctx, state); saveErr != nil {
		s.log.Error("failed to persist sync failure", "order_id", o.ID, "error", saveErr)
	}

	s.log.Error("order sync failed", "order_id", o.ID, "error_kind", state.ErrorKind, "error", err)

	message := "Zoho Books sync failed: " + err.Error()
	s.note(ctx, o.ID, message)
	s.publish(ctx, Event{
		Type:    EventOrderSyncFailed,
		OrderID: o.ID,
		Message: message,
		Data:    map[string]any{"error_kind": string(state.ErrorKind), "retry_count": state.RetryCount},
	})

	return SyncResult{
		Success:   false,
		OrderID:   o.ID,
		InvoiceID: state.InvoiceID,
		ContactID: state.ContactID,
		Status:    state.Status,
		Error:     err.Error(),
	}
}

func (s *Service) DetectConflicts(ctx context.Context, o *order.Order) (ConflictReport, error) {
	report := ConflictReport{OrderCurrency: o.Currency}

	inv, err := s.FindExistingInvoice(ctx, o)
	if err != nil {
		return report, err
	}
	if inv != nil {
		report.HasConflict = true
		report.InvoiceID = inv.InvoiceID
		report.InvoiceNumber = inv.InvoiceNumber
		report.InvoiceStatus = inv.Status
		report.InvoiceCustomer = inv.CustomerID
	}

	if email := o.Email(); email != "" {
		contact, err := s.books.FindContactByEmail(ctx, email)
		if err != nil {
			return report, fmt.Errorf("find contact %s: %w", email, err)
		}
		if contact != nil {
			report.ContactID = contact.ContactID
			report.ContactCurrency = contact.CurrencyCode
			report.CurrencyMismatch = checkCurrency(contact, o) != nil
		}
	}
	return report, nil
}

func (s *Service) SyncWithConflictCheck(ctx context.Context, o *order.Order, asDraft bool) SyncResult {
	v, _, _ := s.flight.Do(flightKey("order", o.ID), func() (any, error) {
		return s.lockedSync(ctx, o, func(ctx context.Context) SyncResult {
			return s.syncWithConflictCheck(ctx, o, asDraft)
		}), nil
	})
	return v.(SyncResult)
}

func (s *Service) syncWithConflictCheck(ctx context.Context, o *order.Order, asDraft bool) SyncResult {
	state, err := s.loadState(ctx, o.ID)
	if err != nil {
		return SyncResult{OrderID: o.ID, Status: StatusFailed, Error: err.Error()}
	}
	if state.InvoiceID != "" {
		return s.syncOrder(ctx, o, asDraft)
	}

	report, err := s.DetectConflicts(ctx, o)
	if err != nil {
		return s.fail(ctx, o, state, err)
	}
	if !report.HasConflict || report.CurrencyMismatch {
		return s.syncOrder(ctx, o, asDraft)
	}
	if !ownInvoice(state, report) {
		// счет с тем же reference выставлен другому покупателю, создаем свой
		s.log.Warn("existing invoice belongs to another customer, not linking",
			"order_id", o.ID, "invoice_id", report.InvoiceID, "invoice_customer", report.InvoiceCustomer)
		return s.syncOrder(ctx, o, asDraft)
	}
	return s.link(ctx, o, state, report)
}

// ownInvoice найденный счет принадлежит контакту заказа
func ownInvoice(state *State, report ConflictReport) bool {
	if report.InvoiceCustomer == "" {
		return true
	}
	contactID := state.ContactID
	if contactID == "" {
		contactID = report.ContactID
	}
	return contactID == report.InvoiceCustomer
}

// link записывает найденный счет в состояние заказа без создания нового
func (s *Service) link(ctx context.Context, o *order.Order, state *State, report ConflictReport) SyncResult {
	now := s.config.Now()
	state.InvoiceID = report.InvoiceID
	state.InvoiceNumber = report.InvoiceNumber
	if report.InvoiceCustomer != "" {
		state.ContactID = report.InvoiceCustomer
	}
	state.Status = StatusSynced
	if report.InvoiceStatus == books.InvoiceDraft {
		state.Status = StatusDraft
	}
	state.LastSyncAttempt = &now
	state.LastError = ""
	state.ErrorKind = ErrorKindNone
	if err := s.saveState(ctx, state); err != nil {
		state.InvoiceID = ""
		state.InvoiceNumber = ""
		return s.fail(ctx, o, state, fmt.Errorf("persist linked invoice: %w", err))
	}

	message := fmt.Sprintf("Linked existing Zoho Books invoice %s.", report.InvoiceNumber)
	s.note(ctx, o.ID, message)
	s.publish(ctx, Event{
		Type:    EventOrderSynced,
		OrderID: o.ID,
		Message: message,
		Data:    map[string]any{"invoice_id": report.InvoiceID, "linked": true},
	})
	return SyncResult{
		Success:   true,
		OrderID:   o.ID,
		InvoiceID: state.InvoiceID,
		ContactID: state.ContactID,
		Status:    state.Status,
		Data:      map[string]any{"linked": true, "invoice_number": report.InvoiceNumber},
	}
}

// LinkInvoice связывает заказ без счета с найденным счетом, не обращаясь к Zoho.
// Заказ, уже связанный со счетом, не меняется.
func (s *Service) LinkInvoice(ctx context.Context, orderID int64, inv *books.Invoice) (bool, error) {
	var (
		linked bool
		err    error
	)
	lockErr := s.exclusive(ctx, orderID, func(ctx context.Context) {
		var state *State
		state, err = s.loadState(ctx, orderID)
		if err != nil || state.InvoiceID != "" {
			return
		}
		AttachInvoice(state, inv)
		if err = s.saveState(ctx, state); err == nil {
			linked = true
		}
	})
	if lockErr != nil {
		return false, lockErr
	}
	return linked, err
}

// AttachInvoice записывает счет в состояние заказа
func AttachInvoice(state *State, inv *books.Invoice) {
	state.InvoiceID = inv.InvoiceID
	state.InvoiceNumber = inv.InvoiceNumber
	if inv.CustomerID != "" {
		state.ContactID = inv.CustomerID
	}
	state.Status = StatusSynced
	if inv.Status == books.InvoiceDraft {
		state.Status = StatusDraft
	}
	state.LastError = ""
	state.ErrorKind = ErrorKindNone
}

func (s *Service) BulkSync(ctx context.Context, orderIDs []int64) BulkResult {
	result := BulkResult{Total: len(orderIDs), Results: make([]SyncResult, 0, len(orderIDs))}
	limiter := rate.NewLimiter(rate.Every(s.config.BulkDelay), 1)

	cfg, err := s.settings.Load(ctx)
	if err != nil {
		s.log.Warn("failed to load settings for bulk sync", "error", err)
		cfg = settings.Default()
	}

	for i, id := range orderIDs {
		if err := limiter.Wait(ctx); err != nil {
			result.Skipped += len(orderIDs) - i
			break
		}

		o, err := s.orders.GetOrder(ctx, id)
		if err != nil {
			result.Failed++
			result.Results = append(result.Results, SyncResult{OrderID: id, Status: StatusFailed, Error: err.Error()})
			continue
		}

		res := s.SyncOrder(ctx, o, cfg.AsDraft(o.Status))
		if res.Success {
			result.Succeeded++
		} else {
			result.Failed++
		}
		result.Results = append(result.Results, res)
	}

	s.log.Info("bulk sync finished", "total", result.Total, "succeeded", result.Succeeded, "failed", result.Failed, "skipped", result.Skipped)
	return result
}

func (s *Service) GetState(ctx context.Context, orderID int64) (*State, error) {
	return s.loadState(ctx, orderID)
}

// DeleteState локальная очистка состояния заказа
func (s *Service) DeleteState(ctx context.Context, orderID int64) error {
	var err error
	if lockErr := s.exclusive(ctx, orderID, func(ctx context.Context) {
		err = s.states.DeleteState(ctx, orderID)
	}); lockErr != nil {
		return lockErr
	}
	if err != nil {
		return fmt.Errorf("delete sync state: %w", err)
	}
	s.log.Info("sync state deleted", "order_id", orderID)
	return nil
}

func (s *Service) loadState(ctx context.Context, orderID int64) (*State, error) {
	state, err := s.states.GetState(ctx, orderID)
	if errors.Is(err, ErrStateNotFound) {
		return NewState(orderID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load sync state: %w", err)
	}
	return state, nil
}

func (s *Service) saveState(ctx context.Context, state *State) error {
	state.UpdatedAt = s.config.Now()
	return s.states.SaveState(ctx, state)
}

func (s *Service) note(ctx context.Context, orderID int64, text string) {
	if s.orders == nil {
		return
	}
	if err := s.orders.AddNote(ctx, orderID, text); err != nil {
		s.log.Warn("failed to add order note", "order_id", orderID, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, event Event) {
	if s.events == nil {
		return
	}
	if event.Time.IsZero() {
		event.Time = s.config.Now()
	}
	s.events.Publish(ctx, event)
}

func classify(err error) ErrorKind {
	switch {
	case IsValidation(err):
		return ErrorKindValidation
	case errors.Is(err, books.ErrNotConfigured):
		return ErrorKindConfig
	case errors.Is(err, books.ErrRateLimitExceeded):
		return ErrorKindRateLimit
	default:
		return ErrorKindRemote
	}
}

func flightKey(kind string, id int64) string {
	return kind + ":" + strconv.FormatInt(id, 10)
}
