package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"
	"golang.org/x/exp/slog"

	"booksync/internal/app/books"
	"booksync/internal/domain/order"
	"booksync/internal/domain/settings"
	"booksync/internal/domain/sync"
)

// Servicer интерфейс сверки
type Servicer interface {
	// Run сверяет заказы и счета за период и сохраняет отчет
	Run(ctx context.Context, start, end time.Time) (*Report, error)
	GetReport(ctx context.Context, id string) (*Report, error)
	ListReports(ctx context.Context, limit int) ([]*Report, error)
}

// InvoiceLinker записывает связь заказа со счетом
type InvoiceLinker interface {
	LinkInvoice(ctx context.Context, orderID int64, inv *books.Invoice) (bool, error)
}

type Dependencies struct {
	Reports  Repository
	Books    Books
	Orders   order.Source
	States   sync.StateRepository
	Settings sync.SettingsProvider
	// Linker по умолчанию пишет в States напрямую
	Linker InvoiceLinker
}

type Engine struct {
	deps   Dependencies
	log    *slog.Logger
	config *EngineConfig
}

func NewEngine(deps Dependencies, log *slog.Logger, config *EngineConfig) *Engine {
	if config == nil {
		config = &EngineConfig{}
	}
	if config.InvoicePages <= 0 {
		config.InvoicePages = 100
	}
	if config.PaymentPages <= 0 {
		config.PaymentPages = 5
	}
	if config.PerPage <= 0 {
		config.PerPage = 200
	}
	if config.OrderPages <= 0 {
		config.OrderPages = 100
	}
	if config.OrdersPerPage <= 0 {
		config.OrdersPerPage = 100
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.NewID == nil {
		config.NewID = uuid.NewString
	}
	if deps.Linker == nil {
		deps.Linker = &stateLinker{states: deps.States, now: config.Now}
	}
	return &Engine{
		deps:   deps,
		log:    log.With("component", "reconciliation"),
		config: config,
	}
}

// run состояние одного прогона
type run struct {
	report    *Report
	cfg       *settings.Settings
	tolerance decimal.Decimal

	byID        map[string]*books.Invoice
	byReference map[string]*books.Invoice
	byNumber    map[string]*books.Invoice
	payments    map[string][]books.Payment
	matched     map[string]bool

	totalDiff decimal.Decimal
}

func (e *Engine) Run(ctx context.Context, start, end time.Time) (*Report, error) {
	if !start.Before(end) {
		return nil, ErrInvalidPeriod
	}

	report := &Report{
		ID:          e.config.NewID(),
		PeriodStart: start,
		PeriodEnd:   end,
		Status:      StatusRunning,
		Summary:     map[string]float64{},
		CreatedAt:   e.config.Now(),
	}
	if err := e.deps.Reports.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}

	e.log.Info("reconciliation started", "report_id", report.ID, "period_start", start, "period_end", end)
	return e.finish(ctx, report, e.reconcile(ctx, report))
}

func (e *Engine) reconcile(ctx context.Context, report *Report) error {
	cfg, err := e.deps.Settings.Load(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	r := &run{
		report:      report,
		cfg:         cfg,
		tolerance:   cfg.Reconciliation.Tolerance.Abs(),
		byID:        map[string]*books.Invoice{},
		byReference: map[string]*books.Invoice{},
		byNumber:    map[string]*books.Invoice{},
		payments:    map[string][]books.Payment{},
		matched:     map[string]bool{},
		totalDiff:   decimal.Zero,
	}

	if err := e.fetchInvoices(ctx, r); err != nil {
		return err
	}
	e.checkpoint(ctx, r)

	if err := e.fetchPayments(ctx, r); err != nil {
		return err
	}
	e.checkpoint(ctx, r)

	orders, err := e.localOrders(ctx, r)
	if err != nil {
		return err
	}
	for _, lo := range orders {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.compareOrder(ctx, r, lo)
	}
	e.checkpoint(ctx, r)

	e.sweepUnmatched(r)
	e.summarize(r)
	return nil
}

// fetchInvoices первая фаза: счета периода и три индекса по ним
func (e *Engine) fetchInvoices(ctx context.Context, r *run) error {
	query := books.InvoiceQuery{
		DateStart: r.report.PeriodStart.Format(books.DateLayout),
		DateEnd:   r.report.PeriodEnd.Format(books.DateLayout),
		PerPage:   e.config.PerPage,
	}
	fetched := 0
	for page := 1; page <= e.config.InvoicePages; page++ {
		query.Page = page
		resp, err := e.deps.Books.ListInvoices(ctx, query)
		if err != nil {
			return fmt.Errorf("list invoices page %d: %w", page, err)
		}
		for i := range resp.Invoices {
			inv := &resp.Invoices[i]
			fetched++
			r.byID[inv.InvoiceID] = inv
			if inv.ReferenceNumber != "" {
				r.byReference[inv.ReferenceNumber] = inv
			}
			if inv.InvoiceNumber != "" {
				r.byNumber[inv.InvoiceNumber] = inv
			}
		}
		if !resp.PageContext.HasMorePage {
			break
		}
		if page == e.config.InvoicePages {
			e.log.Warn("invoice page limit reached", "report_id", r.report.ID, "pages", page)
		}
	}
	r.report.Summary[SummaryInvoicesFetched] = float64(fetched)
	return nil
}

// fetchPayments вторая фаза: оплаты с фильтром по дате на нашей стороне
func (e *Engine) fetchPayments(ctx context.Context, r *run) error {
	fetched := 0
	for page := 1; page <= e.config.PaymentPages; page++ {
		resp, err := e.deps.Books.ListPayments(ctx, page, e.config.PerPage)
		if err != nil {
			return fmt.Errorf("list payments page %d: %w", page, err)
		}
		for _, p := range resp.Payments {
			if !e.inPeriod(r.report, p.Date) {
				continue
			}
			fetched++
			for _, applied := range p.Invoices {
				r.payments[applied.InvoiceID] = append(r.payments[applied.InvoiceID], p)
			}
		}
		if !resp.PageContext.HasMorePage {
			break
		}
	}
	r.report.Summary[SummaryPaymentsFetched] = float64(fetched)
	return nil
}

func (e *Engine) inPeriod(report *Report, date string) bool {
	d, err := time.Parse(books.DateLayout, date)
	if err != nil {
		return false
	}
	start := truncateDay(report.PeriodStart)
	end := truncateDay(report.PeriodEnd)
	return !d.Before(start) && !d.After(end)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type localOrder struct {
	order *order.Order
	state *sync.State
}

// localOrders заказы периода, которые должны были синхронизироваться
// или уже связаны со счетом
func (e *Engine) localOrders(ctx context.Context, r *run) ([]localOrder, error) {
	var out []localOrder
	for page := 1; page <= e.config.OrderPages; page++ {
		batch, err := e.deps.Orders.ListOrders(ctx, order.ListQuery{
			After:   r.report.PeriodStart,
			Before:  r.report.PeriodEnd,
			Page:    page,
			PerPage: e.config.OrdersPerPage,
		})
		if err != nil {
			return nil, fmt.Errorf("list orders page %d: %w", page, err)
		}
		for _, o := range batch {
			state, err := e.deps.States.GetState(ctx, o.ID)
			if errors.Is(err, sync.ErrStateNotFound) {
				state = sync.NewState(o.ID)
			} else if err != nil {
				return nil, fmt.Errorf("load sync state for order %d: %w", o.ID, err)
			}
			if r.cfg.ShouldSync(o.Status) || state.InvoiceID != "" {
				out = append(out, localOrder{order: o, state: state})
			}
		}
		if len(batch) < e.config.OrdersPerPage {
			break
		}
	}
	r.report.Summary[SummaryOrdersChecked] = float64(len(out))
	return out, nil
}

// match связанный счет: сначала по сохраненному id, затем по reference и номеру
func (r *run) match(lo localOrder) *books.Invoice {
	if lo.state.InvoiceID != "" {
		if inv, ok := r.byID[lo.state.InvoiceID]; ok {
			return inv
		}
	}
	ref := lo.order.Reference()
	if inv, ok := r.byReference[ref]; ok {
		return inv
	}
	if inv, ok := r.byNumber[ref]; ok {
		return inv
	}
	return nil
}

func (e *Engine) compareOrder(ctx context.Context, r *run, lo localOrder) {
	o := lo.order
	inv := r.match(lo)
	if inv == nil {
		message := fmt.Sprintf("order #%s has no invoice in Zoho Books", o.Reference())
		if lo.state.InvoiceID != "" {
			message = fmt.Sprintf("invoice %s recorded for order #%s was not found in the period", lo.state.InvoiceID, o.Reference())
		}
		r.add(Discrepancy{
			Type:        MissingInRemote,
			OrderID:     o.ID,
			OrderNumber: o.Reference(),
			InvoiceID:   lo.state.InvoiceID,
			LocalAmount: o.Total,
			Difference:  o.Total,
			Message:     message,
		})
		return
	}

	r.matched[inv.InvoiceID] = true
	r.report.Summary[SummaryMatched]++

	if lo.state.InvoiceID == "" && r.cfg.Reconciliation.AutoLink {
		e.autoLink(ctx, r, lo, inv)
	}

	if inv.Status == books.InvoiceVoid {
		if o.Status != order.StatusCancelled && o.Status != order.StatusRefunded {
			r.add(base(StatusMismatch, o, inv, fmt.Sprintf("invoice %s is void but order #%s is %s", inv.InvoiceNumber, o.Reference(), o.Status)))
		}
		return
	}

	diff := o.Total.Sub(inv.Total)
	if diff.Abs().GreaterThan(r.tolerance) {
		d := base(AmountMismatch, o, inv, fmt.Sprintf("order #%s total %s differs from invoice %s total %s", o.Reference(), o.Total, inv.InvoiceNumber, inv.Total))
		d.LocalAmount = o.Total
		d.RemoteAmount = inv.Total
		d.Difference = diff
		d.Breakdown = Breakdown(o, inv, r.tolerance)
		r.add(d)
	}

	e.compareStatus(r, o, inv)
	e.comparePayment(r, o, inv)
	e.compareRefunds(r, lo, inv)
}

func (e *Engine) compareStatus(r *run, o *order.Order, inv *books.Invoice) {
	settled := inv.Status == books.InvoicePaid || inv.Status == books.InvoicePartiallyPaid
	switch {
	case o.Status == order.StatusCompleted && !settled:
		r.add(base(StatusMismatch, o, inv, fmt.Sprintf("order #%s is completed but invoice %s is %s", o.Reference(), inv.InvoiceNumber, inv.Status)))
	case o.Status == order.StatusCancelled:
		r.add(base(StatusMismatch, o, inv, fmt.Sprintf("order #%s is cancelled but invoice %s is %s", o.Reference(), inv.InvoiceNumber, inv.Status)))
	}
}

// comparePayment сверяет оплаченную локально сумму с total - balance счета
func (e *Engine) comparePayment(r *run, o *order.Order, inv *books.Invoice) {
	localPaid := decimal.Zero
	if o.IsPaid() {
		localPaid = o.Total
	}
	remotePaid := inv.Paid()

	diff := localPaid.Sub(remotePaid)
	if diff.Abs().LessThanOrEqual(r.tolerance) {
		return
	}
	d := base(PaymentMismatch, o, inv, fmt.Sprintf(
		"order #%s paid %s but invoice %s shows %s paid (%d payments in period)",
		o.Reference(), localPaid, inv.InvoiceNumber, remotePaid, len(r.payments[inv.InvoiceID]),
	))
	d.LocalAmount = localPaid
	d.RemoteAmount = remotePaid
	d.Difference = diff
	r.add(d)
}

// compareRefunds возвраты без кредит-ноты
func (e *Engine) compareRefunds(r *run, lo localOrder, inv *books.Invoice) {
	for _, refund := range lo.order.Refunds {
		if _, ok := lo.state.RefundMapping(refund.ID); ok {
			continue
		}
		amount := refund.Amount.Abs()
		d := base(RefundMismatch, lo.order, inv, fmt.Sprintf("refund %d of %s on order #%s has no credit note", refund.ID, amount, lo.order.Reference()))
		d.LocalAmount = amount
		d.Difference = amount
		r.add(d)
	}
}

// autoLink записывает найденный счет в состояние заказа. Удаленная сторона не меняется.
func (e *Engine) autoLink(ctx context.Context, r *run, lo localOrder, inv *books.Invoice) {
	linked, err := e.deps.Linker.LinkInvoice(ctx, lo.order.ID, inv)
	if err != nil {
		e.log.Warn("failed to auto-link invoice", "order_id", lo.order.ID, "invoice_id", inv.InvoiceID, "error", err)
		return
	}
	if !linked {
		return
	}
	r.report.Summary[SummaryAutoLinked]++
	e.log.Info("invoice auto-linked", "order_id", lo.order.ID, "invoice_id", inv.InvoiceID)
}

// stateLinker связывает через репозиторий состояний, без блокировки заказа
type stateLinker struct {
	states sync.StateRepository
	now    func() time.Time
}

func (l *stateLinker) LinkInvoice(ctx context.Context, orderID int64, inv *books.Invoice) (bool, error) {
	state, err := l.states.GetState(ctx, orderID)
	if errors.Is(err, sync.ErrStateNotFound) {
		state = sync.NewState(orderID)
	} else if err != nil {
		return false, err
	}
	if state.InvoiceID != "" {
		return false, nil
	}
	sync.AttachInvoice(state, inv)
	state.UpdatedAt = l.now()
	if err := l.states.SaveState(ctx, state); err != nil {
		return false, err
	}
	return true, nil
}

// sweepUnmatched счета с reference, которые не сопоставились ни одному заказу.
// Обходится byID: несколько счетов с одним reference должны попасть в отчет все.
func (e *Engine) sweepUnmatched(r *run) {
	var unmatched []*books.Invoice
	for _, inv := range r.byID {
		if inv.ReferenceNumber == "" || r.matched[inv.InvoiceID] {
			continue
		}
		unmatched = append(unmatched, inv)
	}
	slices.SortFunc(unmatched, func(a, b *books.Invoice) int {
		if c := strings.Compare(a.ReferenceNumber, b.ReferenceNumber); c != 0 {
			return c
		}
		return strings.Compare(a.InvoiceID, b.InvoiceID)
	})

	for _, inv := range unmatched {
		r.add(Discrepancy{
			Type:          MissingInLocal,
			OrderNumber:   inv.ReferenceNumber,
			InvoiceID:     inv.InvoiceID,
			InvoiceNumber: inv.InvoiceNumber,
			RemoteAmount:  inv.Total,
			Difference:    inv.Total.Neg(),
			Message:       fmt.Sprintf("invoice %s with reference %s has no matching order", inv.InvoiceNumber, inv.ReferenceNumber),
		})
	}
}

func (e *Engine) summarize(r *run) {
	s := r.report.Summary
	for _, t := range []DiscrepancyType{MissingInRemote, MissingInLocal, AmountMismatch, StatusMismatch, PaymentMismatch, RefundMismatch} {
		s[string(t)] = float64(r.report.Count(t))
	}
	s[SummaryDiscrepancies] = float64(len(r.report.Discrepancies))
	s[SummaryTotalDifference] = r.totalDiff.Round(2).InexactFloat64()
}

func (r *run) add(d Discrepancy) {
	r.report.Discrepancies = append(r.report.Discrepancies, d)
	r.totalDiff = r.totalDiff.Add(d.Difference.Abs())
}

// checkpoint промежуточное сохранение; ошибка не прерывает сверку
func (e *Engine) checkpoint(ctx context.Context, r *run) {
	if err := e.deps.Reports.UpdateReport(ctx, r.report); err != nil {
		e.log.Warn("failed to save report progress", "report_id", r.report.ID, "error", err)
	}
}

// finish финализирует отчет; при ошибке сохраняется частичная сводка
func (e *Engine) finish(ctx context.Context, report *Report, runErr error) (*Report, error) {
	now := e.config.Now()
	report.CompletedAt = &now
	report.Status = StatusCompleted
	if runErr != nil {
		report.Status = StatusFailed
		report.Error = runErr.Error()
	}

	// финализация не должна зависеть от отмененного контекста прогона
	saveCtx := context.WithoutCancel(ctx)
	if err := e.deps.Reports.UpdateReport(saveCtx, report); err != nil {
		e.log.Error("failed to finalize report", "report_id", report.ID, "error", err)
		if runErr == nil {
			runErr = fmt.Errorf("finalize report: %w", err)
		}
	}

	if runErr != nil {
		e.log.Error("reconciliation failed", "report_id", report.ID, "error", runErr)
		return report, runErr
	}
	e.log.Info("reconciliation completed",
		"report_id", report.ID,
		"discrepancies", len(report.Discrepancies),
		"total_difference", report.Summary[SummaryTotalDifference],
	)
	return report, nil
}

func (e *Engine) GetReport(ctx context.Context, id string) (*Report, error) {
	return e.deps.Reports.GetReport(ctx, id)
}

func (e *Engine) ListReports(ctx context.Context, limit int) ([]*Report, error) {
	if limit <= 0 {
		limit = 20
	}
	return e.deps.Reports.ListReports(ctx, limit)
}

func base(t DiscrepancyType, o *order.Order, inv *books.Invoice, message string) Discrepancy {
	return Discrepancy{
		Type:          t,
		OrderID:       o.ID,
		OrderNumber:   o.Reference(),
		InvoiceID:     inv.InvoiceID,
		InvoiceNumber: inv.InvoiceNumber,
		LocalAmount:   o.Total,
		RemoteAmount:  inv.Total,
		Message:       message,
	}
}
