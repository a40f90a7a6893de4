package settings

import "github.com/shopspring/decimal"

// TriggerAction что делать с заказом при переходе в статус
type TriggerAction string

const (
	ActionDraft  TriggerAction = "draft"
	ActionSubmit TriggerAction = "submit"
)

// Numbering политика нумерации счетов
type Numbering string

const (
	// NumberingAuto номер выдает удаленная серия, номер заказа пишется только в reference
	NumberingAuto Numbering = "auto"
	// NumberingOrderNumber номер заказа пишется и в номер счета, и в reference
	NumberingOrderNumber Numbering = "order_number"
)

// Retry настройки повторов
type Retry struct {
	Mode              string `json:"mode"`
	MaxCount          int    `json:"max_count"`
	BackoffMinutes    int    `json:"backoff_minutes"`
	MaxBackoffMinutes int    `json:"max_backoff_minutes"`
}

// GatewayFee ключи метаданных заказа, в которых платежный шлюз пишет комиссию
type GatewayFee struct {
	FeeKey      string `json:"fee_key"`
	NetKey      string `json:"net_key"`
	CurrencyKey string `json:"currency_key"`
}

// Payments настройки оплат и возвратов
type Payments struct {
	AutoApply bool `json:"auto_apply"`
	// Accounts способ оплаты -> счет зачисления
	Accounts         map[string]string `json:"accounts"`
	DefaultAccountID string            `json:"default_account_id"`
	CreateCashRefund bool              `json:"create_cash_refund"`
	RefundAccountID  string            `json:"refund_account_id"`
	GatewayFee       GatewayFee        `json:"gateway_fee"`
}

// Items настройки сопоставления товаров
type Items struct {
	MatchBySKU    bool `json:"match_by_sku"`
	CreateMissing bool `json:"create_missing"`
}

// Invoices дополнительные поля счета
type Invoices struct {
	// CustomFields api_name поля Zoho -> атрибут заказа (order_id, payment_method, transaction_id)
	CustomFields map[string]string `json:"custom_fields"`
}

// Reconciliation настройки сверки
type Reconciliation struct {
	Tolerance decimal.Decimal `json:"tolerance"`
	AutoLink  bool            `json:"auto_link"`
}

// Settings бизнес-настройки синхронизации
type Settings struct {
	// Triggers статус заказа -> действие
	Triggers       map[string]TriggerAction `json:"triggers"`
	Retry          Retry                    `json:"retry"`
	Numbering      Numbering                `json:"numbering"`
	Payments       Payments                 `json:"payments"`
	Items          Items                    `json:"items"`
	Invoices       Invoices                 `json:"invoices"`
	Reconciliation Reconciliation           `json:"reconciliation"`
}

// Default настройки по умолчанию
func Default() *Settings {
	return &Settings{
		Triggers: map[string]TriggerAction{
			"processing": ActionSubmit,
			"completed":  ActionSubmit,
			"on-hold":    ActionDraft,
		},
		Retry: Retry{
			Mode:              "max_retries",
			MaxCount:          5,
			BackoffMinutes:    15,
			MaxBackoffMinutes: 24 * 60,
		},
		Numbering: NumberingAuto,
		Payments: Payments{
			Accounts: map[string]string{},
			GatewayFee: GatewayFee{
				FeeKey:      "_stripe_fee",
				NetKey:      "_stripe_net",
				CurrencyKey: "_stripe_currency",
			},
		},
		Invoices: Invoices{
			CustomFields: map[string]string{},
		},
		Reconciliation: Reconciliation{
			Tolerance: decimal.NewFromFloat(0.05),
		},
	}
}

// ShouldSync настроен ли триггер для статуса
func (s *Settings) ShouldSync(status string) bool {
	_, ok := s.Triggers[status]
	return ok
}

// AsDraft создавать ли счет черновиком для статуса
func (s *Settings) AsDraft(status string) bool {
	return s.Triggers[status] == ActionDraft
}

// SyncStatuses статусы заказов, для которых настроена синхронизация
func (s *Settings) SyncStatuses() []string {
	statuses := make([]string, 0, len(s.Triggers))
	for status := range s.Triggers {
		statuses = append(statuses, status)
	}
	return statuses
}

// DepositAccount счет зачисления для способа оплаты
func (s *Settings) DepositAccount(method string) string {
	if id, ok := s.Payments.Accounts[method]; ok && id != "" {
		return id
	}
	return s.Payments.DefaultAccountID
}
