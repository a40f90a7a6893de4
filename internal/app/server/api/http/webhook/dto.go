package webhook

import "booksync/internal/domain/sync"

type deliveryInput struct {
	Signature string `header:"X-WC-Webhook-Signature"`
	Topic     string `header:"X-WC-Webhook-Topic"`
	RawBody   []byte `contentType:"application/json"`
}

type deliveryOutput struct {
	Body DeliveryResponse
}

const (
	ResultProcessed = "processed"
	ResultIgnored   = "ignored"
)

type DeliveryResponse struct {
	Status string              `json:"status"`
	Error  string              `json:"error,omitempty"`
	Result string              `json:"result,omitempty"`
	Data   *sync.TriggerResult `json:"data,omitempty"`
}
