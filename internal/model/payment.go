package model

type PaymentIntent struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"-"`
	Status       PaymentStatus     `json:"status"`
	Amount       int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Created      int64             `json:"created"`
	CustomerID   string            `json:"customer,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

func (p *PaymentIntent) Succeeded() bool {
	return p.Status == PaymentStatusSucceeded
}

// WebhookEvent is a verified provider event reduced to the fields we act on.
// PaymentIntent is set for payment_intent.* events; PaymentReference is the
// PaymentIntent id the event refers to, including for charge events.
type WebhookEvent struct {
	ID               string
	Type             WebhookEventType
	PaymentReference string
	PaymentIntent    *PaymentIntent
}

// Metadata keys attached to payment intents.
const (
	MetadataApp       = "app"
	MetadataTimestamp = "timestamp"
	MetadataDeviceID  = "device_id"
)
