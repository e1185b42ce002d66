package model

type CodeState string

const (
	CodeStateActive      CodeState = "active"
	CodeStateExhausted   CodeState = "exhausted"
	CodeStateDeactivated CodeState = "deactivated"
)

// RedeemStatus is the store-level result of one redemption attempt.
// RedeemLimitReached means the row was found active at its cap and was
// deactivated by that attempt.
type RedeemStatus string

const (
	RedeemAccepted     RedeemStatus = "accepted"
	RedeemNotFound     RedeemStatus = "not_found"
	RedeemDeactivated  RedeemStatus = "deactivated"
	RedeemExhausted    RedeemStatus = "exhausted"
	RedeemLimitReached RedeemStatus = "limit_reached"
)

// PaymentStatus mirrors the provider's PaymentIntent status values.
type PaymentStatus string

const (
	PaymentStatusRequiresPaymentMethod PaymentStatus = "requires_payment_method"
	PaymentStatusRequiresConfirmation  PaymentStatus = "requires_confirmation"
	PaymentStatusRequiresAction        PaymentStatus = "requires_action"
	PaymentStatusProcessing            PaymentStatus = "processing"
	PaymentStatusRequiresCapture       PaymentStatus = "requires_capture"
	PaymentStatusCanceled              PaymentStatus = "canceled"
	PaymentStatusSucceeded             PaymentStatus = "succeeded"
)

type WebhookEventType string

const (
	EventPaymentSucceeded WebhookEventType = "payment_intent.succeeded"
	EventPaymentFailed    WebhookEventType = "payment_intent.payment_failed"
	EventChargeRefunded   WebhookEventType = "charge.refunded"
)
