package model

import "time"

type PaidDevice struct {
	DeviceID         string    `db:"device_id" json:"deviceId"`
	UnlockCode       string    `db:"unlock_code" json:"unlockCode"`
	PaymentReference string    `db:"payment_reference" json:"paymentReference"`
	Amount           int64     `db:"amount" json:"amount"`
	Currency         string    `db:"currency" json:"currency"`
	PaidAt           time.Time `db:"paid_at" json:"paidAt"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`
}

type UpsertPaidDeviceParams struct {
	DeviceID         string
	UnlockCode       string
	PaymentReference string
	Amount           int64
	Currency         string
	PaidAt           time.Time
}
