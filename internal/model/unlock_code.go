package model

import "time"

type UnlockCode struct {
	ID               string     `db:"id" json:"id"`
	Code             string     `db:"code" json:"code"`
	IssuingDeviceID  *string    `db:"issuing_device_id" json:"issuingDeviceId,omitempty"`
	PaymentReference string     `db:"payment_reference" json:"paymentReference"`
	UsedCount        int        `db:"used_count" json:"usedCount"`
	MaxUses          int        `db:"max_uses" json:"maxUses"`
	Active           bool       `db:"active" json:"active"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	LastUsedAt       *time.Time `db:"last_used_at" json:"lastUsedAt,omitempty"`
}

// UsesRemaining never goes below zero.
func (c *UnlockCode) UsesRemaining() int {
	if c.UsedCount >= c.MaxUses {
		return 0
	}
	return c.MaxUses - c.UsedCount
}

func (c *UnlockCode) Exhausted() bool {
	return c.UsedCount >= c.MaxUses
}

func (c *UnlockCode) State() CodeState {
	switch {
	case c.Exhausted():
		return CodeStateExhausted
	case !c.Active:
		return CodeStateDeactivated
	default:
		return CodeStateActive
	}
}

type CreateUnlockCodeParams struct {
	ID               string
	Code             string
	IssuingDeviceID  *string
	PaymentReference string
	MaxUses          int
}

// RedeemOutcome is what the store reports for a single redemption attempt.
// Code is nil when Status is RedeemNotFound.
type RedeemOutcome struct {
	Status RedeemStatus
	Code   *UnlockCode
}

type CodeStats struct {
	Active      int64 `db:"active"`
	Exhausted   int64 `db:"exhausted"`
	Deactivated int64 `db:"deactivated"`
}
