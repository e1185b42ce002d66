package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/fcf-tessere/unlock-server-go/internal/database"
	"github.com/fcf-tessere/unlock-server-go/internal/model"
)

type PaidDeviceRepository interface {
	// Upsert keeps a single row per device; the latest payment wins.
	Upsert(ctx context.Context, params model.UpsertPaidDeviceParams) (*model.PaidDevice, error)
	FindByDeviceID(ctx context.Context, deviceID string) (*model.PaidDevice, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) PaidDeviceRepository
}

type paidDeviceRepo struct {
	db database.DBTX
}

func NewPaidDeviceRepository(db *sqlx.DB) PaidDeviceRepository {
	return &paidDeviceRepo{db: db}
}

func (r *paidDeviceRepo) WithTx(tx *sqlx.Tx) PaidDeviceRepository {
	return &paidDeviceRepo{db: tx}
}

func (r *paidDeviceRepo) Upsert(ctx context.Context, params model.UpsertPaidDeviceParams) (*model.PaidDevice, error) {
	var pd model.PaidDevice
	err := r.db.GetContext(ctx, &pd, `
		INSERT INTO paid_devices (device_id, unlock_code, payment_reference, amount, currency, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (device_id) DO UPDATE SET
			unlock_code = EXCLUDED.unlock_code,
			payment_reference = EXCLUDED.payment_reference,
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			paid_at = EXCLUDED.paid_at,
			updated_at = NOW()
		RETURNING *
	`, params.DeviceID, params.UnlockCode, params.PaymentReference, params.Amount, params.Currency, params.PaidAt)
	if err != nil {
		return nil, err
	}
	return &pd, nil
}

func (r *paidDeviceRepo) FindByDeviceID(ctx context.Context, deviceID string) (*model.PaidDevice, error) {
	var pd model.PaidDevice
	err := r.db.GetContext(ctx, &pd, `
		SELECT * FROM paid_devices WHERE device_id = $1
	`, deviceID)
	return HandleNotFound(&pd, err)
}
