package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/fcf-tessere/unlock-server-go/internal/database"
	"github.com/fcf-tessere/unlock-server-go/internal/model"
)

// redeemAttempts bounds how often a missed conditional update is retried when
// the row reads back as still redeemable.
const redeemAttempts = 3

type UnlockCodeRepository interface {
	Create(ctx context.Context, params model.CreateUnlockCodeParams) (*model.UnlockCode, error)
	FindByCode(ctx context.Context, code string) (*model.UnlockCode, error)
	FindByPaymentReference(ctx context.Context, paymentReference string) (*model.UnlockCode, error)
	// Redeem consumes one use of code with a single conditional update.
	Redeem(ctx context.Context, code string, now time.Time) (model.RedeemOutcome, error)
	// Deactivate reports whether the code exists. Calling it again is a no-op.
	Deactivate(ctx context.Context, code string) (bool, error)
	DeactivateByPaymentReference(ctx context.Context, paymentReference string) (int64, error)
	Stats(ctx context.Context) (model.CodeStats, error)
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) UnlockCodeRepository
}

type unlockCodeRepo struct {
	db database.DBTX
}

func NewUnlockCodeRepository(db *sqlx.DB) UnlockCodeRepository {
	return &unlockCodeRepo{db: db}
}

func (r *unlockCodeRepo) WithTx(tx *sqlx.Tx) UnlockCodeRepository {
	return &unlockCodeRepo{db: tx}
}

func (r *unlockCodeRepo) Create(ctx context.Context, params model.CreateUnlockCodeParams) (*model.UnlockCode, error) {
	id := params.ID
	if id == "" {
		id = uuid.NewString()
	}

	var uc model.UnlockCode
	err := r.db.GetContext(ctx, &uc, `
		INSERT INTO unlock_codes (id, code, issuing_device_id, payment_reference, used_count, max_uses, active)
		VALUES ($1, $2, $3, $4, 0, $5, TRUE)
		RETURNING *
	`, id, params.Code, params.IssuingDeviceID, params.PaymentReference, params.MaxUses)
	if constraint, ok := uniqueViolation(err); ok {
		if constraint == database.ConstraintPaymentReference {
			return nil, ErrDuplicatePayment
		}
		return nil, fmt.Errorf("%w: %s", ErrDuplicateCode, params.Code)
	}
	if err != nil {
		return nil, err
	}
	return &uc, nil
}

func (r *unlockCodeRepo) FindByCode(ctx context.Context, code string) (*model.UnlockCode, error) {
	var uc model.UnlockCode
	err := r.db.GetContext(ctx, &uc, `
		SELECT * FROM unlock_codes WHERE code = $1
	`, code)
	return HandleNotFound(&uc, err)
}

func (r *unlockCodeRepo) FindByPaymentReference(ctx context.Context, paymentReference string) (*model.UnlockCode, error) {
	var uc model.UnlockCode
	err := r.db.GetContext(ctx, &uc, `
		SELECT * FROM unlock_codes WHERE payment_reference = $1
	`, paymentReference)
	return HandleNotFound(&uc, err)
}

func (r *unlockCodeRepo) Redeem(ctx context.Context, code string, now time.Time) (model.RedeemOutcome, error) {
	for attempt := 0; attempt < redeemAttempts; attempt++ {
		// SET expressions see the pre-update row, so active flips to false in
		// the same write that reaches max_uses.
		var uc model.UnlockCode
		err := r.db.GetContext(ctx, &uc, `
			UPDATE unlock_codes SET
				used_count = used_count + 1,
				active = used_count + 1 < max_uses,
				last_used_at = $2
			WHERE code = $1 AND active AND used_count < max_uses
			RETURNING *
		`, code, now)
		if err == nil {
			return model.RedeemOutcome{Status: model.RedeemAccepted, Code: &uc}, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return model.RedeemOutcome{}, fmt.Errorf("conditional redeem: %w", err)
		}

		current, err := r.FindByCode(ctx, code)
		if err != nil {
			return model.RedeemOutcome{}, fmt.Errorf("classify redeem miss: %w", err)
		}

		switch {
		case current == nil:
			return model.RedeemOutcome{Status: model.RedeemNotFound}, nil
		case !current.Active && current.Exhausted():
			return model.RedeemOutcome{Status: model.RedeemExhausted, Code: current}, nil
		case !current.Active:
			return model.RedeemOutcome{Status: model.RedeemDeactivated, Code: current}, nil
		case current.Exhausted():
			if _, err := r.Deactivate(ctx, code); err != nil {
				return model.RedeemOutcome{}, fmt.Errorf("deactivate exhausted code: %w", err)
			}
			current.Active = false
			return model.RedeemOutcome{Status: model.RedeemLimitReached, Code: current}, nil
		}
	}

	return model.RedeemOutcome{}, ErrRedeemContention
}

func (r *unlockCodeRepo) Deactivate(ctx context.Context, code string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE unlock_codes SET active = FALSE WHERE code = $1
	`, code)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *unlockCodeRepo) DeactivateByPaymentReference(ctx context.Context, paymentReference string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE unlock_codes SET active = FALSE
		WHERE payment_reference = $1 AND active
	`, paymentReference)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *unlockCodeRepo) Stats(ctx context.Context) (model.CodeStats, error) {
	var stats model.CodeStats
	err := r.db.GetContext(ctx, &stats, `
		SELECT
			COUNT(*) FILTER (WHERE active) AS active,
			COUNT(*) FILTER (WHERE used_count >= max_uses) AS exhausted,
			COUNT(*) FILTER (WHERE NOT active AND used_count < max_uses) AS deactivated
		FROM unlock_codes
	`)
	return stats, err
}
