package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrDuplicateCode is returned when an insert collides with an existing code.
	ErrDuplicateCode = errors.New("unlock code already exists")
	// ErrDuplicatePayment is returned when a payment reference already has a code.
	ErrDuplicatePayment = errors.New("payment reference already has an unlock code")
	// ErrRedeemContention is returned when the conditional update keeps missing
	// a row that reads back as redeemable.
	ErrRedeemContention = errors.New("redeem contention")
)

const pqUniqueViolation = pq.ErrorCode("23505")

// HandleNotFound processes a database query result, converting sql.ErrNoRows
// to a nil result without error. This is a common pattern for Find* operations
// where a missing row is not an error condition.
//
// Usage:
//
//	var item model.Item
//	err := r.db.GetContext(ctx, &item, query, args...)
//	return HandleNotFound(&item, err)
func HandleNotFound[T any](result *T, err error) (*T, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// uniqueViolation reports the constraint name when err is a Postgres unique violation.
func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}
