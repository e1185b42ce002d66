package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fcf-tessere/unlock-server-go/internal/audit"
	apperrors "github.com/fcf-tessere/unlock-server-go/internal/errors"
	"github.com/fcf-tessere/unlock-server-go/internal/metrics"
	"github.com/fcf-tessere/unlock-server-go/internal/model"
	"github.com/fcf-tessere/unlock-server-go/internal/repository"
	"github.com/fcf-tessere/unlock-server-go/internal/util"
)

const msgUsageLimitReached = "Unlock code usage limit reached"

// RedeemResult is returned for accepted and rejected redemptions alike.
// Reason is empty when Valid is true.
type RedeemResult struct {
	Valid         bool                `json:"valid"`
	UsesRemaining int                 `json:"usesRemaining"`
	UsedCount     int                 `json:"usedCount"`
	Message       string              `json:"message"`
	Reason        apperrors.ErrorCode `json:"reason,omitempty"`
}

type RedemptionService struct {
	codeRepo repository.UnlockCodeRepository
	now      func() time.Time
}

func NewRedemptionService(codeRepo repository.UnlockCodeRepository) *RedemptionService {
	return &RedemptionService{
		codeRepo: codeRepo,
		now:      time.Now,
	}
}

// Redeem consumes one use of code. Rejections are reported in the result;
// the error is reserved for input and store failures.
func (s *RedemptionService) Redeem(ctx context.Context, code string) (*RedeemResult, error) {
	normalizedCode := NormalizeCode(code)
	if normalizedCode == "" {
		return nil, apperrors.MissingRequired("code")
	}

	outcome, err := s.codeRepo.Redeem(ctx, normalizedCode, s.now())
	if err != nil {
		log.Error().Err(err).Str("code", util.MaskCode(normalizedCode)).Msg("redeem: store error")
		return nil, apperrors.StoreUnavailable(err)
	}

	metrics.IncRedemption(string(outcome.Status))
	result := redeemResultFor(outcome)

	event := audit.Event{
		Type:    audit.EventCodeRedeem,
		Code:    util.MaskCode(normalizedCode),
		Details: map[string]interface{}{"uses_remaining": result.UsesRemaining},
	}
	if !result.Valid {
		event.Type = audit.EventCodeReject
		event.Details["reason"] = string(result.Reason)
	}
	audit.Log(ctx, event)

	return result, nil
}

func redeemResultFor(outcome model.RedeemOutcome) *RedeemResult {
	result := &RedeemResult{}
	if outcome.Code != nil {
		result.UsedCount = outcome.Code.UsedCount
	}

	switch outcome.Status {
	case model.RedeemAccepted:
		result.Valid = true
		result.UsesRemaining = outcome.Code.UsesRemaining()
		result.Message = fmt.Sprintf("Unlock code accepted, %d uses remaining", result.UsesRemaining)
	case model.RedeemNotFound:
		result.Reason = apperrors.ErrCodeInvalidCode
		result.Message = apperrors.InvalidCode().Message
	case model.RedeemExhausted:
		result.Reason = apperrors.ErrCodeCodeDeactivated
		result.Message = msgUsageLimitReached
	case model.RedeemDeactivated:
		result.Reason = apperrors.ErrCodeCodeDeactivated
		result.Message = apperrors.CodeDeactivated().Message
	case model.RedeemLimitReached:
		result.Reason = apperrors.ErrCodeLimitReached
		result.Message = apperrors.LimitReached().Message
	}

	return result
}

// Lookup returns the stored code for administrative inspection.
func (s *RedemptionService) Lookup(ctx context.Context, code string) (*model.UnlockCode, error) {
	normalizedCode := NormalizeCode(code)
	if normalizedCode == "" {
		return nil, apperrors.MissingRequired("code")
	}

	uc, err := s.codeRepo.FindByCode(ctx, normalizedCode)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	if uc == nil {
		return nil, apperrors.NotFound("Unlock code")
	}
	return uc, nil
}

// Deactivate disables code permanently. Deactivating an inactive code
// returns it unchanged.
func (s *RedemptionService) Deactivate(ctx context.Context, code string) (*model.UnlockCode, error) {
	uc, err := s.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	if !uc.Active {
		return uc, nil
	}

	found, err := s.codeRepo.Deactivate(ctx, uc.Code)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	if !found {
		return nil, apperrors.NotFound("Unlock code")
	}
	uc.Active = false

	metrics.AddCodesDeactivated("admin", 1)
	audit.Log(ctx, audit.Event{
		Type:             audit.EventCodeDeactivate,
		Code:             util.MaskCode(uc.Code),
		PaymentReference: uc.PaymentReference,
		Details:          map[string]interface{}{"used_count": uc.UsedCount},
	})

	return uc, nil
}
