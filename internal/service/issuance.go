package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/fcf-tessere/unlock-server-go/internal/audit"
	"github.com/fcf-tessere/unlock-server-go/internal/config"
	"github.com/fcf-tessere/unlock-server-go/internal/database"
	apperrors "github.com/fcf-tessere/unlock-server-go/internal/errors"
	"github.com/fcf-tessere/unlock-server-go/internal/metrics"
	"github.com/fcf-tessere/unlock-server-go/internal/model"
	"github.com/fcf-tessere/unlock-server-go/internal/payment"
	"github.com/fcf-tessere/unlock-server-go/internal/repository"
	"github.com/fcf-tessere/unlock-server-go/internal/util"
)

const (
	issueSourceAPI     = "api"
	issueSourceWebhook = "webhook"
)

// TxRunner is satisfied by *database.DB.
type TxRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

type IssueParams struct {
	DeviceID         string
	PaymentReference string
}

type IssueResult struct {
	Code    string `json:"code"`
	MaxUses int    `json:"maxUses"`
}

type IssuanceService struct {
	provider   payment.Provider
	codeRepo   repository.UnlockCodeRepository
	deviceRepo repository.PaidDeviceRepository
	db         TxRunner
	generator  CodeGenerator
	maxUses    int
	now        func() time.Time
}

func NewIssuanceService(
	provider payment.Provider,
	codeRepo repository.UnlockCodeRepository,
	deviceRepo repository.PaidDeviceRepository,
	db TxRunner,
	generator CodeGenerator,
	maxUses int,
) *IssuanceService {
	return &IssuanceService{
		provider:   provider,
		codeRepo:   codeRepo,
		deviceRepo: deviceRepo,
		db:         db,
		generator:  generator,
		maxUses:    maxUses,
		now:        time.Now,
	}
}

// Issue mints the code for a confirmed payment. A payment that already has a
// code gets that code back.
func (s *IssuanceService) Issue(ctx context.Context, params IssueParams) (*IssueResult, error) {
	deviceID := strings.TrimSpace(params.DeviceID)
	paymentRef := strings.TrimSpace(params.PaymentReference)

	if deviceID == "" {
		return nil, apperrors.MissingRequired("deviceId")
	}
	if paymentRef == "" {
		return nil, apperrors.MissingRequired("paymentReference")
	}
	if !util.IsValidDeviceID(deviceID) {
		return nil, apperrors.InvalidInput("deviceId", "must be 1-128 letters, digits or ._:-")
	}
	if !util.IsValidPaymentReference(paymentRef) {
		return nil, apperrors.InvalidInput("paymentReference", "must be a payment intent id")
	}

	pi, err := s.provider.RetrieveIntent(ctx, paymentRef)
	if err != nil {
		return nil, err
	}

	return s.issueForIntent(ctx, deviceID, pi, issueSourceAPI)
}

// IssueFromEvent issues a code for a verified payment_intent.succeeded event.
// It returns nil without error when the intent carries no device id.
func (s *IssuanceService) IssueFromEvent(ctx context.Context, event *model.WebhookEvent) (*IssueResult, error) {
	if event.PaymentIntent == nil {
		return nil, apperrors.ValidationError("Webhook event has no payment intent")
	}

	deviceID := strings.TrimSpace(event.PaymentIntent.Metadata[model.MetadataDeviceID])
	if deviceID == "" {
		log.Info().
			Str("paymentIntentId", event.PaymentIntent.ID).
			Msg("payment succeeded without device id, skipping issuance")
		return nil, nil
	}
	if !util.IsValidDeviceID(deviceID) {
		return nil, apperrors.InvalidInput("deviceId", "must be 1-128 letters, digits or ._:-")
	}

	return s.issueForIntent(ctx, deviceID, event.PaymentIntent, issueSourceWebhook)
}

func (s *IssuanceService) issueForIntent(
	ctx context.Context,
	deviceID string,
	pi *model.PaymentIntent,
	source string,
) (*IssueResult, error) {
	if !pi.Succeeded() {
		return nil, apperrors.PaymentNotConfirmed(string(pi.Status))
	}

	existing, err := s.codeRepo.FindByPaymentReference(ctx, pi.ID)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	if existing != nil {
		return s.reuse(ctx, deviceID, existing, pi)
	}

	for attempt := 1; attempt <= config.CodeGenerateAttempts; attempt++ {
		candidate := s.generator.Generate()

		taken, err := s.codeRepo.FindByCode(ctx, candidate)
		if err != nil {
			return nil, apperrors.StoreUnavailable(err)
		}
		if taken != nil {
			log.Warn().Int("attempt", attempt).Msg("generated unlock code already taken")
			continue
		}

		created, err := s.create(ctx, candidate, deviceID, pi)
		switch {
		case err == nil:
			metrics.IncCodeIssued(source)
			audit.Log(ctx, audit.Event{
				Type:             audit.EventCodeIssue,
				Code:             util.MaskCode(created.Code),
				DeviceID:         deviceID,
				PaymentReference: pi.ID,
				Details:          map[string]interface{}{"max_uses": created.MaxUses, "source": source},
			})
			return &IssueResult{Code: created.Code, MaxUses: created.MaxUses}, nil

		case errors.Is(err, repository.ErrDuplicateCode):
			log.Warn().Int("attempt", attempt).Msg("unlock code collided on insert")
			continue

		case errors.Is(err, repository.ErrDuplicatePayment):
			// A concurrent issuance for the same payment committed first.
			winner, findErr := s.codeRepo.FindByPaymentReference(ctx, pi.ID)
			if findErr != nil || winner == nil {
				return nil, apperrors.StoreUnavailable(fmt.Errorf("reload issued code: %w", errors.Join(err, findErr)))
			}
			return s.reuse(ctx, deviceID, winner, pi)

		default:
			return nil, apperrors.StoreUnavailable(err)
		}
	}

	log.Error().
		Int("attempts", config.CodeGenerateAttempts).
		Str("paymentIntentId", pi.ID).
		Msg("could not generate unique unlock code")
	return nil, apperrors.ExhaustedRetries(config.CodeGenerateAttempts)
}

// create inserts the code and records the device in one transaction. Each
// attempt gets its own transaction because a unique violation aborts it.
func (s *IssuanceService) create(
	ctx context.Context,
	code string,
	deviceID string,
	pi *model.PaymentIntent,
) (*model.UnlockCode, error) {
	var created *model.UnlockCode
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		uc, err := s.codeRepo.WithTx(tx).Create(ctx, model.CreateUnlockCodeParams{
			Code:             code,
			IssuingDeviceID:  &deviceID,
			PaymentReference: pi.ID,
			MaxUses:          s.maxUses,
		})
		if err != nil {
			return err
		}

		if _, err := s.deviceRepo.WithTx(tx).Upsert(ctx, s.deviceParams(deviceID, uc.Code, pi)); err != nil {
			return fmt.Errorf("record paid device: %w", err)
		}

		created = uc
		return nil
	})
	return created, err
}

func (s *IssuanceService) reuse(
	ctx context.Context,
	deviceID string,
	existing *model.UnlockCode,
	pi *model.PaymentIntent,
) (*IssueResult, error) {
	if _, err := s.deviceRepo.Upsert(ctx, s.deviceParams(deviceID, existing.Code, pi)); err != nil {
		return nil, apperrors.StoreUnavailable(fmt.Errorf("record paid device: %w", err))
	}

	log.Info().
		Str("code", util.MaskCode(existing.Code)).
		Str("paymentIntentId", pi.ID).
		Msg("payment already has an unlock code")

	return &IssueResult{Code: existing.Code, MaxUses: existing.MaxUses}, nil
}

func (s *IssuanceService) deviceParams(deviceID, code string, pi *model.PaymentIntent) model.UpsertPaidDeviceParams {
	return model.UpsertPaidDeviceParams{
		DeviceID:         deviceID,
		UnlockCode:       code,
		PaymentReference: pi.ID,
		Amount:           pi.Amount,
		Currency:         pi.Currency,
		PaidAt:           s.now(),
	}
}

// HandleRefund deactivates the codes issued for a refunded payment.
func (s *IssuanceService) HandleRefund(ctx context.Context, paymentReference string) (int64, error) {
	if paymentReference == "" {
		return 0, apperrors.MissingRequired("paymentReference")
	}

	count, err := s.codeRepo.DeactivateByPaymentReference(ctx, paymentReference)
	if err != nil {
		return 0, apperrors.StoreUnavailable(err)
	}

	metrics.AddCodesDeactivated("refund", count)
	audit.Log(ctx, audit.Event{
		Type:             audit.EventPaymentRefund,
		PaymentReference: paymentReference,
		Details:          map[string]interface{}{"deactivated": count},
	})

	return count, nil
}
