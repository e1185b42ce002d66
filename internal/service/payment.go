package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fcf-tessere/unlock-server-go/internal/config"
	apperrors "github.com/fcf-tessere/unlock-server-go/internal/errors"
	"github.com/fcf-tessere/unlock-server-go/internal/metrics"
	"github.com/fcf-tessere/unlock-server-go/internal/model"
	"github.com/fcf-tessere/unlock-server-go/internal/payment"
	"github.com/fcf-tessere/unlock-server-go/internal/util"
)

const metadataAppValue = "fcf-tessere"

// CreateIntentRequest mirrors the client payload. Amount is in minor units
// and is rounded; zero values fall back to the configured defaults.
type CreateIntentRequest struct {
	Amount      float64
	Currency    string
	Description string
	DeviceID    string
}

type CreateIntentResult struct {
	ClientSecret   string              `json:"clientSecret"`
	PublishableKey string              `json:"publishableKey"`
	ID             string              `json:"id"`
	Amount         int64               `json:"amount"`
	Currency       string              `json:"currency"`
	Status         model.PaymentStatus `json:"status"`
}

type VerifyPaymentResult struct {
	ID       string              `json:"id"`
	Status   model.PaymentStatus `json:"status"`
	Amount   int64               `json:"amount"`
	Currency string              `json:"currency"`
	Created  int64               `json:"created"`
	Customer *string             `json:"customer"`
}

type PaymentService struct {
	provider payment.Provider
	cfg      *config.Config
	now      func() time.Time
}

func NewPaymentService(provider payment.Provider, cfg *config.Config) *PaymentService {
	return &PaymentService{
		provider: provider,
		cfg:      cfg,
		now:      time.Now,
	}
}

func (s *PaymentService) CreateIntent(ctx context.Context, req CreateIntentRequest) (*CreateIntentResult, error) {
	amount := s.cfg.DefaultAmount
	if req.Amount != 0 {
		if req.Amount < 0 || math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
			return nil, apperrors.InvalidInput("amount", "must be a positive number of minor units")
		}
		amount = int64(math.Round(req.Amount))
		if amount <= 0 {
			return nil, apperrors.InvalidInput("amount", "must be a positive number of minor units")
		}
	}

	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}
	if !util.IsValidCurrency(currency) {
		return nil, apperrors.InvalidInput("currency", "must be a three-letter ISO code")
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = s.cfg.PaymentDescription
	}

	metadata := map[string]string{
		model.MetadataApp:       metadataAppValue,
		model.MetadataTimestamp: s.now().UTC().Format(time.RFC3339),
	}
	if deviceID := strings.TrimSpace(req.DeviceID); deviceID != "" {
		if !util.IsValidDeviceID(deviceID) {
			return nil, apperrors.InvalidInput("deviceId", "must be 1-128 letters, digits or ._:-")
		}
		metadata[model.MetadataDeviceID] = deviceID
	}

	pi, err := s.provider.CreateIntent(ctx, payment.CreateIntentParams{
		Amount:      amount,
		Currency:    currency,
		Description: description,
		Metadata:    metadata,
	})
	if err != nil {
		metrics.IncPaymentIntent("failed")
		return nil, err
	}
	metrics.IncPaymentIntent("created")

	return &CreateIntentResult{
		ClientSecret:   pi.ClientSecret,
		PublishableKey: s.cfg.StripePublishableKey,
		ID:             pi.ID,
		Amount:         pi.Amount,
		Currency:       pi.Currency,
		Status:         pi.Status,
	}, nil
}

func (s *PaymentService) VerifyPayment(ctx context.Context, paymentIntentID string) (*VerifyPaymentResult, error) {
	paymentIntentID = strings.TrimSpace(paymentIntentID)
	if paymentIntentID == "" {
		return nil, apperrors.MissingRequired("paymentIntentId")
	}
	if !util.IsValidPaymentReference(paymentIntentID) {
		return nil, apperrors.InvalidInput("paymentIntentId", "must be a payment intent id")
	}

	pi, err := s.provider.RetrieveIntent(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}
	metrics.IncPaymentIntent("verified")

	log.Info().
		Str("paymentIntentId", pi.ID).
		Str("status", string(pi.Status)).
		Msg("payment intent verified")

	result := &VerifyPaymentResult{
		ID:       pi.ID,
		Status:   pi.Status,
		Amount:   pi.Amount,
		Currency: pi.Currency,
		Created:  pi.Created,
	}
	if pi.CustomerID != "" {
		customer := pi.CustomerID
		result.Customer = &customer
	}
	return result, nil
}
