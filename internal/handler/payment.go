package handler

import (
	"context"
	"net/http"

	"github.com/fcf-tessere/unlock-server-go/internal/service"
)

type paymentAPI interface {
	CreateIntent(ctx context.Context, req service.CreateIntentRequest) (*service.CreateIntentResult, error)
	VerifyPayment(ctx context.Context, paymentIntentID string) (*service.VerifyPaymentResult, error)
}

type PaymentHandler struct {
	payments paymentAPI
}

func NewPaymentHandler(payments paymentAPI) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type createIntentRequest struct {
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Description string  `json:"description"`
	DeviceID    string  `json:"deviceId"`
}

// POST /create-payment-intent, POST /api/create-payment-intent
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	var req createIntentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.payments.CreateIntent(r.Context(), service.CreateIntentRequest{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		DeviceID:    req.DeviceID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GET /api/verify-payment?paymentIntentId=
func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	result, err := h.payments.VerifyPayment(r.Context(), r.URL.Query().Get("paymentIntentId"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
