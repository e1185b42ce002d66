package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fcf-tessere/unlock-server-go/internal/service"
)

type codeIssuer interface {
	Issue(ctx context.Context, params service.IssueParams) (*service.IssueResult, error)
}

type codeRedeemer interface {
	Redeem(ctx context.Context, code string) (*service.RedeemResult, error)
}

type deviceStatusReader interface {
	Status(ctx context.Context, deviceID string) (*service.DeviceStatus, error)
}

type UnlockHandler struct {
	issuer   codeIssuer
	redeemer codeRedeemer
	devices  deviceStatusReader
}

func NewUnlockHandler(issuer codeIssuer, redeemer codeRedeemer, devices deviceStatusReader) *UnlockHandler {
	return &UnlockHandler{
		issuer:   issuer,
		redeemer: redeemer,
		devices:  devices,
	}
}

type issueRequest struct {
	DeviceID         string `json:"deviceId"`
	PaymentReference string `json:"paymentReference"`
}

type redeemRequest struct {
	Code string `json:"code"`
}

// POST /api/unlock-codes
func (h *UnlockHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.issuer.Issue(r.Context(), service.IssueParams{
		DeviceID:         req.DeviceID,
		PaymentReference: req.PaymentReference,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// POST /api/unlock-codes/redeem
//
// Rejections are 200 with valid=false.
func (h *UnlockHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.redeemer.Redeem(r.Context(), req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GET /api/devices/{deviceId}/status
func (h *UnlockHandler) DeviceStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.devices.Status(r.Context(), chi.URLParam(r, "deviceId"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}
