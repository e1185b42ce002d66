package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fcf-tessere/unlock-server-go/internal/config"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type OpsHandler struct {
	cfg *config.Config
	db  pinger
}

func NewOpsHandler(cfg *config.Config, db pinger) *OpsHandler {
	return &OpsHandler{cfg: cfg, db: db}
}

// GET /health
func (h *OpsHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), config.DBPingTimeout)
	defer cancel()

	status, code := "ok", http.StatusOK
	if err := h.db.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("health check: database unreachable")
		status, code = "degraded", http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":      status,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"environment": h.cfg.AppEnv,
	})
}

// GET /info
func (h *OpsHandler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"app":     config.AppName,
		"version": config.AppVersion,
		"endpoints": map[string]string{
			"health":                 "GET /health",
			"createPaymentIntent":    "POST /create-payment-intent",
			"createPaymentIntentApi": "POST /api/create-payment-intent",
			"verifyPayment":          "GET /api/verify-payment?paymentIntentId=...",
			"webhook":                "POST /webhook",
			"issueUnlockCode":        "POST /api/unlock-codes",
			"redeemUnlockCode":       "POST /api/unlock-codes/redeem",
			"deviceStatus":           "GET /api/devices/{deviceId}/status",
			"metrics":                "GET /metrics",
		},
		"configuration": map[string]any{
			"stripeSecretKeySet":      h.cfg.StripeSecretKey != "",
			"stripePublishableKeySet": h.cfg.StripePublishableKey != "",
			"webhookSecretSet":        h.cfg.StripeWebhookSecret != "",
			"adminTokenSet":           h.cfg.AdminTokenHash != "",
			"maxUses":                 h.cfg.MaxUses,
			"environment":             h.cfg.AppEnv,
		},
	})
}
