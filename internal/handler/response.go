package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	apperrors "github.com/fcf-tessere/unlock-server-go/internal/errors"
	"github.com/fcf-tessere/unlock-server-go/internal/httputil"
	"github.com/fcf-tessere/unlock-server-go/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

// decodeJSON treats an empty body as an empty object.
func decodeJSON(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return apperrors.InvalidInput("body", "request body too large")
	}
	return apperrors.InvalidInput("body", "malformed JSON").WithCause(err)
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func formatUnlockCode(uc *model.UnlockCode) map[string]any {
	return map[string]any{
		"code":             uc.Code,
		"state":            uc.State(),
		"active":           uc.Active,
		"usedCount":        uc.UsedCount,
		"maxUses":          uc.MaxUses,
		"usesRemaining":    uc.UsesRemaining(),
		"paymentReference": uc.PaymentReference,
		"issuingDeviceId":  uc.IssuingDeviceID,
		"createdAt":        uc.CreatedAt.Format(time.RFC3339),
		"lastUsedAt":       formatTime(uc.LastUsedAt),
	}
}
