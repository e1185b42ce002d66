package middleware

import (
	"net/http"

	apperrors "github.com/fcf-tessere/unlock-server-go/internal/errors"
	"github.com/fcf-tessere/unlock-server-go/internal/httputil"
)

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

func writeErrorWithStatus(w http.ResponseWriter, status int, err *apperrors.AppError) {
	httputil.WriteErrorWithStatus(w, status, err)
}
