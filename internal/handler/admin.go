package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fcf-tessere/unlock-server-go/internal/model"
)

type codeAdmin interface {
	Lookup(ctx context.Context, code string) (*model.UnlockCode, error)
	Deactivate(ctx context.Context, code string) (*model.UnlockCode, error)
}

type AdminHandler struct {
	codes          codeAdmin
	authMiddleware func(http.Handler) http.Handler
}

func NewAdminHandler(codes codeAdmin, authMiddleware func(http.Handler) http.Handler) *AdminHandler {
	return &AdminHandler{
		codes:          codes,
		authMiddleware: authMiddleware,
	}
}

func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(h.authMiddleware)
		r.Get("/unlock-codes/{code}", h.GetUnlockCode)
		r.Post("/unlock-codes/{code}/deactivate", h.DeactivateUnlockCode)
	})

	return r
}

// GET /admin/unlock-codes/{code}
func (h *AdminHandler) GetUnlockCode(w http.ResponseWriter, r *http.Request) {
	uc, err := h.codes.Lookup(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, formatUnlockCode(uc))
}

// POST /admin/unlock-codes/{code}/deactivate
func (h *AdminHandler) DeactivateUnlockCode(w http.ResponseWriter, r *http.Request) {
	uc, err := h.codes.Deactivate(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, formatUnlockCode(uc))
}
