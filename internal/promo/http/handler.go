package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mykaresto/engine/internal/promo"
	"github.com/mykaresto/engine/internal/transport/respond"
	"github.com/mykaresto/engine/pkg/apperr"
)

// CodeStore looks codes up; an unknown code comes back as a promo
// rejection, not a transport error.
type CodeStore interface {
	Get(ctx context.Context, code string) (promo.Code, error)
}

// Handler exposes read-only promo validation for the checkout UI.
// Accepting a code here reserves nothing; the usage counter only moves
// when an order is created with the code.
type Handler struct {
	log   *slog.Logger
	store CodeStore
}

func NewHandler(log *slog.Logger, store CodeStore) *Handler {
	return &Handler{log: log, store: store}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/validate", h.validate)
	return r
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code     string `json:"code"`
		Subtotal int64  `json:"subtotal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, apperr.Validation("body", "invalid request body"))
		return
	}
	if req.Code == "" {
		respond.Error(w, apperr.Validation("code", "promo code is required"))
		return
	}

	c, err := h.store.Get(r.Context(), req.Code)
	if err != nil {
		h.reject(w, err)
		return
	}
	discount, err := promo.Validate(c, req.Subtotal, time.Now().UTC())
	if err != nil {
		h.reject(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"accepted": true, "discount": discount})
}

// reject answers rejected codes, unknown ones included, with 200 and a
// reason; only genuine failures become transport errors.
func (h *Handler) reject(w http.ResponseWriter, err error) {
	var e *apperr.Error
	if errors.As(err, &e) && e.Kind == apperr.KindPromoRejected {
		respond.JSON(w, http.StatusOK, map[string]any{"accepted": false, "reason": e.Reason})
		return
	}
	respond.Error(w, err)
}
