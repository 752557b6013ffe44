package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mykaresto/engine/internal/loyalty/application"
	"github.com/mykaresto/engine/internal/loyalty/domain"
	"github.com/mykaresto/engine/internal/transport/respond"
	"github.com/mykaresto/engine/pkg/apperr"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/rewards", h.rewards)
	r.Get("/{userID}/balance", h.balance)
	r.Get("/{userID}/profile", h.profile)
	r.Get("/{userID}/history", h.history)
	r.Post("/{userID}/redeem", h.redeem)
	return r
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	balance, err := h.service.Balance(r.Context(), userID)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"user_id": userID, "balance": balance})
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Profile(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"user_id":        p.UserID,
		"full_name":      p.FullName,
		"phone":          p.Phone,
		"loyalty_points": p.LoyaltyPoints,
		"total_orders":   p.TotalOrders,
	})
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.History(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	out := make([]map[string]any, 0, len(history))
	for _, t := range history {
		out = append(out, map[string]any{
			"id":            t.ID,
			"order_id":      t.OrderID,
			"points_change": t.PointsChange,
			"type":          t.Kind,
			"description":   t.Description,
			"created_at":    t.CreatedAt,
		})
	}
	respond.JSON(w, http.StatusOK, map[string]any{"transactions": out})
}

func (h *Handler) rewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.service.ActiveRewards(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}
	out := make([]map[string]any, 0, len(rewards))
	for _, rw := range rewards {
		out = append(out, rewardJSON(rw))
	}
	respond.JSON(w, http.StatusOK, map[string]any{"rewards": out})
}

func (h *Handler) redeem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RewardID string `json:"reward_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, apperr.Validation("body", "invalid request body"))
		return
	}
	userID := chi.URLParam(r, "userID")
	if err := h.service.Redeem(r.Context(), userID, req.RewardID); err != nil {
		respond.Error(w, err)
		return
	}
	h.log.Info("reward redeemed", "user_id", userID, "reward_id", req.RewardID)
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func rewardJSON(rw domain.Reward) map[string]any {
	return map[string]any{
		"id":              rw.ID,
		"name":            rw.Name,
		"description":     rw.Description,
		"points_required": rw.PointsRequired,
		"reward_type":     rw.RewardType,
	}
}
