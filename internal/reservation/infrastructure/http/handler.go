package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mykaresto/engine/internal/reservation/application"
	"github.com/mykaresto/engine/internal/reservation/domain"
	"github.com/mykaresto/engine/internal/transport/respond"
	"github.com/mykaresto/engine/pkg/apperr"
)

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("reservation-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.Get("/", h.listActive)
	r.Get("/{id}", h.get)
	r.Post("/{id}/status", h.advance)
	r.Post("/{id}/cancel", h.cancel)
	return r
}

type createReq struct {
	UserID          string                `json:"user_id,omitempty"`
	CustomerName    string                `json:"customer_name"`
	CustomerEmail   string                `json:"customer_email"`
	CustomerPhone   string                `json:"customer_phone"`
	ReservationDate string                `json:"reservation_date"` // YYYY-MM-DD
	ReservationTime string                `json:"reservation_time"` // HH:MM
	PartySize       int                   `json:"party_size"`
	SpecialRequests string                `json:"special_requests,omitempty"`
	PreorderItems   []domain.PreorderItem `json:"preorder_items,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateReservation")
	defer span.End()

	var req createReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, apperr.Validation("body", "invalid request body"))
		return
	}
	date, err := time.Parse("2006-01-02", req.ReservationDate)
	if err != nil {
		respond.Error(w, apperr.Validation("reservation_date", "reservation date must be YYYY-MM-DD"))
		return
	}

	res, err := h.service.Create(ctx, application.CreateReservationInput{
		Contact: domain.Contact{
			UserID: req.UserID,
			Name:   req.CustomerName,
			Email:  req.CustomerEmail,
			Phone:  req.CustomerPhone,
		},
		Date:            date,
		Time:            req.ReservationTime,
		PartySize:       req.PartySize,
		SpecialRequests: req.SpecialRequests,
		PreorderItems:   req.PreorderItems,
	})
	if err != nil {
		respond.Error(w, err)
		return
	}
	h.log.Info("reservation created", "reservation_id", res.ID, "date", req.ReservationDate, "party_size", res.PartySize)
	respond.JSON(w, http.StatusCreated, map[string]string{"reservation_id": res.ID})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, reservationJSON(res))
}

func (h *Handler) listActive(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListActive(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	out := make([]map[string]any, 0, len(list))
	for _, res := range list {
		out = append(out, reservationJSON(res))
	}
	respond.JSON(w, http.StatusOK, map[string]any{"reservations": out})
}

func (h *Handler) advance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, apperr.Validation("body", "invalid request body"))
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.service.Advance(r.Context(), id, domain.Status(req.Status)); err != nil {
		respond.Error(w, err)
		return
	}
	h.log.Info("reservation status advanced", "reservation_id", id, "status", req.Status)
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Cancel(r.Context(), id); err != nil {
		respond.Error(w, err)
		return
	}
	h.log.Info("reservation cancelled", "reservation_id", id)
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func reservationJSON(res domain.Reservation) map[string]any {
	return map[string]any{
		"id":               res.ID,
		"user_id":          res.UserID,
		"customer_name":    res.CustomerName,
		"customer_email":   res.CustomerEmail,
		"customer_phone":   res.CustomerPhone,
		"reservation_date": res.Date.Format("2006-01-02"),
		"reservation_time": res.Time,
		"party_size":       res.PartySize,
		"status":           res.Status,
		"special_requests": res.SpecialRequests,
		"preorder_items":   res.PreorderItems,
		"created_at":       res.CreatedAt,
		"updated_at":       res.UpdatedAt,
	}
}
