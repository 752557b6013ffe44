package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/mykaresto/engine/internal/catalog"
	"github.com/mykaresto/engine/internal/order/application"
	"github.com/mykaresto/engine/internal/order/domain"
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
		tracer:  otel.Tracer("order-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.Get("/", h.listActive)
	r.Get("/{id}", h.get)
	r.Post("/{id}/payment", h.confirmPayment)
	r.Post("/{id}/status", h.advance)
	r.Post("/{id}/cancel", h.cancel)
	return r
}

type itemReq struct {
	Product         catalog.Product          `json:"product"`
	Quantity        int                      `json:"quantity"`
	SelectedOptions []catalog.SelectedOption `json:"selected_options,omitempty"`
}

type createReq struct {
	UserID        string    `json:"user_id,omitempty"`
	OrderType     string    `json:"order_type"`
	TableNumber   string    `json:"table_number,omitempty"`
	PaymentMethod string    `json:"payment_method"`
	PromoCode     string    `json:"promo_code,omitempty"`
	Items         []itemReq `json:"items"`
	Customer      struct {
		Name         string `json:"name,omitempty"`
		Email        string `json:"email,omitempty"`
		Phone        string `json:"phone,omitempty"`
		Address      string `json:"address,omitempty"`
		Instructions string `json:"instructions,omitempty"`
	} `json:"customer_info"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req createReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, apperr.Validation("body", "invalid request body"))
		return
	}

	in := application.CreateOrderInput{
		UserID:        req.UserID,
		Type:          domain.OrderType(req.OrderType),
		TableNumber:   req.TableNumber,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
		PromoCode:     req.PromoCode,
		Customer: domain.CustomerInfo{
			Name:         req.Customer.Name,
			Email:        req.Customer.Email,
			Phone:        req.Customer.Phone,
			Address:      req.Customer.Address,
			Instructions: req.Customer.Instructions,
		},
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, domain.ItemInput{
			Product:         it.Product,
			Quantity:        it.Quantity,
			SelectedOptions: it.SelectedOptions,
		})
	}

	o, err := h.service.Create(ctx, in)
	if err != nil {
		respond.Error(w, err)
		return
	}
	h.log.Info("order created", "order_id", o.ID, "type", o.Type, "total", o.Total)
	respond.JSON(w, http.StatusCreated, map[string]any{
		"order_id": o.ID,
		"subtotal": o.Subtotal,
		"discount": o.Discount,
		"total":    o.Total,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, orderJSON(o))
}

func (h *Handler) listActive(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListActive(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	out := make([]map[string]any, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderJSON(o))
	}
	respond.JSON(w, http.StatusOK, map[string]any{"orders": out})
}

func (h *Handler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ConfirmPayment")
	defer span.End()

	var req struct {
		PaymentRef string `json:"payment_ref"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, apperr.Validation("body", "invalid request body"))
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.service.ConfirmPayment(ctx, id, req.PaymentRef); err != nil {
		respond.Error(w, err)
		return
	}
	h.log.Info("payment confirmed", "order_id", id)
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
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
	h.log.Info("order status advanced", "order_id", id, "status", req.Status)
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Cancel(r.Context(), id); err != nil {
		respond.Error(w, err)
		return
	}
	h.log.Info("order cancelled", "order_id", id)
	respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func orderJSON(o domain.Order) map[string]any {
	items := make([]map[string]any, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, map[string]any{
			"product_id":       it.ProductID,
			"product_name":     it.ProductName,
			"quantity":         it.Quantity,
			"unit_price":       it.UnitPrice,
			"selected_options": it.SelectedOptions,
			"subtotal":         it.Subtotal,
		})
	}
	return map[string]any{
		"id":                   o.ID,
		"user_id":              o.UserID,
		"order_type":           o.Type,
		"table_number":         o.TableNumber,
		"status":               o.Status,
		"subtotal":             o.Subtotal,
		"discount":             o.Discount,
		"total":                o.Total,
		"payment_status":       o.PaymentStatus,
		"payment_method":       o.PaymentMethod,
		"promo_code":           o.PromoCode,
		"customer_name":        o.CustomerName,
		"delivery_address":     o.DeliveryAddress,
		"special_instructions": o.SpecialInstructions,
		"items":                items,
		"created_at":           o.CreatedAt,
		"updated_at":           o.UpdatedAt,
	}
}
