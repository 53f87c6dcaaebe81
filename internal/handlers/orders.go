package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/andesgear/pos-api/internal/domain"
	"github.com/andesgear/pos-api/internal/platform/httpx"
	"github.com/andesgear/pos-api/internal/services"
)

// OrderHandlers exposes the cross-store order endpoints.
type OrderHandlers struct {
	orders services.OrderService
}

const maxOrderBodySize = 16 * 1024

// NewOrderHandlers constructs handlers backed by the order service.
func NewOrderHandlers(orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{orders: orders}
}

// Routes wires the order endpoints onto the provided router.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Patch("/{orderID}", h.updateOrder)
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeOrdersUnavailable(ctx, w)
		return
	}

	orders, err := h.orders.ListOrders(ctx)
	if err != nil {
		h.writeOrderError(ctx, w, err)
		return
	}

	payload := make([]orderPayload, 0, len(orders))
	for _, order := range orders {
		payload = append(payload, buildOrderPayload(order))
	}
	httpx.WriteData(w, http.StatusOK, map[string]any{
		"orders": payload,
		"count":  len(payload),
	})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeOrdersUnavailable(ctx, w)
		return
	}

	order, err := h.orders.GetOrder(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeOrderError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, buildOrderPayload(order))
}

func (h *OrderHandlers) updateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeOrdersUnavailable(ctx, w)
		return
	}

	var req struct {
		Status        *string `json:"status"`
		Origin        *string `json:"origin"`
		PaymentMethod *string `json:"paymentMethod"`
		Note          *string `json:"note"`
	}
	if !decodeRequest(ctx, w, r, maxOrderBodySize, &req) {
		return
	}

	result, err := h.orders.UpdateOrder(ctx, services.UpdateOrderCommand{
		Identifier:    chi.URLParam(r, "orderID"),
		Status:        req.Status,
		Origin:        req.Origin,
		PaymentMethod: req.PaymentMethod,
		Note:          req.Note,
	})
	if err != nil {
		h.writeOrderError(ctx, w, err)
		return
	}

	payload := buildOrderPayload(result.Order)
	if len(result.Warnings) > 0 {
		httpx.WriteWarning(w, http.StatusOK, payload, result.Warnings)
		return
	}
	httpx.WriteData(w, http.StatusOK, payload)
}

func (h *OrderHandlers) writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("orders_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
	}
}

func writeOrdersUnavailable(ctx context.Context, w http.ResponseWriter) {
	httpx.WriteError(ctx, w, httpx.NewError("orders_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
}

type orderAddressPayload struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Address1  string `json:"address1,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Email     string `json:"email,omitempty"`
	RUT       string `json:"rut,omitempty"`
}

type orderPayload struct {
	DocumentID    string               `json:"documentId"`
	RemoteID      int64                `json:"remoteId,omitempty"`
	Platform      string               `json:"platform"`
	Status        string               `json:"status"`
	StatusDisplay string               `json:"statusDisplay"`
	Origin        string               `json:"origin,omitempty"`
	PaymentMethod string               `json:"paymentMethod,omitempty"`
	Total         int64                `json:"total"`
	TotalDisplay  string               `json:"totalDisplay"`
	CustomerName  string               `json:"customerName,omitempty"`
	Billing       *orderAddressPayload `json:"billing,omitempty"`
	Shipping      *orderAddressPayload `json:"shipping,omitempty"`
	Note          string               `json:"note,omitempty"`
	CreatedAt     string               `json:"createdAt,omitempty"`
	UpdatedAt     string               `json:"updatedAt,omitempty"`
}

func buildOrderPayload(order domain.OrderRecord) orderPayload {
	payload := orderPayload{
		DocumentID:    order.DocumentID,
		RemoteID:      order.RemoteID,
		Platform:      order.Platform,
		Status:        string(order.Status),
		StatusDisplay: domain.StatusToSpanish(order.Status),
		Origin:        order.Origin,
		PaymentMethod: order.PaymentMethod,
		Total:         order.Total,
		TotalDisplay:  domain.FormatCLP(order.Total),
		CustomerName:  order.CustomerName,
		Note:          order.Note,
	}
	if !order.Billing.IsZero() {
		payload.Billing = buildOrderAddressPayload(order.Billing)
	}
	if !order.Shipping.IsZero() {
		payload.Shipping = buildOrderAddressPayload(order.Shipping)
	}
	if !order.CreatedAt.IsZero() {
		payload.CreatedAt = formatTime(order.CreatedAt)
	}
	if !order.UpdatedAt.IsZero() {
		payload.UpdatedAt = formatTime(order.UpdatedAt)
	}
	return payload
}

func buildOrderAddressPayload(addr domain.Address) *orderAddressPayload {
	return &orderAddressPayload{
		FirstName: addr.FirstName,
		LastName:  addr.LastName,
		Address1:  addr.Address1,
		City:      addr.City,
		State:     addr.State,
		Phone:     addr.Phone,
		Email:     addr.Email,
		RUT:       addr.RUT,
	}
}
