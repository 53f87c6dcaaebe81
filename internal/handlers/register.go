package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/andesgear/pos-api/internal/domain"
	"github.com/andesgear/pos-api/internal/platform/httpx"
	"github.com/andesgear/pos-api/internal/services"
)

// RegisterHandlers exposes the register session and cart endpoints.
type RegisterHandlers struct {
	register services.RegisterService
}

const maxRegisterBodySize = 16 * 1024

// NewRegisterHandlers constructs handlers backed by the register service.
func NewRegisterHandlers(register services.RegisterService) *RegisterHandlers {
	return &RegisterHandlers{register: register}
}

// Routes wires the register endpoints onto the provided router.
func (h *RegisterHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/sessions", h.startSession)
	r.Get("/sessions/{sessionID}", h.getSession)
	r.Delete("/sessions/{sessionID}", h.abandonSession)
	r.Post("/sessions/{sessionID}/lines", h.addProduct)
	r.Patch("/sessions/{sessionID}/lines/{productID}", h.setQuantity)
	r.Delete("/sessions/{sessionID}/lines/{productID}", h.removeLine)
	r.Delete("/sessions/{sessionID}/lines", h.clearCart)
	r.Post("/sessions/{sessionID}/discount", h.applyDiscount)
	r.Delete("/sessions/{sessionID}/discount", h.removeDiscount)
	r.Put("/sessions/{sessionID}/tax", h.setTax)
}

func (h *RegisterHandlers) startSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.register == nil {
		writeRegisterUnavailable(ctx, w)
		return
	}

	var req struct {
		OpeningFloat int64 `json:"openingFloat"`
	}
	body, err := readLimitedBody(r, maxRegisterBodySize)
	switch {
	case errors.Is(err, errEmptyBody):
		// Opening the drawer with no declared float is routine.
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		return
	case err != nil:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	default:
		if err := decodeStrict(body, &req); err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
			return
		}
	}

	session, err := h.register.StartSession(ctx, services.StartSessionCommand{OpeningFloat: req.OpeningFloat})
	if err != nil {
		h.writeRegisterError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusCreated, buildSessionPayload(services.CartView{Session: session}))
}

func (h *RegisterHandlers) abandonSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.register == nil {
		writeRegisterUnavailable(ctx, w)
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	if err := h.register.AbandonSession(ctx, sessionID); err != nil {
		h.writeRegisterError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, map[string]any{"id": sessionID, "abandoned": true})
}

func (h *RegisterHandlers) getSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.register == nil {
		writeRegisterUnavailable(ctx, w)
		return
	}

	view, err := h.register.GetSession(ctx, chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeRegisterError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, buildSessionPayload(view))
}

func (h *RegisterHandlers) addProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.register == nil {
		writeRegisterUnavailable(ctx, w)
		return
	}

	var req struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if !decodeRequest(ctx, w, r, maxRegisterBodySize, &req) {
		return
	}

	view, err := h.register.AddProduct(ctx, services.AddProductCommand{
		SessionID: chi.URLParam(r, "sessionID"),
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.writeRegisterError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, buildSessionPayload(view))
}

func (h *RegisterHandlers) setQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.register == nil {
		writeRegisterUnavailable(ctx, w)
		return
	}

	var req struct {
		Quantity *int `json:"quantity"`
	}
	if !decodeRequest(ctx, w, r, maxRegisterBodySize, &req) {
		return
	}
	if req.Quantity == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "quantity is required", http.StatusBadRequest))
		return
	}

	view, err := h.register.SetQuantity(ctx, services.SetQuantityCommand{
		SessionID: chi.URLParam(r, "sessionID"),
		ProductID: chi.URLParam(r, "productID"),
		Quantity:  *req.Quantity,
	})
	if err != nil {
		h.writeRegisterError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, buildSessionPayload(view))
}

func (h *RegisterHandlers) removeLine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.register == nil {
		writeRegisterUnavailable(ctx, w)
		return
	}

	view, err := h.register.RemoveLine(ctx, chi.URLParam(r, "sessionID"), chi.URLParam(r, "productID"))
	if err != nil {
		h.writeRegisterError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, buildSessionPayload(view))
}

func (h *RegisterHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.register == nil {
		writeRegisterUnavailable(ctx, w)
		return
	}

	view, err := h.register.ClearCart(ctx, chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeRegisterError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, buildSessionPayload(view))
}

func (h *RegisterHandlers) applyDiscount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.register == nil {
		writeRegisterUnavailable(ctx, w)
		return
	}

	var req struct {
		Type  string  `json:"type"`
		Value float64 `json:"value"`
		Code  string  `json:"code"`
	}
	if !decodeRequest(ctx, w, r, maxRegisterBodySize, &req) {
		return
	}

	view, err := h.register.ApplyDiscount(ctx, services.ApplyDiscountCommand{
		SessionID: chi.URLParam(r, "sessionID"),
		Type:      domain.DiscountType(strings.ToLower(strings.TrimSpace(req.Type))),
		Value:     req.Value,
		Code:      req.Code,
	})
	if err != nil {
		h.writeRegisterError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, buildSessionPayload(view))
}

func (h *RegisterHandlers) removeDiscount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.register == nil {
		writeRegisterUnavailable(ctx, w)
		return
	}

	view, err := h.register.RemoveDiscount(ctx, chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeRegisterError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, buildSessionPayload(view))
}

func (h *RegisterHandlers) setTax(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.register == nil {
		writeRegisterUnavailable(ctx, w)
		return
	}

	var req struct {
		Rate *float64 `json:"rate"`
	}
	if !decodeRequest(ctx, w, r, maxRegisterBodySize, &req) {
		return
	}
	if req.Rate == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "rate is required", http.StatusBadRequest))
		return
	}

	view, err := h.register.SetTax(ctx, services.SetTaxCommand{
		SessionID: chi.URLParam(r, "sessionID"),
		Rate:      *req.Rate,
	})
	if err != nil {
		h.writeRegisterError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, buildSessionPayload(view))
}

func (h *RegisterHandlers) writeRegisterError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrRegisterOutOfStock):
		httpx.WriteError(ctx, w, httpx.NewError("out_of_stock", "product is out of stock", http.StatusConflict))
	case errors.Is(err, services.ErrRegisterInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrRegisterNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("session_not_found", "session or cart line not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("register_unavailable", "register service is unavailable", http.StatusServiceUnavailable))
	}
}

func writeRegisterUnavailable(ctx context.Context, w http.ResponseWriter) {
	httpx.WriteError(ctx, w, httpx.NewError("register_unavailable", "register service is unavailable", http.StatusServiceUnavailable))
}

func decodeRequest(ctx context.Context, w http.ResponseWriter, r *http.Request, limit int64, target any) bool {
	body, err := readLimitedBody(r, limit)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return false
	}
	if err := decodeStrict(body, target); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return false
	}
	return true
}

type linePayload struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	SKU       string `json:"sku,omitempty"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
	Subtotal  int64  `json:"subtotal"`
}

type discountPayload struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
	Code  string  `json:"code,omitempty"`
}

type totalsPayload struct {
	Subtotal  int64  `json:"subtotal"`
	Discount  int64  `json:"discount"`
	Tax       int64  `json:"tax"`
	Total     int64  `json:"total"`
	Formatted string `json:"formattedTotal"`
}

type sessionPayload struct {
	ID           string           `json:"id"`
	State        string           `json:"state"`
	OpeningFloat int64            `json:"openingFloat,omitempty"`
	ItemsCount   int              `json:"itemsCount"`
	Lines        []linePayload    `json:"lines"`
	Discount     *discountPayload `json:"discount,omitempty"`
	TaxRate      float64          `json:"taxRate,omitempty"`
	Totals       totalsPayload    `json:"totals"`
	CreatedAt    string           `json:"createdAt,omitempty"`
	UpdatedAt    string           `json:"updatedAt,omitempty"`
}

func buildSessionPayload(view services.CartView) sessionPayload {
	session := view.Session
	payload := sessionPayload{
		ID:           session.ID,
		State:        string(session.State),
		OpeningFloat: session.OpeningFloat,
		ItemsCount:   session.Cart.ItemCount(),
		Lines:        make([]linePayload, 0, len(session.Cart.Lines)),
		Totals:       buildTotalsPayload(view.Totals),
	}
	for _, line := range session.Cart.Lines {
		payload.Lines = append(payload.Lines, linePayload{
			ProductID: line.Product.ID,
			Name:      line.Product.Name,
			SKU:       line.Product.SKU,
			UnitPrice: line.Product.Price,
			Quantity:  line.Quantity,
			Subtotal:  line.Subtotal(),
		})
	}
	if session.Cart.Discount != nil {
		payload.Discount = &discountPayload{
			Type:  string(session.Cart.Discount.Type),
			Value: session.Cart.Discount.Value,
			Code:  session.Cart.Discount.Code,
		}
	}
	if session.Cart.Tax != nil {
		payload.TaxRate = session.Cart.Tax.Rate
	}
	if !session.CreatedAt.IsZero() {
		payload.CreatedAt = formatTime(session.CreatedAt)
	}
	if !session.UpdatedAt.IsZero() {
		payload.UpdatedAt = formatTime(session.UpdatedAt)
	}
	return payload
}

func buildTotalsPayload(totals domain.Totals) totalsPayload {
	return totalsPayload{
		Subtotal:  totals.Subtotal,
		Discount:  totals.Discount,
		Tax:       totals.Tax,
		Total:     totals.Total,
		Formatted: domain.FormatCLP(totals.Total),
	}
}
