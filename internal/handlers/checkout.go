package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/andesgear/pos-api/internal/domain"
	"github.com/andesgear/pos-api/internal/platform/httpx"
	"github.com/andesgear/pos-api/internal/platform/validation"
	"github.com/andesgear/pos-api/internal/services"
)

// CheckoutHandlers exposes tender management and order submission endpoints.
type CheckoutHandlers struct {
	checkout services.CheckoutService
	validate *validatorv10.Validate
}

const maxCheckoutBodySize = 32 * 1024

// NewCheckoutHandlers constructs handlers backed by the checkout service.
func NewCheckoutHandlers(checkout services.CheckoutService) *CheckoutHandlers {
	return &CheckoutHandlers{
		checkout: checkout,
		validate: validation.New(),
	}
}

// Routes wires the checkout endpoints onto the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/sessions/{sessionID}/payment", h.paymentState)
	r.Post("/sessions/{sessionID}/tenders", h.addTender)
	r.Delete("/sessions/{sessionID}/tenders/{tenderID}", h.removeTender)
	r.Post("/sessions/{sessionID}/checkout", h.submit)
}

func (h *CheckoutHandlers) paymentState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		writeCheckoutUnavailable(ctx, w)
		return
	}

	view, err := h.checkout.PaymentState(ctx, chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, buildPaymentPayload(view))
}

func (h *CheckoutHandlers) addTender(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		writeCheckoutUnavailable(ctx, w)
		return
	}

	var req struct {
		Kind      string `json:"kind"`
		Amount    int64  `json:"amount"`
		Reference string `json:"reference"`
	}
	if !decodeRequest(ctx, w, r, maxCheckoutBodySize, &req) {
		return
	}

	view, err := h.checkout.AddTender(ctx, services.AddTenderCommand{
		SessionID: chi.URLParam(r, "sessionID"),
		Kind:      domain.TenderKind(strings.ToLower(strings.TrimSpace(req.Kind))),
		Amount:    req.Amount,
		Reference: req.Reference,
	})
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, buildPaymentPayload(view))
}

func (h *CheckoutHandlers) removeTender(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		writeCheckoutUnavailable(ctx, w)
		return
	}

	view, err := h.checkout.RemoveTender(ctx, chi.URLParam(r, "sessionID"), chi.URLParam(r, "tenderID"))
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, buildPaymentPayload(view))
}

type addressRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Company   string `json:"company"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	State     string `json:"state"`
	PostCode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone"`
	RUT       string `json:"rut" validate:"omitempty,rut"`
}

func (a addressRequest) toDomain() domain.Address {
	return domain.Address{
		FirstName: strings.TrimSpace(a.FirstName),
		LastName:  strings.TrimSpace(a.LastName),
		Company:   strings.TrimSpace(a.Company),
		Address1:  strings.TrimSpace(a.Address1),
		Address2:  strings.TrimSpace(a.Address2),
		City:      strings.TrimSpace(a.City),
		State:     strings.TrimSpace(a.State),
		PostCode:  strings.TrimSpace(a.PostCode),
		Country:   strings.TrimSpace(a.Country),
		Email:     strings.TrimSpace(a.Email),
		Phone:     strings.TrimSpace(a.Phone),
		RUT:       strings.TrimSpace(a.RUT),
	}
}

type submitRequest struct {
	CustomerID  int64           `json:"customerId"`
	Billing     *addressRequest `json:"billing"`
	Shipping    *addressRequest `json:"shipping"`
	Delivery    string          `json:"delivery"`
	Note        string          `json:"note"`
	WantInvoice bool            `json:"wantInvoice"`
	ReceiverRUT string          `json:"receiverRut" validate:"omitempty,rut"`
}

func (h *CheckoutHandlers) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil {
		writeCheckoutUnavailable(ctx, w)
		return
	}

	req := submitRequest{}
	body, err := readLimitedBody(r, maxCheckoutBodySize)
	switch {
	case errors.Is(err, errEmptyBody):
		// A bare submit is a pickup sale with no customer data.
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

	if err := h.validate.Struct(req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request validation failed", http.StatusBadRequest).
			WithDetails(validation.Errors(err)))
		return
	}

	cmd := services.SubmitOrderCommand{
		SessionID:   chi.URLParam(r, "sessionID"),
		CustomerID:  req.CustomerID,
		Delivery:    domain.DeliveryType(strings.ToLower(strings.TrimSpace(req.Delivery))),
		Note:        req.Note,
		WantInvoice: req.WantInvoice,
		ReceiverRUT: req.ReceiverRUT,
	}
	if req.Billing != nil {
		cmd.Billing = req.Billing.toDomain()
	}
	if req.Shipping != nil {
		cmd.Shipping = req.Shipping.toDomain()
	}

	result, err := h.checkout.Submit(ctx, cmd)
	if err != nil {
		h.writeCheckoutError(ctx, w, err)
		return
	}

	payload := buildSubmitPayload(result)
	if len(result.Warnings) > 0 {
		httpx.WriteWarning(w, http.StatusCreated, payload, result.Warnings)
		return
	}
	httpx.WriteData(w, http.StatusCreated, payload)
}

func (h *CheckoutHandlers) writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCheckoutInsufficientTender):
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_tender", "tendered amount does not cover the total", http.StatusUnprocessableEntity))
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("session_not_found", "session or tender not found", http.StatusNotFound))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
	}
}

func writeCheckoutUnavailable(ctx context.Context, w http.ResponseWriter) {
	httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service is unavailable", http.StatusServiceUnavailable))
}

type tenderPayload struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Amount    int64  `json:"amount"`
	Reference string `json:"reference,omitempty"`
}

type paymentPayload struct {
	SessionID string          `json:"sessionId"`
	State     string          `json:"state"`
	Totals    totalsPayload   `json:"totals"`
	Tenders   []tenderPayload `json:"tenders"`
	Tendered  int64           `json:"tendered"`
	Remaining int64           `json:"remaining"`
	Change    int64           `json:"change"`
}

func buildPaymentPayload(view services.PaymentView) paymentPayload {
	payload := paymentPayload{
		SessionID: view.Session.ID,
		State:     string(view.Session.State),
		Totals:    buildTotalsPayload(view.Totals),
		Tenders:   make([]tenderPayload, 0, len(view.Session.Tenders)),
		Tendered:  view.Tendered,
		Remaining: view.Remaining,
		Change:    view.Change,
	}
	for _, tender := range view.Session.Tenders {
		payload.Tenders = append(payload.Tenders, tenderPayload{
			ID:        tender.ID,
			Kind:      string(tender.Kind),
			Amount:    tender.Amount,
			Reference: tender.Reference,
		})
	}
	return payload
}

type submitPayload struct {
	OrderID       int64  `json:"orderId"`
	Status        string `json:"status"`
	Total         int64  `json:"total"`
	Change        int64  `json:"change"`
	ChangeDisplay string `json:"changeDisplay"`
	Receipt       string `json:"receipt,omitempty"`
}

func buildSubmitPayload(result services.SubmitOrderResult) submitPayload {
	return submitPayload{
		OrderID:       result.OrderID,
		Status:        string(result.Status),
		Total:         result.Total,
		Change:        result.Change,
		ChangeDisplay: domain.FormatCLP(result.Change),
		Receipt:       result.Receipt,
	}
}
