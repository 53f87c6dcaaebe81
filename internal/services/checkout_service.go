package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/andesgear/pos-api/internal/clients/shipit"
	"github.com/andesgear/pos-api/internal/domain"
	"github.com/andesgear/pos-api/internal/invoicing"
	"github.com/andesgear/pos-api/internal/receipt"
)

var (
	// ErrCheckoutInvalidInput indicates the caller supplied invalid input.
	ErrCheckoutInvalidInput = errors.New("checkout service: invalid input")
	// ErrCheckoutUnavailable indicates a downstream dependency failed.
	ErrCheckoutUnavailable = errors.New("checkout service: unavailable")
	// ErrCheckoutNotFound indicates the session or tender does not exist.
	ErrCheckoutNotFound = errors.New("checkout service: not found")
	// ErrCheckoutInsufficientTender indicates the tendered sum does not cover the total.
	ErrCheckoutInsufficientTender = errors.New("checkout service: tendered amount below total")
)

// OrderCreator creates orders in the remote store.
type OrderCreator interface {
	CreateOrder(ctx context.Context, sub domain.OrderSubmission, status domain.OrderStatus) (domain.OrderRecord, error)
}

// ShipmentCreator creates courier shipments for shipping orders.
type ShipmentCreator interface {
	CreateShipment(ctx context.Context, req shipit.ShipmentRequest) (shipit.Shipment, error)
}

// InvoiceIssuer emits fiscal documents after a committed order.
type InvoiceIssuer interface {
	Issue(ctx context.Context, req invoicing.Request) (invoicing.Document, error)
}

// ReceiptConfig carries the store identity printed on every receipt.
type ReceiptConfig struct {
	Enabled      bool
	BusinessName string
	BusinessRUT  string
	StoreAddress string
}

// CheckoutServiceDeps wires the stores and side-effect clients for checkout.
// Shipments and Invoices are optional; leaving them nil disables the side effect.
type CheckoutServiceDeps struct {
	Store       *SessionStore
	Orders      OrderCreator
	Shipments   ShipmentCreator
	Invoices    InvoiceIssuer
	Receipt     ReceiptConfig
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type checkoutService struct {
	store     *SessionStore
	orders    OrderCreator
	shipments ShipmentCreator
	invoices  InvoiceIssuer
	receipt   ReceiptConfig
	now       func() time.Time
	logger    func(context.Context, string, map[string]any)
	newID     func() string
}

// NewCheckoutService constructs a CheckoutService enforcing dependency validation.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Store == nil {
		return nil, errors.New("checkout service: session store is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("checkout service: order creator is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	return &checkoutService{
		store:     deps.Store,
		orders:    deps.Orders,
		shipments: deps.Shipments,
		invoices:  deps.Invoices,
		receipt:   deps.Receipt,
		now:       func() time.Time { return clock().UTC() },
		logger:    logger,
		newID:     idGen,
	}, nil
}

func (s *checkoutService) AddTender(ctx context.Context, cmd AddTenderCommand) (PaymentView, error) {
	session, err := s.loadSession(cmd.SessionID)
	if err != nil {
		return PaymentView{}, err
	}
	if session.State == StateSubmitted {
		return PaymentView{}, fmt.Errorf("%w: session already submitted", ErrCheckoutInvalidInput)
	}
	if len(session.Cart.Lines) == 0 {
		return PaymentView{}, fmt.Errorf("%w: cart is empty", ErrCheckoutInvalidInput)
	}
	if cmd.Amount <= 0 {
		return PaymentView{}, fmt.Errorf("%w: tender amount must be positive", ErrCheckoutInvalidInput)
	}

	switch cmd.Kind {
	case domain.TenderCash, domain.TenderCard, domain.TenderTransfer:
	default:
		return PaymentView{}, fmt.Errorf("%w: unsupported tender kind %q", ErrCheckoutInvalidInput, cmd.Kind)
	}

	totals := cartTotals(session.Cart)
	remaining := totals.Total - session.TenderedTotal()
	if remaining <= 0 {
		return PaymentView{}, fmt.Errorf("%w: total already covered", ErrCheckoutInvalidInput)
	}
	// Only cash can exceed the balance and produce change; card and transfer
	// capture at most the remaining amount.
	amount := cmd.Amount
	if cmd.Kind != domain.TenderCash && amount > remaining {
		amount = remaining
	}

	tender := domain.Tender{
		ID:        "tnd_" + s.newID(),
		Kind:      cmd.Kind,
		Amount:    amount,
		Reference: strings.TrimSpace(cmd.Reference),
		AddedAt:   s.now(),
	}
	session.Tenders = append(cloneTenders(session.Tenders), tender)
	session.State = reconcileState(session, totals)
	session = s.store.Put(session)

	s.logger(ctx, "checkout.tender_added", map[string]any{
		"sessionId": session.ID,
		"kind":      string(tender.Kind),
		"amount":    tender.Amount,
	})
	return s.paymentView(session, totals), nil
}

func (s *checkoutService) RemoveTender(ctx context.Context, sessionID, tenderID string) (PaymentView, error) {
	session, err := s.loadSession(sessionID)
	if err != nil {
		return PaymentView{}, err
	}
	if session.State == StateSubmitted {
		return PaymentView{}, fmt.Errorf("%w: session already submitted", ErrCheckoutInvalidInput)
	}

	tenderID = strings.TrimSpace(tenderID)
	idx := -1
	for i, tender := range session.Tenders {
		if tender.ID == tenderID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return PaymentView{}, fmt.Errorf("%w: unknown tender", ErrCheckoutNotFound)
	}

	tenders := cloneTenders(session.Tenders)
	session.Tenders = append(tenders[:idx], tenders[idx+1:]...)

	totals := cartTotals(session.Cart)
	session.State = reconcileState(session, totals)
	session = s.store.Put(session)
	return s.paymentView(session, totals), nil
}

func (s *checkoutService) PaymentState(ctx context.Context, sessionID string) (PaymentView, error) {
	session, err := s.loadSession(sessionID)
	if err != nil {
		return PaymentView{}, err
	}
	return s.paymentView(session, cartTotals(session.Cart)), nil
}

func (s *checkoutService) Submit(ctx context.Context, cmd SubmitOrderCommand) (SubmitOrderResult, error) {
	session, err := s.loadSession(cmd.SessionID)
	if err != nil {
		return SubmitOrderResult{}, err
	}
	if session.State == StateSubmitted {
		return SubmitOrderResult{}, fmt.Errorf("%w: session already submitted", ErrCheckoutInvalidInput)
	}
	if len(session.Cart.Lines) == 0 {
		return SubmitOrderResult{}, fmt.Errorf("%w: cart is empty", ErrCheckoutInvalidInput)
	}

	totals := cartTotals(session.Cart)
	tendered := session.TenderedTotal()
	if tendered < totals.Total {
		return SubmitOrderResult{}, ErrCheckoutInsufficientTender
	}

	delivery := cmd.Delivery
	if delivery == "" {
		delivery = domain.DeliveryPickup
	}
	switch delivery {
	case domain.DeliveryShipping, domain.DeliveryPickup:
	default:
		return SubmitOrderResult{}, fmt.Errorf("%w: unknown delivery type %q", ErrCheckoutInvalidInput, delivery)
	}
	// A shipping order without a destination would create an undeliverable
	// shipment downstream, so it is rejected up front.
	if delivery == domain.DeliveryShipping && (cmd.Shipping.IsZero() || strings.TrimSpace(cmd.Shipping.Address1) == "") {
		return SubmitOrderResult{}, fmt.Errorf("%w: shipping orders require a shipping address", ErrCheckoutInvalidInput)
	}

	method, summary := summarizeTenders(session.Tenders)
	sub := domain.OrderSubmission{
		Lines:           orderLinesFromCart(session.Cart),
		CustomerID:      cmd.CustomerID,
		Billing:         cmd.Billing,
		Shipping:        cmd.Shipping,
		PaymentMethod:   method,
		PaymentSummary:  summary,
		Note:            strings.TrimSpace(cmd.Note),
		Delivery:        delivery,
		Total:           totals.Total,
		SetPaid:         true,
		RegisterSession: session.ID,
	}

	order, err := s.orders.CreateOrder(ctx, sub, domain.OrderStatusProcessing)
	if err != nil {
		s.logger(ctx, "checkout.order_failed", map[string]any{
			"sessionId": session.ID,
			"error":     err.Error(),
		})
		return SubmitOrderResult{}, fmt.Errorf("%w: create order: %s", ErrCheckoutUnavailable, err)
	}

	change := domain.Change(totals.Total, tendered)
	result := SubmitOrderResult{
		OrderID: order.RemoteID,
		Status:  order.Status,
		Total:   totals.Total,
		Change:  change,
	}

	// The order is committed. Everything below is best effort and reported
	// as a warning rather than failing the sale.
	result.Warnings = append(result.Warnings, s.issueInvoice(ctx, cmd, sub, order)...)
	result.Warnings = append(result.Warnings, s.createShipment(ctx, sub, order)...)
	if receiptText, warnings := s.renderReceipt(session, totals, order, change); receiptText != "" {
		result.Receipt = receiptText
	} else {
		result.Warnings = append(result.Warnings, warnings...)
	}

	session.State = StateSubmitted
	session = s.store.Put(session)

	s.logger(ctx, "checkout.order_submitted", map[string]any{
		"sessionId": session.ID,
		"orderId":   order.RemoteID,
		"total":     totals.Total,
		"change":    change,
		"warnings":  len(result.Warnings),
	})
	return result, nil
}

func (s *checkoutService) issueInvoice(ctx context.Context, cmd SubmitOrderCommand, sub domain.OrderSubmission, order domain.OrderRecord) []string {
	if s.invoices == nil || !cmd.WantInvoice {
		return nil
	}

	kind := invoicing.KindBoleta
	if strings.TrimSpace(cmd.ReceiverRUT) != "" {
		kind = invoicing.KindFactura
	}
	req := invoicing.Request{
		Kind:         kind,
		OrderRef:     fmt.Sprintf("%d", order.RemoteID),
		ReceiverRUT:  strings.TrimSpace(cmd.ReceiverRUT),
		ReceiverName: strings.TrimSpace(cmd.Billing.FirstName + " " + cmd.Billing.LastName),
		Lines:        invoicing.LinesFromSubmission(sub),
		Total:        sub.Total,
	}
	doc, err := s.invoices.Issue(ctx, req)
	if err != nil {
		s.logger(ctx, "checkout.invoice_failed", map[string]any{
			"orderId": order.RemoteID,
			"error":   err.Error(),
		})
		return []string{fmt.Sprintf("invoice not issued: %s", err)}
	}

	s.logger(ctx, "checkout.invoice_issued", map[string]any{
		"orderId": order.RemoteID,
		"folio":   doc.Folio,
		"kind":    string(doc.Kind),
	})
	return nil
}

func (s *checkoutService) createShipment(ctx context.Context, sub domain.OrderSubmission, order domain.OrderRecord) []string {
	if s.shipments == nil || sub.Delivery != domain.DeliveryShipping {
		return nil
	}

	req := shipit.ShipmentRequest{
		Reference:   fmt.Sprintf("pos-%d", order.RemoteID),
		OrderID:     order.RemoteID,
		Destination: sub.Shipping,
		ItemCount:   itemCount(sub.Lines),
	}
	shipment, err := s.shipments.CreateShipment(ctx, req)
	if err != nil {
		s.logger(ctx, "checkout.shipment_failed", map[string]any{
			"orderId": order.RemoteID,
			"error":   err.Error(),
		})
		return []string{fmt.Sprintf("shipment not created: %s", err)}
	}

	s.logger(ctx, "checkout.shipment_created", map[string]any{
		"orderId":    order.RemoteID,
		"shipmentId": shipment.ID,
	})
	return nil
}

func (s *checkoutService) renderReceipt(session RegisterSession, totals domain.Totals, order domain.OrderRecord, change int64) (string, []string) {
	if !s.receipt.Enabled {
		return "", nil
	}

	lines := make([]receipt.Line, 0, len(session.Cart.Lines))
	for _, line := range session.Cart.Lines {
		lines = append(lines, receipt.Line{
			Name:     line.Product.Name,
			Quantity: line.Quantity,
			Subtotal: line.Subtotal(),
		})
	}
	tenders := make([]receipt.TenderLine, 0, len(session.Tenders))
	for _, tender := range session.Tenders {
		tenders = append(tenders, receipt.TenderLine{
			Label:  receipt.TenderLabel(tender.Kind),
			Amount: tender.Amount,
		})
	}

	text, err := receipt.Render(receipt.Data{
		BusinessName: s.receipt.BusinessName,
		BusinessRUT:  s.receipt.BusinessRUT,
		StoreAddress: s.receipt.StoreAddress,
		Reference:    fmt.Sprintf("pos-%d", order.RemoteID),
		IssuedAt:     s.now(),
		Lines:        lines,
		Totals:       totals,
		Tenders:      tenders,
		Change:       change,
	})
	if err != nil {
		return "", []string{fmt.Sprintf("receipt not rendered: %s", err)}
	}
	return text, nil
}

func (s *checkoutService) loadSession(sessionID string) (RegisterSession, error) {
	if s == nil || s.store == nil {
		return RegisterSession{}, ErrCheckoutUnavailable
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return RegisterSession{}, fmt.Errorf("%w: session id is required", ErrCheckoutInvalidInput)
	}
	session, err := s.store.Get(sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return RegisterSession{}, ErrCheckoutNotFound
		}
		return RegisterSession{}, ErrCheckoutUnavailable
	}
	return session, nil
}

func (s *checkoutService) paymentView(session RegisterSession, totals domain.Totals) PaymentView {
	tendered := session.TenderedTotal()
	remaining := totals.Total - tendered
	if remaining < 0 {
		remaining = 0
	}
	return PaymentView{
		Session:   session,
		Totals:    totals,
		Tendered:  tendered,
		Remaining: remaining,
		Change:    domain.Change(totals.Total, tendered),
	}
}

func reconcileState(session RegisterSession, totals domain.Totals) CheckoutState {
	if totals.Total > 0 && session.TenderedTotal() >= totals.Total {
		return StateComplete
	}
	return StateCollecting
}

// summarizeTenders collapses the tender list into a remote payment method plus
// a human-readable summary. Mixed payments keep the method of the largest
// tender and spell out the full breakdown.
func summarizeTenders(tenders []domain.Tender) (string, string) {
	if len(tenders) == 0 {
		return domain.DefaultPaymentMethod, ""
	}

	byKind := make(map[domain.TenderKind]int64)
	order := make([]domain.TenderKind, 0, len(tenders))
	for _, tender := range tenders {
		if _, seen := byKind[tender.Kind]; !seen {
			order = append(order, tender.Kind)
		}
		byKind[tender.Kind] += tender.Amount
	}

	if len(order) == 1 {
		return methodForKind(order[0]), receipt.TenderLabel(order[0])
	}

	sort.SliceStable(order, func(i, j int) bool {
		return byKind[order[i]] > byKind[order[j]]
	})
	parts := make([]string, 0, len(order))
	for _, kind := range order {
		parts = append(parts, fmt.Sprintf("%s %s", receipt.TenderLabel(kind), domain.FormatCLP(byKind[kind])))
	}
	return methodForKind(order[0]), strings.Join(parts, " + ")
}

func methodForKind(kind domain.TenderKind) string {
	switch kind {
	case domain.TenderCash:
		return "cash"
	case domain.TenderCard:
		return "card"
	case domain.TenderTransfer:
		return "bacs"
	default:
		return domain.DefaultPaymentMethod
	}
}

func orderLinesFromCart(cart domain.Cart) []domain.OrderLine {
	lines := make([]domain.OrderLine, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		lines = append(lines, domain.OrderLine{
			ProductID: line.Product.RemoteID,
			SKU:       line.Product.SKU,
			Name:      line.Product.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.Product.Price,
		})
	}
	return lines
}

func itemCount(lines []domain.OrderLine) int {
	count := 0
	for _, line := range lines {
		count += line.Quantity
	}
	return count
}

func cloneTenders(tenders []domain.Tender) []domain.Tender {
	if len(tenders) == 0 {
		return []domain.Tender{}
	}
	dup := make([]domain.Tender, len(tenders))
	copy(dup, tenders)
	return dup
}
