package services

import (
	"context"
	"time"

	"github.com/andesgear/pos-api/internal/domain"
)

// CheckoutState tracks a register session through the payment lifecycle.
type CheckoutState string

const (
	// StateCollecting means tenders are still being gathered.
	StateCollecting CheckoutState = "collecting"
	// StateComplete means the tendered sum covers the cart total.
	StateComplete CheckoutState = "complete"
	// StateSubmitted means the order has been created downstream.
	StateSubmitted CheckoutState = "submitted"
)

// RegisterSession is the per-register cart and payment state. One session maps
// to one physical register between checkout completions.
type RegisterSession struct {
	ID           string
	OpeningFloat int64
	Cart         domain.Cart
	Tenders      []domain.Tender
	State        CheckoutState
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ExpiresAt    time.Time
}

// TenderedTotal sums all tender amounts on the session.
func (s RegisterSession) TenderedTotal() int64 {
	var sum int64
	for _, tender := range s.Tenders {
		sum += tender.Amount
	}
	return sum
}

// StartSessionCommand opens a register session. OpeningFloat records the cash
// placed in the drawer when the shift opens.
type StartSessionCommand struct {
	OpeningFloat int64
}

// AddProductCommand adds (or increments) one product line in a session cart.
type AddProductCommand struct {
	SessionID string
	ProductID string
	Quantity  int
}

// SetQuantityCommand sets an absolute quantity on an existing line.
type SetQuantityCommand struct {
	SessionID string
	ProductID string
	Quantity  int
}

// ApplyDiscountCommand attaches the cart's single discount.
type ApplyDiscountCommand struct {
	SessionID string
	Type      domain.DiscountType
	Value     float64
	Code      string
}

// SetTaxCommand sets or clears the cart tax rate.
type SetTaxCommand struct {
	SessionID string
	Rate      float64
}

// CartView is the session cart plus its computed totals.
type CartView struct {
	Session RegisterSession
	Totals  domain.Totals
}

// RegisterService manages register sessions and their cart state.
type RegisterService interface {
	StartSession(ctx context.Context, cmd StartSessionCommand) (RegisterSession, error)
	GetSession(ctx context.Context, sessionID string) (CartView, error)
	AbandonSession(ctx context.Context, sessionID string) error
	AddProduct(ctx context.Context, cmd AddProductCommand) (CartView, error)
	SetQuantity(ctx context.Context, cmd SetQuantityCommand) (CartView, error)
	RemoveLine(ctx context.Context, sessionID, productID string) (CartView, error)
	ClearCart(ctx context.Context, sessionID string) (CartView, error)
	ApplyDiscount(ctx context.Context, cmd ApplyDiscountCommand) (CartView, error)
	RemoveDiscount(ctx context.Context, sessionID string) (CartView, error)
	SetTax(ctx context.Context, cmd SetTaxCommand) (CartView, error)
}

// AddTenderCommand registers one payment amount against a session.
type AddTenderCommand struct {
	SessionID string
	Kind      domain.TenderKind
	Amount    int64
	Reference string
}

// PaymentView is the session payment state plus the live balance.
type PaymentView struct {
	Session   RegisterSession
	Totals    domain.Totals
	Tendered  int64
	Remaining int64
	Change    int64
}

// SubmitOrderCommand finalises a session into one order submission.
type SubmitOrderCommand struct {
	SessionID   string
	CustomerID  int64
	Billing     domain.Address
	Shipping    domain.Address
	Delivery    domain.DeliveryType
	Note        string
	ReceiverRUT string
	WantInvoice bool
}

// SubmitOrderResult reports the committed order and any side-effect warnings.
type SubmitOrderResult struct {
	OrderID  int64
	Status   domain.OrderStatus
	Total    int64
	Change   int64
	Receipt  string
	Warnings []string
}

// CheckoutService reconciles tenders and submits completed sessions.
type CheckoutService interface {
	AddTender(ctx context.Context, cmd AddTenderCommand) (PaymentView, error)
	RemoveTender(ctx context.Context, sessionID, tenderID string) (PaymentView, error)
	PaymentState(ctx context.Context, sessionID string) (PaymentView, error)
	Submit(ctx context.Context, cmd SubmitOrderCommand) (SubmitOrderResult, error)
}

// UpdateOrderCommand is a partial update to one logical order across stores.
type UpdateOrderCommand struct {
	Identifier    string
	Status        *string
	Origin        *string
	PaymentMethod *string
	Note          *string
}

// UpdateOrderResult distinguishes full success from the partial case where the
// remote store accepted the write but the content store rejected it.
type UpdateOrderResult struct {
	Order    domain.OrderRecord
	Partial  bool
	Warnings []string
}

// OrderService mediates one logical order across the content store and the
// remote store.
type OrderService interface {
	ListOrders(ctx context.Context) ([]domain.OrderRecord, error)
	GetOrder(ctx context.Context, identifier string) (domain.OrderRecord, error)
	UpdateOrder(ctx context.Context, cmd UpdateOrderCommand) (UpdateOrderResult, error)
}

// ProductCatalog resolves products for the register.
type ProductCatalog interface {
	GetProduct(ctx context.Context, documentID string) (domain.ProductRef, error)
	SearchProducts(ctx context.Context, term string) ([]domain.ProductRef, error)
}
