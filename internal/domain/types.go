package domain

import "time"

// StockStatus mirrors the stock availability flag carried by the product catalog.
type StockStatus string

const (
	// StockStatusInStock indicates the product can be sold.
	StockStatusInStock StockStatus = "instock"
	// StockStatusOutOfStock indicates the product must not be added to a cart.
	StockStatusOutOfStock StockStatus = "outofstock"
	// StockStatusOnBackorder indicates the product is sellable but not on hand.
	StockStatusOnBackorder StockStatus = "onbackorder"
)

// ProductRef carries the catalog fields the POS needs to sell a product.
type ProductRef struct {
	ID            string
	RemoteID      int64
	Name          string
	SKU           string
	Price         int64
	StockStatus   StockStatus
	ManageStock   bool
	StockQuantity int
}

// InStock reports whether the product may be added to a cart.
func (p ProductRef) InStock() bool {
	return p.StockStatus == "" || p.StockStatus == StockStatusInStock || p.StockStatus == StockStatusOnBackorder
}

// StockCeiling returns the maximum sellable quantity, or -1 when unlimited.
func (p ProductRef) StockCeiling() int {
	if !p.ManageStock {
		return -1
	}
	if p.StockQuantity < 0 {
		return 0
	}
	return p.StockQuantity
}

// CartLine is a single product entry within a POS cart.
type CartLine struct {
	Product  ProductRef
	Quantity int
	AddedAt  time.Time
}

// Subtotal returns the line subtotal (unit price times quantity).
func (l CartLine) Subtotal() int64 {
	if l.Quantity <= 0 || l.Product.Price <= 0 {
		return 0
	}
	return l.Product.Price * int64(l.Quantity)
}

// DiscountType tags the kind of discount applied to a cart.
type DiscountType string

const (
	// DiscountPercentage discounts a percentage of the subtotal; value in (0,100].
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed discounts a fixed amount, capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
	// DiscountCoupon carries an externally resolved coupon amount.
	DiscountCoupon DiscountType = "coupon"
)

// Discount describes the single optional discount on a cart.
type Discount struct {
	Type  DiscountType
	Value float64
	Code  string
}

// Tax describes an optional percentage tax applied after discounts.
type Tax struct {
	Rate float64
}

// Cart aggregates the mutable POS cart state for a register session.
type Cart struct {
	Lines    []CartLine
	Discount *Discount
	Tax      *Tax
}

// ItemCount sums the quantities across all lines.
func (c Cart) ItemCount() int {
	count := 0
	for _, line := range c.Lines {
		if line.Quantity > 0 {
			count += line.Quantity
		}
	}
	return count
}

// Subtotal folds all line subtotals.
func (c Cart) Subtotal() int64 {
	var subtotal int64
	for _, line := range c.Lines {
		subtotal += line.Subtotal()
	}
	return subtotal
}

// TenderKind enumerates the payment instruments accepted at the register.
type TenderKind string

const (
	// TenderCash is physical cash; the only kind that produces change.
	TenderCash TenderKind = "cash"
	// TenderCard is a card terminal payment.
	TenderCard TenderKind = "card"
	// TenderTransfer is a bank transfer.
	TenderTransfer TenderKind = "transfer"
	// TenderMixed marks a submission that combined multiple kinds.
	TenderMixed TenderKind = "mixed"
)

// Tender is one discrete payment amount within a checkout.
type Tender struct {
	ID        string
	Kind      TenderKind
	Amount    int64
	Reference string
	AddedAt   time.Time
}

// DeliveryType distinguishes in-store retrieval from home delivery.
type DeliveryType string

const (
	// DeliveryShipping triggers downstream shipment creation.
	DeliveryShipping DeliveryType = "shipping"
	// DeliveryPickup means no physical shipment; shipping address is blanked.
	DeliveryPickup DeliveryType = "pickup"
)

// Address is the canonical address shape shared by billing and shipping.
type Address struct {
	FirstName string
	LastName  string
	Company   string
	Address1  string
	Address2  string
	City      string
	State     string
	PostCode  string
	Country   string
	Email     string
	Phone     string
	RUT       string
}

// IsZero reports whether no address field is set.
func (a Address) IsZero() bool {
	return a == Address{}
}

// OrderLine is one product/quantity pair in an order submission.
type OrderLine struct {
	ProductID int64
	SKU       string
	Name      string
	Quantity  int
	UnitPrice int64
}

// OrderSubmission is the normalized, immutable order request built at checkout.
type OrderSubmission struct {
	Lines           []OrderLine
	CustomerID      int64
	Billing         Address
	Shipping        Address
	PaymentMethod   string
	PaymentSummary  string
	Note            string
	Delivery        DeliveryType
	Total           int64
	SetPaid         bool
	RegisterSession string
}

// OrderRecord is the canonical internal view of one logical order, merged from
// the content store and the remote store.
type OrderRecord struct {
	DocumentID    string
	RemoteID      int64
	Platform      string
	Status        OrderStatus
	Origin        string
	PaymentMethod string
	Total         int64
	CustomerName  string
	Billing       Address
	Shipping      Address
	Note          string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Totals is the monetary breakdown produced by the money calculator.
type Totals struct {
	Subtotal int64
	Discount int64
	Tax      int64
	Total    int64
}
