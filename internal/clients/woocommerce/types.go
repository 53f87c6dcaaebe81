package woocommerce

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/andesgear/pos-api/internal/domain"
)

// orderWire is the remote store order representation, request and response.
// Monetary fields travel as decimal strings.
type orderWire struct {
	ID                 int64          `json:"id,omitempty"`
	Status             string         `json:"status,omitempty"`
	CustomerID         int64          `json:"customer_id,omitempty"`
	PaymentMethod      string         `json:"payment_method,omitempty"`
	PaymentMethodTitle string         `json:"payment_method_title,omitempty"`
	SetPaid            bool           `json:"set_paid,omitempty"`
	CustomerNote       string         `json:"customer_note,omitempty"`
	CreatedVia         string         `json:"created_via,omitempty"`
	Total              string         `json:"total,omitempty"`
	Billing            *addressWire   `json:"billing,omitempty"`
	Shipping           *addressWire   `json:"shipping,omitempty"`
	LineItems          []lineItemWire `json:"line_items,omitempty"`
	MetaData           []metaWire     `json:"meta_data,omitempty"`
	DateCreated        string         `json:"date_created,omitempty"`
	DateModified       string         `json:"date_modified,omitempty"`
}

type lineItemWire struct {
	ProductID int64  `json:"product_id,omitempty"`
	SKU       string `json:"sku,omitempty"`
	Name      string `json:"name,omitempty"`
	Quantity  int    `json:"quantity"`
	Total     string `json:"total,omitempty"`
}

type addressWire struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	PostCode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type metaWire struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type errorWire struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func addressWireFrom(a domain.Address) *addressWire {
	return &addressWire{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Company:   a.Company,
		Address1:  a.Address1,
		Address2:  a.Address2,
		City:      a.City,
		State:     a.State,
		PostCode:  a.PostCode,
		Country:   a.Country,
		Email:     a.Email,
		Phone:     a.Phone,
	}
}

func (w *addressWire) toDomain() domain.Address {
	if w == nil {
		return domain.Address{}
	}
	return domain.Address{
		FirstName: w.FirstName,
		LastName:  w.LastName,
		Company:   w.Company,
		Address1:  w.Address1,
		Address2:  w.Address2,
		City:      w.City,
		State:     w.State,
		PostCode:  w.PostCode,
		Country:   w.Country,
		Email:     w.Email,
		Phone:     w.Phone,
	}
}

// parseAmount converts a remote decimal string to whole pesos.
func parseAmount(value string) int64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0
	}
	return int64(math.Round(parsed))
}

// toDomain converts a wire order to the canonical record. Vocabulary values
// the domain does not recognize fall back to their defaults; the raw inputs
// come back in unmapped so the client can log them.
func (w orderWire) toDomain() (domain.OrderRecord, map[string]string) {
	unmapped := map[string]string{}
	status, ok := domain.NormalizeStatus(w.Status)
	if !ok && strings.TrimSpace(w.Status) != "" {
		unmapped["status"] = w.Status
	}
	origin, ok := domain.NormalizeOrigin(w.CreatedVia)
	if !ok && strings.TrimSpace(w.CreatedVia) != "" {
		unmapped["createdVia"] = w.CreatedVia
	}
	method, ok := domain.NormalizePaymentMethod(w.PaymentMethod)
	if !ok && strings.TrimSpace(w.PaymentMethod) != "" {
		unmapped["paymentMethod"] = w.PaymentMethod
	}

	record := domain.OrderRecord{
		RemoteID:      w.ID,
		Platform:      "woocommerce",
		Status:        status,
		Origin:        origin,
		PaymentMethod: method,
		Total:         parseAmount(w.Total),
		Note:          w.CustomerNote,
		Billing:       w.Billing.toDomain(),
		Shipping:      w.Shipping.toDomain(),
	}
	record.CustomerName = strings.TrimSpace(record.Billing.FirstName + " " + record.Billing.LastName)
	if created, err := time.Parse("2006-01-02T15:04:05", w.DateCreated); err == nil {
		record.CreatedAt = created
	}
	if modified, err := time.Parse("2006-01-02T15:04:05", w.DateModified); err == nil {
		record.UpdatedAt = modified
	}
	return record, unmapped
}

func orderWireFromSubmission(sub domain.OrderSubmission, status domain.OrderStatus) orderWire {
	wire := orderWire{
		Status:             string(status),
		CustomerID:         sub.CustomerID,
		PaymentMethod:      sub.PaymentMethod,
		PaymentMethodTitle: sub.PaymentSummary,
		SetPaid:            sub.SetPaid,
		CustomerNote:       sub.Note,
		CreatedVia:         "pos",
		Billing:            addressWireFrom(sub.Billing),
	}
	if sub.Delivery == domain.DeliveryShipping && !sub.Shipping.IsZero() {
		wire.Shipping = addressWireFrom(sub.Shipping)
	} else {
		// Pickup orders carry an explicitly blank shipping block so the store
		// never triggers shipment creation from stale profile data.
		wire.Shipping = &addressWire{}
	}
	for _, line := range sub.Lines {
		wire.LineItems = append(wire.LineItems, lineItemWire{
			ProductID: line.ProductID,
			SKU:       line.SKU,
			Name:      line.Name,
			Quantity:  line.Quantity,
			Total:     strconv.FormatInt(line.UnitPrice*int64(line.Quantity), 10),
		})
	}
	if sub.RegisterSession != "" {
		wire.MetaData = append(wire.MetaData, metaWire{Key: "pos_register_session", Value: sub.RegisterSession})
	}
	return wire
}
