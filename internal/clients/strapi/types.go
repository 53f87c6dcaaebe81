package strapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/andesgear/pos-api/internal/domain"
)

// envelope is the outer response shape. Data may hold a single entity or a
// list depending on the endpoint.
type envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  *meta           `json:"meta,omitempty"`
	Error *apiError       `json:"error,omitempty"`
}

type meta struct {
	Pagination *pagination `json:"pagination,omitempty"`
}

type pagination struct {
	Page      int `json:"page"`
	PageSize  int `json:"pageSize"`
	PageCount int `json:"pageCount"`
	Total     int `json:"total"`
}

type apiError struct {
	Status  int    `json:"status"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// orderAttributes is the pedido content type as stored in the content store.
type orderAttributes struct {
	WooID         json.Number  `json:"wooId"`
	Platform      string       `json:"platform"`
	Status        string       `json:"status"`
	Origin        string       `json:"origin"`
	PaymentMethod string       `json:"paymentMethod"`
	Total         json.Number  `json:"total"`
	CustomerName  string       `json:"customerName"`
	Billing       *addressWire `json:"billing"`
	Shipping      *addressWire `json:"shipping"`
	Note          string       `json:"note"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

type addressWire struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Company   string `json:"company"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	State     string `json:"state"`
	PostCode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	RUT       string `json:"rut"`
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
		RUT:       w.RUT,
	}
}

func addressWireFrom(a domain.Address) *addressWire {
	if a.IsZero() {
		return nil
	}
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
		RUT:       a.RUT,
	}
}

// productAttributes is the producto content type as stored in the content store.
type productAttributes struct {
	WooID         json.Number `json:"wooId"`
	Name          string      `json:"name"`
	SKU           string      `json:"sku"`
	Price         json.Number `json:"price"`
	StockStatus   string      `json:"stockStatus"`
	ManageStock   bool        `json:"manageStock"`
	StockQuantity int         `json:"stockQuantity"`
}

// rawEntity captures the two wire shapes the content store emits depending on
// its version: attributes nested under an "attributes" key, or flattened onto
// the entity itself. Normalization happens exactly once, here.
type rawEntity struct {
	ID         json.Number     `json:"id"`
	DocumentID string          `json:"documentId"`
	Attributes json.RawMessage `json:"attributes"`
	rest       json.RawMessage
}

func decodeEntity(raw json.RawMessage) (rawEntity, error) {
	var entity rawEntity
	if err := json.Unmarshal(raw, &entity); err != nil {
		return rawEntity{}, fmt.Errorf("strapi: decode entity: %w", err)
	}
	if len(entity.Attributes) > 0 {
		entity.rest = entity.Attributes
	} else {
		entity.rest = raw
	}
	return entity, nil
}

func (e rawEntity) decodeInto(target any) error {
	if len(e.rest) == 0 {
		return fmt.Errorf("strapi: entity has no attribute payload")
	}
	if err := json.Unmarshal(e.rest, target); err != nil {
		return fmt.Errorf("strapi: decode attributes: %w", err)
	}
	return nil
}

// orderFromEntity converts one stored pedido into the canonical record.
// Unrecognized vocabulary values fall back to the domain defaults; the raw
// inputs are returned in unmapped so the client can log them.
func orderFromEntity(raw json.RawMessage) (domain.OrderRecord, map[string]string, error) {
	entity, err := decodeEntity(raw)
	if err != nil {
		return domain.OrderRecord{}, nil, err
	}
	var attrs orderAttributes
	if err := entity.decodeInto(&attrs); err != nil {
		return domain.OrderRecord{}, nil, err
	}

	remoteID, _ := attrs.WooID.Int64()
	total, _ := attrs.Total.Int64()

	unmapped := map[string]string{}
	status, ok := domain.NormalizeStatus(attrs.Status)
	if !ok && strings.TrimSpace(attrs.Status) != "" {
		unmapped["status"] = attrs.Status
	}
	origin, ok := domain.NormalizeOrigin(attrs.Origin)
	if !ok && strings.TrimSpace(attrs.Origin) != "" {
		unmapped["origin"] = attrs.Origin
	}
	method, ok := domain.NormalizePaymentMethod(attrs.PaymentMethod)
	if !ok && strings.TrimSpace(attrs.PaymentMethod) != "" {
		unmapped["paymentMethod"] = attrs.PaymentMethod
	}

	return domain.OrderRecord{
		DocumentID:    entity.DocumentID,
		RemoteID:      remoteID,
		Platform:      attrs.Platform,
		Status:        status,
		Origin:        origin,
		PaymentMethod: method,
		Total:         total,
		CustomerName:  attrs.CustomerName,
		Billing:       attrs.Billing.toDomain(),
		Shipping:      attrs.Shipping.toDomain(),
		Note:          attrs.Note,
		CreatedAt:     attrs.CreatedAt,
		UpdatedAt:     attrs.UpdatedAt,
	}, unmapped, nil
}

func productFromEntity(raw json.RawMessage) (domain.ProductRef, error) {
	entity, err := decodeEntity(raw)
	if err != nil {
		return domain.ProductRef{}, err
	}
	var attrs productAttributes
	if err := entity.decodeInto(&attrs); err != nil {
		return domain.ProductRef{}, err
	}

	remoteID, _ := attrs.WooID.Int64()
	price, _ := attrs.Price.Int64()

	return domain.ProductRef{
		ID:            entity.DocumentID,
		RemoteID:      remoteID,
		Name:          attrs.Name,
		SKU:           attrs.SKU,
		Price:         price,
		StockStatus:   domain.StockStatus(attrs.StockStatus),
		ManageStock:   attrs.ManageStock,
		StockQuantity: attrs.StockQuantity,
	}, nil
}

// OrderUpdate carries the writable pedido fields for a partial update. Nil
// pointers leave the stored value untouched.
type OrderUpdate struct {
	Status        *domain.OrderStatus
	Origin        *string
	PaymentMethod *string
	Note          *string
	CustomerName  *string
	Billing       *domain.Address
	Shipping      *domain.Address
}

func (u OrderUpdate) payload() map[string]any {
	fields := map[string]any{}
	if u.Status != nil {
		fields["status"] = string(*u.Status)
	}
	if u.Origin != nil {
		fields["origin"] = *u.Origin
	}
	if u.PaymentMethod != nil {
		fields["paymentMethod"] = *u.PaymentMethod
	}
	if u.Note != nil {
		fields["note"] = *u.Note
	}
	if u.CustomerName != nil {
		fields["customerName"] = *u.CustomerName
	}
	if u.Billing != nil {
		fields["billing"] = addressWireFrom(*u.Billing)
	}
	if u.Shipping != nil {
		fields["shipping"] = addressWireFrom(*u.Shipping)
	}
	return fields
}
