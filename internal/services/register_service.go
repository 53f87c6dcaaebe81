package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/andesgear/pos-api/internal/clients/strapi"
	"github.com/andesgear/pos-api/internal/domain"
)

var (
	// ErrRegisterInvalidInput indicates the caller supplied invalid input.
	ErrRegisterInvalidInput = errors.New("register service: invalid input")
	// ErrRegisterUnavailable indicates the register service cannot fulfil the request.
	ErrRegisterUnavailable = errors.New("register service: unavailable")
	// ErrRegisterNotFound indicates the session or cart line does not exist.
	ErrRegisterNotFound = errors.New("register service: not found")
	// ErrRegisterOutOfStock indicates the product cannot be sold at all.
	ErrRegisterOutOfStock = errors.New("register service: product out of stock")
)

const maxQuantityPerLine = 999

// RegisterServiceDeps wires the session store and catalog for register operations.
type RegisterServiceDeps struct {
	Store          *SessionStore
	Catalog        ProductCatalog
	Clock          func() time.Time
	Logger         func(context.Context, string, map[string]any)
	IDGenerator    func() string
	DefaultTaxRate float64
}

type registerService struct {
	store   *SessionStore
	catalog ProductCatalog
	now     func() time.Time
	logger  func(context.Context, string, map[string]any)
	newID   func() string
	taxRate float64
}

// NewRegisterService constructs a RegisterService enforcing dependency validation.
func NewRegisterService(deps RegisterServiceDeps) (RegisterService, error) {
	if deps.Store == nil {
		return nil, errors.New("register service: session store is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("register service: catalog is required")
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
	taxRate := deps.DefaultTaxRate
	if taxRate < 0 || taxRate > 100 {
		return nil, fmt.Errorf("register service: tax rate %v out of range", taxRate)
	}

	return &registerService{
		store:   deps.Store,
		catalog: deps.Catalog,
		now:     func() time.Time { return clock().UTC() },
		logger:  logger,
		newID:   idGen,
		taxRate: taxRate,
	}, nil
}

func (s *registerService) StartSession(ctx context.Context, cmd StartSessionCommand) (RegisterSession, error) {
	if s == nil || s.store == nil {
		return RegisterSession{}, ErrRegisterUnavailable
	}
	if cmd.OpeningFloat < 0 {
		return RegisterSession{}, fmt.Errorf("%w: opening float cannot be negative", ErrRegisterInvalidInput)
	}

	now := s.now()
	session := RegisterSession{
		ID:           ensureSessionID(s.newID()),
		OpeningFloat: cmd.OpeningFloat,
		Cart:         domain.Cart{Lines: []domain.CartLine{}},
		Tenders:      []domain.Tender{},
		State:        StateCollecting,
		CreatedAt:    now,
	}
	if s.taxRate > 0 {
		session.Cart.Tax = &domain.Tax{Rate: s.taxRate}
	}
	session = s.store.Put(session)

	s.logger(ctx, "register.session_started", map[string]any{
		"sessionId":    session.ID,
		"openingFloat": session.OpeningFloat,
	})
	return session, nil
}

// AbandonSession discards the session with everything on it. Tenders are
// dropped and no order is created.
func (s *registerService) AbandonSession(ctx context.Context, sessionID string) error {
	session, err := s.loadSession(sessionID)
	if err != nil {
		return err
	}
	s.store.Delete(session.ID)

	s.logger(ctx, "register.session_abandoned", map[string]any{
		"sessionId": session.ID,
		"state":     string(session.State),
		"tendered":  session.TenderedTotal(),
	})
	return nil
}

func (s *registerService) GetSession(ctx context.Context, sessionID string) (CartView, error) {
	session, err := s.loadSession(sessionID)
	if err != nil {
		return CartView{}, err
	}
	return s.view(session), nil
}

func (s *registerService) AddProduct(ctx context.Context, cmd AddProductCommand) (CartView, error) {
	session, err := s.loadMutableSession(cmd.SessionID)
	if err != nil {
		return CartView{}, err
	}

	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return CartView{}, fmt.Errorf("%w: product id is required", ErrRegisterInvalidInput)
	}
	quantity := cmd.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return CartView{}, s.translateCatalogError(err)
	}
	if !product.InStock() {
		return CartView{}, ErrRegisterOutOfStock
	}

	lines := cloneLines(session.Cart.Lines)
	idx := indexOfLine(lines, productID)
	if idx >= 0 {
		lines[idx].Quantity = capQuantity(lines[idx].Quantity+quantity, product.StockCeiling())
		lines[idx].Product = product
	} else {
		capped := capQuantity(quantity, product.StockCeiling())
		if capped <= 0 {
			return CartView{}, ErrRegisterOutOfStock
		}
		lines = append(lines, domain.CartLine{
			Product:  product,
			Quantity: capped,
			AddedAt:  s.now(),
		})
	}

	session.Cart.Lines = lines
	session = s.store.Put(session)

	s.logger(ctx, "register.product_added", map[string]any{
		"sessionId": session.ID,
		"productId": productID,
		"quantity":  quantity,
	})
	return s.view(session), nil
}

func (s *registerService) SetQuantity(ctx context.Context, cmd SetQuantityCommand) (CartView, error) {
	session, err := s.loadMutableSession(cmd.SessionID)
	if err != nil {
		return CartView{}, err
	}

	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return CartView{}, fmt.Errorf("%w: product id is required", ErrRegisterInvalidInput)
	}
	lines := cloneLines(session.Cart.Lines)
	idx := indexOfLine(lines, productID)
	if idx < 0 {
		return CartView{}, ErrRegisterNotFound
	}

	if cmd.Quantity <= 0 {
		lines = append(lines[:idx], lines[idx+1:]...)
	} else {
		lines[idx].Quantity = capQuantity(cmd.Quantity, lines[idx].Product.StockCeiling())
	}

	session.Cart.Lines = lines
	session = s.store.Put(session)
	return s.view(session), nil
}

func (s *registerService) RemoveLine(ctx context.Context, sessionID, productID string) (CartView, error) {
	session, err := s.loadMutableSession(sessionID)
	if err != nil {
		return CartView{}, err
	}

	productID = strings.TrimSpace(productID)
	if productID == "" {
		return CartView{}, fmt.Errorf("%w: product id is required", ErrRegisterInvalidInput)
	}

	lines := cloneLines(session.Cart.Lines)
	idx := indexOfLine(lines, productID)
	if idx < 0 {
		return CartView{}, ErrRegisterNotFound
	}
	lines = append(lines[:idx], lines[idx+1:]...)

	session.Cart.Lines = lines
	session = s.store.Put(session)
	return s.view(session), nil
}

func (s *registerService) ClearCart(ctx context.Context, sessionID string) (CartView, error) {
	session, err := s.loadMutableSession(sessionID)
	if err != nil {
		return CartView{}, err
	}

	session.Cart.Lines = []domain.CartLine{}
	session.Cart.Discount = nil
	session.Tenders = []domain.Tender{}
	session.State = StateCollecting
	session = s.store.Put(session)

	s.logger(ctx, "register.cart_cleared", map[string]any{
		"sessionId": session.ID,
	})
	return s.view(session), nil
}

func (s *registerService) ApplyDiscount(ctx context.Context, cmd ApplyDiscountCommand) (CartView, error) {
	session, err := s.loadMutableSession(cmd.SessionID)
	if err != nil {
		return CartView{}, err
	}

	discount := domain.Discount{
		Type:  cmd.Type,
		Value: cmd.Value,
		Code:  strings.TrimSpace(cmd.Code),
	}
	if err := validateDiscount(discount); err != nil {
		return CartView{}, err
	}

	session.Cart.Discount = &discount
	session = s.store.Put(session)

	s.logger(ctx, "register.discount_applied", map[string]any{
		"sessionId": session.ID,
		"type":      string(discount.Type),
		"value":     discount.Value,
	})
	return s.view(session), nil
}

func (s *registerService) RemoveDiscount(ctx context.Context, sessionID string) (CartView, error) {
	session, err := s.loadMutableSession(sessionID)
	if err != nil {
		return CartView{}, err
	}

	session.Cart.Discount = nil
	session = s.store.Put(session)
	return s.view(session), nil
}

func (s *registerService) SetTax(ctx context.Context, cmd SetTaxCommand) (CartView, error) {
	session, err := s.loadMutableSession(cmd.SessionID)
	if err != nil {
		return CartView{}, err
	}

	if cmd.Rate < 0 || cmd.Rate > 100 {
		return CartView{}, fmt.Errorf("%w: tax rate must be between 0 and 100", ErrRegisterInvalidInput)
	}
	if cmd.Rate == 0 {
		session.Cart.Tax = nil
	} else {
		session.Cart.Tax = &domain.Tax{Rate: cmd.Rate}
	}
	session = s.store.Put(session)
	return s.view(session), nil
}

func (s *registerService) loadSession(sessionID string) (RegisterSession, error) {
	if s == nil || s.store == nil {
		return RegisterSession{}, ErrRegisterUnavailable
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return RegisterSession{}, fmt.Errorf("%w: session id is required", ErrRegisterInvalidInput)
	}
	session, err := s.store.Get(sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return RegisterSession{}, ErrRegisterNotFound
		}
		return RegisterSession{}, ErrRegisterUnavailable
	}
	return session, nil
}

func (s *registerService) loadMutableSession(sessionID string) (RegisterSession, error) {
	session, err := s.loadSession(sessionID)
	if err != nil {
		return RegisterSession{}, err
	}
	if session.State == StateSubmitted {
		return RegisterSession{}, fmt.Errorf("%w: session already submitted", ErrRegisterInvalidInput)
	}
	return session, nil
}

func (s *registerService) view(session RegisterSession) CartView {
	return CartView{
		Session: session,
		Totals:  cartTotals(session.Cart),
	}
}

func (s *registerService) translateCatalogError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, strapi.ErrNotFound) {
		return fmt.Errorf("%w: unknown product", ErrRegisterInvalidInput)
	}
	return fmt.Errorf("%w: catalog lookup failed", ErrRegisterUnavailable)
}

func cartTotals(cart domain.Cart) domain.Totals {
	return domain.ComputeTotals(cart.Subtotal(), cart.Discount, cart.Tax)
}

func validateDiscount(discount domain.Discount) error {
	switch discount.Type {
	case domain.DiscountPercentage:
		if discount.Value <= 0 || discount.Value > 100 {
			return fmt.Errorf("%w: percentage discount must be in (0,100]", ErrRegisterInvalidInput)
		}
	case domain.DiscountFixed:
		if discount.Value <= 0 {
			return fmt.Errorf("%w: fixed discount must be positive", ErrRegisterInvalidInput)
		}
	case domain.DiscountCoupon:
		if discount.Value <= 0 {
			return fmt.Errorf("%w: coupon amount must be positive", ErrRegisterInvalidInput)
		}
		if discount.Code == "" {
			return fmt.Errorf("%w: coupon code is required", ErrRegisterInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown discount type %q", ErrRegisterInvalidInput, discount.Type)
	}
	return nil
}

func capQuantity(quantity, ceiling int) int {
	if quantity > maxQuantityPerLine {
		quantity = maxQuantityPerLine
	}
	if ceiling < 0 {
		return quantity
	}
	if quantity > ceiling {
		return ceiling
	}
	return quantity
}

func cloneLines(lines []domain.CartLine) []domain.CartLine {
	if len(lines) == 0 {
		return []domain.CartLine{}
	}
	dup := make([]domain.CartLine, len(lines))
	copy(dup, lines)
	return dup
}

func indexOfLine(lines []domain.CartLine, productID string) int {
	for i, line := range lines {
		if strings.EqualFold(strings.TrimSpace(line.Product.ID), productID) {
			return i
		}
	}
	return -1
}

func ensureSessionID(candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		trimmed = ulid.Make().String()
	}
	if strings.HasPrefix(trimmed, "reg_") {
		return trimmed
	}
	return "reg_" + trimmed
}
