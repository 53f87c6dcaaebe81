package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andesgear/pos-api/internal/clients/strapi"
	"github.com/andesgear/pos-api/internal/domain"
)

type stubCatalog struct {
	getFn    func(ctx context.Context, documentID string) (domain.ProductRef, error)
	searchFn func(ctx context.Context, term string) ([]domain.ProductRef, error)
}

func (s *stubCatalog) GetProduct(ctx context.Context, documentID string) (domain.ProductRef, error) {
	if s.getFn == nil {
		return domain.ProductRef{}, errors.New("unexpected GetProduct call")
	}
	return s.getFn(ctx, documentID)
}

func (s *stubCatalog) SearchProducts(ctx context.Context, term string) ([]domain.ProductRef, error) {
	if s.searchFn == nil {
		return nil, errors.New("unexpected SearchProducts call")
	}
	return s.searchFn(ctx, term)
}

func fixedClock() func() time.Time {
	at := time.Date(2026, time.March, 14, 15, 30, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func testProduct(id string, price int64) domain.ProductRef {
	return domain.ProductRef{
		ID:          id,
		RemoteID:    100,
		Name:        "Carpa Nevado 2P",
		SKU:         "CN-2P",
		Price:       price,
		StockStatus: domain.StockStatusInStock,
	}
}

func newTestRegisterService(t *testing.T, catalog ProductCatalog) (RegisterService, *SessionStore) {
	t.Helper()
	store := NewSessionStore(time.Hour, fixedClock())
	svc, err := NewRegisterService(RegisterServiceDeps{
		Store:          store,
		Catalog:        catalog,
		Clock:          fixedClock(),
		DefaultTaxRate: 19,
	})
	if err != nil {
		t.Fatalf("NewRegisterService returned error: %v", err)
	}
	return svc, store
}

func TestNewRegisterServiceValidatesDeps(t *testing.T) {
	if _, err := NewRegisterService(RegisterServiceDeps{Catalog: &stubCatalog{}}); err == nil {
		t.Fatal("expected error when session store is missing")
	}
	if _, err := NewRegisterService(RegisterServiceDeps{Store: NewSessionStore(0, nil)}); err == nil {
		t.Fatal("expected error when catalog is missing")
	}
	if _, err := NewRegisterService(RegisterServiceDeps{
		Store:          NewSessionStore(0, nil),
		Catalog:        &stubCatalog{},
		DefaultTaxRate: 120,
	}); err == nil {
		t.Fatal("expected error for out-of-range tax rate")
	}
}

func TestStartSessionAppliesDefaultTax(t *testing.T) {
	svc, _ := newTestRegisterService(t, &stubCatalog{})

	session, err := svc.StartSession(context.Background(), StartSessionCommand{})
	if err != nil {
		t.Fatalf("StartSession returned error: %v", err)
	}
	if session.ID == "" {
		t.Fatal("expected a session id")
	}
	if session.State != StateCollecting {
		t.Fatalf("expected state %q, got %q", StateCollecting, session.State)
	}
	if session.Cart.Tax == nil || session.Cart.Tax.Rate != 19 {
		t.Fatalf("expected default 19%% tax, got %+v", session.Cart.Tax)
	}
}

func TestStartSessionRecordsOpeningFloat(t *testing.T) {
	svc, _ := newTestRegisterService(t, &stubCatalog{})

	session, err := svc.StartSession(context.Background(), StartSessionCommand{OpeningFloat: 50000})
	if err != nil {
		t.Fatalf("StartSession returned error: %v", err)
	}
	if session.OpeningFloat != 50000 {
		t.Fatalf("expected opening float 50000, got %d", session.OpeningFloat)
	}

	if _, err := svc.StartSession(context.Background(), StartSessionCommand{OpeningFloat: -1}); !errors.Is(err, ErrRegisterInvalidInput) {
		t.Fatalf("expected ErrRegisterInvalidInput for negative float, got %v", err)
	}
}

func TestAbandonSessionDiscardsEverything(t *testing.T) {
	catalog := &stubCatalog{
		getFn: func(ctx context.Context, documentID string) (domain.ProductRef, error) {
			return testProduct(documentID, 9990), nil
		},
	}
	svc, _ := newTestRegisterService(t, catalog)
	session, _ := svc.StartSession(context.Background(), StartSessionCommand{})
	if _, err := svc.AddProduct(context.Background(), AddProductCommand{SessionID: session.ID, ProductID: "prod-1"}); err != nil {
		t.Fatalf("AddProduct returned error: %v", err)
	}

	if err := svc.AbandonSession(context.Background(), session.ID); err != nil {
		t.Fatalf("AbandonSession returned error: %v", err)
	}
	if _, err := svc.GetSession(context.Background(), session.ID); !errors.Is(err, ErrRegisterNotFound) {
		t.Fatalf("expected ErrRegisterNotFound after abandon, got %v", err)
	}
	if err := svc.AbandonSession(context.Background(), session.ID); !errors.Is(err, ErrRegisterNotFound) {
		t.Fatalf("expected ErrRegisterNotFound for second abandon, got %v", err)
	}
}

func TestAddProductAccumulatesQuantity(t *testing.T) {
	catalog := &stubCatalog{
		getFn: func(ctx context.Context, documentID string) (domain.ProductRef, error) {
			return testProduct(documentID, 45990), nil
		},
	}
	svc, _ := newTestRegisterService(t, catalog)
	session, _ := svc.StartSession(context.Background(), StartSessionCommand{})

	view, err := svc.AddProduct(context.Background(), AddProductCommand{SessionID: session.ID, ProductID: "prod-1", Quantity: 2})
	if err != nil {
		t.Fatalf("AddProduct returned error: %v", err)
	}
	view, err = svc.AddProduct(context.Background(), AddProductCommand{SessionID: session.ID, ProductID: "prod-1"})
	if err != nil {
		t.Fatalf("AddProduct returned error: %v", err)
	}

	if len(view.Session.Cart.Lines) != 1 {
		t.Fatalf("expected one line, got %d", len(view.Session.Cart.Lines))
	}
	if got := view.Session.Cart.Lines[0].Quantity; got != 3 {
		t.Fatalf("expected quantity 3, got %d", got)
	}
	if view.Totals.Subtotal != 3*45990 {
		t.Fatalf("expected subtotal %d, got %d", 3*45990, view.Totals.Subtotal)
	}
}

func TestAddProductRejectsOutOfStock(t *testing.T) {
	catalog := &stubCatalog{
		getFn: func(ctx context.Context, documentID string) (domain.ProductRef, error) {
			product := testProduct(documentID, 9990)
			product.StockStatus = domain.StockStatusOutOfStock
			return product, nil
		},
	}
	svc, _ := newTestRegisterService(t, catalog)
	session, _ := svc.StartSession(context.Background(), StartSessionCommand{})

	_, err := svc.AddProduct(context.Background(), AddProductCommand{SessionID: session.ID, ProductID: "prod-1"})
	if !errors.Is(err, ErrRegisterOutOfStock) {
		t.Fatalf("expected ErrRegisterOutOfStock, got %v", err)
	}
}

func TestAddProductCapsAtStockCeiling(t *testing.T) {
	catalog := &stubCatalog{
		getFn: func(ctx context.Context, documentID string) (domain.ProductRef, error) {
			product := testProduct(documentID, 9990)
			product.ManageStock = true
			product.StockQuantity = 4
			return product, nil
		},
	}
	svc, _ := newTestRegisterService(t, catalog)
	session, _ := svc.StartSession(context.Background(), StartSessionCommand{})

	view, err := svc.AddProduct(context.Background(), AddProductCommand{SessionID: session.ID, ProductID: "prod-1", Quantity: 10})
	if err != nil {
		t.Fatalf("AddProduct returned error: %v", err)
	}
	if got := view.Session.Cart.Lines[0].Quantity; got != 4 {
		t.Fatalf("expected quantity capped at 4, got %d", got)
	}
}

func TestAddProductUnknownProduct(t *testing.T) {
	catalog := &stubCatalog{
		getFn: func(ctx context.Context, documentID string) (domain.ProductRef, error) {
			return domain.ProductRef{}, strapi.ErrNotFound
		},
	}
	svc, _ := newTestRegisterService(t, catalog)
	session, _ := svc.StartSession(context.Background(), StartSessionCommand{})

	_, err := svc.AddProduct(context.Background(), AddProductCommand{SessionID: session.ID, ProductID: "missing"})
	if !errors.Is(err, ErrRegisterInvalidInput) {
		t.Fatalf("expected ErrRegisterInvalidInput, got %v", err)
	}
}

func TestSetQuantityZeroRemovesLine(t *testing.T) {
	catalog := &stubCatalog{
		getFn: func(ctx context.Context, documentID string) (domain.ProductRef, error) {
			return testProduct(documentID, 9990), nil
		},
	}
	svc, _ := newTestRegisterService(t, catalog)
	session, _ := svc.StartSession(context.Background(), StartSessionCommand{})
	if _, err := svc.AddProduct(context.Background(), AddProductCommand{SessionID: session.ID, ProductID: "prod-1"}); err != nil {
		t.Fatalf("AddProduct returned error: %v", err)
	}

	view, err := svc.SetQuantity(context.Background(), SetQuantityCommand{SessionID: session.ID, ProductID: "prod-1", Quantity: 0})
	if err != nil {
		t.Fatalf("SetQuantity returned error: %v", err)
	}
	if len(view.Session.Cart.Lines) != 0 {
		t.Fatalf("expected empty cart, got %d lines", len(view.Session.Cart.Lines))
	}
}

func TestSetQuantityUnknownLine(t *testing.T) {
	svc, _ := newTestRegisterService(t, &stubCatalog{})
	session, _ := svc.StartSession(context.Background(), StartSessionCommand{})

	_, err := svc.SetQuantity(context.Background(), SetQuantityCommand{SessionID: session.ID, ProductID: "prod-9", Quantity: 1})
	if !errors.Is(err, ErrRegisterNotFound) {
		t.Fatalf("expected ErrRegisterNotFound, got %v", err)
	}
}

func TestApplyDiscountValidation(t *testing.T) {
	svc, _ := newTestRegisterService(t, &stubCatalog{})
	session, _ := svc.StartSession(context.Background(), StartSessionCommand{})

	cases := []struct {
		name string
		cmd  ApplyDiscountCommand
	}{
		{"percentage above 100", ApplyDiscountCommand{SessionID: session.ID, Type: domain.DiscountPercentage, Value: 150}},
		{"percentage zero", ApplyDiscountCommand{SessionID: session.ID, Type: domain.DiscountPercentage, Value: 0}},
		{"negative fixed", ApplyDiscountCommand{SessionID: session.ID, Type: domain.DiscountFixed, Value: -100}},
		{"coupon without code", ApplyDiscountCommand{SessionID: session.ID, Type: domain.DiscountCoupon, Value: 1000}},
		{"unknown type", ApplyDiscountCommand{SessionID: session.ID, Type: "bogus", Value: 10}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.ApplyDiscount(context.Background(), tc.cmd); !errors.Is(err, ErrRegisterInvalidInput) {
				t.Fatalf("expected ErrRegisterInvalidInput, got %v", err)
			}
		})
	}
}

func TestApplyAndRemoveDiscount(t *testing.T) {
	catalog := &stubCatalog{
		getFn: func(ctx context.Context, documentID string) (domain.ProductRef, error) {
			return testProduct(documentID, 10000), nil
		},
	}
	svc, _ := newTestRegisterService(t, catalog)
	session, _ := svc.StartSession(context.Background(), StartSessionCommand{})
	if _, err := svc.SetTax(context.Background(), SetTaxCommand{SessionID: session.ID, Rate: 0}); err != nil {
		t.Fatalf("SetTax returned error: %v", err)
	}
	if _, err := svc.AddProduct(context.Background(), AddProductCommand{SessionID: session.ID, ProductID: "prod-1", Quantity: 2}); err != nil {
		t.Fatalf("AddProduct returned error: %v", err)
	}

	view, err := svc.ApplyDiscount(context.Background(), ApplyDiscountCommand{SessionID: session.ID, Type: domain.DiscountPercentage, Value: 10})
	if err != nil {
		t.Fatalf("ApplyDiscount returned error: %v", err)
	}
	if view.Totals.Discount != 2000 {
		t.Fatalf("expected discount 2000, got %d", view.Totals.Discount)
	}
	if view.Totals.Total != 18000 {
		t.Fatalf("expected total 18000, got %d", view.Totals.Total)
	}

	view, err = svc.RemoveDiscount(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("RemoveDiscount returned error: %v", err)
	}
	if view.Totals.Total != 20000 {
		t.Fatalf("expected total 20000 after discount removal, got %d", view.Totals.Total)
	}
}

func TestClearCartResetsState(t *testing.T) {
	catalog := &stubCatalog{
		getFn: func(ctx context.Context, documentID string) (domain.ProductRef, error) {
			return testProduct(documentID, 10000), nil
		},
	}
	svc, store := newTestRegisterService(t, catalog)
	session, _ := svc.StartSession(context.Background(), StartSessionCommand{})
	if _, err := svc.AddProduct(context.Background(), AddProductCommand{SessionID: session.ID, ProductID: "prod-1"}); err != nil {
		t.Fatalf("AddProduct returned error: %v", err)
	}

	stored, _ := store.Get(session.ID)
	stored.Tenders = []domain.Tender{{ID: "tnd_1", Kind: domain.TenderCash, Amount: 5000}}
	stored.State = StateComplete
	store.Put(stored)

	view, err := svc.ClearCart(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("ClearCart returned error: %v", err)
	}
	if len(view.Session.Cart.Lines) != 0 || len(view.Session.Tenders) != 0 {
		t.Fatal("expected cart and tenders cleared")
	}
	if view.Session.State != StateCollecting {
		t.Fatalf("expected state %q, got %q", StateCollecting, view.Session.State)
	}
}

func TestMutationRejectedAfterSubmit(t *testing.T) {
	svc, store := newTestRegisterService(t, &stubCatalog{})
	session, _ := svc.StartSession(context.Background(), StartSessionCommand{})

	stored, _ := store.Get(session.ID)
	stored.State = StateSubmitted
	store.Put(stored)

	_, err := svc.ApplyDiscount(context.Background(), ApplyDiscountCommand{SessionID: session.ID, Type: domain.DiscountFixed, Value: 1000})
	if !errors.Is(err, ErrRegisterInvalidInput) {
		t.Fatalf("expected ErrRegisterInvalidInput, got %v", err)
	}
}

func TestGetSessionUnknown(t *testing.T) {
	svc, _ := newTestRegisterService(t, &stubCatalog{})

	_, err := svc.GetSession(context.Background(), "reg_missing")
	if !errors.Is(err, ErrRegisterNotFound) {
		t.Fatalf("expected ErrRegisterNotFound, got %v", err)
	}
}
