package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/andesgear/pos-api/internal/clients/shipit"
	"github.com/andesgear/pos-api/internal/clients/strapi"
	"github.com/andesgear/pos-api/internal/clients/woocommerce"
	"github.com/andesgear/pos-api/internal/domain"
	"github.com/andesgear/pos-api/internal/invoicing"
	"github.com/andesgear/pos-api/internal/services"
)

type fakeCatalog struct {
	products map[string]domain.ProductRef
}

func (f *fakeCatalog) GetProduct(ctx context.Context, documentID string) (domain.ProductRef, error) {
	product, ok := f.products[documentID]
	if !ok {
		return domain.ProductRef{}, strapi.ErrNotFound
	}
	return product, nil
}

func (f *fakeCatalog) SearchProducts(ctx context.Context, term string) ([]domain.ProductRef, error) {
	results := make([]domain.ProductRef, 0, len(f.products))
	for _, product := range f.products {
		results = append(results, product)
	}
	return results, nil
}

type fakeOrderCreator struct {
	nextID int64
	err    error
	calls  []domain.OrderSubmission
}

func (f *fakeOrderCreator) CreateOrder(ctx context.Context, sub domain.OrderSubmission, status domain.OrderStatus) (domain.OrderRecord, error) {
	f.calls = append(f.calls, sub)
	if f.err != nil {
		return domain.OrderRecord{}, f.err
	}
	return domain.OrderRecord{RemoteID: f.nextID, Status: status, Total: sub.Total}, nil
}

type fakeShipments struct {
	err   error
	calls []shipit.ShipmentRequest
}

func (f *fakeShipments) CreateShipment(ctx context.Context, req shipit.ShipmentRequest) (shipit.Shipment, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return shipit.Shipment{}, f.err
	}
	return shipit.Shipment{ID: 9, TrackingNumber: "TRK-9"}, nil
}

type fakeInvoices struct {
	err   error
	calls []invoicing.Request
}

func (f *fakeInvoices) Issue(ctx context.Context, req invoicing.Request) (invoicing.Document, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return invoicing.Document{}, f.err
	}
	return invoicing.Document{Folio: 101, Kind: req.Kind}, nil
}

type fakeContentStore struct {
	orders    map[string]domain.OrderRecord
	updateErr error
}

func (f *fakeContentStore) GetOrder(ctx context.Context, documentID string) (domain.OrderRecord, error) {
	order, ok := f.orders[documentID]
	if !ok {
		return domain.OrderRecord{}, strapi.ErrNotFound
	}
	return order, nil
}

func (f *fakeContentStore) FindOrderByRemoteID(ctx context.Context, remoteID int64) (domain.OrderRecord, error) {
	for _, order := range f.orders {
		if order.RemoteID == remoteID {
			return order, nil
		}
	}
	return domain.OrderRecord{}, strapi.ErrNotFound
}

func (f *fakeContentStore) ListOrders(ctx context.Context) ([]domain.OrderRecord, error) {
	orders := make([]domain.OrderRecord, 0, len(f.orders))
	for _, order := range f.orders {
		orders = append(orders, order)
	}
	return orders, nil
}

func (f *fakeContentStore) UpdateOrder(ctx context.Context, documentID string, update strapi.OrderUpdate) (domain.OrderRecord, error) {
	if f.updateErr != nil {
		return domain.OrderRecord{}, f.updateErr
	}
	order, ok := f.orders[documentID]
	if !ok {
		return domain.OrderRecord{}, strapi.ErrNotFound
	}
	if update.Status != nil {
		order.Status = *update.Status
	}
	if update.Note != nil {
		order.Note = *update.Note
	}
	f.orders[documentID] = order
	return order, nil
}

type fakeRemoteStore struct {
	err   error
	calls []domain.OrderStatus
}

func (f *fakeRemoteStore) Configured() bool { return true }

func (f *fakeRemoteStore) GetOrder(ctx context.Context, id int64) (domain.OrderRecord, error) {
	return domain.OrderRecord{}, woocommerce.ErrNotFound
}

func (f *fakeRemoteStore) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (domain.OrderRecord, error) {
	f.calls = append(f.calls, status)
	if f.err != nil {
		return domain.OrderRecord{}, f.err
	}
	return domain.OrderRecord{RemoteID: id, Status: status}, nil
}

type testEnv struct {
	router    http.Handler
	store     *services.SessionStore
	orders    *fakeOrderCreator
	shipments *fakeShipments
	invoices  *fakeInvoices
	content   *fakeContentStore
	remote    *fakeRemoteStore
}

func testClock() func() time.Time {
	at := time.Date(2026, time.March, 14, 15, 30, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	catalog := &fakeCatalog{products: map[string]domain.ProductRef{
		"prod-1": {
			ID:          "prod-1",
			RemoteID:    100,
			Name:        "Parka Cumbre",
			SKU:         "PC-01",
			Price:       10000,
			StockStatus: domain.StockStatusInStock,
		},
	}}

	env := &testEnv{
		store:     services.NewSessionStore(time.Hour, testClock()),
		orders:    &fakeOrderCreator{nextID: 5001},
		shipments: &fakeShipments{},
		invoices:  &fakeInvoices{},
		remote:    &fakeRemoteStore{},
		content: &fakeContentStore{orders: map[string]domain.OrderRecord{
			"doc-abc": {
				DocumentID: "doc-abc",
				RemoteID:   3101,
				Platform:   "woocommerce",
				Status:     domain.OrderStatusPending,
				Total:      35990,
			},
		}},
	}

	register, err := services.NewRegisterService(services.RegisterServiceDeps{
		Store:   env.store,
		Catalog: catalog,
		Clock:   testClock(),
	})
	require.NoError(t, err)

	checkout, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Store:     env.store,
		Orders:    env.orders,
		Shipments: env.shipments,
		Invoices:  env.invoices,
		Receipt: services.ReceiptConfig{
			Enabled:      true,
			BusinessName: "Andes Gear",
		},
		Clock: testClock(),
	})
	require.NoError(t, err)

	orders, err := services.NewOrderService(services.OrderServiceDeps{
		Content: env.content,
		Remote:  env.remote,
		Clock:   testClock(),
	})
	require.NoError(t, err)

	registerHandlers := NewRegisterHandlers(register)
	checkoutHandlers := NewCheckoutHandlers(checkout)

	env.router = NewRouter(
		WithPOSRoutes(func(r chi.Router) {
			registerHandlers.Routes(r)
			checkoutHandlers.Routes(r)
		}),
		WithOrderRoutes(NewOrderHandlers(orders).Routes),
		WithProductRoutes(NewProductHandlers(catalog).Routes),
	)
	return env
}

func (env *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

type envelope struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data"`
	Error    string          `json:"error"`
	Message  string          `json:"message"`
	Warnings []string        `json:"warnings"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), "body: %s", rr.Body.String())
	return env
}

func (env *testEnv) startSession(t *testing.T) string {
	t.Helper()
	rr := env.do(t, http.MethodPost, "/api/v1/pos/sessions", nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var payload struct {
		ID string `json:"id"`
	}
	resp := decodeEnvelope(t, rr)
	require.NoError(t, json.Unmarshal(resp.Data, &payload))
	require.NotEmpty(t, payload.ID)
	return payload.ID
}

var errStubFailure = errors.New("stub failure")
