package invoicing

import (
	"context"
	"errors"
	"testing"
)

type stubIssuer struct {
	issueFn func(ctx context.Context, req Request) (Document, error)
	calls   int
}

func (s *stubIssuer) Issue(ctx context.Context, req Request) (Document, error) {
	s.calls++
	if s.issueFn != nil {
		return s.issueFn(ctx, req)
	}
	return Document{Folio: 1001}, nil
}

func TestManagerDefaultsToOpenFactura(t *testing.T) {
	primary := &stubIssuer{}
	other := &stubIssuer{}
	manager, err := NewManager(map[string]Issuer{
		"openfactura": primary,
		"legacy":      other,
	})
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}

	doc, err := manager.Issue(context.Background(), Request{
		OrderRef: "ord-1",
		Lines:    []Line{{Name: "Carpa", Quantity: 1, UnitPrice: 89990}},
		Total:    89990,
	})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if doc.Issuer != "openfactura" {
		t.Errorf("expected openfactura issuer, got %s", doc.Issuer)
	}
	if doc.Kind != KindBoleta {
		t.Errorf("expected boleta default kind, got %s", doc.Kind)
	}
	if primary.calls != 1 || other.calls != 0 {
		t.Errorf("unexpected call distribution: primary=%d other=%d", primary.calls, other.calls)
	}
}

func TestManagerKindRoutes(t *testing.T) {
	boletas := &stubIssuer{}
	facturas := &stubIssuer{}
	manager, err := NewManager(map[string]Issuer{
		"openfactura": boletas,
		"sii-direct":  facturas,
	}, WithKindRoutes(map[DocumentKind]string{
		KindFactura: "sii-direct",
	}))
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}

	doc, err := manager.Issue(context.Background(), Request{
		Kind:        KindFactura,
		ReceiverRUT: "76.123.456-0",
		Lines:       []Line{{Name: "Carpa", Quantity: 1, UnitPrice: 89990}},
		Total:       89990,
	})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if doc.Issuer != "sii-direct" {
		t.Errorf("expected routed issuer, got %s", doc.Issuer)
	}
	if facturas.calls != 1 || boletas.calls != 0 {
		t.Errorf("unexpected call distribution: facturas=%d boletas=%d", facturas.calls, boletas.calls)
	}
}

func TestManagerFacturaRequiresReceiverRUT(t *testing.T) {
	manager, err := NewManager(map[string]Issuer{"openfactura": &stubIssuer{}})
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}

	_, err = manager.Issue(context.Background(), Request{
		Kind:  KindFactura,
		Lines: []Line{{Name: "Carpa", Quantity: 1, UnitPrice: 89990}},
		Total: 89990,
	})
	if err == nil {
		t.Fatal("expected error for factura without receiver RUT")
	}
}

func TestManagerPropagatesIssuerError(t *testing.T) {
	wantErr := errors.New("upstream down")
	manager, err := NewManager(map[string]Issuer{
		"openfactura": &stubIssuer{issueFn: func(context.Context, Request) (Document, error) {
			return Document{}, wantErr
		}},
	})
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}

	_, err = manager.Issue(context.Background(), Request{
		Lines: []Line{{Name: "Carpa", Quantity: 1, UnitPrice: 89990}},
		Total: 89990,
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected issuer error, got %v", err)
	}
}

func TestNewManagerRejectsEmptyRegistrations(t *testing.T) {
	if _, err := NewManager(nil); err == nil {
		t.Fatal("expected error for empty issuer map")
	}
	if _, err := NewManager(map[string]Issuer{" ": &stubIssuer{}}); err == nil {
		t.Fatal("expected error for blank issuer key")
	}
}
