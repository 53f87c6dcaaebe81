package invoicing

import (
	"context"
	"fmt"
	"time"

	"github.com/andesgear/pos-api/internal/clients/openfactura"
)

// OpenFacturaIssuer adapts the OpenFactura client to the Issuer contract.
type OpenFacturaIssuer struct {
	client     *openfactura.Client
	emitterRUT string
	clock      func() time.Time
}

// NewOpenFacturaIssuer constructs the adapter. A nil clock defaults to UTC now.
func NewOpenFacturaIssuer(client *openfactura.Client, emitterRUT string, clock func() time.Time) (*OpenFacturaIssuer, error) {
	if client == nil {
		return nil, fmt.Errorf("invoicing: openfactura client is required")
	}
	if clock == nil {
		clock = time.Now
	}
	wrapped := func() time.Time { return clock().UTC() }
	return &OpenFacturaIssuer{
		client:     client,
		emitterRUT: emitterRUT,
		clock:      wrapped,
	}, nil
}

// Issue emits a boleta through OpenFactura.
func (i *OpenFacturaIssuer) Issue(ctx context.Context, req Request) (Document, error) {
	lines := make([]openfactura.BoletaLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		lines = append(lines, openfactura.BoletaLine{
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}

	boleta, err := i.client.IssueBoleta(ctx, openfactura.BoletaRequest{
		EmitterRUT:   i.emitterRUT,
		ReceiverRUT:  req.ReceiverRUT,
		ReceiverName: req.ReceiverName,
		Lines:        lines,
		Total:        req.Total,
	})
	if err != nil {
		return Document{}, fmt.Errorf("invoicing: issue boleta: %w", err)
	}

	return Document{
		Folio:    boleta.Folio,
		PDFUrl:   boleta.PDFUrl,
		IssuedAt: i.clock(),
	}, nil
}
