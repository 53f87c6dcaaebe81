package invoicing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andesgear/pos-api/internal/domain"
)

// ErrUnsupportedIssuer is returned when the manager cannot locate an issuer.
var ErrUnsupportedIssuer = errors.New("invoicing: unsupported issuer")

// DocumentKind enumerates the fiscal document types the register can emit.
type DocumentKind string

const (
	// KindBoleta is the consumer receipt, the POS default.
	KindBoleta DocumentKind = "boleta"
	// KindFactura is the business invoice, requiring a receiver RUT.
	KindFactura DocumentKind = "factura"
)

// Line is one detail row on a fiscal document.
type Line struct {
	Name      string
	Quantity  int
	UnitPrice int64
}

// Request carries everything an issuer needs to emit a document.
type Request struct {
	Kind         DocumentKind
	OrderRef     string
	ReceiverRUT  string
	ReceiverName string
	Lines        []Line
	Total        int64
}

// Document is the normalised result of an issued fiscal document.
type Document struct {
	Issuer   string
	Kind     DocumentKind
	Folio    int64
	PDFUrl   string
	IssuedAt time.Time
}

// Issuer defines the contract for invoicing adapters.
type Issuer interface {
	Issue(ctx context.Context, req Request) (Document, error)
}

// Manager selects an issuer per document kind and exposes a single Issue entry
// point to the checkout side-effect path.
type Manager struct {
	issuers       map[string]Issuer
	defaultIssuer string
	kindRoutes    map[DocumentKind]string
}

// ManagerOption configures optional behaviour when building a Manager.
type ManagerOption func(*Manager)

// WithDefaultIssuer overrides the issuer used when no kind-specific route matches.
func WithDefaultIssuer(name string) ManagerOption {
	return func(m *Manager) {
		m.defaultIssuer = name
	}
}

// WithKindRoutes configures static document-kind to issuer mappings.
func WithKindRoutes(routes map[DocumentKind]string) ManagerOption {
	return func(m *Manager) {
		if len(routes) == 0 {
			return
		}
		if m.kindRoutes == nil {
			m.kindRoutes = make(map[DocumentKind]string, len(routes))
		}
		for k, v := range routes {
			m.kindRoutes[k] = strings.TrimSpace(v)
		}
	}
}

// NewManager constructs a Manager over the supplied issuers.
func NewManager(issuers map[string]Issuer, opts ...ManagerOption) (*Manager, error) {
	if len(issuers) == 0 {
		return nil, errors.New("invoicing: at least one issuer is required")
	}
	copyMap := make(map[string]Issuer, len(issuers))
	for k, v := range issuers {
		key := strings.TrimSpace(strings.ToLower(k))
		if key == "" || v == nil {
			return nil, fmt.Errorf("invoicing: invalid issuer registration for key %q", k)
		}
		copyMap[key] = v
	}
	m := &Manager{
		issuers: copyMap,
	}
	if _, ok := copyMap["openfactura"]; ok {
		m.defaultIssuer = "openfactura"
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

func (m *Manager) resolveIssuer(kind DocumentKind) (string, Issuer, error) {
	if m == nil {
		return "", nil, errors.New("invoicing: manager is nil")
	}
	if len(m.issuers) == 0 {
		return "", nil, errors.New("invoicing: no issuers registered")
	}
	if m.kindRoutes != nil {
		if name, ok := m.kindRoutes[kind]; ok {
			key := strings.TrimSpace(strings.ToLower(name))
			if issuer, ok := m.issuers[key]; ok {
				return key, issuer, nil
			}
		}
	}
	if def := strings.TrimSpace(strings.ToLower(m.defaultIssuer)); def != "" {
		if issuer, ok := m.issuers[def]; ok {
			return def, issuer, nil
		}
	}
	if len(m.issuers) == 1 {
		for key, issuer := range m.issuers {
			return key, issuer, nil
		}
	}
	return "", nil, ErrUnsupportedIssuer
}

// Issue delegates to the issuer resolved for the request's document kind.
func (m *Manager) Issue(ctx context.Context, req Request) (Document, error) {
	if req.Kind == "" {
		req.Kind = KindBoleta
	}
	if req.Kind == KindFactura && strings.TrimSpace(req.ReceiverRUT) == "" {
		return Document{}, errors.New("invoicing: factura requires a receiver RUT")
	}
	key, issuer, err := m.resolveIssuer(req.Kind)
	if err != nil {
		return Document{}, err
	}
	doc, err := issuer.Issue(ctx, req)
	if err != nil {
		return Document{}, err
	}
	doc.Issuer = key
	doc.Kind = req.Kind
	return doc, nil
}

// LinesFromSubmission converts order lines into invoice detail rows.
func LinesFromSubmission(sub domain.OrderSubmission) []Line {
	lines := make([]Line, 0, len(sub.Lines))
	for _, line := range sub.Lines {
		lines = append(lines, Line{
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	return lines
}
