package receipt

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/andesgear/pos-api/internal/domain"
)

// ErrInvalidInput indicates the receipt data is incomplete.
var ErrInvalidInput = errors.New("receipt: invalid input")

const width = 40

var funcs = template.FuncMap{
	"clp":    domain.FormatCLP,
	"center": center,
	"line": func() string {
		return strings.Repeat("-", width)
	},
}

var receiptTemplate = template.Must(template.New("receipt").Funcs(funcs).Parse(`{{center .BusinessName}}
{{if .BusinessRUT}}{{center (printf "RUT %s" .BusinessRUT)}}
{{end}}{{if .StoreAddress}}{{center .StoreAddress}}
{{end}}{{line}}
BOLETA {{.Reference}}
{{.IssuedAt.Format "02-01-2006 15:04"}}
{{line}}
{{range .Lines}}{{printf "%-24.24s %3d %10s" .Name .Quantity (clp .Subtotal)}}
{{end}}{{line}}
{{printf "%-28s %10s" "SUBTOTAL" (clp .Totals.Subtotal)}}
{{if gt .Totals.Discount 0}}{{printf "%-28s %10s" "DESCUENTO" (printf "-%s" (clp .Totals.Discount))}}
{{end}}{{if gt .Totals.Tax 0}}{{printf "%-28s %10s" "IVA" (clp .Totals.Tax)}}
{{end}}{{printf "%-28s %10s" "TOTAL" (clp .Totals.Total)}}
{{line}}
{{range .Tenders}}{{printf "%-28s %10s" .Label (clp .Amount)}}
{{end}}{{if gt .Change 0}}{{printf "%-28s %10s" "VUELTO" (clp .Change)}}
{{end}}{{line}}
{{center "Gracias por su compra"}}
`))

// Line is one printed product row.
type Line struct {
	Name     string
	Quantity int
	Subtotal int64
}

// TenderLine is one printed payment row.
type TenderLine struct {
	Label  string
	Amount int64
}

// Data carries everything needed to render one receipt.
type Data struct {
	BusinessName string
	BusinessRUT  string
	StoreAddress string
	Reference    string
	IssuedAt     time.Time
	Lines        []Line
	Totals       domain.Totals
	Tenders      []TenderLine
	Change       int64
}

// Render produces the printable plain-text receipt.
func Render(data Data) (string, error) {
	if strings.TrimSpace(data.BusinessName) == "" {
		return "", fmt.Errorf("%w: business name is required", ErrInvalidInput)
	}
	if len(data.Lines) == 0 {
		return "", fmt.Errorf("%w: at least one line is required", ErrInvalidInput)
	}

	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("receipt: render: %w", err)
	}
	return buf.String(), nil
}

func center(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= width {
		return s
	}
	pad := (width - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}

// TenderLabel renders the Spanish label printed next to a payment amount.
func TenderLabel(kind domain.TenderKind) string {
	switch kind {
	case domain.TenderCash:
		return "EFECTIVO"
	case domain.TenderCard:
		return "TARJETA"
	case domain.TenderTransfer:
		return "TRANSFERENCIA"
	case domain.TenderMixed:
		return "PAGO MIXTO"
	default:
		return strings.ToUpper(string(kind))
	}
}
