package openfactura

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

var (
	// ErrNotConfigured indicates invoicing credentials are absent.
	ErrNotConfigured = errors.New("openfactura: not configured")
	// ErrUnavailable indicates the invoicing API could not be reached or answered 5xx.
	ErrUnavailable = errors.New("openfactura: unavailable")
	// ErrInvalidInput indicates the invoicing API rejected the document.
	ErrInvalidInput = errors.New("openfactura: invalid input")
)

// Boleta document type code in the SII taxonomy.
const dteTypeBoleta = 39

// HTTPClient matches the subset of http.Client used by Client.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Client talks to the electronic invoicing API.
type Client struct {
	base   *url.URL
	apiKey string
	client HTTPClient
}

// NewClient constructs an invoicing client. An empty base URL yields a client
// whose calls fail with ErrNotConfigured.
func NewClient(baseURL, apiKey string, client HTTPClient) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return &Client{}, nil
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("openfactura: parse base URL: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		base:   parsed,
		apiKey: strings.TrimSpace(apiKey),
		client: client,
	}, nil
}

// Configured reports whether invoicing credentials were provided.
func (c *Client) Configured() bool {
	return c != nil && c.base != nil
}

// BoletaLine is one detail row on an electronic receipt.
type BoletaLine struct {
	Name      string
	Quantity  int
	UnitPrice int64
}

// BoletaRequest carries the fields needed to emit an electronic receipt.
type BoletaRequest struct {
	EmitterRUT   string
	ReceiverRUT  string
	ReceiverName string
	Lines        []BoletaLine
	Total        int64
}

// Boleta is the issued document reference.
type Boleta struct {
	Folio     int64  `json:"folio"`
	Token     string `json:"token"`
	PDFUrl    string `json:"pdf_url"`
	Timestamp string `json:"timestamp"`
}

// IssueBoleta emits an electronic receipt for a completed sale.
func (c *Client) IssueBoleta(ctx context.Context, req BoletaRequest) (Boleta, error) {
	if !c.Configured() {
		return Boleta{}, ErrNotConfigured
	}
	if len(req.Lines) == 0 {
		return Boleta{}, fmt.Errorf("%w: at least one line is required", ErrInvalidInput)
	}
	if req.Total <= 0 {
		return Boleta{}, fmt.Errorf("%w: total must be positive", ErrInvalidInput)
	}

	details := make([]map[string]any, 0, len(req.Lines))
	for index, line := range req.Lines {
		details = append(details, map[string]any{
			"NroLinDet": index + 1,
			"NmbItem":   line.Name,
			"QtyItem":   line.Quantity,
			"PrcItem":   line.UnitPrice,
			"MontoItem": line.UnitPrice * int64(line.Quantity),
		})
	}
	payload := map[string]any{
		"response": []string{"FOLIO", "PDF"},
		"dte": map[string]any{
			"Encabezado": map[string]any{
				"IdDoc": map[string]any{
					"TipoDTE": dteTypeBoleta,
				},
				"Emisor": map[string]any{
					"RUTEmisor": req.EmitterRUT,
				},
				"Receptor": map[string]any{
					"RUTRecep":    req.ReceiverRUT,
					"RznSocRecep": req.ReceiverName,
				},
				"Totales": map[string]any{
					"MntTotal": req.Total,
				},
			},
			"Detalle": details,
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return Boleta{}, fmt.Errorf("openfactura: encode payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve("/v2/dte/document"), &buf)
	if err != nil {
		return Boleta{}, fmt.Errorf("openfactura: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("apikey", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Boleta{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return Boleta{}, c.errorFromResponse(resp)
	}

	var boleta Boleta
	if err := json.NewDecoder(resp.Body).Decode(&boleta); err != nil {
		return Boleta{}, fmt.Errorf("openfactura: decode boleta: %w", err)
	}
	return boleta, nil
}

func (c *Client) resolve(endpoint string) string {
	trimmed := strings.TrimPrefix(endpoint, "/")
	ref := &url.URL{Path: trimmed}
	return c.base.ResolveReference(ref).String()
}

func (c *Client) errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	message := strings.TrimSpace(string(body))
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, message)
	}
	return fmt.Errorf("%w: status %d: %s", ErrInvalidInput, resp.StatusCode, message)
}
