package shipit

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

	"github.com/andesgear/pos-api/internal/domain"
)

var (
	// ErrNotConfigured indicates courier credentials are absent.
	ErrNotConfigured = errors.New("shipit: not configured")
	// ErrUnavailable indicates the courier API could not be reached or answered 5xx.
	ErrUnavailable = errors.New("shipit: unavailable")
	// ErrInvalidInput indicates the courier API rejected the payload.
	ErrInvalidInput = errors.New("shipit: invalid input")
)

// HTTPClient matches the subset of http.Client used by Client.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Client talks to the courier shipment API.
type Client struct {
	base   *url.URL
	email  string
	token  string
	client HTTPClient
}

// NewClient constructs a courier client. An empty base URL yields a client
// whose calls fail with ErrNotConfigured.
func NewClient(baseURL, email, token string, client HTTPClient) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return &Client{}, nil
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("shipit: parse base URL: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		base:   parsed,
		email:  strings.TrimSpace(email),
		token:  strings.TrimSpace(token),
		client: client,
	}, nil
}

// Configured reports whether courier credentials were provided.
func (c *Client) Configured() bool {
	return c != nil && c.base != nil
}

// ShipmentRequest describes one outbound shipment.
type ShipmentRequest struct {
	Reference   string
	OrderID     int64
	Destination domain.Address
	ItemCount   int
}

// Shipment is the courier's acknowledgement of a created shipment.
type Shipment struct {
	ID             int64  `json:"id"`
	TrackingNumber string `json:"tracking_number"`
	Status         string `json:"status"`
}

type shipmentWire struct {
	Reference string         `json:"reference"`
	Items     int            `json:"items_count"`
	Platform  int64          `json:"platform,omitempty"`
	Address   addressWire    `json:"destiny"`
	Extra     map[string]any `json:"extra,omitempty"`
}

type addressWire struct {
	FullName   string `json:"full_name"`
	Street     string `json:"street"`
	Complement string `json:"complement,omitempty"`
	Commune    string `json:"commune_name"`
	Region     string `json:"region_name,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
}

// CreateShipment registers a new shipment for a delivery order.
func (c *Client) CreateShipment(ctx context.Context, req ShipmentRequest) (Shipment, error) {
	if !c.Configured() {
		return Shipment{}, ErrNotConfigured
	}
	if strings.TrimSpace(req.Reference) == "" {
		return Shipment{}, fmt.Errorf("%w: reference is required", ErrInvalidInput)
	}
	if req.Destination.IsZero() {
		return Shipment{}, fmt.Errorf("%w: destination address is required", ErrInvalidInput)
	}

	wire := shipmentWire{
		Reference: req.Reference,
		Items:     req.ItemCount,
		Platform:  req.OrderID,
		Address: addressWire{
			FullName:   strings.TrimSpace(req.Destination.FirstName + " " + req.Destination.LastName),
			Street:     req.Destination.Address1,
			Complement: req.Destination.Address2,
			Commune:    req.Destination.City,
			Region:     req.Destination.State,
			Phone:      req.Destination.Phone,
			Email:      req.Destination.Email,
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(map[string]any{"shipment": wire}); err != nil {
		return Shipment{}, fmt.Errorf("shipit: encode payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve("/shipments"), &buf)
	if err != nil {
		return Shipment{}, fmt.Errorf("shipit: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/vnd.shipit.v4")
	httpReq.Header.Set("X-Shipit-Email", c.email)
	httpReq.Header.Set("X-Shipit-Access-Token", c.token)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Shipment{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return Shipment{}, c.errorFromResponse(resp)
	}

	var shipment Shipment
	if err := json.NewDecoder(resp.Body).Decode(&shipment); err != nil {
		return Shipment{}, fmt.Errorf("shipit: decode shipment: %w", err)
	}
	return shipment, nil
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
