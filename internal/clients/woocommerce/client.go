package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/andesgear/pos-api/internal/domain"
)

var (
	// ErrNotConfigured indicates the remote store credentials are absent. The
	// dual-write path treats this as non-fatal.
	ErrNotConfigured = errors.New("woocommerce: not configured")
	// ErrNotFound indicates the order does not exist in the remote store.
	ErrNotFound = errors.New("woocommerce: not found")
	// ErrUnavailable indicates the remote store could not be reached, answered
	// 5xx, or the circuit breaker is open.
	ErrUnavailable = errors.New("woocommerce: unavailable")
	// ErrInvalidInput indicates the remote store rejected the payload.
	ErrInvalidInput = errors.New("woocommerce: invalid input")
)

const (
	apiPrefix           = "/wp-json/wc/v3"
	defaultWriteTimeout = 30 * time.Second
)

// HTTPClient matches the subset of http.Client used by Client.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Client talks to the remote store REST API. Read and write paths share one
// circuit breaker so a struggling store sheds both kinds of traffic.
type Client struct {
	base         *url.URL
	key          string
	secret       string
	client       HTTPClient
	writeTimeout time.Duration
	breaker      *gobreaker.CircuitBreaker[*http.Response]
	logger       func(context.Context, string, map[string]any)
}

// Config carries the construction parameters for Client.
type Config struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	WriteTimeout   time.Duration
	HTTPClient     HTTPClient
	Logger         func(context.Context, string, map[string]any)
}

// NewClient constructs a remote store client. An empty base URL yields a
// client whose every call fails with ErrNotConfigured, so callers do not need
// to special-case an unconfigured store.
func NewClient(cfg Config) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return &Client{logger: logger}, nil
	}
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("woocommerce: parse base URL: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "woocommerce",
		MaxRequests: 3,
		Interval:    15 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
	})

	return &Client{
		base:         parsed,
		key:          strings.TrimSpace(cfg.ConsumerKey),
		secret:       strings.TrimSpace(cfg.ConsumerSecret),
		client:       httpClient,
		writeTimeout: writeTimeout,
		breaker:      breaker,
		logger:       logger,
	}, nil
}

// decodeOrder converts a wire order and logs any vocabulary value that had to
// fall back to a default.
func (c *Client) decodeOrder(ctx context.Context, wire orderWire) domain.OrderRecord {
	record, unmapped := wire.toDomain()
	if len(unmapped) > 0 {
		fields := map[string]any{"orderId": record.RemoteID}
		for key, value := range unmapped {
			fields[key] = value
		}
		c.logger(ctx, "woocommerce.vocabulary_fallback", fields)
	}
	return record
}

// Configured reports whether remote store credentials were provided.
func (c *Client) Configured() bool {
	return c != nil && c.base != nil
}

// CreateOrder submits a new order and returns the created record. The write
// path enforces the store-side abort timeout.
func (c *Client) CreateOrder(ctx context.Context, sub domain.OrderSubmission, status domain.OrderStatus) (domain.OrderRecord, error) {
	if !c.Configured() {
		return domain.OrderRecord{}, ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()

	wire := orderWireFromSubmission(sub, status)
	req, err := c.newJSONRequest(ctx, http.MethodPost, apiPrefix+"/orders", wire)
	if err != nil {
		return domain.OrderRecord{}, err
	}
	resp, err := c.do(req)
	if err != nil {
		return domain.OrderRecord{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return domain.OrderRecord{}, c.errorFromResponse(resp)
	}

	var created orderWire
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return domain.OrderRecord{}, fmt.Errorf("woocommerce: decode created order: %w", err)
	}
	return c.decodeOrder(ctx, created), nil
}

// GetOrder fetches one order by its numeric id.
func (c *Client) GetOrder(ctx context.Context, id int64) (domain.OrderRecord, error) {
	if !c.Configured() {
		return domain.OrderRecord{}, ErrNotConfigured
	}
	if id <= 0 {
		return domain.OrderRecord{}, fmt.Errorf("%w: order id must be positive", ErrInvalidInput)
	}
	endpoint := path.Join(apiPrefix, "orders", strconv.FormatInt(id, 10))
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.OrderRecord{}, err
	}
	resp, err := c.do(req)
	if err != nil {
		return domain.OrderRecord{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.OrderRecord{}, c.errorFromResponse(resp)
	}

	var wire orderWire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return domain.OrderRecord{}, fmt.Errorf("woocommerce: decode order: %w", err)
	}
	return c.decodeOrder(ctx, wire), nil
}

// UpdateOrderStatus writes a new status for one order. The write path enforces
// the store-side abort timeout.
func (c *Client) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (domain.OrderRecord, error) {
	if !c.Configured() {
		return domain.OrderRecord{}, ErrNotConfigured
	}
	if id <= 0 {
		return domain.OrderRecord{}, fmt.Errorf("%w: order id must be positive", ErrInvalidInput)
	}
	if !domain.ValidOrderStatus(status) {
		return domain.OrderRecord{}, fmt.Errorf("%w: status %q", ErrInvalidInput, status)
	}
	ctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()

	endpoint := path.Join(apiPrefix, "orders", strconv.FormatInt(id, 10))
	req, err := c.newJSONRequest(ctx, http.MethodPut, endpoint, map[string]string{"status": string(status)})
	if err != nil {
		return domain.OrderRecord{}, err
	}
	resp, err := c.do(req)
	if err != nil {
		return domain.OrderRecord{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.OrderRecord{}, c.errorFromResponse(resp)
	}

	var wire orderWire
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return domain.OrderRecord{}, fmt.Errorf("woocommerce: decode updated order: %w", err)
	}
	return c.decodeOrder(ctx, wire), nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			// Count upstream 5xx against the breaker without losing the body.
			return resp, errServerStatus
		}
		return resp, nil
	})
	switch {
	case err == nil:
		return resp, nil
	case errors.Is(err, errServerStatus):
		return resp, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%w: circuit open", ErrUnavailable)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

var errServerStatus = errors.New("woocommerce: upstream 5xx")

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	trimmed := strings.TrimPrefix(endpoint, "/")
	ref := &url.URL{Path: trimmed}
	urlStr := c.base.ResolveReference(ref).String()

	req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return nil, fmt.Errorf("woocommerce: build request: %w", err)
	}
	if c.key != "" {
		req.SetBasicAuth(c.key, c.secret)
	}
	return req, nil
}

func (c *Client) newJSONRequest(ctx context.Context, method, endpoint string, payload any) (*http.Request, error) {
	var buf bytes.Buffer
	if payload != nil {
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(payload); err != nil {
			return nil, fmt.Errorf("woocommerce: encode payload: %w", err)
		}
	}
	req, err := c.newRequest(ctx, method, endpoint, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	message := strings.TrimSpace(string(body))
	var wire errorWire
	if len(body) > 0 {
		if err := json.Unmarshal(body, &wire); err == nil && wire.Message != "" {
			message = wire.Message
			if wire.Code != "" {
				message = wire.Code + ": " + message
			}
		}
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, message)
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, message)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", ErrInvalidInput, message)
	default:
		return fmt.Errorf("woocommerce: unexpected status %d: %s", resp.StatusCode, message)
	}
}
