package strapi

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

	"github.com/andesgear/pos-api/internal/domain"
)

var (
	// ErrNotFound indicates the requested entity does not exist in the content store.
	ErrNotFound = errors.New("strapi: not found")
	// ErrUnavailable indicates the content store could not be reached or answered 5xx.
	ErrUnavailable = errors.New("strapi: unavailable")
	// ErrInvalidInput indicates the content store rejected the request payload.
	ErrInvalidInput = errors.New("strapi: invalid input")
)

const defaultPageSize = 100

// HTTPClient matches the subset of http.Client used by Client.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Client talks to the content store REST API backing pedidos and productos.
type Client struct {
	base   *url.URL
	token  string
	client HTTPClient
	logger func(context.Context, string, map[string]any)
}

// Option configures optional Client behaviour.
type Option func(*Client)

// WithLogger sets the event logger used to report vocabulary fallbacks.
func WithLogger(logger func(context.Context, string, map[string]any)) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs a content store client.
func NewClient(baseURL, token string, client HTTPClient, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("strapi: base URL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("strapi: parse base URL: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	c := &Client{
		base:   parsed,
		token:  strings.TrimSpace(token),
		client: client,
		logger: func(context.Context, string, map[string]any) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// decodeOrder converts a pedido entity and logs any vocabulary value that had
// to fall back to a default. Stored records should never carry unmapped
// values, so a fallback here points at drifted content.
func (c *Client) decodeOrder(ctx context.Context, raw json.RawMessage) (domain.OrderRecord, error) {
	order, unmapped, err := orderFromEntity(raw)
	if err != nil {
		return domain.OrderRecord{}, err
	}
	if len(unmapped) > 0 {
		fields := map[string]any{"documentId": order.DocumentID}
		for key, value := range unmapped {
			fields[key] = value
		}
		c.logger(ctx, "strapi.vocabulary_fallback", fields)
	}
	return order, nil
}

// GetOrder fetches one pedido by its documentId.
func (c *Client) GetOrder(ctx context.Context, documentID string) (domain.OrderRecord, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return domain.OrderRecord{}, fmt.Errorf("%w: document id is required", ErrInvalidInput)
	}
	endpoint := path.Join("/api/pedidos", url.PathEscape(documentID))
	raw, err := c.getData(ctx, endpoint, nil)
	if err != nil {
		return domain.OrderRecord{}, err
	}
	return c.decodeOrder(ctx, raw)
}

// FindOrderByRemoteID locates a pedido through a filtered query on the remote
// store id.
func (c *Client) FindOrderByRemoteID(ctx context.Context, remoteID int64) (domain.OrderRecord, error) {
	if remoteID <= 0 {
		return domain.OrderRecord{}, fmt.Errorf("%w: remote id must be positive", ErrInvalidInput)
	}
	query := url.Values{}
	query.Set("filters[wooId][$eq]", strconv.FormatInt(remoteID, 10))
	query.Set("pagination[pageSize]", "1")

	raw, err := c.getData(ctx, "/api/pedidos", query)
	if err != nil {
		return domain.OrderRecord{}, err
	}
	entities, err := splitList(raw)
	if err != nil {
		return domain.OrderRecord{}, err
	}
	if len(entities) == 0 {
		return domain.OrderRecord{}, fmt.Errorf("%w: pedido with wooId %d", ErrNotFound, remoteID)
	}
	return c.decodeOrder(ctx, entities[0])
}

// ListOrders fetches every pedido, paging through the collection. Used as the
// last-resort identifier lookup and by the back-office order list.
func (c *Client) ListOrders(ctx context.Context) ([]domain.OrderRecord, error) {
	var out []domain.OrderRecord
	page := 1
	for {
		query := url.Values{}
		query.Set("pagination[page]", strconv.Itoa(page))
		query.Set("pagination[pageSize]", strconv.Itoa(defaultPageSize))
		query.Set("sort", "createdAt:desc")

		raw, pageMeta, err := c.getDataWithMeta(ctx, "/api/pedidos", query)
		if err != nil {
			return nil, err
		}
		entities, err := splitList(raw)
		if err != nil {
			return nil, err
		}
		for _, entity := range entities {
			order, err := c.decodeOrder(ctx, entity)
			if err != nil {
				return nil, err
			}
			out = append(out, order)
		}
		if pageMeta == nil || pageMeta.Pagination == nil || page >= pageMeta.Pagination.PageCount {
			break
		}
		page++
	}
	return out, nil
}

// UpdateOrder applies a partial update to one pedido and returns the stored
// result.
func (c *Client) UpdateOrder(ctx context.Context, documentID string, update OrderUpdate) (domain.OrderRecord, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return domain.OrderRecord{}, fmt.Errorf("%w: document id is required", ErrInvalidInput)
	}
	fields := update.payload()
	if len(fields) == 0 {
		return domain.OrderRecord{}, fmt.Errorf("%w: no fields to update", ErrInvalidInput)
	}

	endpoint := path.Join("/api/pedidos", url.PathEscape(documentID))
	body := map[string]any{"data": fields}
	req, err := c.newJSONRequest(ctx, http.MethodPut, endpoint, body)
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

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return domain.OrderRecord{}, fmt.Errorf("strapi: decode update response: %w", err)
	}
	return c.decodeOrder(ctx, env.Data)
}

// GetProduct fetches one producto by its documentId.
func (c *Client) GetProduct(ctx context.Context, documentID string) (domain.ProductRef, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return domain.ProductRef{}, fmt.Errorf("%w: document id is required", ErrInvalidInput)
	}
	endpoint := path.Join("/api/productos", url.PathEscape(documentID))
	raw, err := c.getData(ctx, endpoint, nil)
	if err != nil {
		return domain.ProductRef{}, err
	}
	return productFromEntity(raw)
}

// SearchProducts queries productos whose name or sku contains the term.
func (c *Client) SearchProducts(ctx context.Context, term string) ([]domain.ProductRef, error) {
	term = strings.TrimSpace(term)
	query := url.Values{}
	if term != "" {
		query.Set("filters[$or][0][name][$containsi]", term)
		query.Set("filters[$or][1][sku][$containsi]", term)
	}
	query.Set("pagination[pageSize]", strconv.Itoa(defaultPageSize))

	raw, err := c.getData(ctx, "/api/productos", query)
	if err != nil {
		return nil, err
	}
	entities, err := splitList(raw)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ProductRef, 0, len(entities))
	for _, entity := range entities {
		product, err := productFromEntity(entity)
		if err != nil {
			return nil, err
		}
		out = append(out, product)
	}
	return out, nil
}

func (c *Client) getData(ctx context.Context, endpoint string, query url.Values) (json.RawMessage, error) {
	raw, _, err := c.getDataWithMeta(ctx, endpoint, query)
	return raw, err
}

func (c *Client) getDataWithMeta(ctx context.Context, endpoint string, query url.Values) (json.RawMessage, *meta, error) {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, err
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, c.errorFromResponse(resp)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, nil, fmt.Errorf("strapi: decode response: %w", err)
	}
	return env.Data, env.Meta, nil
}

func splitList(raw json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] != '[' {
		// Single entity endpoints respond with an object.
		return []json.RawMessage{raw}, nil
	}
	var entities []json.RawMessage
	if err := json.Unmarshal(trimmed, &entities); err != nil {
		return nil, fmt.Errorf("strapi: decode entity list: %w", err)
	}
	return entities, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	urlStr := c.resolve(endpoint)
	req, err := http.NewRequestWithContext(ctx, method, urlStr, body)
	if err != nil {
		return nil, fmt.Errorf("strapi: build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) newJSONRequest(ctx context.Context, method, endpoint string, payload any) (*http.Request, error) {
	var buf bytes.Buffer
	if payload != nil {
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(payload); err != nil {
			return nil, fmt.Errorf("strapi: encode payload: %w", err)
		}
	}
	req, err := c.newRequest(ctx, method, endpoint, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) resolve(endpoint string) string {
	if endpoint == "" {
		return c.base.String()
	}
	trimmed := strings.TrimPrefix(endpoint, "/")
	ref := &url.URL{Path: trimmed}
	return c.base.ResolveReference(ref).String()
}

func (c *Client) errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	message := strings.TrimSpace(string(body))
	var env envelope
	if len(body) > 0 {
		if err := json.Unmarshal(body, &env); err == nil && env.Error != nil && env.Error.Message != "" {
			message = env.Error.Message
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
		return fmt.Errorf("strapi: unexpected status %d: %s", resp.StatusCode, message)
	}
}
