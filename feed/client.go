package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/poiesic/catalogsync/core"
)

// DefaultTimeout bounds each feed request.
const DefaultTimeout = 30 * time.Second

// maxBodyBytes caps how much of a feed body is read.
const maxBodyBytes = 64 << 20

// Client fetches the store directory and product feeds over HTTP.
type Client struct {
	storesURL  string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client) error

// WithTimeout sets the per-request timeout.
// Default is DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) error {
		if timeout <= 0 {
			return fmt.Errorf("feed timeout must be positive, got %s", timeout)
		}
		c.httpClient.Timeout = timeout
		return nil
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) error {
		if client != nil {
			c.httpClient = client
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewClient creates a feed client for the given store directory URL.
func NewClient(storesURL string, opts ...Option) (*Client, error) {
	if storesURL == "" {
		return nil, ErrStoresURLRequired
	}

	c := &Client{
		storesURL:  storesURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	c.logger = c.logger.With("component", "feed-client")
	return c, nil
}

// FetchStores retrieves the store directory.
// Any transport, status or decode problem is returned as a feed failure scoped to "stores".
func (c *Client) FetchStores(ctx context.Context) ([]core.Store, error) {
	elements, err := c.fetchArray(ctx, c.storesURL)
	if err != nil {
		return nil, core.NewFailure(core.KindFeed, "stores", err)
	}

	stores := make([]core.Store, 0, len(elements))
	for i, raw := range elements {
		var store core.Store
		if err := json.Unmarshal(raw, &store); err != nil {
			return nil, core.NewFailure(core.KindFeed, "stores",
				fmt.Errorf("decode store #%d: %w", i+1, err))
		}
		stores = append(stores, store)
	}

	c.logger.Debug("fetched stores", "count", len(stores))
	return stores, nil
}

// FetchProducts retrieves the product feed of a store.
// The store is validated first; an invalid entry is reported as a feed failure
// scoped to that store without any network activity.
// Elements that do not decode are returned with DecodeErr set rather than
// failing the store.
func (c *Client) FetchProducts(ctx context.Context, store *core.Store) ([]core.Product, error) {
	if err := core.ValidateStore(store); err != nil {
		scope := ""
		if store != nil {
			scope = "store " + store.ID.String()
		}
		return nil, core.NewFailure(core.KindFeed, scope, err)
	}

	scope := "store " + store.ID.String()
	elements, err := c.fetchArray(ctx, store.ProductFeedURL)
	if err != nil {
		return nil, core.NewFailure(core.KindFeed, scope, err)
	}

	products := make([]core.Product, 0, len(elements))
	for i, raw := range elements {
		product := core.DecodeProduct(raw)
		if product.DecodeErr != nil {
			c.logger.Warn("malformed product", "store", store.ID, "index", i, "product", product.ID, "err", product.DecodeErr)
		}
		products = append(products, product)
	}

	c.logger.Debug("fetched products", "store", store.ID, "count", len(products))
	return products, nil
}

// fetchArray performs one GET and splits the body into array elements.
func (c *Client) fetchArray(ctx context.Context, url string) ([]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '[' {
		return nil, ErrNotArray
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(body, &elements); err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	return elements, nil
}
