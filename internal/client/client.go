// Package client talks to the storefront cart API over HTTP.
package client

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
	"time"

	"github.com/SN7k/Flexova/internal/domain"
	"github.com/SN7k/Flexova/pkg/api"
	"github.com/SN7k/Flexova/pkg/circuitbreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx response from the server. It unwraps to the
// matching domain error when the code is known.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cart api: %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case api.CodeNotFound:
		return domain.ErrNotFound
	case api.CodeInvalidQuantity:
		return domain.ErrInvalidQuantity
	case api.CodeConflict:
		return domain.ErrVersionConflict
	case api.CodeUnauthorized:
		return ErrUnauthorized
	}
	// responses without a known code, e.g. from a proxy
	switch e.Status {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	}
	return nil
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New returns a client for the API rooted at baseURL. Requests carry token
// as a bearer credential.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		breaker := circuitbreaker.New(circuitbreaker.DefaultConfig("cart-api"), c.log)
		c.http = &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(breaker.Transport(http.DefaultTransport)),
		}
	}
	return c
}

func (c *Client) GetCart(ctx context.Context) (*domain.Cart, error) {
	return c.cart(ctx, http.MethodGet, "/api/cart", nil)
}

func (c *Client) AddItem(ctx context.Context, productID string, quantity int, size, color string) (*domain.Cart, error) {
	return c.cart(ctx, http.MethodPost, "/api/cart", api.AddItemRequest{
		ProductID: productID,
		Quantity:  quantity,
		Size:      size,
		Color:     color,
	})
}

func (c *Client) UpdateItem(ctx context.Context, lineID string, quantity int) (*domain.Cart, error) {
	return c.cart(ctx, http.MethodPut, "/api/cart/"+url.PathEscape(lineID), api.UpdateQuantityRequest{Quantity: quantity})
}

func (c *Client) RemoveItem(ctx context.Context, lineID string) (*domain.Cart, error) {
	return c.cart(ctx, http.MethodDelete, "/api/cart/"+url.PathEscape(lineID), nil)
}

func (c *Client) ClearCart(ctx context.Context) (*domain.Cart, error) {
	return c.cart(ctx, http.MethodDelete, "/api/cart", nil)
}

func (c *Client) Summary(ctx context.Context) (*domain.Cart, domain.Summary, error) {
	var resp api.CartSummaryResponse
	if err := c.do(ctx, http.MethodGet, "/api/cart/summary", nil, &resp); err != nil {
		return nil, domain.Summary{}, err
	}
	return resp.Cart.ToDomain(), domain.Summary{
		ItemCount:  resp.Summary.ItemCount,
		Subtotal:   domain.Money(resp.Summary.Subtotal),
		Shipping:   domain.Money(resp.Summary.Shipping),
		Tax:        domain.Money(resp.Summary.Tax),
		GrandTotal: domain.Money(resp.Summary.GrandTotal),
	}, nil
}

// GetProduct reads a catalog entry. No token is needed.
func (c *Client) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	if err := c.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) cart(ctx context.Context, method, path string, body interface{}) (*domain.Cart, error) {
	var out api.Cart
	if err := c.do(ctx, method, path, body, &out); err != nil {
		return nil, err
	}
	return out.ToDomain(), nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e api.ErrorResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&e); err == nil {
			apiErr.Code, apiErr.Message = e.Code, e.Error
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		c.log.Debug("cart api error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("code", apiErr.Code),
		)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
