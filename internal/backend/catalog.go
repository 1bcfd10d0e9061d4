// Package backend talks to the catalog service. Every payload is decoded against one
// explicit schema; anything that does not match is a SchemaError.
package backend

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

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Cheertaboi/storefront-pricing/internal/pricing"
)

var ErrProductNotFound = errors.New("product not found")

// SchemaError reports a catalog response that does not match the product contract.
type SchemaError struct {
	Endpoint string
	Reason   string
	Err      error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("catalog %s: schema mismatch: %s", e.Endpoint, e.Reason)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// productEnvelope is the only response shape the catalog is allowed to return.
type productEnvelope struct {
	Data *productPayload `json:"data" validate:"required"`
}

type productPayload struct {
	ID      string `json:"id" validate:"required"`
	Name    string `json:"name" validate:"required"`
	Price   string `json:"price" validate:"required"`
	Image   string `json:"image,omitempty"`
	InStock *bool  `json:"in_stock" validate:"required"`
}

// Product is a catalog entry with its price already parsed.
type Product struct {
	ID      string
	Name    string
	Price   decimal.Decimal
	Image   string
	InStock bool
}

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	baseURL  string
	http     Doer
	validate *validator.Validate
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return NewClientWithDoer(baseURL, &http.Client{Timeout: timeout})
}

func NewClientWithDoer(baseURL string, doer Doer) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     doer,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// GetProduct fetches GET {base}/products/{id}.
func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	endpoint := fmt.Sprintf("%s/products/%s", c.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call catalog: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read catalog response: %w", err)
	}
	return c.decodeProduct(endpoint, body)
}

func (c *Client) decodeProduct(endpoint string, body []byte) (*Product, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()

	var env productEnvelope
	if err := dec.Decode(&env); err != nil {
		return nil, &SchemaError{Endpoint: endpoint, Reason: err.Error(), Err: err}
	}
	if err := c.validate.Struct(env); err != nil {
		return nil, &SchemaError{Endpoint: endpoint, Reason: err.Error(), Err: err}
	}

	price, err := pricing.ParseAmount(env.Data.Price)
	if err != nil {
		return nil, &SchemaError{Endpoint: endpoint, Reason: "price: " + err.Error(), Err: err}
	}

	return &Product{
		ID:      env.Data.ID,
		Name:    env.Data.Name,
		Price:   price,
		Image:   env.Data.Image,
		InStock: *env.Data.InStock,
	}, nil
}
