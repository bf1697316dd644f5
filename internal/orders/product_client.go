package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/shopmesh/shopmesh-backend/pkg/config"
)

// Deduction failures the product service reports as permanent. The consumer
// treats these as business rejections, everything else as retryable.
var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrProductNotFound   = errors.New("product not found")
)

// IsDeductionRejection reports whether a DeductStock failure is a permanent
// business outcome rather than a transient fault.
func IsDeductionRejection(err error) bool {
	return errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrProductNotFound)
}

// ProductInfo is the subset of the product record fulfillment cares about.
type ProductInfo struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

// ProductClient talks to the product service over HTTP.
type ProductClient struct {
	baseURL string
	http    *http.Client
}

// NewProductClient builds a client against the configured product service.
func NewProductClient(cfg config.ProductsConfig) *ProductClient {
	return &ProductClient{
		baseURL: cfg.ServiceURL,
		http:    &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// GetProduct fetches the authoritative product record. Any failure, including
// a 404, is returned as a plain error so lookups stay on the retry path.
func (c *ProductClient) GetProduct(ctx context.Context, productID string) (*ProductInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/api/v1/products/%s", c.baseURL, productID), nil)
	if err != nil {
		return nil, fmt.Errorf("building product request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching product %s: %w", productID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching product %s: unexpected status %d", productID, resp.StatusCode)
	}

	var envelope struct {
		Data ProductInfo `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding product %s: %w", productID, err)
	}
	return &envelope.Data, nil
}

// DeductStock asks the product service to atomically deduct quantity if
// sufficient stock remains. A 400 maps to ErrInsufficientStock and a 404 to
// ErrProductNotFound; the caller decides whether those are terminal.
func (c *ProductClient) DeductStock(ctx context.Context, productID string, quantity int) error {
	payload, err := json.Marshal(map[string]int{"quantity": quantity})
	if err != nil {
		return fmt.Errorf("encoding deduct request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/products/%s/deduct", c.baseURL, productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building deduct request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("deducting stock for %s: %w", productID, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusBadRequest, http.StatusConflict:
		return fmt.Errorf("product %s: %w", productID, ErrInsufficientStock)
	case http.StatusNotFound:
		return fmt.Errorf("product %s: %w", productID, ErrProductNotFound)
	default:
		return fmt.Errorf("deducting stock for %s: unexpected status %d", productID, resp.StatusCode)
	}
}
