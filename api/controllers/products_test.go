package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	productsvc "github.com/shopmesh/shopmesh-backend/internal/products"
	"github.com/shopmesh/shopmesh-backend/pkg/db/models"
	"github.com/shopmesh/shopmesh-backend/pkg/pagination"
)

type stubProductsRepo struct {
	product *models.Product
}

func (r *stubProductsRepo) Create(_ context.Context, product *models.Product) (*models.Product, error) {
	product.ID = uuid.New()
	r.product = product
	return product, nil
}

func (r *stubProductsRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	if r.product == nil || r.product.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return r.product, nil
}

func (r *stubProductsRepo) List(_ context.Context, _ pagination.Params, _ productsvc.ListFilters) (*productsvc.ProductList, error) {
	if r.product == nil {
		return &productsvc.ProductList{}, nil
	}
	return &productsvc.ProductList{Products: []models.Product{*r.product}}, nil
}

func (r *stubProductsRepo) Update(_ context.Context, id uuid.UUID, _ map[string]any) (*models.Product, error) {
	if r.product == nil || r.product.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return r.product, nil
}

func (r *stubProductsRepo) Delete(_ context.Context, id uuid.UUID) error {
	if r.product == nil || r.product.ID != id {
		return gorm.ErrRecordNotFound
	}
	r.product = nil
	return nil
}

func (r *stubProductsRepo) DeductStock(_ context.Context, id uuid.UUID, quantity int) (*models.Product, error) {
	if r.product == nil || r.product.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	if r.product.Stock < quantity {
		return nil, productsvc.ErrInsufficientStock
	}
	r.product.Stock -= quantity
	return r.product, nil
}

func newProductService(t *testing.T, repo *stubProductsRepo) *productsvc.Service {
	t.Helper()
	svc, err := productsvc.NewService(repo, nil, 0, testLogger())
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return svc
}

func deductVia(handler http.HandlerFunc, productID uuid.UUID, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Put("/products/{productID}/deduct", handler)

	req := httptest.NewRequest(http.MethodPut, "/products/"+productID.String()+"/deduct", strings.NewReader(body))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestDeductProductStockSuccess(t *testing.T) {
	repo := &stubProductsRepo{product: &models.Product{ID: uuid.New(), Name: "Widget", Stock: 5}}
	svc := newProductService(t, repo)

	resp := deductVia(DeductProductStock(svc, testLogger()), repo.product.ID, `{"quantity":2}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data models.Product `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Stock != 3 {
		t.Fatalf("expected stock 3 got %d", envelope.Data.Stock)
	}
}

func TestDeductProductStockInsufficientIs400(t *testing.T) {
	repo := &stubProductsRepo{product: &models.Product{ID: uuid.New(), Stock: 1}}
	svc := newProductService(t, repo)

	resp := deductVia(DeductProductStock(svc, testLogger()), repo.product.ID, `{"quantity":4}`)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestDeductProductStockMissingIs404(t *testing.T) {
	svc := newProductService(t, &stubProductsRepo{})

	resp := deductVia(DeductProductStock(svc, testLogger()), uuid.New(), `{"quantity":1}`)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestGetProductInvalidID(t *testing.T) {
	svc := newProductService(t, &stubProductsRepo{})

	r := chi.NewRouter()
	r.Get("/products/{productID}", GetProduct(svc, testLogger()))

	req := httptest.NewRequest(http.MethodGet, "/products/not-a-uuid", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
