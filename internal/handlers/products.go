package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/andesgear/pos-api/internal/clients/strapi"
	"github.com/andesgear/pos-api/internal/domain"
	"github.com/andesgear/pos-api/internal/platform/httpx"
	"github.com/andesgear/pos-api/internal/services"
)

// ProductHandlers exposes catalog lookups for the register UI.
type ProductHandlers struct {
	catalog services.ProductCatalog
}

// NewProductHandlers constructs handlers backed by the product catalog.
func NewProductHandlers(catalog services.ProductCatalog) *ProductHandlers {
	return &ProductHandlers{catalog: catalog}
}

// Routes wires the catalog endpoints onto the provided router.
func (h *ProductHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.searchProducts)
	r.Get("/{productID}", h.getProduct)
}

func (h *ProductHandlers) searchProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeCatalogUnavailable(ctx, w)
		return
	}

	term := strings.TrimSpace(r.URL.Query().Get("search"))
	if term == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "search query parameter is required", http.StatusBadRequest))
		return
	}

	products, err := h.catalog.SearchProducts(ctx, term)
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}

	payload := make([]productPayload, 0, len(products))
	for _, product := range products {
		payload = append(payload, buildProductPayload(product))
	}
	httpx.WriteData(w, http.StatusOK, map[string]any{
		"products": payload,
		"count":    len(payload),
	})
}

func (h *ProductHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeCatalogUnavailable(ctx, w)
		return
	}

	product, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "productID"))
	if err != nil {
		h.writeCatalogError(ctx, w, err)
		return
	}
	httpx.WriteData(w, http.StatusOK, buildProductPayload(product))
}

func (h *ProductHandlers) writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, strapi.ErrNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("product_not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, strapi.ErrInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "product catalog is unavailable", http.StatusServiceUnavailable))
	}
}

func writeCatalogUnavailable(ctx context.Context, w http.ResponseWriter) {
	httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "product catalog is unavailable", http.StatusServiceUnavailable))
}

type productPayload struct {
	ID           string `json:"id"`
	RemoteID     int64  `json:"remoteId,omitempty"`
	Name         string `json:"name"`
	SKU          string `json:"sku,omitempty"`
	Price        int64  `json:"price"`
	PriceDisplay string `json:"priceDisplay"`
	InStock      bool   `json:"inStock"`
	StockCeiling int    `json:"stockCeiling"`
}

func buildProductPayload(product domain.ProductRef) productPayload {
	return productPayload{
		ID:           product.ID,
		RemoteID:     product.RemoteID,
		Name:         product.Name,
		SKU:          product.SKU,
		Price:        product.Price,
		PriceDisplay: domain.FormatCLP(product.Price),
		InStock:      product.InStock(),
		StockCeiling: product.StockCeiling(),
	}
}
