package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Lixing-Zhang/farmstand/internal/models"
	"github.com/Lixing-Zhang/farmstand/internal/service"
	"github.com/go-chi/chi/v5"
)

// ProductHandler handles product-related HTTP requests
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(service *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger,
	}
}

type productListView struct {
	Products []models.Product `json:"products"`
	Category string           `json:"category"`
}

type productFormView struct {
	Product    *models.Product   `json:"product,omitempty"`
	Categories []models.Category `json:"categories"`
}

// ListProducts handles GET /products
// An optional ?category= narrows the listing; without it the view is labeled "All".
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) error {
	products, label, err := h.service.ListProducts(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		return err
	}

	WriteJSON(w, http.StatusOK, productListView{Products: products, Category: label}, h.logger)
	return nil
}

// NewProduct handles GET /products/new
func (h *ProductHandler) NewProduct(w http.ResponseWriter, r *http.Request) error {
	WriteJSON(w, http.StatusOK, productFormView{Categories: models.Categories}, h.logger)
	return nil
}

// CreateProduct handles POST /products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) error {
	input, err := decodeProductInput(r)
	if err != nil {
		return err
	}

	product, err := h.service.CreateProduct(r.Context(), input)
	if err != nil {
		return err
	}

	redirect(w, r, "/products/"+product.ID.Hex())
	return nil
}

// GetProduct handles GET /products/{productId}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) error {
	detail, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		return err
	}

	WriteJSON(w, http.StatusOK, detail, h.logger)
	return nil
}

// EditProduct handles GET /products/{productId}/edit
func (h *ProductHandler) EditProduct(w http.ResponseWriter, r *http.Request) error {
	product, err := h.service.EditProduct(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		return err
	}

	WriteJSON(w, http.StatusOK, productFormView{Product: product, Categories: models.Categories}, h.logger)
	return nil
}

// UpdateProduct handles PUT /products/{productId}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) error {
	input, err := decodeProductInput(r)
	if err != nil {
		return err
	}

	product, err := h.service.UpdateProduct(r.Context(), chi.URLParam(r, "productId"), input)
	if err != nil {
		return err
	}

	redirect(w, r, "/products/"+product.ID.Hex())
	return nil
}

// DeleteProduct handles DELETE /products/{productId}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) error {
	productID := chi.URLParam(r, "productId")
	if err := h.service.DeleteProduct(r.Context(), productID); err != nil {
		return err
	}

	h.logger.Info("product deleted", "productId", productID)
	redirect(w, r, "/products")
	return nil
}
