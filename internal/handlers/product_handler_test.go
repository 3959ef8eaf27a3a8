package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/Lixing-Zhang/farmstand/internal/models"
	"github.com/Lixing-Zhang/farmstand/internal/repository"
	"github.com/Lixing-Zhang/farmstand/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestListProducts(t *testing.T) {
	app := newTestApp(t, false)

	w := app.get("/products")
	require.Equal(t, http.StatusOK, w.Code)

	var view productListView
	decodeJSON(t, w, &view)
	assert.Equal(t, "All", view.Category)
	assert.Len(t, view.Products, 6)
}

func TestListProducts_ByCategory(t *testing.T) {
	app := newTestApp(t, false)

	w := app.get("/products?category=dairy")
	require.Equal(t, http.StatusOK, w.Code)

	var view productListView
	decodeJSON(t, w, &view)
	assert.Equal(t, "dairy", view.Category)
	require.Len(t, view.Products, 1)
	for _, p := range view.Products {
		assert.Equal(t, models.CategoryDairy, p.Category)
	}
}

func TestNewProductForm(t *testing.T) {
	app := newTestApp(t, false)

	w := app.get("/products/new")
	require.Equal(t, http.StatusOK, w.Code)

	var view productFormView
	decodeJSON(t, w, &view)
	assert.Equal(t, models.Categories, view.Categories)
	assert.Nil(t, view.Product)
}

func TestCreateProduct_Form(t *testing.T) {
	app := newTestApp(t, false)

	w := app.postForm("/products", url.Values{
		"name":     {"Sweet Corn"},
		"price":    {"0.75"},
		"category": {"Vegetables"},
	})
	require.Equal(t, http.StatusFound, w.Code)

	location := w.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "/products/"), "unexpected redirect %q", location)

	w = app.get(location)
	require.Equal(t, http.StatusOK, w.Code)

	var detail service.ProductDetail
	decodeJSON(t, w, &detail)
	assert.Equal(t, "Sweet Corn", detail.Product.Name)
	assert.Equal(t, 0.75, detail.Product.Price)
	assert.Equal(t, models.CategoryVegetables, detail.Product.Category)
	assert.Nil(t, detail.Farm)
}

func TestCreateProduct_JSON(t *testing.T) {
	app := newTestApp(t, false)

	w := app.do(http.MethodPost, "/products",
		strings.NewReader(`{"name":"Greek Yogurt","price":3.25,"category":"dairy"}`), "application/json")
	require.Equal(t, http.StatusFound, w.Code)

	w = app.get("/products?category=dairy")
	var view productListView
	decodeJSON(t, w, &view)
	assert.Len(t, view.Products, 2)
}

func TestCreateProduct_ValidationFailure(t *testing.T) {
	tests := []struct {
		name      string
		form      url.Values
		wantField string
	}{
		{"missing name", url.Values{"price": {"1"}, "category": {"fruit"}}, "name"},
		{"missing price", url.Values{"name": {"Kiwi"}, "category": {"fruit"}}, "price"},
		{"bad category", url.Values{"name": {"Kiwi"}, "price": {"1"}, "category": {"candy"}}, "category"},
		{"price not a number", url.Values{"name": {"Kiwi"}, "price": {"cheap"}, "category": {"fruit"}}, "price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, false)

			w := app.postForm("/products", tt.form)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := w.Body.String()
			assert.True(t, strings.HasPrefix(body, "Validation failed..."), "body = %q", body)
			assert.Contains(t, body, tt.wantField)

			products, err := app.store.Products().Find(context.Background(), repository.ProductFilter{})
			require.NoError(t, err)
			assert.Len(t, products, 6, "nothing should be stored")
		})
	}
}

func TestCreateProduct_InvalidJSON(t *testing.T) {
	app := newTestApp(t, false)

	w := app.do(http.MethodPost, "/products", strings.NewReader(`{"name":`), "application/json")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", w.Body.String())
}

func TestGetProduct_NotFound(t *testing.T) {
	app := newTestApp(t, false)

	tests := []struct {
		name string
		path string
	}{
		{"unknown id", "/products/" + primitive.NewObjectID().Hex()},
		{"malformed id", "/products/999"},
		{"edit unknown id", "/products/" + primitive.NewObjectID().Hex() + "/edit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.get(tt.path)

			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Equal(t, "Product not found", w.Body.String())
		})
	}
}

func TestEditAndUpdateProduct(t *testing.T) {
	app := newTestApp(t, false)
	ctx := context.Background()

	milk, err := app.store.Products().Find(ctx, repository.ProductFilter{Category: models.CategoryDairy})
	require.NoError(t, err)
	require.Len(t, milk, 1)
	id := milk[0].ID.Hex()

	w := app.get("/products/" + id + "/edit")
	require.Equal(t, http.StatusOK, w.Code)
	var form productFormView
	decodeJSON(t, w, &form)
	require.NotNil(t, form.Product)
	assert.Equal(t, "Chocolate Whole Milk", form.Product.Name)

	// HTML forms send PUT through the _method override.
	w = app.postForm("/products/"+id+"?_method=PUT", url.Values{
		"name":     {"Strawberry Milk"},
		"price":    {"3.10"},
		"category": {"dairy"},
	})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/products/"+id, w.Header().Get("Location"))

	stored, err := app.store.Products().FindByID(ctx, milk[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Strawberry Milk", stored.Name)
	assert.Equal(t, 3.10, stored.Price)
	assert.Equal(t, models.CategoryDairy, stored.Category)
}

func TestUpdateProduct_Errors(t *testing.T) {
	app := newTestApp(t, false)
	ctx := context.Background()

	all, err := app.store.Products().Find(ctx, repository.ProductFilter{})
	require.NoError(t, err)
	id := all[0].ID.Hex()

	body := url.Values{"name": {""}, "price": {"1"}, "category": {"fruit"}}.Encode()
	w := app.do(http.MethodPut, "/products/"+id, strings.NewReader(body), "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Validation failed...")

	body = url.Values{"name": {"Kiwi"}, "price": {"1"}, "category": {"fruit"}}.Encode()
	w = app.do(http.MethodPut, "/products/"+primitive.NewObjectID().Hex(), strings.NewReader(body), "application/x-www-form-urlencoded")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Product not found", w.Body.String())
}

func TestDeleteProduct(t *testing.T) {
	app := newTestApp(t, false)
	ctx := context.Background()

	all, err := app.store.Products().Find(ctx, repository.ProductFilter{})
	require.NoError(t, err)
	id := all[0].ID.Hex()

	w := app.do(http.MethodDelete, "/products/"+id, nil, "")
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/products", w.Header().Get("Location"))

	w = app.get("/products/" + id)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(http.MethodDelete, "/products/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Product not found", w.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(t, false)

	w := app.get("/nowhere")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Page not found", w.Body.String())
}
