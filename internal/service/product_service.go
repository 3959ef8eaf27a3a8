package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Lixing-Zhang/farmstand/internal/apperrors"
	"github.com/Lixing-Zhang/farmstand/internal/models"
	"github.com/Lixing-Zhang/farmstand/internal/repository"
)

// AllCategoriesLabel labels an unfiltered product listing.
const AllCategoriesLabel = "All"

func errProductNotFound() error {
	return apperrors.NotFound("Product not found")
}

// ProductDetail is a product with the name of the farm that owns it.
// Farm is nil for unowned products and for dangling back-references.
type ProductDetail struct {
	Product models.Product      `json:"product"`
	Farm    *models.FarmSummary `json:"farm"`
}

// ProductService handles business logic for products
type ProductService struct {
	store    repository.Store
	validate *Validator
	logger   *slog.Logger
}

// NewProductService creates a new product service
func NewProductService(store repository.Store, validate *Validator, logger *slog.Logger) *ProductService {
	return &ProductService{
		store:    store,
		validate: validate,
		logger:   logger,
	}
}

// ListProducts returns the products in category, or every product when
// category is empty, together with the label for the listing.
func (s *ProductService) ListProducts(ctx context.Context, category string) ([]models.Product, string, error) {
	filter := repository.ProductFilter{Category: models.ParseCategory(category)}

	products, err := s.store.Products().Find(ctx, filter)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list products: %w", err)
	}

	label := AllCategoriesLabel
	if filter.Category != "" {
		label = string(filter.Category)
	}
	return products, label, nil
}

// CreateProduct validates and stores a product without an owning farm.
func (s *ProductService) CreateProduct(ctx context.Context, input models.ProductInput) (*models.Product, error) {
	if err := s.validate.Struct("Product", input); err != nil {
		return nil, err
	}

	p := input.Product()
	if err := s.store.Products().Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	// A store that yields no identifier has not persisted anything usable.
	if p.ID.IsZero() {
		return nil, errProductNotFound()
	}

	s.logger.Info("product created", "product_id", p.ID.Hex(), "category", p.Category)
	return p, nil
}

// GetProduct returns a product and, when it resolves, its farm's name.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*ProductDetail, error) {
	p, err := s.findProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &ProductDetail{Product: *p}
	if p.Farm == nil {
		return detail, nil
	}

	farm, err := s.store.Farms().FindByID(ctx, *p.Farm)
	switch {
	case errors.Is(err, repository.ErrFarmNotFound):
		s.logger.Warn("product references a missing farm", "product_id", id, "farm_id", p.Farm.Hex())
	case err != nil:
		return nil, fmt.Errorf("failed to resolve farm: %w", err)
	default:
		detail.Farm = &models.FarmSummary{ID: farm.ID, Name: farm.Name}
	}
	return detail, nil
}

// EditProduct returns the product shown in the edit form.
func (s *ProductService) EditProduct(ctx context.Context, id string) (*models.Product, error) {
	return s.findProduct(ctx, id)
}

// UpdateProduct re-validates every field and replaces them on the stored product.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, input models.ProductInput) (*models.Product, error) {
	oid, err := repository.ParseID(id)
	if err != nil {
		return nil, errProductNotFound()
	}
	if err := s.validate.Struct("Product", input); err != nil {
		return nil, err
	}

	p := input.Product()
	p.ID = oid
	updated, err := s.store.Products().Update(ctx, p)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, errProductNotFound()
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return updated, nil
}

// DeleteProduct removes a product and drops it from its farm's list.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	oid, err := repository.ParseID(id)
	if err != nil {
		return errProductNotFound()
	}

	return s.store.WithinTx(ctx, func(ctx context.Context) error {
		deleted, err := s.store.Products().Delete(ctx, oid)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return errProductNotFound()
			}
			return fmt.Errorf("failed to delete product: %w", err)
		}
		repository.Compensate(ctx, func(ctx context.Context) error {
			return s.store.Products().Create(ctx, deleted)
		})

		if deleted.Farm == nil {
			return nil
		}
		err = s.store.Farms().RemoveProduct(ctx, *deleted.Farm, oid)
		if err != nil && !errors.Is(err, repository.ErrFarmNotFound) {
			return fmt.Errorf("failed to unlink product from farm: %w", err)
		}
		return nil
	})
}

func (s *ProductService) findProduct(ctx context.Context, id string) (*models.Product, error) {
	oid, err := repository.ParseID(id)
	if err != nil {
		return nil, errProductNotFound()
	}

	p, err := s.store.Products().FindByID(ctx, oid)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, errProductNotFound()
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}
