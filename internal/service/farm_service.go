package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Lixing-Zhang/farmstand/internal/apperrors"
	"github.com/Lixing-Zhang/farmstand/internal/models"
	"github.com/Lixing-Zhang/farmstand/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func errFarmNotFound() error {
	return apperrors.NotFound("Farm not found")
}

// FarmDetail is a farm with its products resolved, in the farm's order.
type FarmDetail struct {
	Farm     models.Farm      `json:"farm"`
	Products []models.Product `json:"products"`
}

// FarmService handles farms and the products they own.
type FarmService struct {
	store    repository.Store
	validate *Validator
	logger   *slog.Logger
}

// NewFarmService creates a new farm service
func NewFarmService(store repository.Store, validate *Validator, logger *slog.Logger) *FarmService {
	return &FarmService{
		store:    store,
		validate: validate,
		logger:   logger,
	}
}

// ListFarms returns every farm in insertion order.
func (s *FarmService) ListFarms(ctx context.Context) ([]models.Farm, error) {
	farms, err := s.store.Farms().FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list farms: %w", err)
	}
	return farms, nil
}

// CreateFarm validates and stores a farm with an empty product list.
func (s *FarmService) CreateFarm(ctx context.Context, input models.FarmInput) (*models.Farm, error) {
	if err := s.validate.Struct("Farm", input); err != nil {
		return nil, err
	}

	f := input.Farm()
	if err := s.store.Farms().Create(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to create farm: %w", err)
	}

	s.logger.Info("farm created", "farm_id", f.ID.Hex())
	return f, nil
}

// GetFarm returns the farm with its product list resolved to documents.
func (s *FarmService) GetFarm(ctx context.Context, id string) (*FarmDetail, error) {
	farm, err := s.findFarm(ctx, id)
	if err != nil {
		return nil, err
	}

	products, err := s.store.Products().FindByIDs(ctx, farm.Products)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve farm products: %w", err)
	}
	return &FarmDetail{Farm: *farm, Products: products}, nil
}

// AddProduct creates a product owned by the farm and appends it to the
// farm's list as one unit of work, so both references always agree.
func (s *FarmService) AddProduct(ctx context.Context, farmID string, input models.ProductInput) (*models.Product, error) {
	oid, err := repository.ParseID(farmID)
	if err != nil {
		return nil, errFarmNotFound()
	}
	if err := s.validate.Struct("Product", input); err != nil {
		return nil, err
	}

	var product *models.Product
	err = s.store.WithinTx(ctx, func(ctx context.Context) error {
		farm, err := s.store.Farms().FindByID(ctx, oid)
		if err != nil {
			if errors.Is(err, repository.ErrFarmNotFound) {
				return errFarmNotFound()
			}
			return fmt.Errorf("failed to get farm: %w", err)
		}

		product = input.Product()
		product.Farm = &farm.ID
		if err := s.store.Products().Create(ctx, product); err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		created := product.ID
		repository.Compensate(ctx, func(ctx context.Context) error {
			_, err := s.store.Products().Delete(ctx, created)
			return err
		})

		if err := s.store.Farms().AddProduct(ctx, farm.ID, product.ID); err != nil {
			if errors.Is(err, repository.ErrFarmNotFound) {
				return errFarmNotFound()
			}
			return fmt.Errorf("failed to link product to farm: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("product added to farm", "farm_id", farmID, "product_id", product.ID.Hex())
	return product, nil
}

// DeleteFarm deletes the farm and, in the same unit of work, every product
// on its list.
func (s *FarmService) DeleteFarm(ctx context.Context, id string) error {
	oid, err := repository.ParseID(id)
	if err != nil {
		return errFarmNotFound()
	}

	return s.store.WithinTx(ctx, func(ctx context.Context) error {
		farm, err := s.store.Farms().Delete(ctx, oid)
		if err != nil {
			if errors.Is(err, repository.ErrFarmNotFound) {
				return errFarmNotFound()
			}
			return fmt.Errorf("failed to delete farm: %w", err)
		}
		repository.Compensate(ctx, func(ctx context.Context) error {
			return s.restoreFarm(ctx, farm)
		})

		return s.cascadeProducts(ctx, farm)
	})
}

// cascadeProducts runs after a farm is deleted. A farm without products
// issues no product delete at all.
func (s *FarmService) cascadeProducts(ctx context.Context, farm *models.Farm) error {
	if len(farm.Products) == 0 {
		return nil
	}

	deleted, err := s.store.Products().DeleteMany(ctx, farm.Products)
	if err != nil {
		return fmt.Errorf("failed to delete farm products: %w", err)
	}

	s.logger.Info("farm products deleted", "farm_id", farm.ID.Hex(), "listed", len(farm.Products), "deleted", deleted)
	return nil
}

// restoreFarm re-creates a farm whose deletion failed part way. Products the
// cascade already removed are dropped from its list.
func (s *FarmService) restoreFarm(ctx context.Context, farm *models.Farm) error {
	remaining, err := s.store.Products().FindByIDs(ctx, farm.Products)
	if err != nil {
		return fmt.Errorf("failed to resolve farm products: %w", err)
	}

	restored := *farm
	restored.Products = make([]primitive.ObjectID, 0, len(remaining))
	for _, p := range remaining {
		restored.Products = append(restored.Products, p.ID)
	}
	if len(restored.Products) < len(farm.Products) {
		s.logger.Warn("restored farm lost products removed by the cascade",
			"farm_id", farm.ID.Hex(), "listed", len(farm.Products), "remaining", len(restored.Products))
	}
	return s.store.Farms().Create(ctx, &restored)
}

func (s *FarmService) findFarm(ctx context.Context, id string) (*models.Farm, error) {
	oid, err := repository.ParseID(id)
	if err != nil {
		return nil, errFarmNotFound()
	}

	farm, err := s.store.Farms().FindByID(ctx, oid)
	if err != nil {
		if errors.Is(err, repository.ErrFarmNotFound) {
			return nil, errFarmNotFound()
		}
		return nil, fmt.Errorf("failed to get farm: %w", err)
	}
	return farm, nil
}

// GetFarmForm returns the farm a new product form is scoped to.
func (s *FarmService) GetFarmForm(ctx context.Context, id string) (*models.Farm, error) {
	return s.findFarm(ctx, id)
}
