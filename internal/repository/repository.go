package repository

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/Lixing-Zhang/farmstand/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrFarmNotFound    = errors.New("farm not found")
	ErrInvalidID       = errors.New("invalid id")
	ErrDuplicateID     = errors.New("duplicate id")
)

// ProductFilter narrows Find. An empty Category matches every product.
type ProductFilter struct {
	Category models.Category
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Find(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	// FindByIDs returns the products in the order of ids, skipping missing ones.
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error)
	// Create assigns p.ID when it is zero.
	Create(ctx context.Context, p *models.Product) error
	// Update replaces name, price and category. The farm back-reference is kept.
	Update(ctx context.Context, p *models.Product) (*models.Product, error)
	Delete(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	DeleteMany(ctx context.Context, ids []primitive.ObjectID) (int64, error)
}

// FarmRepository defines the interface for farm data access
type FarmRepository interface {
	FindAll(ctx context.Context) ([]models.Farm, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Farm, error)
	// Create assigns f.ID when it is zero.
	Create(ctx context.Context, f *models.Farm) error
	// AddProduct appends productID to the farm's list unless already present.
	AddProduct(ctx context.Context, farmID, productID primitive.ObjectID) error
	RemoveProduct(ctx context.Context, farmID, productID primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) (*models.Farm, error)
}

// TxRunner runs a unit of work. Repository calls made with the context handed
// to fn take part in it.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store is the data-access component shared by the services.
type Store interface {
	TxRunner
	Products() ProductRepository
	Farms() FarmRepository
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// ParseID converts a hex identifier from a URL into an ObjectID.
func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return id, nil
}

type compensationsKey struct{}

type compensations struct {
	mu  sync.Mutex
	fns []func(ctx context.Context) error
}

// Compensate registers fn to undo a write if the surrounding unit of work
// fails. It is a no-op when the store provides real transactions.
func Compensate(ctx context.Context, fn func(ctx context.Context) error) {
	c, ok := ctx.Value(compensationsKey{}).(*compensations)
	if !ok {
		return
	}
	c.mu.Lock()
	c.fns = append(c.fns, fn)
	c.mu.Unlock()
}

// RunCompensated is the unit of work of a store without transactions: fn
// runs without atomicity and, if it fails, the
// registered compensations newest first.
func RunCompensated(ctx context.Context, fn func(ctx context.Context) error, logger *slog.Logger) error {
	c := &compensations{}
	err := fn(context.WithValue(ctx, compensationsKey{}, c))
	if err == nil {
		return nil
	}

	undoCtx := context.WithoutCancel(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.fns) - 1; i >= 0; i-- {
		if cerr := c.fns[i](undoCtx); cerr != nil {
			logger.Error("compensating action failed", "error", cerr, "cause", err)
		}
	}
	return err
}
