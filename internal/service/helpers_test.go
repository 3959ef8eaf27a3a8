package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/Lixing-Zhang/farmstand/internal/apperrors"
	"github.com/Lixing-Zhang/farmstand/internal/models"
	"github.com/Lixing-Zhang/farmstand/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func price(v float64) *float64 {
	return &v
}

func statusOf(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

func isValidation(err error) bool {
	var verr *apperrors.ValidationError
	return errors.As(err, &verr)
}

func hasField(verr *apperrors.ValidationError, field string) bool {
	for _, f := range verr.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// spyStore counts product bulk deletes and can fail farm linking. With
// compensated set, units of work run the way a store without transactions
// runs them.
type spyStore struct {
	repository.Store
	products    *spyProducts
	farms       *spyFarms
	compensated bool
}

func newSpyStore() *spyStore {
	mem := repository.NewMemoryStore()
	return &spyStore{
		Store:    mem,
		products: &spyProducts{ProductRepository: mem.Products()},
		farms:    &spyFarms{FarmRepository: mem.Farms()},
	}
}

func (s *spyStore) Products() repository.ProductRepository { return s.products }

func (s *spyStore) Farms() repository.FarmRepository { return s.farms }

func (s *spyStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.compensated {
		return repository.RunCompensated(ctx, fn, discardLogger())
	}
	return s.Store.WithinTx(ctx, fn)
}

var errPartialDelete = errors.New("bulk delete interrupted")

type spyProducts struct {
	repository.ProductRepository
	deleteManyCalls int
	// partialDeleteMany > 0 deletes that many ids and then fails.
	partialDeleteMany int
	// skipCreate accepts creates without storing them or assigning an id.
	skipCreate bool
}

func (p *spyProducts) Create(ctx context.Context, product *models.Product) error {
	if p.skipCreate {
		return nil
	}
	return p.ProductRepository.Create(ctx, product)
}

func (p *spyProducts) DeleteMany(ctx context.Context, ids []primitive.ObjectID) (int64, error) {
	p.deleteManyCalls++
	if p.partialDeleteMany > 0 && p.partialDeleteMany < len(ids) {
		n, err := p.ProductRepository.DeleteMany(ctx, ids[:p.partialDeleteMany])
		if err != nil {
			return n, err
		}
		return n, errPartialDelete
	}
	return p.ProductRepository.DeleteMany(ctx, ids)
}

var errLinkFailed = errors.New("link failed")

type spyFarms struct {
	repository.FarmRepository
	failAddProduct bool
}

func (f *spyFarms) AddProduct(ctx context.Context, farmID, productID primitive.ObjectID) error {
	if f.failAddProduct {
		return errLinkFailed
	}
	return f.FarmRepository.AddProduct(ctx, farmID, productID)
}

func newServices(store repository.Store) (*ProductService, *FarmService) {
	v := NewValidator()
	log := discardLogger()
	return NewProductService(store, v, log), NewFarmService(store, v, log)
}

func mustCreateFarm(t *testing.T, farms *FarmService) *models.Farm {
	t.Helper()
	f, err := farms.CreateFarm(context.Background(), models.FarmInput{
		Name:  "Full Belly Farms",
		City:  "Guinda, CA",
		Email: "fullbelly@example.com",
	})
	if err != nil {
		t.Fatalf("CreateFarm() unexpected error = %v", err)
	}
	return f
}
