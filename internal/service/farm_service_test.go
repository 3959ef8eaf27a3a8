package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/Lixing-Zhang/farmstand/internal/models"
	"github.com/Lixing-Zhang/farmstand/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestFarmService_CreateFarm(t *testing.T) {
	_, farms := newServices(repository.NewMemoryStore())
	ctx := context.Background()

	f := mustCreateFarm(t, farms)
	assert.False(t, f.ID.IsZero())
	assert.Empty(t, f.Products)

	_, err := farms.CreateFarm(ctx, models.FarmInput{Name: "No Email", City: "Nowhere"})
	require.Error(t, err)
	assert.True(t, isValidation(err))

	all, err := farms.ListFarms(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFarmService_AddProductLinksBothSides(t *testing.T) {
	store := repository.NewMemoryStore()
	_, farms := newServices(store)
	ctx := context.Background()

	farm := mustCreateFarm(t, farms)
	p, err := farms.AddProduct(ctx, farm.ID.Hex(), models.ProductInput{Name: "Goddess Melon", Price: price(4.99), Category: "fruit"})
	require.NoError(t, err)

	stored, err := store.Products().FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Farm)
	assert.Equal(t, farm.ID, *stored.Farm)

	detail, err := farms.GetFarm(ctx, farm.ID.Hex())
	require.NoError(t, err)
	assert.Contains(t, detail.Farm.Products, p.ID)
	require.Len(t, detail.Products, 1)
	assert.Equal(t, "Goddess Melon", detail.Products[0].Name)
}

func TestFarmService_AddProductKeepsOrder(t *testing.T) {
	_, farms := newServices(repository.NewMemoryStore())
	ctx := context.Background()

	farm := mustCreateFarm(t, farms)
	for _, name := range []string{"Eggs", "Milk", "Cheese"} {
		_, err := farms.AddProduct(ctx, farm.ID.Hex(), models.ProductInput{Name: name, Price: price(1), Category: "dairy"})
		require.NoError(t, err)
	}

	detail, err := farms.GetFarm(ctx, farm.ID.Hex())
	require.NoError(t, err)
	require.Len(t, detail.Products, 3)
	assert.Equal(t, "Eggs", detail.Products[0].Name)
	assert.Equal(t, "Cheese", detail.Products[2].Name)
}

func TestFarmService_AddProductFailedLinkLeavesNoProduct(t *testing.T) {
	store := newSpyStore()
	_, farms := newServices(store)
	ctx := context.Background()

	farm := mustCreateFarm(t, farms)
	store.farms.failAddProduct = true

	_, err := farms.AddProduct(ctx, farm.ID.Hex(), models.ProductInput{Name: "Eggs", Price: price(6), Category: "dairy"})
	require.ErrorIs(t, err, errLinkFailed)

	all, err := store.Products().Find(ctx, repository.ProductFilter{})
	require.NoError(t, err)
	assert.Empty(t, all, "product must not survive a failed link")
}

func TestFarmService_AddProductErrors(t *testing.T) {
	store := repository.NewMemoryStore()
	_, farms := newServices(store)
	ctx := context.Background()
	farm := mustCreateFarm(t, farms)

	_, err := farms.AddProduct(ctx, primitive.NewObjectID().Hex(), models.ProductInput{Name: "Eggs", Price: price(6), Category: "dairy"})
	assert.Equal(t, http.StatusNotFound, statusOf(err))
	assert.Equal(t, "Farm not found", err.Error())

	_, err = farms.AddProduct(ctx, farm.ID.Hex(), models.ProductInput{Name: "Eggs", Price: price(6), Category: "poultry"})
	assert.True(t, isValidation(err))

	all, err := store.Products().Find(ctx, repository.ProductFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFarmService_DeleteFarmCascades(t *testing.T) {
	store := newSpyStore()
	_, farms := newServices(store)
	ctx := context.Background()

	farm := mustCreateFarm(t, farms)
	var ids []primitive.ObjectID
	for _, name := range []string{"Eggs", "Milk", "Cheese"} {
		p, err := farms.AddProduct(ctx, farm.ID.Hex(), models.ProductInput{Name: name, Price: price(1), Category: "dairy"})
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	legacy := &models.Product{Name: "Celery", Price: 1.5, Category: models.CategoryVegetables}
	require.NoError(t, store.Products().Create(ctx, legacy))

	require.NoError(t, farms.DeleteFarm(ctx, farm.ID.Hex()))

	assert.Equal(t, 1, store.products.deleteManyCalls)
	for _, id := range ids {
		_, err := store.Products().FindByID(ctx, id)
		assert.ErrorIs(t, err, repository.ErrProductNotFound)
	}
	_, err := store.Products().FindByID(ctx, legacy.ID)
	assert.NoError(t, err, "products of other owners must survive")

	_, err = farms.GetFarm(ctx, farm.ID.Hex())
	assert.Equal(t, http.StatusNotFound, statusOf(err))
}

func TestFarmService_DeleteFarmInterruptedCascadeRestoresRemaining(t *testing.T) {
	store := newSpyStore()
	_, farms := newServices(store)
	ctx := context.Background()

	farm := mustCreateFarm(t, farms)
	var ids []primitive.ObjectID
	for _, name := range []string{"Eggs", "Milk", "Cheese"} {
		p, err := farms.AddProduct(ctx, farm.ID.Hex(), models.ProductInput{Name: name, Price: price(1), Category: "dairy"})
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	store.compensated = true
	store.products.partialDeleteMany = 1

	err := farms.DeleteFarm(ctx, farm.ID.Hex())
	require.ErrorIs(t, err, errPartialDelete)

	restored, err := store.Farms().FindByID(ctx, farm.ID)
	require.NoError(t, err, "farm must be restored after a failed cascade")
	assert.Equal(t, ids[1:], restored.Products)

	detail, err := farms.GetFarm(ctx, farm.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, detail.Products, len(restored.Products), "restored list must not hold dangling ids")
}

func TestFarmService_DeleteEmptyFarmSkipsProductDelete(t *testing.T) {
	store := newSpyStore()
	_, farms := newServices(store)
	ctx := context.Background()

	farm := mustCreateFarm(t, farms)
	require.NoError(t, farms.DeleteFarm(ctx, farm.ID.Hex()))

	assert.Zero(t, store.products.deleteManyCalls)
}

func TestFarmService_NotFound(t *testing.T) {
	_, farms := newServices(repository.NewMemoryStore())
	ctx := context.Background()
	missing := primitive.NewObjectID().Hex()

	tests := []struct {
		name string
		call func() error
	}{
		{"get missing", func() error { _, err := farms.GetFarm(ctx, missing); return err }},
		{"get malformed", func() error { _, err := farms.GetFarm(ctx, "xyz"); return err }},
		{"form missing", func() error { _, err := farms.GetFarmForm(ctx, missing); return err }},
		{"delete missing", func() error { return farms.DeleteFarm(ctx, missing) }},
		{"delete malformed", func() error { return farms.DeleteFarm(ctx, "xyz") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, http.StatusNotFound, statusOf(err))
		})
	}
}
