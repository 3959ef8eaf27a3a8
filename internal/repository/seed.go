package repository

import (
	"context"
	"fmt"

	"github.com/Lixing-Zhang/farmstand/internal/models"
)

// seedProducts is the starter inventory inserted into an empty store.
var seedProducts = []models.Product{
	{Name: "Ruby Grapefruit", Price: 1.99, Category: models.CategoryFruit},
	{Name: "Fairy Eggplant", Price: 1.00, Category: models.CategoryVegetables},
	{Name: "Organic Goddess Melon", Price: 4.99, Category: models.CategoryFruit},
	{Name: "Organic Mini Seedless Watermelon", Price: 3.99, Category: models.CategoryFruit},
	{Name: "Organic Celery", Price: 1.50, Category: models.CategoryVegetables},
	{Name: "Chocolate Whole Milk", Price: 2.69, Category: models.CategoryDairy},
}

// Seed inserts the starter products when the products collection is empty
// and returns how many were inserted.
func Seed(ctx context.Context, products ProductRepository) (int, error) {
	existing, err := products.Find(ctx, ProductFilter{})
	if err != nil {
		return 0, fmt.Errorf("failed to check existing products: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	for _, p := range seedProducts {
		if err := products.Create(ctx, &p); err != nil {
			return 0, fmt.Errorf("failed to seed %q: %w", p.Name, err)
		}
	}
	return len(seedProducts), nil
}
