package models

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category is the closed set of product categories.
type Category string

const (
	CategoryFruit      Category = "fruit"
	CategoryVegetables Category = "vegetables"
	CategoryDairy      Category = "dairy"
)

// Categories lists every valid category in display order.
var Categories = []Category{CategoryFruit, CategoryVegetables, CategoryDairy}

// ParseCategory lower-cases and trims raw input. The result is not validated.
func ParseCategory(raw string) Category {
	return Category(strings.ToLower(strings.TrimSpace(raw)))
}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Product is a document in the products collection.
// Farm is nil for products created before farms existed.
type Product struct {
	ID       primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name     string              `bson:"name" json:"name"`
	Price    float64             `bson:"price" json:"price"`
	Category Category            `bson:"category" json:"category"`
	Farm     *primitive.ObjectID `bson:"farm,omitempty" json:"farm,omitempty"`
}
