package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Farm is a document in the farms collection. Products holds the ids of the
// products the farm owns, in the order they were added.
type Farm struct {
	ID       primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name     string               `bson:"name" json:"name"`
	City     string               `bson:"city" json:"city"`
	Email    string               `bson:"email" json:"email"`
	Products []primitive.ObjectID `bson:"products" json:"products"`
}

// HasProduct reports whether id is in the farm's product list.
func (f *Farm) HasProduct(id primitive.ObjectID) bool {
	for _, p := range f.Products {
		if p == id {
			return true
		}
	}
	return false
}

// FarmSummary is the part of a farm shown next to one of its products.
type FarmSummary struct {
	ID   primitive.ObjectID `json:"id"`
	Name string             `json:"name"`
}
