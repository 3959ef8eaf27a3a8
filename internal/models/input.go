package models

// ProductInput is the flat field set submitted by the product forms.
// Price is a pointer so a missing price is told apart from zero.
type ProductInput struct {
	Name     string   `json:"name" validate:"required"`
	Price    *float64 `json:"price" validate:"required,gte=0"`
	Category Category `json:"category" validate:"required,category"`
}

// Product builds the document described by the input. Call after validation.
func (in ProductInput) Product() *Product {
	p := &Product{
		Name:     in.Name,
		Category: ParseCategory(string(in.Category)),
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	return p
}

// FarmInput is the field set submitted by the farm form.
type FarmInput struct {
	Name  string `json:"name" validate:"required"`
	City  string `json:"city" validate:"required"`
	Email string `json:"email" validate:"required"`
}

// Farm builds the document described by the input.
func (in FarmInput) Farm() *Farm {
	return &Farm{Name: in.Name, City: in.City, Email: in.Email}
}
