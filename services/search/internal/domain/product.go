package domain

import "strconv"

// Product is the authoritative catalog record as read from the relational
// store, joined with its category name.
type Product struct {
	ID            int64
	Name          string
	Description   string
	MRPPrice      float64
	DiscountPrice float64
	Quantity      int
	CategoryID    int
	CategoryName  string
}

// DocumentID is the index document ID for the product.
func (p Product) DocumentID() string {
	return strconv.FormatInt(p.ID, 10)
}

// Document returns the denormalized projection stored in the search index.
func (p Product) Document() ProductDocument {
	return ProductDocument{
		Name:          p.Name,
		Description:   p.Description,
		MRPPrice:      p.MRPPrice,
		DiscountPrice: p.DiscountPrice,
		Quantity:      p.Quantity,
		CategoryID:    p.CategoryID,
		CategoryName:  p.CategoryName,
	}
}

// ProductDocument is the _source of an indexed product.
type ProductDocument struct {
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	MRPPrice      float64 `json:"mrp_price"`
	DiscountPrice float64 `json:"discount_price"`
	Quantity      int     `json:"quantity"`
	CategoryID    int     `json:"category_id"`
	CategoryName  string  `json:"category_name"`
}

// ProductHit is one ranked search hit: the document ID plus its flattened
// source fields.
type ProductHit struct {
	ID string `json:"id"`
	ProductDocument
	Score float64 `json:"-"`
}

// Category is a product category.
type Category struct {
	ID          int    `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name" validate:"required,notblank"`
	Description string `json:"description,omitempty" yaml:"description"`
}

// NewProduct is the input for creating a catalog product.
type NewProduct struct {
	Name          string  `json:"name" yaml:"name" validate:"required,notblank"`
	Description   string  `json:"description" yaml:"description"`
	MRPPrice      float64 `json:"mrp_price" yaml:"mrp_price" validate:"gt=0"`
	DiscountPrice float64 `json:"discount_price" yaml:"discount_price" validate:"gt=0,ltefield=MRPPrice"`
	Quantity      int     `json:"quantity" yaml:"quantity" validate:"gte=0"`
	CategoryName  string  `json:"category_name" yaml:"category" validate:"required,notblank"`
}
