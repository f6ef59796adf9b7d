package repository

import (
	"context"

	"github.com/Anitha-22/myecommerce/services/search/internal/domain"
)

// CatalogStore is the relational source of truth the index is built from.
type CatalogStore interface {
	// ListProducts returns one page of products joined with their category
	// name, ordered by product ID.
	ListProducts(ctx context.Context, limit, offset int) ([]domain.Product, error)

	// CountProducts returns the number of products.
	CountProducts(ctx context.Context) (int64, error)

	// GetProduct returns a single product or a not-found error.
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)

	// UpsertCategory inserts a category by name, or updates its description
	// when it already exists, and returns its ID.
	UpsertCategory(ctx context.Context, category domain.Category) (int, error)

	// InsertProduct stores a product under categoryID and returns its ID.
	InsertProduct(ctx context.Context, product domain.NewProduct, categoryID int) (int64, error)
}
