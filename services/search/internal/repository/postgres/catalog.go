package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/Anitha-22/myecommerce/pkg/database"
	apperrors "github.com/Anitha-22/myecommerce/pkg/errors"
	"github.com/Anitha-22/myecommerce/services/search/internal/domain"
	"github.com/Anitha-22/myecommerce/services/search/internal/repository"
)

const productColumns = `p.id, p.name, p.description, p.mrp_price::float8, p.discount_price::float8, p.quantity, p.category_id, c.name`

const listProductsSQL = `
		SELECT ` + productColumns + `
		FROM products p
		JOIN categories c ON p.category_id = c.id
		ORDER BY p.id
		LIMIT $1 OFFSET $2`

const getProductSQL = `
		SELECT ` + productColumns + `
		FROM products p
		JOIN categories c ON p.category_id = c.id
		WHERE p.id = $1`

const countProductsSQL = `SELECT COUNT(*) FROM products`

const upsertCategorySQL = `
		INSERT INTO categories (name, description)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description
		RETURNING id`

const insertProductSQL = `
		INSERT INTO products (name, description, mrp_price, discount_price, quantity, category_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

// CatalogRepository implements repository.CatalogStore using PostgreSQL.
type CatalogRepository struct {
	db database.DBTX
}

var _ repository.CatalogStore = (*CatalogRepository)(nil)

// NewCatalogRepository creates a new PostgreSQL-backed catalog repository.
func NewCatalogRepository(db database.DBTX) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListProducts returns one page of products with their category names.
func (r *CatalogRepository) ListProducts(ctx context.Context, limit, offset int) (products []domain.Product, err error) {
	ctx, end := database.TraceQuery(ctx, "ListProducts", listProductsSQL)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, listProductsSQL, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, nil
}

// CountProducts returns the total number of products.
func (r *CatalogRepository) CountProducts(ctx context.Context) (n int64, err error) {
	ctx, end := database.TraceQuery(ctx, "CountProducts", countProductsSQL)
	defer func() { end(err) }()

	if err := r.db.QueryRow(ctx, countProductsSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// GetProduct retrieves a product by its ID.
func (r *CatalogRepository) GetProduct(ctx context.Context, id int64) (_ *domain.Product, err error) {
	ctx, end := database.TraceQuery(ctx, "GetProduct", getProductSQL)
	defer func() { end(err) }()

	p, err := scanProduct(r.db.QueryRow(ctx, getProductSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

// UpsertCategory inserts or updates a category by name and returns its ID.
func (r *CatalogRepository) UpsertCategory(ctx context.Context, category domain.Category) (id int, err error) {
	ctx, end := database.TraceQuery(ctx, "UpsertCategory", upsertCategorySQL)
	defer func() { end(err) }()

	if err := r.db.QueryRow(ctx, upsertCategorySQL, category.Name, category.Description).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert category %q: %w", category.Name, err)
	}
	return id, nil
}

// InsertProduct stores a new product and returns its ID.
func (r *CatalogRepository) InsertProduct(ctx context.Context, product domain.NewProduct, categoryID int) (id int64, err error) {
	ctx, end := database.TraceQuery(ctx, "InsertProduct", insertProductSQL)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, insertProductSQL,
		product.Name,
		product.Description,
		product.MRPPrice,
		product.DiscountPrice,
		product.Quantity,
		categoryID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert product %q: %w", product.Name, err)
	}
	return id, nil
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.MRPPrice,
		&p.DiscountPrice,
		&p.Quantity,
		&p.CategoryID,
		&p.CategoryName,
	)
	return p, err
}
