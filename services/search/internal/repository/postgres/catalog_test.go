package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anitha-22/myecommerce/pkg/database"
	apperrors "github.com/Anitha-22/myecommerce/pkg/errors"
	"github.com/Anitha-22/myecommerce/services/search/internal/domain"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return mock
}

var columns = []string{
	"id", "name", "description", "mrp_price", "discount_price", "quantity", "category_id", "category_name",
}

func productRow(p domain.Product) []any {
	return []any{p.ID, p.Name, p.Description, p.MRPPrice, p.DiscountPrice, p.Quantity, p.CategoryID, p.CategoryName}
}

var jeans = domain.Product{
	ID: 1, Name: "Slim Fit Denim Jeans", MRPPrice: 1999, DiscountPrice: 1299,
	Quantity: 10, CategoryID: 2, CategoryName: "Apparel",
}

var speaker = domain.Product{
	ID: 2, Name: "Bluetooth Speaker", Description: "Portable", MRPPrice: 2999, DiscountPrice: 2499,
	Quantity: 7, CategoryID: 1, CategoryName: "Electronics",
}

func TestCatalogRepository_ListProducts(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewCatalogRepository(mock)

	mock.ExpectQuery(`FROM products p\s+JOIN categories c ON p.category_id = c.id\s+ORDER BY p.id\s+LIMIT \$1 OFFSET \$2`).
		WithArgs(100, 200).
		WillReturnRows(pgxmock.NewRows(columns).
			AddRow(productRow(jeans)...).
			AddRow(productRow(speaker)...))

	products, err := repo.ListProducts(context.Background(), 100, 200)
	require.NoError(t, err)
	assert.Equal(t, []domain.Product{jeans, speaker}, products)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepository_ListProducts_Empty(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewCatalogRepository(mock)

	mock.ExpectQuery("FROM products p").
		WithArgs(100, 0).
		WillReturnRows(pgxmock.NewRows(columns))

	products, err := repo.ListProducts(context.Background(), 100, 0)
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepository_ListProducts_QueryError(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewCatalogRepository(mock)

	mock.ExpectQuery("FROM products p").
		WithArgs(100, 0).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.ListProducts(context.Background(), 100, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list products")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepository_CountProducts(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewCatalogRepository(mock)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM products`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(42)))

	n, err := repo.CountProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepository_GetProduct(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewCatalogRepository(mock)

	mock.ExpectQuery(`WHERE p.id = \$1`).
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows(columns).AddRow(productRow(speaker)...))

	p, err := repo.GetProduct(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, speaker, *p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepository_GetProduct_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewCatalogRepository(mock)

	mock.ExpectQuery(`WHERE p.id = \$1`).
		WithArgs(int64(99)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetProduct(context.Background(), 99)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepository_UpsertCategory(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewCatalogRepository(mock)

	mock.ExpectQuery(`(?s)INSERT INTO categories.*ON CONFLICT \(name\) DO UPDATE`).
		WithArgs("Electronics", "Laptops, Phones, Gadgets").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(1))

	id, err := repo.UpsertCategory(context.Background(), domain.Category{Name: "Electronics", Description: "Laptops, Phones, Gadgets"})
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepository_InsertProduct(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewCatalogRepository(mock)

	in := domain.NewProduct{Name: "Bluetooth Speaker", Description: "Portable", MRPPrice: 2999, DiscountPrice: 2499, Quantity: 7, CategoryName: "Electronics"}

	mock.ExpectQuery(`INSERT INTO products`).
		WithArgs("Bluetooth Speaker", "Portable", 2999.0, 2499.0, 7, 1).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(2)))

	id, err := repo.InsertProduct(context.Background(), in, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepository_InsertProduct_Error(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewCatalogRepository(mock)

	mock.ExpectQuery(`INSERT INTO products`).
		WithArgs("X", "", 10.0, 5.0, 0, 3).
		WillReturnError(errors.New("violates foreign key constraint"))

	_, err := repo.InsertProduct(context.Background(), domain.NewProduct{Name: "X", MRPPrice: 10, DiscountPrice: 5}, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `insert product "X"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}
