package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/deepseashop/storefront/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, name, stock, price, description, category
		FROM products ORDER BY id LIMIT $1 OFFSET $2`

	getProductByIDSQL = `SELECT id, name, stock, price, description, category
		FROM products WHERE id = $1`

	upsertProductSQL = `INSERT INTO products (id, name, stock, price, description, category)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			stock = EXCLUDED.stock,
			price = EXCLUDED.price,
			description = EXCLUDED.description,
			category = EXCLUDED.category`

	restockProductSQL = `UPDATE products SET stock = stock + $2 WHERE id = $1`
)

// sortColumns whitelists ORDER BY clauses for catalog filtering. Sort keys
// never reach the SQL text directly.
var sortColumns = map[product.Sort]string{
	product.SortPriceDesc: "price DESC",
	product.SortPriceAsc:  "price ASC",
	product.SortStockDesc: "stock DESC",
}

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	db DB
}

// NewProductRepository returns a ProductRepository using the given pool.
func NewProductRepository(db DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// List returns a page of the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context, limit, offset int) ([]product.Product, error) {
	rows, err := r.db.Query(ctx, listProductsSQL, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.db.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %d", id)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %d", id)
	}
	return &p, nil
}

// Filter returns products matching the filter. Category and search are
// independently optional and combine with AND; all values are bound as
// parameters, never concatenated into the query text.
func (r *ProductRepository) Filter(ctx context.Context, f product.Filter) ([]product.Product, error) {
	query, args := buildFilterQuery(f)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "filter products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

func buildFilterQuery(f product.Filter) (string, []any) {
	var (
		sb    strings.Builder
		conds []string
		args  []any
	)
	sb.WriteString(`SELECT id, name, stock, price, description, category FROM products`)

	if f.Category != "" {
		args = append(args, f.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}

	sb.WriteString(" ORDER BY ")
	if col, ok := sortColumns[f.Sort]; ok {
		sb.WriteString(col)
		sb.WriteString(", id")
	} else {
		sb.WriteString("id")
	}

	return sb.String(), args
}

// Upsert inserts a product or replaces all attributes of an existing one.
func (r *ProductRepository) Upsert(ctx context.Context, p *product.Product) error {
	_, err := r.db.Exec(ctx, upsertProductSQL,
		p.ID, p.Name, p.Stock, p.Price, p.Description, p.Category,
	)
	return errors.Wrapf(err, "upsert product %d", p.ID)
}

// Restock adds delta to a product's stock counter. The stock CHECK
// constraint keeps the counter non-negative for negative deltas.
func (r *ProductRepository) Restock(ctx context.Context, id int64, delta int) error {
	tag, err := r.db.Exec(ctx, restockProductSQL, id, delta)
	if err != nil {
		return errors.Wrapf(err, "restock product %d", id)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Stock, &p.Price, &p.Description, &p.Category)
	return p, err
}
