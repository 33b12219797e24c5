package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/deepseashop/storefront/internal/domain/cart"
)

const (
	findCartLineSQL = `SELECT id, client_id, product_id, quantity
		FROM cart_lines WHERE client_id = $1 AND product_id = $2`

	getCartLineSQL = `SELECT id, client_id, product_id, quantity
		FROM cart_lines WHERE client_id = $1 AND id = $2`

	upsertCartLineSQL = `INSERT INTO cart_lines (client_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (client_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`

	setCartQuantitySQL = `UPDATE cart_lines SET quantity = $3
		WHERE client_id = $1 AND id = $2`

	deleteCartLineSQL = `DELETE FROM cart_lines WHERE client_id = $1 AND id = $2`

	listCartSQL = `SELECT id, client_id, product_id, quantity
		FROM cart_lines WHERE client_id = $1 ORDER BY id`

	listCartDetailedSQL = `SELECT c.id, c.client_id, c.product_id, c.quantity,
			p.name, p.price, p.stock, p.description
		FROM cart_lines c
		JOIN products p ON p.id = c.product_id
		WHERE c.client_id = $1
		ORDER BY c.id`

	cartTotalSQL = `SELECT COALESCE(SUM(c.quantity * p.price), 0)
		FROM cart_lines c
		JOIN products p ON p.id = c.product_id
		WHERE c.client_id = $1`

	cartCountSQL = `SELECT COUNT(*) FROM cart_lines WHERE client_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. The
// (client_id, product_id) unique constraint enforces merge-on-add at the
// storage level.
type CartRepository struct {
	db DB
}

// NewCartRepository returns a CartRepository using the given pool.
func NewCartRepository(db DB) *CartRepository {
	return &CartRepository{db: db}
}

// Find returns the client's line for a product, or cart.ErrLineNotFound.
func (r *CartRepository) Find(ctx context.Context, clientID string, productID int64) (*cart.Line, error) {
	return r.one(ctx, findCartLineSQL, clientID, productID)
}

// Get returns a line by its identifier, scoped to the client.
func (r *CartRepository) Get(ctx context.Context, clientID string, lineID int64) (*cart.Line, error) {
	return r.one(ctx, getCartLineSQL, clientID, lineID)
}

func (r *CartRepository) one(ctx context.Context, sql string, args ...any) (*cart.Line, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query cart line")
	}

	line, err := pgx.CollectExactlyOneRow(rows, scanCartLine)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrLineNotFound
		}
		return nil, errors.Wrap(err, "query cart line")
	}
	return &line, nil
}

// Upsert sets the client's line for a product to an absolute quantity,
// creating the line when absent.
func (r *CartRepository) Upsert(ctx context.Context, clientID string, productID int64, quantity int) error {
	_, err := r.db.Exec(ctx, upsertCartLineSQL, clientID, productID, quantity)
	return errors.Wrap(err, "upsert cart line")
}

// SetQuantity updates a line's quantity by line ID. Returns
// cart.ErrLineNotFound when the line does not exist for the client.
func (r *CartRepository) SetQuantity(ctx context.Context, clientID string, lineID int64, quantity int) error {
	tag, err := r.db.Exec(ctx, setCartQuantitySQL, clientID, lineID, quantity)
	if err != nil {
		return errors.Wrap(err, "set cart quantity")
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrLineNotFound
	}
	return nil
}

// Delete removes a line. Deleting an absent line is a no-op.
func (r *CartRepository) Delete(ctx context.Context, clientID string, lineID int64) error {
	_, err := r.db.Exec(ctx, deleteCartLineSQL, clientID, lineID)
	return errors.Wrap(err, "delete cart line")
}

// List returns the client's lines in insertion order.
func (r *CartRepository) List(ctx context.Context, clientID string) ([]cart.Line, error) {
	rows, err := r.db.Query(ctx, listCartSQL, clientID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart")
	}
	return pgx.CollectRows(rows, scanCartLine)
}

// ListDetailed returns the client's lines joined with current product data.
func (r *CartRepository) ListDetailed(ctx context.Context, clientID string) ([]cart.LineDetail, error) {
	rows, err := r.db.Query(ctx, listCartDetailedSQL, clientID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart detailed")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.LineDetail, error) {
		var d cart.LineDetail
		err := row.Scan(
			&d.ID, &d.ClientID, &d.ProductID, &d.Quantity,
			&d.Name, &d.Price, &d.Stock, &d.Description,
		)
		return d, err
	})
}

// Total returns the cart value at current catalog prices, in the smallest
// currency unit. An empty cart totals zero.
func (r *CartRepository) Total(ctx context.Context, clientID string) (int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, cartTotalSQL, clientID).Scan(&total); err != nil {
		return 0, errors.Wrap(err, "cart total")
	}
	return total, nil
}

// Count returns the number of distinct lines in the client's cart.
func (r *CartRepository) Count(ctx context.Context, clientID string) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, cartCountSQL, clientID).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "cart count")
	}
	return count, nil
}

func scanCartLine(row pgx.CollectableRow) (cart.Line, error) {
	var l cart.Line
	err := row.Scan(&l.ID, &l.ClientID, &l.ProductID, &l.Quantity)
	return l, err
}
