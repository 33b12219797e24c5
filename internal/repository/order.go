package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/deepseashop/storefront/internal/domain/order"
)

const (
	// Locks the cart rows and the referenced product rows. Concurrent
	// commits touching the same product block here until the first
	// transaction finishes, so the second always sees the decremented
	// stock. This is what prevents overselling.
	checkoutLinesSQL = `SELECT c.id, c.product_id, c.quantity, p.stock, p.price
		FROM cart_lines c
		JOIN products p ON p.id = c.product_id
		WHERE c.client_id = $1
		ORDER BY c.id
		FOR UPDATE OF c, p`

	insertOrderLineSQL = `INSERT INTO order_lines (order_id, client_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)`

	decrementStockSQL = `UPDATE products SET stock = stock - $2 WHERE id = $1`

	clearCartSQL = `DELETE FROM cart_lines WHERE client_id = $1`

	orderIDsSQL = `SELECT order_id FROM order_lines
		WHERE client_id = $1
		GROUP BY order_id
		ORDER BY MIN(id)`

	orderLinesSQL = `SELECT o.product_id, p.name, p.description, o.quantity, o.unit_price
		FROM order_lines o
		JOIN products p ON p.id = o.product_id
		WHERE o.client_id = $1 AND o.order_id = $2
		ORDER BY o.id`

	orderMetricsSQL = `SELECT o.product_id, p.name,
			SUM(o.quantity)::BIGINT,
			AVG(o.unit_price),
			SUM(o.quantity * o.unit_price)::BIGINT
		FROM order_lines o
		JOIN products p ON p.id = o.product_id
		GROUP BY o.product_id, p.name
		ORDER BY o.product_id`
)

var (
	_ order.UnitOfWork = (*OrderRepository)(nil)
	_ order.Reader     = (*OrderRepository)(nil)
)

// OrderRepository implements the order unit of work and the read-only
// projections backed by PostgreSQL.
type OrderRepository struct {
	db DB
}

// NewOrderRepository returns an OrderRepository using the given pool.
func NewOrderRepository(db DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// WithinTx runs fn inside one database transaction. Rollback is deferred on
// every exit path; once fn succeeds the transaction commits and the
// deferred rollback becomes a no-op.
func (r *OrderRepository) WithinTx(ctx context.Context, fn func(tx order.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(&orderTx{tx: tx}); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(ctx), "commit transaction")
}

// orderTx implements order.Tx over a live pgx transaction.
type orderTx struct {
	tx pgx.Tx
}

func (t *orderTx) CartLinesForUpdate(ctx context.Context, clientID string) ([]order.CheckoutLine, error) {
	rows, err := t.tx.Query(ctx, checkoutLinesSQL, clientID)
	if err != nil {
		return nil, errors.Wrap(err, "lock cart lines")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.CheckoutLine, error) {
		var l order.CheckoutLine
		err := row.Scan(&l.LineID, &l.ProductID, &l.Quantity, &l.Stock, &l.Price)
		return l, err
	})
}

func (t *orderTx) InsertLines(ctx context.Context, lines []order.Line) error {
	for _, l := range lines {
		_, err := t.tx.Exec(ctx, insertOrderLineSQL,
			l.OrderID, l.ClientID, l.ProductID, l.Quantity, l.UnitPrice,
		)
		if err != nil {
			return errors.Wrapf(err, "insert order line for product %d", l.ProductID)
		}
	}
	return nil
}

func (t *orderTx) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	_, err := t.tx.Exec(ctx, decrementStockSQL, productID, quantity)
	return errors.Wrap(err, "decrement stock")
}

func (t *orderTx) ClearCart(ctx context.Context, clientID string) error {
	_, err := t.tx.Exec(ctx, clearCartSQL, clientID)
	return errors.Wrap(err, "clear cart")
}

// OrderIDs returns the distinct order identifiers committed by the client,
// oldest first.
func (r *OrderRepository) OrderIDs(ctx context.Context, clientID string) ([]string, error) {
	rows, err := r.db.Query(ctx, orderIDsSQL, clientID)
	if err != nil {
		return nil, errors.Wrap(err, "list order ids")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var id string
		err := row.Scan(&id)
		return id, err
	})
}

// Lines returns the order's lines joined with current product name and
// description. The result is empty when the order does not exist or belongs
// to another client.
func (r *OrderRepository) Lines(ctx context.Context, clientID, orderID string) ([]order.LineDetail, error) {
	rows, err := r.db.Query(ctx, orderLinesSQL, clientID, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "load order lines")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.LineDetail, error) {
		var d order.LineDetail
		err := row.Scan(&d.ProductID, &d.Name, &d.Description, &d.Quantity, &d.UnitPrice)
		return d, err
	})
}

// Metrics aggregates sales per product over the whole order store. The AVG
// aggregate produces a NUMERIC scanned into a decimal.Decimal via the
// decimal codec registered on the pool.
func (r *OrderRepository) Metrics(ctx context.Context) ([]order.ProductMetrics, error) {
	rows, err := r.db.Query(ctx, orderMetricsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "order metrics")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.ProductMetrics, error) {
		var m order.ProductMetrics
		err := row.Scan(&m.ProductID, &m.Name, &m.UnitsSold, &m.AvgUnitPrice, &m.Revenue)
		return m, err
	})
}
