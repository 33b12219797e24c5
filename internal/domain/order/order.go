package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when an order does not exist or was committed by
// a different client.
var ErrNotFound = errors.New("order not found")

// Line is the immutable record of one committed cart line. UnitPrice is the
// product price frozen at commit time; later catalog price changes never
// touch it. All lines sharing an OrderID were created by the same commit.
type Line struct {
	ID        int64
	OrderID   string
	ClientID  string
	ProductID int64
	Quantity  int
	UnitPrice int64
	CreatedAt time.Time
}

// LineDetail pairs the frozen quantity and unit price of an order line with
// the current product name and description. The live join is deliberate:
// receipts show current catalog wording, so renaming a product changes how
// old orders display.
type LineDetail struct {
	ProductID   int64
	Name        string
	Description string
	Quantity    int
	UnitPrice   int64
}

// ProductMetrics aggregates sales of one product across every order.
type ProductMetrics struct {
	ProductID    int64
	Name         string
	UnitsSold    int64
	AvgUnitPrice decimal.Decimal
	Revenue      int64
}

// CheckoutLine is a cart line joined with the referenced product's current
// stock and price, read under row locks inside a commit transaction.
type CheckoutLine struct {
	LineID    int64
	ProductID int64
	Quantity  int
	Stock     int
	Price     int64
}

// Tx is the transaction-scoped storage surface of a commit. Every method
// executes inside the same database transaction; CartLinesForUpdate must
// lock the cart rows and the referenced product rows so that concurrent
// commits touching the same product serialize.
type Tx interface {
	CartLinesForUpdate(ctx context.Context, clientID string) ([]CheckoutLine, error)
	InsertLines(ctx context.Context, lines []Line) error
	DecrementStock(ctx context.Context, productID int64, quantity int) error
	ClearCart(ctx context.Context, clientID string) error
}

// UnitOfWork runs fn inside a single transaction. When fn returns an error
// the transaction rolls back in full; otherwise it commits.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Reader defines the read-only projections over the order store.
type Reader interface {
	OrderIDs(ctx context.Context, clientID string) ([]string, error)
	Lines(ctx context.Context, clientID, orderID string) ([]LineDetail, error)
	Metrics(ctx context.Context) ([]ProductMetrics, error)
}
