package product

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// StockError signals that a requested quantity cannot be satisfied by a
// product's current stock. Cart mutations raise it as an advisory early
// check; the order commit transaction raises it as the authoritative one.
// It carries the offending product so callers can render a targeted message.
type StockError struct {
	ProductID int64
}

func (e *StockError) Error() string {
	return fmt.Sprintf("not enough stock for product %d", e.ProductID)
}

// Product represents a catalog item available for purchase. Stock counts
// unreserved inventory and never goes negative. Price is expressed in the
// smallest currency unit.
type Product struct {
	ID          int64
	Name        string
	Stock       int
	Price       int64
	Description string
	Category    string
}

// Sort selects the ordering of a filtered catalog listing. Values map to a
// whitelisted ORDER BY clause in the repository; unknown values fall back
// to the stable id order.
type Sort string

const (
	SortDefault   Sort = ""
	SortPriceDesc Sort = "price-htl"
	SortPriceAsc  Sort = "price-lth"
	SortStockDesc Sort = "quantity"
)

// Filter narrows a catalog listing. Category and Search are independently
// optional and combine with AND.
type Filter struct {
	Category string
	Search   string
	Sort     Sort
}

// Repository defines catalog persistence. The cart and order services only
// consume the read paths; Upsert and Restock belong to the catalog
// administration tooling (seed-db, catalog-ingest).
type Repository interface {
	List(ctx context.Context, limit, offset int) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	Filter(ctx context.Context, f Filter) ([]Product, error)
	Upsert(ctx context.Context, p *Product) error
	Restock(ctx context.Context, id int64, delta int) error
}
