package cart

import (
	"context"

	"github.com/go-faster/errors"
)

// Sentinel errors for cart operations.
var (
	ErrLineNotFound    = errors.New("cart line not found")
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
)

// Line is one pending, mutable, client-scoped demand entry for a product.
// A client holds at most one line per product: adds merge into the existing
// line instead of creating duplicates.
type Line struct {
	ID        int64
	ClientID  string
	ProductID int64
	Quantity  int
}

// LineDetail is a cart line joined with current product attributes. Price
// and stock are live reads, not snapshots, so cart totals float with catalog
// changes until the cart is committed.
type LineDetail struct {
	Line
	Name        string
	Price       int64
	Stock       int
	Description string
}

// Repository defines persistence for cart lines. Listings preserve stable
// insertion order. Find and Get return ErrLineNotFound for missing lines;
// SetQuantity returns ErrLineNotFound when the target line does not exist.
type Repository interface {
	Find(ctx context.Context, clientID string, productID int64) (*Line, error)
	Get(ctx context.Context, clientID string, lineID int64) (*Line, error)
	Upsert(ctx context.Context, clientID string, productID int64, quantity int) error
	SetQuantity(ctx context.Context, clientID string, lineID int64, quantity int) error
	Delete(ctx context.Context, clientID string, lineID int64) error
	List(ctx context.Context, clientID string) ([]Line, error)
	ListDetailed(ctx context.Context, clientID string) ([]LineDetail, error)
	Total(ctx context.Context, clientID string) (int64, error)
	Count(ctx context.Context, clientID string) (int, error)
}
