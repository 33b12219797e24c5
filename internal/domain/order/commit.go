package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/deepseashop/storefront/internal/domain/product"
)

// CommitService converts a cart into an immutable order. The whole
// transition runs in one unit of work; this is the only place the stock
// invariant is authoritative. Carts may transiently describe more demand
// than supply across clients, but no two commits can jointly oversell the
// same unit.
type CommitService struct {
	uow UnitOfWork
}

// NewCommitService creates a CommitService using the given unit of work.
func NewCommitService(uow UnitOfWork) *CommitService {
	return &CommitService{uow: uow}
}

// Commit validates the client's cart against current stock, snapshots
// prices, writes the order lines, decrements stock, and clears the cart,
// all or nothing. It returns the new order ID, or "" when the cart was
// empty and there was nothing to commit.
//
// The cart lines and referenced product rows are read under FOR UPDATE
// locks, so two commits contending for the same product serialize: the
// second sees the first's decrement, or waits until it does. On any
// failure, including a StockError from validation, none of the writes
// survive.
func (s *CommitService) Commit(ctx context.Context, clientID string) (string, error) {
	var orderID string
	err := s.uow.WithinTx(ctx, func(tx Tx) error {
		lines, err := tx.CartLinesForUpdate(ctx, clientID)
		if err != nil {
			return errors.Wrap(err, "read cart")
		}
		if len(lines) == 0 {
			return nil
		}

		for _, l := range lines {
			if l.Quantity > l.Stock {
				return &product.StockError{ProductID: l.ProductID}
			}
		}

		orderID = uuid.New().String()

		orderLines := make([]Line, len(lines))
		for i, l := range lines {
			orderLines[i] = Line{
				OrderID:   orderID,
				ClientID:  clientID,
				ProductID: l.ProductID,
				Quantity:  l.Quantity,
				UnitPrice: l.Price,
			}
		}
		if err := tx.InsertLines(ctx, orderLines); err != nil {
			return errors.Wrap(err, "insert order lines")
		}

		for _, l := range lines {
			if err := tx.DecrementStock(ctx, l.ProductID, l.Quantity); err != nil {
				return errors.Wrapf(err, "decrement stock for product %d", l.ProductID)
			}
		}

		return errors.Wrap(tx.ClearCart(ctx, clientID), "clear cart")
	})
	if err != nil {
		return "", err
	}
	return orderID, nil
}
