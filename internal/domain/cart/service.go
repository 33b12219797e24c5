package cart

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/deepseashop/storefront/internal/domain/product"
)

// Service implements cart mutations with an advisory stock check.
//
// The stock read and the cart write are separate storage operations, so two
// concurrent adds can both pass the check and jointly exceed stock. That
// window is accepted at this stage: the commit transaction re-validates
// every line under row locks and is the authoritative stock guard.
type Service struct {
	carts    Repository
	products product.Repository
}

// NewService creates a cart Service backed by the given repositories.
func NewService(carts Repository, products product.Repository) *Service {
	return &Service{
		carts:    carts,
		products: products,
	}
}

// Add merges delta into the client's line for the product, creating the
// line when absent. The resulting total is checked against current stock;
// on violation the cart is left unchanged and a StockError identifies the
// product.
func (s *Service) Add(ctx context.Context, clientID string, productID int64, delta int) error {
	if delta <= 0 {
		return ErrInvalidQuantity
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return errors.Wrap(err, "get product")
	}

	quantity := delta
	existing, err := s.carts.Find(ctx, clientID, productID)
	switch {
	case err == nil:
		quantity += existing.Quantity
	case errors.Is(err, ErrLineNotFound):
	default:
		return errors.Wrap(err, "find cart line")
	}

	if quantity > p.Stock {
		return &product.StockError{ProductID: productID}
	}

	return errors.Wrap(s.carts.Upsert(ctx, clientID, productID, quantity), "upsert cart line")
}

// UpdateQuantity sets a line's quantity to an absolute value (not additive).
// A non-positive quantity removes the line. On a stock violation the line
// keeps its previous quantity.
func (s *Service) UpdateQuantity(ctx context.Context, clientID string, lineID int64, quantity int) error {
	if quantity <= 0 {
		return s.Remove(ctx, clientID, lineID)
	}

	line, err := s.carts.Get(ctx, clientID, lineID)
	if err != nil {
		return errors.Wrap(err, "get cart line")
	}

	p, err := s.products.GetByID(ctx, line.ProductID)
	if err != nil {
		return errors.Wrap(err, "get product")
	}

	if quantity > p.Stock {
		return &product.StockError{ProductID: line.ProductID}
	}

	return errors.Wrap(s.carts.SetQuantity(ctx, clientID, lineID, quantity), "set quantity")
}

// Remove deletes a line. Removing an absent line is a no-op.
func (s *Service) Remove(ctx context.Context, clientID string, lineID int64) error {
	return errors.Wrap(s.carts.Delete(ctx, clientID, lineID), "delete cart line")
}

// Lines returns the client's cart lines in insertion order.
func (s *Service) Lines(ctx context.Context, clientID string) ([]Line, error) {
	return s.carts.List(ctx, clientID)
}

// LinesDetailed returns the cart joined with current product attributes.
func (s *Service) LinesDetailed(ctx context.Context, clientID string) ([]LineDetail, error) {
	return s.carts.ListDetailed(ctx, clientID)
}

// Total returns the cart value at current catalog prices.
func (s *Service) Total(ctx context.Context, clientID string) (int64, error) {
	return s.carts.Total(ctx, clientID)
}

// Count returns the number of distinct lines in the cart, not the summed
// quantity.
func (s *Service) Count(ctx context.Context, clientID string) (int, error) {
	return s.carts.Count(ctx, clientID)
}
