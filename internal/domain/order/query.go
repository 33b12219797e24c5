package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Receipt pricing constants, in currency units.
var (
	taxRate         = decimal.RequireFromString("0.32")
	shippingPerUnit = decimal.RequireFromString("13.37")
	centsPerUnit    = decimal.NewFromInt(100)
)

// Receipt is the displayable projection of one order: frozen line items
// plus derived monetary totals in currency units.
type Receipt struct {
	OrderID  string
	Lines    []LineDetail
	Net      decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// QueryService provides read-only projections over committed orders for
// receipts and sales metrics.
type QueryService struct {
	orders Reader
}

// NewQueryService creates a QueryService over the given order reader.
func NewQueryService(orders Reader) *QueryService {
	return &QueryService{orders: orders}
}

// OrderIDs returns the distinct order identifiers ever committed by the
// client, oldest first.
func (s *QueryService) OrderIDs(ctx context.Context, clientID string) ([]string, error) {
	return s.orders.OrderIDs(ctx, clientID)
}

// GetOrder returns the receipt for one of the client's orders. Quantities
// and unit prices are the frozen commit-time snapshot; product names and
// descriptions are a live catalog join.
func (s *QueryService) GetOrder(ctx context.Context, clientID, orderID string) (*Receipt, error) {
	lines, err := s.orders.Lines(ctx, clientID, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "load order lines")
	}
	if len(lines) == 0 {
		return nil, ErrNotFound
	}

	var netCents, units int64
	for _, l := range lines {
		netCents += int64(l.Quantity) * l.UnitPrice
		units += int64(l.Quantity)
	}

	net := decimal.NewFromInt(netCents).Div(centsPerUnit)
	tax := net.Mul(taxRate).Round(2)
	shipping := shippingPerUnit.Mul(decimal.NewFromInt(units))

	return &Receipt{
		OrderID:  orderID,
		Lines:    lines,
		Net:      net,
		Tax:      tax,
		Shipping: shipping,
		Total:    net.Add(tax).Add(shipping).Round(2),
	}, nil
}

// Metrics aggregates units sold, average unit price, and total revenue per
// product over the entire order store.
func (s *QueryService) Metrics(ctx context.Context) ([]ProductMetrics, error) {
	return s.orders.Metrics(ctx)
}
