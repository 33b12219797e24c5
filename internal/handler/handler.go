// Package handler exposes the storefront over HTTP: catalog browsing, cart
// mutations, and order commit and lookup. Clients are identified by a signed
// cookie; see ClientCookie.
package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/deepseashop/storefront/internal/domain/cart"
	"github.com/deepseashop/storefront/internal/domain/order"
	"github.com/deepseashop/storefront/internal/domain/product"
)

// maxBodySize bounds request bodies to keep decode memory predictable.
const maxBodySize = 1 << 16

// Handler serves the storefront API.
type Handler struct {
	products product.Repository
	carts    *cart.Service
	commits  *order.CommitService
	queries  *order.QueryService
	client   *ClientCookie
}

// New creates a Handler over the given services.
func New(
	products product.Repository,
	carts *cart.Service,
	commits *order.CommitService,
	queries *order.QueryService,
	client *ClientCookie,
) *Handler {
	return &Handler{
		products: products,
		carts:    carts,
		commits:  commits,
		queries:  queries,
		client:   client,
	}
}

// Routes builds the API router. Every cart and order route runs behind the
// client cookie middleware, so ClientIDFromContext is always populated there.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.listProducts)
		r.Get("/products/{id}", h.getProduct)

		r.Group(func(r chi.Router) {
			r.Use(h.client.Middleware)

			r.Get("/cart", h.getCart)
			r.Get("/cart/count", h.getCartCount)
			r.Post("/cart/items", h.addCartItem)
			r.Patch("/cart/items/{lineID}", h.updateCartItem)
			r.Delete("/cart/items/{lineID}", h.removeCartItem)

			r.Post("/orders", h.commitOrder)
			r.Get("/orders", h.listOrders)
			r.Get("/orders/metrics", h.orderMetrics)
			r.Get("/orders/{orderID}", h.getOrder)
		})
	})

	return r
}

// writeJSON encodes one response object with jx and writes it with the given
// status code.
func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := &jx.Encoder{}
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError maps domain errors onto HTTP status codes. Unrecognized errors
// become opaque 500s; the cause is logged, never leaked to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var stockErr *product.StockError
	switch {
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusConflict, func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("error", func(e *jx.Encoder) { e.Str("insufficient stock") })
				e.Field("product_id", func(e *jx.Encoder) { e.Int64(stockErr.ProductID) })
			})
		})
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, order.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, "not found")
	case errors.Is(err, cart.ErrInvalidQuantity):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	default:
		zctx.From(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("error", func(e *jx.Encoder) { e.Str(msg) })
		})
	})
}

// decodeBody reads a bounded request body and decodes it as a JSON object,
// dispatching each field to decode.
func decodeBody(r *http.Request, decode func(d *jx.Decoder, key string) error) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return errors.Wrap(err, "read body")
	}

	d := jx.DecodeBytes(body)
	return d.Obj(func(d *jx.Decoder, key string) error {
		return decode(d, key)
	})
}
