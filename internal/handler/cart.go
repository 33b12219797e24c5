package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/deepseashop/storefront/internal/domain/cart"
)

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	clientID := ClientIDFromContext(r.Context())

	lines, err := h.carts.LinesDetailed(r.Context(), clientID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, err := h.carts.Total(r.Context(), clientID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("lines", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for i := range lines {
						encodeCartLine(e, &lines[i])
					}
				})
			})
			e.Field("total", func(e *jx.Encoder) { e.Int64(total) })
		})
	})
}

func (h *Handler) getCartCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.carts.Count(r.Context(), ClientIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("count", func(e *jx.Encoder) { e.Int(count) })
		})
	})
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var (
		productID int64
		quantity  = 1
	)
	err := decodeBody(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "product_id":
			v, err := d.Int64()
			productID = v
			return err
		case "quantity":
			v, err := d.Int()
			quantity = v
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if productID == 0 {
		writeErrorMessage(w, http.StatusBadRequest, "product_id is required")
		return
	}

	if err := h.carts.Add(r.Context(), ClientIDFromContext(r.Context()), productID, quantity); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	lineID, err := strconv.ParseInt(chi.URLParam(r, "lineID"), 10, 64)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid line id")
		return
	}

	var (
		quantity    int
		hasQuantity bool
	)
	err = decodeBody(r, func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		v, err := d.Int()
		quantity, hasQuantity = v, true
		return err
	})
	if err != nil || !hasQuantity {
		writeErrorMessage(w, http.StatusBadRequest, "quantity is required")
		return
	}

	if err := h.carts.UpdateQuantity(r.Context(), ClientIDFromContext(r.Context()), lineID, quantity); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	lineID, err := strconv.ParseInt(chi.URLParam(r, "lineID"), 10, 64)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid line id")
		return
	}

	if err := h.carts.Remove(r.Context(), ClientIDFromContext(r.Context()), lineID); err != nil {
		writeError(w, r, errors.Wrap(err, "remove cart line"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func encodeCartLine(e *jx.Encoder, l *cart.LineDetail) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int64(l.ID) })
		e.Field("product_id", func(e *jx.Encoder) { e.Int64(l.ProductID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(l.Name) })
		e.Field("price", func(e *jx.Encoder) { e.Int64(l.Price) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
		e.Field("stock", func(e *jx.Encoder) { e.Int(l.Stock) })
		e.Field("description", func(e *jx.Encoder) { e.Str(l.Description) })
	})
}
