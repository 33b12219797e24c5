package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/deepseashop/storefront/internal/domain/order"
)

func (h *Handler) commitOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := h.commits.Commit(r.Context(), ClientIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if orderID == "" {
		// Empty cart, nothing committed.
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("order_id", func(e *jx.Encoder) { e.Str(orderID) })
		})
	})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	ids, err := h.queries.OrderIDs(r.Context(), ClientIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("order_ids", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, id := range ids {
						e.Str(id)
					}
				})
			})
		})
	})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	receipt, err := h.queries.GetOrder(r.Context(), ClientIDFromContext(r.Context()), orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeReceipt(e, receipt)
	})
}

func (h *Handler) orderMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.queries.Metrics(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range metrics {
				encodeMetrics(e, &metrics[i])
			}
		})
	})
}

func encodeReceipt(e *jx.Encoder, rc *order.Receipt) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("order_id", func(e *jx.Encoder) { e.Str(rc.OrderID) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i := range rc.Lines {
					l := &rc.Lines[i]
					e.Obj(func(e *jx.Encoder) {
						e.Field("product_id", func(e *jx.Encoder) { e.Int64(l.ProductID) })
						e.Field("name", func(e *jx.Encoder) { e.Str(l.Name) })
						e.Field("description", func(e *jx.Encoder) { e.Str(l.Description) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
						e.Field("unit_price", func(e *jx.Encoder) { e.Int64(l.UnitPrice) })
					})
				}
			})
		})
		e.Field("net", func(e *jx.Encoder) { e.Str(rc.Net.StringFixed(2)) })
		e.Field("tax", func(e *jx.Encoder) { e.Str(rc.Tax.StringFixed(2)) })
		e.Field("shipping", func(e *jx.Encoder) { e.Str(rc.Shipping.StringFixed(2)) })
		e.Field("total", func(e *jx.Encoder) { e.Str(rc.Total.StringFixed(2)) })
	})
}

func encodeMetrics(e *jx.Encoder, m *order.ProductMetrics) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("product_id", func(e *jx.Encoder) { e.Int64(m.ProductID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(m.Name) })
		e.Field("units_sold", func(e *jx.Encoder) { e.Int64(m.UnitsSold) })
		e.Field("avg_unit_price", func(e *jx.Encoder) { e.Str(m.AvgUnitPrice.StringFixed(2)) })
		e.Field("revenue", func(e *jx.Encoder) { e.Int64(m.Revenue) })
	})
}
