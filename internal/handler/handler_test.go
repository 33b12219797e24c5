package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepseashop/storefront/internal/domain/cart"
	"github.com/deepseashop/storefront/internal/domain/order"
	"github.com/deepseashop/storefront/internal/domain/product"
)

// --- In-memory backend ---

// memStore backs every repository interface for handler tests. No locking:
// httptest requests run sequentially here.
type memStore struct {
	products map[int64]product.Product
	carts    []cart.Line
	orders   []order.Line
	nextLine int64
}

func newMemStore(products ...product.Product) *memStore {
	s := &memStore{products: make(map[int64]product.Product)}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

// product.Repository

func (s *memStore) List(_ context.Context, limit, offset int) ([]product.Product, error) {
	var out []product.Product
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) GetByID(_ context.Context, id int64) (*product.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (s *memStore) Filter(_ context.Context, f product.Filter) ([]product.Product, error) {
	all, _ := s.List(context.Background(), len(s.products), 0)
	var out []product.Product
	for _, p := range all {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *memStore) Upsert(_ context.Context, p *product.Product) error {
	s.products[p.ID] = *p
	return nil
}

func (s *memStore) Restock(_ context.Context, id int64, delta int) error {
	p, ok := s.products[id]
	if !ok {
		return product.ErrNotFound
	}
	p.Stock += delta
	s.products[id] = p
	return nil
}

// cart.Repository

func (s *memStore) Find(_ context.Context, clientID string, productID int64) (*cart.Line, error) {
	for i := range s.carts {
		if s.carts[i].ClientID == clientID && s.carts[i].ProductID == productID {
			l := s.carts[i]
			return &l, nil
		}
	}
	return nil, cart.ErrLineNotFound
}

func (s *memStore) Get(_ context.Context, clientID string, lineID int64) (*cart.Line, error) {
	for i := range s.carts {
		if s.carts[i].ClientID == clientID && s.carts[i].ID == lineID {
			l := s.carts[i]
			return &l, nil
		}
	}
	return nil, cart.ErrLineNotFound
}

func (s *memStore) upsertCartLine(clientID string, productID int64, quantity int) {
	for i := range s.carts {
		if s.carts[i].ClientID == clientID && s.carts[i].ProductID == productID {
			s.carts[i].Quantity = quantity
			return
		}
	}
	s.nextLine++
	s.carts = append(s.carts, cart.Line{
		ID: s.nextLine, ClientID: clientID, ProductID: productID, Quantity: quantity,
	})
}

func (s *memStore) SetQuantity(_ context.Context, clientID string, lineID int64, quantity int) error {
	for i := range s.carts {
		if s.carts[i].ClientID == clientID && s.carts[i].ID == lineID {
			s.carts[i].Quantity = quantity
			return nil
		}
	}
	return cart.ErrLineNotFound
}

func (s *memStore) Delete(_ context.Context, clientID string, lineID int64) error {
	for i := range s.carts {
		if s.carts[i].ClientID == clientID && s.carts[i].ID == lineID {
			s.carts = append(s.carts[:i], s.carts[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *memStore) listCartLines(clientID string) []cart.Line {
	var out []cart.Line
	for _, l := range s.carts {
		if l.ClientID == clientID {
			out = append(out, l)
		}
	}
	return out
}

func (s *memStore) ListDetailed(_ context.Context, clientID string) ([]cart.LineDetail, error) {
	var out []cart.LineDetail
	for _, l := range s.carts {
		if l.ClientID != clientID {
			continue
		}
		p := s.products[l.ProductID]
		out = append(out, cart.LineDetail{
			Line: l, Name: p.Name, Price: p.Price, Stock: p.Stock, Description: p.Description,
		})
	}
	return out, nil
}

func (s *memStore) Total(_ context.Context, clientID string) (int64, error) {
	var total int64
	for _, l := range s.carts {
		if l.ClientID == clientID {
			total += int64(l.Quantity) * s.products[l.ProductID].Price
		}
	}
	return total, nil
}

func (s *memStore) Count(_ context.Context, clientID string) (int, error) {
	n := 0
	for _, l := range s.carts {
		if l.ClientID == clientID {
			n++
		}
	}
	return n, nil
}

// order.UnitOfWork / order.Tx / order.Reader

func (s *memStore) WithinTx(_ context.Context, fn func(tx order.Tx) error) error {
	return fn(s)
}

func (s *memStore) CartLinesForUpdate(_ context.Context, clientID string) ([]order.CheckoutLine, error) {
	var out []order.CheckoutLine
	for _, l := range s.listCartLines(clientID) {
		p := s.products[l.ProductID]
		out = append(out, order.CheckoutLine{
			LineID: l.ID, ProductID: l.ProductID, Quantity: l.Quantity,
			Stock: p.Stock, Price: p.Price,
		})
	}
	return out, nil
}

func (s *memStore) InsertLines(_ context.Context, lines []order.Line) error {
	s.orders = append(s.orders, lines...)
	return nil
}

func (s *memStore) DecrementStock(_ context.Context, productID int64, quantity int) error {
	p := s.products[productID]
	p.Stock -= quantity
	s.products[productID] = p
	return nil
}

func (s *memStore) ClearCart(_ context.Context, clientID string) error {
	var kept []cart.Line
	for _, l := range s.carts {
		if l.ClientID != clientID {
			kept = append(kept, l)
		}
	}
	s.carts = kept
	return nil
}

func (s *memStore) OrderIDs(_ context.Context, clientID string) ([]string, error) {
	var ids []string
	seen := make(map[string]struct{})
	for _, l := range s.orders {
		if l.ClientID != clientID {
			continue
		}
		if _, ok := seen[l.OrderID]; ok {
			continue
		}
		seen[l.OrderID] = struct{}{}
		ids = append(ids, l.OrderID)
	}
	return ids, nil
}

func (s *memStore) Lines(_ context.Context, clientID, orderID string) ([]order.LineDetail, error) {
	var out []order.LineDetail
	for _, l := range s.orders {
		if l.ClientID != clientID || l.OrderID != orderID {
			continue
		}
		p := s.products[l.ProductID]
		out = append(out, order.LineDetail{
			ProductID: l.ProductID, Name: p.Name, Description: p.Description,
			Quantity: l.Quantity, UnitPrice: l.UnitPrice,
		})
	}
	return out, nil
}

func (s *memStore) Metrics(_ context.Context) ([]order.ProductMetrics, error) {
	return nil, nil
}

// cartRepoAdapter exposes memStore as a cart.Repository. Upsert and List
// would otherwise collide with the product.Repository methods of the same
// name on memStore.
type cartRepoAdapter struct{ *memStore }

func (a cartRepoAdapter) Upsert(_ context.Context, clientID string, productID int64, quantity int) error {
	a.upsertCartLine(clientID, productID, quantity)
	return nil
}

func (a cartRepoAdapter) List(_ context.Context, clientID string) ([]cart.Line, error) {
	return a.listCartLines(clientID), nil
}

// --- Helpers ---

var testSecret = []byte("test-secret")

func newTestServer(store *memStore) *httptest.Server {
	h := New(
		store,
		cart.NewService(cartRepoAdapter{store}, store),
		order.NewCommitService(store),
		order.NewQueryService(store),
		NewClientCookie(testSecret),
	)
	return httptest.NewServer(h.Routes())
}

func clientCookie(id string) *http.Cookie {
	c := NewClientCookie(testSecret)
	return &http.Cookie{Name: clientCookieName, Value: c.encode(id)}
}

func doRequest(t *testing.T, srv *httptest.Server, method, path, body string, cookie *http.Cookie) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func testCatalog() []product.Product {
	return []product.Product{
		{ID: 1, Name: "Apple", Stock: 10, Price: 89, Description: "Crisp red apple", Category: "fruit"},
		{ID: 2, Name: "Milk", Stock: 3, Price: 159, Description: "Whole milk", Category: "dairy"},
	}
}

// --- Tests ---

func TestListProducts(t *testing.T) {
	srv := newTestServer(newMemStore(testCatalog()...))
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodGet, "/api/products", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var products []map[string]any
	decodeJSON(t, resp, &products)
	require.Len(t, products, 2)
	assert.Equal(t, "Apple", products[0]["name"])
	assert.Equal(t, float64(89), products[0]["price"])
}

func TestListProducts_CategoryFilter(t *testing.T) {
	srv := newTestServer(newMemStore(testCatalog()...))
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodGet, "/api/products?category=dairy", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var products []map[string]any
	decodeJSON(t, resp, &products)
	require.Len(t, products, 1)
	assert.Equal(t, "Milk", products[0]["name"])
}

func TestGetProduct_NotFound(t *testing.T) {
	srv := newTestServer(newMemStore(testCatalog()...))
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodGet, "/api/products/99", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAddCartItem_MintsCookieWhenAbsent(t *testing.T) {
	srv := newTestServer(newMemStore(testCatalog()...))
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodPost, "/api/cart/items", `{"product_id": 1, "quantity": 2}`, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	var minted bool
	for _, c := range resp.Cookies() {
		if c.Name == clientCookieName {
			minted = true
			assert.Contains(t, c.Value, ".")
		}
	}
	assert.True(t, minted)
}

func TestAddCartItem_ForgedCookieGetsFreshIdentity(t *testing.T) {
	store := newMemStore(testCatalog()...)
	srv := newTestServer(store)
	defer srv.Close()

	forged := &http.Cookie{Name: clientCookieName, Value: "victim.deadbeef"}
	resp := doRequest(t, srv, http.MethodPost, "/api/cart/items", `{"product_id": 1}`, forged)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// The line must not land in the forged client's cart.
	for _, l := range store.carts {
		assert.NotEqual(t, "victim", l.ClientID)
	}
}

func TestCartFlow(t *testing.T) {
	srv := newTestServer(newMemStore(testCatalog()...))
	defer srv.Close()
	cookie := clientCookie("c1")

	resp := doRequest(t, srv, http.MethodPost, "/api/cart/items", `{"product_id": 1, "quantity": 2}`, cookie)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Same product merges into one line.
	resp = doRequest(t, srv, http.MethodPost, "/api/cart/items", `{"product_id": 1, "quantity": 3}`, cookie)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodGet, "/api/cart", "", cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Lines []struct {
			ID       int64 `json:"id"`
			Quantity int   `json:"quantity"`
		} `json:"lines"`
		Total int64 `json:"total"`
	}
	decodeJSON(t, resp, &body)
	require.Len(t, body.Lines, 1)
	assert.Equal(t, 5, body.Lines[0].Quantity)
	assert.Equal(t, int64(5*89), body.Total)
}

func TestAddCartItem_StockConflict(t *testing.T) {
	srv := newTestServer(newMemStore(testCatalog()...))
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodPost, "/api/cart/items", `{"product_id": 2, "quantity": 4}`, clientCookie("c1"))
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var body struct {
		Error     string `json:"error"`
		ProductID int64  `json:"product_id"`
	}
	decodeJSON(t, resp, &body)
	assert.Equal(t, int64(2), body.ProductID)
	assert.Equal(t, "insufficient stock", body.Error)
}

func TestUpdateCartItem_MissingLine(t *testing.T) {
	srv := newTestServer(newMemStore(testCatalog()...))
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodPatch, "/api/cart/items/42", `{"quantity": 1}`, clientCookie("c1"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCommitOrder_EmptyCart(t *testing.T) {
	srv := newTestServer(newMemStore(testCatalog()...))
	defer srv.Close()

	resp := doRequest(t, srv, http.MethodPost, "/api/orders", "", clientCookie("c1"))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestCommitOrder_AndFetchReceipt(t *testing.T) {
	store := newMemStore(testCatalog()...)
	srv := newTestServer(store)
	defer srv.Close()
	cookie := clientCookie("c1")

	resp := doRequest(t, srv, http.MethodPost, "/api/cart/items", `{"product_id": 1, "quantity": 2}`, cookie)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodPost, "/api/orders", "", cookie)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		OrderID string `json:"order_id"`
	}
	decodeJSON(t, resp, &created)
	require.NotEmpty(t, created.OrderID)

	// Cart is cleared and stock decremented by the commit.
	resp = doRequest(t, srv, http.MethodGet, "/api/cart/count", "", cookie)
	var count struct {
		Count int `json:"count"`
	}
	decodeJSON(t, resp, &count)
	assert.Zero(t, count.Count)
	assert.Equal(t, 8, store.products[1].Stock)

	resp = doRequest(t, srv, http.MethodGet, "/api/orders/"+created.OrderID, "", cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var receipt struct {
		OrderID string `json:"order_id"`
		Items   []struct {
			Name      string `json:"name"`
			Quantity  int    `json:"quantity"`
			UnitPrice int64  `json:"unit_price"`
		} `json:"items"`
		Net   string `json:"net"`
		Total string `json:"total"`
	}
	decodeJSON(t, resp, &receipt)
	assert.Equal(t, created.OrderID, receipt.OrderID)
	require.Len(t, receipt.Items, 1)
	assert.Equal(t, int64(89), receipt.Items[0].UnitPrice)
	// net = 2*89 cents = 1.78
	assert.Equal(t, "1.78", receipt.Net)
}

// Full walkthrough: add within stock, fail to add past it, set to the exact
// stock level, commit, and verify the product sells out.
func TestCheckoutScenario(t *testing.T) {
	store := newMemStore(product.Product{ID: 1, Name: "Widget", Stock: 5, Price: 10})
	srv := newTestServer(store)
	defer srv.Close()
	cookie := clientCookie("c1")

	resp := doRequest(t, srv, http.MethodPost, "/api/cart/items", `{"product_id": 1, "quantity": 3}`, cookie)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// 3 + 4 exceeds stock 5.
	resp = doRequest(t, srv, http.MethodPost, "/api/cart/items", `{"product_id": 1, "quantity": 4}`, cookie)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodPatch, "/api/cart/items/1", `{"quantity": 5}`, cookie)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doRequest(t, srv, http.MethodPost, "/api/orders", "", cookie)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.Equal(t, 0, store.products[1].Stock)
	require.Len(t, store.orders, 1)
	assert.Equal(t, 5, store.orders[0].Quantity)
	assert.Equal(t, int64(10), store.orders[0].UnitPrice)
}

func TestGetOrder_OtherClientsOrderIsHidden(t *testing.T) {
	store := newMemStore(testCatalog()...)
	srv := newTestServer(store)
	defer srv.Close()

	owner := clientCookie("owner")
	resp := doRequest(t, srv, http.MethodPost, "/api/cart/items", `{"product_id": 1}`, owner)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = doRequest(t, srv, http.MethodPost, "/api/orders", "", owner)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		OrderID string `json:"order_id"`
	}
	decodeJSON(t, resp, &created)

	resp = doRequest(t, srv, http.MethodGet, "/api/orders/"+created.OrderID, "", clientCookie("other"))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
