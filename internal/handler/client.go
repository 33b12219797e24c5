package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const clientCookieName = "cid"

type clientIDKey struct{}

// ClientIDFromContext returns the client identifier attached by the cookie
// middleware, or "" outside of it.
func ClientIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(clientIDKey{}).(string)
	return id
}

// ClientCookie identifies anonymous clients with an opaque ID carried in an
// HMAC-signed cookie. The signature only prevents clients from forging IDs
// and hijacking another cart; it is not an authentication scheme.
type ClientCookie struct {
	secret []byte
}

// NewClientCookie creates a ClientCookie signing with the given secret.
func NewClientCookie(secret []byte) *ClientCookie {
	return &ClientCookie{secret: secret}
}

// Middleware resolves the client ID from the request cookie, minting a new
// one when the cookie is absent or its signature does not verify. The ID is
// attached to the request context.
func (c *ClientCookie) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := c.fromRequest(r)
		if !ok {
			id = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     clientCookieName,
				Value:    c.encode(id),
				Path:     "/",
				MaxAge:   86400 * 30,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), clientIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (c *ClientCookie) fromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(clientCookieName)
	if err != nil {
		return "", false
	}
	return c.decode(cookie.Value)
}

// encode produces "<id>.<hex hmac>".
func (c *ClientCookie) encode(id string) string {
	return id + "." + c.sign(id)
}

func (c *ClientCookie) decode(value string) (string, bool) {
	id, sig, found := strings.Cut(value, ".")
	if !found || id == "" {
		return "", false
	}
	if !hmac.Equal([]byte(sig), []byte(c.sign(id))) {
		return "", false
	}
	return id, true
}

func (c *ClientCookie) sign(id string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(id))
	return hex.EncodeToString(mac.Sum(nil))
}
