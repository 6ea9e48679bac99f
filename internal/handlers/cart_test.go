package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/K-dubey09/bookstore/internal/models"
)

func TestCartFlow(t *testing.T) {
	env := newTestEnv(t)
	_, tok := env.createUser("buyer", "password", models.RoleUser)
	p1 := env.createProduct("go book", 100, nil)
	p2 := env.createProduct("bookmark", 50, nil)

	// add 2x100
	rec, c := env.doJSONRequest(http.MethodPost, "/cart/add", map[string]interface{}{
		"product_id": p1.ID, "quantity": 2,
	}, asUser(tok))
	require.NoError(t, env.call(env.C.Add, c))
	require.Equal(t, http.StatusOK, rec.Code)

	// add 1x50
	rec, c = env.doJSONRequest(http.MethodPost, "/cart/add", map[string]interface{}{
		"product_id": p2.ID,
	}, asUser(tok))
	require.NoError(t, env.call(env.C.Add, c))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, c = env.doJSONRequest(http.MethodGet, "/cart", nil, asUser(tok))
	require.NoError(t, env.call(env.C.GetCart, c))
	var items []models.CartItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 2)

	// checkout: 2*100 + 1*50
	rec, c = env.doJSONRequest(http.MethodPost, "/cart/checkout", nil, asUser(tok))
	require.NoError(t, env.call(env.C.Checkout, c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		OrderID uint               `json:"order_id"`
		Total   float64            `json:"total"`
		Status  string             `json:"status"`
		Items   []models.OrderItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.EqualValues(t, 250, resp.Total)
	require.Equal(t, models.OrderStatusPlaced, resp.Status)
	require.Len(t, resp.Items, 2)

	// the cart is empty, a second checkout fails
	_, c = env.doJSONRequest(http.MethodPost, "/cart/checkout", nil, asUser(tok))
	err := env.call(env.C.Checkout, c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, he.Code)
}

func TestCartChangeAndRemove(t *testing.T) {
	env := newTestEnv(t)
	_, tok := env.createUser("buyer", "password", models.RoleUser)
	p := env.createProduct("go book", 10, nil)

	rec, c := env.doJSONRequest(http.MethodPost, "/cart/add", map[string]interface{}{
		"product_id": p.ID, "quantity": 3,
	}, asUser(tok))
	require.NoError(t, env.call(env.C.Add, c))
	require.Equal(t, http.StatusOK, rec.Code)

	// decrement to zero removes the line
	rec, c = env.doJSONRequest(http.MethodPost, "/cart/change", map[string]interface{}{
		"product_id": p.ID, "delta": -3,
	}, asUser(tok))
	require.NoError(t, env.call(env.C.Change, c))
	var items []models.CartItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Empty(t, items)

	// changing a missing line is 404
	_, c = env.doJSONRequest(http.MethodPost, "/cart/change", map[string]interface{}{
		"product_id": p.ID, "delta": -1,
	}, asUser(tok))
	err := env.call(env.C.Change, c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusNotFound, he.Code)

	// remove is unconditional
	rec, c = env.doJSONRequest(http.MethodPost, "/cart/add", map[string]interface{}{
		"product_id": p.ID,
	}, asUser(tok))
	require.NoError(t, env.call(env.C.Add, c))
	rec, c = env.doJSONRequest(http.MethodPost, "/cart/remove", map[string]interface{}{
		"product_id": p.ID,
	}, asUser(tok))
	require.NoError(t, env.call(env.C.Remove, c))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Empty(t, items)
}

func TestGuestCartIsCookieScoped(t *testing.T) {
	env := newTestEnv(t)
	p := env.createProduct("go book", 10, nil)

	rec, c := env.doJSONRequest(http.MethodPost, "/cart/add", map[string]interface{}{
		"product_id": p.ID,
	})
	require.NoError(t, env.call(env.C.Add, c))
	require.Equal(t, http.StatusOK, rec.Code)

	var guestCookie *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "guestCart" {
			guestCookie = ck
		}
	}
	require.NotNil(t, guestCookie)

	// Same cookie sees the cart.
	rec, c = env.doJSONRequest(http.MethodGet, "/cart", nil, withCookie(guestCookie))
	require.NoError(t, env.call(env.C.GetCart, c))
	var lines []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lines))
	require.Len(t, lines, 1)

	// A fresh request without the cookie gets an empty cart.
	rec, c = env.doJSONRequest(http.MethodGet, "/cart", nil)
	require.NoError(t, env.call(env.C.GetCart, c))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lines))
	require.Empty(t, lines)

	// Guests cannot check out.
	_, c = env.doJSONRequest(http.MethodPost, "/cart/checkout", nil, withCookie(guestCookie))
	err := env.call(env.C.Checkout, c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, he.Code)

	// Adding an unknown product as a guest is 404.
	_, c = env.doJSONRequest(http.MethodPost, "/cart/add", map[string]interface{}{
		"product_id": 9999,
	}, withCookie(guestCookie))
	err = env.call(env.C.Add, c)
	he, ok = err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusNotFound, he.Code)
}
