package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/K-dubey09/bookstore/internal/cart"
	mwauth "github.com/K-dubey09/bookstore/internal/middleware/auth"
	"github.com/K-dubey09/bookstore/internal/models"
	"github.com/K-dubey09/bookstore/internal/mykafka"
)

const guestCookieName = "guestCart"

type CartHandler struct {
	DB       *gorm.DB
	Cart     *cart.Service
	Guests   *cart.GuestStore
	Producer mykafka.Publisher
}

type cartLineRequest struct {
	ProductID uint `json:"product_id"`
	Quantity  uint `json:"quantity"`
	Delta     int  `json:"delta"`
}

// guestID returns the caller's guest cart key, minting one (and setting the
// cookie) on first use.
func (h *CartHandler) guestID(c echo.Context) string {
	if ck, err := c.Cookie(guestCookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	id := h.Guests.NewID()
	c.SetCookie(&http.Cookie{
		Name:     guestCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func expireGuestCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     guestCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *CartHandler) GetCart(c echo.Context) error {
	id := mwauth.From(c)
	if id.IsAnonymous() {
		return c.JSON(http.StatusOK, h.Guests.Get(h.guestID(c)))
	}

	items, err := h.Cart.Get(c.Request().Context(), id.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CartHandler) PutCart(c echo.Context) error {
	var lines []cart.Line
	if err := c.Bind(&lines); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid cart")
	}

	id := mwauth.From(c)
	if id.IsAnonymous() {
		gid := h.guestID(c)
		h.Guests.Replace(gid, lines)
		return c.JSON(http.StatusOK, h.Guests.Get(gid))
	}

	items, err := h.Cart.Replace(c.Request().Context(), id.ID, lines)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, items)
}

func (h *CartHandler) Add(c echo.Context) error {
	var req cartLineRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.ProductID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "product_id required")
	}

	id := mwauth.From(c)
	if id.IsAnonymous() {
		var product models.Product
		if err := h.DB.First(&product, req.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusNotFound, "product not found")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
		lines := h.Guests.Add(h.guestID(c), req.ProductID, req.Quantity, product.Price)
		return c.JSON(http.StatusOK, lines)
	}

	item, err := h.Cart.Add(c.Request().Context(), id.ID, req.ProductID, req.Quantity)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_added",
		"userID":    id.ID,
		"productID": req.ProductID,
		"quantity":  item.Quantity,
	})
	return c.JSON(http.StatusOK, item)
}

func (h *CartHandler) Change(c echo.Context) error {
	var req cartLineRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.ProductID == 0 || req.Delta == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "product_id and delta required")
	}

	id := mwauth.From(c)
	if id.IsAnonymous() {
		lines, ok := h.Guests.Change(h.guestID(c), req.ProductID, req.Delta)
		if !ok {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		return c.JSON(http.StatusOK, lines)
	}

	items, err := h.Cart.ChangeQuantity(c.Request().Context(), id.ID, req.ProductID, req.Delta)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "item not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, map[string]any{
		"type":      "cart_quantity_changed",
		"userID":    id.ID,
		"productID": req.ProductID,
		"delta":     req.Delta,
	})
	return c.JSON(http.StatusOK, items)
}

func (h *CartHandler) Remove(c echo.Context) error {
	var req cartLineRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.ProductID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "product_id required")
	}

	id := mwauth.From(c)
	if id.IsAnonymous() {
		return c.JSON(http.StatusOK, h.Guests.Remove(h.guestID(c), req.ProductID))
	}

	items, err := h.Cart.Remove(c.Request().Context(), id.ID, req.ProductID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_removed",
		"userID":    id.ID,
		"productID": req.ProductID,
	})
	return c.JSON(http.StatusOK, items)
}

func (h *CartHandler) Checkout(c echo.Context) error {
	id := mwauth.From(c)
	if id.IsAnonymous() {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	order, items, err := h.Cart.Checkout(c.Request().Context(), id.ID)
	if err != nil {
		if errors.Is(err, cart.ErrEmptyCart) {
			return echo.NewHTTPError(http.StatusBadRequest, "cart is empty")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, map[string]any{
		"type":    "order_created",
		"userID":  id.ID,
		"orderID": order.ID,
		"total":   order.Total,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"order_id": order.ID,
		"total":    order.Total,
		"status":   order.Status,
		"items":    items,
	})
}

func (h *CartHandler) publish(c echo.Context, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "cart_events", fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}
