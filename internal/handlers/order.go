package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/K-dubey09/bookstore/internal/authz"
	mwauth "github.com/K-dubey09/bookstore/internal/middleware/auth"
	"github.com/K-dubey09/bookstore/internal/models"
	"github.com/K-dubey09/bookstore/internal/mykafka"
	"github.com/K-dubey09/bookstore/internal/resource"
)

type OrderHandler struct {
	DB       *gorm.DB
	Producer mykafka.Publisher
}

// ListMine returns the caller's orders: admin all, sellers the orders that
// contain their lines, users their own.
func (h *OrderHandler) ListMine(c echo.Context) error {
	id := mwauth.From(c)
	orders := resource.Orders{DB: h.DB}
	out, err := orders.List(c.Request().Context(), id, c.QueryParams())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	id := mwauth.From(c)

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil || orderID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	order, items, err := h.load(c, uint(orderID))
	if err != nil {
		return err
	}

	if !authz.Allow(id, authz.OrderRead, orderSubject(order, items)) {
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	}
	return c.JSON(http.StatusOK, resource.OrderView{Order: order, Items: items})
}

// UpdateStatus transitions an order's status. Sellers qualify when at least
// one line of the order is theirs, even if other lines belong to other
// sellers.
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	id := mwauth.From(c)

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil || orderID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if !models.ValidOrderStatus(req.Status) {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown status")
	}

	order, items, err := h.load(c, uint(orderID))
	if err != nil {
		return err
	}

	if !authz.Allow(id, authz.OrderUpdateStatus, orderSubject(order, items)) {
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	}

	if err := h.DB.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("status", req.Status).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, map[string]any{
		"type":    "order_status_updated",
		"userID":  order.UserID,
		"orderID": order.ID,
		"status":  req.Status,
	})
	return c.JSON(http.StatusOK, echo.Map{"order_id": order.ID, "status": req.Status})
}

func (h *OrderHandler) load(c echo.Context, orderID uint) (models.Order, []models.OrderItem, error) {
	var order models.Order
	if err := h.DB.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Order{}, nil, echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return models.Order{}, nil, echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	var items []models.OrderItem
	if err := h.DB.Where("order_id = ?", orderID).Order("id ASC").Find(&items).Error; err != nil {
		return models.Order{}, nil, echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	return order, items, nil
}

func orderSubject(order models.Order, items []models.OrderItem) authz.Subject {
	sellers := make([]uint, 0, len(items))
	for _, it := range items {
		if it.SellerID != nil {
			sellers = append(sellers, *it.SellerID)
		}
	}
	return authz.Subject{OwnerID: order.UserID, SellerIDs: sellers}
}

func (h *OrderHandler) publish(c echo.Context, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "order_events", fmt.Sprint(event["orderID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}
