package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"gorm.io/gorm"

	"github.com/K-dubey09/bookstore/internal/models"
	"github.com/K-dubey09/bookstore/internal/token"
)

type Orders struct {
	DB *gorm.DB
}

func (o *Orders) Public() bool { return false }

// OrderView is an order with its frozen line items.
type OrderView struct {
	models.Order
	Items []models.OrderItem `json:"items"`
}

// List returns the orders the identity may read: admin all, users their own,
// sellers the orders containing at least one of their lines.
func (o *Orders) List(ctx context.Context, id token.Identity, filters url.Values) (interface{}, error) {
	q := o.DB.WithContext(ctx).Model(&models.Order{})
	switch {
	case id.IsAdmin():
	case id.IsSeller():
		q = q.Where("id IN (?)",
			o.DB.Model(&models.OrderItem{}).Select("order_id").Where("seller_id = ?", id.ID))
	default:
		q = q.Where("user_id = ?", id.ID)
	}
	if status := filters.Get("status"); status != "" {
		q = q.Where("status = ?", status)
	}

	var orders []models.Order
	if err := q.Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("orders read: %w", err)
	}

	views := make([]OrderView, 0, len(orders))
	for _, ord := range orders {
		items, err := o.items(ctx, ord.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, OrderView{Order: ord, Items: items})
	}
	return views, nil
}

// Create is rejected: orders exist only as checkout snapshots.
func (o *Orders) Create(ctx context.Context, id token.Identity, payload json.RawMessage) (interface{}, error) {
	return nil, fmt.Errorf("%w: orders are created by cart checkout", ErrValidation)
}

// Update is rejected here; status transitions go through the dedicated
// status endpoint with its line-item authorization.
func (o *Orders) Update(ctx context.Context, id token.Identity, resID uint, payload json.RawMessage) (interface{}, error) {
	return nil, fmt.Errorf("%w: use the order status endpoint", ErrValidation)
}

func (o *Orders) Delete(ctx context.Context, id token.Identity, resID uint) error {
	if !id.IsAdmin() {
		return ErrForbidden
	}
	var ord models.Order
	if err := o.DB.WithContext(ctx).First(&ord, resID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("order read: %w", err)
	}

	err := o.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", resID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Order{}, resID).Error
	})
	if err != nil {
		return fmt.Errorf("order delete: %w", err)
	}
	return nil
}

func (o *Orders) items(ctx context.Context, orderID uint) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := o.DB.WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("order items read: %w", err)
	}
	return items, nil
}
