package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"gorm.io/gorm"

	"github.com/K-dubey09/bookstore/internal/models"
	"github.com/K-dubey09/bookstore/internal/token"
)

// Carts is read-only through the resource routes; mutations go through the
// /cart endpoints so they pass the per-owner serialization.
type Carts struct {
	DB *gorm.DB
}

func (c *Carts) Public() bool { return false }

func (c *Carts) List(ctx context.Context, id token.Identity, filters url.Values) (interface{}, error) {
	q := c.DB.WithContext(ctx).Model(&models.CartItem{})
	if !id.IsAdmin() {
		q = q.Where("user_id = ?", id.ID)
	}

	var items []models.CartItem
	if err := q.Order("id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("carts read: %w", err)
	}
	return items, nil
}

func (c *Carts) Create(ctx context.Context, id token.Identity, payload json.RawMessage) (interface{}, error) {
	return nil, fmt.Errorf("%w: use the cart endpoints", ErrValidation)
}

func (c *Carts) Update(ctx context.Context, id token.Identity, resID uint, payload json.RawMessage) (interface{}, error) {
	return nil, fmt.Errorf("%w: use the cart endpoints", ErrValidation)
}

func (c *Carts) Delete(ctx context.Context, id token.Identity, resID uint) error {
	return fmt.Errorf("%w: use the cart endpoints", ErrValidation)
}
