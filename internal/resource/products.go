package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"gorm.io/gorm"

	"github.com/K-dubey09/bookstore/internal/authz"
	"github.com/K-dubey09/bookstore/internal/models"
	"github.com/K-dubey09/bookstore/internal/token"
	"github.com/K-dubey09/bookstore/internal/util"
)

type Products struct {
	DB *gorm.DB
}

func (p *Products) Public() bool { return true }

type productPayload struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Price       *float64 `json:"price"`
	SellerID    *uint    `json:"seller_id"`
}

func (p *Products) List(ctx context.Context, id token.Identity, filters url.Values) (interface{}, error) {
	q := p.DB.WithContext(ctx).Model(&models.Product{})

	if s := filters.Get("q"); s != "" {
		like := "%" + s + "%"
		q = q.Where("name LIKE ? OR description LIKE ?", like, like)
	}
	if c := filters.Get("category"); c != "" {
		q = q.Where("category = ?", c)
	}
	if s := filters.Get("seller_id"); s != "" {
		sid, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("%w: bad seller_id", ErrValidation)
		}
		q = q.Where("seller_id = ?", sid)
	}

	page, _ := strconv.Atoi(filters.Get("page"))
	size, _ := strconv.Atoi(filters.Get("size"))
	offset, limit := util.Calculate(page, size)

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("products count: %w", err)
	}

	var items []models.Product
	if err := q.Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("products read: %w", err)
	}

	return map[string]interface{}{
		"data": items,
		"meta": map[string]interface{}{
			"page":  max(page, 1),
			"size":  limit,
			"total": total,
		},
	}, nil
}

func (p *Products) Create(ctx context.Context, id token.Identity, payload json.RawMessage) (interface{}, error) {
	if !authz.Allow(id, authz.ProductCreate, authz.Subject{}) {
		return nil, ErrForbidden
	}

	var req productPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if req.Name == nil || *req.Name == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	if req.Price == nil || *req.Price < 0 {
		return nil, fmt.Errorf("%w: price must be >= 0", ErrValidation)
	}

	prod := models.Product{
		Name:  *req.Name,
		Price: *req.Price,
	}
	if req.Description != nil {
		prod.Description = *req.Description
	}
	if req.Category != nil {
		prod.Category = *req.Category
	}

	// A seller always owns what it creates; only admin may assign ownership.
	if id.IsSeller() {
		owner := id.ID
		prod.SellerID = &owner
	} else if req.SellerID != nil {
		prod.SellerID = req.SellerID
	}

	if err := p.DB.WithContext(ctx).Create(&prod).Error; err != nil {
		return nil, fmt.Errorf("product create: %w", err)
	}
	return prod, nil
}

func (p *Products) Update(ctx context.Context, id token.Identity, resID uint, payload json.RawMessage) (interface{}, error) {
	var prod models.Product
	if err := p.DB.WithContext(ctx).First(&prod, resID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("product read: %w", err)
	}

	if !authz.Allow(id, authz.ProductUpdate, productSubject(prod)) {
		return nil, ErrForbidden
	}

	var req productPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if req.Name != nil {
		if *req.Name == "" {
			return nil, fmt.Errorf("%w: name required", ErrValidation)
		}
		prod.Name = *req.Name
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, fmt.Errorf("%w: price must be >= 0", ErrValidation)
		}
		prod.Price = *req.Price
	}
	if req.Description != nil {
		prod.Description = *req.Description
	}
	if req.Category != nil {
		prod.Category = *req.Category
	}
	if req.SellerID != nil && id.IsAdmin() {
		prod.SellerID = req.SellerID
	}

	if err := p.DB.WithContext(ctx).Save(&prod).Error; err != nil {
		return nil, fmt.Errorf("product update: %w", err)
	}
	return prod, nil
}

func (p *Products) Delete(ctx context.Context, id token.Identity, resID uint) error {
	var prod models.Product
	if err := p.DB.WithContext(ctx).First(&prod, resID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("product read: %w", err)
	}

	if !authz.Allow(id, authz.ProductDelete, productSubject(prod)) {
		return ErrForbidden
	}

	if err := p.DB.WithContext(ctx).Delete(&models.Product{}, resID).Error; err != nil {
		return fmt.Errorf("product delete: %w", err)
	}
	return nil
}

func productSubject(p models.Product) authz.Subject {
	var owner uint
	if p.SellerID != nil {
		owner = *p.SellerID
	}
	return authz.Subject{OwnerID: owner}
}
