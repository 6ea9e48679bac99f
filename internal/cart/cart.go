// Package cart keeps per-user cart state consistent across add, change,
// remove and checkout, and merges guest carts into authenticated carts at
// login time.
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/K-dubey09/bookstore/internal/models"
)

var (
	ErrEmptyCart  = errors.New("empty cart")
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation")
)

// Line is the transport shape of a cart line, used for PUT /cart bodies and
// guest carts.
type Line struct {
	ProductID uint    `json:"product_id"`
	Quantity  uint    `json:"quantity"`
	Price     float64 `json:"price"`
}

type Service struct {
	db    *gorm.DB
	locks keyLock
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) Get(ctx context.Context, userID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("cart read: %w", err)
	}
	return items, nil
}

// Add appends a line, or bumps the quantity of an existing one. The price is
// snapshotted from the product at first add.
func (s *Service) Add(ctx context.Context, userID, productID, qty uint) (models.CartItem, error) {
	if qty < 1 {
		qty = 1
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	var item models.CartItem
	tx := s.db.WithContext(ctx).Where("user_id = ? AND product_id = ?", userID, productID).First(&item)
	if tx.Error == nil {
		item.Quantity += qty
		if err := s.db.WithContext(ctx).Save(&item).Error; err != nil {
			return models.CartItem{}, fmt.Errorf("cart update: %w", err)
		}
		return item, nil
	}
	if !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return models.CartItem{}, fmt.Errorf("cart read: %w", tx.Error)
	}

	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.CartItem{}, fmt.Errorf("%w: product %d", ErrNotFound, productID)
		}
		return models.CartItem{}, fmt.Errorf("product read: %w", err)
	}

	item = models.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  qty,
		Price:     product.Price,
	}
	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return models.CartItem{}, fmt.Errorf("cart create: %w", err)
	}
	return item, nil
}

// ChangeQuantity applies a signed delta to a line. A result of zero or less
// removes the line; a delta against a missing line is ErrNotFound.
func (s *Service) ChangeQuantity(ctx context.Context, userID, productID uint, delta int) ([]models.CartItem, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	var item models.CartItem
	if err := s.db.WithContext(ctx).Where("user_id = ? AND product_id = ?", userID, productID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: product %d not in cart", ErrNotFound, productID)
		}
		return nil, fmt.Errorf("cart read: %w", err)
	}

	next := int(item.Quantity) + delta
	if next <= 0 {
		if err := s.db.WithContext(ctx).Delete(&item).Error; err != nil {
			return nil, fmt.Errorf("cart delete: %w", err)
		}
	} else {
		item.Quantity = uint(next)
		if err := s.db.WithContext(ctx).Save(&item).Error; err != nil {
			return nil, fmt.Errorf("cart update: %w", err)
		}
	}

	return s.Get(ctx, userID)
}

func (s *Service) Remove(ctx context.Context, userID, productID uint) ([]models.CartItem, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.CartItem{}).Error; err != nil {
		return nil, fmt.Errorf("cart delete: %w", err)
	}
	return s.Get(ctx, userID)
}

// Replace swaps the whole cart for the given lines. Lines with unknown
// products are dropped; lines without a price snapshot take the current
// product price. Used by PUT /cart and by the login-time guest merge.
func (s *Service) Replace(ctx context.Context, userID uint, lines []Line) ([]models.CartItem, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	var items []models.CartItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		for _, l := range lines {
			if l.Quantity < 1 {
				continue
			}
			price := l.Price
			var product models.Product
			if err := tx.First(&product, l.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					continue
				}
				return err
			}
			if price <= 0 {
				price = product.Price
			}
			item := models.CartItem{
				UserID:    userID,
				ProductID: l.ProductID,
				Quantity:  l.Quantity,
				Price:     price,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cart replace: %w", err)
	}
	return items, nil
}

// MergeGuest reconciles a guest cart at login. A non-empty guest cart
// replaces the persisted one (the web client's behavior); an empty guest
// cart leaves the persisted cart untouched.
func (s *Service) MergeGuest(ctx context.Context, userID uint, guest []Line) error {
	if len(guest) == 0 {
		return nil
	}
	_, err := s.Replace(ctx, userID, guest)
	return err
}

// Checkout atomically turns a non-empty cart into a placed order: total from
// the snapshotted line prices, seller resolved per line from the current
// product, cart cleared. Holding the owner's lock means no concurrent
// mutation lands between the read and the clear.
func (s *Service) Checkout(ctx context.Context, userID uint) (models.Order, []models.OrderItem, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	var (
		order      models.Order
		orderItems []models.OrderItem
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var items []models.CartItem
		if err := tx.Where("user_id = ?", userID).Order("id ASC").Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		var total float64
		for _, it := range items {
			total += float64(it.Quantity) * it.Price
		}

		order = models.Order{
			UserID:    userID,
			Total:     total,
			Status:    models.OrderStatusPlaced,
			CreatedAt: time.Now().Unix(),
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		orderItems = make([]models.OrderItem, 0, len(items))
		for _, it := range items {
			var sellerID *uint
			var product models.Product
			if err := tx.First(&product, it.ProductID).Error; err == nil {
				sellerID = product.SellerID
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			oi := models.OrderItem{
				OrderID:   order.ID,
				UserID:    userID,
				ProductID: it.ProductID,
				SellerID:  sellerID,
				Quantity:  it.Quantity,
				Price:     it.Price,
			}
			if err := tx.Create(&oi).Error; err != nil {
				return err
			}
			orderItems = append(orderItems, oi)
		}

		return tx.Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
	})
	if err != nil {
		if errors.Is(err, ErrEmptyCart) {
			return models.Order{}, nil, ErrEmptyCart
		}
		return models.Order{}, nil, fmt.Errorf("checkout: %w", err)
	}

	return order, orderItems, nil
}
