package resource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"gorm.io/gorm"

	"github.com/K-dubey09/bookstore/internal/authz"
	"github.com/K-dubey09/bookstore/internal/hash"
	"github.com/K-dubey09/bookstore/internal/models"
	"github.com/K-dubey09/bookstore/internal/token"
)

type Users struct {
	DB *gorm.DB
}

func (u *Users) Public() bool { return false }

type userPayload struct {
	Username    *string `json:"username"`
	Password    *string `json:"password"`
	DisplayName *string `json:"display_name"`
	Role        *string `json:"role"`
}

func validRole(r string) bool {
	switch r {
	case models.RoleAdmin, models.RoleSeller, models.RoleUser:
		return true
	}
	return false
}

func (u *Users) List(ctx context.Context, id token.Identity, filters url.Values) (interface{}, error) {
	q := u.DB.WithContext(ctx).Model(&models.User{})
	if !id.IsAdmin() {
		q = q.Where("id = ?", id.ID)
	}
	if role := filters.Get("role"); role != "" {
		q = q.Where("role = ?", role)
	}

	var users []models.User
	if err := q.Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("users read: %w", err)
	}
	return users, nil
}

// Create is the admin path for provisioning accounts with a role, e.g.
// sellers. Self-registration goes through /auth/register.
func (u *Users) Create(ctx context.Context, id token.Identity, payload json.RawMessage) (interface{}, error) {
	if !id.IsAdmin() {
		return nil, ErrForbidden
	}

	var req userPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if req.Username == nil || *req.Username == "" || req.Password == nil || *req.Password == "" {
		return nil, fmt.Errorf("%w: username and password required", ErrValidation)
	}
	role := models.RoleUser
	if req.Role != nil {
		if !validRole(*req.Role) {
			return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, *req.Role)
		}
		role = *req.Role
	}

	var existing models.User
	err := u.DB.WithContext(ctx).Where("username = ?", *req.Username).First(&existing).Error
	if err == nil {
		return nil, fmt.Errorf("%w: username taken", ErrDuplicate)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("users read: %w", err)
	}

	pwHash, err := hash.HashPassword(*req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash: %w", err)
	}

	user := models.User{
		Username:     *req.Username,
		PasswordHash: pwHash,
		Role:         role,
	}
	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if err := u.DB.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("user create: %w", err)
	}
	return user, nil
}

func (u *Users) Update(ctx context.Context, id token.Identity, resID uint, payload json.RawMessage) (interface{}, error) {
	var user models.User
	if err := u.DB.WithContext(ctx).First(&user, resID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("user read: %w", err)
	}

	if !authz.Allow(id, authz.UserUpdate, authz.Subject{OwnerID: user.ID}) {
		return nil, ErrForbidden
	}

	var req userPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if req.Role != nil && *req.Role != user.Role {
		// Role changes are admin-only, regardless of ownership.
		if !authz.Allow(id, authz.UserChangeRole, authz.Subject{OwnerID: user.ID}) {
			return nil, ErrForbidden
		}
		if !validRole(*req.Role) {
			return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, *req.Role)
		}
		user.Role = *req.Role
	}
	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.Password != nil {
		if *req.Password == "" {
			return nil, fmt.Errorf("%w: password required", ErrValidation)
		}
		pwHash, err := hash.HashPassword(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash: %w", err)
		}
		user.PasswordHash = pwHash
		user.Password = ""
	}

	if err := u.DB.WithContext(ctx).Save(&user).Error; err != nil {
		return nil, fmt.Errorf("user update: %w", err)
	}
	return user, nil
}

// Delete removes a user and cascades to their cart and orders.
func (u *Users) Delete(ctx context.Context, id token.Identity, resID uint) error {
	if !id.IsAdmin() {
		return ErrForbidden
	}

	var user models.User
	if err := u.DB.WithContext(ctx).First(&user, resID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("user read: %w", err)
	}

	err := u.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", resID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", resID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", resID).Delete(&models.Order{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, resID).Error
	})
	if err != nil {
		return fmt.Errorf("user delete: %w", err)
	}
	return nil
}
