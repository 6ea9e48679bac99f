// Package authz is the pure access decision layer. It does no I/O: callers
// load the current stored resource and describe it as a Subject.
package authz

import (
	"github.com/K-dubey09/bookstore/internal/models"
	"github.com/K-dubey09/bookstore/internal/token"
)

type Action string

const (
	ProductCreate     Action = "product:create"
	ProductUpdate     Action = "product:update"
	ProductDelete     Action = "product:delete"
	OrderRead         Action = "order:read"
	OrderUpdateStatus Action = "order:update-status"
	CartRead          Action = "cart:read"
	CartWrite         Action = "cart:write"
	UserUpdate        Action = "user:update"
	UserChangeRole    Action = "user:change-role"
	UserDelete        Action = "user:delete"
)

// Subject describes the stored resource a decision is about. OwnerID zero
// means platform-owned. SellerIDs carries the per-line sellers of an order,
// since order status authorization is line-item granular.
type Subject struct {
	OwnerID   uint
	SellerIDs []uint
}

func (s Subject) ownedBy(id uint) bool {
	return s.OwnerID != 0 && s.OwnerID == id
}

func (s Subject) hasSellerLine(id uint) bool {
	for _, sid := range s.SellerIDs {
		if sid == id {
			return true
		}
	}
	return false
}

// Allow implements the role/action decision table. Admin may act on
// anything; anonymous callers are denied everything here (guest carts are
// scoped outside the policy).
func Allow(id token.Identity, action Action, s Subject) bool {
	if id.IsAnonymous() {
		return false
	}
	if id.Role == models.RoleAdmin {
		return true
	}

	switch action {
	case ProductCreate:
		return id.Role == models.RoleSeller
	case ProductUpdate, ProductDelete:
		return id.Role == models.RoleSeller && s.ownedBy(id.ID)
	case OrderRead:
		if s.ownedBy(id.ID) {
			return true
		}
		return id.Role == models.RoleSeller && s.hasSellerLine(id.ID)
	case OrderUpdateStatus:
		return id.Role == models.RoleSeller && s.hasSellerLine(id.ID)
	case CartRead, CartWrite:
		return s.ownedBy(id.ID)
	case UserUpdate:
		return s.ownedBy(id.ID)
	case UserChangeRole, UserDelete:
		return false
	}
	return false
}
