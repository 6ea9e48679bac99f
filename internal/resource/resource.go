// Package resource is the generic CRUD layer over the named collections.
// Every collection validates its payload against a typed schema before any
// write, and every write re-checks ownership against the stored row, never
// against client-supplied owner fields.
package resource

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"

	"gorm.io/gorm"

	"github.com/K-dubey09/bookstore/internal/token"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation")
	ErrDuplicate  = errors.New("duplicate")
)

// Collection is one named table exposed through the resource routes.
type Collection interface {
	// Public reports whether the collection is listable without a token.
	Public() bool
	List(ctx context.Context, id token.Identity, filters url.Values) (interface{}, error)
	Create(ctx context.Context, id token.Identity, payload json.RawMessage) (interface{}, error)
	Update(ctx context.Context, id token.Identity, resID uint, payload json.RawMessage) (interface{}, error)
	Delete(ctx context.Context, id token.Identity, resID uint) error
}

type Registry struct {
	collections map[string]Collection
}

func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{collections: map[string]Collection{
		"products": &Products{DB: db},
		"users":    &Users{DB: db},
		"orders":   &Orders{DB: db},
		"carts":    &Carts{DB: db},
	}}
}

func (r *Registry) Lookup(name string) (Collection, bool) {
	c, ok := r.collections[name]
	return c, ok
}
