package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/K-dubey09/bookstore/internal/models"
)

// TokenTTL matches the 8 hour session window of the web client.
const TokenTTL = 8 * time.Hour

// Identity is the resolved caller of a request. The zero value is anonymous.
type Identity struct {
	ID       uint
	Username string
	Role     string
}

var Anonymous = Identity{}

func (i Identity) IsAnonymous() bool {
	return i.ID == 0
}

func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

func (i Identity) IsSeller() bool {
	return i.Role == models.RoleSeller
}

func Issue(user models.User, secret []byte) (string, error) {
	exp := time.Now().Add(TokenTTL)
	claims := jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"role":     user.Role,
		"exp":      exp.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

// Resolve maps a raw bearer token to an Identity. It never returns an error:
// expired, malformed and badly signed tokens all degrade to Anonymous so the
// request proceeds as a guest.
func Resolve(raw string, secret []byte) Identity {
	if raw == "" {
		return Anonymous
	}

	t, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !t.Valid {
		return Anonymous
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return Anonymous
	}
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return Anonymous
	}
	username, _ := claims["username"].(string)
	role, ok := claims["role"].(string)
	if !ok {
		return Anonymous
	}

	return Identity{ID: uint(sub), Username: username, Role: role}
}
