package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/K-dubey09/bookstore/internal/cart"
	"github.com/K-dubey09/bookstore/internal/hash"
	"github.com/K-dubey09/bookstore/internal/logging"
	"github.com/K-dubey09/bookstore/internal/models"
	"github.com/K-dubey09/bookstore/internal/mykafka"
	"github.com/K-dubey09/bookstore/internal/token"
)

type AuthHandler struct {
	DB        *gorm.DB
	JWTSecret []byte
	Producer  mykafka.Publisher
	Cart      *cart.Service
	Guests    *cart.GuestStore
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req credentials
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Username == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password required")
	}

	var existing models.User
	err := h.DB.Where("username = ?", req.Username).First(&existing).Error
	if err == nil {
		return echo.NewHTTPError(http.StatusConflict, "username taken")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	user := models.User{
		Username:     req.Username,
		PasswordHash: pwHash,
		Role:         models.RoleUser,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	tok, err := token.Issue(user, h.JWTSecret)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, "user_events", map[string]any{
		"type":     "user_registered",
		"userID":   user.ID,
		"username": user.Username,
	})

	return c.JSON(http.StatusCreated, authResponse{Token: tok, User: user})
}

// Login verifies credentials and hands out a session token. Unknown
// username and wrong password are indistinguishable to the caller, and both
// cost one bcrypt comparison.
func (h *AuthHandler) Login(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth.login")

	var req credentials
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	var user models.User
	if err := h.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			l.Error("login_error", "error", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
		hash.BurnCompare(req.Password)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
	}

	if !verifyPassword(user, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid username or password")
	}

	if err := h.DB.Model(&models.User{}).Where("id = ?", user.ID).
		Update("last_login", time.Now().Unix()).Error; err != nil {
		l.Warn("last_login_update_failed", "error", err)
	}

	tok, err := token.Issue(user, h.JWTSecret)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.reconcileGuestCart(c, user.ID)

	h.publish(c, "user_events", map[string]any{
		"type":     "user_logged_in",
		"userID":   user.ID,
		"username": user.Username,
	})

	return c.JSON(http.StatusOK, authResponse{Token: tok, User: user})
}

// Logout only acknowledges; the token is bearer-style with no server-side
// revocation, so the client discards it.
func (h *AuthHandler) Logout(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

// verifyPassword prefers the bcrypt hash and only falls back to the legacy
// plaintext field when no hash is stored. A record with neither fails.
func verifyPassword(user models.User, password string) bool {
	if user.PasswordHash != "" {
		return hash.CheckPassword(user.PasswordHash, password)
	}
	if user.Password != "" {
		return subtle.ConstantTimeCompare([]byte(user.Password), []byte(password)) == 1
	}
	hash.BurnCompare(password)
	return false
}

// reconcileGuestCart replaces the user's persisted cart with the guest cart
// carried by the cookie, when that guest cart is non-empty.
func (h *AuthHandler) reconcileGuestCart(c echo.Context, userID uint) {
	ck, err := c.Cookie(guestCookieName)
	if err != nil || ck.Value == "" {
		return
	}
	lines := h.Guests.Take(ck.Value)
	if err := h.Cart.MergeGuest(c.Request().Context(), userID, lines); err != nil {
		logging.FromContext(c.Request().Context()).Error("guest_cart_merge_failed", "error", err)
	}
	expireGuestCookie(c)
}

func (h *AuthHandler) publish(c echo.Context, topic string, event map[string]any) {
	if h.Producer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, topic, fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}
