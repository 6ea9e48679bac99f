package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/K-dubey09/bookstore/internal/handlers"
	mwauth "github.com/K-dubey09/bookstore/internal/middleware/auth"
)

type Deps struct {
	DB              *gorm.DB
	JWTSecret       []byte
	AuthHandler     *handlers.AuthHandler
	ResourceHandler *handlers.ResourceHandler
	CartHandler     *handlers.CartHandler
	OrderHandler    *handlers.OrderHandler
	SearchHandler   *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1", mwauth.Identity(d.JWTSecret))

	v1.POST("/auth/register", d.AuthHandler.Register)
	v1.POST("/auth/login", d.AuthHandler.Login)
	v1.POST("/auth/logout", d.AuthHandler.Logout)

	if d.SearchHandler != nil {
		v1.GET("/search", d.SearchHandler.Search)
	}

	// Generic collection CRUD; per-collection authorization happens inside.
	v1.GET("/resource/:collection", d.ResourceHandler.List)
	v1.POST("/resource/:collection", d.ResourceHandler.Create, mwauth.RequireLogin)
	v1.PUT("/resource/:collection/:id", d.ResourceHandler.Update, mwauth.RequireLogin)
	v1.DELETE("/resource/:collection/:id", d.ResourceHandler.Delete, mwauth.RequireLogin)

	// Cart routes serve guests too; the handlers fall back to the guest
	// cookie when the identity is anonymous.
	crt := v1.Group("/cart")
	crt.GET("", d.CartHandler.GetCart)
	crt.PUT("", d.CartHandler.PutCart)
	crt.POST("/add", d.CartHandler.Add)
	crt.POST("/change", d.CartHandler.Change)
	crt.POST("/remove", d.CartHandler.Remove)
	crt.POST("/checkout", d.CartHandler.Checkout)

	orders := v1.Group("/orders", mwauth.RequireLogin)
	orders.GET("", d.OrderHandler.ListMine)
	orders.GET("/:id", d.OrderHandler.GetOrder)
	orders.PUT("/:id/status", d.OrderHandler.UpdateStatus)
}
