package models

const (
	RoleAdmin  = "admin"
	RoleSeller = "seller"
	RoleUser   = "user"
)

const (
	OrderStatusPlaced    = "placed"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	PasswordHash string `json:"-"`
	// Password holds the plaintext of legacy demo records. Login prefers
	// the hash whenever it is set.
	Password    string `json:"-"`
	Role        string `gorm:"not null;default:user"    json:"role"`
	DisplayName string `json:"display_name,omitempty"`
	LastLogin   int64  `json:"last_login,omitempty"`
}

type Product struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string  `gorm:"not null"                 json:"name"`
	Description string  `json:"description"`
	Category    string  `gorm:"index"                    json:"category"`
	Price       float64 `gorm:"not null"                 json:"price"`
	// SellerID is nil for platform-owned products.
	SellerID *uint `gorm:"index" json:"seller_id,omitempty"`
}

type CartItem struct {
	ID        uint `gorm:"primaryKey"                  json:"id"`
	UserID    uint `gorm:"index;not null"              json:"user_id"`
	ProductID uint `gorm:"not null"                    json:"product_id"`
	Quantity  uint `gorm:"default:1;check:quantity>0"  json:"quantity"`
	// Price is snapshotted from the product at first add, not re-read on render.
	Price float64 `gorm:"not null" json:"price"`
}

type Order struct {
	ID        uint    `gorm:"primaryKey"     json:"id"`
	UserID    uint    `gorm:"index;not null" json:"user_id"`
	Total     float64 `gorm:"not null"       json:"total"`
	Status    string  `gorm:"not null"       json:"status"`
	CreatedAt int64   `gorm:"not null"       json:"created_at"`
}

type OrderItem struct {
	ID        uint `gorm:"primaryKey"     json:"id"`
	OrderID   uint `gorm:"index;not null" json:"order_id"`
	UserID    uint `gorm:"index;not null" json:"user_id"`
	ProductID uint `gorm:"not null"       json:"product_id"`
	// SellerID is resolved from the product at checkout and frozen, even if
	// the product is later reassigned or deleted.
	SellerID *uint   `gorm:"index"                      json:"seller_id,omitempty"`
	Quantity uint    `gorm:"default:1;check:quantity>0" json:"quantity"`
	Price    float64 `gorm:"not null"                   json:"price"`
}

func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPlaced, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}
