package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/K-dubey09/bookstore/internal/cart"
	"github.com/K-dubey09/bookstore/internal/hash"
	mwauth "github.com/K-dubey09/bookstore/internal/middleware/auth"
	"github.com/K-dubey09/bookstore/internal/models"
	"github.com/K-dubey09/bookstore/internal/resource"
	"github.com/K-dubey09/bookstore/internal/token"
)

var testSecret = []byte("test_secret")

// eventRecorder stands in for the Kafka producer in tests.
type eventRecorder struct {
	mu     sync.Mutex
	events []map[string]interface{}
}

func (r *eventRecorder) PublishEvent(ctx context.Context, topic, key string, event interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, _ := event.(map[string]interface{})
	if m == nil {
		m = map[string]interface{}{}
	}
	m["_topic"] = topic
	r.events = append(r.events, m)
	return nil
}

func (r *eventRecorder) last() map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

type testEnv struct {
	T      *testing.T
	E      *echo.Echo
	DB     *gorm.DB
	A      *AuthHandler
	C      *CartHandler
	O      *OrderHandler
	R      *ResourceHandler
	Events *eventRecorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Product{}, &models.CartItem{},
		&models.Order{}, &models.OrderItem{},
	))

	rec := &eventRecorder{}
	cartService := cart.NewService(db)
	guests := cart.NewGuestStore()

	return &testEnv{
		T:      t,
		E:      echo.New(),
		DB:     db,
		Events: rec,
		A:      &AuthHandler{DB: db, JWTSecret: testSecret, Producer: rec, Cart: cartService, Guests: guests},
		C:      &CartHandler{DB: db, Cart: cartService, Guests: guests, Producer: rec},
		O:      &OrderHandler{DB: db, Producer: rec},
		R:      &ResourceHandler{Registry: resource.NewRegistry(db)},
	}
}

func (env *testEnv) doJSONRequest(method, path string, body interface{}, opts ...func(*http.Request)) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

func asUser(tok string) func(*http.Request) {
	return func(req *http.Request) {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	}
}

func withCookie(ck *http.Cookie) func(*http.Request) {
	return func(req *http.Request) {
		req.AddCookie(ck)
	}
}

// call runs a handler behind the identity middleware, the way the router
// wires it.
func (env *testEnv) call(h echo.HandlerFunc, c echo.Context) error {
	return mwauth.Identity(testSecret)(h)(c)
}

func (env *testEnv) createUser(username, password, role string) (models.User, string) {
	pwHash, err := hash.HashPassword(password)
	require.NoError(env.T, err)
	user := models.User{Username: username, PasswordHash: pwHash, Role: role}
	require.NoError(env.T, env.DB.Create(&user).Error)
	tok, err := token.Issue(user, testSecret)
	require.NoError(env.T, err)
	return user, tok
}

func (env *testEnv) createProduct(name string, price float64, sellerID *uint) models.Product {
	p := models.Product{Name: name, Price: price, SellerID: sellerID}
	require.NoError(env.T, env.DB.Create(&p).Error)
	return p
}
