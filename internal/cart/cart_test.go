package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/K-dubey09/bookstore/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps the in-memory database shared and serializes
	// concurrent statements.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Product{}, &models.CartItem{},
		&models.Order{}, &models.OrderItem{},
	))
	return db
}

func createProduct(t *testing.T, db *gorm.DB, name string, price float64, sellerID *uint) models.Product {
	t.Helper()
	p := models.Product{Name: name, Price: price, SellerID: sellerID}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func TestAddSnapshotsPrice(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	p := createProduct(t, db, "go book", 100, nil)

	item, err := svc.Add(ctx, 1, p.ID, 2)
	require.NoError(t, err)
	require.EqualValues(t, 2, item.Quantity)
	require.EqualValues(t, 100, item.Price)

	// A later price change must not affect the cart line.
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", p.ID).Update("price", 999).Error)

	items, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.EqualValues(t, 100, items[0].Price)
}

func TestAddBumpsExistingLine(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	p := createProduct(t, db, "go book", 10, nil)

	_, err := svc.Add(ctx, 1, p.ID, 0) // defaults to 1
	require.NoError(t, err)
	item, err := svc.Add(ctx, 1, p.ID, 3)
	require.NoError(t, err)
	require.EqualValues(t, 4, item.Quantity)

	items, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestAddUnknownProduct(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	_, err := svc.Add(context.Background(), 1, 42, 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestChangeQuantityRemovesAtZero(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	p := createProduct(t, db, "go book", 10, nil)
	_, err := svc.Add(ctx, 1, p.ID, 2)
	require.NoError(t, err)

	items, err := svc.ChangeQuantity(ctx, 1, p.ID, -2)
	require.NoError(t, err)
	require.Empty(t, items)

	// Another negative delta against the now-missing line is NotFound.
	_, err = svc.ChangeQuantity(ctx, 1, p.ID, -1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestChangeQuantityNeverLeavesZeroLine(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	p := createProduct(t, db, "go book", 10, nil)
	_, err := svc.Add(ctx, 1, p.ID, 1)
	require.NoError(t, err)

	items, err := svc.ChangeQuantity(ctx, 1, p.ID, -5)
	require.NoError(t, err)
	require.Empty(t, items)

	var count int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("user_id = ?", 1).Count(&count).Error)
	require.Zero(t, count)
}

func TestCheckout(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	sellerID := uint(9)
	p1 := createProduct(t, db, "go book", 100, &sellerID)
	p2 := createProduct(t, db, "bookmark", 50, nil)

	_, err := svc.Add(ctx, 1, p1.ID, 2)
	require.NoError(t, err)
	_, err = svc.Add(ctx, 1, p2.ID, 1)
	require.NoError(t, err)

	order, items, err := svc.Checkout(ctx, 1)
	require.NoError(t, err)
	require.EqualValues(t, 250, order.Total)
	require.Equal(t, models.OrderStatusPlaced, order.Status)
	require.NotZero(t, order.CreatedAt)
	require.Len(t, items, 2)
	require.NotNil(t, items[0].SellerID)
	require.EqualValues(t, sellerID, *items[0].SellerID)
	require.Nil(t, items[1].SellerID)

	remaining, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	require.Empty(t, remaining)

	_, _, err = svc.Checkout(ctx, 1)
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutFreezesSeller(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	sellerID := uint(9)
	p := createProduct(t, db, "go book", 100, &sellerID)
	_, err := svc.Add(ctx, 1, p.ID, 1)
	require.NoError(t, err)

	order, _, err := svc.Checkout(ctx, 1)
	require.NoError(t, err)

	// Reassigning the product afterwards must not touch the order line.
	other := uint(11)
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", p.ID).Update("seller_id", other).Error)

	var items []models.OrderItem
	require.NoError(t, db.Where("order_id = ?", order.ID).Find(&items).Error)
	require.Len(t, items, 1)
	require.EqualValues(t, sellerID, *items[0].SellerID)
}

func TestReplaceDropsUnknownProductsAndZeroLines(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	p := createProduct(t, db, "go book", 40, nil)

	items, err := svc.Replace(ctx, 1, []Line{
		{ProductID: p.ID, Quantity: 2},
		{ProductID: 12345, Quantity: 1},
		{ProductID: p.ID + 100, Quantity: 0},
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.EqualValues(t, p.ID, items[0].ProductID)
	require.EqualValues(t, 40, items[0].Price)
}

func TestMergeGuestReplacesPersistedCart(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	p1 := createProduct(t, db, "old pick", 10, nil)
	p2 := createProduct(t, db, "new pick", 20, nil)

	_, err := svc.Add(ctx, 1, p1.ID, 5)
	require.NoError(t, err)

	require.NoError(t, svc.MergeGuest(ctx, 1, []Line{{ProductID: p2.ID, Quantity: 1, Price: 20}}))

	items, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.EqualValues(t, p2.ID, items[0].ProductID)

	// Empty guest cart leaves the persisted cart alone.
	require.NoError(t, svc.MergeGuest(ctx, 1, nil))
	items, err = svc.Get(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestConcurrentAddsConverge(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	p := createProduct(t, db, "go book", 10, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Add(ctx, 1, p.ID, 1)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	items, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.EqualValues(t, 100, items[0].Quantity)
}

func TestGuestStore(t *testing.T) {
	g := NewGuestStore()
	id := g.NewID()
	require.NotEmpty(t, id)

	lines := g.Add(id, 1, 2, 10)
	require.Len(t, lines, 1)
	lines = g.Add(id, 1, 1, 10)
	require.EqualValues(t, 3, lines[0].Quantity)

	lines, ok := g.Change(id, 1, -3)
	require.True(t, ok)
	require.Empty(t, lines)

	_, ok = g.Change(id, 1, -1)
	require.False(t, ok)

	g.Replace(id, []Line{{ProductID: 2, Quantity: 1, Price: 5}})
	taken := g.Take(id)
	require.Len(t, taken, 1)
	require.Empty(t, g.Get(id))
}
