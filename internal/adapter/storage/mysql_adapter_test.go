package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rcastell/shop-backend/internal/core/domain"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/shop?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *sql.DB) string {
	t.Helper()
	ctx := context.Background()
	id := uuid.New().String()
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, role)
		VALUES (?, ?, ?, 'x', 'client')`,
		id, "test-"+id[:8], id[:8]+"@test.local")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	t.Cleanup(func() {
		db.ExecContext(ctx, `DELETE FROM purchase_details WHERE purchase_id IN (SELECT id FROM purchases WHERE user_id = ?)`, id)
		db.ExecContext(ctx, `DELETE FROM purchases WHERE user_id = ?`, id)
		db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	})
	return id
}

func seedProduct(t *testing.T, db *sql.DB, quantity int, price string) string {
	t.Helper()
	ctx := context.Background()
	id := uuid.New().String()
	_, err := db.ExecContext(ctx, `
		INSERT INTO products (id, batch_number, name, price, quantity, entry_date)
		VALUES (?, 'B-TEST', 'test product', ?, ?, CURDATE())`,
		id, price, quantity)
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	t.Cleanup(func() {
		db.ExecContext(ctx, `DELETE FROM purchase_details WHERE product_id = ?`, id)
		db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	})
	return id
}

func productStock(t *testing.T, db *sql.DB, id string) int {
	t.Helper()
	var stock int
	if err := db.QueryRowContext(context.Background(),
		`SELECT quantity FROM products WHERE id = ?`, id).Scan(&stock); err != nil {
		t.Fatalf("query stock: %v", err)
	}
	return stock
}

func TestCreatePurchase_Success(t *testing.T) {
	db := getMySQLDB(t)
	adapter := NewMySQLAdapter(db)
	ctx := context.Background()

	userID := seedUser(t, db)
	productID := seedProduct(t, db, 5, "10.50")

	purchase := &domain.Purchase{ID: uuid.New().String(), UserID: userID, CreatedAt: time.Now()}
	err := adapter.CreatePurchase(ctx, purchase, []domain.BasketItem{
		{ProductID: productID, Quantity: 3},
	})
	if err != nil {
		t.Fatalf("CreatePurchase failed: %v", err)
	}

	if !purchase.TotalPrice.Equal(decimal.RequireFromString("31.50")) {
		t.Errorf("expected total 31.50, got %s", purchase.TotalPrice)
	}
	if stock := productStock(t, db, productID); stock != 2 {
		t.Errorf("expected stock 2, got %d", stock)
	}

	// header total matches sum of line subtotals in the database
	var dbTotal decimal.Decimal
	db.QueryRowContext(ctx, `SELECT total_price FROM purchases WHERE id = ?`, purchase.ID).Scan(&dbTotal)
	if !dbTotal.Equal(purchase.TotalPrice) {
		t.Errorf("stored total %s != reported total %s", dbTotal, purchase.TotalPrice)
	}
}

func TestCreatePurchase_InsufficientStock_Rollback(t *testing.T) {
	db := getMySQLDB(t)
	adapter := NewMySQLAdapter(db)
	ctx := context.Background()

	userID := seedUser(t, db)
	okProduct := seedProduct(t, db, 10, "5.00")
	shortProduct := seedProduct(t, db, 1, "2.00")

	purchase := &domain.Purchase{ID: uuid.New().String(), UserID: userID, CreatedAt: time.Now()}
	err := adapter.CreatePurchase(ctx, purchase, []domain.BasketItem{
		{ProductID: okProduct, Quantity: 2},
		{ProductID: shortProduct, Quantity: 5},
	})

	ise, ok := domain.IsInsufficientStock(err)
	if !ok {
		t.Fatalf("expected InsufficientStockError, got: %v", err)
	}
	if ise.ProductID != shortProduct || ise.Available != 1 {
		t.Errorf("unexpected shortfall report: %+v", ise)
	}

	// full rollback: no header, no lines, no stock change
	var count int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM purchases WHERE id = ?`, purchase.ID).Scan(&count)
	if count != 0 {
		t.Error("purchase header survived a failed attempt")
	}
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM purchase_details WHERE purchase_id = ?`, purchase.ID).Scan(&count)
	if count != 0 {
		t.Error("purchase lines survived a failed attempt")
	}
	if stock := productStock(t, db, okProduct); stock != 10 {
		t.Errorf("expected stock 10 after rollback, got %d", stock)
	}
}

func TestCreatePurchase_ProductNotFound(t *testing.T) {
	db := getMySQLDB(t)
	adapter := NewMySQLAdapter(db)
	ctx := context.Background()

	userID := seedUser(t, db)

	purchase := &domain.Purchase{ID: uuid.New().String(), UserID: userID, CreatedAt: time.Now()}
	err := adapter.CreatePurchase(ctx, purchase, []domain.BasketItem{
		{ProductID: uuid.New().String(), Quantity: 1},
	})
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got: %v", err)
	}
}

func TestCreatePurchase_SameProductTwice(t *testing.T) {
	db := getMySQLDB(t)
	adapter := NewMySQLAdapter(db)
	ctx := context.Background()

	userID := seedUser(t, db)
	productID := seedProduct(t, db, 5, "1.00")

	// each line fits alone, the pair does not
	purchase := &domain.Purchase{ID: uuid.New().String(), UserID: userID, CreatedAt: time.Now()}
	err := adapter.CreatePurchase(ctx, purchase, []domain.BasketItem{
		{ProductID: productID, Quantity: 3},
		{ProductID: productID, Quantity: 3},
	})
	if _, ok := domain.IsInsufficientStock(err); !ok {
		t.Fatalf("expected InsufficientStockError, got: %v", err)
	}
	if stock := productStock(t, db, productID); stock != 5 {
		t.Errorf("expected stock 5 after rollback, got %d", stock)
	}
}

func TestCreatePurchase_Concurrent(t *testing.T) {
	db := getMySQLDB(t)
	adapter := NewMySQLAdapter(db)

	userID := seedUser(t, db)
	initialStock := 10
	totalRequests := 30
	productID := seedProduct(t, db, initialStock, "3.00")

	var successCount atomic.Int32
	var stockFailCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			purchase := &domain.Purchase{ID: uuid.New().String(), UserID: userID, CreatedAt: time.Now()}
			err := adapter.CreatePurchase(ctx, purchase, []domain.BasketItem{
				{ProductID: productID, Quantity: 1},
			})
			if err == nil {
				successCount.Add(1)
			} else if _, ok := domain.IsInsufficientStock(err); ok {
				stockFailCount.Add(1)
			} else {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successCount.Load() != int32(initialStock) {
		t.Errorf("expected %d successes, got %d", initialStock, successCount.Load())
	}
	if stock := productStock(t, db, productID); stock != 0 {
		t.Errorf("expected final stock 0, got %d", stock)
	}
}

func TestGetInvoice_PriceSnapshot(t *testing.T) {
	db := getMySQLDB(t)
	adapter := NewMySQLAdapter(db)
	ctx := context.Background()

	userID := seedUser(t, db)
	productID := seedProduct(t, db, 5, "10.00")

	purchase := &domain.Purchase{ID: uuid.New().String(), UserID: userID, CreatedAt: time.Now()}
	if err := adapter.CreatePurchase(ctx, purchase, []domain.BasketItem{
		{ProductID: productID, Quantity: 1},
	}); err != nil {
		t.Fatalf("CreatePurchase failed: %v", err)
	}

	// price change after the sale must not affect the invoice
	if _, err := db.ExecContext(ctx, `UPDATE products SET price = 99.99 WHERE id = ?`, productID); err != nil {
		t.Fatalf("update price: %v", err)
	}

	invoice, err := adapter.GetInvoice(ctx, purchase.ID, userID)
	if err != nil {
		t.Fatalf("GetInvoice failed: %v", err)
	}
	if len(invoice.Details) != 1 {
		t.Fatalf("expected 1 line, got %d", len(invoice.Details))
	}
	if !invoice.Details[0].UnitPrice.Equal(decimal.RequireFromString("10.00")) {
		t.Errorf("expected captured price 10.00, got %s", invoice.Details[0].UnitPrice)
	}
}

func TestGetInvoice_Scope(t *testing.T) {
	db := getMySQLDB(t)
	adapter := NewMySQLAdapter(db)
	ctx := context.Background()

	ownerID := seedUser(t, db)
	otherID := seedUser(t, db)
	productID := seedProduct(t, db, 5, "1.00")

	purchase := &domain.Purchase{ID: uuid.New().String(), UserID: ownerID, CreatedAt: time.Now()}
	if err := adapter.CreatePurchase(ctx, purchase, []domain.BasketItem{
		{ProductID: productID, Quantity: 1},
	}); err != nil {
		t.Fatalf("CreatePurchase failed: %v", err)
	}

	if _, err := adapter.GetInvoice(ctx, purchase.ID, ownerID); err != nil {
		t.Errorf("owner should see invoice: %v", err)
	}
	if _, err := adapter.GetInvoice(ctx, purchase.ID, otherID); !errors.Is(err, domain.ErrPurchaseNotFound) {
		t.Errorf("expected ErrPurchaseNotFound for foreign scope, got: %v", err)
	}
	if _, err := adapter.GetInvoice(ctx, purchase.ID, ""); err != nil {
		t.Errorf("admin scope should see invoice: %v", err)
	}
}

func TestListUserPurchases_NewestFirst(t *testing.T) {
	db := getMySQLDB(t)
	adapter := NewMySQLAdapter(db)
	ctx := context.Background()

	userID := seedUser(t, db)
	productID := seedProduct(t, db, 10, "1.00")

	first := &domain.Purchase{ID: uuid.New().String(), UserID: userID, CreatedAt: time.Now().Add(-time.Hour)}
	second := &domain.Purchase{ID: uuid.New().String(), UserID: userID, CreatedAt: time.Now()}
	for _, p := range []*domain.Purchase{first, second} {
		if err := adapter.CreatePurchase(ctx, p, []domain.BasketItem{
			{ProductID: productID, Quantity: 1},
		}); err != nil {
			t.Fatalf("CreatePurchase failed: %v", err)
		}
	}

	purchases, total, err := adapter.ListUserPurchases(ctx, userID, 1, 1)
	if err != nil {
		t.Fatalf("ListUserPurchases failed: %v", err)
	}
	if total != 2 {
		t.Errorf("expected total 2, got %d", total)
	}
	if len(purchases) != 1 || purchases[0].ID != second.ID {
		t.Errorf("expected newest purchase first")
	}
}

func TestProductCRUD(t *testing.T) {
	db := getMySQLDB(t)
	adapter := NewMySQLAdapter(db)
	ctx := context.Background()

	p := domain.Product{
		ID:          uuid.New().String(),
		BatchNumber: "B-001",
		Name:        "crud product",
		Price:       decimal.RequireFromString("4.25"),
		Quantity:    7,
		EntryDate:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
	t.Cleanup(func() { db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, p.ID) })

	if err := adapter.CreateProduct(ctx, p); err != nil {
		t.Fatalf("CreateProduct failed: %v", err)
	}

	got, err := adapter.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if got.Name != "crud product" || !got.Price.Equal(p.Price) || got.Quantity != 7 {
		t.Errorf("unexpected product: %+v", got)
	}

	p.Name = "renamed"
	p.Quantity = 9
	if err := adapter.UpdateProduct(ctx, p); err != nil {
		t.Fatalf("UpdateProduct failed: %v", err)
	}
	got, _ = adapter.GetProduct(ctx, p.ID)
	if got.Name != "renamed" || got.Quantity != 9 {
		t.Errorf("update not applied: %+v", got)
	}

	if err := adapter.DeleteProduct(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProduct failed: %v", err)
	}
	if _, err := adapter.GetProduct(ctx, p.ID); !errors.Is(err, domain.ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound after delete, got: %v", err)
	}
	if err := adapter.DeleteProduct(ctx, p.ID); !errors.Is(err, domain.ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound on double delete, got: %v", err)
	}
}

func TestUpdateProduct_NotFound(t *testing.T) {
	db := getMySQLDB(t)
	adapter := NewMySQLAdapter(db)

	err := adapter.UpdateProduct(context.Background(), domain.Product{
		ID:    uuid.New().String(),
		Price: decimal.Zero,
	})
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got: %v", err)
	}
}

func TestDeleteProduct_Referenced(t *testing.T) {
	db := getMySQLDB(t)
	adapter := NewMySQLAdapter(db)
	ctx := context.Background()

	userID := seedUser(t, db)
	productID := seedProduct(t, db, 5, "1.00")

	purchase := &domain.Purchase{ID: uuid.New().String(), UserID: userID, CreatedAt: time.Now()}
	if err := adapter.CreatePurchase(ctx, purchase, []domain.BasketItem{
		{ProductID: productID, Quantity: 1},
	}); err != nil {
		t.Fatalf("CreatePurchase failed: %v", err)
	}

	if err := adapter.DeleteProduct(ctx, productID); !errors.Is(err, domain.ErrProductInUse) {
		t.Errorf("expected ErrProductInUse, got: %v", err)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := getMySQLDB(t)
	adapter := NewMySQLAdapter(db)
	ctx := context.Background()

	email := uuid.New().String()[:8] + "@test.local"
	first := domain.User{ID: uuid.New().String(), Username: "a", Email: email, PasswordHash: "x", Role: domain.RoleClient}
	second := domain.User{ID: uuid.New().String(), Username: "b", Email: email, PasswordHash: "x", Role: domain.RoleClient}
	t.Cleanup(func() { db.ExecContext(ctx, `DELETE FROM users WHERE email = ?`, email) })

	if err := adapter.CreateUser(ctx, first); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if err := adapter.CreateUser(ctx, second); !errors.Is(err, domain.ErrEmailTaken) {
		t.Errorf("expected ErrEmailTaken, got: %v", err)
	}
}
