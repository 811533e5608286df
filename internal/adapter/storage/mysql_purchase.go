package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rcastell/shop-backend/internal/core/domain"
)

// CreatePurchase commits a basket as one unit of work. Stock reservations,
// line inserts and the header total all happen inside a single transaction:
// if any item is missing or short on stock, the whole attempt rolls back and
// the database keeps no trace of it.
func (m *MySQLAdapter) CreatePurchase(ctx context.Context, purchase *domain.Purchase, basket []domain.BasketItem) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO purchases (id, user_id, total_price, created_at)
		VALUES (?, ?, 0, ?)`,
		purchase.ID, purchase.UserID, purchase.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert purchase: %w", err)
	}

	total := decimal.Zero
	details := make([]domain.PurchaseDetail, 0, len(basket))
	for lineNo, item := range basket {
		unitPrice, err := reserveStock(ctx, tx, item.ProductID, item.Quantity)
		if err != nil {
			return err
		}

		detail := domain.PurchaseDetail{
			ID:         uuid.New().String(),
			PurchaseID: purchase.ID,
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  unitPrice,
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO purchase_details (id, purchase_id, product_id, line_no, quantity, unit_price)
			VALUES (?, ?, ?, ?, ?, ?)`,
			detail.ID, detail.PurchaseID, detail.ProductID, lineNo, detail.Quantity, detail.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("insert purchase detail: %w", err)
		}

		total = total.Add(detail.Subtotal())
		details = append(details, detail)
	}

	_, err = tx.ExecContext(ctx, `UPDATE purchases SET total_price = ? WHERE id = ?`, total, purchase.ID)
	if err != nil {
		return fmt.Errorf("finalize purchase total: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit purchase: %w", err)
	}

	purchase.TotalPrice = total
	purchase.Details = details
	return nil
}

// reserveStock is the conditional decrement: it succeeds only when the row
// still holds enough stock, and it locks the row until the enclosing
// transaction commits. The returned price is the one in effect at the
// instant of the reservation. Duplicate basket entries for the same product
// hit the already-decremented counter, so a basket cannot oversell itself.
func reserveStock(ctx context.Context, tx *sql.Tx, productID string, quantity int) (decimal.Decimal, error) {
	result, err := tx.ExecContext(ctx, `
		UPDATE products
		SET quantity = quantity - ?, updated_at = NOW()
		WHERE id = ? AND quantity >= ?`,
		quantity, productID, quantity,
	)
	if err != nil {
		return decimal.Zero, fmt.Errorf("reserve stock: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		var available int
		err := tx.QueryRowContext(ctx,
			`SELECT quantity FROM products WHERE id = ?`, productID,
		).Scan(&available)
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("product %s: %w", productID, domain.ErrProductNotFound)
		}
		if err != nil {
			return decimal.Zero, fmt.Errorf("query stock: %w", err)
		}
		return decimal.Zero, &domain.InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
			Available: available,
		}
	}

	var price decimal.Decimal
	err = tx.QueryRowContext(ctx, `SELECT price FROM products WHERE id = ?`, productID).Scan(&price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("query price: %w", err)
	}
	return price, nil
}

// GetInvoice loads one purchase with its lines and product names. An empty
// scopeUserID means admin visibility; otherwise purchases owned by someone
// else come back as not found.
func (m *MySQLAdapter) GetInvoice(ctx context.Context, purchaseID, scopeUserID string) (*domain.Purchase, error) {
	query := `
		SELECT p.id, p.user_id, u.username, p.total_price, p.created_at
		FROM purchases p
		JOIN users u ON u.id = p.user_id
		WHERE p.id = ?`
	args := []interface{}{purchaseID}
	if scopeUserID != "" {
		query += ` AND p.user_id = ?`
		args = append(args, scopeUserID)
	}

	var purchase domain.Purchase
	err := m.db.QueryRowContext(ctx, query, args...).
		Scan(&purchase.ID, &purchase.UserID, &purchase.Username, &purchase.TotalPrice, &purchase.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPurchaseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query purchase: %w", err)
	}

	details, err := m.loadDetails(ctx, purchase.ID)
	if err != nil {
		return nil, err
	}
	purchase.Details = details
	return &purchase, nil
}

func (m *MySQLAdapter) ListUserPurchases(ctx context.Context, userID string, page, limit int) ([]domain.Purchase, int, error) {
	return m.listPurchases(ctx, userID, page, limit)
}

func (m *MySQLAdapter) ListPurchases(ctx context.Context, page, limit int) ([]domain.Purchase, int, error) {
	return m.listPurchases(ctx, "", page, limit)
}

func (m *MySQLAdapter) listPurchases(ctx context.Context, userID string, page, limit int) ([]domain.Purchase, int, error) {
	countQuery := `SELECT COUNT(*) FROM purchases`
	query := `
		SELECT p.id, p.user_id, u.username, p.total_price, p.created_at
		FROM purchases p
		JOIN users u ON u.id = p.user_id`
	countArgs := []interface{}{}
	args := []interface{}{}
	if userID != "" {
		countQuery += ` WHERE user_id = ?`
		query += ` WHERE p.user_id = ?`
		countArgs = append(countArgs, userID)
		args = append(args, userID)
	}
	query += ` ORDER BY p.created_at DESC, p.id`
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, pageOffset(page, limit))
	}

	var total int
	if err := m.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count purchases: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query purchases: %w", err)
	}
	defer rows.Close()

	purchases := []domain.Purchase{}
	for rows.Next() {
		var p domain.Purchase
		if err := rows.Scan(&p.ID, &p.UserID, &p.Username, &p.TotalPrice, &p.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan purchase: %w", err)
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate purchases: %w", err)
	}

	for i := range purchases {
		details, err := m.loadDetails(ctx, purchases[i].ID)
		if err != nil {
			return nil, 0, err
		}
		purchases[i].Details = details
	}
	return purchases, total, nil
}

func (m *MySQLAdapter) loadDetails(ctx context.Context, purchaseID string) ([]domain.PurchaseDetail, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT d.id, d.purchase_id, d.product_id, pr.name, d.quantity, d.unit_price
		FROM purchase_details d
		JOIN products pr ON pr.id = d.product_id
		WHERE d.purchase_id = ?
		ORDER BY d.line_no`, purchaseID,
	)
	if err != nil {
		return nil, fmt.Errorf("query purchase details: %w", err)
	}
	defer rows.Close()

	details := []domain.PurchaseDetail{}
	for rows.Next() {
		var d domain.PurchaseDetail
		if err := rows.Scan(&d.ID, &d.PurchaseID, &d.ProductID, &d.ProductName, &d.Quantity, &d.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan purchase detail: %w", err)
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase details: %w", err)
	}
	return details, nil
}
