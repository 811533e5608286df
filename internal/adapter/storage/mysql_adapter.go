package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/rcastell/shop-backend/internal/core/domain"
)

// MySQLAdapter implements the product, purchase and user repositories on a
// single connection pool. The purchase transaction lives here: callers get
// all-or-nothing semantics without touching database/sql themselves.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrRowIsReferenced = 1451
)

func (m *MySQLAdapter) CreateProduct(ctx context.Context, p domain.Product) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO products (id, batch_number, name, price, quantity, entry_date)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.BatchNumber, p.Name, p.Price, p.Quantity, p.EntryDate,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) UpdateProduct(ctx context.Context, p domain.Product) error {
	// Existence is checked separately: MySQL reports zero affected rows for
	// a no-op update, so RowsAffected cannot distinguish missing from unchanged.
	if _, err := m.GetProduct(ctx, p.ID); err != nil {
		return err
	}

	_, err := m.db.ExecContext(ctx, `
		UPDATE products
		SET batch_number = ?, name = ?, price = ?, quantity = ?, entry_date = ?, updated_at = NOW()
		WHERE id = ?`,
		p.BatchNumber, p.Name, p.Price, p.Quantity, p.EntryDate, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := m.db.QueryRowContext(ctx, `
		SELECT id, batch_number, name, price, quantity, entry_date, created_at, updated_at
		FROM products WHERE id = ?`, id,
	).Scan(&p.ID, &p.BatchNumber, &p.Name, &p.Price, &p.Quantity, &p.EntryDate, &p.CreatedAt, &p.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}

func (m *MySQLAdapter) DeleteProduct(ctx context.Context, id string) error {
	result, err := m.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrRowIsReferenced {
			return domain.ErrProductInUse
		}
		return fmt.Errorf("delete product: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (m *MySQLAdapter) ListProducts(ctx context.Context, page, limit int) ([]domain.Product, int, error) {
	var total int
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	query := `
		SELECT id, batch_number, name, price, quantity, entry_date, created_at, updated_at
		FROM products ORDER BY created_at DESC, id`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, pageOffset(page, limit))
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.BatchNumber, &p.Name, &p.Price, &p.Quantity,
			&p.EntryDate, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate products: %w", err)
	}
	return products, total, nil
}

func (m *MySQLAdapter) CreateUser(ctx context.Context, u domain.User) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, role)
		VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role,
	)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.getUser(ctx, `
		SELECT id, username, email, password_hash, role, created_at
		FROM users WHERE email = ?`, email)
}

func (m *MySQLAdapter) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return m.getUser(ctx, `
		SELECT id, username, email, password_hash, role, created_at
		FROM users WHERE id = ?`, id)
}

func (m *MySQLAdapter) getUser(ctx context.Context, query string, arg interface{}) (*domain.User, error) {
	var u domain.User
	err := m.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

func pageOffset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}
