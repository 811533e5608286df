package port

import (
	"context"

	"github.com/rcastell/shop-backend/internal/core/domain"
)

type ProductRepository interface {
	CreateProduct(ctx context.Context, p domain.Product) error

	UpdateProduct(ctx context.Context, p domain.Product) error

	// GetProduct returns domain.ErrProductNotFound when no row matches.
	GetProduct(ctx context.Context, id string) (*domain.Product, error)

	DeleteProduct(ctx context.Context, id string) error

	// ListProducts returns the requested page and the total row count.
	// limit <= 0 means no pagination.
	ListProducts(ctx context.Context, page, limit int) ([]domain.Product, int, error)
}

type PurchaseRepository interface {
	// CreatePurchase commits the whole basket in one transaction: header,
	// one stock reservation plus line per item, finalized total. On any
	// failure nothing is persisted. On success purchase.Details and
	// purchase.TotalPrice are filled in.
	CreatePurchase(ctx context.Context, purchase *domain.Purchase, basket []domain.BasketItem) error

	// GetInvoice loads a purchase with its lines and product snapshots.
	// When scopeUserID is non-empty, purchases belonging to other users are
	// reported as domain.ErrPurchaseNotFound rather than leaked.
	GetInvoice(ctx context.Context, purchaseID, scopeUserID string) (*domain.Purchase, error)

	// ListUserPurchases returns a user's purchases newest first plus the
	// total count. limit <= 0 means no pagination.
	ListUserPurchases(ctx context.Context, userID string, page, limit int) ([]domain.Purchase, int, error)

	// ListPurchases is the admin view across all users.
	ListPurchases(ctx context.Context, page, limit int) ([]domain.Purchase, int, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, u domain.User) error

	// GetUserByEmail returns domain.ErrUserNotFound when no row matches.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}
