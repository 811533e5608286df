package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rcastell/shop-backend/internal/core/domain"
	"github.com/rcastell/shop-backend/internal/port"
)

// PurchaseService converts a validated basket into a durable purchase, or
// leaves no trace. The all-or-nothing commit itself is delegated to the
// purchase repository; this layer validates input, guards against
// double-submit and maps the outcome.
type PurchaseService struct {
	purchases port.PurchaseRepository
	cache     port.CacheRepository
	logger    *zap.Logger
}

func NewPurchaseService(purchases port.PurchaseRepository, cache port.CacheRepository, logger *zap.Logger) *PurchaseService {
	return &PurchaseService{
		purchases: purchases,
		cache:     cache,
		logger:    logger,
	}
}

// Purchase processes a basket on behalf of userID. requestID is optional; when
// present, a replay of the same id within the idempotency window is rejected
// with domain.ErrDuplicateRequest.
func (s *PurchaseService) Purchase(ctx context.Context, userID, requestID string, basket []domain.BasketItem) (*domain.Purchase, error) {
	if len(basket) == 0 {
		return nil, domain.ErrEmptyBasket
	}
	for _, item := range basket {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("product %s: %w", item.ProductID, domain.ErrInvalidQuantity)
		}
	}

	idempotencyKey := ""
	if requestID != "" {
		idempotencyKey = fmt.Sprintf("%s:%s", userID, requestID)
		ok, err := s.cache.SetIdempotency(ctx, idempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("idempotency check failed: %w", err)
		}
		if !ok {
			return nil, domain.ErrDuplicateRequest
		}
	}

	purchase := &domain.Purchase{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: time.Now(),
	}

	if err := s.purchases.CreatePurchase(ctx, purchase, basket); err != nil {
		// Release the key so a failed basket can be resubmitted.
		if idempotencyKey != "" {
			if clearErr := s.cache.ClearIdempotency(ctx, idempotencyKey); clearErr != nil {
				s.logger.Warn("failed to release idempotency key",
					zap.String("key", idempotencyKey), zap.Error(clearErr))
			}
		}
		s.logger.Info("purchase rejected",
			zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("purchase completed",
		zap.String("purchase_id", purchase.ID),
		zap.String("user_id", userID),
		zap.String("total", purchase.TotalPrice.String()),
		zap.Int("lines", len(purchase.Details)))
	return purchase, nil
}

// Invoice returns one purchase with its lines. Non-admin callers only see
// their own purchases; anything else reads as not found.
func (s *PurchaseService) Invoice(ctx context.Context, purchaseID, userID string, isAdmin bool) (*domain.Purchase, error) {
	scope := userID
	if isAdmin {
		scope = ""
	}
	return s.purchases.GetInvoice(ctx, purchaseID, scope)
}

// History lists a user's purchases newest first.
func (s *PurchaseService) History(ctx context.Context, userID string, page, limit int) ([]domain.Purchase, int, error) {
	return s.purchases.ListUserPurchases(ctx, userID, page, limit)
}

// ListAll is the administrator view across all users.
func (s *PurchaseService) ListAll(ctx context.Context, page, limit int) ([]domain.Purchase, int, error) {
	return s.purchases.ListPurchases(ctx, page, limit)
}
