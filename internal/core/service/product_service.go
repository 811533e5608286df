package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rcastell/shop-backend/internal/core/domain"
	"github.com/rcastell/shop-backend/internal/port"
)

// ProductService is the administrator-facing inventory surface: CRUD plus
// paginated listing. Stock decrements never go through here, only through
// the purchase workflow.
type ProductService struct {
	products port.ProductRepository
	logger   *zap.Logger
}

func NewProductService(products port.ProductRepository, logger *zap.Logger) *ProductService {
	return &ProductService{products: products, logger: logger}
}

func (s *ProductService) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	p.ID = uuid.New().String()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt

	if err := s.products.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("product created", zap.String("product_id", p.ID), zap.String("name", p.Name))
	return &p, nil
}

func (s *ProductService) Update(ctx context.Context, p domain.Product) error {
	if err := s.products.UpdateProduct(ctx, p); err != nil {
		return err
	}
	s.logger.Info("product updated", zap.String("product_id", p.ID))
	return nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.products.GetProduct(ctx, id)
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	if err := s.products.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.logger.Info("product deleted", zap.String("product_id", id))
	return nil
}

func (s *ProductService) List(ctx context.Context, page, limit int) ([]domain.Product, int, error) {
	return s.products.ListProducts(ctx, page, limit)
}
