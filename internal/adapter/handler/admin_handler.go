package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rcastell/shop-backend/internal/core/domain"
)

type ProductService interface {
	Create(ctx context.Context, p domain.Product) (*domain.Product, error)
	Update(ctx context.Context, p domain.Product) error
	Get(ctx context.Context, id string) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, page, limit int) ([]domain.Product, int, error)
}

type AdminHandler struct {
	products  ProductService
	purchases PurchaseService
	logger    *zap.Logger
}

func NewAdminHandler(products ProductService, purchases PurchaseService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{products: products, purchases: purchases, logger: logger}
}

type productRequest struct {
	BatchNumber string          `json:"batchNumber" binding:"required"`
	Name        string          `json:"name" binding:"required"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity" binding:"gte=1"`
	EntryDate   string          `json:"entryDate" binding:"required"`
}

// parseEntryDate accepts YYYY-MM-DD or full RFC 3339 timestamps.
func (r productRequest) parseEntryDate() (time.Time, error) {
	if t, err := time.Parse("2006-01-02", r.EntryDate); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, r.EntryDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("entryDate must be YYYY-MM-DD or RFC 3339")
	}
	return t, nil
}

type productResponse struct {
	ID          string          `json:"id"`
	BatchNumber string          `json:"batchNumber"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	EntryDate   time.Time       `json:"entryDate"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func newProductResponse(p domain.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		BatchNumber: p.BatchNumber,
		Name:        p.Name,
		Price:       p.Price,
		Quantity:    p.Quantity,
		EntryDate:   p.EntryDate,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (h *AdminHandler) bindProduct(c *gin.Context) (*domain.Product, bool) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return nil, false
	}
	if req.Price.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []fieldError{
			{Field: "price", Message: "must not be negative"},
		}})
		return nil, false
	}
	entryDate, err := req.parseEntryDate()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []fieldError{
			{Field: "entryDate", Message: err.Error()},
		}})
		return nil, false
	}

	return &domain.Product{
		BatchNumber: req.BatchNumber,
		Name:        req.Name,
		Price:       req.Price,
		Quantity:    req.Quantity,
		EntryDate:   entryDate,
	}, true
}

func (h *AdminHandler) CreateProduct(c *gin.Context) {
	product, ok := h.bindProduct(c)
	if !ok {
		return
	}

	created, err := h.products.Create(c.Request.Context(), *product)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"product": newProductResponse(*created)})
}

func (h *AdminHandler) UpdateProduct(c *gin.Context) {
	product, ok := h.bindProduct(c)
	if !ok {
		return
	}
	product.ID = c.Param("id")

	if err := h.products.Update(c.Request.Context(), *product); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "product updated successfully"})
}

func (h *AdminHandler) GetProduct(c *gin.Context) {
	product, err := h.products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"product": newProductResponse(*product)})
}

func (h *AdminHandler) DeleteProduct(c *gin.Context) {
	if err := h.products.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "product deleted successfully"})
}

func (h *AdminHandler) ListProducts(c *gin.Context) {
	page, limit := pagination(c)

	products, total, err := h.products.List(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, newProductResponse(p))
	}

	if limit > 0 {
		c.JSON(http.StatusOK, gin.H{
			"products":   out,
			"totalPages": totalPages(total, limit),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": out})
}

func (h *AdminHandler) ListPurchases(c *gin.Context) {
	page, limit := pagination(c)

	purchases, total, err := h.purchases.ListAll(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if limit > 0 {
		c.JSON(http.StatusOK, gin.H{
			"purchases":  newPurchaseListResponse(purchases),
			"totalPages": totalPages(total, limit),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"purchases": newPurchaseListResponse(purchases)})
}
