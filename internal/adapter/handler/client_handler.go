package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rcastell/shop-backend/internal/core/domain"
)

type PurchaseService interface {
	Purchase(ctx context.Context, userID, requestID string, basket []domain.BasketItem) (*domain.Purchase, error)
	Invoice(ctx context.Context, purchaseID, userID string, isAdmin bool) (*domain.Purchase, error)
	History(ctx context.Context, userID string, page, limit int) ([]domain.Purchase, int, error)
	ListAll(ctx context.Context, page, limit int) ([]domain.Purchase, int, error)
}

type ClientHandler struct {
	purchases PurchaseService
	logger    *zap.Logger
}

func NewClientHandler(purchases PurchaseService, logger *zap.Logger) *ClientHandler {
	return &ClientHandler{purchases: purchases, logger: logger}
}

type purchaseItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

type purchaseRequest struct {
	RequestID string                `json:"requestId"`
	Products  []purchaseItemRequest `json:"products" binding:"required,min=1,dive"`
}

type purchaseDetailResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type purchaseResponse struct {
	ID         string                   `json:"id"`
	UserID     string                   `json:"userId"`
	Username   string                   `json:"username,omitempty"`
	TotalPrice decimal.Decimal          `json:"totalPrice"`
	Date       time.Time                `json:"date"`
	Details    []purchaseDetailResponse `json:"purchaseDetails"`
}

func newPurchaseResponse(p domain.Purchase) purchaseResponse {
	details := make([]purchaseDetailResponse, 0, len(p.Details))
	for _, d := range p.Details {
		details = append(details, purchaseDetailResponse{
			ID:          d.ID,
			ProductID:   d.ProductID,
			ProductName: d.ProductName,
			Quantity:    d.Quantity,
			UnitPrice:   d.UnitPrice,
			Subtotal:    d.Subtotal(),
		})
	}
	return purchaseResponse{
		ID:         p.ID,
		UserID:     p.UserID,
		Username:   p.Username,
		TotalPrice: p.TotalPrice,
		Date:       p.CreatedAt,
		Details:    details,
	}
}

func newPurchaseListResponse(purchases []domain.Purchase) []purchaseResponse {
	out := make([]purchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		out = append(out, newPurchaseResponse(p))
	}
	return out
}

func (h *ClientHandler) Purchase(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	claims := principalFrom(c)
	basket := make([]domain.BasketItem, 0, len(req.Products))
	for _, item := range req.Products {
		basket = append(basket, domain.BasketItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	purchase, err := h.purchases.Purchase(c.Request.Context(), claims.UserID, req.RequestID, basket)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "purchase completed successfully",
		"purchase": newPurchaseResponse(*purchase),
	})
}

func (h *ClientHandler) GetInvoice(c *gin.Context) {
	claims := principalFrom(c)
	purchase, err := h.purchases.Invoice(c.Request.Context(), c.Param("id"),
		claims.UserID, claims.Role == domain.RoleAdmin)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"purchase": newPurchaseResponse(*purchase)})
}

func (h *ClientHandler) GetHistory(c *gin.Context) {
	claims := principalFrom(c)
	page, limit := pagination(c)

	purchases, total, err := h.purchases.History(c.Request.Context(), claims.UserID, page, limit)
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
