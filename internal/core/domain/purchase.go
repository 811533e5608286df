package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BasketItem is one requested line of a purchase: what and how many.
type BasketItem struct {
	ProductID string
	Quantity  int
}

type Purchase struct {
	ID         string
	UserID     string
	Username   string
	TotalPrice decimal.Decimal
	CreatedAt  time.Time
	Details    []PurchaseDetail
}

// PurchaseDetail captures the unit price in effect when the stock was
// reserved. Invoices must never re-read the live product price.
type PurchaseDetail struct {
	ID          string
	PurchaseID  string
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// Subtotal is UnitPrice * Quantity.
func (d PurchaseDetail) Subtotal() decimal.Decimal {
	return d.UnitPrice.Mul(decimal.NewFromInt(int64(d.Quantity)))
}
