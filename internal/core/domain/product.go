package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          string
	BatchNumber string
	Name        string
	Price       decimal.Decimal
	Quantity    int
	EntryDate   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
