package Models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Memo represents a single trip's billable charge record. Memos are created by
// the trip-entry side; the billing core reads them and tracks which invoice
// owns them.
type Memo struct {
	gorm.Model
	MemoNo       string          `json:"memo_no" gorm:"size:50;not null;uniqueIndex"`
	CustomerName string          `json:"customer_name" gorm:"size:255;not null;index"`
	CarNoPlate   string          `json:"car_no_plate" gorm:"size:50"`
	Date         string          `json:"date" gorm:"size:10;not null"` // YYYY-MM-DD
	TotalAmount  decimal.Decimal `json:"total_amount" gorm:"type:decimal(12,2)"`
	Balance      decimal.Decimal `json:"balance" gorm:"type:decimal(12,2)"`
}

func (Memo) TableName() string {
	return "memos"
}

type MemoRequest struct {
	MemoNo       string `json:"memo_no" validate:"required"`
	CustomerName string `json:"customer_name" validate:"required"`
	CarNoPlate   string `json:"car_no_plate"`
	Date         string `json:"date" validate:"required"`
	TotalAmount  string `json:"total_amount" validate:"required"`
	Balance      string `json:"balance"`
}
