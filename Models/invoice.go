package Models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Invoice statuses. The status is freely settable; there is no enforced
// transition order (see DESIGN.md).
const (
	StatusDraft     = "Draft"
	StatusFinalized = "Finalized"
	StatusPaid      = "Paid"
)

// Invoice is a billing document aggregating one or more memos for one customer.
// MemoNos is the working slice; it is persisted through the JSON column
// JSONMemoNos by the BeforeSave/AfterFind hooks. TotalAmount and Balance are
// derived from the linked memos and AmountPaid, and the stored copies are
// refreshed on every save.
type Invoice struct {
	gorm.Model
	InvoiceNo    string          `json:"invoice_no" gorm:"size:50;not null;uniqueIndex"`
	Date         string          `json:"date" gorm:"size:10;not null"` // YYYY-MM-DD
	CustomerName string          `json:"customer_name" gorm:"size:255;not null;index"`
	MemoNos      []string        `json:"memo_nos" gorm:"-"`
	JSONMemoNos  datatypes.JSON  `json:"-" gorm:"column:memo_nos"`
	TotalAmount  decimal.Decimal `json:"total_amount" gorm:"type:decimal(12,2)"`
	AmountPaid   decimal.Decimal `json:"amount_paid" gorm:"type:decimal(12,2)"`
	Balance      decimal.Decimal `json:"balance" gorm:"type:decimal(12,2)"`
	Status       string          `json:"status" gorm:"size:20;default:Draft"`
}

func (Invoice) TableName() string {
	return "invoices"
}

func (inv *Invoice) BeforeSave(tx *gorm.DB) error {
	if inv.MemoNos == nil {
		inv.MemoNos = []string{}
	}
	raw, err := json.Marshal(inv.MemoNos)
	if err != nil {
		return err
	}
	inv.JSONMemoNos = raw
	return nil
}

func (inv *Invoice) AfterFind(tx *gorm.DB) error {
	inv.MemoNos = []string{}
	if len(inv.JSONMemoNos) == 0 {
		return nil
	}
	return json.Unmarshal(inv.JSONMemoNos, &inv.MemoNos)
}

// HasMemo reports whether the invoice currently links the given memo number.
func (inv *Invoice) HasMemo(memoNo string) bool {
	for _, no := range inv.MemoNos {
		if no == memoNo {
			return true
		}
	}
	return false
}

type InvoiceRequest struct {
	Date         string   `json:"date" validate:"required"`
	CustomerName string   `json:"customer_name" validate:"required"`
	MemoNos      []string `json:"memo_nos"`
	AmountPaid   string   `json:"amount_paid"`
	Status       string   `json:"status" validate:"omitempty,oneof=Draft Finalized Paid"`
}
