// Package Reconcile derives invoice totals from linked memos and decides which
// memos may be attached to which invoice. Everything here is pure computation
// over data the caller already fetched; nothing talks to the database.
package Reconcile

import (
	"Caravan/Models"

	"github.com/shopspring/decimal"
)

// Totals is the derived money state of an invoice draft.
type Totals struct {
	Total   decimal.Decimal `json:"total"`
	Balance decimal.Decimal `json:"balance"`
}

// ComputeTotals sums the selected memos' amounts and subtracts the amount paid.
// Numbers missing from the lookup contribute zero; a stale selection must not
// blow up a recompute that runs on every toggle and keystroke.
func ComputeTotals(selected []string, amountPaid decimal.Decimal, lookup map[string]Models.Memo) Totals {
	total := decimal.Zero
	for _, no := range selected {
		if memo, ok := lookup[no]; ok {
			total = total.Add(memo.TotalAmount)
		}
	}
	return Totals{
		Total:   total,
		Balance: total.Sub(amountPaid),
	}
}

// MemoLookup indexes memos by number for ComputeTotals.
func MemoLookup(memos []Models.Memo) map[string]Models.Memo {
	lookup := make(map[string]Models.Memo, len(memos))
	for _, memo := range memos {
		lookup[memo.MemoNo] = memo
	}
	return lookup
}

// EligibleMemos filters the customer's memos down to those selectable on the
// invoice identified by editingInvoiceNo. A memo owned by another invoice is
// excluded; a memo owned by the invoice being edited stays visible so the user
// can uncheck it. Pass editingInvoiceNo == "" for a brand-new invoice.
func EligibleMemos(memos []Models.Memo, index map[string]string, customerName, editingInvoiceNo string) []Models.Memo {
	eligible := make([]Models.Memo, 0, len(memos))
	for _, memo := range memos {
		if memo.CustomerName != customerName {
			continue
		}
		owner, invoiced := index[memo.MemoNo]
		if invoiced && owner != editingInvoiceNo {
			continue
		}
		eligible = append(eligible, memo)
	}
	return eligible
}

// IsMutable reports whether a memo may be edited or deleted. A memo linked to
// any persisted invoice is frozen until the invoice releases it.
func IsMutable(memoNo string, index map[string]string) bool {
	_, invoiced := index[memoNo]
	return !invoiced
}
