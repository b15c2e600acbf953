package Reconcile_test

import (
	"testing"

	"Caravan/Models"
	"Caravan/Reconcile"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memo(no, customer, amount string) Models.Memo {
	total, err := decimal.NewFromString(amount)
	if err != nil {
		panic(err)
	}
	return Models.Memo{
		MemoNo:       no,
		CustomerName: customer,
		Date:         "2026-08-01",
		TotalAmount:  total,
		Balance:      total,
	}
}

func invoice(no, customer string, memoNos ...string) Models.Invoice {
	return Models.Invoice{
		InvoiceNo:    no,
		CustomerName: customer,
		Date:         "2026-08-10",
		MemoNos:      memoNos,
	}
}

func TestComputeTotals_SumsSelectionAndDerivesBalance(t *testing.T) {
	// GIVEN: Acme memos M1 ($500) and M2 ($300), amount paid 200
	// THEN: total=800, balance=600
	lookup := Reconcile.MemoLookup([]Models.Memo{
		memo("M1", "Acme", "500"),
		memo("M2", "Acme", "300"),
	})

	totals := Reconcile.ComputeTotals([]string{"M1", "M2"}, decimal.NewFromInt(200), lookup)

	assert.True(t, totals.Total.Equal(decimal.NewFromInt(800)), "total should be 800, got %s", totals.Total)
	assert.True(t, totals.Balance.Equal(decimal.NewFromInt(600)), "balance should be 600, got %s", totals.Balance)
}

func TestComputeTotals_MissingNumbersContributeZero(t *testing.T) {
	lookup := Reconcile.MemoLookup([]Models.Memo{memo("M1", "Acme", "500")})

	totals := Reconcile.ComputeTotals([]string{"M1", "GHOST"}, decimal.Zero, lookup)

	assert.True(t, totals.Total.Equal(decimal.NewFromInt(500)))
	assert.True(t, totals.Balance.Equal(decimal.NewFromInt(500)))
}

func TestComputeTotals_EmptySelection(t *testing.T) {
	totals := Reconcile.ComputeTotals(nil, decimal.NewFromInt(50), map[string]Models.Memo{})

	assert.True(t, totals.Total.Equal(decimal.Zero))
	assert.True(t, totals.Balance.Equal(decimal.NewFromInt(-50)))
}

func TestComputeTotals_Idempotent(t *testing.T) {
	lookup := Reconcile.MemoLookup([]Models.Memo{
		memo("M1", "Acme", "123.45"),
		memo("M2", "Acme", "67.89"),
	})
	paid := decimal.NewFromFloat(10.50)

	first := Reconcile.ComputeTotals([]string{"M1", "M2"}, paid, lookup)
	second := Reconcile.ComputeTotals([]string{"M1", "M2"}, paid, lookup)

	assert.True(t, first.Total.Equal(second.Total))
	assert.True(t, first.Balance.Equal(second.Balance))
}

func TestEligibleMemos_ExcludesMemosOwnedElsewhere(t *testing.T) {
	// GIVEN: M1 is linked to invoice A
	// WHEN: computing eligibility for a brand-new invoice
	// THEN: M1 must not appear, M2 must
	memos := []Models.Memo{
		memo("M1", "Acme", "500"),
		memo("M2", "Acme", "300"),
	}
	index := Reconcile.BuildInvoiceIndex([]Models.Invoice{
		invoice("INV-A", "Acme", "M1"),
	})

	eligible := Reconcile.EligibleMemos(memos, index, "Acme", "")

	require.Len(t, eligible, 1)
	assert.Equal(t, "M2", eligible[0].MemoNo)
}

func TestEligibleMemos_KeepsOwnMemosWhileEditing(t *testing.T) {
	// A memo linked to the invoice being edited stays visible so it can be
	// unchecked.
	memos := []Models.Memo{
		memo("M1", "Acme", "500"),
		memo("M2", "Acme", "300"),
	}
	index := Reconcile.BuildInvoiceIndex([]Models.Invoice{
		invoice("INV-A", "Acme", "M1"),
		invoice("INV-B", "Acme", "M2"),
	})

	eligible := Reconcile.EligibleMemos(memos, index, "Acme", "INV-A")

	require.Len(t, eligible, 1)
	assert.Equal(t, "M1", eligible[0].MemoNo)
}

func TestEligibleMemos_ScopedToCustomer(t *testing.T) {
	memos := []Models.Memo{
		memo("M1", "Acme", "500"),
		memo("M3", "Globex", "900"),
	}

	eligible := Reconcile.EligibleMemos(memos, map[string]string{}, "Acme", "")

	require.Len(t, eligible, 1)
	assert.Equal(t, "M1", eligible[0].MemoNo)
}

func TestIsMutable(t *testing.T) {
	index := Reconcile.BuildInvoiceIndex([]Models.Invoice{
		invoice("INV-A", "Acme", "M1"),
	})

	assert.False(t, Reconcile.IsMutable("M1", index), "linked memo must be frozen")
	assert.True(t, Reconcile.IsMutable("M2", index), "free memo must stay mutable")
}

func TestValidateForSave_ReportsSpecificReason(t *testing.T) {
	cases := []struct {
		name   string
		draft  Models.Invoice
		reason Reconcile.ValidationReason
	}{
		{
			name:   "missing customer",
			draft:  Models.Invoice{Date: "2026-08-10", MemoNos: []string{"M1"}},
			reason: Reconcile.ReasonMissingCustomer,
		},
		{
			name:   "missing date",
			draft:  Models.Invoice{CustomerName: "Acme", MemoNos: []string{"M1"}},
			reason: Reconcile.ReasonMissingDate,
		},
		{
			name:   "no memos selected",
			draft:  Models.Invoice{CustomerName: "Acme", Date: "2026-08-10"},
			reason: Reconcile.ReasonNoMemosSelected,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Reconcile.ValidateForSave(&tc.draft)
			require.NotNil(t, err)
			assert.Equal(t, tc.reason, err.Reason)
		})
	}
}

func TestValidateForSave_AcceptsCompleteDraft(t *testing.T) {
	draft := invoice("INV-A", "Acme", "M1")
	assert.Nil(t, Reconcile.ValidateForSave(&draft))
}

func TestBuildInvoiceIndex(t *testing.T) {
	index := Reconcile.BuildInvoiceIndex([]Models.Invoice{
		invoice("INV-A", "Acme", "M1", "M2"),
		invoice("INV-B", "Globex", "M3"),
	})

	assert.Equal(t, "INV-A", index["M1"])
	assert.Equal(t, "INV-A", index["M2"])
	assert.Equal(t, "INV-B", index["M3"])
	_, ok := index["M4"]
	assert.False(t, ok)
}

func TestDuplicateLinks_DetectsDoubleOwnership(t *testing.T) {
	duplicates := Reconcile.DuplicateLinks([]Models.Invoice{
		invoice("INV-A", "Acme", "M1", "M2"),
		invoice("INV-B", "Acme", "M2"),
	})

	require.Len(t, duplicates, 1)
	assert.ElementsMatch(t, []string{"INV-A", "INV-B"}, duplicates["M2"])
}
