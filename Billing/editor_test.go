package Billing_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"Caravan/Billing"
	"Caravan/Models"
	"Caravan/Reconcile"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLedger is an in-memory Billing.Ledger for editor tests.
type fakeLedger struct {
	memos    []Models.Memo
	invoices map[uint]*Models.Invoice
	nextID   uint
	seq      int

	failSave    error
	createCalls int
	updateCalls int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		invoices: make(map[uint]*Models.Invoice),
		nextID:   1,
	}
}

func (f *fakeLedger) GetInvoiceByID(ctx context.Context, id uint) (*Models.Invoice, error) {
	invoice, ok := f.invoices[id]
	if !ok {
		return nil, Models.ErrNotFound
	}
	copied := *invoice
	return &copied, nil
}

func (f *fakeLedger) ListInvoices(ctx context.Context) ([]Models.Invoice, error) {
	invoices := make([]Models.Invoice, 0, len(f.invoices))
	for _, invoice := range f.invoices {
		invoices = append(invoices, *invoice)
	}
	return invoices, nil
}

func (f *fakeLedger) ListMemosForCustomer(ctx context.Context, customerName string) ([]Models.Memo, error) {
	memos := make([]Models.Memo, 0)
	for _, memo := range f.memos {
		if memo.CustomerName == customerName {
			memos = append(memos, memo)
		}
	}
	return memos, nil
}

func (f *fakeLedger) CreateInvoice(ctx context.Context, invoice *Models.Invoice) error {
	f.createCalls++
	if f.failSave != nil {
		return f.failSave
	}
	invoice.ID = f.nextID
	f.nextID++
	copied := *invoice
	f.invoices[invoice.ID] = &copied
	return nil
}

func (f *fakeLedger) UpdateInvoice(ctx context.Context, invoice *Models.Invoice) error {
	f.updateCalls++
	if f.failSave != nil {
		return f.failSave
	}
	copied := *invoice
	f.invoices[invoice.ID] = &copied
	return nil
}

func (f *fakeLedger) GenerateInvoiceNumber(ctx context.Context) (string, error) {
	f.seq++
	return fmt.Sprintf("INV-TEST-%04d", f.seq), nil
}

func (f *fakeLedger) addMemo(no, customer, amount string) {
	total, err := decimal.NewFromString(amount)
	if err != nil {
		panic(err)
	}
	f.memos = append(f.memos, Models.Memo{
		MemoNo:       no,
		CustomerName: customer,
		Date:         "2026-08-01",
		TotalAmount:  total,
		Balance:      total,
	})
}

func TestEditor_InitializeNew(t *testing.T) {
	ledger := newFakeLedger()
	editor := Billing.NewInvoiceEditor(ledger)

	require.NoError(t, editor.Initialize(context.Background(), 0))

	draft := editor.Draft()
	assert.Equal(t, Billing.StateNew, editor.State())
	assert.Equal(t, "INV-TEST-0001", draft.InvoiceNo)
	assert.Equal(t, Models.StatusDraft, draft.Status)
	assert.Equal(t, time.Now().Format("2006-01-02"), draft.Date)
	assert.Empty(t, draft.MemoNos)
	assert.True(t, draft.TotalAmount.Equal(decimal.Zero))
}

func TestEditor_InitializeMissingInvoiceIsTerminal(t *testing.T) {
	ledger := newFakeLedger()
	editor := Billing.NewInvoiceEditor(ledger)

	err := editor.Initialize(context.Background(), 42)

	assert.ErrorIs(t, err, Billing.ErrInvoiceNotFound)
	assert.Equal(t, Billing.StateClosed, editor.State())
}

func TestEditor_CreateInvoiceScenario(t *testing.T) {
	// GIVEN: customer "Acme" with uninvoiced memos M1 ($500) and M2 ($300)
	// WHEN: both are selected and 200 is paid
	// THEN: total=800, balance=600; after save the memos report invoiced
	ledger := newFakeLedger()
	ledger.addMemo("M1", "Acme", "500")
	ledger.addMemo("M2", "Acme", "300")

	ctx := context.Background()
	editor := Billing.NewInvoiceEditor(ledger)
	require.NoError(t, editor.Initialize(ctx, 0))
	require.NoError(t, editor.ChangeCustomer(ctx, "Acme"))
	require.Len(t, editor.EligibleMemos(), 2)

	require.NoError(t, editor.ToggleMemo("M1", true))
	require.NoError(t, editor.ToggleMemo("M2", true))
	require.NoError(t, editor.SetAmountPaid(decimal.NewFromInt(200)))

	draft := editor.Draft()
	assert.True(t, draft.TotalAmount.Equal(decimal.NewFromInt(800)), "total=%s", draft.TotalAmount)
	assert.True(t, draft.Balance.Equal(decimal.NewFromInt(600)), "balance=%s", draft.Balance)

	require.NoError(t, editor.Save(ctx))
	assert.Equal(t, Billing.StateSaved, editor.State())
	assert.Equal(t, 1, ledger.createCalls)

	// Both memos are now frozen and ineligible for any other invoice.
	invoices, _ := ledger.ListInvoices(ctx)
	index := Reconcile.BuildInvoiceIndex(invoices)
	assert.False(t, Reconcile.IsMutable("M1", index))
	assert.False(t, Reconcile.IsMutable("M2", index))

	other := Billing.NewInvoiceEditor(ledger)
	require.NoError(t, other.Initialize(ctx, 0))
	require.NoError(t, other.ChangeCustomer(ctx, "Acme"))
	assert.Empty(t, other.EligibleMemos(), "memos invoiced elsewhere must not be offered")
}

func TestEditor_EditExistingAndUncheckMemo(t *testing.T) {
	// GIVEN: a saved invoice linking M1 and M2 with 200 paid
	// WHEN: M2 is unchecked
	// THEN: total recomputes to 500 and balance to 300; after save M2 is free
	ledger := newFakeLedger()
	ledger.addMemo("M1", "Acme", "500")
	ledger.addMemo("M2", "Acme", "300")

	ctx := context.Background()
	editor := Billing.NewInvoiceEditor(ledger)
	require.NoError(t, editor.Initialize(ctx, 0))
	require.NoError(t, editor.ChangeCustomer(ctx, "Acme"))
	require.NoError(t, editor.ToggleMemo("M1", true))
	require.NoError(t, editor.ToggleMemo("M2", true))
	require.NoError(t, editor.SetAmountPaid(decimal.NewFromInt(200)))
	require.NoError(t, editor.Save(ctx))
	savedID := editor.Draft().ID

	second := Billing.NewInvoiceEditor(ledger)
	require.NoError(t, second.Initialize(ctx, savedID))
	assert.Equal(t, Billing.StateEditingExisting, second.State())
	// Previously chosen memos stay visible while editing this invoice.
	require.Len(t, second.EligibleMemos(), 2)

	require.NoError(t, second.ToggleMemo("M2", false))
	draft := second.Draft()
	assert.True(t, draft.TotalAmount.Equal(decimal.NewFromInt(500)))
	assert.True(t, draft.Balance.Equal(decimal.NewFromInt(300)))

	require.NoError(t, second.Save(ctx))
	assert.Equal(t, 1, ledger.updateCalls)

	invoices, _ := ledger.ListInvoices(ctx)
	index := Reconcile.BuildInvoiceIndex(invoices)
	assert.True(t, Reconcile.IsMutable("M2", index), "unchecked memo becomes uninvoiced again")
}

func TestEditor_CustomerLockedWhileMemosSelected(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addMemo("M1", "Acme", "500")

	ctx := context.Background()
	editor := Billing.NewInvoiceEditor(ledger)
	require.NoError(t, editor.Initialize(ctx, 0))
	require.NoError(t, editor.ChangeCustomer(ctx, "Acme"))
	require.NoError(t, editor.ToggleMemo("M1", true))

	err := editor.ChangeCustomer(ctx, "Globex")
	assert.ErrorIs(t, err, Billing.ErrCustomerLocked)
	assert.Equal(t, "Acme", editor.Draft().CustomerName)
}

func TestEditor_ChangeCustomerClearsEligibility(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addMemo("M1", "Acme", "500")
	ledger.addMemo("M3", "Globex", "900")

	ctx := context.Background()
	editor := Billing.NewInvoiceEditor(ledger)
	require.NoError(t, editor.Initialize(ctx, 0))
	require.NoError(t, editor.ChangeCustomer(ctx, "Acme"))
	require.Len(t, editor.EligibleMemos(), 1)

	require.NoError(t, editor.ChangeCustomer(ctx, "Globex"))
	require.Len(t, editor.EligibleMemos(), 1)
	assert.Equal(t, "M3", editor.EligibleMemos()[0].MemoNo)

	// A memo from the old customer is no longer selectable.
	err := editor.ToggleMemo("M1", true)
	assert.ErrorIs(t, err, Billing.ErrMemoNotEligible)
}

func TestEditor_RejectsNegativeAmountPaid(t *testing.T) {
	ledger := newFakeLedger()
	editor := Billing.NewInvoiceEditor(ledger)
	require.NoError(t, editor.Initialize(context.Background(), 0))

	err := editor.SetAmountPaid(decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, Billing.ErrNegativeAmount)
}

func TestEditor_SaveValidationFailureMakesNoWrite(t *testing.T) {
	// Customer and date are set but no memos are selected: the save fails
	// with the specific reason and the store is never contacted.
	ledger := newFakeLedger()
	ctx := context.Background()
	editor := Billing.NewInvoiceEditor(ledger)
	require.NoError(t, editor.Initialize(ctx, 0))
	require.NoError(t, editor.ChangeCustomer(ctx, "Acme"))

	err := editor.Save(ctx)

	var verr *Reconcile.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, Reconcile.ReasonNoMemosSelected, verr.Reason)
	assert.Equal(t, 0, ledger.createCalls)
	assert.Equal(t, 0, ledger.updateCalls)
	assert.Equal(t, Billing.StateNew, editor.State())
}

func TestEditor_SaveFailureKeepsDraftForRetry(t *testing.T) {
	ledger := newFakeLedger()
	ledger.addMemo("M1", "Acme", "500")

	ctx := context.Background()
	editor := Billing.NewInvoiceEditor(ledger)
	require.NoError(t, editor.Initialize(ctx, 0))
	require.NoError(t, editor.ChangeCustomer(ctx, "Acme"))
	require.NoError(t, editor.ToggleMemo("M1", true))

	ledger.failSave = errors.New("store unavailable")
	err := editor.Save(ctx)
	require.Error(t, err)
	assert.Equal(t, Billing.StateSaveFailed, editor.State())
	assert.Equal(t, []string{"M1"}, editor.Draft().MemoNos, "draft survives the failure")

	ledger.failSave = nil
	require.NoError(t, editor.Save(ctx))
	assert.Equal(t, Billing.StateSaved, editor.State())
}

func TestEditor_CancelDiscardsDraft(t *testing.T) {
	ledger := newFakeLedger()
	editor := Billing.NewInvoiceEditor(ledger)
	require.NoError(t, editor.Initialize(context.Background(), 0))

	editor.Cancel()

	assert.Equal(t, Billing.StateClosed, editor.State())
	assert.Error(t, editor.ToggleMemo("M1", true))
}

func TestEditor_SetStatusFreelySettable(t *testing.T) {
	ledger := newFakeLedger()
	editor := Billing.NewInvoiceEditor(ledger)
	require.NoError(t, editor.Initialize(context.Background(), 0))

	require.NoError(t, editor.SetStatus(Models.StatusPaid))
	require.NoError(t, editor.SetStatus(Models.StatusDraft))
	require.NoError(t, editor.SetStatus(Models.StatusFinalized))
	assert.Error(t, editor.SetStatus("Shredded"))
}
