// Package Billing drives the lifetime of an invoice edit: load (or start) a
// draft, mutate its memo selection and payment, validate, persist. The editor
// talks to the store through the Ledger interface so tests can run against a
// fake.
package Billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Caravan/Models"
	"Caravan/Reconcile"

	"github.com/shopspring/decimal"
)

// Ledger is the slice of the data access layer the editor needs.
// Models.LedgerStore satisfies it.
type Ledger interface {
	GetInvoiceByID(ctx context.Context, id uint) (*Models.Invoice, error)
	ListInvoices(ctx context.Context) ([]Models.Invoice, error)
	ListMemosForCustomer(ctx context.Context, customerName string) ([]Models.Memo, error)
	CreateInvoice(ctx context.Context, invoice *Models.Invoice) error
	UpdateInvoice(ctx context.Context, invoice *Models.Invoice) error
	GenerateInvoiceNumber(ctx context.Context) (string, error)
}

// EditorState is the lifecycle position of an InvoiceEditor.
type EditorState string

const (
	StateLoading         EditorState = "Loading"
	StateNew             EditorState = "New"
	StateEditingExisting EditorState = "EditingExisting"
	StateSaving          EditorState = "Saving"
	StateSaved           EditorState = "Saved"
	StateSaveFailed      EditorState = "SaveFailed"
	StateClosed          EditorState = "Closed"
)

var (
	// ErrInvoiceNotFound is terminal: the caller should navigate back to the list.
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrCustomerLocked means the customer cannot change while memos are attached.
	ErrCustomerLocked = errors.New("customer cannot change while memos are selected")

	// ErrNegativeAmount rejects a negative amount paid.
	ErrNegativeAmount = errors.New("amount paid cannot be negative")

	// ErrNotEditing means the editor is not in a state that accepts mutations.
	ErrNotEditing = errors.New("editor is not in an editing state")

	// ErrMemoNotEligible rejects toggling a memo that is not in the eligible set.
	ErrMemoNotEligible = errors.New("memo is not eligible for this invoice")
)

// InvoiceEditor holds one in-memory invoice draft. Totals and balance are
// recomputed inside every mutation; there is no explicit recalculate step and
// recomputation has no asynchronous component, so the draft can never show a
// stale total.
type InvoiceEditor struct {
	ledger Ledger

	state    EditorState
	draft    Models.Invoice
	eligible []Models.Memo
	lookup   map[string]Models.Memo
}

func NewInvoiceEditor(ledger Ledger) *InvoiceEditor {
	return &InvoiceEditor{
		ledger: ledger,
		state:  StateLoading,
	}
}

// Initialize loads an existing invoice when id > 0, otherwise starts a fresh
// draft with a generated invoice number, today's date and Draft status. A
// missing invoice returns ErrInvoiceNotFound and closes the editor.
func (e *InvoiceEditor) Initialize(ctx context.Context, id uint) error {
	if id == 0 {
		invoiceNo, err := e.ledger.GenerateInvoiceNumber(ctx)
		if err != nil {
			return fmt.Errorf("generating invoice number: %w", err)
		}
		e.draft = Models.Invoice{
			InvoiceNo:   invoiceNo,
			Date:        time.Now().Format("2006-01-02"),
			Status:      Models.StatusDraft,
			MemoNos:     []string{},
			TotalAmount: decimal.Zero,
			AmountPaid:  decimal.Zero,
			Balance:     decimal.Zero,
		}
		e.eligible = nil
		e.lookup = map[string]Models.Memo{}
		e.state = StateNew
		return nil
	}

	invoice, err := e.ledger.GetInvoiceByID(ctx, id)
	if err != nil {
		if errors.Is(err, Models.ErrNotFound) {
			e.state = StateClosed
			return ErrInvoiceNotFound
		}
		return err
	}
	e.draft = *invoice
	e.state = StateEditingExisting
	if err := e.refreshEligible(ctx); err != nil {
		return err
	}
	e.recompute()
	return nil
}

// refreshEligible fetches the customer's memos and keeps those not owned by
// another invoice. Memos already linked to this draft stay visible even though
// the invoice index marks them invoiced.
func (e *InvoiceEditor) refreshEligible(ctx context.Context) error {
	if e.draft.CustomerName == "" {
		e.eligible = nil
		e.lookup = map[string]Models.Memo{}
		return nil
	}
	memos, err := e.ledger.ListMemosForCustomer(ctx, e.draft.CustomerName)
	if err != nil {
		return err
	}
	invoices, err := e.ledger.ListInvoices(ctx)
	if err != nil {
		return err
	}
	index := Reconcile.BuildInvoiceIndex(invoices)
	e.eligible = Reconcile.EligibleMemos(memos, index, e.draft.CustomerName, e.draft.InvoiceNo)
	e.lookup = Reconcile.MemoLookup(e.eligible)
	return nil
}

// ChangeCustomer is only permitted while no memos are selected: changing the
// customer under a non-empty selection would invalidate every linked memo.
func (e *InvoiceEditor) ChangeCustomer(ctx context.Context, name string) error {
	if !e.editing() {
		return ErrNotEditing
	}
	if len(e.draft.MemoNos) > 0 {
		return ErrCustomerLocked
	}
	e.draft.CustomerName = name
	if err := e.refreshEligible(ctx); err != nil {
		return err
	}
	e.recompute()
	return nil
}

// ToggleMemo adds or removes a memo number from the selection.
func (e *InvoiceEditor) ToggleMemo(memoNo string, selected bool) error {
	if !e.editing() {
		return ErrNotEditing
	}
	if selected {
		if _, ok := e.lookup[memoNo]; !ok {
			return ErrMemoNotEligible
		}
		if !e.draft.HasMemo(memoNo) {
			e.draft.MemoNos = append(e.draft.MemoNos, memoNo)
		}
	} else {
		kept := make([]string, 0, len(e.draft.MemoNos))
		for _, no := range e.draft.MemoNos {
			if no != memoNo {
				kept = append(kept, no)
			}
		}
		e.draft.MemoNos = kept
	}
	e.recompute()
	return nil
}

func (e *InvoiceEditor) SetAmountPaid(value decimal.Decimal) error {
	if !e.editing() {
		return ErrNotEditing
	}
	if value.IsNegative() {
		return ErrNegativeAmount
	}
	e.draft.AmountPaid = value
	e.recompute()
	return nil
}

func (e *InvoiceEditor) SetDate(date string) error {
	if !e.editing() {
		return ErrNotEditing
	}
	e.draft.Date = date
	return nil
}

func (e *InvoiceEditor) SetStatus(status string) error {
	if !e.editing() {
		return ErrNotEditing
	}
	switch status {
	case Models.StatusDraft, Models.StatusFinalized, Models.StatusPaid:
		e.draft.Status = status
		return nil
	default:
		return fmt.Errorf("unknown invoice status %q", status)
	}
}

// Save validates the draft and persists it: create on first save, update
// afterwards. A store failure leaves the draft intact in StateSaveFailed so
// the user can retry without re-entering anything.
func (e *InvoiceEditor) Save(ctx context.Context) error {
	if !e.editing() {
		return ErrNotEditing
	}
	if verr := Reconcile.ValidateForSave(&e.draft); verr != nil {
		return verr
	}

	e.recompute()
	e.state = StateSaving

	var err error
	if e.draft.ID == 0 {
		err = e.ledger.CreateInvoice(ctx, &e.draft)
	} else {
		err = e.ledger.UpdateInvoice(ctx, &e.draft)
	}
	if err != nil {
		e.state = StateSaveFailed
		return fmt.Errorf("saving invoice %s: %w", e.draft.InvoiceNo, err)
	}
	e.state = StateSaved
	return nil
}

// Cancel discards the in-memory draft unconditionally.
func (e *InvoiceEditor) Cancel() {
	e.state = StateClosed
	e.draft = Models.Invoice{}
	e.eligible = nil
	e.lookup = nil
}

func (e *InvoiceEditor) State() EditorState {
	return e.state
}

// Draft returns a copy of the current in-memory invoice.
func (e *InvoiceEditor) Draft() Models.Invoice {
	return e.draft
}

// EligibleMemos returns the selectable memos for the draft's customer.
func (e *InvoiceEditor) EligibleMemos() []Models.Memo {
	return e.eligible
}

// SaveFailed counts as editing: the draft survives a failed save so the user
// can adjust and retry.
func (e *InvoiceEditor) editing() bool {
	return e.state == StateNew || e.state == StateEditingExisting || e.state == StateSaveFailed
}

func (e *InvoiceEditor) recompute() {
	totals := Reconcile.ComputeTotals(e.draft.MemoNos, e.draft.AmountPaid, e.lookup)
	e.draft.TotalAmount = totals.Total
	e.draft.Balance = totals.Balance
}
