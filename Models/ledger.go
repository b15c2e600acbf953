package Models

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ErrNotFound is returned by lookups when the requested record does not exist.
// Callers should test with errors.Is rather than comparing against gorm errors.
var ErrNotFound = errors.New("record not found")

// LedgerStore is the data access layer for billing documents. The store has no
// transactions spanning multiple invoices, so the one-memo-one-invoice rule is
// enforced optimistically at the eligibility layer (see Reconcile) and audited
// by CronJobs.
type LedgerStore struct {
	DB *gorm.DB
}

func NewLedgerStore(db *gorm.DB) *LedgerStore {
	return &LedgerStore{DB: db}
}

func (s *LedgerStore) ListMemos(ctx context.Context) ([]Memo, error) {
	var memos []Memo
	err := s.DB.WithContext(ctx).Order("date DESC, memo_no DESC").Find(&memos).Error
	return memos, err
}

func (s *LedgerStore) ListMemosForCustomer(ctx context.Context, customerName string) ([]Memo, error) {
	var memos []Memo
	err := s.DB.WithContext(ctx).
		Where("customer_name = ?", customerName).
		Order("date ASC, memo_no ASC").
		Find(&memos).Error
	return memos, err
}

func (s *LedgerStore) GetMemoByNo(ctx context.Context, memoNo string) (*Memo, error) {
	var memo Memo
	err := s.DB.WithContext(ctx).Where("memo_no = ?", memoNo).First(&memo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &memo, nil
}

func (s *LedgerStore) SaveMemo(ctx context.Context, memo *Memo) error {
	return s.DB.WithContext(ctx).Save(memo).Error
}

func (s *LedgerStore) DeleteMemo(ctx context.Context, memoNo string) error {
	result := s.DB.WithContext(ctx).Where("memo_no = ?", memoNo).Delete(&Memo{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *LedgerStore) ListInvoices(ctx context.Context) ([]Invoice, error) {
	var invoices []Invoice
	err := s.DB.WithContext(ctx).Order("invoice_no DESC").Find(&invoices).Error
	return invoices, err
}

func (s *LedgerStore) GetInvoiceByID(ctx context.Context, id uint) (*Invoice, error) {
	var invoice Invoice
	err := s.DB.WithContext(ctx).First(&invoice, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

func (s *LedgerStore) CreateInvoice(ctx context.Context, invoice *Invoice) error {
	return s.DB.WithContext(ctx).Create(invoice).Error
}

func (s *LedgerStore) UpdateInvoice(ctx context.Context, invoice *Invoice) error {
	return s.DB.WithContext(ctx).Save(invoice).Error
}

func (s *LedgerStore) DeleteInvoice(ctx context.Context, id uint) error {
	result := s.DB.WithContext(ctx).Delete(&Invoice{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *LedgerStore) ListCustomers(ctx context.Context) ([]Customer, error) {
	var customers []Customer
	err := s.DB.WithContext(ctx).Order("name ASC").Find(&customers).Error
	return customers, err
}

// ListUninvoicedMemosForCustomer returns the customer's memos that no persisted
// invoice currently links. The filter is rebuilt from the invoices table on
// every call; invoiced status is never stored on the memo itself.
func (s *LedgerStore) ListUninvoicedMemosForCustomer(ctx context.Context, customerName string) ([]Memo, error) {
	memos, err := s.ListMemosForCustomer(ctx, customerName)
	if err != nil {
		return nil, err
	}
	invoices, err := s.ListInvoices(ctx)
	if err != nil {
		return nil, err
	}
	owned := make(map[string]bool)
	for _, invoice := range invoices {
		for _, no := range invoice.MemoNos {
			owned[no] = true
		}
	}
	free := make([]Memo, 0, len(memos))
	for _, memo := range memos {
		if !owned[memo.MemoNo] {
			free = append(free, memo)
		}
	}
	return free, nil
}

// GenerateInvoiceNumber produces the next number in a monthly sequence,
// e.g. INV-202608-0007. Soft-deleted invoices are included in the scan so a
// number is never reissued after a delete.
func (s *LedgerStore) GenerateInvoiceNumber(ctx context.Context) (string, error) {
	prefix := fmt.Sprintf("INV-%s-", time.Now().Format("200601"))

	var last []string
	err := s.DB.WithContext(ctx).Unscoped().Model(&Invoice{}).
		Where("invoice_no LIKE ?", prefix+"%").
		Order("invoice_no DESC").
		Limit(1).
		Pluck("invoice_no", &last).Error
	if err != nil {
		return "", err
	}

	next := 1
	if len(last) > 0 {
		seq, err := strconv.Atoi(strings.TrimPrefix(last[0], prefix))
		if err == nil {
			next = seq + 1
		}
	}
	return fmt.Sprintf("%s%04d", prefix, next), nil
}
