package CronJobs

import (
	"context"
	"log"

	"Caravan/Models"
	"Caravan/Reconcile"

	"github.com/robfig/cron/v3"
)

// LinkageAuditor periodically rescans all invoices for memos claimed by more
// than one of them. The store cannot prevent two concurrent editors from both
// attaching a free memo, so the violation is detected and logged rather than
// silently repaired.
type LinkageAuditor struct {
	Ledger *Models.LedgerStore
	cron   *cron.Cron
}

func NewLinkageAuditor(ledger *Models.LedgerStore) *LinkageAuditor {
	return &LinkageAuditor{
		Ledger: ledger,
		cron:   cron.New(),
	}
}

// Start schedules the nightly audit and runs one pass immediately.
func (a *LinkageAuditor) Start() error {
	if _, err := a.cron.AddFunc("@midnight", a.RunOnce); err != nil {
		return err
	}
	a.cron.Start()
	go a.RunOnce()
	return nil
}

func (a *LinkageAuditor) Stop() {
	a.cron.Stop()
}

// RunOnce executes a single audit pass.
func (a *LinkageAuditor) RunOnce() {
	invoices, err := a.Ledger.ListInvoices(context.Background())
	if err != nil {
		log.Printf("Linkage audit failed to load invoices: %v", err)
		return
	}
	duplicates := Reconcile.DuplicateLinks(invoices)
	if len(duplicates) == 0 {
		log.Printf("Linkage audit clean: %d invoices checked", len(invoices))
		return
	}
	for memoNo, owners := range duplicates {
		log.Printf("Linkage audit violation: memo %s claimed by invoices %v", memoNo, owners)
	}
}
