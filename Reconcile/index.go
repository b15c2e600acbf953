package Reconcile

import "Caravan/Models"

// BuildInvoiceIndex scans all invoices and maps each linked memo number to its
// owning invoice number. The index is rebuilt on every fetch; invoiced status
// is a derived view, never a stored flag, so it cannot drift.
//
// If two invoices claim the same memo the first owner by scan order wins here;
// DuplicateLinks exists to surface that corruption.
func BuildInvoiceIndex(invoices []Models.Invoice) map[string]string {
	index := make(map[string]string)
	for _, invoice := range invoices {
		for _, no := range invoice.MemoNos {
			if _, taken := index[no]; !taken {
				index[no] = invoice.InvoiceNo
			}
		}
	}
	return index
}

// DuplicateLinks returns memo numbers claimed by more than one invoice, with
// the claiming invoice numbers. The store has no cross-invoice transactions,
// so two concurrent editors can both attach a free memo; this detects the
// damage after the fact.
func DuplicateLinks(invoices []Models.Invoice) map[string][]string {
	claims := make(map[string][]string)
	for _, invoice := range invoices {
		for _, no := range invoice.MemoNos {
			claims[no] = append(claims[no], invoice.InvoiceNo)
		}
	}
	duplicates := make(map[string][]string)
	for no, owners := range claims {
		if len(owners) > 1 {
			duplicates[no] = owners
		}
	}
	return duplicates
}
