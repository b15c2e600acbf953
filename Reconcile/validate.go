package Reconcile

import "Caravan/Models"

// ValidationReason identifies which precondition a save violated.
type ValidationReason string

const (
	ReasonMissingCustomer ValidationReason = "missing_customer"
	ReasonMissingDate     ValidationReason = "missing_date"
	ReasonNoMemosSelected ValidationReason = "no_memos_selected"
)

// ValidationError blocks a save before any write is attempted.
type ValidationError struct {
	Reason  ValidationReason
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateForSave checks that an invoice draft is complete enough to persist:
// a customer, a date, and at least one selected memo. The first failure wins.
func ValidateForSave(draft *Models.Invoice) *ValidationError {
	if draft.CustomerName == "" {
		return &ValidationError{Reason: ReasonMissingCustomer, Message: "customer is required"}
	}
	if draft.Date == "" {
		return &ValidationError{Reason: ReasonMissingDate, Message: "invoice date is required"}
	}
	if len(draft.MemoNos) == 0 {
		return &ValidationError{Reason: ReasonNoMemosSelected, Message: "at least one memo must be selected"}
	}
	return nil
}
