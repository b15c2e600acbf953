package Controllers

import (
	"errors"

	"Caravan/Models"

	"github.com/gofiber/fiber/v2"
)

// PrintController renders the print-formatted HTML views. The document is a
// rendering of the current saved state, not a stored artifact, so it always
// reflects the latest data.
type PrintController struct {
	Ledger *Models.LedgerStore
}

func NewPrintController(ledger *Models.LedgerStore) *PrintController {
	return &PrintController{Ledger: ledger}
}

// InvoicePrintView renders the invoice print page.
// GET /invoices/:id/print
func (h *PrintController) InvoicePrintView(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Invalid invoice ID")
	}
	invoice, err := h.Ledger.GetInvoiceByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, Models.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).SendString("Invoice not found")
		}
		return c.Status(fiber.StatusInternalServerError).SendString("Database error")
	}
	memos, err := h.Ledger.ListMemosForCustomer(c.Context(), invoice.CustomerName)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Database error")
	}

	return c.Render("invoice_print", fiber.Map{
		"Invoice": invoice,
		"Memos":   linkedMemos(invoice, memos),
		"Total":   invoice.TotalAmount.StringFixed(2),
		"Paid":    invoice.AmountPaid.StringFixed(2),
		"Balance": invoice.Balance.StringFixed(2),
	})
}

// MemoPrintView renders a single memo's print page.
// GET /memos/:memoNo/print
func (h *PrintController) MemoPrintView(c *fiber.Ctx) error {
	memo, err := h.Ledger.GetMemoByNo(c.Context(), c.Params("memoNo"))
	if err != nil {
		if errors.Is(err, Models.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).SendString("Memo not found")
		}
		return c.Status(fiber.StatusInternalServerError).SendString("Database error")
	}
	return c.Render("memo_print", fiber.Map{
		"Memo":    memo,
		"Total":   memo.TotalAmount.StringFixed(2),
		"Balance": memo.Balance.StringFixed(2),
	})
}
