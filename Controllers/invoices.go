package Controllers

import (
	"errors"
	"strconv"
	"time"

	"Caravan/Billing"
	"Caravan/Models"
	"Caravan/Reconcile"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// InvoiceController drives invoice editing through Billing.InvoiceEditor: each
// write request opens an editor, replays the requested state onto the draft,
// and saves. The editor owns the reconciliation rules; the handler only maps
// its outcomes onto HTTP.
type InvoiceController struct {
	Ledger *Models.LedgerStore
}

func NewInvoiceController(ledger *Models.LedgerStore) *InvoiceController {
	return &InvoiceController{Ledger: ledger}
}

// GetAllInvoices lists invoices, newest numbers first.
// GET /api/invoices
func (h *InvoiceController) GetAllInvoices(c *fiber.Ctx) error {
	invoices, err := h.Ledger.ListInvoices(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Database error",
			"message": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"data":  invoices,
		"count": len(invoices),
	})
}

// GetInvoice retrieves one invoice by ID.
// GET /api/invoices/:id
func (h *InvoiceController) GetInvoice(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid ID",
			"message": "ID must be a valid number",
		})
	}
	invoice, err := h.Ledger.GetInvoiceByID(c.Context(), id)
	if err != nil {
		return h.invoiceFetchError(c, err)
	}
	return c.JSON(fiber.Map{"data": invoice})
}

// CreateInvoice starts a fresh draft, applies the requested state and saves.
// POST /api/invoices
func (h *InvoiceController) CreateInvoice(c *fiber.Ctx) error {
	var req Models.InvoiceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid request body",
			"message": err.Error(),
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Validation failed",
			"message": err.Error(),
		})
	}

	editor := Billing.NewInvoiceEditor(h.Ledger)
	if err := editor.Initialize(c.Context(), 0); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to start invoice draft",
			"message": err.Error(),
		})
	}
	if status, resp := applyRequest(c, editor, &req); resp != nil {
		return c.Status(status).JSON(resp)
	}
	if status, resp := saveDraft(c, editor); resp != nil {
		return c.Status(status).JSON(resp)
	}
	draft := editor.Draft()
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Invoice created successfully",
		"data":    draft,
	})
}

// UpdateInvoice loads the invoice into an editor, replays the requested state
// and saves in place.
// PUT /api/invoices/:id
func (h *InvoiceController) UpdateInvoice(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid ID",
			"message": "ID must be a valid number",
		})
	}
	var req Models.InvoiceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid request body",
			"message": err.Error(),
		})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Validation failed",
			"message": err.Error(),
		})
	}

	editor := Billing.NewInvoiceEditor(h.Ledger)
	if err := editor.Initialize(c.Context(), id); err != nil {
		return h.invoiceFetchError(c, err)
	}
	if status, resp := applyRequest(c, editor, &req); resp != nil {
		return c.Status(status).JSON(resp)
	}
	if status, resp := saveDraft(c, editor); resp != nil {
		return c.Status(status).JSON(resp)
	}
	draft := editor.Draft()
	return c.JSON(fiber.Map{
		"message": "Invoice updated successfully",
		"data":    draft,
	})
}

// DeleteInvoice removes an invoice; its memos become uninvoiced on the next
// index rebuild.
// DELETE /api/invoices/:id
func (h *InvoiceController) DeleteInvoice(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid ID",
			"message": "ID must be a valid number",
		})
	}
	if err := h.Ledger.DeleteInvoice(c.Context(), id); err != nil {
		return h.invoiceFetchError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Invoice deleted successfully"})
}

// GetEligibleMemos returns the memos selectable for a customer, relative to
// the invoice being edited (pass invoice_id when editing an existing one).
// Memos already on that invoice come back with selected=true.
// GET /api/invoices/eligible-memos?customer=...&invoice_id=...
func (h *InvoiceController) GetEligibleMemos(c *fiber.Ctx) error {
	customer := c.Query("customer")
	if customer == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Validation failed",
			"message": "customer query parameter is required",
		})
	}

	editingInvoiceNo := ""
	selected := map[string]bool{}
	if raw := c.Query("invoice_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "Invalid ID",
				"message": "invoice_id must be a valid number",
			})
		}
		invoice, err := h.Ledger.GetInvoiceByID(c.Context(), uint(id))
		if err != nil {
			return h.invoiceFetchError(c, err)
		}
		editingInvoiceNo = invoice.InvoiceNo
		for _, no := range invoice.MemoNos {
			selected[no] = true
		}
	}

	memos, err := h.Ledger.ListMemosForCustomer(c.Context(), customer)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Database error",
			"message": err.Error(),
		})
	}
	invoices, err := h.Ledger.ListInvoices(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Database error",
			"message": err.Error(),
		})
	}

	index := Reconcile.BuildInvoiceIndex(invoices)
	eligible := Reconcile.EligibleMemos(memos, index, customer, editingInvoiceNo)

	type eligibleItem struct {
		Models.Memo
		Selected bool `json:"selected"`
	}
	items := make([]eligibleItem, 0, len(eligible))
	for _, memo := range eligible {
		items = append(items, eligibleItem{Memo: memo, Selected: selected[memo.MemoNo]})
	}
	return c.JSON(fiber.Map{
		"data":  items,
		"count": len(items),
	})
}

// PreviewTotals recomputes total and balance for a tentative selection without
// touching any invoice. The client calls this on every toggle.
// POST /api/invoices/preview-totals
func (h *InvoiceController) PreviewTotals(c *fiber.Ctx) error {
	var req struct {
		CustomerName string   `json:"customer_name"`
		MemoNos      []string `json:"memo_nos"`
		AmountPaid   string   `json:"amount_paid"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid request body",
			"message": err.Error(),
		})
	}
	amountPaid, status, resp := parseAmountPaid(req.AmountPaid)
	if resp != nil {
		return c.Status(status).JSON(resp)
	}
	memos, err := h.Ledger.ListMemosForCustomer(c.Context(), req.CustomerName)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Database error",
			"message": err.Error(),
		})
	}
	totals := Reconcile.ComputeTotals(req.MemoNos, amountPaid, Reconcile.MemoLookup(memos))
	return c.JSON(fiber.Map{"data": totals})
}

func (h *InvoiceController) invoiceFetchError(c *fiber.Ctx, err error) error {
	if errors.Is(err, Models.ErrNotFound) || errors.Is(err, Billing.ErrInvoiceNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Invoice not found",
			"message": "The specified invoice does not exist",
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":   "Database error",
		"message": err.Error(),
	})
}

// applyRequest replays the requested invoice state onto the editor draft. The
// selection is emptied before a customer change so the customer-lock rule in
// the editor only rejects a change that would orphan kept memos.
func applyRequest(c *fiber.Ctx, editor *Billing.InvoiceEditor, req *Models.InvoiceRequest) (int, fiber.Map) {
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return fiber.StatusBadRequest, fiber.Map{
			"error":   "Invalid date format",
			"message": "Date must be in YYYY-MM-DD format",
		}
	}
	amountPaid, status, resp := parseAmountPaid(req.AmountPaid)
	if resp != nil {
		return status, resp
	}

	draft := editor.Draft()
	if req.CustomerName != draft.CustomerName {
		for _, no := range draft.MemoNos {
			if err := editor.ToggleMemo(no, false); err != nil {
				return fiber.StatusInternalServerError, fiber.Map{
					"error":   "Failed to update selection",
					"message": err.Error(),
				}
			}
		}
		if err := editor.ChangeCustomer(c.Context(), req.CustomerName); err != nil {
			if errors.Is(err, Billing.ErrCustomerLocked) {
				return fiber.StatusConflict, fiber.Map{
					"error":   "Customer locked",
					"message": err.Error(),
				}
			}
			return fiber.StatusInternalServerError, fiber.Map{
				"error":   "Failed to change customer",
				"message": err.Error(),
			}
		}
	}

	// Drop memos the request no longer wants, then add the new ones in order.
	wanted := make(map[string]bool, len(req.MemoNos))
	for _, no := range req.MemoNos {
		wanted[no] = true
	}
	for _, no := range editor.Draft().MemoNos {
		if !wanted[no] {
			if err := editor.ToggleMemo(no, false); err != nil {
				return fiber.StatusInternalServerError, fiber.Map{
					"error":   "Failed to update selection",
					"message": err.Error(),
				}
			}
		}
	}
	for _, no := range req.MemoNos {
		if err := editor.ToggleMemo(no, true); err != nil {
			if errors.Is(err, Billing.ErrMemoNotEligible) {
				return fiber.StatusConflict, fiber.Map{
					"error":   "Memo not eligible",
					"message": "Memo " + no + " is not available for this invoice",
					"memo_no": no,
				}
			}
			return fiber.StatusInternalServerError, fiber.Map{
				"error":   "Failed to update selection",
				"message": err.Error(),
			}
		}
	}

	if err := editor.SetAmountPaid(amountPaid); err != nil {
		return fiber.StatusBadRequest, fiber.Map{
			"error":   "Invalid amount",
			"message": err.Error(),
		}
	}
	if err := editor.SetDate(req.Date); err != nil {
		return fiber.StatusInternalServerError, fiber.Map{
			"error":   "Failed to set date",
			"message": err.Error(),
		}
	}
	if req.Status != "" {
		if err := editor.SetStatus(req.Status); err != nil {
			return fiber.StatusBadRequest, fiber.Map{
				"error":   "Invalid status",
				"message": err.Error(),
			}
		}
	}
	return 0, nil
}

func saveDraft(c *fiber.Ctx, editor *Billing.InvoiceEditor) (int, fiber.Map) {
	if err := editor.Save(c.Context()); err != nil {
		var verr *Reconcile.ValidationError
		if errors.As(err, &verr) {
			return fiber.StatusBadRequest, fiber.Map{
				"error":   "Validation failed",
				"reason":  string(verr.Reason),
				"message": verr.Message,
			}
		}
		return fiber.StatusInternalServerError, fiber.Map{
			"error":   "Failed to save invoice",
			"message": err.Error(),
		}
	}
	return 0, nil
}

func parseAmountPaid(raw string) (decimal.Decimal, int, fiber.Map) {
	if raw == "" {
		return decimal.Zero, 0, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fiber.StatusBadRequest, fiber.Map{
			"error":   "Invalid amount",
			"message": "amount_paid must be a decimal number",
		}
	}
	if amount.IsNegative() {
		return decimal.Zero, fiber.StatusBadRequest, fiber.Map{
			"error":   "Invalid amount",
			"message": "amount_paid cannot be negative",
		}
	}
	return amount, 0, nil
}

func parseID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
