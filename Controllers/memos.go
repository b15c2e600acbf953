package Controllers

import (
	"errors"
	"time"

	"Caravan/Models"
	"Caravan/Reconcile"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// MemoController serves the memo list and the thin trip-entry CRUD. Edit and
// delete are gated on invoicing state: a memo owned by an invoice is rejected
// here, before any store write is attempted.
type MemoController struct {
	Ledger *Models.LedgerStore
}

func NewMemoController(ledger *Models.LedgerStore) *MemoController {
	return &MemoController{Ledger: ledger}
}

// MemoListItem is a memo plus its derived invoicing state. The state is
// recomputed from the invoices table on every fetch, never stored on the memo.
type MemoListItem struct {
	Models.Memo
	Invoiced  bool   `json:"invoiced"`
	InvoiceNo string `json:"invoice_no,omitempty"`
}

// GetAllMemos returns all memos annotated with their owning invoice, if any.
// GET /api/memos
func (h *MemoController) GetAllMemos(c *fiber.Ctx) error {
	memos, err := h.Ledger.ListMemos(c.Context())
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
	items := make([]MemoListItem, 0, len(memos))
	for _, memo := range memos {
		owner := index[memo.MemoNo]
		items = append(items, MemoListItem{
			Memo:      memo,
			Invoiced:  owner != "",
			InvoiceNo: owner,
		})
	}

	return c.JSON(fiber.Map{
		"data":  items,
		"count": len(items),
	})
}

// GetMemo retrieves a single memo by number.
// GET /api/memos/:memoNo
func (h *MemoController) GetMemo(c *fiber.Ctx) error {
	memo, err := h.Ledger.GetMemoByNo(c.Context(), c.Params("memoNo"))
	if err != nil {
		if errors.Is(err, Models.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":   "Memo not found",
				"message": "The specified memo does not exist",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Database error",
			"message": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"data": memo})
}

// CreateMemo registers a new trip charge record.
// POST /api/memos
func (h *MemoController) CreateMemo(c *fiber.Ctx) error {
	var req Models.MemoRequest
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
	memo, status, resp := memoFromRequest(&req)
	if resp != nil {
		return c.Status(status).JSON(resp)
	}
	if err := h.Ledger.SaveMemo(c.Context(), memo); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to create memo",
			"message": err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Memo created successfully",
		"data":    memo,
	})
}

// UpdateMemo rewrites a memo's fields. Rejected with the owning invoice number
// while the memo is linked; the store is not contacted in that case.
// PUT /api/memos/:memoNo
func (h *MemoController) UpdateMemo(c *fiber.Ctx) error {
	memoNo := c.Params("memoNo")

	existing, err := h.Ledger.GetMemoByNo(c.Context(), memoNo)
	if err != nil {
		if errors.Is(err, Models.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":   "Memo not found",
				"message": "The specified memo does not exist",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Database error",
			"message": err.Error(),
		})
	}

	if status, resp := h.rejectIfInvoiced(c, memoNo); resp != nil {
		return c.Status(status).JSON(resp)
	}

	var req Models.MemoRequest
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
	updated, status, resp := memoFromRequest(&req)
	if resp != nil {
		return c.Status(status).JSON(resp)
	}
	updated.ID = existing.ID
	updated.MemoNo = existing.MemoNo // memo number is the identity, never rewritten

	if err := h.Ledger.SaveMemo(c.Context(), updated); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to update memo",
			"message": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"message": "Memo updated successfully",
		"data":    updated,
	})
}

// DeleteMemo removes a memo unless an invoice owns it.
// DELETE /api/memos/:memoNo
func (h *MemoController) DeleteMemo(c *fiber.Ctx) error {
	memoNo := c.Params("memoNo")

	if status, resp := h.rejectIfInvoiced(c, memoNo); resp != nil {
		return c.Status(status).JSON(resp)
	}

	if err := h.Ledger.DeleteMemo(c.Context(), memoNo); err != nil {
		if errors.Is(err, Models.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":   "Memo not found",
				"message": "The specified memo does not exist",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to delete memo",
			"message": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"message": "Memo deleted successfully"})
}

// rejectIfInvoiced returns a 409 payload naming the owning invoice when the
// memo is linked. A linked memo is immutable until the invoice releases it.
func (h *MemoController) rejectIfInvoiced(c *fiber.Ctx, memoNo string) (int, fiber.Map) {
	invoices, err := h.Ledger.ListInvoices(c.Context())
	if err != nil {
		return fiber.StatusInternalServerError, fiber.Map{
			"error":   "Database error",
			"message": err.Error(),
		}
	}
	index := Reconcile.BuildInvoiceIndex(invoices)
	if !Reconcile.IsMutable(memoNo, index) {
		return fiber.StatusConflict, fiber.Map{
			"error":      "Memo already invoiced",
			"message":    "This memo is linked to invoice " + index[memoNo] + " and cannot be changed until it is removed from that invoice",
			"invoice_no": index[memoNo],
		}
	}
	return 0, nil
}

func memoFromRequest(req *Models.MemoRequest) (*Models.Memo, int, fiber.Map) {
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return nil, fiber.StatusBadRequest, fiber.Map{
			"error":   "Invalid date format",
			"message": "Date must be in YYYY-MM-DD format",
		}
	}
	total, err := decimal.NewFromString(req.TotalAmount)
	if err != nil {
		return nil, fiber.StatusBadRequest, fiber.Map{
			"error":   "Invalid amount",
			"message": "total_amount must be a decimal number",
		}
	}
	balance := total
	if req.Balance != "" {
		balance, err = decimal.NewFromString(req.Balance)
		if err != nil {
			return nil, fiber.StatusBadRequest, fiber.Map{
				"error":   "Invalid amount",
				"message": "balance must be a decimal number",
			}
		}
	}
	return &Models.Memo{
		MemoNo:       req.MemoNo,
		CustomerName: req.CustomerName,
		CarNoPlate:   req.CarNoPlate,
		Date:         req.Date,
		TotalAmount:  total,
		Balance:      balance,
	}, 0, nil
}
