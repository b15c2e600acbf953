package Controllers

import (
	"bytes"
	"fmt"
	"time"

	"Caravan/Reconcile"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

// ExportInvoicesReport streams all invoices with their memo counts to an
// Excel workbook.
// GET /api/invoices/export
func (h *InvoiceController) ExportInvoicesReport(c *fiber.Ctx) error {
	invoices, err := h.Ledger.ListInvoices(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Database error",
			"message": err.Error(),
		})
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Invoices"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to build report",
			"message": err.Error(),
		})
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{
		"Invoice No", "Date", "Customer", "Memos", "Total Amount",
		"Amount Paid", "Balance", "Status",
	}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	if err == nil {
		f.SetRowStyle(sheetName, 1, 1, headerStyle)
	}

	for rowIndex, invoice := range invoices {
		row := rowIndex + 2
		values := []interface{}{
			invoice.InvoiceNo,
			invoice.Date,
			invoice.CustomerName,
			len(invoice.MemoNos),
			invoice.TotalAmount.StringFixed(2),
			invoice.AmountPaid.StringFixed(2),
			invoice.Balance.StringFixed(2),
			invoice.Status,
		}
		for colIndex, value := range values {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, row)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	for i := range headers {
		col := string(rune('A' + i))
		f.SetColWidth(sheetName, col, col, 16)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to build report",
			"message": err.Error(),
		})
	}

	filename := fmt.Sprintf("invoices-%s.xlsx", time.Now().Format("20060102"))
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Send(buf.Bytes())
}

// GetLinkageAudit reports memos claimed by more than one invoice. The store
// has no cross-session locking, so this is the visibility valve for the
// documented consistency gap.
// GET /api/audit/linkage
func (h *InvoiceController) GetLinkageAudit(c *fiber.Ctx) error {
	invoices, err := h.Ledger.ListInvoices(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Database error",
			"message": err.Error(),
		})
	}
	duplicates := Reconcile.DuplicateLinks(invoices)
	return c.JSON(fiber.Map{
		"data":  duplicates,
		"count": len(duplicates),
	})
}
