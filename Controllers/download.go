package Controllers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"Caravan/Models"
	"Caravan/Printing"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

// DownloadController runs the download-mode protocol over HTTP. Opening a
// download starts a Printing.Coordinator that loads the invoice, renders the
// .xlsx document and holds it until the client either fetches it (the
// completion signal) or explicitly abandons it. Completion removes the file
// exactly once; an abandoned job is torn down without the cleanup callback
// firing later.
type DownloadController struct {
	Ledger *Models.LedgerStore
	Dir    string

	mu   sync.Mutex
	jobs map[string]*downloadJob
}

type downloadJob struct {
	token       string
	invoice     Models.Invoice
	memos       []Models.Memo
	path        string
	ready       bool
	coordinator *Printing.Coordinator
}

func NewDownloadController(ledger *Models.LedgerStore, dir string) *DownloadController {
	if dir == "" {
		dir = "Documents"
	}
	return &DownloadController{
		Ledger: ledger,
		Dir:    dir,
		jobs:   make(map[string]*downloadJob),
	}
}

// StartInvoiceDownload opens a download job for an invoice.
// POST /api/invoices/:id/download
func (h *DownloadController) StartInvoiceDownload(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Invalid ID",
			"message": "ID must be a valid number",
		})
	}

	token, err := newToken()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to start download",
			"message": err.Error(),
		})
	}

	job := &downloadJob{
		token: token,
		path:  filepath.Join(h.Dir, fmt.Sprintf("invoice-%s.xlsx", token)),
	}
	job.coordinator = Printing.NewCoordinator(Printing.Config{
		Load: func(ctx context.Context) error {
			invoice, err := h.Ledger.GetInvoiceByID(ctx, id)
			if err != nil {
				return err
			}
			memos, err := h.Ledger.ListMemosForCustomer(ctx, invoice.CustomerName)
			if err != nil {
				return err
			}
			job.invoice = *invoice
			job.memos = linkedMemos(invoice, memos)
			return nil
		},
		Render: func() error {
			return renderInvoiceDocument(&job.invoice, job.memos, job.path)
		},
		InvokePrint: func() {
			h.mu.Lock()
			job.ready = true
			h.mu.Unlock()
		},
		OnComplete: func() {
			h.remove(job)
		},
		SettleDelay:     100 * time.Millisecond,
		CompletionDelay: time.Second,
	})

	if err := os.MkdirAll(h.Dir, 0755); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to start download",
			"message": err.Error(),
		})
	}
	if err := job.coordinator.Start(c.Context()); err != nil {
		if errors.Is(err, Models.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error":   "Invoice not found",
				"message": "The specified invoice does not exist",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Failed to prepare document",
			"message": err.Error(),
		})
	}

	h.mu.Lock()
	h.jobs[token] = job
	h.mu.Unlock()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Document prepared",
		"token":   token,
	})
}

// FetchDocument serves the rendered document. Serving it is the completion
// signal: the coordinator schedules cleanup, once, after a grace delay so a
// slow client can finish reading the stream.
// GET /api/downloads/:token
func (h *DownloadController) FetchDocument(c *fiber.Ctx) error {
	job, resp := h.lookup(c.Params("token"))
	if resp != nil {
		return c.Status(fiber.StatusNotFound).JSON(resp)
	}

	h.mu.Lock()
	ready := job.ready
	h.mu.Unlock()
	if !ready {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   "Document not ready",
			"message": "The document is still being prepared, retry shortly",
		})
	}

	job.coordinator.PrintFinished()
	return c.Download(job.path, fmt.Sprintf("%s.xlsx", job.invoice.InvoiceNo))
}

// FinishDownload is the manual fallback for a client that never fetched the
// document (the user cancelled). Cleanup still runs at most once.
// POST /api/downloads/:token/finished
func (h *DownloadController) FinishDownload(c *fiber.Ctx) error {
	job, resp := h.lookup(c.Params("token"))
	if resp != nil {
		return c.Status(fiber.StatusNotFound).JSON(resp)
	}
	job.coordinator.Finish()
	return c.JSON(fiber.Map{"message": "Download closed"})
}

// AbandonDownload tears the job down without the completion path firing.
// DELETE /api/downloads/:token
func (h *DownloadController) AbandonDownload(c *fiber.Ctx) error {
	job, resp := h.lookup(c.Params("token"))
	if resp != nil {
		return c.Status(fiber.StatusNotFound).JSON(resp)
	}
	job.coordinator.Teardown()
	h.remove(job)
	return c.JSON(fiber.Map{"message": "Download abandoned"})
}

func (h *DownloadController) lookup(token string) (*downloadJob, fiber.Map) {
	h.mu.Lock()
	defer h.mu.Unlock()
	job, ok := h.jobs[token]
	if !ok {
		return nil, fiber.Map{
			"error":   "Download not found",
			"message": "The download token is unknown or already closed",
		}
	}
	return job, nil
}

func (h *DownloadController) remove(job *downloadJob) {
	h.mu.Lock()
	delete(h.jobs, job.token)
	h.mu.Unlock()
	if err := os.Remove(job.path); err != nil && !os.IsNotExist(err) {
		log.Printf("Error removing rendered document %s: %v", job.path, err)
	}
}

func newToken() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

func linkedMemos(invoice *Models.Invoice, memos []Models.Memo) []Models.Memo {
	byNo := make(map[string]Models.Memo, len(memos))
	for _, memo := range memos {
		byNo[memo.MemoNo] = memo
	}
	linked := make([]Models.Memo, 0, len(invoice.MemoNos))
	for _, no := range invoice.MemoNos {
		if memo, ok := byNo[no]; ok {
			linked = append(linked, memo)
		}
	}
	return linked
}

// renderInvoiceDocument writes the print-formatted invoice to an .xlsx file.
func renderInvoiceDocument(invoice *Models.Invoice, memos []Models.Memo, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Invoice"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	header := map[string]interface{}{
		"A1": "Invoice No",
		"B1": invoice.InvoiceNo,
		"A2": "Date",
		"B2": invoice.Date,
		"A3": "Customer",
		"B3": invoice.CustomerName,
		"A4": "Status",
		"B4": invoice.Status,
	}
	for cell, value := range header {
		f.SetCellValue(sheetName, cell, value)
	}

	columns := []string{"Memo No", "Date", "Vehicle", "Amount"}
	for i, column := range columns {
		cell := fmt.Sprintf("%c6", 'A'+i)
		f.SetCellValue(sheetName, cell, column)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	if err == nil {
		f.SetRowStyle(sheetName, 6, 6, headerStyle)
	}

	row := 7
	for _, memo := range memos {
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), memo.MemoNo)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), memo.Date)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), memo.CarNoPlate)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), memo.TotalAmount.StringFixed(2))
		row++
	}

	row++
	f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), "Total")
	f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), invoice.TotalAmount.StringFixed(2))
	row++
	f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), "Paid")
	f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), invoice.AmountPaid.StringFixed(2))
	row++
	f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), "Balance")
	f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), invoice.Balance.StringFixed(2))

	for i := range columns {
		col := string(rune('A' + i))
		f.SetColWidth(sheetName, col, col, 18)
	}

	return f.SaveAs(path)
}
