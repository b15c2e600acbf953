package FiberConfig

import (
	"fmt"
	"log"
	"os"

	"Caravan/Controllers"
	"Caravan/Models"
	"Caravan/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/template/html"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	ledger := Models.NewLedgerStore(db)

	// Initialize handlers
	memoController := Controllers.NewMemoController(ledger)
	invoiceController := Controllers.NewInvoiceController(ledger)
	customerController := Controllers.NewCustomerController(db)
	printController := Controllers.NewPrintController(ledger)
	downloadController := Controllers.NewDownloadController(ledger, "Documents")

	api := app.Group("/api")

	// Memo routes (trip charge records)
	memos := api.Group("/memos")
	memos.Get("/", memoController.GetAllMemos)
	memos.Post("/", memoController.CreateMemo)
	memos.Get("/:memoNo", memoController.GetMemo)
	memos.Put("/:memoNo", memoController.UpdateMemo)
	memos.Delete("/:memoNo", memoController.DeleteMemo)

	// Invoice routes - keep the non-ID routes BEFORE the ID route to avoid conflicts
	invoices := api.Group("/invoices")
	invoices.Get("/", invoiceController.GetAllInvoices)
	invoices.Get("/eligible-memos", invoiceController.GetEligibleMemos)
	invoices.Post("/preview-totals", invoiceController.PreviewTotals)
	invoices.Get("/export", invoiceController.ExportInvoicesReport)
	invoices.Get("/:id", invoiceController.GetInvoice)
	invoices.Post("/", invoiceController.CreateInvoice)
	invoices.Put("/:id", invoiceController.UpdateInvoice)
	invoices.Delete("/:id", invoiceController.DeleteInvoice)

	// Download protocol
	invoices.Post("/:id/download", downloadController.StartInvoiceDownload)
	downloads := api.Group("/downloads")
	downloads.Get("/:token", downloadController.FetchDocument)
	downloads.Post("/:token/finished", downloadController.FinishDownload)
	downloads.Delete("/:token", downloadController.AbandonDownload)

	// Customer routes
	customers := api.Group("/customers")
	customers.Get("/", customerController.GetCustomers)
	customers.Post("/", customerController.CreateCustomer)
	customers.Get("/:id", customerController.GetCustomer)
	customers.Put("/:id", customerController.UpdateCustomer)
	customers.Delete("/:id", customerController.DeleteCustomer)

	// Linkage audit
	api.Get("/audit/linkage", invoiceController.GetLinkageAudit)

	// Print-formatted HTML views
	app.Get("/invoices/:id/print", printController.InvoicePrintView)
	app.Get("/memos/:memoNo/print", printController.MemoPrintView)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}

func FiberConfig() {
	fmt.Println("Server Up...")
	engine := html.New("./Templates", ".html")
	app := fiber.New(fiber.Config{
		Views: engine,
	})
	app.Use(middleware.RequestLogger())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestCompression,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With",
		AllowCredentials: true,
		MaxAge:           300,
	}))

	SetupRoutes(app, Models.DB)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":3001"
	}
	if err := app.Listen(addr); err != nil {
		log.Fatal(err)
	}
}
