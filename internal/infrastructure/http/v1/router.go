// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"lotkeeper/internal/app"
	"lotkeeper/internal/core/idempotency"
	"lotkeeper/internal/infrastructure/http/v1/handlers"
	"lotkeeper/internal/infrastructure/http/v1/middleware"
	"lotkeeper/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// App is the wired engine
	App *app.App

	// Logger for request logging
	Logger *logger.Logger

	// Idempotency store; nil disables X-Idempotency-Key handling
	Idempotency idempotency.Store

	// Health checks of backing stores, by name
	HealthChecks map[string]handlers.Pinger

	// StoreMode is reported by /health ("memory" or "postgres")
	StoreMode string
	Version   string

	// Debug selects gin debug mode
	Debug bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	health := handlers.NewHealthHandler(cfg.Version, cfg.StoreMode, cfg.HealthChecks)
	router.GET("/health", health.Health)

	v1 := router.Group("/api/v1")
	if cfg.Idempotency != nil {
		v1.Use(middleware.Idempotency(cfg.Idempotency))
	}

	base := handlers.NewBaseHandler()
	registerCatalogRoutes(v1, base, cfg.App)
	registerDocumentRoutes(v1, base, cfg.App)
	registerRegisterRoutes(v1, base, cfg.App)
	registerReportRoutes(v1, base, cfg.App)

	return router
}

// registerCatalogRoutes registers the product, customer and supplier endpoints.
func registerCatalogRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, a *app.App) {
	h := handlers.NewCatalogHandler(base, a.Products, a.Customers, a.Suppliers)

	products := rg.Group("/products")
	products.POST("", h.CreateProduct)
	products.GET("", h.ListProducts)
	products.GET("/low-stock", h.LowStock)
	products.GET("/:id", h.GetProduct)

	customers := rg.Group("/customers")
	customers.POST("", h.CreateCustomer)
	customers.GET("", h.ListCustomers)
	customers.POST("/:id/payments", h.ReceivePayment)

	rg.GET("/suppliers", h.ListSuppliers)
}

// registerDocumentRoutes registers sales, receipts, inventory counts and
// batch write-offs.
func registerDocumentRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, a *app.App) {
	sales := handlers.NewSaleHandler(base, a.Sales, a.Reversals)
	g := rg.Group("/sales")
	g.POST("", sales.Create)
	g.GET("", sales.List)
	g.GET("/:id", sales.Get)
	g.POST("/:id/void", sales.Void)
	g.POST("/:id/returns", sales.Return)
	g.POST("/:id/settle", sales.Settle)

	receipts := handlers.NewReceiptHandler(base, a.Purchases, a.Reversals)
	g = rg.Group("/receipts")
	g.POST("", receipts.Create)
	g.GET("", receipts.List)
	g.GET("/:id", receipts.Get)
	g.POST("/:id/cancel", receipts.Cancel)

	counts := handlers.NewInventoryHandler(base, a.Counts)
	g = rg.Group("/inventory/counts")
	g.POST("", counts.Create)
	g.GET("", counts.List)
	g.GET("/:id", counts.Get)

	rg.DELETE("/batches/:id", counts.DiscardBatch)
}

// registerRegisterRoutes registers batch, movement and ledger endpoints.
func registerRegisterRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, a *app.App) {
	st := handlers.NewStockHandler(base, a.Batches, a.Stock, a.Reports)
	products := rg.Group("/products/:id")
	products.GET("/batches", st.Batches)
	products.GET("/movements", st.Movements)
	products.GET("/reconciliation", st.Reconciliation)

	ledger := handlers.NewLedgerHandler(base, a.Ledger)
	g := rg.Group("/ledger")
	g.GET("", ledger.List)
	g.GET("/summary", ledger.Summary)
	g.POST("/:id/settle", ledger.Settle)
}

// registerReportRoutes registers read-only reports.
func registerReportRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, a *app.App) {
	h := handlers.NewReportsHandler(base, a.Reports)
	g := rg.Group("/reports")
	g.GET("/valuation", h.Valuation)
	g.GET("/margins", h.Margins)
	g.GET("/sales/:id/margin", h.SaleMargin)
}
