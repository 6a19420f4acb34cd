package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tradewind-erp/tradewind-erp/internal/company"
	"github.com/tradewind-erp/tradewind-erp/internal/dashboard"
	"github.com/tradewind-erp/tradewind-erp/internal/inventory"
	"github.com/tradewind-erp/tradewind-erp/internal/invoicing"
	"github.com/tradewind-erp/tradewind-erp/internal/masterdata/categories"
	"github.com/tradewind-erp/tradewind-erp/internal/masterdata/customers"
	"github.com/tradewind-erp/tradewind-erp/internal/masterdata/products"
	"github.com/tradewind-erp/tradewind-erp/internal/masterdata/suppliers"
	"github.com/tradewind-erp/tradewind-erp/internal/masterdata/units"
	"github.com/tradewind-erp/tradewind-erp/internal/masterdata/warehouses"
	"github.com/tradewind-erp/tradewind-erp/internal/observability"
	"github.com/tradewind-erp/tradewind-erp/internal/purchasing"
	"github.com/tradewind-erp/tradewind-erp/internal/sales"
	"github.com/tradewind-erp/tradewind-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	CompanyHandler   *company.Handler
	InventoryHandler *inventory.Handler
	PurchaseHandler  *purchasing.Handler
	SalesHandler     *sales.Handler
	InvoiceHandler   *invoicing.Handler
	DashboardHandler *dashboard.Handler

	ProductHandler   *products.Handler
	SupplierHandler  *suppliers.Handler
	CustomerHandler  *customers.Handler
	WarehouseHandler *warehouses.Handler
	CategoryHandler  *categories.Handler
	UnitHandler      *units.Handler

	JobHandler *jobs.Handler
	Metrics    *observability.Metrics
}

// NewRouter constructs the chi.Router with Tradewind defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Mount("/settings/company", params.CompanyHandler.Routes())
		r.Mount("/inventory", params.InventoryHandler.Routes())
		r.Mount("/purchase-orders", params.PurchaseHandler.Routes())
		r.Mount("/sales-orders", params.SalesHandler.Routes())
		r.Mount("/invoices", params.InvoiceHandler.Routes())
		r.Mount("/dashboard", params.DashboardHandler.Routes())
		r.Mount("/reports", params.DashboardHandler.ReportRoutes())

		r.Mount("/products", params.ProductHandler.Routes())
		r.Mount("/suppliers", params.SupplierHandler.Routes())
		r.Mount("/customers", params.CustomerHandler.Routes())
		r.Mount("/warehouses", params.WarehouseHandler.Routes())
		r.Mount("/categories", params.CategoryHandler.Routes())
		r.Mount("/units", params.UnitHandler.Routes())

		if params.JobHandler != nil {
			r.Route("/jobs", params.JobHandler.MountRoutes)
		}
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
