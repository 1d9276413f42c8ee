package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/pressroom-erp/pressroom-erp/internal/audit"
	"github.com/pressroom-erp/pressroom-erp/internal/auth"
	"github.com/pressroom-erp/pressroom-erp/internal/invoices"
	"github.com/pressroom-erp/pressroom-erp/internal/masterdata"
	"github.com/pressroom-erp/pressroom-erp/internal/observability"
	"github.com/pressroom-erp/pressroom-erp/internal/payments"
	"github.com/pressroom-erp/pressroom-erp/internal/production"
	"github.com/pressroom-erp/pressroom-erp/internal/roles"
	"github.com/pressroom-erp/pressroom-erp/internal/users"
	"github.com/pressroom-erp/pressroom-erp/jobs"
	"github.com/pressroom-erp/pressroom-erp/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	AuthService *auth.Service

	AuthHandler       *auth.Handler
	InvoiceHandler    *invoices.Handler
	PaymentHandler    *payments.Handler
	ProductionHandler *production.Handler
	MasterDataHandler *masterdata.Handler
	ReportHandler     *report.Handler
	UserHandler       *users.Handler
	RoleHandler       *roles.Handler
	AuditHandler      *audit.Handler
	JobHandler        *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Pressroom defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	var authMw func(http.Handler) http.Handler
	if params.AuthService != nil {
		authMw = auth.Middleware(params.AuthService)
	}
	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Auth:    authMw,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}
	if params.InvoiceHandler != nil {
		r.Route("/invoices", params.InvoiceHandler.MountRoutes)
	}
	if params.PaymentHandler != nil {
		r.Route("/payments", params.PaymentHandler.MountRoutes)
	}
	if params.ProductionHandler != nil {
		r.Route("/production", params.ProductionHandler.MountRoutes)
	}
	if params.MasterDataHandler != nil {
		r.Route("/masterdata", params.MasterDataHandler.MountRoutes)
	}
	if params.ReportHandler != nil {
		r.Route("/report", params.ReportHandler.MountRoutes)
	}
	if params.UserHandler != nil {
		r.Route("/users", params.UserHandler.MountRoutes)
	}
	if params.RoleHandler != nil {
		r.Route("/roles", params.RoleHandler.MountRoutes)
	}
	if params.AuditHandler != nil {
		r.Route("/audit", params.AuditHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
