package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ventero-erp/ventero/internal/catalog"
	"github.com/ventero-erp/ventero/internal/clients"
	"github.com/ventero-erp/ventero/internal/invoicing"
	"github.com/ventero-erp/ventero/internal/receivables"
	"github.com/ventero-erp/ventero/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	CatalogHandler     *catalog.Handler
	ClientsHandler     *clients.Handler
	InvoicingHandler   *invoicing.Handler
	ReceivablesHandler *receivables.Handler
	JobsHandler        *jobs.Handler
	Pool               *pgxpool.Pool
}

// NewRouter constructs the chi.Router with Ventero defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if params.Pool != nil {
			if err := params.Pool.Ping(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"degraded"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/products", params.CatalogHandler.MountRoutes)
		api.Route("/clients", params.ClientsHandler.MountRoutes)
		api.Route("/invoices", params.InvoicingHandler.MountRoutes)
		api.Route("/receivables", params.ReceivablesHandler.MountRoutes)
		if params.JobsHandler != nil {
			api.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	return r
}
