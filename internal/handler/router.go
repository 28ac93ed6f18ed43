package handler

import (
	"net/http"
	"time"

	"github.com/hartleydigital/portal-api/internal/domain"
	"github.com/hartleydigital/portal-api/internal/infra/observability"
	"github.com/hartleydigital/portal-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Services bundles the service layer for the router.
type Services struct {
	Auth       *service.AuthService
	Clients    *service.ClientService
	AdminUsers *service.AdminUserService
	Projects   *service.ProjectService
	Invoices   *service.InvoiceService
	Catalog    *service.CatalogService
	Dashboard  *service.DashboardService
	Contact    *service.ContactService

	// Realm session contexts, kept current by the auth event bus.
	AdminSession  *service.SessionContext[domain.AdminUser]
	ClientSession *service.SessionContext[domain.ClientUser]
}

// NewRouter creates the HTTP router with all routes and middleware.
// Three surfaces share it: the public marketing endpoints, the admin
// portal and the client portal.
func NewRouter(svcs *Services, allowedOrigins []string, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(metricsMiddleware(metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// Public marketing-site endpoints
		r.Post("/contact", contactHandler(svcs.Contact, logger))
		r.Get("/catalog/products", publicProductsHandler(svcs.Catalog, logger))
		r.Get("/catalog/packages", publicPackagesHandler(svcs.Catalog, logger))

		// Authentication
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", authLoginHandler(svcs.Auth, logger))
			r.Post("/admin/login", authAdminLoginHandler(svcs.Auth, logger))
			r.Post("/client/login", authClientLoginHandler(svcs.Auth, logger))
			r.Post("/logout", authLogoutHandler(svcs.Auth, logger))
			r.Get("/me", authMeHandler(svcs.Auth, logger))
			r.Get("/session", authSessionHandler(svcs, logger))
			r.Put("/password", authChangePasswordHandler(svcs.Auth, logger))
			r.Post("/password/reset-request", authPasswordResetRequestHandler(svcs.Auth, logger))
		})

		// Admin portal (admin realm required)
		r.Route("/admin", func(r chi.Router) {
			r.Use(AdminAuthMiddleware(svcs.Auth, logger))

			r.Route("/clients", func(r chi.Router) {
				r.Get("/", listClientsHandler(svcs.Clients, logger))
				r.Post("/", createClientHandler(svcs.Clients, logger))
				r.Get("/{clientId}", getClientHandler(svcs.Clients, logger))
				r.Put("/{clientId}", updateClientHandler(svcs.Clients, logger))
				r.Delete("/{clientId}", deleteClientHandler(svcs.Clients, logger))
				r.Get("/{clientId}/subscriptions", listClientSubscriptionsHandler(svcs.Catalog, logger))
			})

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", listProjectsHandler(svcs.Projects, logger))
				r.Post("/", createProjectHandler(svcs.Projects, logger))
				r.Get("/{projectId}", getProjectHandler(svcs.Projects, logger))
				r.Put("/{projectId}", updateProjectHandler(svcs.Projects, logger))
				r.Delete("/{projectId}", deleteProjectHandler(svcs.Projects, logger))
			})

			r.Route("/invoices", func(r chi.Router) {
				r.Get("/", listInvoicesHandler(svcs.Invoices, logger))
				r.Post("/", createInvoiceHandler(svcs.Invoices, logger))
				r.Get("/{invoiceId}", getInvoiceHandler(svcs.Invoices, logger))
				r.Put("/{invoiceId}", updateInvoiceHandler(svcs.Invoices, logger))
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", listAdminUsersHandler(svcs.AdminUsers, logger))
				r.Post("/", createAdminUserHandler(svcs.AdminUsers, logger))
				r.Put("/{userId}", updateAdminUserHandler(svcs.AdminUsers, logger))
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", listProductsHandler(svcs.Catalog, logger))
				r.Post("/", createProductHandler(svcs.Catalog, logger))
				r.Put("/{productId}", updateProductHandler(svcs.Catalog, logger))
			})

			r.Route("/packages", func(r chi.Router) {
				r.Get("/", listPackagesHandler(svcs.Catalog, logger))
				r.Post("/", createPackageHandler(svcs.Catalog, logger))
			})

			r.Post("/subscriptions", createSubscriptionHandler(svcs.Catalog, logger))
			r.Delete("/subscriptions/{subscriptionId}", cancelSubscriptionHandler(svcs.Catalog, logger))

			r.Get("/dashboard", dashboardHandler(svcs.Dashboard, logger))
			r.Get("/metrics", portalMetricsHandler(metrics, logger))
		})

		// Client portal (client realm required)
		r.Route("/portal", func(r chi.Router) {
			r.Use(ClientAuthMiddleware(svcs.Auth, logger))

			r.Get("/me", portalMeHandler(logger))
			r.Get("/projects", portalProjectsHandler(svcs.Projects, logger))
			r.Get("/invoices", portalInvoicesHandler(svcs.Invoices, logger))
			r.Get("/subscriptions", portalSubscriptionsHandler(svcs.Catalog, logger))
		})
	})

	return r
}

// metricsMiddleware times every request under its chi route pattern, so
// path parameters collapse into a single series per operation.
func metricsMiddleware(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)

			pattern := chi.RouteContext(r.Context()).RoutePattern()
			if pattern == "" {
				pattern = "unmatched"
			}
			metrics.RecordRequestDuration(r.Method+" "+pattern, time.Since(start))
		})
	}
}

// ============================================================
// Operational handlers
// ============================================================

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// GET /v1/admin/dashboard
func dashboardHandler(svc *service.DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/admin/dashboard")
		defer span.End()

		stats, err := svc.GetStats(ctx, AdminFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// GET /v1/admin/metrics — counter snapshot for the admin dashboard.
// Requires view_analytics; the raw Prometheus endpoint stays at /metrics.
func portalMetricsHandler(metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !domain.HasPermission(AdminFromContext(r.Context()), domain.PermViewAnalytics) {
			writeError(w, http.StatusForbidden, "forbidden: view_analytics")
			return
		}
		writeJSON(w, http.StatusOK, metrics.GetPortalSnapshot())
	}
}
