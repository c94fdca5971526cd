package handlers

import (
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ukydev/fieldops/internal/auth"
	"github.com/ukydev/fieldops/internal/metrics"
	"github.com/ukydev/fieldops/internal/middleware"
	"github.com/ukydev/fieldops/internal/models"
)

// Deps is everything the router needs.
type Deps struct {
	Auth           *auth.Service
	Users          *UserHandler
	Login          *AuthHandler
	Catalog        *CatalogHandler
	Schedules      *ScheduleHandler
	Services       *ServiceHandler
	Reports        *ReportHandler
	DB             Pinger
	LoginRateLimit int
	TrustedProxies []netip.Prefix
}

var allRoles = []models.Role{
	models.RoleScheduling,
	models.RoleSupport,
	models.RoleValidation,
	models.RoleBilling,
}

// NewRouter mounts every endpoint under /api, plus /health and /metrics at
// the root.
func NewRouter(d Deps) http.Handler {
	authMW := middleware.NewAuthMiddleware(d.Auth)
	limiter := middleware.NewRateLimitMiddleware(d.TrustedProxies...)
	if d.LoginRateLimit <= 0 {
		d.LoginRateLimit = 10
	}
	role := authMW.RequireRole

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.Use(metrics.Middleware)

	r.Get("/health", Health(d.DB))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Use(authMW.Authenticate)

		api.Get("/health", Health(d.DB))
		api.With(limiter.RateLimit(d.LoginRateLimit, time.Minute)).Post("/auth/login", d.Login.Login)
		api.Get("/auth/me", d.Login.Me)
		api.Post("/auth/change-password", d.Login.ChangePassword)

		api.Route("/users", func(u chi.Router) {
			u.Use(role(models.RoleAdministrator))
			u.Get("/", d.Users.List)
			u.Post("/", d.Users.Create)
			u.Get("/{id}", d.Users.Get)
			u.Put("/{id}", d.Users.Update)
			u.Delete("/{id}", d.Users.Delete)
		})

		api.Route("/clients", func(c chi.Router) {
			c.Get("/", d.Catalog.ListClients)
			c.Get("/{id}", d.Catalog.GetClient)
			c.Group(func(w chi.Router) {
				w.Use(role(models.RoleScheduling))
				w.Post("/", d.Catalog.CreateClient)
				w.Put("/{id}", d.Catalog.UpdateClient)
				w.Delete("/{id}", d.Catalog.DeleteClient)
				w.Post("/{id}/images", d.Catalog.UploadClientImages)
			})
		})

		api.Route("/products", func(p chi.Router) {
			p.Get("/", d.Catalog.ListProducts)
			p.Get("/{id}", d.Catalog.GetProduct)
			p.Group(func(w chi.Router) {
				w.Use(role(models.RoleScheduling))
				w.Post("/", d.Catalog.CreateProduct)
				w.Put("/{id}", d.Catalog.UpdateProduct)
				w.Delete("/{id}", d.Catalog.DeleteProduct)
			})
		})

		api.Route("/schedules", func(s chi.Router) {
			s.Group(func(read chi.Router) {
				read.Use(role(allRoles...))
				read.Get("/", d.Schedules.List)
				read.Get("/import-template", d.Schedules.Template)
				read.Get("/{id}", d.Schedules.Get)
			})
			s.Group(func(write chi.Router) {
				write.Use(role(models.RoleScheduling, models.RoleSupport))
				write.Post("/", d.Schedules.Create)
				write.Post("/bulk", d.Schedules.BulkCreate)
				write.Put("/bulk", d.Schedules.BulkUpdate)
				write.Post("/import", d.Schedules.Import)
				write.Put("/{id}", d.Schedules.Update)
				write.Patch("/{id}/status", d.Schedules.UpdateStatus)
				write.Delete("/{id}", d.Schedules.Delete)
			})
		})

		api.Route("/services", func(s chi.Router) {
			s.Get("/", d.Services.List)
			s.Get("/{id}", d.Services.Get)
			s.With(role(models.RoleValidation)).Post("/from-validation", d.Services.FromValidation)
			s.With(role(models.RoleValidation, models.RoleBilling)).Post("/bulk-import", d.Services.BulkImport)
			s.With(role(models.RoleAdministrator)).Delete("/{id}", d.Services.Delete)
		})

		api.Get("/reports", d.Reports.Get)
		api.Get("/reports/export", d.Reports.Export)
	})
	return r
}
