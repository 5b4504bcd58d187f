package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nuclearlighters/netcube/internal/middleware"
)

const maxRequestBody = 1 << 20 // 1 MiB

// Routes builds the full router. Everything under /api/v1 except login and
// health requires a valid token; mutations additionally require the admin
// role. The request timeout sits above the operation timeout so a slow
// mutation reports its outcome instead of a gateway timeout.
func (h *Handlers) Routes(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(h.cfg.OperationTimeout + 30*time.Second))
	r.Use(middleware.MaxBodySize(maxRequestBody))

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(h.cfg))

			r.Get("/auth/me", h.GetMe)
			r.Post("/auth/password", h.ChangePassword)
			r.Get("/system/info", h.GetSystemInfo)

			r.Get("/network/interfaces", h.GetInterfaces)
			r.Get("/network/interfaces/{name}", h.GetInterface)
			r.Get("/network/audit", h.GetAuditEvents)

			r.Get("/wifi/profiles", h.ListWifiProfiles)
			r.Get("/wifi/profiles/{id}", h.GetWifiProfile)
			r.Get("/static-ip/profiles", h.ListStaticIPProfiles)
			r.Get("/static-ip/profiles/{id}", h.GetStaticIPProfile)

			// Anything that touches host or stored state is admin-only.
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole("admin"))

				r.Post("/network/{iface}/wifi/scan", h.ScanWifi)
				r.Post("/network/{iface}/wifi/connect", h.ConnectWifi)
				r.Post("/network/{iface}/static-ip", h.SetStaticIP)

				r.Post("/wifi/profiles", h.CreateWifiProfile)
				r.Delete("/wifi/profiles/{id}", h.DeleteWifiProfile)
				r.Post("/wifi/profiles/{id}/activate", h.ActivateWifiProfile)

				r.Post("/static-ip/profiles", h.CreateStaticIPProfile)
				r.Delete("/static-ip/profiles/{id}", h.DeleteStaticIPProfile)
				r.Post("/static-ip/profiles/{id}/enable", h.EnableStaticIPProfile)
				r.Post("/static-ip/profiles/{id}/disable", h.DisableStaticIPProfile)
			})
		})
	})

	return r
}
