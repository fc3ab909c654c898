// Package server implements the HTTP server and routing logic.
package server

import (
	"net/http"

	"github.com/chuna-hq/chuna/internal/server/handlers"
	"github.com/chuna-hq/chuna/internal/server/ratelimit"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(svc *handlers.Services, cfg *handlers.Config, limits *ratelimit.Config) http.Handler {
	mux := &http.ServeMux{}

	hh := handlers.NewHealthHandler(cfg.Version)
	authh := handlers.NewAuthHandler(svc)
	lh := handlers.NewLeadHandler(svc)
	fh := handlers.NewFeedbackHandler(svc)
	rh := handlers.NewRequestHandler(svc)
	ih := handlers.NewInvoiceHandler(svc)
	kh := handlers.NewAPIKeyHandler(svc)
	oh := handlers.NewOnboardingHandler(svc)
	th := handlers.NewTenantHandler(svc)
	adh := handlers.NewAdminHandler(svc)
	ph := handlers.NewPublicHandler(svc)
	qh := handlers.NewQueryHandler(svc)

	// Health check
	mux.Handle("GET /api/v1/health", Wrap(hh.Health, svc, cfg, limits))

	// Auth endpoints
	mux.Handle("POST /api/v1/auth/signup", Wrap(authh.SignUp, svc, cfg, limits))
	mux.Handle("POST /api/v1/auth/login", Wrap(authh.Login, svc, cfg, limits))
	mux.Handle("POST /api/v1/auth/logout", Wrap(authh.Logout, svc, cfg, limits))
	mux.Handle("POST /api/v1/auth/reset-password", Wrap(authh.ResetPassword, svc, cfg, limits))
	mux.Handle("GET /api/v1/auth/session", Wrap(authh.Session, svc, cfg, limits))

	// Portal endpoints, scoped to the caller's workspace
	mux.Handle("GET /api/v1/leads", WrapAuth(lh.List, svc, cfg, limits))
	mux.Handle("POST /api/v1/leads", WrapAuth(lh.Create, svc, cfg, limits))
	mux.Handle("PUT /api/v1/leads/{id}/status", WrapAuth(lh.UpdateStatus, svc, cfg, limits))
	mux.Handle("GET /api/v1/feedback", WrapAuth(fh.List, svc, cfg, limits))
	mux.Handle("POST /api/v1/feedback", WrapAuth(fh.Create, svc, cfg, limits))
	mux.Handle("GET /api/v1/requests", WrapAuth(rh.List, svc, cfg, limits))
	mux.Handle("POST /api/v1/requests", WrapAuth(rh.Create, svc, cfg, limits))
	mux.Handle("GET /api/v1/invoices", WrapAuth(ih.List, svc, cfg, limits))
	mux.Handle("GET /api/v1/api-keys", WrapAuth(kh.List, svc, cfg, limits))
	mux.Handle("POST /api/v1/api-keys", WrapAuth(kh.Create, svc, cfg, limits))
	mux.Handle("DELETE /api/v1/api-keys/{id}", WrapAuth(kh.Delete, svc, cfg, limits))
	mux.Handle("GET /api/v1/onboarding", WrapAuth(oh.Get, svc, cfg, limits))
	mux.Handle("PUT /api/v1/onboarding", WrapAuth(oh.Save, svc, cfg, limits))
	mux.Handle("GET /api/v1/tenant", WrapAuth(th.Get, svc, cfg, limits))

	// Admin console
	mux.Handle("GET /api/v1/admin/tenants", WrapAdmin(adh.Tenants, svc, cfg, limits))
	mux.Handle("GET /api/v1/admin/tenants/{id}", WrapAdmin(adh.TenantDetail, svc, cfg, limits))
	mux.Handle("GET /api/v1/admin/profiles", WrapAdmin(adh.Profiles, svc, cfg, limits))
	mux.Handle("PUT /api/v1/admin/requests/{id}/status", WrapAdmin(adh.UpdateRequestStatus, svc, cfg, limits))
	mux.Handle("GET /api/v1/admin/schema", WrapAdmin(adh.Schema, svc, cfg, limits))

	// Public surface: integration lead capture and marketing site copy
	mux.Handle("POST /api/v1/public/leads/{apiKey}", Wrap(ph.CaptureLead, svc, cfg, limits))
	mux.Handle("POST /api/v1/public/promo", Wrap(ph.Promo, svc, cfg, limits))

	// Raw query delegation for instances running against this one
	mux.Handle("POST /api/v1/query", WrapService(qh.Exec, svc, cfg, limits))

	return mux
}
