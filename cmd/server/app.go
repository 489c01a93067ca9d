package main

import (
	"net/http"

	"github.com/diewo77/pipoca/auth"
	"github.com/diewo77/pipoca/gate"
	"github.com/diewo77/pipoca/httpx"
	"github.com/diewo77/pipoca/i18n"
	"github.com/diewo77/pipoca/internal/config"
	"github.com/diewo77/pipoca/internal/handlers"
	"github.com/diewo77/pipoca/internal/logging"
	"github.com/diewo77/pipoca/internal/policy"
	"github.com/diewo77/pipoca/internal/services"
	"github.com/diewo77/pipoca/mail"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux     *http.ServeMux
	handler http.Handler
	db      *gorm.DB
	log     *zap.Logger

	tokens   *auth.Tokens
	gate     *policy.AuthGate
	accounts *services.AccountManager
	refs     *services.ReferenceService
}

// Deps are the collaborators NewApp cannot build from the database alone.
type Deps struct {
	DB     *gorm.DB
	Log    *zap.Logger
	Tokens *auth.Tokens
	Hasher auth.Hasher
	Mailer mail.Sender
	Auth   config.AuthConfig
	CORS   config.CORSConfig
}

// NewApp creates a new application with all routes configured.
func NewApp(d Deps) *App {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	ag := policy.NewAuthGate(d.DB, d.Auth.ProfileCacheTTL)
	accounts := services.NewAccountManager(d.DB, d.Hasher, d.Mailer, d.Log)
	accounts.OnAccessChange = ag.InvalidateUser

	app := &App{
		mux:      http.NewServeMux(),
		db:       d.DB,
		log:      d.Log,
		tokens:   d.Tokens,
		gate:     ag,
		accounts: accounts,
		refs:     services.NewReferenceService(d.DB, d.Log),
	}
	app.setupRoutes()

	var h http.Handler = app.mux
	h = auth.Middleware(d.Tokens, policy.ActiveUserVerifier(d.DB))(h)
	h = withLanguage(h)
	h = corsHandler(d.CORS).Handler(h)
	h = logging.Middleware(d.Log)(h)
	h = logging.Recover(d.Log)(h)
	app.handler = h
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// setupRoutes configures all application routes.
func (a *App) setupRoutes() {
	ah := handlers.NewAuthHandler(a.accounts, a.tokens, a.log)
	uh := handlers.NewUserHandler(a.accounts, a.refs, a.gate, a.log)
	rh := handlers.NewReferenceHandler(a.refs, a.log)
	aph := handlers.NewAdminProfileHandler(a.db, a.gate.CacheResolver, a.log)

	a.mux.HandleFunc("GET /healthz", a.healthz)

	// ─────────────────────────────────────────────────────────────────────────
	// Public routes (no auth required)
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.HandleFunc("POST /auth/users", ah.Register)
	a.mux.HandleFunc("POST /auth/token/login", ah.Login)

	// ─────────────────────────────────────────────────────────────────────────
	// Authenticated routes (the account owner)
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.Handle("POST /auth/token/logout", auth.RequireAuth(http.HandlerFunc(ah.Logout)))
	a.mux.Handle("GET /auth/users/me", auth.RequireAuth(http.HandlerFunc(ah.Me)))
	a.mux.Handle("PATCH /auth/users/me", auth.RequireAuth(http.HandlerFunc(ah.UpdateMe)))
	a.mux.Handle("POST /auth/users/set_password", auth.RequireAuth(http.HandlerFunc(ah.SetPassword)))

	// Per-record account routes authorize inside the handler so the self
	// policy can apply.
	a.mux.Handle("GET /users/{id}", auth.RequireAuth(http.HandlerFunc(uh.Get)))
	a.mux.Handle("PATCH /users/{id}", auth.RequireAuth(http.HandlerFunc(uh.Update)))

	// ─────────────────────────────────────────────────────────────────────────
	// Protected resource routes (require specific permissions)
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.Handle("GET /users", a.requirePermission(policy.ResourceAccount, gate.ActionList, uh.List))
	a.mux.Handle("POST /users", a.requirePermission(policy.ResourceAccount, gate.ActionCreate, uh.Create))
	a.mux.Handle("DELETE /users/{id}", a.requirePermission(policy.ResourceAccount, gate.ActionDelete, uh.Delete))
	a.mux.Handle("POST /users/{id}/restore", a.requirePermission(policy.ResourceAccount, gate.ActionDelete, uh.Restore))
	a.mux.Handle("POST /users/{id}/email", a.requirePermission(policy.ResourceAccount, gate.ActionEmail, uh.Email))
	a.mux.Handle("PUT /users/{id}/address", a.requirePermission(policy.ResourceAccount, gate.ActionUpdate, uh.LinkAddress))
	a.mux.Handle("PUT /users/{id}/telephone", a.requirePermission(policy.ResourceAccount, gate.ActionUpdate, uh.LinkTelephone))

	a.resource(policy.ResourceAddress, "/addresses",
		rh.ListAddresses, rh.CreateAddress, rh.GetAddress, rh.UpdateAddress, rh.DeleteAddress)
	a.resource(policy.ResourceTelephone, "/telephones",
		rh.ListTelephones, rh.CreateTelephone, rh.GetTelephone, rh.UpdateTelephone, rh.DeleteTelephone)
	a.resource(policy.ResourceOccupation, "/occupations",
		rh.ListOccupations, rh.CreateOccupation, rh.GetOccupation, rh.UpdateOccupation, rh.DeleteOccupation)

	// ─────────────────────────────────────────────────────────────────────────
	// Admin routes (require "*:*")
	// ─────────────────────────────────────────────────────────────────────────
	a.mux.Handle("POST /users/{id}/profile", a.requireAdmin(uh.AssignProfile))
	a.mux.Handle("GET /admin/profiles", a.requireAdmin(aph.List))
	a.mux.Handle("POST /admin/profiles", a.requireAdmin(aph.Create))
	a.mux.Handle("PATCH /admin/profiles/{id}", a.requireAdmin(aph.Update))
	a.mux.Handle("DELETE /admin/profiles/{id}", a.requireAdmin(aph.Delete))
	a.mux.Handle("PUT /admin/profiles/{id}/permissions", a.requireAdmin(aph.SetPermissions))
	a.mux.Handle("GET /admin/permissions", a.requireAdmin(aph.ListPermissions))
}

// resource registers the five CRUD routes of a reference table.
func (a *App) resource(name, prefix string, list, create, get, update, del http.HandlerFunc) {
	a.mux.Handle("GET "+prefix, a.requirePermission(name, gate.ActionList, list))
	a.mux.Handle("POST "+prefix, a.requirePermission(name, gate.ActionCreate, create))
	a.mux.Handle("GET "+prefix+"/{id}", a.requirePermission(name, gate.ActionView, get))
	a.mux.Handle("PATCH "+prefix+"/{id}", a.requirePermission(name, gate.ActionUpdate, update))
	a.mux.Handle("DELETE "+prefix+"/{id}", a.requirePermission(name, gate.ActionDelete, del))
}

// ─────────────────────────────────────────────────────────────────────────────
// Middleware
// ─────────────────────────────────────────────────────────────────────────────

func (a *App) requirePermission(resourceType string, action gate.Action, h http.HandlerFunc) http.Handler {
	return a.gate.RequirePermission(resourceType, action)(h)
}

func (a *App) requireAdmin(h http.HandlerFunc) http.Handler {
	return a.gate.RequireAdmin()(h)
}

// withLanguage stores the Accept-Language choice on the request context.
func withLanguage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := i18n.DetectLanguage(r.Header.Get("Accept-Language"))
		w.Header().Set("Content-Language", lang)
		next.ServeHTTP(w, r.WithContext(i18n.WithLang(r.Context(), lang)))
	})
}

func corsHandler(cfg config.CORSConfig) *cors.Cors {
	opts := cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept-Language"},
		AllowCredentials: !cfg.AllowAll,
	}
	if cfg.AllowAll {
		opts.AllowedOrigins = []string{"*"}
	}
	return cors.New(opts)
}

func (a *App) healthz(w http.ResponseWriter, r *http.Request) {
	sqlDB, err := a.db.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		a.log.Warn("health check failed", zap.Error(err))
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
