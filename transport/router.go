// Package transport wires the connect components behind a chi router. The
// router is the canonical HTTP surface; consumers embedding the library mount
// it or pick individual handlers.
package transport

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	goerrors "github.com/goliatone/go-errors"

	"github.com/schedulehq/go-connect/auth"
	"github.com/schedulehq/go-connect/connect"
	"github.com/schedulehq/go-connect/core"
	"github.com/schedulehq/go-connect/ratelimit"
)

type contextKey string

const (
	authorizedContextKey contextKey = "authorized_context"
	adminTenantKey       contextKey = "admin_tenant"
)

// Handler bundles every route of the connect HTTP surface.
type Handler struct {
	runtime      *core.Runtime
	logger       core.Logger
	sessions     *auth.TenantResolver
	apiKeys      *auth.APIKeyResolver
	admin        *auth.AdminAuthorizer
	keys         *auth.KeyService
	orchestrator *connect.Orchestrator
	callbacks    *connect.CallbackRouter
	entities     *connect.EntityResolver
	selections   *connect.SelectionCompleter
	limiter      *ratelimit.FixedWindowLimiter
}

// NewHandler builds every component from the runtime. A nil limiter gets the
// in-memory fixed window sized from the runtime config.
func NewHandler(runtime *core.Runtime, limiter *ratelimit.FixedWindowLimiter) (*Handler, error) {
	if runtime == nil {
		return nil, goerrors.New("transport: runtime is required", goerrors.CategoryInternal)
	}

	sessions, err := auth.NewTenantResolver(runtime)
	if err != nil {
		return nil, err
	}
	apiKeys, err := auth.NewAPIKeyResolver(runtime)
	if err != nil {
		return nil, err
	}
	admin, err := auth.NewAdminAuthorizer(runtime, sessions)
	if err != nil {
		return nil, err
	}
	keys, err := auth.NewKeyService(runtime)
	if err != nil {
		return nil, err
	}
	orchestrator, err := connect.NewOrchestrator(runtime)
	if err != nil {
		return nil, err
	}
	callbacks, err := connect.NewCallbackRouter(runtime)
	if err != nil {
		return nil, err
	}
	entities, err := connect.NewEntityResolver(runtime)
	if err != nil {
		return nil, err
	}
	selections, err := connect.NewSelectionCompleter(runtime)
	if err != nil {
		return nil, err
	}

	if limiter == nil {
		cfg := runtime.Config()
		limiter = ratelimit.NewFixedWindowLimiter(
			ratelimit.NewMemoryStateStore(),
			cfg.RateLimit.MaxRequests,
			cfg.RateLimit.Window,
		)
	}

	return &Handler{
		runtime:      runtime,
		logger:       runtime.Logger(),
		sessions:     sessions,
		apiKeys:      apiKeys,
		admin:        admin,
		keys:         keys,
		orchestrator: orchestrator,
		callbacks:    callbacks,
		entities:     entities,
		selections:   selections,
		limiter:      limiter,
	}, nil
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)

	// The callback lands from the upstream provider's browser redirect; it
	// carries its own ephemeral tokens instead of a session.
	r.Get("/connect/callback", h.handleCallback)

	r.Group(func(cr chi.Router) {
		cr.Use(h.authenticate)
		cr.Get("/connect/{platform}", h.handleConnectURL)
		cr.Get("/connect/entities", h.handleListEntities)
		cr.Post("/connect/select-entity", h.handleSelectEntity)
	})

	r.Group(func(kr chi.Router) {
		kr.Use(h.requireSession)
		kr.Post("/api-keys", h.handleGenerateKey)
		kr.Delete("/api-keys", h.handleRevokeKey)
	})

	r.Group(func(ar chi.Router) {
		ar.Use(h.requireAdmin)
		ar.Patch("/admin/tenants/{id}", h.handleAdminUpdateTenant)
		ar.Delete("/admin/tenants/{id}", h.handleAdminDeleteTenant)
	})

	return r
}

// authenticate admits connect routes on either credential. A bearer header
// selects the API-key path and passes through the rate limiter; everything
// else resolves the browser session.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimSpace(r.Header.Get("Authorization")) != "" {
			authz, err := h.apiKeys.Resolve(r.Context(), r)
			if err != nil {
				writeError(w, r, err)
				return
			}
			decision, err := h.limiter.Check(r.Context(), authz.Tenant.ID)
			if err != nil {
				writeError(w, r, err)
				return
			}
			if !decision.Allowed {
				writeError(w, r, decision.LimitedError(authz.Tenant.ID))
				return
			}
			next.ServeHTTP(w, r.WithContext(withAuthorized(r.Context(), authz)))
			return
		}

		authz, err := h.sessions.Resolve(r.Context(), r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withAuthorized(r.Context(), authz)))
	})
}

func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz, err := h.sessions.Resolve(r.Context(), r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withAuthorized(r.Context(), authz)))
	})
}

// requireAdmin guards the admin surface. Browser navigations that fail the
// check bounce back to the accounts screen; API clients get the JSON envelope.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant, err := h.admin.Authorize(r.Context(), r)
		if err != nil {
			if prefersHTML(r) {
				http.Redirect(w, r, h.runtime.Config().AccountsURL, http.StatusFound)
				return
			}
			writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), adminTenantKey, tenant)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func prefersHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func withAuthorized(ctx context.Context, authz core.AuthorizedContext) context.Context {
	return context.WithValue(ctx, authorizedContextKey, authz)
}

func authorizedFromContext(ctx context.Context) (core.AuthorizedContext, bool) {
	authz, ok := ctx.Value(authorizedContextKey).(core.AuthorizedContext)
	return authz, ok
}

func adminFromContext(ctx context.Context) (core.Tenant, bool) {
	tenant, ok := ctx.Value(adminTenantKey).(core.Tenant)
	return tenant, ok
}
