// Package httpapi is the HTTP surface of the care platform: the /v1/auth
// endpoints, the bearer guard for API requests, and the navigation guard for
// browser page loads.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"caringcompass.org/internal/access"
	"caringcompass.org/internal/auth"
	"caringcompass.org/internal/obs"
)

// ReadyProbe reports whether downstream dependencies answer.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	svc        *auth.Service
	evaluator  *access.Evaluator
	nav        *NavGuard
	readyProbe ReadyProbe
	version    string
}

// New wires the routes. The navigation guard runs in front of everything the
// route table claims; API routes go through the bearer guard instead.
func New(svc *auth.Service, evaluator *access.Evaluator, rp ReadyProbe, version string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		svc:        svc,
		evaluator:  evaluator,
		readyProbe: rp,
		version:    version,
	}
	a.nav = NewNavGuard(svc, evaluator, DefaultRoutes())

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// credential and session endpoints
	a.mux.HandleFunc("/v1/auth/signin", a.handleSignIn)
	a.mux.HandleFunc("/v1/auth/signup", a.handleSignUp)
	a.mux.HandleFunc("/v1/auth/signout", a.withAuth(a.handleSignOut))
	a.mux.HandleFunc("/v1/auth/refresh", a.handleRefresh)
	a.mux.HandleFunc("/v1/auth/password-reset", a.handlePasswordReset)
	a.mux.HandleFunc("/v1/auth/password", a.withAuth(a.handlePasswordUpdate))
	a.mux.HandleFunc("/v1/auth/email", a.withAuth(a.handleEmailUpdate))
	a.mux.HandleFunc("/v1/auth/me", a.withAuth(a.handleMe))

	// invites
	a.mux.HandleFunc("/v1/auth/invites", a.withAuth(a.handleInvites))
	a.mux.HandleFunc("/v1/auth/invites/accept", a.handleInviteAccept)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the full middleware chain around the mux.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.nav.Guard(h)
	h = SecurityHeaders(h)
	h = MaxBodyBytes(h, 1<<20)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "care-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "care-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
