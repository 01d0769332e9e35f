package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"caringcompass.org/internal/access"
	"caringcompass.org/internal/auth"
	"caringcompass.org/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// withAuth resolves the bearer token to an actor and attaches it to the
// request context. Missing or bad credentials are 401; a valid credential on
// a disabled account is 403.
func (a *API) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next(w, r)
			return
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			obs.CountAuthDecision("api", "unauthenticated")
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		actor, err := a.svc.ActorFromToken(r.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrAccountDisabled):
				obs.CountAuthDecision("api", "disabled")
				writeAuthError(w, r, err)
			case errors.Is(err, auth.ErrTokenInvalid), errors.Is(err, auth.ErrTokenExpired):
				obs.CountAuthDecision("api", "unauthenticated")
				writeAuthError(w, r, err)
			default:
				writeError(w, r, http.StatusInternalServerError, "authentication error")
			}
			return
		}

		obs.CountAuthDecision("api", "allowed")
		ctx := auth.ContextWithActor(r.Context(), actor)
		ctx = auth.ContextWithToken(ctx, token)
		next(w, r.WithContext(ctx))
	}
}

// requirePermission enforces a permission for the context actor: no actor is
// 401, an actor lacking the permission is 403. The caller stops on a non-nil
// return; the response has already been written.
func (a *API) requirePermission(w http.ResponseWriter, r *http.Request, required access.Permission) error {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		obs.CountAuthDecision("api", "unauthenticated")
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return auth.ErrTokenInvalid
	}
	if !a.evaluator.HasPermission(actor.Role, required) {
		obs.CountAuthDecision("api", "denied")
		writeAuthError(w, r, auth.ErrPermissionDenied)
		return auth.ErrPermissionDenied
	}
	return nil
}

// requireRole is the coarse variant for endpoints gated on role rather than a
// single permission.
func (a *API) requireRole(w http.ResponseWriter, r *http.Request, roles ...access.Role) error {
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		obs.CountAuthDecision("api", "unauthenticated")
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return auth.ErrTokenInvalid
	}
	for _, role := range roles {
		if actor.Role == role {
			return nil
		}
	}
	obs.CountAuthDecision("api", "denied")
	writeAuthError(w, r, auth.ErrPermissionDenied)
	return auth.ErrPermissionDenied
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
