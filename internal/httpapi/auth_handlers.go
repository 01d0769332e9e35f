package httpapi

import (
	"net/http"

	"caringcompass.org/internal/access"
	"caringcompass.org/internal/auth"
)

func (a *API) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req auth.Credentials
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	session, err := a.svc.SignIn(r.Context(), req)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	setSessionCookie(w, session)
	writeJSON(w, http.StatusOK, session)
}

func (a *API) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req auth.RegisterCredentials
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	result, err := a.svc.SignUp(r.Context(), req)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (a *API) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	actor, _ := auth.ActorFromContext(r.Context())
	a.svc.SignOut(r.Context(), actor.ID)
	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]any{"status": "signed_out"})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	session, err := a.svc.RefreshSession(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if session == nil {
		clearSessionCookie(w)
		writeAuthError(w, r, auth.ErrTokenInvalid)
		return
	}
	setSessionCookie(w, session)
	writeJSON(w, http.StatusOK, session)
}

func (a *API) handlePasswordReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req auth.PasswordResetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.svc.ResetPassword(r.Context(), req); err != nil {
		writeAuthError(w, r, err)
		return
	}
	// Uniform response regardless of whether the email is registered.
	writeJSON(w, http.StatusAccepted, map[string]any{"status": "reset_email_queued"})
}

func (a *API) handlePasswordUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	actor, _ := auth.ActorFromContext(r.Context())
	var req auth.PasswordUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.svc.UpdatePassword(r.Context(), actor.ID, req); err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "password_updated"})
}

func (a *API) handleEmailUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	actor, _ := auth.ActorFromContext(r.Context())
	var req auth.EmailUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.svc.UpdateEmail(r.Context(), actor.ID, req); err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "email_updated"})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	actor, _ := auth.ActorFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"actor":       actor,
		"permissions": a.evaluator.PermissionsForRole(actor.Role),
	})
}

func (a *API) handleInvites(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.handleInviteCreate(w, r)
	case http.MethodGet:
		a.handleInviteList(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

func (a *API) handleInviteCreate(w http.ResponseWriter, r *http.Request) {
	if err := a.requireRole(w, r, access.RoleAdmin, access.RoleCoordinator); err != nil {
		return
	}
	actor, _ := auth.ActorFromContext(r.Context())
	var req auth.InviteUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	invite, err := a.svc.InviteUser(r.Context(), actor.ID, req)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, invite)
}

func (a *API) handleInviteList(w http.ResponseWriter, r *http.Request) {
	required := access.Permission{Resource: access.ResourceUser, Action: access.ActionRead, Scope: access.ScopeAssigned}
	if err := a.requirePermission(w, r, required); err != nil {
		return
	}
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, r, http.StatusBadRequest, "email query parameter required")
		return
	}
	invites, err := a.svc.PendingInvites(r.Context(), email)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invites": invites})
}

func (a *API) handleInviteAccept(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req auth.AcceptInviteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	result, err := a.svc.AcceptInvite(r.Context(), req)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
