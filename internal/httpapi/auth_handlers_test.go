package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"caringcompass.org/internal/access"
	"caringcompass.org/internal/audit"
	"caringcompass.org/internal/auth"
	"caringcompass.org/internal/identity"
)

func newTestAPI(t *testing.T) (*API, http.Handler) {
	t.Helper()
	provider, err := identity.NewProvider(
		identity.NewMemoryAccounts(),
		identity.NewMemoryTokens(),
		nil,
		[]byte("test-signing-key"),
	)
	if err != nil {
		t.Fatalf("NewProvider = %v", err)
	}
	store := auth.NewMemoryStore()
	svc := auth.NewService(provider, store, store, auth.NewMemoryInviteStore(), audit.NewRecorder(nil))
	api := New(svc, access.NewDefaultEvaluator(), ReadyProbe{}, "test")
	return api, api.Handler()
}

func postJSON(t *testing.T, handler http.Handler, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return doJSON(t, handler, http.MethodPost, path, token, body)
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func signUpAndIn(t *testing.T, handler http.Handler, email string, role access.Role) auth.Session {
	t.Helper()
	rec := postJSON(t, handler, "/v1/auth/signup", "", map[string]any{
		"email":      email,
		"password":   "Sup3r-secret!",
		"first_name": "Test",
		"last_name":  "Person",
		"role":       string(role),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d body=%s", rec.Code, rec.Body.String())
	}
	rec = postJSON(t, handler, "/v1/auth/signin", "", map[string]any{
		"email":    email,
		"password": "Sup3r-secret!",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("signin status = %d body=%s", rec.Code, rec.Body.String())
	}
	var session auth.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return session
}

func TestSignUpSignInMe(t *testing.T) {
	_, handler := newTestAPI(t)
	session := signUpAndIn(t, handler, "user@example.com", access.RoleCaregiver)

	rec := doJSON(t, handler, http.MethodGet, "/v1/auth/me", session.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d body=%s", rec.Code, rec.Body.String())
	}
	var me struct {
		Actor       auth.Actor          `json:"actor"`
		Permissions []access.Permission `json:"permissions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.Actor.Email != "user@example.com" {
		t.Errorf("me email = %q", me.Actor.Email)
	}
	if len(me.Permissions) == 0 {
		t.Error("caregiver permissions missing from /me")
	}
}

func TestSignInSetsSessionCookie(t *testing.T) {
	_, handler := newTestAPI(t)
	signUpAndIn(t, handler, "user@example.com", access.RoleClient)

	rec := postJSON(t, handler, "/v1/auth/signin", "", map[string]any{
		"email":    "user@example.com",
		"password": "Sup3r-secret!",
	})
	var found bool
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == sessionCookie && cookie.Value != "" && cookie.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Error("signin must set the session cookie")
	}
}

func TestSignInBadCredentials(t *testing.T) {
	_, handler := newTestAPI(t)
	signUpAndIn(t, handler, "user@example.com", access.RoleClient)

	rec := postJSON(t, handler, "/v1/auth/signin", "", map[string]any{
		"email":    "user@example.com",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var body struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Code != string(auth.CodeInvalidCredentials) {
		t.Errorf("error code = %q, want INVALID_CREDENTIALS", body.Code)
	}
}

func TestSignUpDuplicateConflict(t *testing.T) {
	_, handler := newTestAPI(t)
	signUpAndIn(t, handler, "user@example.com", access.RoleClient)

	rec := postJSON(t, handler, "/v1/auth/signup", "", map[string]any{
		"email":    "user@example.com",
		"password": "Sup3r-secret!",
		"role":     "CLIENT",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestSignUpWeakPasswordBadRequest(t *testing.T) {
	_, handler := newTestAPI(t)
	rec := postJSON(t, handler, "/v1/auth/signup", "", map[string]any{
		"email":    "weak@example.com",
		"password": "short",
		"role":     "CLIENT",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGuardedEndpointWithoutToken(t *testing.T) {
	_, handler := newTestAPI(t)
	rec := doJSON(t, handler, http.MethodGet, "/v1/auth/me", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestGuardedEndpointGarbageToken(t *testing.T) {
	_, handler := newTestAPI(t)
	rec := doJSON(t, handler, http.MethodGet, "/v1/auth/me", "garbage", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRefreshRoundTrip(t *testing.T) {
	_, handler := newTestAPI(t)
	session := signUpAndIn(t, handler, "user@example.com", access.RoleClient)

	rec := postJSON(t, handler, "/v1/auth/refresh", "", map[string]any{
		"refresh_token": session.RefreshToken,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh status = %d body=%s", rec.Code, rec.Body.String())
	}
	var next auth.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &next); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if next.RefreshToken == session.RefreshToken {
		t.Error("refresh token must rotate")
	}

	rec = postJSON(t, handler, "/v1/auth/refresh", "", map[string]any{
		"refresh_token": session.RefreshToken,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("replayed refresh status = %d, want 401", rec.Code)
	}
}

func TestPasswordResetUniformResponse(t *testing.T) {
	_, handler := newTestAPI(t)
	signUpAndIn(t, handler, "user@example.com", access.RoleClient)

	known := postJSON(t, handler, "/v1/auth/password-reset", "", map[string]any{
		"email": "user@example.com",
	})
	unknown := postJSON(t, handler, "/v1/auth/password-reset", "", map[string]any{
		"email": "nobody@example.com",
	})
	if known.Code != http.StatusAccepted || unknown.Code != http.StatusAccepted {
		t.Fatalf("statuses = %d/%d, want 202/202", known.Code, unknown.Code)
	}
}

func TestInviteRequiresStaffRole(t *testing.T) {
	_, handler := newTestAPI(t)
	client := signUpAndIn(t, handler, "client@example.com", access.RoleClient)

	rec := postJSON(t, handler, "/v1/auth/invites", client.AccessToken, map[string]any{
		"email": "new@example.com",
		"role":  "CAREGIVER",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestInviteListing(t *testing.T) {
	_, handler := newTestAPI(t)
	admin := signUpAndIn(t, handler, "admin@example.com", access.RoleAdmin)

	rec := postJSON(t, handler, "/v1/auth/invites", admin.AccessToken, map[string]any{
		"email": "pending@example.com",
		"role":  "CLIENT",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/v1/auth/invites?email=pending@example.com", admin.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d body=%s", rec.Code, rec.Body.String())
	}
	var listing struct {
		Invites []auth.Invite `json:"invites"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing.Invites) != 1 || listing.Invites[0].Email != "pending@example.com" {
		t.Fatalf("listing = %+v", listing.Invites)
	}

	// Clients hold user:read only at own scope, so the listing is closed to them.
	client := signUpAndIn(t, handler, "client@example.com", access.RoleClient)
	rec = doJSON(t, handler, http.MethodGet, "/v1/auth/invites?email=pending@example.com", client.AccessToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("client list status = %d, want 403", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/v1/auth/invites", admin.AccessToken, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing email status = %d, want 400", rec.Code)
	}
}

func TestInviteFlowOverHTTP(t *testing.T) {
	_, handler := newTestAPI(t)
	admin := signUpAndIn(t, handler, "admin@example.com", access.RoleAdmin)

	rec := postJSON(t, handler, "/v1/auth/invites", admin.AccessToken, map[string]any{
		"email": "new@example.com",
		"role":  "CAREGIVER",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("invite status = %d body=%s", rec.Code, rec.Body.String())
	}
	var invite auth.Invite
	if err := json.Unmarshal(rec.Body.Bytes(), &invite); err != nil {
		t.Fatalf("decode invite: %v", err)
	}

	rec = postJSON(t, handler, "/v1/auth/invites/accept", "", map[string]any{
		"code":       invite.Code,
		"password":   "Sup3r-secret!",
		"first_name": "New",
		"last_name":  "Caregiver",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("accept status = %d body=%s", rec.Code, rec.Body.String())
	}

	// The consumed code is dead.
	rec = postJSON(t, handler, "/v1/auth/invites/accept", "", map[string]any{
		"code":     invite.Code,
		"password": "Sup3r-secret!",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("second accept status = %d, want 400", rec.Code)
	}
}

func TestSignOutClearsCookie(t *testing.T) {
	_, handler := newTestAPI(t)
	session := signUpAndIn(t, handler, "user@example.com", access.RoleClient)

	rec := postJSON(t, handler, "/v1/auth/signout", session.AccessToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("signout status = %d body=%s", rec.Code, rec.Body.String())
	}
	var cleared bool
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == sessionCookie && cookie.Value == "" && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("signout must clear the session cookie")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	_, handler := newTestAPI(t)
	rec := doJSON(t, handler, http.MethodGet, "/v1/auth/signin", "", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != "POST" {
		t.Errorf("Allow = %q, want POST", allow)
	}
}
