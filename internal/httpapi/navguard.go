package httpapi

import (
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"caringcompass.org/internal/access"
	"caringcompass.org/internal/auth"
	"caringcompass.org/internal/obs"
)

const (
	sessionCookie    = "cc_access_token"
	loginPath        = "/login"
	unauthorizedPath = "/unauthorized"
	redirectParam    = "redirect"
)

// RouteRule protects one page pattern. A pattern is an exact path, or a path
// with [param] (one segment) and [...param] (rest of the path) wildcards.
// Roles and Permissions both apply when both are set; RequireAll switches the
// permission check from any-of to all-of.
type RouteRule struct {
	Pattern     string
	Roles       []access.Role
	Permissions []access.Permission
	RequireAll  bool
}

type compiledRule struct {
	rule  RouteRule
	exact string
	re    *regexp.Regexp
}

var wildcardSegment = regexp.MustCompile(`^\[(\.\.\.)?[A-Za-z0-9_]+\]$`)

func compileRule(rule RouteRule) compiledRule {
	if !strings.Contains(rule.Pattern, "[") {
		return compiledRule{rule: rule, exact: rule.Pattern}
	}
	var b strings.Builder
	b.WriteString("^")
	for _, segment := range strings.Split(strings.Trim(rule.Pattern, "/"), "/") {
		b.WriteString("/")
		switch {
		case wildcardSegment.MatchString(segment) && strings.HasPrefix(segment, "[..."):
			b.WriteString(".+")
		case wildcardSegment.MatchString(segment):
			b.WriteString("[^/]+")
		default:
			b.WriteString(regexp.QuoteMeta(segment))
		}
	}
	b.WriteString("$")
	return compiledRule{rule: rule, re: regexp.MustCompile(b.String())}
}

// NavGuard enforces the route table on page navigation. Unauthenticated
// visitors are sent to the login page with the destination preserved;
// authenticated visitors lacking the required rights are sent to the
// unauthorized page.
type NavGuard struct {
	svc       *auth.Service
	evaluator *access.Evaluator
	rules     []compiledRule
}

// NewNavGuard compiles the route table. Rules are consulted by exact match
// first, then in declaration order, so more specific patterns belong before
// broader ones.
func NewNavGuard(svc *auth.Service, evaluator *access.Evaluator, rules []RouteRule) *NavGuard {
	g := &NavGuard{svc: svc, evaluator: evaluator}
	for _, rule := range rules {
		g.rules = append(g.rules, compileRule(rule))
	}
	return g
}

// DefaultRoutes is the protected page table for the care platform.
func DefaultRoutes() []RouteRule {
	staff := []access.Role{access.RoleAdmin, access.RoleCoordinator}
	return []RouteRule{
		{Pattern: "/admin/[...rest]", Roles: []access.Role{access.RoleAdmin}},
		{Pattern: "/admin", Roles: []access.Role{access.RoleAdmin}},
		{Pattern: "/reports", Permissions: []access.Permission{
			{Resource: access.ResourceReport, Action: access.ActionRead},
		}},
		{Pattern: "/clients/[id]/billing", Roles: staff, Permissions: []access.Permission{
			{Resource: access.ResourceInvoice, Action: access.ActionRead},
			{Resource: access.ResourcePayment, Action: access.ActionRead},
		}, RequireAll: true},
		{Pattern: "/clients/[id]", Permissions: []access.Permission{
			{Resource: access.ResourceClient, Action: access.ActionRead},
		}},
		{Pattern: "/clients", Permissions: []access.Permission{
			{Resource: access.ResourceClient, Action: access.ActionRead, Scope: access.ScopeAll},
		}},
		{Pattern: "/caregivers/[id]", Permissions: []access.Permission{
			{Resource: access.ResourceCaregiver, Action: access.ActionRead},
		}},
		{Pattern: "/caregivers", Roles: staff},
		{Pattern: "/schedule", Permissions: []access.Permission{
			{Resource: access.ResourceSchedule, Action: access.ActionRead},
		}},
		{Pattern: "/visits/[id]", Permissions: []access.Permission{
			{Resource: access.ResourceVisit, Action: access.ActionRead},
		}},
		{Pattern: "/messages/[...thread]", Permissions: []access.Permission{
			{Resource: access.ResourceMessage, Action: access.ActionRead},
		}},
		{Pattern: "/dashboard"},
		{Pattern: "/settings"},
	}
}

// Guard wraps next, enforcing the route table on matching paths. Paths not in
// the table pass through untouched.
func (g *NavGuard) Guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rule, ok := g.match(r.URL.Path)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		token := tokenFromRequest(r)
		if token == "" {
			obs.CountAuthDecision("nav", "unauthenticated")
			redirectToLogin(w, r)
			return
		}
		actor, err := g.svc.ActorFromToken(r.Context(), token)
		if err != nil {
			obs.CountAuthDecision("nav", "unauthenticated")
			redirectToLogin(w, r)
			return
		}

		if !g.authorized(actor, rule) {
			obs.CountAuthDecision("nav", "denied")
			http.Redirect(w, r, unauthorizedPath, http.StatusSeeOther)
			return
		}

		obs.CountAuthDecision("nav", "allowed")
		next.ServeHTTP(w, r.WithContext(auth.ContextWithActor(r.Context(), actor)))
	})
}

// match resolves the rule for a path: exact match first, then pattern match
// in declaration order.
func (g *NavGuard) match(path string) (RouteRule, bool) {
	for _, c := range g.rules {
		if c.re == nil && c.exact == path {
			return c.rule, true
		}
	}
	for _, c := range g.rules {
		if c.re != nil && c.re.MatchString(path) {
			return c.rule, true
		}
	}
	return RouteRule{}, false
}

func (g *NavGuard) authorized(actor auth.Actor, rule RouteRule) bool {
	if len(rule.Roles) > 0 {
		found := false
		for _, role := range rule.Roles {
			if actor.Role == role {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(rule.Permissions) > 0 {
		if rule.RequireAll {
			return g.evaluator.HasAllPermissions(actor.Role, rule.Permissions)
		}
		return g.evaluator.HasAnyPermission(actor.Role, rule.Permissions)
	}
	return true
}

// tokenFromRequest prefers the session cookie and falls back to the
// Authorization header, so both browser navigation and tooling work.
func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if token, err := extractBearerToken(r.Header.Get(authHeader)); err == nil {
		return token
	}
	return ""
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	destination := r.URL.Path
	if r.URL.RawQuery != "" {
		destination += "?" + r.URL.RawQuery
	}
	target := loginPath + "?" + redirectParam + "=" + url.QueryEscape(destination)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func setSessionCookie(w http.ResponseWriter, session *auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session.AccessToken,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}
