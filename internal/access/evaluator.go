// Package access holds the closed permission catalog, the static
// role-permission table, and the evaluator that decides whether an actor's
// role covers a required permission. Evaluation is pure: no I/O, no side
// effects, and an unknown role simply has no grants.
package access

// Evaluator answers permission checks against an immutable role-permission
// map. Construct one at startup and inject it wherever requests are handled;
// tests can substitute alternate grant tables the same way.
type Evaluator struct {
	grants map[Role][]Permission
}

// NewEvaluator copies the given grant table into an immutable evaluator.
func NewEvaluator(grants map[Role][]Permission) *Evaluator {
	copied := make(map[Role][]Permission, len(grants))
	for role, perms := range grants {
		list := make([]Permission, len(perms))
		copy(list, perms)
		copied[role] = list
	}
	return &Evaluator{grants: copied}
}

// NewDefaultEvaluator returns an evaluator over DefaultGrants.
func NewDefaultEvaluator() *Evaluator {
	return NewEvaluator(DefaultGrants())
}

// HasPermission reports whether the role's grants cover the required
// permission. An unknown role yields an empty grant set and denial.
func (e *Evaluator) HasPermission(role Role, required Permission) bool {
	for _, granted := range e.grants[role] {
		if granted.Grants(required) {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether at least one of the required permissions
// is covered.
func (e *Evaluator) HasAnyPermission(role Role, required []Permission) bool {
	for _, p := range required {
		if e.HasPermission(role, p) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every required permission is covered.
// An empty requirement list is trivially satisfied.
func (e *Evaluator) HasAllPermissions(role Role, required []Permission) bool {
	for _, p := range required {
		if !e.HasPermission(role, p) {
			return false
		}
	}
	return true
}

// PermissionsForRole returns a copy of the role's granted set. Callers must
// treat the result as read-only data; mutating it has no effect on evaluation.
func (e *Evaluator) PermissionsForRole(role Role) []Permission {
	perms := e.grants[role]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}
