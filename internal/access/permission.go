package access

import (
	"fmt"
	"strings"
)

// Action is the operation half of a permission triple.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ParseAction converts a wire value into an Action.
func ParseAction(raw string) (Action, error) {
	switch Action(strings.TrimSpace(strings.ToLower(raw))) {
	case ActionCreate:
		return ActionCreate, nil
	case ActionRead:
		return ActionRead, nil
	case ActionUpdate:
		return ActionUpdate, nil
	case ActionDelete:
		return ActionDelete, nil
	default:
		return "", fmt.Errorf("unknown action %q", raw)
	}
}

// Resources that permissions are checked against. The catalog is closed by
// design: adding a resource means adding a constant here and updating every
// affected role in DefaultGrants, which keeps the full grant surface
// auditable by reading one table.
const (
	ResourceUser      = "user"
	ResourceClient    = "client"
	ResourceCaregiver = "caregiver"
	ResourceVisit     = "visit"
	ResourceSchedule  = "schedule"
	ResourcePlan      = "plan"
	ResourceInvoice   = "invoice"
	ResourcePayment   = "payment"
	ResourceMessage   = "message"
	ResourceDocument  = "document"
	ResourceReport    = "report"
	ResourceAnalytics = "analytics"
	ResourceAdmin     = "admin"
)

// Permission is a (resource, action, scope) triple. On the granted side the
// scope is always set; on the required side ScopeNone means any granted scope
// for the same resource and action is sufficient.
type Permission struct {
	Resource string `json:"resource"`
	Action   Action `json:"action"`
	Scope    Scope  `json:"scope,omitempty"`
}

func (p Permission) String() string {
	if p.Scope == ScopeNone {
		return fmt.Sprintf("%s:%s", p.Resource, p.Action)
	}
	return fmt.Sprintf("%s:%s:%s", p.Resource, p.Action, p.Scope)
}

// Grants reports whether a granted permission p covers the requirement.
func (p Permission) Grants(required Permission) bool {
	return p.Resource == required.Resource &&
		p.Action == required.Action &&
		p.Scope.Satisfies(required.Scope)
}
