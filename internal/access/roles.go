package access

import "strings"

// Role identifies the coarse position an actor holds on the platform.
type Role string

const (
	RoleAdmin       Role = "ADMIN"
	RoleCoordinator Role = "COORDINATOR"
	RoleCaregiver   Role = "CAREGIVER"
	RoleClient      Role = "CLIENT"
	RoleFamily      Role = "FAMILY"
)

// Roles lists every role the platform knows, in privilege order.
func Roles() []Role {
	return []Role{RoleAdmin, RoleCoordinator, RoleCaregiver, RoleClient, RoleFamily}
}

// ParseRole converts a wire value into a Role.
func ParseRole(raw string) (Role, bool) {
	switch Role(strings.TrimSpace(strings.ToUpper(raw))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleCoordinator:
		return RoleCoordinator, true
	case RoleCaregiver:
		return RoleCaregiver, true
	case RoleClient:
		return RoleClient, true
	case RoleFamily:
		return RoleFamily, true
	default:
		return "", false
	}
}

// IsStaff reports whether the role belongs to agency staff.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleCoordinator
}

func crud(resource string, scope Scope) []Permission {
	return []Permission{
		{Resource: resource, Action: ActionCreate, Scope: scope},
		{Resource: resource, Action: ActionRead, Scope: scope},
		{Resource: resource, Action: ActionUpdate, Scope: scope},
		{Resource: resource, Action: ActionDelete, Scope: scope},
	}
}

func grant(resource string, action Action, scope Scope) Permission {
	return Permission{Resource: resource, Action: action, Scope: scope}
}

// DefaultGrants is the static role-permission table. Every role has exactly
// one entry; evaluation is closed over this map for the process lifetime.
func DefaultGrants() map[Role][]Permission {
	grants := map[Role][]Permission{}

	var admin []Permission
	for _, resource := range []string{
		ResourceUser, ResourceClient, ResourceCaregiver, ResourceVisit,
		ResourceSchedule, ResourcePlan, ResourceInvoice, ResourcePayment,
		ResourceMessage, ResourceDocument,
	} {
		admin = append(admin, crud(resource, ScopeAll)...)
	}
	admin = append(admin,
		grant(ResourceReport, ActionRead, ScopeAll),
		grant(ResourceAnalytics, ActionRead, ScopeAll),
		grant(ResourceAdmin, ActionCreate, ScopeAll),
		grant(ResourceAdmin, ActionUpdate, ScopeAll),
		grant(ResourceAdmin, ActionRead, ScopeAll),
	)
	grants[RoleAdmin] = admin

	grants[RoleCoordinator] = []Permission{
		grant(ResourceUser, ActionRead, ScopeAssigned),
		grant(ResourceUser, ActionUpdate, ScopeAssigned),

		grant(ResourceClient, ActionCreate, ScopeAll),
		grant(ResourceClient, ActionRead, ScopeAll),
		grant(ResourceClient, ActionUpdate, ScopeAll),

		grant(ResourceCaregiver, ActionCreate, ScopeAll),
		grant(ResourceCaregiver, ActionRead, ScopeAll),
		grant(ResourceCaregiver, ActionUpdate, ScopeAll),

		grant(ResourceVisit, ActionCreate, ScopeAll),
		grant(ResourceVisit, ActionRead, ScopeAll),
		grant(ResourceVisit, ActionUpdate, ScopeAll),
		grant(ResourceVisit, ActionDelete, ScopeAll),

		grant(ResourceSchedule, ActionCreate, ScopeAll),
		grant(ResourceSchedule, ActionRead, ScopeAll),
		grant(ResourceSchedule, ActionUpdate, ScopeAll),
		grant(ResourceSchedule, ActionDelete, ScopeAll),

		grant(ResourcePlan, ActionCreate, ScopeAll),
		grant(ResourcePlan, ActionRead, ScopeAll),
		grant(ResourcePlan, ActionUpdate, ScopeAll),

		grant(ResourceInvoice, ActionCreate, ScopeAll),
		grant(ResourceInvoice, ActionRead, ScopeAll),
		grant(ResourceInvoice, ActionUpdate, ScopeAll),

		grant(ResourcePayment, ActionRead, ScopeAll),

		grant(ResourceMessage, ActionCreate, ScopeAll),
		grant(ResourceMessage, ActionRead, ScopeAll),

		grant(ResourceDocument, ActionCreate, ScopeAll),
		grant(ResourceDocument, ActionRead, ScopeAll),
		grant(ResourceDocument, ActionUpdate, ScopeAll),

		grant(ResourceReport, ActionRead, ScopeAll),
		grant(ResourceAnalytics, ActionRead, ScopeAll),
	}

	grants[RoleCaregiver] = []Permission{
		grant(ResourceUser, ActionRead, ScopeOwn),
		grant(ResourceUser, ActionUpdate, ScopeOwn),

		grant(ResourceClient, ActionRead, ScopeAssigned),

		grant(ResourceCaregiver, ActionRead, ScopeOwn),
		grant(ResourceCaregiver, ActionUpdate, ScopeOwn),

		grant(ResourceVisit, ActionRead, ScopeAssigned),
		grant(ResourceVisit, ActionUpdate, ScopeAssigned),

		grant(ResourceSchedule, ActionRead, ScopeOwn),
		grant(ResourceSchedule, ActionUpdate, ScopeOwn),

		grant(ResourcePlan, ActionRead, ScopeAssigned),

		grant(ResourceMessage, ActionCreate, ScopeAssigned),
		grant(ResourceMessage, ActionRead, ScopeAssigned),

		grant(ResourceDocument, ActionCreate, ScopeOwn),
		grant(ResourceDocument, ActionRead, ScopeOwn),
		grant(ResourceDocument, ActionUpdate, ScopeOwn),
	}

	grants[RoleClient] = []Permission{
		grant(ResourceUser, ActionRead, ScopeOwn),
		grant(ResourceUser, ActionUpdate, ScopeOwn),

		grant(ResourceClient, ActionRead, ScopeOwn),
		grant(ResourceClient, ActionUpdate, ScopeOwn),

		grant(ResourceCaregiver, ActionRead, ScopeAssigned),

		grant(ResourceVisit, ActionRead, ScopeOwn),
		grant(ResourceSchedule, ActionRead, ScopeOwn),
		grant(ResourcePlan, ActionRead, ScopeOwn),

		grant(ResourceInvoice, ActionRead, ScopeOwn),
		grant(ResourcePayment, ActionCreate, ScopeOwn),
		grant(ResourcePayment, ActionRead, ScopeOwn),

		grant(ResourceMessage, ActionCreate, ScopeOwn),
		grant(ResourceMessage, ActionRead, ScopeOwn),

		grant(ResourceDocument, ActionCreate, ScopeOwn),
		grant(ResourceDocument, ActionRead, ScopeOwn),
		grant(ResourceDocument, ActionUpdate, ScopeOwn),
	}

	grants[RoleFamily] = []Permission{
		grant(ResourceUser, ActionRead, ScopeOwn),
		grant(ResourceUser, ActionUpdate, ScopeOwn),

		grant(ResourceClient, ActionRead, ScopeAssigned),
		grant(ResourceCaregiver, ActionRead, ScopeAssigned),
		grant(ResourceVisit, ActionRead, ScopeAssigned),
		grant(ResourceSchedule, ActionRead, ScopeAssigned),
		grant(ResourcePlan, ActionRead, ScopeAssigned),

		grant(ResourceInvoice, ActionRead, ScopeAssigned),
		grant(ResourcePayment, ActionRead, ScopeAssigned),

		grant(ResourceMessage, ActionCreate, ScopeAssigned),
		grant(ResourceMessage, ActionRead, ScopeAssigned),

		grant(ResourceDocument, ActionRead, ScopeAssigned),
	}

	return grants
}
