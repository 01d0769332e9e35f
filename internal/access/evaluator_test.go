package access

import "testing"

func TestCaregiverClientScopes(t *testing.T) {
	ev := NewDefaultEvaluator()

	assigned := Permission{Resource: ResourceClient, Action: ActionRead, Scope: ScopeAssigned}
	if !ev.HasPermission(RoleCaregiver, assigned) {
		t.Fatalf("caregiver should read assigned clients")
	}

	all := Permission{Resource: ResourceClient, Action: ActionRead, Scope: ScopeAll}
	if ev.HasPermission(RoleCaregiver, all) {
		t.Fatalf("caregiver must not read all clients")
	}
}

func TestUnknownRoleDeniesEverything(t *testing.T) {
	ev := NewDefaultEvaluator()
	for _, p := range ev.PermissionsForRole(RoleAdmin) {
		if ev.HasPermission(Role("INTERN"), p) {
			t.Fatalf("unknown role was granted %v", p)
		}
	}
	if got := ev.PermissionsForRole(Role("INTERN")); len(got) != 0 {
		t.Fatalf("expected empty grant set, got %v", got)
	}
}

func TestNonGrantedPermissionsDenied(t *testing.T) {
	ev := NewDefaultEvaluator()
	// Permissions absent from each role's granted set must be denied.
	cases := []struct {
		role Role
		perm Permission
	}{
		{RoleClient, Permission{Resource: ResourceCaregiver, Action: ActionCreate, Scope: ScopeAll}},
		{RoleFamily, Permission{Resource: ResourceDocument, Action: ActionCreate}},
		{RoleCaregiver, Permission{Resource: ResourceInvoice, Action: ActionRead}},
		{RoleCoordinator, Permission{Resource: ResourceAdmin, Action: ActionUpdate, Scope: ScopeAll}},
	}
	for _, tc := range cases {
		if ev.HasPermission(tc.role, tc.perm) {
			t.Errorf("%s unexpectedly granted %v", tc.role, tc.perm)
		}
	}
}

func TestAdminSatisfiesAnyRequiredScope(t *testing.T) {
	ev := NewDefaultEvaluator()
	for _, required := range []Scope{ScopeNone, ScopeOwn, ScopeAssigned, ScopeAll} {
		p := Permission{Resource: ResourceVisit, Action: ActionDelete, Scope: required}
		if !ev.HasPermission(RoleAdmin, p) {
			t.Errorf("admin denied %v", p)
		}
	}
}

func TestAnyAndAllComposition(t *testing.T) {
	ev := NewDefaultEvaluator()

	granted := Permission{Resource: ResourceVisit, Action: ActionRead, Scope: ScopeAssigned}
	denied := Permission{Resource: ResourceVisit, Action: ActionDelete}

	if !ev.HasAnyPermission(RoleCaregiver, []Permission{denied, granted}) {
		t.Fatalf("HasAnyPermission should hold when one permission is granted")
	}
	if ev.HasAllPermissions(RoleCaregiver, []Permission{denied, granted}) {
		t.Fatalf("HasAllPermissions must fail when one permission is denied")
	}
	if !ev.HasAllPermissions(RoleCaregiver, []Permission{granted}) {
		t.Fatalf("HasAllPermissions should hold for a fully granted list")
	}
	if ev.HasAnyPermission(RoleCaregiver, nil) {
		t.Fatalf("HasAnyPermission over an empty list must be false")
	}
	if !ev.HasAllPermissions(RoleCaregiver, nil) {
		t.Fatalf("HasAllPermissions over an empty list must be true")
	}
}

// HasAllPermissions must agree with conjunction over HasPermission, and
// HasAnyPermission with disjunction, for every role against a sample of the
// full catalog.
func TestCompositionAgreesWithPointwiseChecks(t *testing.T) {
	ev := NewDefaultEvaluator()
	sample := []Permission{
		{Resource: ResourceUser, Action: ActionRead, Scope: ScopeOwn},
		{Resource: ResourceClient, Action: ActionRead, Scope: ScopeAssigned},
		{Resource: ResourceSchedule, Action: ActionDelete, Scope: ScopeAll},
		{Resource: ResourceReport, Action: ActionRead},
	}
	for _, role := range Roles() {
		all, any := true, false
		for _, p := range sample {
			ok := ev.HasPermission(role, p)
			all = all && ok
			any = any || ok
		}
		if got := ev.HasAllPermissions(role, sample); got != all {
			t.Errorf("%s: HasAllPermissions=%v, conjunction=%v", role, got, all)
		}
		if got := ev.HasAnyPermission(role, sample); got != any {
			t.Errorf("%s: HasAnyPermission=%v, disjunction=%v", role, got, any)
		}
	}
}

func TestEveryRoleHasGrantEntry(t *testing.T) {
	grants := DefaultGrants()
	for _, role := range Roles() {
		if _, ok := grants[role]; !ok {
			t.Errorf("role %s has no grant entry", role)
		}
	}
}

func TestPermissionsForRoleReturnsCopy(t *testing.T) {
	ev := NewDefaultEvaluator()
	perms := ev.PermissionsForRole(RoleFamily)
	if len(perms) == 0 {
		t.Fatalf("family should have grants")
	}
	perms[0] = Permission{Resource: ResourceAdmin, Action: ActionCreate, Scope: ScopeAll}
	if ev.HasPermission(RoleFamily, Permission{Resource: ResourceAdmin, Action: ActionCreate, Scope: ScopeAll}) {
		t.Fatalf("mutating the returned slice leaked into the evaluator")
	}
}
