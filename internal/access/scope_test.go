package access

import "testing"

func TestScopeSatisfiesOrdering(t *testing.T) {
	cases := []struct {
		granted  Scope
		required Scope
		want     bool
	}{
		{ScopeAll, ScopeAll, true},
		{ScopeAll, ScopeAssigned, true},
		{ScopeAll, ScopeOwn, true},
		{ScopeAll, ScopeNone, true},

		{ScopeAssigned, ScopeAssigned, true},
		{ScopeAssigned, ScopeOwn, true},
		{ScopeAssigned, ScopeNone, true},
		{ScopeAssigned, ScopeAll, false},

		{ScopeOwn, ScopeOwn, true},
		{ScopeOwn, ScopeNone, true},
		{ScopeOwn, ScopeAssigned, false},
		{ScopeOwn, ScopeAll, false},

		{ScopeNone, ScopeOwn, false},
		{ScopeNone, ScopeAll, false},
	}
	for _, tc := range cases {
		if got := tc.granted.Satisfies(tc.required); got != tc.want {
			t.Errorf("granted %q vs required %q: got %v, want %v", tc.granted, tc.required, got, tc.want)
		}
	}
}

// A narrower grant must never satisfy a broader requirement, for every pair in
// the hierarchy. This asymmetry is the core security invariant.
func TestScopeAsymmetry(t *testing.T) {
	ordered := []Scope{ScopeOwn, ScopeAssigned, ScopeAll}
	for i, narrow := range ordered {
		for _, broad := range ordered[i+1:] {
			if narrow.Satisfies(broad) {
				t.Errorf("scope %q must not satisfy %q", narrow, broad)
			}
			if !broad.Satisfies(narrow) {
				t.Errorf("scope %q must satisfy %q", broad, narrow)
			}
		}
	}
}

func TestParseScope(t *testing.T) {
	for _, raw := range []string{"own", "Assigned", " ALL ", ""} {
		if _, err := ParseScope(raw); err != nil {
			t.Errorf("ParseScope(%q): %v", raw, err)
		}
	}
	if _, err := ParseScope("global"); err == nil {
		t.Errorf("expected error for unknown scope")
	}
}
