package access

import (
	"fmt"
	"strings"
)

// Scope narrows a permission grant to the actor's own resources, resources
// assigned to the actor, or all resources. The zero value ScopeNone is only
// meaningful on the required side of a check, where it means "any scope
// satisfies".
type Scope int

const (
	ScopeNone Scope = iota
	ScopeOwn
	ScopeAssigned
	ScopeAll
)

var scopeNames = map[Scope]string{
	ScopeNone:     "",
	ScopeOwn:      "own",
	ScopeAssigned: "assigned",
	ScopeAll:      "all",
}

func (s Scope) String() string { return scopeNames[s] }

// ParseScope converts a wire value into a Scope. The empty string parses to
// ScopeNone.
func ParseScope(raw string) (Scope, error) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "":
		return ScopeNone, nil
	case "own":
		return ScopeOwn, nil
	case "assigned":
		return ScopeAssigned, nil
	case "all":
		return ScopeAll, nil
	default:
		return ScopeNone, fmt.Errorf("unknown scope %q", raw)
	}
}

// Satisfies reports whether a grant of scope s covers a requirement of scope
// required. Scopes form the total order own < assigned < all, and a broader
// grant subsumes every narrower requirement. The reverse never holds: a grant
// of own does not satisfy a requirement of assigned or all.
func (s Scope) Satisfies(required Scope) bool {
	if required == ScopeNone {
		return s != ScopeNone
	}
	return s >= required
}
