package gate

import "strings"

// Permission represents an allowed action on a resource type.
// Format: "resource:action" (e.g., "account:update", "address:create")
type Permission string

// NewPermission creates a permission from resource type and action.
func NewPermission(resourceType string, action Action) Permission {
	return Permission(resourceType + ":" + string(action))
}

// Parse splits a permission into resource type and action.
func (p Permission) Parse() (resourceType string, action Action) {
	parts := strings.SplitN(string(p), ":", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], Action(parts[1])
}

// Wildcards for super permissions
const (
	WildcardAll                     = "*"
	PermissionSuperAdmin Permission = "*:*"
)

// Matches checks if this permission covers a requested permission.
// "*:*" matches all, "account:*" matches every account action.
func (p Permission) Matches(requested Permission) bool {
	if p == PermissionSuperAdmin {
		return true
	}
	if p == requested {
		return true
	}
	res, act := p.Parse()
	reqRes, _ := requested.Parse()
	return res != "" && res == reqRes && string(act) == WildcardAll
}

// ResourceWildcard returns "resource:*".
func ResourceWildcard(resourceType string) Permission {
	return Permission(resourceType + ":" + WildcardAll)
}

// HasAll reports whether every requested permission is covered by granted.
// An empty request is always satisfied.
func HasAll(granted []Permission, requested ...Permission) bool {
	for _, req := range requested {
		covered := false
		for _, g := range granted {
			if g.Matches(req) {
				covered = true
				break
			}
		}
		if !covered {
			return false
		}
	}
	return true
}
