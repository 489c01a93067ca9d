// Package gate is a small permission library: profiles grant "resource:action"
// permissions, and per-resource policies refine the decision for a concrete
// record. It has no dependency on the account models; the application supplies
// a ProfileResolver that knows how to turn a user into a Profile.
package gate

import "context"

// HybridGate combines profile permissions with resource policies.
// Authorization flow:
//  1. Zero user → ErrUnauthorized.
//  2. A grant policy for the resource type that accepts the concrete resource
//     allows access without a profile permission (e.g. a user reading their own account).
//  3. Otherwise the profile must hold resource:action, and a restricting policy,
//     if registered, must accept the resource.
type HybridGate[U comparable] struct {
	resolver ProfileResolver[U]
	policies map[string]Policy[U]
	grants   map[string]Policy[U]
}

// NewHybridGate creates a hybrid gate with the given profile resolver.
func NewHybridGate[U comparable](resolver ProfileResolver[U]) *HybridGate[U] {
	return &HybridGate[U]{
		resolver: resolver,
		policies: make(map[string]Policy[U]),
		grants:   make(map[string]Policy[U]),
	}
}

// Register adds a restricting policy for a resource type.
func (g *HybridGate[U]) Register(resourceType string, p Policy[U]) {
	g.policies[resourceType] = p
}

// Grant adds a policy that allows access to a concrete resource on its own.
func (g *HybridGate[U]) Grant(resourceType string, p Policy[U]) {
	g.grants[resourceType] = p
}

func (g *HybridGate[U]) Authorize(ctx context.Context, user U, action Action, resourceType string, resource any) error {
	var zero U
	if user == zero {
		return ErrUnauthorized
	}

	if resource != nil {
		if grant, ok := g.grants[resourceType]; ok && grant.Can(ctx, user, action, resource) {
			return nil
		}
	}

	profile, err := g.resolver.Resolve(ctx, user)
	if err != nil || profile == nil {
		return ErrForbidden
	}
	if !profile.HasPermission(NewPermission(resourceType, action)) {
		return ErrForbidden
	}

	if resource != nil {
		if policy, ok := g.policies[resourceType]; ok && !policy.Can(ctx, user, action, resource) {
			return ErrForbidden
		}
	}
	return nil
}

// Can is a convenience wrapper returning bool instead of error.
func (g *HybridGate[U]) Can(ctx context.Context, user U, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, user, action, resourceType, resource) == nil
}

// CanProfile checks only the profile permission, ignoring policies.
func (g *HybridGate[U]) CanProfile(ctx context.Context, user U, action Action, resourceType string) bool {
	var zero U
	if user == zero {
		return false
	}
	profile, err := g.resolver.Resolve(ctx, user)
	if err != nil || profile == nil {
		return false
	}
	return profile.HasPermission(NewPermission(resourceType, action))
}

// HasPermission resolves the user's profile and checks a raw permission,
// including wildcards such as PermissionSuperAdmin.
func (g *HybridGate[U]) HasPermission(ctx context.Context, user U, perm Permission) bool {
	var zero U
	if user == zero {
		return false
	}
	profile, err := g.resolver.Resolve(ctx, user)
	if err != nil || profile == nil {
		return false
	}
	return profile.HasPermission(perm)
}
