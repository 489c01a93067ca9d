package gate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/diewo77/pipoca/gate"
)

type ownedRecord struct {
	OwnerID uint
}

var selfPolicy = gate.PolicyFunc[uint](func(_ context.Context, userID uint, _ gate.Action, resource any) bool {
	r, ok := resource.(*ownedRecord)
	return ok && r.OwnerID == userID
})

func TestHybridGate_ProfileOnly(t *testing.T) {
	resolver := gate.NewStaticResolver[uint]()
	resolver.Set(1, gate.NewStaticProfile(1, "staff",
		gate.NewPermission("address", gate.ActionCreate),
		gate.NewPermission("address", gate.ActionView),
	))

	g := gate.NewHybridGate[uint](resolver)
	ctx := context.Background()

	if !g.Can(ctx, 1, gate.ActionCreate, "address", nil) {
		t.Error("user with permission should be allowed")
	}
	if g.Can(ctx, 1, gate.ActionDelete, "address", nil) {
		t.Error("user without permission should be denied")
	}
	if err := g.Authorize(ctx, 2, gate.ActionView, "address", nil); !errors.Is(err, gate.ErrForbidden) {
		t.Errorf("user without profile should be forbidden, got %v", err)
	}
	if err := g.Authorize(ctx, 0, gate.ActionView, "address", nil); !errors.Is(err, gate.ErrUnauthorized) {
		t.Errorf("zero user should be unauthorized, got %v", err)
	}
}

func TestHybridGate_RestrictingPolicy(t *testing.T) {
	resolver := gate.NewStaticResolver[uint]()
	profile := gate.NewStaticProfile(1, "member", gate.NewPermission("account", gate.ActionUpdate))
	resolver.Set(1, profile)
	resolver.Set(2, profile)

	g := gate.NewHybridGate[uint](resolver)
	g.Register("account", selfPolicy)

	record := &ownedRecord{OwnerID: 1}
	if !g.Can(context.Background(), 1, gate.ActionUpdate, "account", record) {
		t.Error("owner should be allowed")
	}
	if g.Can(context.Background(), 2, gate.ActionUpdate, "account", record) {
		t.Error("non-owner should be denied even with profile permission")
	}
}

func TestHybridGate_GrantPolicy(t *testing.T) {
	resolver := gate.NewStaticResolver[uint]()
	g := gate.NewHybridGate[uint](resolver)
	g.Grant("account", selfPolicy)

	record := &ownedRecord{OwnerID: 7}
	if !g.Can(context.Background(), 7, gate.ActionView, "account", record) {
		t.Error("grant policy should allow the owner without a profile")
	}
	if g.Can(context.Background(), 8, gate.ActionView, "account", record) {
		t.Error("grant policy should not allow other users")
	}
	if g.Can(context.Background(), 7, gate.ActionList, "account", nil) {
		t.Error("grant policy does not apply without a concrete resource")
	}
}

func TestHybridGate_CanProfileAndHasPermission(t *testing.T) {
	resolver := gate.NewStaticResolver[uint]()
	resolver.Set(1, gate.NewStaticProfile(1, "staff", gate.NewPermission("account", gate.ActionView)))
	resolver.Set(9, gate.NewStaticProfile(0, "superuser", gate.PermissionSuperAdmin))

	g := gate.NewHybridGate[uint](resolver)
	g.Register("account", selfPolicy)
	ctx := context.Background()

	if !g.CanProfile(ctx, 1, gate.ActionView, "account") {
		t.Error("CanProfile should return true for user with permission")
	}
	if g.CanProfile(ctx, 1, gate.ActionDelete, "account") {
		t.Error("CanProfile should return false for missing permission")
	}
	if g.HasPermission(ctx, 1, gate.PermissionSuperAdmin) {
		t.Error("staff profile must not satisfy *:*")
	}
	if !g.HasPermission(ctx, 9, gate.PermissionSuperAdmin) {
		t.Error("superuser profile should satisfy *:*")
	}
}
