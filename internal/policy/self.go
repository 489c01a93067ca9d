package policy

import (
	"context"

	"github.com/diewo77/pipoca/gate"
)

// Ownable is implemented by records that belong to a user.
type Ownable interface {
	GetUserID() uint
}

// SelfPolicy lets a user act on their own account record without a profile
// permission. Only the listed actions are covered.
type SelfPolicy struct {
	actions map[gate.Action]bool
}

// NewSelfPolicy covers view and update when no actions are given.
func NewSelfPolicy(actions ...gate.Action) *SelfPolicy {
	if len(actions) == 0 {
		actions = []gate.Action{gate.ActionView, gate.ActionUpdate}
	}
	p := &SelfPolicy{actions: make(map[gate.Action]bool, len(actions))}
	for _, a := range actions {
		p.actions[a] = true
	}
	return p
}

func (p *SelfPolicy) Can(_ context.Context, userID uint, action gate.Action, resource any) bool {
	if !p.actions[action] {
		return false
	}
	owned, ok := resource.(Ownable)
	if !ok {
		return false
	}
	return owned.GetUserID() == userID
}
