package models

import (
	"time"

	"github.com/diewo77/pipoca/gate"
)

// Profile is a permission group assigned to users.
// A user is assigned to at most one profile, inheriting all its permissions.
type Profile struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description string    `gorm:"size:500" json:"description,omitempty"`
	// IsSystem marks seeded profiles that admins cannot delete.
	IsSystem    bool         `gorm:"default:false" json:"is_system"`
	Permissions []Permission `gorm:"many2many:profile_permissions;" json:"permissions,omitempty"`
}

// GatePermissions converts the stored permissions for the gate package.
func (p *Profile) GatePermissions() []gate.Permission {
	if p == nil {
		return nil
	}
	out := make([]gate.Permission, len(p.Permissions))
	for i, perm := range p.Permissions {
		out[i] = perm.Gate()
	}
	return out
}

// Permission is a single action allowed on a resource type.
type Permission struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	ResourceType string `gorm:"size:50;not null;uniqueIndex:idx_perm_resource_action" json:"resource_type"`
	Action       string `gorm:"size:50;not null;uniqueIndex:idx_perm_resource_action" json:"action"`
	Description  string `gorm:"size:200" json:"description,omitempty"`
}

// Code returns the permission in "resource:action" format.
func (p Permission) Code() string {
	return p.ResourceType + ":" + p.Action
}

func (p Permission) Gate() gate.Permission {
	return gate.Permission(p.Code())
}
