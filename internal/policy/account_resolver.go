package policy

import (
	"context"
	"errors"

	"github.com/diewo77/pipoca/gate"
	"github.com/diewo77/pipoca/internal/models"
	"gorm.io/gorm"
)

// superuserProfileName names the implicit profile of active superusers.
const superuserProfileName = "superuser"

// AccountResolver builds a user's profile from the users table.
// It implements gate.ProfileResolver for uint user IDs.
type AccountResolver struct {
	DB *gorm.DB
}

func NewAccountResolver(db *gorm.DB) *AccountResolver {
	return &AccountResolver{DB: db}
}

// Resolve returns nil for unknown, inactive and soft-deleted accounts,
// a "*:*" profile for active superusers and the assigned profile otherwise.
func (r *AccountResolver) Resolve(ctx context.Context, userID uint) (gate.Profile, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Preload("Profile.Permissions").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActiveAccount() {
		return nil, nil
	}
	if user.IsSuperuser {
		return gate.NewStaticProfile(0, superuserProfileName, gate.PermissionSuperAdmin), nil
	}
	if user.Profile == nil {
		return nil, nil
	}
	return &profileAdapter{profile: user.Profile, perms: user.Profile.GatePermissions()}, nil
}

// profileAdapter exposes a stored profile as a gate.Profile.
type profileAdapter struct {
	profile *models.Profile
	perms   []gate.Permission
}

func (a *profileAdapter) ID() uint     { return a.profile.ID }
func (a *profileAdapter) Name() string { return a.profile.Name }

func (a *profileAdapter) HasPermission(perm gate.Permission) bool {
	return gate.HasAll(a.perms, perm)
}

func (a *profileAdapter) Permissions() []gate.Permission {
	out := make([]gate.Permission, len(a.perms))
	copy(out, a.perms)
	return out
}
