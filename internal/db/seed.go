package db

import (
	"errors"
	"fmt"

	"github.com/diewo77/pipoca/gate"
	"github.com/diewo77/pipoca/internal/models"
	"github.com/diewo77/pipoca/internal/policy"
	"gorm.io/gorm"
)

// DefaultOccupations are created on first seed.
var DefaultOccupations = []string{"Autônomo"}

type profileSeed struct {
	Name        string
	Description string
	Permissions []gate.Permission
}

// systemProfiles are the profiles created by Seed.
var systemProfiles = []profileSeed{
	{
		Name:        "admin",
		Description: "Acesso total ao sistema",
		Permissions: []gate.Permission{gate.PermissionSuperAdmin},
	},
	{
		Name:        "staff",
		Description: "Gerencia contas e tabelas de referência",
		Permissions: []gate.Permission{
			gate.NewPermission(policy.ResourceAccount, gate.ActionList),
			gate.NewPermission(policy.ResourceAccount, gate.ActionView),
			gate.NewPermission(policy.ResourceAccount, gate.ActionUpdate),
			gate.NewPermission(policy.ResourceAccount, gate.ActionEmail),
			gate.ResourceWildcard(policy.ResourceAddress),
			gate.ResourceWildcard(policy.ResourceTelephone),
			gate.ResourceWildcard(policy.ResourceOccupation),
		},
	},
	{
		Name:        "member",
		Description: "Usuário comum",
		Permissions: []gate.Permission{
			gate.NewPermission(policy.ResourceAddress, gate.ActionCreate),
			gate.NewPermission(policy.ResourceAddress, gate.ActionView),
			gate.NewPermission(policy.ResourceTelephone, gate.ActionCreate),
			gate.NewPermission(policy.ResourceTelephone, gate.ActionView),
			gate.NewPermission(policy.ResourceOccupation, gate.ActionList),
			gate.NewPermission(policy.ResourceOccupation, gate.ActionView),
		},
	},
}

// Seed initializes the database with required seed data.
// Should be called after Migrate. Running it twice changes nothing.
func Seed(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := SeedPermissions(tx); err != nil {
			return err
		}
		if err := SeedProfiles(tx); err != nil {
			return err
		}
		return SeedOccupations(tx)
	})
}

// SeedPermissions creates "*:*" plus, for every resource, its wildcard and
// one permission per action.
func SeedPermissions(db *gorm.DB) error {
	perms := []gate.Permission{gate.PermissionSuperAdmin}
	for _, resource := range policy.Resources {
		perms = append(perms, gate.ResourceWildcard(resource))
		for _, action := range gate.Actions {
			perms = append(perms, gate.NewPermission(resource, action))
		}
	}
	for _, p := range perms {
		resource, action := p.Parse()
		row := models.Permission{ResourceType: resource, Action: string(action)}
		if err := db.Where("resource_type = ? AND action = ?", resource, string(action)).
			Attrs(models.Permission{Description: string(p)}).
			FirstOrCreate(&row).Error; err != nil {
			return fmt.Errorf("seed permission %s: %w", p, err)
		}
	}
	return nil
}

// SeedProfiles creates the system profiles and resets their permissions.
func SeedProfiles(db *gorm.DB) error {
	for _, seed := range systemProfiles {
		var profile models.Profile
		err := db.Where("name = ?", seed.Name).First(&profile).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			profile = models.Profile{Name: seed.Name, Description: seed.Description, IsSystem: true}
			if err := db.Create(&profile).Error; err != nil {
				return fmt.Errorf("seed profile %s: %w", seed.Name, err)
			}
		}

		perms := make([]models.Permission, 0, len(seed.Permissions))
		for _, code := range seed.Permissions {
			resource, action := code.Parse()
			var perm models.Permission
			if err := db.Where("resource_type = ? AND action = ?", resource, string(action)).First(&perm).Error; err != nil {
				return fmt.Errorf("profile %s: permission %s: %w", seed.Name, code, err)
			}
			perms = append(perms, perm)
		}
		if err := db.Model(&profile).Association("Permissions").Replace(perms); err != nil {
			return err
		}
	}
	return nil
}

func SeedOccupations(db *gorm.DB) error {
	for _, name := range DefaultOccupations {
		occ := models.Occupation{Name: name}
		if err := db.Where("name = ?", name).FirstOrCreate(&occ).Error; err != nil {
			return fmt.Errorf("seed occupation %s: %w", name, err)
		}
	}
	return nil
}
