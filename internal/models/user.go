package models

import (
	"strings"
	"time"

	"github.com/diewo77/pipoca/gate"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AudienceType classifies why a user joined.
type AudienceType string

const (
	AudienceMigrating    AudienceType = "MIG"
	AudienceProfessional AudienceType = "PRO"
	AudienceCurious      AudienceType = "CUR"
)

var AudienceTypes = []string{string(AudienceMigrating), string(AudienceProfessional), string(AudienceCurious)}

func (a AudienceType) Valid() bool {
	switch a {
	case AudienceMigrating, AudienceProfessional, AudienceCurious:
		return true
	}
	return false
}

func (a AudienceType) Label() string {
	switch a {
	case AudienceMigrating:
		return "Migrando para a área de agilidade"
	case AudienceProfessional:
		return "Profissional da área de agilidade"
	case AudienceCurious:
		return "Curioso sobre o universo da agilidade"
	}
	return string(a)
}

// OccupationCode is the inline occupation choice stored on users.
type OccupationCode string

const OccupationSelfEmployed OccupationCode = "AT"

var OccupationCodes = []string{string(OccupationSelfEmployed)}

func (o OccupationCode) Valid() bool { return o == OccupationSelfEmployed }

func (o OccupationCode) Label() string {
	if o == OccupationSelfEmployed {
		return "Autônomo"
	}
	return string(o)
}

// UnusablePasswordPrefix marks a password hash that can never match.
const UnusablePasswordPrefix = "!"

// User is the authenticatable account. Email is the login identifier.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UID       uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"uid"`
	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"updated"`

	Email    string `gorm:"uniqueIndex;size:254;not null" json:"email"`
	Password string `gorm:"size:255;not null" json:"-"` // hash or unusable marker, never exposed
	Username string `gorm:"size:150;not null" json:"username"`

	Occupation   OccupationCode `gorm:"size:2;not null;default:'AT'" json:"occupation"`
	BirthDate    Date           `gorm:"not null" json:"birth_date"`
	AudienceType AudienceType   `gorm:"column:type_of_audience;size:3;not null" json:"type_of_audience"`
	CPF          *string        `gorm:"column:cpf;size:11" json:"cpf,omitempty"`

	Registered bool `gorm:"not null;default:false" json:"registered"`
	Subscriber bool `gorm:"not null;default:false" json:"subscriber"`
	// IsDeleted and DeletedAt are advisory: reads are not filtered on them.
	IsDeleted bool       `gorm:"not null;default:false" json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	// TokenVersion is embedded in issued tokens; bumping it revokes them all.
	TokenVersion uint `gorm:"not null;default:0" json:"-"`

	AddressID   *uint      `gorm:"index" json:"address_id,omitempty"`
	Address     *Address   `gorm:"foreignKey:AddressID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"address,omitempty"`
	TelephoneID *uint      `gorm:"index" json:"telephone_id,omitempty"`
	Telephone   *Telephone `gorm:"foreignKey:TelephoneID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"telephone,omitempty"`

	IsStaff     bool `gorm:"not null;default:false" json:"is_staff"`
	IsSuperuser bool `gorm:"not null;default:false" json:"is_superuser"`
	IsActive    bool `gorm:"not null" json:"is_active"` // no default tag: an explicit false must reach the INSERT

	// ProfileID links the user to a permission group; nil means no extra permissions.
	ProfileID *uint    `gorm:"index" json:"profile_id,omitempty"`
	Profile   *Profile `gorm:"foreignKey:ProfileID;constraint:OnDelete:SET NULL" json:"profile,omitempty"`

	DateJoined time.Time `gorm:"not null" json:"date_joined"`
}

// BeforeCreate assigns the external uid and join date.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.UID == uuid.Nil {
		u.UID = uuid.New()
	}
	if u.DateJoined.IsZero() {
		u.DateJoined = time.Now().UTC()
	}
	return nil
}

func (u User) String() string { return u.Email }

// GetFullName returns the display name without surrounding whitespace.
func (u *User) GetFullName() string {
	return strings.TrimSpace(u.Username)
}

// GetShortName returns the display name as stored.
func (u *User) GetShortName() string {
	return u.Username
}

func (u *User) HasUsablePassword() bool {
	return u.Password != "" && !strings.HasPrefix(u.Password, UnusablePasswordPrefix)
}

// IsActiveAccount reports whether the account may authenticate.
func (u *User) IsActiveAccount() bool {
	return u.IsActive && !u.IsDeleted
}

// Permissions returns the permissions granted to the user. Inactive accounts
// hold none; active superusers hold the wildcard. Requires Profile.Permissions
// to be preloaded for regular users.
func (u *User) Permissions() []gate.Permission {
	if !u.IsActiveAccount() {
		return nil
	}
	if u.IsSuperuser {
		return []gate.Permission{gate.PermissionSuperAdmin}
	}
	return u.Profile.GatePermissions()
}

func (u *User) HasPermission(perm gate.Permission) bool {
	return u.HasPermissions(perm)
}

// HasPermissions reports whether the user holds every permission in perms.
func (u *User) HasPermissions(perms ...gate.Permission) bool {
	if !u.IsActiveAccount() {
		return false
	}
	return gate.HasAll(u.Permissions(), perms...)
}

// GetUserID lets account records participate in ownership policies.
func (u *User) GetUserID() uint { return u.ID }
