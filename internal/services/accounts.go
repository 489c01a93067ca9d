package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/pipoca/auth"
	"github.com/diewo77/pipoca/gate"
	"github.com/diewo77/pipoca/internal/models"
	"github.com/diewo77/pipoca/mail"
	"github.com/diewo77/pipoca/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Principal is what the rest of the application needs from an account.
type Principal interface {
	HasUsablePassword() bool
	HasPermission(perm gate.Permission) bool
	HasPermissions(perms ...gate.Permission) bool
	IsActiveAccount() bool
}

var _ Principal = (*models.User)(nil)

// UserFields carries the optional attributes accepted at account creation.
// Nil flag pointers take the manager's defaults.
type UserFields struct {
	Username     string
	BirthDate    models.Date
	AudienceType models.AudienceType
	Occupation   models.OccupationCode
	CPF          *string
	Registered   bool
	Subscriber   bool
	AddressID    *uint
	TelephoneID  *uint
	ProfileID    *uint

	IsStaff     *bool
	IsSuperuser *bool
	IsActive    *bool
}

func (f UserFields) validate() validation.Violations {
	v := validation.Violations{}
	validateProfileFields(v, f.Username, f.BirthDate, f.AudienceType, f.Occupation, f.CPF)
	return v
}

func validateProfileFields(v validation.Violations, username string, birth models.Date, audience models.AudienceType, occupation models.OccupationCode, cpf *string) {
	validation.Required("username", username, v)
	validation.MaxLen("username", username, 150, v)
	validation.RequiredTime("birth_date", birth.Time, v)
	validation.Required("type_of_audience", string(audience), v)
	validation.OneOf("type_of_audience", string(audience), models.AudienceTypes, v)
	validation.OneOf("occupation", string(occupation), models.OccupationCodes, v)
	if cpf != nil {
		validation.MaxLen("cpf", *cpf, 11, v)
	}
}

// UserPatch is a partial update; nil fields are left untouched.
// An empty CPF clears it.
type UserPatch struct {
	Email        *string                `json:"email"`
	Username     *string                `json:"username"`
	BirthDate    *models.Date           `json:"birth_date"`
	AudienceType *models.AudienceType   `json:"type_of_audience"`
	Occupation   *models.OccupationCode `json:"occupation"`
	CPF          *string                `json:"cpf"`
	Registered   *bool                  `json:"registered"`
	Subscriber   *bool                  `json:"subscriber"`

	IsStaff     *bool `json:"is_staff"`
	IsSuperuser *bool `json:"is_superuser"`
	IsActive    *bool `json:"is_active"`
}

// SelfService drops the fields only administrators may change.
func (p UserPatch) SelfService() UserPatch {
	p.IsStaff, p.IsSuperuser, p.IsActive = nil, nil, nil
	return p
}

func (p UserPatch) apply(u *models.User) {
	if p.Email != nil {
		u.Email = NormalizeEmail(*p.Email)
	}
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.BirthDate != nil {
		u.BirthDate = *p.BirthDate
	}
	if p.AudienceType != nil {
		u.AudienceType = *p.AudienceType
	}
	if p.Occupation != nil {
		u.Occupation = *p.Occupation
	}
	if p.CPF != nil {
		if *p.CPF == "" {
			u.CPF = nil
		} else {
			cpf := *p.CPF
			u.CPF = &cpf
		}
	}
	if p.Registered != nil {
		u.Registered = *p.Registered
	}
	if p.Subscriber != nil {
		u.Subscriber = *p.Subscriber
	}
	if p.IsStaff != nil {
		u.IsStaff = *p.IsStaff
	}
	if p.IsSuperuser != nil {
		u.IsSuperuser = *p.IsSuperuser
	}
	if p.IsActive != nil {
		u.IsActive = *p.IsActive
	}
}

// ListFilter narrows List. Zero value lists every account, deleted ones included.
type ListFilter struct {
	ExcludeDeleted bool
	// Email matches a case-insensitive substring.
	Email   string
	IsStaff *bool
	Limit   int
	Offset  int
}

// EmailOption customizes messages sent by EmailUser.
type EmailOption func(*mail.Message)

// WithHTML attaches an HTML alternative body.
func WithHTML(body string) EmailOption {
	return func(m *mail.Message) { m.HTMLBody = body }
}

// AccountManager creates and maintains user accounts.
type AccountManager struct {
	db     *gorm.DB
	hasher auth.Hasher
	mailer mail.Sender
	log    *zap.Logger
	now    func() time.Time

	// OnAccessChange is called after a change that can alter what a user is
	// allowed to do (flags, profile, soft delete).
	OnAccessChange func(userID uint)
}

func NewAccountManager(db *gorm.DB, hasher auth.Hasher, mailer mail.Sender, log *zap.Logger) *AccountManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountManager{db: db, hasher: hasher, mailer: mailer, log: log, now: time.Now}
}

// NormalizeEmail trims the address and lower-cases its domain part.
// The local part is kept as typed.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + "@" + strings.ToLower(email[at+1:])
}

// CreateUser stores a regular account. An empty password yields an account
// without a usable credential.
func (m *AccountManager) CreateUser(ctx context.Context, email, password string, extra UserFields) (*models.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, newValidationError("email", "required")
	}
	v := extra.validate()
	if err := m.checkReferences(ctx, extra, v); err != nil {
		return nil, err
	}
	if !v.Empty() {
		return nil, &ValidationError{Violations: v}
	}

	hash, err := m.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, newValidationError("password", "too_long")
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		Email:        email,
		Password:     hash,
		Username:     extra.Username,
		Occupation:   extra.Occupation,
		BirthDate:    extra.BirthDate,
		AudienceType: extra.AudienceType,
		CPF:          extra.CPF,
		Registered:   extra.Registered,
		Subscriber:   extra.Subscriber,
		AddressID:    extra.AddressID,
		TelephoneID:  extra.TelephoneID,
		ProfileID:    extra.ProfileID,
		IsStaff:      boolOr(extra.IsStaff, false),
		IsSuperuser:  boolOr(extra.IsSuperuser, false),
		IsActive:     boolOr(extra.IsActive, true),
	}
	if u.Occupation == "" {
		u.Occupation = models.OccupationSelfEmployed
	}

	if err := m.db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	m.log.Info("user created",
		zap.Uint("user_id", u.ID),
		zap.Bool("staff", u.IsStaff),
		zap.Bool("superuser", u.IsSuperuser),
		zap.Bool("usable_password", u.HasUsablePassword()),
	)
	return u, nil
}

// CreateSuperuser stores an account with both staff and superuser flags.
// Explicitly passing false for either flag is rejected.
func (m *AccountManager) CreateSuperuser(ctx context.Context, email, password string, extra UserFields) (*models.User, error) {
	v := validation.Violations{}
	if extra.IsStaff != nil && !*extra.IsStaff {
		v["is_staff"] = "superuser_staff"
	}
	if extra.IsSuperuser != nil && !*extra.IsSuperuser {
		v["is_superuser"] = "superuser_flag"
	}
	if !v.Empty() {
		return nil, &ValidationError{Violations: v}
	}
	yes := true
	extra.IsStaff, extra.IsSuperuser = &yes, &yes
	return m.CreateUser(ctx, email, password, extra)
}

// Authenticate returns the account matching the credentials. Unknown emails,
// wrong passwords and inactive or soft-deleted accounts all yield
// ErrInvalidCredentials.
func (m *AccountManager) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := m.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !m.hasher.Compare(u.Password, password) || !u.IsActiveAccount() {
		m.log.Debug("authentication rejected", zap.Uint("user_id", u.ID))
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// CheckPassword reports whether password matches the stored hash.
func (m *AccountManager) CheckPassword(u *models.User, password string) bool {
	return m.hasher.Compare(u.Password, password)
}

// SetPassword replaces the stored hash and revokes the account's tokens.
// An empty password makes the account unusable for login.
func (m *AccountManager) SetPassword(ctx context.Context, id uint, password string) error {
	hash, err := m.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return newValidationError("password", "too_long")
		}
		return fmt.Errorf("hash password: %w", err)
	}
	res := m.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(map[string]any{
		"password":      hash,
		"token_version": gorm.Expr("token_version + 1"),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RevokeTokens invalidates every token issued to the account so far.
func (m *AccountManager) RevokeTokens(ctx context.Context, id uint) error {
	res := m.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Update("token_version", gorm.Expr("token_version + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	m.log.Info("tokens revoked", zap.Uint("user_id", id))
	return nil
}

// Get loads a user with its address, telephone and profile permissions.
func (m *AccountManager) Get(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := m.db.WithContext(ctx).
		Preload("Address").
		Preload("Telephone").
		Preload("Profile.Permissions").
		First(&u, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// GetByEmail looks an account up by its normalized email.
func (m *AccountManager) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrNotFound
	}
	var u models.User
	if err := m.db.WithContext(ctx).Preload("Profile.Permissions").Where("email = ?", email).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (m *AccountManager) List(ctx context.Context, f ListFilter) ([]models.User, error) {
	q := m.db.WithContext(ctx).Model(&models.User{}).Order("id")
	if f.ExcludeDeleted {
		q = q.Where("is_deleted = ?", false)
	}
	if f.Email != "" {
		q = q.Where("LOWER(email) LIKE ?", "%"+strings.ToLower(f.Email)+"%")
	}
	if f.IsStaff != nil {
		q = q.Where("is_staff = ?", *f.IsStaff)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	var users []models.User
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Update applies a partial change and validates the resulting record.
func (m *AccountManager) Update(ctx context.Context, id uint, patch UserPatch) (*models.User, error) {
	u, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	patch.apply(u)
	if u.Occupation == "" {
		u.Occupation = models.OccupationSelfEmployed
	}

	v := validation.Violations{}
	if u.Email == "" {
		v["email"] = "required"
	}
	validateProfileFields(v, u.Username, u.BirthDate, u.AudienceType, u.Occupation, u.CPF)
	if !v.Empty() {
		return nil, &ValidationError{Violations: v}
	}

	// Credentials are owned by SetPassword and RevokeTokens.
	if err := m.db.WithContext(ctx).Omit(clause.Associations, "password", "token_version").Save(u).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	if patch.IsStaff != nil || patch.IsSuperuser != nil || patch.IsActive != nil {
		m.accessChanged(id)
	}
	return u, nil
}

// SoftDelete flags the account as deleted and stamps DeletedAt. The row stays.
func (m *AccountManager) SoftDelete(ctx context.Context, id uint) error {
	now := m.now().UTC()
	return m.setDeleted(ctx, id, map[string]any{"is_deleted": true, "deleted_at": &now})
}

// Restore clears the soft-delete flag and timestamp.
func (m *AccountManager) Restore(ctx context.Context, id uint) error {
	return m.setDeleted(ctx, id, map[string]any{"is_deleted": false, "deleted_at": nil})
}

func (m *AccountManager) setDeleted(ctx context.Context, id uint, cols map[string]any) error {
	res := m.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	m.accessChanged(id)
	return nil
}

// EmailUser sends a message to the account's address. An empty from uses
// the transport's default sender.
func (m *AccountManager) EmailUser(ctx context.Context, u *models.User, subject, message, from string, opts ...EmailOption) error {
	msg := mail.Message{Subject: subject, Body: message, From: from, To: []string{u.Email}}
	for _, opt := range opts {
		opt(&msg)
	}
	if err := m.mailer.Send(ctx, msg); err != nil {
		m.log.Warn("mail send failed", zap.Uint("user_id", u.ID), zap.Error(err))
		return &TransportFailure{Err: err}
	}
	return nil
}

// AssignProfile sets or clears (nil) the user's permission profile.
func (m *AccountManager) AssignProfile(ctx context.Context, userID uint, profileID *uint) error {
	if profileID != nil {
		ok, err := exists(ctx, m.db, &models.Profile{}, *profileID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
	}
	res := m.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("profile_id", profileID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	m.accessChanged(userID)
	return nil
}

// checkReferences records "does_not_exist" for dangling foreign keys.
func (m *AccountManager) checkReferences(ctx context.Context, f UserFields, v validation.Violations) error {
	refs := []struct {
		field string
		model any
		id    *uint
	}{
		{"address_id", &models.Address{}, f.AddressID},
		{"telephone_id", &models.Telephone{}, f.TelephoneID},
		{"profile_id", &models.Profile{}, f.ProfileID},
	}
	for _, ref := range refs {
		if ref.id == nil {
			continue
		}
		ok, err := exists(ctx, m.db, ref.model, *ref.id)
		if err != nil {
			return err
		}
		if !ok {
			v[ref.field] = "does_not_exist"
		}
	}
	return nil
}

func (m *AccountManager) accessChanged(id uint) {
	if m.OnAccessChange != nil {
		m.OnAccessChange(id)
	}
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
