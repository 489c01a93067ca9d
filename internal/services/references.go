package services

import (
	"context"
	"fmt"

	"github.com/diewo77/pipoca/internal/models"
	"github.com/diewo77/pipoca/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReferenceService manages the address, telephone and occupation tables
// and links users to them.
type ReferenceService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewReferenceService(db *gorm.DB, log *zap.Logger) *ReferenceService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReferenceService{db: db, log: log}
}

// AddressInput is accepted on create; AddressPatch on update.
type AddressInput struct {
	Street       string  `json:"street"`
	Neighborhood string  `json:"neighborhood"`
	City         string  `json:"city"`
	ZipCode      int     `json:"zip_code"`
	Number       int     `json:"number"`
	Complement   *string `json:"complement"`
}

type AddressPatch struct {
	Street       *string `json:"street"`
	Neighborhood *string `json:"neighborhood"`
	City         *string `json:"city"`
	ZipCode      *int    `json:"zip_code"`
	Number       *int    `json:"number"`
	// Complement set to "" clears it.
	Complement *string `json:"complement"`
}

type TelephoneInput struct {
	Number string               `json:"number"`
	Type   models.TelephoneType `json:"type"`
}

type TelephonePatch struct {
	Number *string               `json:"number"`
	Type   *models.TelephoneType `json:"type"`
}

type OccupationInput struct {
	Name string `json:"name"`
}

func validateAddress(a *models.Address) validation.Violations {
	v := validation.Violations{}
	validation.Required("street", a.Street, v)
	validation.MaxLen("street", a.Street, 100, v)
	validation.MaxLen("neighborhood", a.Neighborhood, 255, v)
	validation.MaxLen("city", a.City, 50, v)
	validation.NonNegativeInt("zip_code", a.ZipCode, v)
	validation.NonNegativeInt("number", a.Number, v)
	if a.Complement != nil {
		validation.MaxLen("complement", *a.Complement, 10, v)
	}
	return v
}

func validateTelephone(t *models.Telephone) validation.Violations {
	v := validation.Violations{}
	validation.Required("number", t.Number, v)
	validation.MaxLen("number", t.Number, 20, v)
	validation.Required("type", string(t.Type), v)
	validation.OneOf("type", string(t.Type), models.TelephoneTypes, v)
	return v
}

func validateOccupation(o *models.Occupation) validation.Violations {
	v := validation.Violations{}
	validation.Required("name", o.Name, v)
	validation.MaxLen("name", o.Name, 30, v)
	return v
}

// Addresses

func (s *ReferenceService) CreateAddress(ctx context.Context, in AddressInput) (*models.Address, error) {
	a := &models.Address{
		Street:       in.Street,
		Neighborhood: in.Neighborhood,
		City:         in.City,
		ZipCode:      in.ZipCode,
		Number:       in.Number,
		Complement:   emptyToNil(in.Complement),
	}
	if err := create(ctx, s.db, a, validateAddress(a)); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *ReferenceService) GetAddress(ctx context.Context, id uint) (*models.Address, error) {
	return getByID[models.Address](ctx, s.db, id)
}

func (s *ReferenceService) ListAddresses(ctx context.Context) ([]models.Address, error) {
	return listAll[models.Address](ctx, s.db)
}

func (s *ReferenceService) UpdateAddress(ctx context.Context, id uint, p AddressPatch) (*models.Address, error) {
	a, err := getByID[models.Address](ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if p.Street != nil {
		a.Street = *p.Street
	}
	if p.Neighborhood != nil {
		a.Neighborhood = *p.Neighborhood
	}
	if p.City != nil {
		a.City = *p.City
	}
	if p.ZipCode != nil {
		a.ZipCode = *p.ZipCode
	}
	if p.Number != nil {
		a.Number = *p.Number
	}
	if p.Complement != nil {
		a.Complement = emptyToNil(p.Complement)
	}
	if err := save(ctx, s.db, a, validateAddress(a)); err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAddress unlinks every user from the address, then removes it.
func (s *ReferenceService) DeleteAddress(ctx context.Context, id uint) error {
	return s.deleteReferenced(ctx, &models.Address{}, "address_id", id)
}

// Telephones

func (s *ReferenceService) CreateTelephone(ctx context.Context, in TelephoneInput) (*models.Telephone, error) {
	t := &models.Telephone{Number: in.Number, Type: in.Type}
	if err := create(ctx, s.db, t, validateTelephone(t)); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *ReferenceService) GetTelephone(ctx context.Context, id uint) (*models.Telephone, error) {
	return getByID[models.Telephone](ctx, s.db, id)
}

func (s *ReferenceService) ListTelephones(ctx context.Context) ([]models.Telephone, error) {
	return listAll[models.Telephone](ctx, s.db)
}

func (s *ReferenceService) UpdateTelephone(ctx context.Context, id uint, p TelephonePatch) (*models.Telephone, error) {
	t, err := getByID[models.Telephone](ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if p.Number != nil {
		t.Number = *p.Number
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if err := save(ctx, s.db, t, validateTelephone(t)); err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteTelephone unlinks every user from the telephone, then removes it.
func (s *ReferenceService) DeleteTelephone(ctx context.Context, id uint) error {
	return s.deleteReferenced(ctx, &models.Telephone{}, "telephone_id", id)
}

// Occupations

func (s *ReferenceService) CreateOccupation(ctx context.Context, in OccupationInput) (*models.Occupation, error) {
	o := &models.Occupation{Name: in.Name}
	if err := create(ctx, s.db, o, validateOccupation(o)); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *ReferenceService) GetOccupation(ctx context.Context, id uint) (*models.Occupation, error) {
	return getByID[models.Occupation](ctx, s.db, id)
}

func (s *ReferenceService) ListOccupations(ctx context.Context) ([]models.Occupation, error) {
	return listAll[models.Occupation](ctx, s.db)
}

func (s *ReferenceService) UpdateOccupation(ctx context.Context, id uint, in OccupationInput) (*models.Occupation, error) {
	o, err := getByID[models.Occupation](ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	o.Name = in.Name
	if err := save(ctx, s.db, o, validateOccupation(o)); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *ReferenceService) DeleteOccupation(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Occupation{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Links

// LinkAddress points the user at an existing address; nil unlinks.
func (s *ReferenceService) LinkAddress(ctx context.Context, userID uint, addressID *uint) error {
	return s.link(ctx, userID, "address_id", &models.Address{}, addressID)
}

// LinkTelephone points the user at an existing telephone; nil unlinks.
func (s *ReferenceService) LinkTelephone(ctx context.Context, userID uint, telephoneID *uint) error {
	return s.link(ctx, userID, "telephone_id", &models.Telephone{}, telephoneID)
}

func (s *ReferenceService) link(ctx context.Context, userID uint, column string, model any, id *uint) error {
	if id != nil {
		ok, err := exists(ctx, s.db, model, *id)
		if err != nil {
			return err
		}
		if !ok {
			return newValidationError(column, "does_not_exist")
		}
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update(column, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ReferenceService) deleteReferenced(ctx context.Context, model any, column string, id uint) error {
	var unlinked int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where(column+" = ?", id).Update(column, nil)
		if res.Error != nil {
			return res.Error
		}
		unlinked = res.RowsAffected
		del := tx.Delete(model, id)
		if del.Error != nil {
			return del.Error
		}
		if del.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("reference deleted", zap.String("column", column), zap.Uint("id", id), zap.Int64("users_unlinked", unlinked))
	return nil
}

// shared helpers

func create(ctx context.Context, db *gorm.DB, row any, v validation.Violations) error {
	if !v.Empty() {
		return &ValidationError{Violations: v}
	}
	if err := db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("create %T: %w", row, err)
	}
	return nil
}

func save(ctx context.Context, db *gorm.DB, row any, v validation.Violations) error {
	if !v.Empty() {
		return &ValidationError{Violations: v}
	}
	if err := db.WithContext(ctx).Save(row).Error; err != nil {
		return fmt.Errorf("save %T: %w", row, err)
	}
	return nil
}

func getByID[T any](ctx context.Context, db *gorm.DB, id uint) (*T, error) {
	var row T
	if err := db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &row, nil
}

func listAll[T any](ctx context.Context, db *gorm.DB) ([]T, error) {
	var rows []T
	if err := db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func exists(ctx context.Context, db *gorm.DB, model any, id uint) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}
