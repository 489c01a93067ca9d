package services

import (
	"context"
	"testing"

	"github.com/diewo77/pipoca/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddress_CRUD(t *testing.T) {
	gdb := setupTestDB(t)
	s := NewReferenceService(gdb, nil)
	ctx := context.Background()

	a, err := s.CreateAddress(ctx, AddressInput{Street: "Rua A", City: "Recife", ZipCode: 50000000, Number: 10, Complement: strPtr("ap 1")})
	require.NoError(t, err)
	assert.Equal(t, "Rua A, 10 - ap 1", a.String())

	updated, err := s.UpdateAddress(ctx, a.ID, AddressPatch{Complement: strPtr(""), Number: intPtr(12)})
	require.NoError(t, err)
	assert.Nil(t, updated.Complement)
	assert.Equal(t, "Rua A, 12 - ", updated.String())

	list, err := s.ListAddresses(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = s.GetAddress(ctx, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddress_Validation(t *testing.T) {
	s := NewReferenceService(setupTestDB(t), nil)

	_, err := s.CreateAddress(context.Background(), AddressInput{ZipCode: -1, Number: -5, Complement: strPtr("far too long")})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "required", verr.Violations["street"])
	assert.Equal(t, "must_not_be_negative", verr.Violations["zip_code"])
	assert.Equal(t, "must_not_be_negative", verr.Violations["number"])
	assert.Equal(t, "too_long", verr.Violations["complement"])
}

func TestAddress_ZeroNumbersAllowed(t *testing.T) {
	s := NewReferenceService(setupTestDB(t), nil)

	addr, err := s.CreateAddress(context.Background(), AddressInput{Street: "Rua sem número"})
	require.NoError(t, err)
	assert.Zero(t, addr.ZipCode)
	assert.Zero(t, addr.Number)
}

func TestDeleteAddress_UnlinksUsers(t *testing.T) {
	m, gdb, _ := newTestManager(t)
	s := NewReferenceService(gdb, nil)
	ctx := context.Background()

	a, err := s.CreateAddress(ctx, AddressInput{Street: "Rua B", ZipCode: 1, Number: 1})
	require.NoError(t, err)
	u, err := m.CreateUser(ctx, "ana@example.com", "pw", anaFields())
	require.NoError(t, err)
	require.NoError(t, s.LinkAddress(ctx, u.ID, &a.ID))

	linked, err := m.Get(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, linked.Address)
	assert.Equal(t, "Rua B", linked.Address.Street)

	require.NoError(t, s.DeleteAddress(ctx, a.ID))

	after, err := m.Get(ctx, u.ID)
	require.NoError(t, err, "the user survives the address")
	assert.Nil(t, after.AddressID)

	assert.ErrorIs(t, s.DeleteAddress(ctx, a.ID), ErrNotFound)
}

func TestTelephone_CRUD(t *testing.T) {
	m, gdb, _ := newTestManager(t)
	s := NewReferenceService(gdb, nil)
	ctx := context.Background()

	_, err := s.CreateTelephone(ctx, TelephoneInput{Number: "81999990000", Type: "sat"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "invalid_choice", verr.Violations["type"])

	tel, err := s.CreateTelephone(ctx, TelephoneInput{Number: "81999990000", Type: models.TelephoneMobile})
	require.NoError(t, err)

	landline := models.TelephoneLandline
	tel, err = s.UpdateTelephone(ctx, tel.ID, TelephonePatch{Type: &landline})
	require.NoError(t, err)
	assert.Equal(t, models.TelephoneLandline, tel.Type)

	u, err := m.CreateUser(ctx, "ana@example.com", "pw", anaFields())
	require.NoError(t, err)
	require.NoError(t, s.LinkTelephone(ctx, u.ID, &tel.ID))
	require.NoError(t, s.DeleteTelephone(ctx, tel.ID))

	after, err := m.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, after.TelephoneID)
}

func TestLink_Errors(t *testing.T) {
	m, gdb, _ := newTestManager(t)
	s := NewReferenceService(gdb, nil)
	ctx := context.Background()
	u, err := m.CreateUser(ctx, "ana@example.com", "pw", anaFields())
	require.NoError(t, err)

	missing := uint(404)
	err = s.LinkAddress(ctx, u.ID, &missing)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "does_not_exist", verr.Violations["address_id"])

	assert.ErrorIs(t, s.LinkTelephone(ctx, 9999, nil), ErrNotFound)
	assert.NoError(t, s.LinkAddress(ctx, u.ID, nil))
}

func TestOccupation_CRUD(t *testing.T) {
	s := NewReferenceService(setupTestDB(t), nil)
	ctx := context.Background()

	_, err := s.CreateOccupation(ctx, OccupationInput{Name: "Desenvolvedora de software sênior"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "too_long", verr.Violations["name"])

	o, err := s.CreateOccupation(ctx, OccupationInput{Name: "Autônomo"})
	require.NoError(t, err)
	assert.Equal(t, "Autônomo", o.String())

	o, err = s.UpdateOccupation(ctx, o.ID, OccupationInput{Name: "Consultor"})
	require.NoError(t, err)
	got, err := s.GetOccupation(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "Consultor", got.Name)

	require.NoError(t, s.DeleteOccupation(ctx, o.ID))
	assert.ErrorIs(t, s.DeleteOccupation(ctx, o.ID), ErrNotFound)

	all, err := s.ListOccupations(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func intPtr(i int) *int { return &i }
