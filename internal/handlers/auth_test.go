package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/diewo77/pipoca/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerBody(email string) map[string]any {
	return map[string]any{
		"email":            email,
		"password":         "correct-horse-42",
		"username":         "Ana",
		"birth_date":       "1990-01-01",
		"type_of_audience": "CUR",
	}
}

func TestRegister(t *testing.T) {
	env := setupTestEnv(t)
	h := NewAuthHandler(env.accounts, env.tokens, nil)

	rr := serve(h.Register, request(t, http.MethodPost, "/auth/users", registerBody("Test@Example.com"), 0, ""))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var user models.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &user))
	assert.Equal(t, "Test@example.com", user.Email)
	assert.Equal(t, "Ana", user.Username)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsStaff)
	assert.NotContains(t, rr.Body.String(), "password")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := setupTestEnv(t)
	h := NewAuthHandler(env.accounts, env.tokens, nil)

	rr := serve(h.Register, request(t, http.MethodPost, "/auth/users", registerBody("ana@example.com"), 0, ""))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = serve(h.Register, request(t, http.MethodPost, "/auth/users", registerBody("ana@EXAMPLE.com"), 0, ""))
	require.Equal(t, http.StatusConflict, rr.Code)
	body := decodeError(t, rr)
	assert.Equal(t, "email_already_exists", body.Error)
	assert.Contains(t, body.Details, "email")
}

func TestRegisterValidation(t *testing.T) {
	env := setupTestEnv(t)
	h := NewAuthHandler(env.accounts, env.tokens, nil)

	tests := []struct {
		name  string
		body  any
		code  string
		field string
	}{
		{"bad email", map[string]any{"email": "nope", "password": "x"}, "validation_failed", "email"},
		{"missing password", map[string]any{"email": "a@b.co"}, "validation_failed", "password"},
		{"missing profile fields", map[string]any{"email": "a@b.co", "password": "correct-horse-42"}, "validation_failed", "birth_date"},
		{"short password", map[string]any{"email": "a@b.co", "password": "x"}, "validation_failed", "password"},
		{"numeric password", func() map[string]any {
			b := registerBody("a@b.co")
			b["password"] = "90817263544"
			return b
		}(), "validation_failed", "password"},
		{"password like username", func() map[string]any {
			b := registerBody("a@b.co")
			b["username"] = "pipocaloca"
			b["password"] = "pipocaloca1"
			return b
		}(), "validation_failed", "password"},
		{"bad audience", func() map[string]any {
			b := registerBody("a@b.co")
			b["type_of_audience"] = "XYZ"
			return b
		}(), "validation_failed", "type_of_audience"},
		{"bad date", `{"email":"a@b.co","password":"x","birth_date":"01/02/1990"}`, "invalid_date", ""},
		{"bad json", `{"email":`, "invalid_json", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(h.Register, request(t, http.MethodPost, "/auth/users", tt.body, 0, ""))
			require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			body := decodeError(t, rr)
			assert.Equal(t, tt.code, body.Error)
			if tt.field != "" {
				assert.Contains(t, body.Details, tt.field)
			}
		})
	}
}

func TestLoginIssuesToken(t *testing.T) {
	env := setupTestEnv(t)
	u := env.createUser(t, "ana@example.com", "")
	h := NewAuthHandler(env.accounts, env.tokens, nil)

	rr := serve(h.Login, request(t, http.MethodPost, "/auth/token/login",
		map[string]string{"email": "ana@example.com", "password": "secret"}, 0, ""))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	claims, err := env.tokens.Parse(resp["auth_token"])
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, u.ID, id)
	assert.Equal(t, u.UID.String(), claims.UID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := setupTestEnv(t)
	u := env.createUser(t, "ana@example.com", "")
	h := NewAuthHandler(env.accounts, env.tokens, nil)

	rr := serve(h.Login, request(t, http.MethodPost, "/auth/token/login",
		map[string]string{"email": "ana@example.com", "password": "wrong"}, 0, ""))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "invalid_credentials", decodeError(t, rr).Error)

	require.NoError(t, env.accounts.SoftDelete(t.Context(), u.ID))
	rr = serve(h.Login, request(t, http.MethodPost, "/auth/token/login",
		map[string]string{"email": "ana@example.com", "password": "secret"}, 0, ""))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMeAndUpdateMe(t *testing.T) {
	env := setupTestEnv(t)
	u := env.createUser(t, "ana@example.com", "")
	h := NewAuthHandler(env.accounts, env.tokens, nil)

	rr := serve(h.Me, request(t, http.MethodGet, "/auth/users/me", nil, u.ID, ""))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"email":"ana@example.com"`)

	patch := map[string]any{"username": "Ana Maria", "subscriber": true, "is_staff": true, "is_superuser": true}
	rr = serve(h.UpdateMe, request(t, http.MethodPatch, "/auth/users/me", patch, u.ID, ""))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var got models.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "Ana Maria", got.Username)
	assert.True(t, got.Subscriber)
	assert.False(t, got.IsStaff, "privilege flags are ignored on self-service")
	assert.False(t, got.IsSuperuser)
}

func TestSetPassword(t *testing.T) {
	env := setupTestEnv(t)
	u := env.createUser(t, "ana@example.com", "")
	h := NewAuthHandler(env.accounts, env.tokens, nil)

	rr := serve(h.SetPassword, request(t, http.MethodPost, "/auth/users/set_password",
		map[string]string{"current_password": "wrong", "new_password": "battery-staple-7"}, u.ID, ""))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeError(t, rr).Details, "current_password")

	for _, weak := range []string{"n3w", "qwerty123", "anaexample"} {
		rr = serve(h.SetPassword, request(t, http.MethodPost, "/auth/users/set_password",
			map[string]string{"current_password": "secret", "new_password": weak}, u.ID, ""))
		require.Equal(t, http.StatusBadRequest, rr.Code, weak)
		assert.Contains(t, decodeError(t, rr).Details, "new_password", weak)
	}

	rr = serve(h.SetPassword, request(t, http.MethodPost, "/auth/users/set_password",
		map[string]string{"current_password": "secret", "new_password": "battery-staple-7"}, u.ID, ""))
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())

	got, err := env.accounts.Authenticate(t.Context(), "ana@example.com", "battery-staple-7")
	require.NoError(t, err)
	assert.Equal(t, uint(1), got.TokenVersion)
}

func TestLogoutRevokesTokens(t *testing.T) {
	env := setupTestEnv(t)
	u := env.createUser(t, "ana@example.com", "")
	h := NewAuthHandler(env.accounts, env.tokens, nil)

	rr := serve(h.Login, request(t, http.MethodPost, "/auth/token/login",
		map[string]string{"email": "ana@example.com", "password": "secret"}, 0, ""))
	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	before, err := env.tokens.Parse(resp["auth_token"])
	require.NoError(t, err)

	rr = serve(h.Logout, request(t, http.MethodPost, "/auth/token/logout", nil, u.ID, ""))
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())

	got, err := env.accounts.Get(t.Context(), u.ID)
	require.NoError(t, err)
	assert.Greater(t, got.TokenVersion, before.Version)
}
