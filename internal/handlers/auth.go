package handlers

import (
	"net/http"

	"github.com/diewo77/pipoca/auth"
	"github.com/diewo77/pipoca/httpx"
	"github.com/diewo77/pipoca/internal/models"
	"github.com/diewo77/pipoca/internal/services"
	"github.com/diewo77/pipoca/validation"
	"go.uber.org/zap"
)

// AuthHandler serves registration, token login and the current-user endpoints.
type AuthHandler struct {
	accounts *services.AccountManager
	tokens   *auth.Tokens
	log      *zap.Logger
}

func NewAuthHandler(accounts *services.AccountManager, tokens *auth.Tokens, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{accounts: accounts, tokens: tokens, log: log}
}

type registerRequest struct {
	Email        string                `json:"email"`
	Password     string                `json:"password"`
	Username     string                `json:"username"`
	BirthDate    models.Date           `json:"birth_date"`
	AudienceType models.AudienceType   `json:"type_of_audience"`
	Occupation   models.OccupationCode `json:"occupation"`
	CPF          *string               `json:"cpf"`
	Registered   bool                  `json:"registered"`
	Subscriber   bool                  `json:"subscriber"`
}

func (req registerRequest) fields() services.UserFields {
	return services.UserFields{
		Username:     req.Username,
		BirthDate:    req.BirthDate,
		AudienceType: req.AudienceType,
		Occupation:   req.Occupation,
		CPF:          req.CPF,
		Registered:   req.Registered,
		Subscriber:   req.Subscriber,
	}
}

// Register creates a regular account. Self-registration requires a password
// that passes the password rules; accounts created by staff skip them.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	v := validation.Violations{}
	validation.Email("email", req.Email, v)
	validation.Required("password", req.Password, v)
	if _, missing := v["password"]; !missing {
		validation.Password("password", req.Password, []string{req.Email, req.Username}, v)
	}
	if !v.Empty() {
		httpx.LocalizedError(w, r, http.StatusBadRequest, "validation_failed", v)
		return
	}

	user, err := h.accounts.CreateUser(r.Context(), req.Email, req.Password, req.fields())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for an API token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	token, err := h.tokens.Issue(user.ID, user.UID.String(), user.Email, user.TokenVersion)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"auth_token": token})
}

// Logout revokes every token issued to the caller so far.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	if err := h.accounts.RevokeTokens(r.Context(), uid); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.NoContent(w)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	user, err := h.accounts.Get(r.Context(), uid)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

// UpdateMe applies a self-service patch; privilege flags are ignored.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var patch services.UserPatch
	if !decode(w, r, &patch) {
		return
	}
	user, err := h.accounts.Update(r.Context(), uid, patch.SelfService())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

type setPasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// SetPassword changes the caller's password and revokes their existing tokens.
func (h *AuthHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	var req setPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.accounts.Get(r.Context(), uid)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	v := validation.Violations{}
	validation.Required("new_password", req.NewPassword, v)
	if _, missing := v["new_password"]; !missing {
		validation.Password("new_password", req.NewPassword, []string{user.Email, user.Username}, v)
	}
	if !h.accounts.CheckPassword(user, req.CurrentPassword) {
		v["current_password"] = "invalid_password"
	}
	if !v.Empty() {
		httpx.LocalizedError(w, r, http.StatusBadRequest, "validation_failed", v)
		return
	}

	if err := h.accounts.SetPassword(r.Context(), uid, req.NewPassword); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.NoContent(w)
}
