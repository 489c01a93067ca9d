package handlers

import (
	"net/http"

	"github.com/diewo77/pipoca/gate"
	"github.com/diewo77/pipoca/httpx"
	"github.com/diewo77/pipoca/internal/models"
	"github.com/diewo77/pipoca/internal/policy"
	"github.com/diewo77/pipoca/internal/services"
	"github.com/diewo77/pipoca/validation"
	"go.uber.org/zap"
)

// UserHandler manages accounts on behalf of staff and the account owners.
type UserHandler struct {
	accounts *services.AccountManager
	refs     *services.ReferenceService
	gate     *policy.AuthGate
	log      *zap.Logger
}

func NewUserHandler(accounts *services.AccountManager, refs *services.ReferenceService, ag *policy.AuthGate, log *zap.Logger) *UserHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserHandler{accounts: accounts, refs: refs, gate: ag, log: log}
}

// List supports ?email=, ?is_staff=, ?exclude_deleted=, ?limit= and ?offset=.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	f := services.ListFilter{
		Email:   r.URL.Query().Get("email"),
		IsStaff: queryBool(r, "is_staff"),
		Limit:   queryInt(r, "limit"),
		Offset:  queryInt(r, "offset"),
	}
	if b := queryBool(r, "exclude_deleted"); b != nil {
		f.ExcludeDeleted = *b
	}
	users, err := h.accounts.List(r.Context(), f)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

type createUserRequest struct {
	registerRequest
	Superuser   bool  `json:"superuser"`
	IsStaff     *bool `json:"is_staff"`
	IsSuperuser *bool `json:"is_superuser"`
	IsActive    *bool `json:"is_active"`
	AddressID   *uint `json:"address_id"`
	TelephoneID *uint `json:"telephone_id"`
	ProfileID   *uint `json:"profile_id"`
}

// Create lets staff create accounts, optionally without a password
// (invited accounts) or as superusers.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decode(w, r, &req) {
		return
	}
	v := validation.Violations{}
	validation.Email("email", req.Email, v)
	if !v.Empty() {
		httpx.LocalizedError(w, r, http.StatusBadRequest, "validation_failed", v)
		return
	}
	privileged := req.Superuser || req.IsSuperuser != nil || req.IsStaff != nil || req.ProfileID != nil
	if privileged && !h.gate.IsAdmin(r.Context()) {
		policy.WriteError(w, r, gate.ErrForbidden)
		return
	}

	fields := req.fields()
	fields.IsStaff, fields.IsSuperuser, fields.IsActive = req.IsStaff, req.IsSuperuser, req.IsActive
	fields.AddressID, fields.TelephoneID, fields.ProfileID = req.AddressID, req.TelephoneID, req.ProfileID

	create := h.accounts.CreateUser
	if req.Superuser {
		create = h.accounts.CreateSuperuser
	}
	user, err := create(r.Context(), req.Email, req.Password, fields)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

// load fetches the {id} user and authorizes action on it.
func (h *UserHandler) load(w http.ResponseWriter, r *http.Request, action gate.Action) (*models.User, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}
	user, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return nil, false
	}
	if err := h.gate.Authorize(r.Context(), action, policy.ResourceAccount, user); err != nil {
		policy.WriteError(w, r, err)
		return nil, false
	}
	return user, true
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := h.load(w, r, gate.ActionView)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

// Update applies a patch. Privilege flags are only honoured for admins.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := h.load(w, r, gate.ActionUpdate)
	if !ok {
		return
	}
	var patch services.UserPatch
	if !decode(w, r, &patch) {
		return
	}
	if !h.gate.IsAdmin(r.Context()) {
		patch = patch.SelfService()
	}
	updated, err := h.accounts.Update(r.Context(), user.ID, patch)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

// Delete soft-deletes the account.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := h.load(w, r, gate.ActionDelete)
	if !ok {
		return
	}
	if err := h.accounts.SoftDelete(r.Context(), user.ID); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.NoContent(w)
}

func (h *UserHandler) Restore(w http.ResponseWriter, r *http.Request) {
	user, ok := h.load(w, r, gate.ActionDelete)
	if !ok {
		return
	}
	if err := h.accounts.Restore(r.Context(), user.ID); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	restored, err := h.accounts.Get(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, restored)
}

type emailRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
	From    string `json:"from_email"`
	HTML    string `json:"html_message"`
}

func (h *UserHandler) Email(w http.ResponseWriter, r *http.Request) {
	user, ok := h.load(w, r, gate.ActionEmail)
	if !ok {
		return
	}
	var req emailRequest
	if !decode(w, r, &req) {
		return
	}
	v := validation.Violations{}
	validation.Required("subject", req.Subject, v)
	validation.Required("message", req.Message, v)
	if req.From != "" {
		validation.Email("from_email", req.From, v)
	}
	if !v.Empty() {
		httpx.LocalizedError(w, r, http.StatusBadRequest, "validation_failed", v)
		return
	}

	var opts []services.EmailOption
	if req.HTML != "" {
		opts = append(opts, services.WithHTML(req.HTML))
	}
	if err := h.accounts.EmailUser(r.Context(), user, req.Subject, req.Message, req.From, opts...); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.NoContent(w)
}

type assignProfileRequest struct {
	ProfileID *uint `json:"profile_id"`
}

// AssignProfile sets or clears (null) the user's profile. Admin only.
func (h *UserHandler) AssignProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req assignProfileRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.accounts.AssignProfile(r.Context(), id, req.ProfileID); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user_id": id, "profile_id": req.ProfileID})
}

type linkRequest struct {
	AddressID   *uint `json:"address_id"`
	TelephoneID *uint `json:"telephone_id"`
}

func (h *UserHandler) LinkAddress(w http.ResponseWriter, r *http.Request) {
	h.link(w, r, func(userID uint, req linkRequest) error {
		return h.refs.LinkAddress(r.Context(), userID, req.AddressID)
	})
}

func (h *UserHandler) LinkTelephone(w http.ResponseWriter, r *http.Request) {
	h.link(w, r, func(userID uint, req linkRequest) error {
		return h.refs.LinkTelephone(r.Context(), userID, req.TelephoneID)
	})
}

func (h *UserHandler) link(w http.ResponseWriter, r *http.Request, apply func(uint, linkRequest) error) {
	user, ok := h.load(w, r, gate.ActionUpdate)
	if !ok {
		return
	}
	var req linkRequest
	if !decode(w, r, &req) {
		return
	}
	if err := apply(user.ID, req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	updated, err := h.accounts.Get(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}
