package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/diewo77/pipoca/gate"
	"github.com/diewo77/pipoca/httpx"
	"github.com/diewo77/pipoca/internal/models"
	"github.com/diewo77/pipoca/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AdminProfileHandler manages permission profiles (admin only).
type AdminProfileHandler struct {
	DB            *gorm.DB
	CacheResolver *gate.CachedResolver[uint] // To invalidate cache on changes
	log           *zap.Logger
}

func NewAdminProfileHandler(db *gorm.DB, cacheResolver *gate.CachedResolver[uint], log *zap.Logger) *AdminProfileHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminProfileHandler{DB: db, CacheResolver: cacheResolver, log: log}
}

type profileRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (req *profileRequest) validate() validation.Violations {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	v := validation.Violations{}
	validation.Required("name", req.Name, v)
	validation.MaxLen("name", req.Name, 100, v)
	validation.MaxLen("description", req.Description, 500, v)
	return v
}

// List returns every profile with its permissions.
func (h *AdminProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	var profiles []models.Profile
	if err := h.DB.WithContext(r.Context()).Preload("Permissions").Order("name").Find(&profiles).Error; err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profiles)
}

func (h *AdminProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !decode(w, r, &req) {
		return
	}
	if v := req.validate(); !v.Empty() {
		httpx.LocalizedError(w, r, http.StatusBadRequest, "validation_failed", v)
		return
	}

	profile := models.Profile{Name: req.Name, Description: req.Description}
	if err := h.DB.WithContext(r.Context()).Create(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			httpx.LocalizedError(w, r, http.StatusConflict, "name_already_exists", nil)
			return
		}
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, profile)
}

// Update renames or re-describes a profile.
func (h *AdminProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.load(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if !decode(w, r, &req) {
		return
	}
	if v := req.validate(); !v.Empty() {
		httpx.LocalizedError(w, r, http.StatusBadRequest, "validation_failed", v)
		return
	}
	profile.Name, profile.Description = req.Name, req.Description

	if err := h.DB.WithContext(r.Context()).Omit("Permissions").Save(profile).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			httpx.LocalizedError(w, r, http.StatusConflict, "name_already_exists", nil)
			return
		}
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}

// Delete removes a profile that is neither a system profile nor assigned.
func (h *AdminProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.load(w, r)
	if !ok {
		return
	}
	// Cannot delete system profiles (admin, staff, member)
	if profile.IsSystem {
		httpx.LocalizedError(w, r, http.StatusForbidden, "cannot_delete_system_profile", nil)
		return
	}

	var users int64
	if err := h.DB.WithContext(r.Context()).Model(&models.User{}).Where("profile_id = ?", profile.ID).Count(&users).Error; err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if users > 0 {
		httpx.LocalizedError(w, r, http.StatusConflict, "profile_has_users", nil)
		return
	}

	err := h.DB.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(profile).Association("Permissions").Clear(); err != nil {
			return err
		}
		return tx.Delete(profile).Error
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.NoContent(w)
}

type permissionsRequest struct {
	// Permissions are "resource:action" codes.
	Permissions []string `json:"permissions"`
}

// SetPermissions replaces the profile's permissions. Unknown codes are rejected.
func (h *AdminProfileHandler) SetPermissions(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.load(w, r)
	if !ok {
		return
	}
	var req permissionsRequest
	if !decode(w, r, &req) {
		return
	}

	permissions := make([]models.Permission, 0, len(req.Permissions))
	for _, code := range req.Permissions {
		resource, action := gate.Permission(code).Parse()
		var perm models.Permission
		err := h.DB.WithContext(r.Context()).Where("resource_type = ? AND action = ?", resource, string(action)).First(&perm).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.LocalizedError(w, r, http.StatusBadRequest, "validation_failed", map[string]string{"permissions": "invalid_choice"})
			return
		}
		if err != nil {
			writeError(w, r, h.log, err)
			return
		}
		permissions = append(permissions, perm)
	}

	// Replace the profile's permissions (GORM handles the many2many table)
	if err := h.DB.WithContext(r.Context()).Model(profile).Association("Permissions").Replace(permissions); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	// Invalidate all cache since this profile may affect multiple users
	if h.CacheResolver != nil {
		h.CacheResolver.InvalidateAll()
	}
	profile.Permissions = permissions
	httpx.JSON(w, http.StatusOK, profile)
}

// ListPermissions returns all available permissions.
func (h *AdminProfileHandler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	var permissions []models.Permission
	if err := h.DB.WithContext(r.Context()).Order("resource_type, action").Find(&permissions).Error; err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, permissions)
}

func (h *AdminProfileHandler) load(w http.ResponseWriter, r *http.Request) (*models.Profile, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}
	var profile models.Profile
	if err := h.DB.WithContext(r.Context()).Preload("Permissions").First(&profile, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httpx.LocalizedError(w, r, http.StatusNotFound, "not_found", nil)
			return nil, false
		}
		writeError(w, r, h.log, err)
		return nil, false
	}
	return &profile, true
}
