// Package handlers exposes the account and reference services as a JSON API.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/diewo77/pipoca/gate"
	"github.com/diewo77/pipoca/httpx"
	"github.com/diewo77/pipoca/internal/policy"
	"github.com/diewo77/pipoca/internal/services"
	"go.uber.org/zap"
)

// writeError maps service and gate errors to HTTP responses.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var verr *services.ValidationError
	var tf *services.TransportFailure
	switch {
	case errors.As(err, &verr):
		httpx.LocalizedError(w, r, http.StatusBadRequest, "validation_failed", verr.Violations)
	case errors.Is(err, services.ErrDuplicateEmail):
		httpx.LocalizedError(w, r, http.StatusConflict, "email_already_exists", map[string]string{"email": "email_already_exists"})
	case errors.Is(err, services.ErrUniquenessViolation):
		httpx.LocalizedError(w, r, http.StatusConflict, "already_exists", nil)
	case errors.Is(err, services.ErrNotFound):
		httpx.LocalizedError(w, r, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, services.ErrInvalidCredentials):
		httpx.LocalizedError(w, r, http.StatusUnauthorized, "invalid_credentials", nil)
	case errors.Is(err, gate.ErrUnauthorized), errors.Is(err, gate.ErrForbidden):
		policy.WriteError(w, r, err)
	case errors.As(err, &tf):
		httpx.LocalizedError(w, r, http.StatusBadGateway, "mail_failed", nil)
	default:
		log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		httpx.LocalizedError(w, r, http.StatusInternalServerError, "internal_error", nil)
	}
}

// decode reads a JSON body, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := httpx.DecodeJSON(r, dst)
	if err == nil {
		return true
	}
	var perr *time.ParseError
	if errors.As(err, &perr) {
		httpx.LocalizedError(w, r, http.StatusBadRequest, "invalid_date", nil)
		return false
	}
	httpx.LocalizedError(w, r, http.StatusBadRequest, "invalid_json", nil)
	return false
}

// pathID parses the {id} wildcard; invalid ids answer 404.
func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil || id == 0 {
		httpx.LocalizedError(w, r, http.StatusNotFound, "not_found", nil)
		return 0, false
	}
	return uint(id), true
}

// queryBool returns nil when the parameter is absent or not a boolean.
func queryBool(r *http.Request, key string) *bool {
	b, err := strconv.ParseBool(r.URL.Query().Get(key))
	if err != nil {
		return nil
	}
	return &b
}

func queryInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}
