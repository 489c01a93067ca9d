package handlers

import (
	"net/http"

	"github.com/diewo77/pipoca/httpx"
	"github.com/diewo77/pipoca/internal/services"
	"go.uber.org/zap"
)

// ReferenceHandler serves /addresses, /telephones and /occupations.
// Route-level permission middleware guards every method.
type ReferenceHandler struct {
	refs *services.ReferenceService
	log  *zap.Logger
}

func NewReferenceHandler(refs *services.ReferenceService, log *zap.Logger) *ReferenceHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReferenceHandler{refs: refs, log: log}
}

// respond writes v with status, or the mapped error.
func (h *ReferenceHandler) respond(w http.ResponseWriter, r *http.Request, status int, v any, err error) {
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, status, v)
}

func (h *ReferenceHandler) deleted(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	httpx.NoContent(w)
}

// Addresses

func (h *ReferenceHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	rows, err := h.refs.ListAddresses(r.Context())
	h.respond(w, r, http.StatusOK, rows, err)
}

func (h *ReferenceHandler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	var in services.AddressInput
	if !decode(w, r, &in) {
		return
	}
	row, err := h.refs.CreateAddress(r.Context(), in)
	h.respond(w, r, http.StatusCreated, row, err)
}

func (h *ReferenceHandler) GetAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	row, err := h.refs.GetAddress(r.Context(), id)
	h.respond(w, r, http.StatusOK, row, err)
}

func (h *ReferenceHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var p services.AddressPatch
	if !decode(w, r, &p) {
		return
	}
	row, err := h.refs.UpdateAddress(r.Context(), id, p)
	h.respond(w, r, http.StatusOK, row, err)
}

func (h *ReferenceHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h.deleted(w, r, h.refs.DeleteAddress(r.Context(), id))
}

// Telephones

func (h *ReferenceHandler) ListTelephones(w http.ResponseWriter, r *http.Request) {
	rows, err := h.refs.ListTelephones(r.Context())
	h.respond(w, r, http.StatusOK, rows, err)
}

func (h *ReferenceHandler) CreateTelephone(w http.ResponseWriter, r *http.Request) {
	var in services.TelephoneInput
	if !decode(w, r, &in) {
		return
	}
	row, err := h.refs.CreateTelephone(r.Context(), in)
	h.respond(w, r, http.StatusCreated, row, err)
}

func (h *ReferenceHandler) GetTelephone(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	row, err := h.refs.GetTelephone(r.Context(), id)
	h.respond(w, r, http.StatusOK, row, err)
}

func (h *ReferenceHandler) UpdateTelephone(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var p services.TelephonePatch
	if !decode(w, r, &p) {
		return
	}
	row, err := h.refs.UpdateTelephone(r.Context(), id, p)
	h.respond(w, r, http.StatusOK, row, err)
}

func (h *ReferenceHandler) DeleteTelephone(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h.deleted(w, r, h.refs.DeleteTelephone(r.Context(), id))
}

// Occupations

func (h *ReferenceHandler) ListOccupations(w http.ResponseWriter, r *http.Request) {
	rows, err := h.refs.ListOccupations(r.Context())
	h.respond(w, r, http.StatusOK, rows, err)
}

func (h *ReferenceHandler) CreateOccupation(w http.ResponseWriter, r *http.Request) {
	var in services.OccupationInput
	if !decode(w, r, &in) {
		return
	}
	row, err := h.refs.CreateOccupation(r.Context(), in)
	h.respond(w, r, http.StatusCreated, row, err)
}

func (h *ReferenceHandler) GetOccupation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	row, err := h.refs.GetOccupation(r.Context(), id)
	h.respond(w, r, http.StatusOK, row, err)
}

func (h *ReferenceHandler) UpdateOccupation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in services.OccupationInput
	if !decode(w, r, &in) {
		return
	}
	row, err := h.refs.UpdateOccupation(r.Context(), id, in)
	h.respond(w, r, http.StatusOK, row, err)
}

func (h *ReferenceHandler) DeleteOccupation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	h.deleted(w, r, h.refs.DeleteOccupation(r.Context(), id))
}
