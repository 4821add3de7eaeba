package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dmitrijs2005/foodcrm/internal/crm"
)

func (h *handlers) list(w http.ResponseWriter, r *http.Request) {
	table := mux.Vars(r)["table"]
	schema, err := crm.SchemaFor(table)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	q, err := crm.ParseQuery(schema, r.URL.Query())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	page, err := h.entities.List(r.Context(), table, q)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handlers) get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	row, err := h.entities.Get(r.Context(), vars["table"], vars["id"])
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	var in crm.Patch
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	userID, _ := UserID(r.Context())

	row, err := h.entities.Create(r.Context(), userID, mux.Vars(r)["table"], in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (h *handlers) update(w http.ResponseWriter, r *http.Request) {
	var in crm.Patch
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	vars := mux.Vars(r)
	userID, _ := UserID(r.Context())

	row, err := h.entities.Update(r.Context(), userID, vars["table"], vars["id"], in)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *handlers) delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, _ := UserID(r.Context())

	if err := h.entities.Delete(r.Context(), userID, vars["table"], vars["id"]); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) bulkDelete(w http.ResponseWriter, r *http.Request) {
	var in crm.BulkDeleteRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	userID, _ := UserID(r.Context())

	res, err := h.entities.DeleteMany(r.Context(), userID, mux.Vars(r)["table"], in.IDs)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) bulkUpdate(w http.ResponseWriter, r *http.Request) {
	var in crm.BulkUpdateRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	userID, _ := UserID(r.Context())

	res, err := h.entities.UpdateMany(r.Context(), userID, mux.Vars(r)["table"], in.Updates)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
