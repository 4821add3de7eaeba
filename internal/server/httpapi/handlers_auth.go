package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/foodcrm/internal/common"
)

type registerResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (h *handlers) ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, common.PingResponse{Status: "OK"})
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	var in common.Credentials
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	user, err := h.users.Register(r.Context(), in.Username, in.Password)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	h.log.Info(r.Context(), "user registered", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, registerResponse{ID: user.ID, Username: user.UserName})
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	var in common.Credentials
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	tokens, err := h.users.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}

func (h *handlers) refresh(w http.ResponseWriter, r *http.Request) {
	var in common.RefreshRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if in.RefreshToken == "" {
		writeError(w, r, h.log, common.NewServiceError(http.StatusBadRequest, "refresh_token is required", common.ErrValidation))
		return
	}

	tokens, err := h.users.RefreshToken(r.Context(), in.RefreshToken)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, tokens)
}
