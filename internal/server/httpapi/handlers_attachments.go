package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/foodcrm/internal/common"
)

type uploadURLRequest struct {
	ContentType string `json:"content_type"`
}

func (h *handlers) uploadURL(w http.ResponseWriter, r *http.Request) {
	var in uploadURLRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	userID, _ := UserID(r.Context())

	out, err := h.attachments.UploadURL(r.Context(), userID, in.ContentType)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) downloadURL(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, r, h.log, common.NewServiceError(http.StatusBadRequest, "key is required", common.ErrValidation))
		return
	}

	u, err := h.attachments.DownloadURL(r.Context(), key)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, common.PresignedURL{Key: key, URL: u})
}
