package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/foodcrm/internal/common"
	"github.com/dmitrijs2005/foodcrm/internal/logging"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError answers with the ServiceError shape. Internal failures are
// logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, log logging.Logger, err error) {
	status := common.StatusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = http.StatusText(status)
	}
	var se *common.ServiceError
	if errors.As(err, &se) && se.StatusCode == status && status < http.StatusInternalServerError {
		msg = se.Message
	}
	writeJSON(w, status, common.ServiceError{Message: msg, StatusCode: status})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", common.ErrValidation, err)
	}
	return nil
}
