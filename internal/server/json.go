package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/playmix/trackclash/internal/store"
	"github.com/playmix/trackclash/internal/trackclash"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps domain error codes onto HTTP statuses. The
// domain message text is displayable as-is, so it goes straight out.
func writeServiceError(w http.ResponseWriter, err error) {
	var derr *trackclash.Error
	if errors.As(err, &derr) {
		writeError(w, httpStatus(derr.Code), derr.Message)
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}

func httpStatus(code trackclash.Code) int {
	switch code {
	case trackclash.CodeInvalidArgument:
		return http.StatusBadRequest
	case trackclash.CodeNotFound:
		return http.StatusNotFound
	case trackclash.CodePermissionDenied:
		return http.StatusForbidden
	case trackclash.CodeFailedPrecondition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
