package httpapi

import (
	"encoding/json"
	"net/http"
	"time"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError sends the JSON error shape for err.
func writeError(w http.ResponseWriter, err error, now time.Time) {
	status, body := errorResponse(err, now)
	writeJSON(w, status, body)
}
