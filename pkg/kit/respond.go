package kit

import (
	"encoding/json"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind,omitempty"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string, details any) {
	WriteKindError(w, r, status, "", msg, details)
}

// WriteKindError writes the error envelope with a machine-readable kind so a
// client can rebuild the engine error.
func WriteKindError(w http.ResponseWriter, r *http.Request, status int, kind, msg string, details any) {
	WriteJSON(w, status, ErrorResponse{
		Error:     msg,
		Kind:      kind,
		Details:   details,
		RequestID: chimw.GetReqID(r.Context()),
	})
}
