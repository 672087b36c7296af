package httpkit

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the JSON shape of every error response: a fixed human message,
// the underlying cause in details and, for upstream failures, the status the
// provider answered with.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Status  int    `json:"status,omitempty"`
}

func DecodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func WriteErr(w http.ResponseWriter, status int, msg, details string) {
	WriteJSON(w, status, ErrorBody{Error: msg, Details: details})
}

func WriteErrBody(w http.ResponseWriter, status int, body ErrorBody) {
	WriteJSON(w, status, body)
}
