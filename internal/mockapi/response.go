package mockapi

import (
	"encoding/json"
	"net/http"
)

// errorBody is the provider's {error, error_description} envelope.
type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// noCache marks sensitive responses, like tokens, as non-cacheable.
func noCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

func writeError(w http.ResponseWriter, code int, errCode, description string) {
	writeJSON(w, code, errorBody{Error: errCode, ErrorDescription: description})
}
