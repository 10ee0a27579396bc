// Package httpx provides JSON request/response helpers shared by the API handlers.
package httpx

import (
	"encoding/json"
	"net/http"
)

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Error sends the API error envelope: {"success":false,"error":...} plus any
// machine-readable context fields (invalid_account_ids, missing_items, ...).
func Error(w http.ResponseWriter, status int, message string, context map[string]any) {
	body := map[string]any{
		"success": false,
		"error":   message,
	}
	for k, v := range context {
		if k == "success" || k == "error" {
			continue
		}
		body[k] = v
	}
	JSON(w, status, body)
}

// DecodeJSON decodes the request body into target, rejecting unknown fields so
// malformed payloads fail at the boundary instead of deep inside the engine.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}
