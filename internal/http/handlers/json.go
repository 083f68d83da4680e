package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/diagnosis/studio16/internal/http/response"
)

const maxJSONBody = 1 << 20

// decodeJSON reads the request body into v, writing the error response itself on failure.
// An empty body decodes as the zero value.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(v); err != nil {
		response.BadRequest(w, "Invalid JSON format")
		return false
	}
	return true
}
