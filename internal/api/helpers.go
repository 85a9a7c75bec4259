package api

import (
	"encoding/json"
	"io"
	"net/http"

	"monolith.network/netpkg/internal/errors"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// WriteJSON sends v as a JSON response.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// WriteData sends a successful envelope carrying data.
func WriteData(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// WriteError sends a failed envelope with a status derived from the
// error kind.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, StatusFor(err), Envelope{Success: false, Error: err.Error()})
}

// WriteResult sends data, or err when it is non-nil.
func WriteResult(w http.ResponseWriter, data any, err error) {
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteData(w, data)
}

// StatusFor maps an error kind to an HTTP status.
func StatusFor(err error) int {
	switch errors.GetKind(err) {
	case errors.KindValidation, errors.KindParse:
		return http.StatusBadRequest
	case errors.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON decodes the request body into v, which callers pre-fill
// with defaults. Unknown fields are ignored and an empty body leaves v
// untouched.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || err == io.EOF {
		return nil
	}
	return errors.Wrap(err, errors.KindValidation, "invalid request body")
}
