// file: internal/handlers/request.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"promptvault/internal/contextutils"
	"promptvault/internal/services"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// PathID parses a positive int64 URL parameter.
func PathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, services.InvalidInputError(name, "must be a positive integer")
	}
	return id, nil
}

// QueryInt parses an optional integer query parameter. Missing means zero.
func QueryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, services.InvalidInputError(name, "must be an integer")
	}
	return n, nil
}

// DecodeJSON reads a single JSON object into dst, rejecting unknown fields.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return services.NewValidationError("request body is required", err)
		}
		return services.NewValidationError("invalid request body format", err)
	}
	if dec.More() {
		return services.NewValidationError("request body must contain a single JSON object", nil)
	}
	return nil
}

// CurrentUser returns the authenticated caller or an unauthorized error.
func CurrentUser(r *http.Request) (int64, error) {
	userID, ok := contextutils.GetUserID(r.Context())
	if !ok {
		return 0, services.NewUnauthorizedError("authentication required")
	}
	return userID, nil
}
