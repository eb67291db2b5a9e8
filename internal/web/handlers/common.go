package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/kozaktomas/photo-library/internal/constants"
	"github.com/kozaktomas/photo-library/internal/facematch"
	"github.com/kozaktomas/photo-library/internal/library"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// FailureObserver is notified of every library error a handler turns into a response.
type FailureObserver interface {
	ObserveFailure(err error)
}

// base carries what every resource handler needs.
type base struct {
	lib      *library.Library
	failures FailureObserver
}

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps library error kinds to HTTP status codes.
// Geometry is checked first since invalid face boxes are also validation errors.
func statusFor(err error) int {
	switch {
	case errors.Is(err, facematch.ErrInvalidGeometry):
		return http.StatusUnprocessableEntity
	case errors.Is(err, library.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, library.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, library.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail reports a library error to the client.
func (b *base) fail(w http.ResponseWriter, r *http.Request, err error) {
	if b.failures != nil {
		b.failures.ObserveFailure(err)
	}
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", r.Method, sanitizeForLog(r.URL.Path), err)
		respondError(w, status, "internal error")
		return
	}
	respondError(w, status, err.Error())
}

// decode reads a JSON body into dst, rejecting unknown fields.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return false
	}
	return true
}

// parsePage reads the optional limit and page query parameters. Without
// either the whole listing is returned. On bad input it writes a 400 and
// returns false.
func parsePage(w http.ResponseWriter, r *http.Request) (library.Page, bool) {
	q := r.URL.Query()
	limitParam, pageParam := q.Get("limit"), q.Get("page")
	if limitParam == "" && pageParam == "" {
		return library.Page{}, true
	}

	page := library.Page{Limit: constants.DefaultPageLimit}
	if limitParam != "" {
		n, err := strconv.Atoi(limitParam)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return library.Page{}, false
		}
		page.Limit = min(n, constants.MaxPageLimit)
	}
	if pageParam != "" {
		n, err := strconv.Atoi(pageParam)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "page must be a non-negative integer")
			return library.Page{}, false
		}
		page.Number = n
	}
	return page, true
}

// HealthHandler reports liveness and entity counts.
type HealthHandler struct {
	lib *library.Library
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(lib *library.Library) *HealthHandler {
	return &HealthHandler{lib: lib}
}

// Check handles the health check endpoint.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"stats":  h.lib.Stats(),
	})
}
