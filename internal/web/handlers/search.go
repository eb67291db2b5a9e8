package handlers

import (
	"net/http"

	"github.com/kozaktomas/photo-library/internal/library"
)

// SearchHandler handles free-text photo search
type SearchHandler struct {
	base
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(lib *library.Library) *SearchHandler {
	return &SearchHandler{base{lib: lib}}
}

// Search returns photos matching q by title or by the name of a person in them
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.lib.Search(r.URL.Query().Get("q")))
}
