package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-library/internal/config"
	"github.com/kozaktomas/photo-library/internal/constants"
	"github.com/kozaktomas/photo-library/internal/database"
	"github.com/kozaktomas/photo-library/internal/library"
)

// FacesHandler handles face endpoints
type FacesHandler struct {
	base
	config *config.Config
	index  *database.FaceIndex
}

// NewFacesHandler creates a new faces handler. index may be nil, in which case
// suggestions are always empty.
func NewFacesHandler(cfg *config.Config, lib *library.Library, index *database.FaceIndex, failures FailureObserver) *FacesHandler {
	return &FacesHandler{
		base:   base{lib: lib, failures: failures},
		config: cfg,
		index:  index,
	}
}

// SuggestionResponse is a face suggestion with the person's display name.
type SuggestionResponse struct {
	database.Suggestion
	PersonName string `json:"person_name"`
}

// Get returns a single face
func (h *FacesHandler) Get(w http.ResponseWriter, r *http.Request) {
	face, err := h.lib.GetFace(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, face)
}

// Create records a detected face in a photo
func (h *FacesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req library.Face
	if !decode(w, r, &req) {
		return
	}

	face, err := h.lib.CreateFace(req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, face)
}

// Update assigns a face to a person or changes its box
func (h *FacesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch library.FacePatch
	if !decode(w, r, &patch) {
		return
	}

	face, err := h.lib.UpdateFace(chi.URLParam(r, "id"), patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, face)
}

// Delete removes a face
func (h *FacesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	face, err := h.lib.DeleteFace(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, face)
}

// Suggestions returns persons whose identified faces resemble the given face
func (h *FacesHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	limit := h.config.Library.SuggestLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, constants.MaxSuggestLimit)
	}

	face, err := h.lib.GetFace(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out := []SuggestionResponse{}
	if h.index == nil || len(face.Embedding) == 0 {
		respondJSON(w, http.StatusOK, out)
		return
	}

	for _, s := range h.index.Suggest(face.Embedding, limit, h.config.Library.SuggestMaxDistance, face.ID) {
		person, err := h.lib.GetPerson(s.PersonID)
		if err != nil {
			// deleted since the index was read
			continue
		}
		out = append(out, SuggestionResponse{Suggestion: s, PersonName: person.DisplayName()})
	}

	respondJSON(w, http.StatusOK, out)
}
