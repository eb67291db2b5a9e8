package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-library/internal/constants"
	"github.com/kozaktomas/photo-library/internal/facematch"
	"github.com/kozaktomas/photo-library/internal/library"
)

// PhotosHandler handles photo-related endpoints
type PhotosHandler struct {
	base
}

// NewPhotosHandler creates a new photos handler
func NewPhotosHandler(lib *library.Library, failures FailureObserver) *PhotosHandler {
	return &PhotosHandler{base{lib: lib, failures: failures}}
}

// PhotoResponse is a photo together with the persons resolved for it.
type PhotoResponse struct {
	library.Photo
	People []library.Person `json:"people"`
}

// FaceOverlay is a face box projected onto a display.
type FaceOverlay struct {
	FaceID     string         `json:"face_id"`
	PersonID   string         `json:"person_id,omitempty"`
	PersonName string         `json:"person_name,omitempty"`
	Rect       facematch.Rect `json:"rect"`
}

// List returns photos, most recent first, optionally one page at a time
func (h *PhotosHandler) List(w http.ResponseWriter, r *http.Request) {
	page, ok := parsePage(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.lib.ListPhotosPage(page))
}

// Get returns a single photo with its people
func (h *PhotosHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	photo, err := h.lib.GetPhoto(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	people, err := h.lib.PersonsOf(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, PhotoResponse{Photo: photo, People: people})
}

// Create stores a new photo
func (h *PhotosHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req library.Photo
	if !decode(w, r, &req) {
		return
	}

	photo, err := h.lib.CreatePhoto(req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, photo)
}

// Update applies a partial update to a photo
func (h *PhotosHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch library.PhotoPatch
	if !decode(w, r, &patch) {
		return
	}

	photo, err := h.lib.UpdatePhoto(chi.URLParam(r, "id"), patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, photo)
}

// Delete removes a photo and its faces, returning the removed photo
func (h *PhotosHandler) Delete(w http.ResponseWriter, r *http.Request) {
	photo, err := h.lib.DeletePhoto(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, photo)
}

// Faces returns the faces detected in a photo
func (h *PhotosHandler) Faces(w http.ResponseWriter, r *http.Request) {
	faces, err := h.lib.GetFacesInPhoto(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, faces)
}

// Overlay projects the faces of a photo onto a display of width x height pixels
func (h *PhotosHandler) Overlay(w http.ResponseWriter, r *http.Request) {
	width, errW := strconv.ParseFloat(r.URL.Query().Get("width"), 64)
	height, errH := strconv.ParseFloat(r.URL.Query().Get("height"), 64)
	if errW != nil || errH != nil {
		respondError(w, http.StatusBadRequest, "width and height must be numbers")
		return
	}
	if width > constants.MaxDisplayDimension || height > constants.MaxDisplayDimension {
		respondError(w, http.StatusBadRequest, "display size too large")
		return
	}

	if err := facematch.ValidateDisplay(width, height); err != nil {
		h.fail(w, r, err)
		return
	}

	faces, err := h.lib.GetFacesInPhoto(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	overlays := make([]FaceOverlay, 0, len(faces))
	for _, f := range faces {
		rect, err := facematch.ProjectBox(f.Box, width, height)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		o := FaceOverlay{FaceID: f.ID, PersonID: f.PersonID, Rect: rect}
		if f.Identified() {
			if p, err := h.lib.GetPerson(f.PersonID); err == nil {
				o.PersonName = p.DisplayName()
			}
		}
		overlays = append(overlays, o)
	}

	respondJSON(w, http.StatusOK, overlays)
}
