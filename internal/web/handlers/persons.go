package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-library/internal/library"
)

// PersonsHandler handles person-related endpoints
type PersonsHandler struct {
	base
}

// NewPersonsHandler creates a new persons handler
func NewPersonsHandler(lib *library.Library, failures FailureObserver) *PersonsHandler {
	return &PersonsHandler{base{lib: lib, failures: failures}}
}

// List returns all persons ordered by display name
func (h *PersonsHandler) List(w http.ResponseWriter, r *http.Request) {
	page, ok := parsePage(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, h.lib.ListPersonsPage(page))
}

// Search returns persons whose name contains the q parameter
func (h *PersonsHandler) Search(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.lib.SearchPersons(r.URL.Query().Get("q")))
}

// Get returns a single person
func (h *PersonsHandler) Get(w http.ResponseWriter, r *http.Request) {
	person, err := h.lib.GetPerson(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, person)
}

// Create stores a new person
func (h *PersonsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req library.Person
	if !decode(w, r, &req) {
		return
	}

	person, err := h.lib.CreatePerson(req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, person)
}

// Update renames a person or changes the avatar
func (h *PersonsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch library.PersonPatch
	if !decode(w, r, &patch) {
		return
	}

	person, err := h.lib.UpdatePerson(chi.URLParam(r, "id"), patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, person)
}

// Delete removes a person from the library, returning the removed person
func (h *PersonsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	person, err := h.lib.DeletePerson(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, person)
}

// Photos returns the photos a person appears in
func (h *PersonsHandler) Photos(w http.ResponseWriter, r *http.Request) {
	photos, err := h.lib.PhotosForPerson(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, photos)
}

// Faces returns the faces assigned to a person
func (h *PersonsHandler) Faces(w http.ResponseWriter, r *http.Request) {
	faces, err := h.lib.FacesForPerson(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, faces)
}
