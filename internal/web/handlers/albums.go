package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-library/internal/library"
)

// AlbumsHandler handles album-related endpoints
type AlbumsHandler struct {
	base
}

// NewAlbumsHandler creates a new albums handler
func NewAlbumsHandler(lib *library.Library, failures FailureObserver) *AlbumsHandler {
	return &AlbumsHandler{base{lib: lib, failures: failures}}
}

// List returns all albums
func (h *AlbumsHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.lib.ListAlbums())
}

// Get returns a single album
func (h *AlbumsHandler) Get(w http.ResponseWriter, r *http.Request) {
	album, err := h.lib.GetAlbum(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, album)
}

// Create creates a new album
func (h *AlbumsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req library.Album
	if !decode(w, r, &req) {
		return
	}

	album, err := h.lib.CreateAlbum(req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, album)
}

// Update applies a partial update to an album
func (h *AlbumsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch library.AlbumPatch
	if !decode(w, r, &patch) {
		return
	}

	album, err := h.lib.UpdateAlbum(chi.URLParam(r, "id"), patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, album)
}

// Delete removes an album. Its photos are kept without an album.
func (h *AlbumsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	album, err := h.lib.DeleteAlbum(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, album)
}

// Photos returns photos in an album
func (h *AlbumsHandler) Photos(w http.ResponseWriter, r *http.Request) {
	photos, err := h.lib.PhotosForAlbum(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, photos)
}

// AddPhotos adds the photos listed in the body (a JSON array of ids) to an album
func (h *AlbumsHandler) AddPhotos(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if !decode(w, r, &ids) {
		return
	}

	added, err := h.lib.AddPhotosToAlbum(chi.URLParam(r, "id"), ids)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, added)
}

// RemovePhotos takes the photos listed in the body out of an album
func (h *AlbumsHandler) RemovePhotos(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if !decode(w, r, &ids) {
		return
	}

	removed, err := h.lib.RemovePhotosFromAlbum(chi.URLParam(r, "id"), ids)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, removed)
}

// CoverResponse is the cover of an album. The id is empty when no cover is set.
type CoverResponse struct {
	CoverPhotoID string `json:"cover_photo_id"`
}

// Cover returns the cover photo id of an album
func (h *AlbumsHandler) Cover(w http.ResponseWriter, r *http.Request) {
	album, err := h.lib.GetAlbum(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, CoverResponse{CoverPhotoID: album.CoverPhotoID})
}

// SetCover makes a photo the cover of an album
func (h *AlbumsHandler) SetCover(w http.ResponseWriter, r *http.Request) {
	photoID := chi.URLParam(r, "photoId")
	album, err := h.lib.UpdateAlbum(chi.URLParam(r, "id"), library.AlbumPatch{CoverPhotoID: &photoID})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, album)
}
