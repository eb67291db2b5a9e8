package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-library/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	var failures handlers.FailureObserver
	if s.metrics != nil {
		failures = s.metrics
	}

	healthHandler := handlers.NewHealthHandler(s.lib)
	photosHandler := handlers.NewPhotosHandler(s.lib, failures)
	personsHandler := handlers.NewPersonsHandler(s.lib, failures)
	albumsHandler := handlers.NewAlbumsHandler(s.lib, failures)
	facesHandler := handlers.NewFacesHandler(s.config, s.lib, s.faceIndex, failures)
	searchHandler := handlers.NewSearchHandler(s.lib)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.Check)
		if s.metrics != nil {
			r.Handle("/metrics", s.metrics.Handler())
		}

		// Photos
		r.Get("/photos", photosHandler.List)
		r.Post("/photos", photosHandler.Create)
		r.Get("/photos/{id}", photosHandler.Get)
		r.Put("/photos/{id}", photosHandler.Update)
		r.Delete("/photos/{id}", photosHandler.Delete)
		r.Get("/photos/{id}/faces", photosHandler.Faces)
		r.Get("/photos/{id}/faces/overlay", photosHandler.Overlay)

		// Persons
		r.Get("/persons", personsHandler.List)
		r.Post("/persons", personsHandler.Create)
		r.Get("/persons/search", personsHandler.Search)
		r.Get("/persons/{id}", personsHandler.Get)
		r.Put("/persons/{id}", personsHandler.Update)
		r.Delete("/persons/{id}", personsHandler.Delete)
		r.Get("/persons/{id}/photos", personsHandler.Photos)
		r.Get("/persons/{id}/faces", personsHandler.Faces)

		// Albums
		r.Get("/albums", albumsHandler.List)
		r.Post("/albums", albumsHandler.Create)
		r.Get("/albums/{id}", albumsHandler.Get)
		r.Put("/albums/{id}", albumsHandler.Update)
		r.Delete("/albums/{id}", albumsHandler.Delete)
		r.Get("/albums/{id}/photos", albumsHandler.Photos)
		r.Post("/albums/{id}/photos", albumsHandler.AddPhotos)
		r.Delete("/albums/{id}/photos", albumsHandler.RemovePhotos)
		r.Get("/albums/{id}/cover", albumsHandler.Cover)
		r.Put("/albums/{id}/cover/{photoId}", albumsHandler.SetCover)

		// Faces
		r.Post("/faces", facesHandler.Create)
		r.Get("/faces/{id}", facesHandler.Get)
		r.Put("/faces/{id}", facesHandler.Update)
		r.Delete("/faces/{id}", facesHandler.Delete)
		r.Get("/faces/{id}/suggestions", facesHandler.Suggestions)

		r.Get("/search", searchHandler.Search)
	})
}
