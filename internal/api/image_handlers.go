package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vrsandeep/turntable-go/internal/imagestore"
)

const imagesPath = "/api/images/"

func (s *Server) handleListImages(w http.ResponseWriter, r *http.Request) {
	names := s.app.Images().List()
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = imagesPath + name
	}
	RespondWithJSON(w, http.StatusOK, paths)
}

func (s *Server) handleGetImage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	data, err := s.app.Images().Fetch(name)
	if err != nil {
		if errors.Is(err, imagestore.ErrNotFound) {
			RespondWithError(w, http.StatusNotFound, "Image not found")
			return
		}
		log.Printf("Error serving image %s: %v", name, err)
		RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleDownloadArchive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="images.zip"`)
	// Headers are already sent once streaming starts, so failures can
	// only be logged.
	if err := s.app.Images().Archive(r.Context(), w); err != nil {
		log.Printf("Error writing image archive: %v", err)
	}
}
