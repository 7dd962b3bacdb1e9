// It defines the API server, sets up the routes (endpoints)
// using chi, and links them to the handler functions.

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vrsandeep/turntable-go/internal/core"
)

const defaultRequestTimeout = 60 * time.Second

// Server holds the dependencies for our API.
type Server struct {
	app *core.App
}

// NewServer creates a new Server instance.
func NewServer(app *core.App) *Server {
	return &Server{app: app}
}

// Router sets up and returns the main router for the application.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)    // Logs requests to the console
	r.Use(middleware.Recoverer) // Recovers from panics

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.requestTimeout()))

			r.Get("/version", s.handleGetVersion)
			r.Get("/health", s.handleHealth)

			// Acquisition job
			r.Group(func(r chi.Router) {
				r.Use(NoCache)
				r.Post("/job", s.handleSubmitJob)
				r.Get("/job", s.handleGetProgress)
				r.Delete("/job", s.handleCancelJob)
				r.Get("/jobs/history", s.handleGetJobHistory)
				r.Get("/jobs/history/{id}", s.handleGetJobRun)
				r.Get("/images", s.handleListImages)
			})

			// Captured images
			r.Get("/images/{name}", s.handleGetImage)
		})

		// Streams for as long as the client needs; no request timeout.
		r.Get("/images.zip", s.handleDownloadArchive)
	})

	// WebSocket route
	r.Get("/ws/progress", func(w http.ResponseWriter, r *http.Request) {
		s.app.WsHub().ServeWs(w, r)
	})

	return r
}

func (s *Server) requestTimeout() time.Duration {
	if t := s.app.Config().RequestTimeout; t > 0 {
		return t
	}
	return defaultRequestTimeout
}
