package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/vrsandeep/turntable-go/internal/models"
	"github.com/vrsandeep/turntable-go/internal/sequencer"
	"github.com/vrsandeep/turntable-go/internal/store"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	maxJobBodyBytes     = 64 << 10
)

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var spec models.JobSpec
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJobBodyBytes))
	if err := dec.Decode(&spec); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondWithError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if dec.More() {
		RespondWithError(w, http.StatusBadRequest, "Unexpected data after job specification")
		return
	}
	log.Printf("Received job: rounds=%v", spec.Rounds)

	status, err := s.app.Controller().Submit(spec)
	if err != nil {
		if errors.Is(err, sequencer.ErrInvalidSpec) {
			RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("Job submission failed: %v", err)
		RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	RespondWithJSON(w, http.StatusAccepted, status)
}

func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, s.app.Controller().Progress())
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	status := s.app.Controller().Cancel()
	RespondWithJSON(w, http.StatusOK, status)
}

func (s *Server) handleGetJobHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			RespondWithError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	runs, err := s.app.Store().ListJobRuns(limit)
	if err != nil {
		log.Printf("Failed to list job history: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to load job history")
		return
	}
	RespondWithJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetJobRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.app.Store().GetJobRun(id)
	if err != nil {
		if errors.Is(err, store.ErrJobRunNotFound) {
			RespondWithError(w, http.StatusNotFound, "Job run not found")
			return
		}
		log.Printf("Failed to load job run %s: %v", id, err)
		RespondWithError(w, http.StatusInternalServerError, "Failed to load job run")
		return
	}
	RespondWithJSON(w, http.StatusOK, run)
}
