package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"myfeed/internal/logging"
	"myfeed/internal/models"
)

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.sources.List(r.Context())
	if err != nil {
		s.internalError(w, "list sources", err)
		return
	}
	s.respondJSON(w, http.StatusOK, sources)
}

func (s *Server) handleCreateSource(w http.ResponseWriter, r *http.Request) {
	var source models.Source
	if err := json.NewDecoder(r.Body).Decode(&source); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if source.Name == "" || source.URL == "" {
		http.Error(w, "name and url are required", http.StatusBadRequest)
		return
	}

	// A fresh source has never published or been polled from our point of
	// view; the first cycle fills these in.
	source.LastPub = time.Now().UTC()
	source.LastPoll = nil

	if err := s.sources.Insert(r.Context(), &source); err != nil {
		s.internalError(w, "create source", err)
		return
	}

	// Pick the new source up right away instead of waiting out the sleep
	// window.
	s.poller.Trigger()

	s.respondJSON(w, http.StatusCreated, source)
}

func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	source, err := s.sources.GetByID(r.Context(), id)
	if err != nil {
		s.internalError(w, "get source", err)
		return
	}
	if source == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	s.respondJSON(w, http.StatusOK, source)
}

func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	if err := s.sources.Delete(r.Context(), id); err != nil {
		s.internalError(w, "delete source", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSourceTags(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	tags, err := s.sources.Tags(r.Context(), id)
	if err != nil {
		s.internalError(w, "list source tags", err)
		return
	}
	s.respondJSON(w, http.StatusOK, tags)
}

func (s *Server) handleAddSourceTags(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	var body struct {
		Names []string `json:"names"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.sources.AddTags(r.Context(), id, body.Names); err != nil {
		s.internalError(w, "add source tags", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveSourceTag(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	if err := s.sources.RemoveTag(r.Context(), id, r.PathValue("name")); err != nil {
		s.internalError(w, "remove source tag", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// pathID parses the {id} path segment, replying 400 on garbage.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (s *Server) internalError(w http.ResponseWriter, operation string, err error) {
	s.logger.Error("Request failed", logging.WithFields(map[string]interface{}{
		"operation": operation,
		"error":     err.Error(),
	}))
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
