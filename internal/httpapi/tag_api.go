package httpapi

import (
	"encoding/json"
	"net/http"

	"myfeed/internal/models"
)

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.tags.List(r.Context())
	if err != nil {
		s.internalError(w, "list tags", err)
		return
	}
	s.respondJSON(w, http.StatusOK, tags)
}

func (s *Server) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var tag models.Tag
	if err := json.NewDecoder(r.Body).Decode(&tag); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if tag.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	if err := s.tags.Insert(r.Context(), &tag); err != nil {
		s.internalError(w, "create tag", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, tag)
}

func (s *Server) handleGetTag(w http.ResponseWriter, r *http.Request) {
	tag, err := s.tags.GetByName(r.Context(), r.PathValue("name"))
	if err != nil {
		s.internalError(w, "get tag", err)
		return
	}
	if tag == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	s.respondJSON(w, http.StatusOK, tag)
}

func (s *Server) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	if err := s.tags.Delete(r.Context(), r.PathValue("name")); err != nil {
		s.internalError(w, "delete tag", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
