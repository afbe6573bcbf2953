package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"myfeed/internal/database"
	"myfeed/internal/models"
)

const defaultFeedDays = 7

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	days := defaultFeedDays
	if v := r.URL.Query().Get("days"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			days = parsed
		}
	}
	includeDone := r.URL.Query().Get("include_done") == "true"

	items, err := s.items.Feed(r.Context(), time.Duration(days)*24*time.Hour, includeDone)
	if err != nil {
		s.internalError(w, "query feed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var item models.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if item.Link == "" {
		http.Error(w, "link is required", http.StatusBadRequest)
		return
	}

	if err := s.items.Insert(r.Context(), &item); err != nil {
		if errors.Is(err, database.ErrDuplicateLink) {
			http.Error(w, "item with this link already exists", http.StatusConflict)
			return
		}
		s.internalError(w, "create item", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, item)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	item, err := s.items.GetByID(r.Context(), id)
	if err != nil {
		s.internalError(w, "get item", err)
		return
	}
	if item == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	s.respondJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	if err := s.items.Delete(r.Context(), id); err != nil {
		s.internalError(w, "delete item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetDone(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	var body struct {
		Done bool `json:"done"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.items.SetDone(r.Context(), id, body.Done); err != nil {
		s.internalError(w, "set item done", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddItemTags(w http.ResponseWriter, r *http.Request) {
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

	if err := s.items.AddTags(r.Context(), id, body.Names); err != nil {
		s.internalError(w, "add item tags", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveItemTag(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	if err := s.items.RemoveTag(r.Context(), id, r.PathValue("name")); err != nil {
		s.internalError(w, "remove item tag", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}

	var body struct {
		Favorite bool `json:"favorite"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.items.SetFavorite(r.Context(), id, body.Favorite); err != nil {
		s.internalError(w, "set item favorite", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
