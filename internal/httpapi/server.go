// Package httpapi exposes the JSON API consumed by the web client.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"myfeed/internal/auth"
	"myfeed/internal/logging"
	"myfeed/internal/models"
	"myfeed/internal/status"
)

// SourceStore is the persistence surface the source handlers need.
type SourceStore interface {
	List(ctx context.Context) ([]models.Source, error)
	GetByID(ctx context.Context, id int64) (*models.Source, error)
	Insert(ctx context.Context, source *models.Source) error
	Delete(ctx context.Context, id int64) error
	Tags(ctx context.Context, id int64) ([]models.Tag, error)
	AddTags(ctx context.Context, id int64, names []string) error
	RemoveTag(ctx context.Context, id int64, name string) error
}

// ItemStore is the persistence surface the item handlers need.
type ItemStore interface {
	Insert(ctx context.Context, item *models.Item) error
	GetByID(ctx context.Context, id int64) (*models.Item, error)
	Feed(ctx context.Context, window time.Duration, includeDone bool) ([]models.ItemWithTags, error)
	SetDone(ctx context.Context, id int64, done bool) error
	SetFavorite(ctx context.Context, id int64, favorite bool) error
	Delete(ctx context.Context, id int64) error
	AddTags(ctx context.Context, id int64, names []string) error
	RemoveTag(ctx context.Context, id int64, name string) error
}

// TagStore is the persistence surface the tag handlers need.
type TagStore interface {
	List(ctx context.Context) ([]models.Tag, error)
	GetByName(ctx context.Context, name string) (*models.Tag, error)
	Insert(ctx context.Context, tag *models.Tag) error
	Delete(ctx context.Context, name string) error
}

// Previewer runs a dry-run poll for a not-yet-saved source.
type Previewer interface {
	Preview(ctx context.Context, source *models.Source) ([]models.ItemWithTags, error)
}

// Triggerer requests an immediate poll cycle.
type Triggerer interface {
	Trigger()
}

// Server wires the HTTP handlers to their collaborators.
type Server struct {
	sources SourceStore
	items   ItemStore
	tags    TagStore
	preview Previewer
	poller  Triggerer
	authSvc *auth.Service
	logger  *logging.Logger
	server  *http.Server

	statusMu    sync.Mutex
	lastEvent   string
	lastEventAt time.Time
}

func New(sources SourceStore, items ItemStore, tags TagStore, preview Previewer, poller Triggerer, bus *status.Bus, authSvc *auth.Service, logger *logging.Logger) *Server {
	s := &Server{
		sources: sources,
		items:   items,
		tags:    tags,
		preview: preview,
		poller:  poller,
		authSvc: authSvc,
		logger:  logger,
	}
	go s.watchStatus(bus)
	return s
}

// watchStatus keeps the latest poll lifecycle event for the status endpoint.
// The bus drops events if we lag; the status endpoint only promises the most
// recent observation.
func (s *Server) watchStatus(bus *status.Bus) {
	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for event := range events {
		s.statusMu.Lock()
		s.lastEvent = event.String()
		s.lastEventAt = time.Now()
		s.statusMu.Unlock()
	}
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	s.logger.Info("HTTP API server starting", logging.WithField("addr", addr))
	return s.server.ListenAndServe()
}

func (s *Server) handler() http.Handler {
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /api/login", s.cors(s.handleLogin))
	mux.HandleFunc("/health", s.handleHealth)

	protected := func(h http.HandlerFunc) http.HandlerFunc {
		return s.cors(s.withRequestID(s.authSvc.Middleware(h)))
	}

	// Source routes
	mux.HandleFunc("GET /api/sources", protected(s.handleListSources))
	mux.HandleFunc("POST /api/sources", protected(s.handleCreateSource))
	mux.HandleFunc("GET /api/sources/{id}", protected(s.handleGetSource))
	mux.HandleFunc("DELETE /api/sources/{id}", protected(s.handleDeleteSource))
	mux.HandleFunc("GET /api/sources/{id}/tags", protected(s.handleListSourceTags))
	mux.HandleFunc("POST /api/sources/{id}/tags", protected(s.handleAddSourceTags))
	mux.HandleFunc("DELETE /api/sources/{id}/tags/{name}", protected(s.handleRemoveSourceTag))

	// Item routes
	mux.HandleFunc("GET /api/feed", protected(s.handleFeed))
	mux.HandleFunc("POST /api/items", protected(s.handleCreateItem))
	mux.HandleFunc("GET /api/items/{id}", protected(s.handleGetItem))
	mux.HandleFunc("DELETE /api/items/{id}", protected(s.handleDeleteItem))
	mux.HandleFunc("POST /api/items/{id}/done", protected(s.handleSetDone))
	mux.HandleFunc("POST /api/items/{id}/favorite", protected(s.handleSetFavorite))
	mux.HandleFunc("POST /api/items/{id}/tags", protected(s.handleAddItemTags))
	mux.HandleFunc("DELETE /api/items/{id}/tags/{name}", protected(s.handleRemoveItemTag))

	// Tag routes
	mux.HandleFunc("GET /api/tags", protected(s.handleListTags))
	mux.HandleFunc("POST /api/tags", protected(s.handleCreateTag))
	mux.HandleFunc("GET /api/tags/{name}", protected(s.handleGetTag))
	mux.HandleFunc("DELETE /api/tags/{name}", protected(s.handleDeleteTag))

	// Poll routes
	mux.HandleFunc("POST /api/poll", protected(s.handleTriggerPoll))
	mux.HandleFunc("GET /api/poll/status", protected(s.handlePollStatus))
	mux.HandleFunc("POST /api/preview", protected(s.handlePreview))

	return mux
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) cors(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, x-auth")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// withRequestID tags each request with a correlation id for the logs.
func (s *Server) withRequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		s.logger.Trace("Handling request", logging.WithFields(map[string]interface{}{
			"method":     r.Method,
			"path":       r.URL.Path,
			"request_id": requestID,
		}))

		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	token, err := s.authSvc.Login(body.Password)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleTriggerPoll(w http.ResponseWriter, r *http.Request) {
	s.poller.Trigger()
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handlePollStatus(w http.ResponseWriter, r *http.Request) {
	s.statusMu.Lock()
	lastEvent := s.lastEvent
	lastEventAt := s.lastEventAt
	s.statusMu.Unlock()

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"polling":       lastEvent == status.Polling.String(),
		"last_event":    lastEvent,
		"last_event_at": lastEventAt,
	})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var source models.Source
	if err := json.NewDecoder(r.Body).Decode(&source); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	items, err := s.preview.Preview(r.Context(), &source)
	if err != nil {
		s.logger.Error("Preview failed", logging.WithFields(map[string]interface{}{
			"url":   source.URL,
			"error": err.Error(),
		}))
		http.Error(w, "failed to fetch feed", http.StatusBadGateway)
		return
	}

	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) respondJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", logging.WithField("error", err.Error()))
	}
}
