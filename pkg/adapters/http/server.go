package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aretw0/junction/pkg/domain"
	"github.com/aretw0/junction/pkg/signal"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Registry defines the interface for the aggregation core this adapter
// exposes over HTTP.
type Registry interface {
	Endpoints(ctx context.Context) ([]domain.Endpoint, error)
	ChangeToken(ctx context.Context) (*signal.Signal, error)
}

// EndpointsResponse is the payload of GET /endpoints.
type EndpointsResponse struct {
	Count     int               `json:"count"`
	Endpoints []domain.Endpoint `json:"endpoints"`
}

// WatchResponse is the payload of GET /watch.
type WatchResponse struct {
	Changed bool `json:"changed"`
}

// DefaultWatchTimeout bounds a long-poll when the client does not pass one.
const DefaultWatchTimeout = 30 * time.Second

// NewHandler creates the HTTP handler for the registry.
func NewHandler(reg Registry) http.Handler {
	s := &server{registry: reg}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.health)
	r.Get("/endpoints", s.endpoints)
	r.Get("/watch", s.watch)
	return r
}

type server struct {
	registry Registry
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// endpoints dumps the current merged snapshot.
func (s *server) endpoints(w http.ResponseWriter, r *http.Request) {
	eps, err := s.registry.Endpoints(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	if eps == nil {
		eps = []domain.Endpoint{}
	}
	writeJSON(w, EndpointsResponse{Count: len(eps), Endpoints: eps})
}

// watch long-polls the current epoch's signal: it answers changed=true as
// soon as the signal fires, or changed=false when the timeout lapses. The
// ?timeout query accepts a Go duration (e.g. "5s").
func (s *server) watch(w http.ResponseWriter, r *http.Request) {
	timeout := DefaultWatchTimeout
	if raw := r.URL.Query().Get("timeout"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			http.Error(w, "invalid timeout: "+err.Error(), http.StatusBadRequest)
			return
		}
		timeout = parsed
	}

	token, err := s.registry.ChangeToken(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		writeJSON(w, WatchResponse{Changed: true})
	case <-timer.C:
		writeJSON(w, WatchResponse{Changed: false})
	case <-r.Context().Done():
		// Client went away; nothing to write.
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
