package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/claude/mapty/internal/session"
	"github.com/go-chi/chi/v5"
)

// Server is the browser host: it turns HTTP requests into session events
// and streams the resulting view commands back over SSE.
type Server struct {
	mgr    *session.Manager
	hub    *Hub
	views  *Views
	log    *slog.Logger
	router chi.Router
	origin string

	mu           sync.Mutex
	position     *PositionRequest
	cancelLocate context.CancelFunc

	// formMu keeps the form values of one submission paired with it.
	formMu sync.Mutex
}

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigin sets the origin allowed to call the API from a browser.
func WithAllowedOrigin(origin string) Option {
	return func(s *Server) { s.origin = origin }
}

// New creates a new Server with all routes configured. views must be the
// same value the manager was built with.
func New(mgr *session.Manager, hub *Hub, views *Views, log *slog.Logger, opts ...Option) *Server {
	s := &Server{
		mgr:    mgr,
		hub:    hub,
		views:  views,
		log:    log,
		router: chi.NewRouter(),
		origin: "*",
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS(s.origin))

	s.router.Get("/api/v1/events", s.handleEvents)
	s.router.Post("/api/v1/session", s.handleStartVisit)
	s.router.Post("/api/v1/position", s.handlePosition)

	s.router.Post("/api/v1/map/ready", s.handleMapReady)
	s.router.Post("/api/v1/map/click", s.handleMapClick)
	s.router.Post("/api/v1/form/type", s.handleFormType)

	s.router.Route("/api/v1/workouts", func(r chi.Router) {
		r.Get("/", s.handleListWorkouts)
		r.Post("/", s.handleSubmitWorkout)
		r.Delete("/", s.handleReset)
		r.Get("/{id}", s.handleGetWorkout)
		r.Post("/{id}/select", s.handleSelectWorkout)
	})
}

// StartVisit begins a page visit: any pending position request is
// abandoned, the collection is reloaded from the store and a new position
// request waits for the browser. A load failure is returned but the visit
// still starts with an empty collection.
func (s *Server) StartVisit(ctx context.Context) error {
	s.mu.Lock()
	if s.cancelLocate != nil {
		s.cancelLocate()
	}
	req := NewPositionRequest()
	locateCtx, cancel := context.WithCancel(context.Background())
	s.position, s.cancelLocate = req, cancel
	s.mu.Unlock()

	err := s.mgr.Initialize(ctx)
	go s.locate(locateCtx, req)
	return err
}

func (s *Server) locate(ctx context.Context, req *PositionRequest) {
	pos, err := s.mgr.LocatePosition(ctx, req)
	switch {
	case err == nil:
		s.log.Info("map opened", "lat", pos.Lat, "lng", pos.Lng)
	case errors.Is(err, session.ErrPositionUnavailable):
		s.log.Warn("position unavailable", "error", err)
	default:
		s.log.Debug("position request abandoned", "error", err)
	}
}

// pendingPosition returns the position request of the current visit.
func (s *Server) pendingPosition() *PositionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// Close abandons the pending position request.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelLocate != nil {
		s.cancelLocate()
		s.cancelLocate = nil
	}
}

// MountMCP serves an MCP transport at /mcp.
func (s *Server) MountMCP(h http.Handler) {
	s.router.Handle("/mcp", h)
}
