package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/claude/mapty/internal/models"
	"github.com/claude/mapty/internal/session"
	"github.com/go-chi/chi/v5"
)

type positionRequest struct {
	Lat   *float64 `json:"lat"`
	Lng   *float64 `json:"lng"`
	Error string   `json:"error"`
}

type typeRequest struct {
	Type string `json:"type"`
}

// submitRequest is the form as the browser submitted it. Without lat/lng
// the workout is placed at the last map click.
type submitRequest struct {
	session.FormValues
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sub := s.hub.Subscribe()
	defer s.hub.Unsubscribe(sub)

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case data, ok := <-sub.Send:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) handleStartVisit(w http.ResponseWriter, r *http.Request) {
	if err := s.StartVisit(r.Context()); err != nil {
		s.log.Warn("starting visit with empty collection", "error", err)
	}
	writeJSON(w, http.StatusOK, s.mgr.Workouts())
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	pending := s.pendingPosition()
	if pending == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no visit in progress"})
		return
	}

	var err error
	switch {
	case req.Error != "":
		err = pending.Reject(errors.New(req.Error))
	case req.Lat != nil && req.Lng != nil:
		err = pending.Resolve(models.Coordinates{Lat: *req.Lat, Lng: *req.Lng})
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "lat and lng, or error, required"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleMapReady(w http.ResponseWriter, r *http.Request) {
	s.mgr.MapReady()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMapClick(w http.ResponseWriter, r *http.Request) {
	var c models.Coordinates
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	s.mgr.MapClicked(c)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFormType(w http.ResponseWriter, r *http.Request) {
	var req typeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if err := s.mgr.ChangeType(req.Type); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	workouts := s.mgr.Workouts()

	if t := r.URL.Query().Get("type"); t != "" {
		kind, err := models.ParseKind(t)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		filtered := make([]models.Workout, 0, len(workouts))
		for _, wo := range workouts {
			if wo.Kind == kind {
				filtered = append(filtered, wo)
			}
		}
		workouts = filtered
	}
	writeJSON(w, http.StatusOK, workouts)
}

func (s *Server) handleSubmitWorkout(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	var (
		wo  models.Workout
		err error
	)
	if req.Lat != nil && req.Lng != nil {
		coords := models.Coordinates{Lat: *req.Lat, Lng: *req.Lng}
		wo, err = s.mgr.SubmitNewWorkout(r.Context(), session.SubmissionFromForm(req.FormValues, coords))
	} else {
		s.formMu.Lock()
		s.views.SetValues(req.FormValues)
		wo, err = s.mgr.SubmitForm(r.Context())
		s.formMu.Unlock()
	}

	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, session.ErrNoLocation):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case err != nil:
		s.log.Error("submit error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusCreated, wo)
	}
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	wo, ok := s.mgr.Workout(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "workout not found"})
		return
	}
	writeJSON(w, http.StatusOK, wo)
}

func (s *Server) handleSelectWorkout(w http.ResponseWriter, r *http.Request) {
	wo, ok := s.mgr.SelectWorkout(chi.URLParam(r, "id"))
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, wo)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.mgr.Reset(r.Context()); err != nil {
		s.log.Error("reset error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
