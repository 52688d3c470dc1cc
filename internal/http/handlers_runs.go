package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hperssn/steady/internal/domain"
	"github.com/hperssn/steady/internal/runner"
	"github.com/hperssn/steady/internal/storage"
)

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessions := s.sessions.List(domain.Filter{
		Category:   q.Get("category"),
		Difficulty: q.Get("difficulty"),
		Mood:       q.Get("mood"),
	})

	respondJSON(w, sessions, http.StatusOK)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	session, ok := s.sessions.Get(id)
	if !ok {
		respondError(w, "session not found", http.StatusNotFound)
		return
	}

	respondJSON(w, session, http.StatusOK)
}

func (s *Server) startRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"sessionId"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	session, ok := s.sessions.Get(req.SessionID)
	if !ok {
		respondError(w, "session not found", http.StatusNotFound)
		return
	}

	s.start(w, r, session)
}

func (s *Server) startCustomRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetSec int `json:"targetSec"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	session, err := domain.NewCustomSession(req.TargetSec)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.start(w, r, session)
}

func (s *Server) start(w http.ResponseWriter, r *http.Request, session domain.Session) {
	ev, err := s.manager.StartRun(UserID(r), session)
	if err != nil {
		respondRunError(w, r, err)
		return
	}

	respondJSON(w, ev.Snapshot, http.StatusCreated)
}

func (s *Server) currentRun(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.manager.Snapshot(UserID(r)), http.StatusOK)
}

func (s *Server) runCommand(w http.ResponseWriter, r *http.Request) {
	cmd := runner.Command(chi.URLParam(r, "command"))
	if cmd == runner.CmdTick {
		respondError(w, "ticks are driven by the server", http.StatusBadRequest)
		return
	}

	ev, err := s.manager.Apply(UserID(r), cmd)
	if err != nil {
		respondRunError(w, r, err)
		return
	}

	respondJSON(w, ev, http.StatusOK)
}

func (s *Server) runHistory(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		respondError(w, "persistence disabled", http.StatusServiceUnavailable)
		return
	}

	var (
		records []storage.RunRecord
		err     error
	)
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, perr := time.Parse(time.RFC3339, raw)
		if perr != nil {
			respondError(w, "since must be an RFC3339 timestamp", http.StatusBadRequest)
			return
		}
		records, err = s.repo.GetRecentRuns(r.Context(), UserID(r), since)
	} else {
		records, err = s.repo.GetRunsByUser(r.Context(), UserID(r))
	}
	if err != nil {
		log.Printf("failed to load runs: %v", err)
		respondError(w, "failed to load runs", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []storage.RunRecord{}
	}

	respondJSON(w, records, http.StatusOK)
}

func (s *Server) runStats(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		respondError(w, "persistence disabled", http.StatusServiceUnavailable)
		return
	}

	stats, err := s.repo.GetRunStats(r.Context(), UserID(r))
	if err != nil {
		log.Printf("failed to load run stats: %v", err)
		respondError(w, "failed to load stats", http.StatusInternalServerError)
		return
	}

	respondJSON(w, stats, http.StatusOK)
}
