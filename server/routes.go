package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/wizenheimer/banter"
)

type messageRequest struct {
	Text string `json:"text"`
}

type learningRequest struct {
	Enabled bool `json:"enabled"`
}

type learningResponse struct {
	Enabled bool            `json:"enabled"`
	Notice  *banter.Message `json:"notice,omitempty"`
}

type entryRequest struct {
	Patterns  []string `json:"patterns"`
	Responses []string `json:"responses"`
	Tags      []string `json:"tags"`
	Weight    float64  `json:"weight"`
}

type entryResponse struct {
	ID string `json:"id"`
}

type popularEntry struct {
	ID       string   `json:"id"`
	Patterns []string `json:"patterns"`
	Learned  bool     `json:"learned"`
	Count    int      `json:"count"`
}

type matchResponse struct {
	EntryID string             `json:"entryId,omitempty"`
	Score   float64            `json:"score"`
	Method  banter.MatchMethod `json:"method,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) registerRoutes(r chi.Router) {
	r.Get("/messages", s.listMessagesHandler)
	r.Post("/messages", s.postMessageHandler)
	r.Delete("/messages", s.clearHandler)
	r.Post("/regenerate", s.regenerateHandler)
	r.Get("/learning", s.getLearningHandler)
	r.Post("/learning", s.setLearningHandler)
	r.Get("/stats", s.statsHandler)
	r.Post("/entries", s.createEntryHandler)
	r.Get("/entries/popular", s.popularEntriesHandler)
	r.Get("/match", s.matchHandler)
}

func (s *Server) listMessagesHandler(w http.ResponseWriter, r *http.Request) {
	history := s.engine.History()
	if history == nil {
		history = []banter.Message{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) postMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	reply, err := s.engine.Respond(r.Context(), req.Text)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) clearHandler(w http.ResponseWriter, r *http.Request) {
	s.engine.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) regenerateHandler(w http.ResponseWriter, r *http.Request) {
	reply, err := s.engine.Regenerate(r.Context())
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) getLearningHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, learningResponse{Enabled: s.engine.Learning()})
}

func (s *Server) setLearningHandler(w http.ResponseWriter, r *http.Request) {
	var req learningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	notice := s.engine.SetLearning(req.Enabled)
	writeJSON(w, http.StatusOK, learningResponse{Enabled: req.Enabled, Notice: &notice})
}

func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Stats())
}

func (s *Server) createEntryHandler(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Responses) == 0 {
		writeError(w, http.StatusBadRequest, "responses are required")
		return
	}
	id, err := s.engine.KnowledgeBase().AddEntry(req.Patterns, req.Responses, banter.EntryMeta{
		Weight: req.Weight,
		Tags:   req.Tags,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, entryResponse{ID: id})
}

func (s *Server) popularEntriesHandler(w http.ResponseWriter, r *http.Request) {
	limit := 5
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	used := s.engine.KnowledgeBase().MostUsed(limit)
	out := make([]popularEntry, 0, len(used))
	for _, u := range used {
		out = append(out, popularEntry{
			ID:       u.Entry.ID,
			Patterns: u.Entry.Patterns,
			Learned:  u.Entry.Learned,
			Count:    u.Count,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) matchHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	m := s.engine.Match(q)
	resp := matchResponse{Score: m.Score, Method: m.Method}
	if m.Entry != nil {
		resp.EntryID = m.Entry.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeEngineError maps engine sentinels onto status codes.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, banter.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, banter.ErrBusy):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, banter.ErrNoUserMessage):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusServiceUnavailable, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
