package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rubiojr/crmdesk/pkg/metrics"
	"github.com/rubiojr/crmdesk/pkg/search"
	"github.com/rubiojr/crmdesk/pkg/version"
)

// authorize applies the API key, allow-list and rate limit checks in that
// order. It writes the error response and returns false when the caller is
// refused.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, bodyKey string) bool {
	key := bodyKey
	if key == "" {
		key = r.Header.Get(s.apiKeyHeader)
	}
	if !s.access.CheckAPIKey(key) {
		s.writeError(w, http.StatusUnauthorized, "Unauthorized - invalid API key")
		return false
	}
	if !s.access.IsAllowedUser(r.Header.Get(userIDHeader)) {
		s.writeError(w, http.StatusForbidden, "Forbidden")
		return false
	}
	if !s.access.Allow("api:" + key) {
		metrics.RateLimited.WithLabelValues("api").Inc()
		s.writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
		return false
	}
	return true
}

func (s *Server) HandleAPI(w http.ResponseWriter, r *http.Request) {
	logger := s.logger.With("request_id", RequestID(r.Context()))

	var req APIRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Action == "" {
		s.writeError(w, http.StatusBadRequest, "action missing")
		return
	}

	if !s.authorize(w, r, req.APIKey) {
		return
	}
	logger = logger.With("user_id", r.Header.Get(userIDHeader))

	switch req.Action {
	case "search":
		surname := req.surname()
		if surname == "" {
			s.writeError(w, http.StatusBadRequest, "surname missing")
			return
		}
		result, err := s.searcher.SearchBySurname(r.Context(), surname)
		if err != nil {
			s.lookupFailed(w, req.Action, err)
			return
		}
		metrics.Requests.WithLabelValues("api", req.Action, "ok").Inc()
		logger.Infof("action=search status=ok count=%d", result.Count)
		s.writeJSON(w, http.StatusOK, result)

	case "get_trip":
		tripID := req.tripID()
		if tripID == "" {
			s.writeError(w, http.StatusBadRequest, "trip_id missing")
			return
		}
		result, err := s.searcher.GetTrip(r.Context(), tripID)
		if err != nil {
			s.lookupFailed(w, req.Action, err)
			return
		}
		metrics.Requests.WithLabelValues("api", req.Action, "ok").Inc()
		logger.Infof("action=get_trip status=ok")
		s.writeJSON(w, http.StatusOK, result)

	default:
		s.writeError(w, http.StatusBadRequest, "unknown action")
	}
}

// lookupFailed maps service errors to responses. Only not-found is reported
// to the caller; everything else is logged and answered generically.
func (s *Server) lookupFailed(w http.ResponseWriter, action string, err error) {
	if errors.Is(err, search.ErrNotFound) {
		metrics.Requests.WithLabelValues("api", action, "not_found").Inc()
		s.writeError(w, http.StatusNotFound, "trip not found")
		return
	}
	metrics.Requests.WithLabelValues("api", action, "error").Inc()
	s.logger.Errorf("action=%s status=error err=%v", action, err)
	s.writeError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) HandleCacheFlush(w http.ResponseWriter, r *http.Request) {
	if !s.authorize(w, r, "") {
		return
	}
	s.cache.Invalidate()
	s.logger.With("request_id", RequestID(r.Context())).Infof("cache flushed")
	s.writeJSON(w, http.StatusOK, FlushResponse{Status: "ok"})
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.APIVersion(),
	})
}
