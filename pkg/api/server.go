package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rubiojr/crmdesk/pkg/access"
	"github.com/rubiojr/crmdesk/pkg/log"
	"github.com/rubiojr/crmdesk/pkg/search"
)

// Searcher is the lookup service behind the API.
type Searcher interface {
	SearchBySurname(ctx context.Context, surname string) (*search.SearchResponse, error)
	GetTrip(ctx context.Context, tripID string) (*search.TripDossier, error)
}

// Invalidator drops cached sheets.
type Invalidator interface {
	Invalidate()
}

const (
	userIDHeader    = "X-User-Id"
	requestIDHeader = "X-Request-Id"
	maxBodyBytes    = 64 << 10
)

type Server struct {
	searcher     Searcher
	access       *access.Control
	cache        Invalidator
	apiKeyHeader string
	logger       *log.Logger
}

func NewServer(searcher Searcher, ac *access.Control, cache Invalidator, apiKeyHeader string) *Server {
	if apiKeyHeader == "" {
		apiKeyHeader = "x-api-key"
	}
	return &Server{
		searcher:     searcher,
		access:       ac,
		cache:        cache,
		apiKeyHeader: apiKeyHeader,
		logger:       log.ForService("api"),
	}
}

// Handler returns the routed API wrapped in the standard middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return RequestIDMiddleware(CorsMiddleware(gzhttp.GzipHandler(s.accessLog(mux)), s.apiKeyHeader))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: message, Status: "error"})
}

type ctxKey struct{}

// RequestID returns the id assigned to the request by RequestIDMiddleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// RequestIDMiddleware tags every request with an id, reusing a well-formed
// incoming X-Request-Id.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

func CorsMiddleware(next http.Handler, apiKeyHeader string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+apiKeyHeader+", "+userIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.With("request_id", RequestID(r.Context())).
			Debugf("%s %s %d", r.Method, r.URL.Path, rec.status)
	})
}
