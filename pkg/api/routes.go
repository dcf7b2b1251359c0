package api

import (
	"net/http"

	"github.com/rubiojr/crmdesk/pkg/metrics"
)

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api", s.HandleAPI)
	mux.HandleFunc("POST /api/cache/flush", s.HandleCacheFlush)
	mux.HandleFunc("GET /health", s.HandleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
}
