// Package http exposes the conversation engine over a JSON API plus the
// usual health and metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"loanflow/internal/archive"
	commonerrors "loanflow/internal/common/errors"
	"loanflow/internal/common/logger"
	"loanflow/internal/engine"
)

// StatsSource is what the stats endpoint needs from the archive. Nil when
// the deployment runs without PostgreSQL.
type StatsSource interface {
	Stats(ctx context.Context) (archive.Stats, error)
	ListApplications(ctx context.Context, limit int) ([]archive.ApplicationSummary, error)
}

type Server struct {
	service *engine.Service
	stats   StatsSource
	logger  logger.Logger
}

func NewServer(service *engine.Service, stats StatsSource, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Server{service: service, stats: stats, logger: log}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("GET /api/conversations/{id}/history", s.handleHistory)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/applications", s.handleApplications)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := commonerrors.CodeOf(err)
	switch code {
	case commonerrors.ErrCodeConversationNotFound:
		status = http.StatusNotFound
	case commonerrors.ErrCodeInvalidLoanRequest, commonerrors.ErrCodeInvalidPANFormat,
		commonerrors.ErrCodeDocumentValidationFailed:
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]interface{}{
		"error": err.Error(),
		"code":  code,
	})
}
