// internal/transport/http/handlers.go
package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"loanflow/internal/engine"
	"loanflow/internal/models"
)

const maxUploadBytes = 10 << 20

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

// handleChat runs one conversation turn. A request without a conversation_id
// starts a new conversation first; the assigned id comes back in the
// response for the client to carry forward.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	if req.ConversationID == "" {
		state, err := s.service.StartConversation(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		req.ConversationID = state.ID
	}

	result, err := s.service.Advance(r.Context(), req.ConversationID, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleUpload ingests one document as multipart form data with fields
// conversation_id, doc_type and file.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}
	conversationID := r.FormValue("conversation_id")
	docType := r.FormValue("doc_type")
	if conversationID == "" || docType == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "conversation_id and doc_type are required"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file is required"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read file"})
		return
	}

	ack, err := s.service.IngestDocument(r.Context(), conversationID, engine.DocumentMeta{
		DocType:     docType,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}, content)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"conversation_id": conversationID,
		"doc_type":        docType,
		"message":         ack,
	})
}

type historyResponse struct {
	ConversationID string            `json:"conversation_id"`
	Stage          models.Stage      `json:"stage"`
	Messages       []models.Message  `json:"messages"`
	Documents      map[string]string `json:"documents"`
	Decision       *models.Decision  `json:"decision,omitempty"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetConversation(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyResponse{
		ConversationID: state.ID,
		Stage:          state.Stage,
		Messages:       state.Messages,
		Documents:      state.Documents,
		Decision:       state.Decision,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "archive not configured"})
		return
	}
	stats, err := s.stats.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleApplications(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "archive not configured"})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	apps, err := s.stats.ListApplications(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"applications": apps})
}
