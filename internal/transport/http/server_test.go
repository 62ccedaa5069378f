// internal/transport/http/server_test.go
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanflow/internal/archive"
	"loanflow/internal/common/logger"
	"loanflow/internal/engine"
	"loanflow/internal/models"
	"loanflow/internal/registry"
)

type fakeGen struct{ reply string }

func (f *fakeGen) Chat(_ context.Context, _ string, _ []models.Message, _ int) (string, error) {
	return f.reply, nil
}

type fakeExtractor struct{ update models.ApplicantUpdate }

func (f *fakeExtractor) ExtractApplicantInfo(_ context.Context, _ []models.Message) (models.ApplicantUpdate, error) {
	return f.update, nil
}

type fakeBureau struct{}

func (fakeBureau) Lookup(_ context.Context, _ string) (engine.BureauReport, error) {
	return engine.BureauReport{CreditScore: 720}, nil
}

type fakeDocs struct{}

func (fakeDocs) Receive(_ context.Context, meta engine.DocumentMeta, _ []byte) (engine.DocumentAck, error) {
	return engine.DocumentAck{
		Message:   "Received " + meta.DocType,
		StoredRef: "store/" + meta.Filename,
	}, nil
}

type fakeLetters struct{}

func (fakeLetters) Render(_ context.Context, conversationID string, _ models.ApplicantRecord, _ models.Decision) (string, error) {
	return "letters/" + conversationID + ".pdf", nil
}

type fakeStats struct {
	stats archive.Stats
	apps  []archive.ApplicationSummary
}

func (f *fakeStats) Stats(_ context.Context) (archive.Stats, error) { return f.stats, nil }

func (f *fakeStats) ListApplications(_ context.Context, _ int) ([]archive.ApplicationSummary, error) {
	return f.apps, nil
}

func newTestServer(t *testing.T, stats StatsSource) (*httptest.Server, *registry.MemoryRegistry) {
	t.Helper()
	reg := registry.NewMemoryRegistry()
	service := engine.NewService(engine.Deps{
		Registry: reg,
		Gen:      &fakeGen{reply: "Welcome! How much would you like to borrow?"},
		Extract:  &fakeExtractor{},
		Bureau:   fakeBureau{},
		Docs:     fakeDocs{},
		Letters:  fakeLetters{},
		Logger:   logger.NewTestLogger(t),
	})
	server := httptest.NewServer(NewServer(service, stats, logger.NewTestLogger(t)).Handler())
	t.Cleanup(server.Close)
	return server, reg
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHandleChat_NewConversation(t *testing.T) {
	server, _ := newTestServer(t, nil)

	resp := postJSON(t, server.URL+"/api/chat", map[string]string{"message": "Hi, I need a loan"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.NotEmpty(t, body["conversation_id"], "server assigns an id when none is sent")
	assert.Equal(t, string(models.StageInfoGathering), body["stage"])
	assert.Equal(t, "Welcome! How much would you like to borrow?", body["response"])
}

func TestHandleChat_ExistingConversation(t *testing.T) {
	server, reg := newTestServer(t, nil)
	state, err := reg.Create(context.Background())
	require.NoError(t, err)

	resp := postJSON(t, server.URL+"/api/chat", map[string]string{
		"conversation_id": state.ID,
		"message":         "Hello",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, state.ID, body["conversation_id"])
}

func TestHandleChat_EmptyMessage(t *testing.T) {
	server, _ := newTestServer(t, nil)

	resp := postJSON(t, server.URL+"/api/chat", map[string]string{"message": "   "})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleChat_InvalidJSON(t *testing.T) {
	server, _ := newTestServer(t, nil)

	resp, err := http.Post(server.URL+"/api/chat", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleChat_UnknownConversation(t *testing.T) {
	server, _ := newTestServer(t, nil)

	resp := postJSON(t, server.URL+"/api/chat", map[string]string{
		"conversation_id": "no-such-id",
		"message":         "Hello",
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "CONVERSATION_NOT_FOUND", body["code"])
}

func uploadRequest(t *testing.T, url string, fields map[string]string, filename string, content []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	resp, err := http.Post(url, writer.FormDataContentType(), &buf)
	require.NoError(t, err)
	return resp
}

func TestHandleUpload(t *testing.T) {
	server, reg := newTestServer(t, nil)
	state, err := reg.Create(context.Background())
	require.NoError(t, err)

	resp := uploadRequest(t, server.URL+"/api/upload", map[string]string{
		"conversation_id": state.ID,
		"doc_type":        "salary_slip",
	}, "salary.pdf", []byte("pdf-bytes"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, state.ID, body["conversation_id"])
	assert.Equal(t, "salary_slip", body["doc_type"])
	assert.Equal(t, "Received salary_slip", body["message"])

	stored, err := reg.Get(context.Background(), state.ID)
	require.NoError(t, err)
	assert.Equal(t, "store/salary.pdf", stored.Documents["salary_slip"])
}

func TestHandleUpload_MissingFields(t *testing.T) {
	server, _ := newTestServer(t, nil)

	resp := uploadRequest(t, server.URL+"/api/upload", map[string]string{
		"doc_type": "salary_slip",
	}, "salary.pdf", []byte("pdf-bytes"))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleUpload_MissingFile(t *testing.T) {
	server, reg := newTestServer(t, nil)
	state, err := reg.Create(context.Background())
	require.NoError(t, err)

	resp := uploadRequest(t, server.URL+"/api/upload", map[string]string{
		"conversation_id": state.ID,
		"doc_type":        "salary_slip",
	}, "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleUpload_UnknownDocType(t *testing.T) {
	server, reg := newTestServer(t, nil)
	state, err := reg.Create(context.Background())
	require.NoError(t, err)

	resp := uploadRequest(t, server.URL+"/api/upload", map[string]string{
		"conversation_id": state.ID,
		"doc_type":        "passport",
	}, "passport.pdf", []byte("pdf-bytes"))
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "DOCUMENT_VALIDATION_FAILED", body["code"])
}

func TestHandleHistory(t *testing.T) {
	server, reg := newTestServer(t, nil)
	state, err := reg.Create(context.Background())
	require.NoError(t, err)
	state.AppendMessage(models.RoleUser, "Hi", time.Now().UTC())
	state.AppendMessage(models.RoleAssistant, "Hello!", time.Now().UTC())
	require.NoError(t, reg.Put(context.Background(), state))

	resp, err := http.Get(server.URL + "/api/conversations/" + state.ID + "/history")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, state.ID, body["conversation_id"])
	assert.Equal(t, string(models.StageGreeting), body["stage"])
	assert.Len(t, body["messages"], 2)
}

func TestHandleHistory_NotFound(t *testing.T) {
	server, _ := newTestServer(t, nil)

	resp, err := http.Get(server.URL + "/api/conversations/no-such-id/history")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleStats(t *testing.T) {
	server, _ := newTestServer(t, &fakeStats{
		stats: archive.Stats{
			TotalConversations: 7,
			ByStage:            map[string]int{"COMPLETED": 4},
			Approved:           3,
			Rejected:           1,
		},
	})

	resp, err := http.Get(server.URL + "/api/stats")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, 7.0, body["total_conversations"])
	assert.Equal(t, 3.0, body["approved"])
}

func TestHandleStats_ArchiveNotConfigured(t *testing.T) {
	server, _ := newTestServer(t, nil)

	resp, err := http.Get(server.URL + "/api/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHandleApplications(t *testing.T) {
	server, _ := newTestServer(t, &fakeStats{
		apps: []archive.ApplicationSummary{
			{ConversationID: "conv-1", Stage: "COMPLETED", ApplicantName: "Priya Sharma", DecisionStatus: "APPROVED"},
		},
	})

	resp, err := http.Get(server.URL + "/api/applications")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	apps, ok := body["applications"].([]interface{})
	require.True(t, ok)
	require.Len(t, apps, 1)
}

func TestHandleHealth(t *testing.T) {
	server, _ := newTestServer(t, nil)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "healthy", body["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	server, _ := newTestServer(t, nil)

	resp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
