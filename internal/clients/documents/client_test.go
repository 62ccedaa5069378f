// internal/clients/documents/client_test.go
package documents

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	commonerrors "loanflow/internal/common/errors"
	"loanflow/internal/common/logger"
	"loanflow/internal/engine"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{BaseURL: server.URL, Timeout: 2 * time.Second}, logger.NewTestLogger(t))
}

func TestReceive_Success(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/documents", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "conv-1", r.FormValue("conversation_id"))
		assert.Equal(t, "pan_card", r.FormValue("doc_type"))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "pan.pdf", header.Filename)
		content, _ := io.ReadAll(file)
		assert.Equal(t, "pdf-bytes", string(content))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"message":    "PAN card received and parsed",
			"stored_ref": "store/pan-001.pdf",
			"parsed":     map[string]string{"pan_number": "ABCDE1234F"},
		})
	})

	ack, err := client.Receive(context.Background(), engine.DocumentMeta{
		ConversationID: "conv-1",
		DocType:        "pan_card",
		Filename:       "pan.pdf",
	}, []byte("pdf-bytes"))
	require.NoError(t, err)

	assert.Equal(t, "PAN card received and parsed", ack.Message)
	assert.Equal(t, "store/pan-001.pdf", ack.StoredRef)
	assert.Equal(t, "ABCDE1234F", ack.PANNumber)
}

func TestReceive_ServerError(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "storage full", http.StatusInsufficientStorage)
	})

	_, err := client.Receive(context.Background(), engine.DocumentMeta{
		ConversationID: "conv-1",
		DocType:        "salary_slip",
		Filename:       "salary.pdf",
	}, []byte("pdf-bytes"))
	require.Error(t, err)
	assert.Equal(t, commonerrors.ErrCodeDocumentIntakeFailed, commonerrors.CodeOf(err))
}
