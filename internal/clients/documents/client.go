// Package documents forwards uploaded files to the document service, which
// stores them and parses identity fields (notably the PAN) out of the
// content.
package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	commonerrors "loanflow/internal/common/errors"
	"loanflow/internal/common/logger"
	"loanflow/internal/engine"
)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	config Config
	client *http.Client
	logger logger.Logger
}

func NewClient(config Config, log logger.Logger) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Client{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: log.WithFields(map[string]interface{}{"client": "documents"}),
	}
}

// Receive uploads one document as multipart form data. The returned ack may
// carry a PAN parsed from the document body; callers merge that onto the
// applicant record. Nothing here ever reads identity data from the filename.
func (c *Client) Receive(ctx context.Context, meta engine.DocumentMeta, content []byte) (engine.DocumentAck, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	_ = w.WriteField("conversation_id", meta.ConversationID)
	_ = w.WriteField("doc_type", meta.DocType)
	part, err := w.CreateFormFile("file", meta.Filename)
	if err != nil {
		return engine.DocumentAck{}, commonerrors.NewDocumentIntakeFailedError(err)
	}
	if _, err := part.Write(content); err != nil {
		return engine.DocumentAck{}, commonerrors.NewDocumentIntakeFailedError(err)
	}
	if err := w.Close(); err != nil {
		return engine.DocumentAck{}, commonerrors.NewDocumentIntakeFailedError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/documents", &buf)
	if err != nil {
		return engine.DocumentAck{}, commonerrors.NewDocumentIntakeFailedError(err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return engine.DocumentAck{}, commonerrors.NewDocumentIntakeFailedError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return engine.DocumentAck{}, commonerrors.NewDocumentIntakeFailedError(
			fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	var response struct {
		Message   string `json:"message"`
		StoredRef string `json:"stored_ref"`
		Parsed    struct {
			PANNumber string `json:"pan_number"`
		} `json:"parsed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return engine.DocumentAck{}, commonerrors.NewDocumentIntakeFailedError(err)
	}

	c.logger.WithFields(map[string]interface{}{
		"docType":   meta.DocType,
		"storedRef": response.StoredRef,
	}).Info("Document stored", nil)

	return engine.DocumentAck{
		Message:   response.Message,
		StoredRef: response.StoredRef,
		PANNumber: response.Parsed.PANNumber,
	}, nil
}
