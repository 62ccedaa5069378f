// Package genai talks to the GenAI service for two jobs: free-form reply
// generation and structured applicant-field extraction.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/xeipuuv/gojsonschema"

	commonerrors "loanflow/internal/common/errors"
	"loanflow/internal/common/logger"
	"loanflow/internal/models"
)

type Client struct {
	config Config
	client *http.Client
	logger logger.Logger
}

func NewClient(config Config, log logger.Logger) *Client {
	config.applyDefaults()
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Client{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: log.WithFields(map[string]interface{}{"client": "genai"}),
	}
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func toWire(history []models.Message) []wireMessage {
	out := make([]wireMessage, len(history))
	for i, m := range history {
		out[i] = wireMessage{Role: m.Role, Content: m.Content}
	}
	return out
}

// Chat generates the assistant reply for one turn.
func (c *Client) Chat(ctx context.Context, systemPrompt string, history []models.Message, maxTokens int) (string, error) {
	payload := map[string]interface{}{
		"system":     systemPrompt,
		"messages":   toWire(history),
		"max_tokens": maxTokens,
	}

	body, err := c.post(ctx, "/api/ai/generate", payload, "chat")
	if err != nil {
		return "", err
	}

	var response struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return "", commonerrors.NewGenAIFailedError("chat", err)
	}
	if response.Text == "" {
		return "", commonerrors.NewGenAIFailedError("chat", errors.New("empty response text"))
	}
	return response.Text, nil
}

// extractionResultSchema is what a well-formed extraction response must look
// like. Numeric fields may come back as numbers or as formatted strings
// ("1,00,000", "50_000"); normalization happens after validation.
const extractionResultSchema = `{
  "type": "object",
  "required": ["fields"],
  "properties": {
    "fields": {
      "type": "object",
      "properties": {
        "name":            {"type": "string"},
        "loan_amount":     {"type": ["number", "string"]},
        "loan_purpose":    {"type": "string"},
        "monthly_salary":  {"type": ["number", "string"]},
        "employment_type": {"type": "string"},
        "pan_number":      {"type": "string"}
      },
      "additionalProperties": true
    }
  }
}`

var extractionSchema = gojsonschema.NewStringLoader(extractionResultSchema)

// ExtractApplicantInfo asks the GenAI service for structured fields from the
// conversation tail. A response that fails schema validation comes back as an
// EXTRACTION_FAILED error, which the orchestrator recovers from locally.
func (c *Client) ExtractApplicantInfo(ctx context.Context, history []models.Message) (models.ApplicantUpdate, error) {
	payload := map[string]interface{}{
		"messages": toWire(history),
		"fields":   models.ExtractionFieldHints,
	}

	body, err := c.post(ctx, "/api/ai/extract", payload, "extract")
	if err != nil {
		return models.ApplicantUpdate{}, err
	}

	result, err := gojsonschema.Validate(extractionSchema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return models.ApplicantUpdate{}, commonerrors.NewExtractionFailedError(err.Error())
	}
	if !result.Valid() {
		details := ""
		for _, e := range result.Errors() {
			details += e.String() + "; "
		}
		return models.ApplicantUpdate{}, commonerrors.NewExtractionFailedError(details)
	}

	var response struct {
		Fields map[string]json.RawMessage `json:"fields"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return models.ApplicantUpdate{}, commonerrors.NewExtractionFailedError(err.Error())
	}

	return buildUpdate(response.Fields), nil
}

func buildUpdate(fields map[string]json.RawMessage) models.ApplicantUpdate {
	var update models.ApplicantUpdate
	if v, ok := stringField(fields, "name"); ok {
		update.Name = &v
	}
	if v, ok := stringField(fields, "loan_purpose"); ok {
		update.LoanPurpose = &v
	}
	if v, ok := stringField(fields, "employment_type"); ok {
		update.EmploymentType = &v
	}
	if v, ok := stringField(fields, "pan_number"); ok {
		update.PANNumber = &v
	}
	if v, ok := numberField(fields, "loan_amount"); ok {
		update.LoanAmount = &v
	}
	if v, ok := numberField(fields, "monthly_salary"); ok {
		update.MonthlySalary = &v
	}
	return update
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return "", false
	}
	return s, true
}

// numberField accepts a JSON number or a formatted string. Strings are
// normalized with NormalizeAmount; a value the parser cannot salvage becomes
// zero, which the record treats as "still missing".
func numberField(fields map[string]json.RawMessage, key string) (float64, bool) {
	raw, ok := fields[key]
	if !ok {
		return 0, false
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	return models.NormalizeAmount(s), true
}

// post sends one JSON request with retries and exponential backoff. The
// request is rebuilt per attempt so the body is always readable.
func (c *Client) post(ctx context.Context, path string, payload interface{}, operation string) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, commonerrors.NewGenAIFailedError(operation, err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, commonerrors.NewGenAITimeoutError(operation)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, commonerrors.NewGenAIFailedError(operation, err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}

		resp, err := c.client.Do(req)
		if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, commonerrors.NewGenAITimeoutError(operation)
		}
		if err != nil {
			lastErr = err
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK && readErr == nil {
			return data, nil
		}
		if readErr != nil {
			lastErr = readErr
		} else {
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			break
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"operation": operation,
		"error":     lastErr.Error(),
	}).Error("GenAI request exhausted retries", nil)
	return nil, commonerrors.NewGenAIFailedError(operation, lastErr)
}
