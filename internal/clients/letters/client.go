// Package letters requests sanction letter rendering from the document
// generation service.
package letters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	commonerrors "loanflow/internal/common/errors"
	"loanflow/internal/common/logger"
	"loanflow/internal/models"
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
		logger: log.WithFields(map[string]interface{}{"client": "letters"}),
	}
}

// Render asks the letter service to produce the sanction artifact and
// returns its reference. Rendering runs at most once per conversation; the
// orchestrator guards re-entry with the stored reference.
func (c *Client) Render(ctx context.Context, conversationID string, a models.ApplicantRecord, d models.Decision) (string, error) {
	payload := map[string]interface{}{
		"conversation_id": conversationID,
		"applicant_name":  a.Name,
		"pan_number":      a.PANNumber,
		"loan_purpose":    a.LoanPurpose,
		"approved_amount": d.ApprovedAmount,
		"interest_rate":   d.InterestRate,
		"tenure_months":   d.TenureMonths,
		"monthly_emi":     d.MonthlyEMI,
		"decided_at":      d.DecidedAt,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", commonerrors.NewLetterRenderFailedError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/letters/sanction", bytes.NewReader(body))
	if err != nil {
		return "", commonerrors.NewLetterRenderFailedError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", commonerrors.NewLetterRenderFailedError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", commonerrors.NewLetterRenderFailedError(fmt.Errorf("status %d", resp.StatusCode))
	}

	var response struct {
		LetterRef string `json:"letter_ref"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", commonerrors.NewLetterRenderFailedError(err)
	}
	if response.LetterRef == "" {
		return "", commonerrors.NewLetterRenderFailedError(fmt.Errorf("empty letter reference"))
	}

	c.logger.WithFields(map[string]interface{}{
		"conversationId": conversationID,
		"letterRef":      response.LetterRef,
	}).Info("Sanction letter rendered", nil)
	return response.LetterRef, nil
}
