// Package bureau wraps the external credit bureau's lookup API.
package bureau

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	commonerrors "loanflow/internal/common/errors"
	"loanflow/internal/common/logger"
	"loanflow/internal/engine"
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	config Config
	client *http.Client
	logger logger.Logger
}

func NewClient(config Config, log logger.Logger) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Client{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: log.WithFields(map[string]interface{}{"client": "bureau"}),
	}
}

// Lookup fetches credit standing for a PAN. Bureau outages surface as
// BUREAU_UNAVAILABLE; the orchestrator apologizes and retains the stage so
// the user can simply retry.
func (c *Client) Lookup(ctx context.Context, pan string) (engine.BureauReport, error) {
	endpoint := fmt.Sprintf("%s/api/credit-report?pan=%s", c.config.BaseURL, url.QueryEscape(pan))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return engine.BureauReport{}, commonerrors.NewBureauUnavailableError(err)
	}
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return engine.BureauReport{}, commonerrors.NewBureauUnavailableError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return engine.BureauReport{}, commonerrors.NewBureauUnavailableError(
			fmt.Errorf("status %d", resp.StatusCode))
	}

	var report engine.BureauReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return engine.BureauReport{}, commonerrors.NewBureauUnavailableError(err)
	}

	c.logger.WithFields(map[string]interface{}{
		"creditScore": report.CreditScore,
	}).Debug("Bureau lookup completed", nil)
	return report, nil
}
