// Package search indexes decided loan applications into Elasticsearch so the
// back office can run free-text and aggregation queries over them.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"loanflow/internal/common/logger"
	"loanflow/internal/models"
)

type Indexer struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewIndexer(client *elasticsearch.Client, index string, log logger.Logger) *Indexer {
	if index == "" {
		index = "loan-applications"
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Indexer{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "search"}),
	}
}

// applicationDoc is the indexed shape. Flat fields only; the transcript
// stays out of the index.
type applicationDoc struct {
	ConversationID string    `json:"conversation_id"`
	ApplicantName  string    `json:"applicant_name"`
	LoanAmount     float64   `json:"loan_amount"`
	LoanPurpose    string    `json:"loan_purpose"`
	MonthlySalary  float64   `json:"monthly_salary"`
	EmploymentType string    `json:"employment_type"`
	CreditScore    int       `json:"credit_score"`
	Status         string    `json:"status"`
	Reason         string    `json:"reason"`
	MonthlyEMI     float64   `json:"monthly_emi,omitempty"`
	DecidedAt      time.Time `json:"decided_at"`
}

// DecisionIssued indexes the application once the decision lands. Best
// effort; indexing failures never touch the conversation flow.
func (i *Indexer) DecisionIssued(ctx context.Context, state *models.ConversationState) {
	if state.Decision == nil {
		return
	}
	doc := applicationDoc{
		ConversationID: state.ID,
		ApplicantName:  state.Applicant.Name,
		LoanAmount:     state.Applicant.LoanAmount,
		LoanPurpose:    state.Applicant.LoanPurpose,
		MonthlySalary:  state.Applicant.MonthlySalary,
		EmploymentType: state.Applicant.EmploymentType,
		CreditScore:    state.Applicant.CreditScore,
		Status:         string(state.Decision.Status),
		Reason:         state.Decision.Reason,
		MonthlyEMI:     state.Decision.MonthlyEMI,
		DecidedAt:      state.Decision.DecidedAt,
	}

	body, err := json.Marshal(doc)
	if err != nil {
		i.logger.WithError(err).Error("Failed to marshal application doc", nil)
		return
	}

	req := esapi.IndexRequest{
		Index:      i.index,
		DocumentID: state.ID,
		Body:       bytes.NewReader(body),
		Refresh:    "false",
	}
	resp, err := req.Do(ctx, i.client)
	if err != nil {
		i.logger.WithError(err).WithFields(map[string]interface{}{
			"conversationId": state.ID,
		}).Error("Failed to index application", nil)
		return
	}
	defer resp.Body.Close()
	if resp.IsError() {
		i.logger.WithError(fmt.Errorf("status %s", resp.Status())).WithFields(map[string]interface{}{
			"conversationId": state.ID,
		}).Error("Elasticsearch rejected application doc", nil)
		return
	}
	i.logger.WithFields(map[string]interface{}{
		"conversationId": state.ID,
		"status":         doc.Status,
	}).Debug("Application indexed", nil)
}
