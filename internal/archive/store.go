// Package archive writes an audit trail of conversations to PostgreSQL. The
// registry remains the source of truth for live turns; the archive is
// append-mostly and feeds the stats and back-office queries.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	commonerrors "loanflow/internal/common/errors"
	"loanflow/internal/common/logger"
	"loanflow/internal/models"
)

type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func NewStore(db *sql.DB, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Store{db: db, logger: log.WithFields(map[string]interface{}{"component": "archive"})}
}

// RecordTurn upserts the conversation snapshot and appends the turn's two
// messages. Runs after the registry write; a failure here is logged by the
// caller and never breaks the turn.
func (s *Store) RecordTurn(ctx context.Context, state *models.ConversationState, user, assistant models.Message) error {
	applicant, err := json.Marshal(state.Applicant)
	if err != nil {
		return commonerrors.NewDatabaseFailedError("marshal applicant", err)
	}
	var decision []byte
	if state.Decision != nil {
		decision, err = json.Marshal(state.Decision)
		if err != nil {
			return commonerrors.NewDatabaseFailedError("marshal decision", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, stage, applicant, decision, sanction_letter_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			stage = EXCLUDED.stage,
			applicant = EXCLUDED.applicant,
			decision = EXCLUDED.decision,
			sanction_letter_ref = EXCLUDED.sanction_letter_ref,
			updated_at = EXCLUDED.updated_at`,
		state.ID, string(state.Stage), applicant, nullableBytes(decision),
		nullableString(state.SanctionLetterRef), state.CreatedAt, state.UpdatedAt)
	if err != nil {
		return commonerrors.NewDatabaseFailedError("upsert conversation", err)
	}

	for _, msg := range []models.Message{user, assistant} {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO messages (conversation_id, role, content, created_at)
			VALUES ($1, $2, $3, $4)`,
			state.ID, msg.Role, msg.Content, msg.Timestamp)
		if err != nil {
			return commonerrors.NewDatabaseFailedError("insert message", err)
		}
	}
	return nil
}

// RecordDocument appends one document intake row.
func (s *Store) RecordDocument(ctx context.Context, conversationID, docType, ref string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (conversation_id, doc_type, stored_ref, received_at)
		VALUES ($1, $2, $3, $4)`,
		conversationID, docType, ref, time.Now().UTC())
	if err != nil {
		return commonerrors.NewDatabaseFailedError("insert document", err)
	}
	return nil
}

// Stats summarizes archived conversations for the operations endpoint.
type Stats struct {
	TotalConversations int            `json:"total_conversations"`
	ByStage            map[string]int `json:"by_stage"`
	Approved           int            `json:"approved"`
	Rejected           int            `json:"rejected"`
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{ByStage: map[string]int{}}

	rows, err := s.db.QueryContext(ctx, `
		SELECT stage, COUNT(*) FROM conversations GROUP BY stage`)
	if err != nil {
		return Stats{}, commonerrors.NewDatabaseFailedError("stats by stage", err)
	}
	defer rows.Close()
	for rows.Next() {
		var stage string
		var count int
		if err := rows.Scan(&stage, &count); err != nil {
			return Stats{}, commonerrors.NewDatabaseFailedError("scan stage row", err)
		}
		stats.ByStage[stage] = count
		stats.TotalConversations += count
	}
	if err := rows.Err(); err != nil {
		return Stats{}, commonerrors.NewDatabaseFailedError("stats rows", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE decision->>'status' = 'APPROVED'),
			COUNT(*) FILTER (WHERE decision->>'status' = 'REJECTED')
		FROM conversations
		WHERE decision IS NOT NULL`).Scan(&stats.Approved, &stats.Rejected)
	if err != nil {
		return Stats{}, commonerrors.NewDatabaseFailedError("stats decisions", err)
	}
	return stats, nil
}

// ApplicationSummary is one back-office row.
type ApplicationSummary struct {
	ConversationID string    `json:"conversation_id"`
	Stage          string    `json:"stage"`
	ApplicantName  string    `json:"applicant_name"`
	LoanAmount     float64   `json:"loan_amount"`
	DecisionStatus string    `json:"decision_status,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ListApplications returns recent applications, newest first.
func (s *Store) ListApplications(ctx context.Context, limit int) ([]ApplicationSummary, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, stage,
		       COALESCE(applicant->>'name', ''),
		       COALESCE((applicant->>'loan_amount')::float8, 0),
		       COALESCE(decision->>'status', ''),
		       updated_at
		FROM conversations
		ORDER BY updated_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, commonerrors.NewDatabaseFailedError("list applications", err)
	}
	defer rows.Close()

	var results []ApplicationSummary
	for rows.Next() {
		var row ApplicationSummary
		if err := rows.Scan(&row.ConversationID, &row.Stage, &row.ApplicantName,
			&row.LoanAmount, &row.DecisionStatus, &row.UpdatedAt); err != nil {
			return nil, commonerrors.NewDatabaseFailedError("scan application row", err)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, commonerrors.NewDatabaseFailedError("list rows", err)
	}
	return results, nil
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func nullableBytes(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}
