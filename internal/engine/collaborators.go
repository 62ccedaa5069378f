// internal/engine/collaborators.go
package engine

import (
	"context"

	"loanflow/internal/models"
)

// TextGenerator produces the conversational reply text for a turn. The
// history passed in is a bounded tail of the transcript, oldest first.
type TextGenerator interface {
	Chat(ctx context.Context, systemPrompt string, history []models.Message, maxTokens int) (string, error)
}

// Extractor pulls structured applicant fields out of the conversation tail.
// A malformed extractor response comes back as an EXTRACTION_FAILED error;
// the orchestrator treats that as "no update this turn" and re-prompts.
type Extractor interface {
	ExtractApplicantInfo(ctx context.Context, history []models.Message) (models.ApplicantUpdate, error)
}

// BureauReport is the credit bureau's view of one PAN.
type BureauReport struct {
	CreditScore   int     `json:"credit_score"`
	ExistingLoans float64 `json:"existing_loans"`
}

// CreditBureau looks up credit standing by PAN before underwriting.
type CreditBureau interface {
	Lookup(ctx context.Context, pan string) (BureauReport, error)
}

// DocumentMeta describes one uploaded file.
type DocumentMeta struct {
	ConversationID string
	DocType        string
	Filename       string
	ContentType    string
}

// DocumentAck is the document service's intake result. PANNumber carries the
// value parsed out of the document content when the service found one; it is
// never derived from the filename.
type DocumentAck struct {
	Message   string
	StoredRef string
	PANNumber string
}

// DocumentProcessor receives uploaded documents for storage and parsing.
type DocumentProcessor interface {
	Receive(ctx context.Context, meta DocumentMeta, content []byte) (DocumentAck, error)
}

// LetterRenderer renders the sanction letter artifact and returns its
// reference.
type LetterRenderer interface {
	Render(ctx context.Context, conversationID string, a models.ApplicantRecord, d models.Decision) (string, error)
}

// Registry stores conversation state between turns.
type Registry interface {
	Create(ctx context.Context) (*models.ConversationState, error)
	Get(ctx context.Context, id string) (*models.ConversationState, error)
	Put(ctx context.Context, state *models.ConversationState) error
}

// TurnRecorder archives completed turns and document intakes. Recording is
// best effort; failures are logged, never surfaced to the user.
type TurnRecorder interface {
	RecordTurn(ctx context.Context, state *models.ConversationState, user, assistant models.Message) error
	RecordDocument(ctx context.Context, conversationID, docType, ref string) error
}

// DecisionHook runs exactly once per conversation, right after the decision
// is first stored. Notifiers and search indexers hang off this.
type DecisionHook interface {
	DecisionIssued(ctx context.Context, state *models.ConversationState)
}
