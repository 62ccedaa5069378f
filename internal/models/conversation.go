// internal/models/conversation.go
package models

import "time"

// Stage identifies one phase of the loan conversation workflow.
type Stage string

const (
	StageGreeting      Stage = "GREETING"
	StageInfoGathering Stage = "INFO_GATHERING"
	StageVerification  Stage = "VERIFICATION"
	StageVideoKYC      Stage = "VIDEO_KYC"
	StageUnderwriting  Stage = "UNDERWRITING"
	StageSanction      Stage = "SANCTION"
	StageCompleted     Stage = "COMPLETED"
)

// Known returns false for stages outside the workflow, which the
// orchestrator treats the same as COMPLETED.
func (s Stage) Known() bool {
	switch s {
	case StageGreeting, StageInfoGathering, StageVerification,
		StageVideoKYC, StageUnderwriting, StageSanction, StageCompleted:
		return true
	}
	return false
}

// Message is one entry of the conversation transcript. Messages are
// immutable once appended.
type Message struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DocumentSet maps a document type tag to the stored reference for the most
// recent upload of that type. A later upload of the same tag overwrites the
// earlier one.
type DocumentSet map[string]string

// Document type tags accepted by the checklist.
const (
	DocSalarySlip    = "salary_slip"
	DocPANCard       = "pan_card"
	DocAadhaar       = "aadhaar"
	DocBankStatement = "bank_statement"
	DocVideoKYC      = "video_kyc_selfie"
)

// ConversationState is the aggregate root for one applicant conversation.
// It is created by the registry, mutated only by the orchestrator during a
// turn, and serialized as JSON by registry implementations.
type ConversationState struct {
	ID        string          `json:"conversation_id"`
	Stage     Stage           `json:"stage"`
	Messages  []Message       `json:"messages"`
	Applicant ApplicantRecord `json:"applicant"`
	Documents DocumentSet     `json:"documents"`
	Decision  *Decision       `json:"decision,omitempty"`

	// SanctionLetterRef is set once the letter service has rendered the
	// sanction artifact.
	SanctionLetterRef string    `json:"sanction_letter_ref,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// NewConversationState returns a fresh conversation in the GREETING stage.
func NewConversationState(id string, now time.Time) *ConversationState {
	return &ConversationState{
		ID:        id,
		Stage:     StageGreeting,
		Messages:  []Message{},
		Documents: DocumentSet{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AppendMessage appends to the transcript. The transcript is append-only;
// nothing ever removes or edits an entry.
func (c *ConversationState) AppendMessage(role, content string, at time.Time) {
	c.Messages = append(c.Messages, Message{Role: role, Content: content, Timestamp: at})
	c.UpdatedAt = at
}

// Tail returns up to n most recent messages.
func (c *ConversationState) Tail(n int) []Message {
	if len(c.Messages) <= n {
		return c.Messages
	}
	return c.Messages[len(c.Messages)-n:]
}
