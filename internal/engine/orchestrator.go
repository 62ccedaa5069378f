// internal/engine/orchestrator.go
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	commonerrors "loanflow/internal/common/errors"
	"loanflow/internal/common/logger"
	"loanflow/internal/common/metrics"
	"loanflow/internal/common/observability"
	"loanflow/internal/models"
	"loanflow/pkg/doccatalog"
)

const (
	chatHistoryTail    = 5
	extractHistoryTail = 10

	greetingMaxTokens = 200
	askFieldMaxTokens = 150
	confirmMaxTokens  = 300

	apologyMessage  = "I apologize, but I'm experiencing technical difficulties. Please try again in a moment."
	fallbackMessage = "Thank you for your interest. How can I assist you with your loan application today?"
)

// Deps wires the orchestrator's collaborators. Registry, TextGenerator and
// Extractor are required; the rest degrade gracefully when nil.
type Deps struct {
	Registry Registry
	Gen      TextGenerator
	Extract  Extractor
	Bureau   CreditBureau
	Docs     DocumentProcessor
	Letters  LetterRenderer
	Catalog  *doccatalog.Catalog
	Recorder TurnRecorder
	Hooks    []DecisionHook
	Logger   logger.Logger
	Obs      *observability.Observability
	Now      func() time.Time
}

// Service is the conversation orchestrator. It owns the stage state machine:
// one user message in, one assistant message out, at most one stage
// transition, decision and letter reference each written at most once.
type Service struct {
	deps  Deps
	locks keyedMutex
}

// TurnResult is what one completed turn hands back to the transport. The
// decision and letter reference ride along once set, so clients never have to
// scrape the reply text or make a second history call for them.
type TurnResult struct {
	ConversationID    string           `json:"conversation_id"`
	Response          string           `json:"response"`
	Stage             models.Stage     `json:"stage"`
	Decision          *models.Decision `json:"decision,omitempty"`
	SanctionLetterRef string           `json:"sanction_letter_ref,omitempty"`
}

func NewService(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = logger.NewNoOpLogger()
	}
	if deps.Catalog == nil {
		deps.Catalog = doccatalog.Default()
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{deps: deps}
}

// StartConversation creates a fresh conversation in the GREETING stage.
func (s *Service) StartConversation(ctx context.Context) (*models.ConversationState, error) {
	return s.deps.Registry.Create(ctx)
}

// GetConversation returns the current state for transcript reads.
func (s *Service) GetConversation(ctx context.Context, id string) (*models.ConversationState, error) {
	return s.deps.Registry.Get(ctx, id)
}

// Advance processes one user message: append it, run the current stage's
// handler, append the reply, persist. Turns on the same conversation are
// serialized; concurrent callers wait their turn. Collaborator failures never
// escape as errors here: the stage is retained and the user gets an apology.
func (s *Service) Advance(ctx context.Context, conversationID, userMessage string) (TurnResult, error) {
	unlock := s.locks.lock(conversationID)
	defer unlock()

	state, err := s.deps.Registry.Get(ctx, conversationID)
	if err != nil {
		return TurnResult{}, err
	}

	start := time.Now()
	stageBefore := state.Stage

	state.AppendMessage(models.RoleUser, userMessage, s.deps.Now())
	userMsg := state.Messages[len(state.Messages)-1]

	response, next := s.processTurn(ctx, state)

	state.AppendMessage(models.RoleAssistant, response, s.deps.Now())
	assistantMsg := state.Messages[len(state.Messages)-1]
	state.Stage = next

	if err := s.deps.Registry.Put(ctx, state); err != nil {
		return TurnResult{}, err
	}

	metrics.TurnsCompleted.WithLabelValues(string(stageBefore)).Inc()
	metrics.TurnDuration.WithLabelValues(string(stageBefore)).Observe(time.Since(start).Seconds())
	if s.deps.Obs != nil {
		s.deps.Obs.RecordTurnProcessed(ctx, string(stageBefore), "completed")
		s.deps.Obs.RecordTurnDuration(ctx, time.Since(start), string(stageBefore))
	}
	s.recordTurn(ctx, state, userMsg, assistantMsg)

	s.deps.Logger.WithFields(map[string]interface{}{
		"conversationId": state.ID,
		"stageBefore":    stageBefore,
		"stageAfter":     next,
	}).Info("Turn completed", nil)

	return TurnResult{
		ConversationID:    state.ID,
		Response:          response,
		Stage:             next,
		Decision:          state.Decision,
		SanctionLetterRef: state.SanctionLetterRef,
	}, nil
}

// processTurn dispatches to the current stage's handler. Handler errors are
// absorbed here: log, count, apologize, keep the stage.
func (s *Service) processTurn(ctx context.Context, state *models.ConversationState) (string, models.Stage) {
	var (
		response string
		next     models.Stage
		err      error
	)

	switch state.Stage {
	case models.StageGreeting:
		response, next, err = s.handleGreeting(ctx, state)
	case models.StageInfoGathering:
		response, next, err = s.handleInfoGathering(ctx, state)
	case models.StageVerification:
		response, next, err = s.handleVerification(ctx, state)
	case models.StageVideoKYC:
		response, next, err = s.handleVideoKYC(ctx, state)
	case models.StageUnderwriting:
		response, next, err = s.handleUnderwriting(ctx, state)
	case models.StageSanction:
		response, next, err = s.handleSanction(ctx, state)
	default:
		// COMPLETED and anything unrecognized: static fallback, restart.
		return fallbackMessage, models.StageGreeting
	}

	if err != nil {
		code := commonerrors.CodeOf(err)
		metrics.TurnsFailed.WithLabelValues(string(state.Stage), string(code)).Inc()
		if s.deps.Obs != nil {
			s.deps.Obs.RecordTurnProcessed(ctx, string(state.Stage), "failed")
		}
		s.deps.Logger.WithError(err).WithFields(map[string]interface{}{
			"conversationId": state.ID,
			"stage":          state.Stage,
			"errorCode":      code,
		}).Error("Turn handler failed, stage retained", nil)
		return apologyMessage, state.Stage
	}
	return response, next
}

func (s *Service) handleGreeting(ctx context.Context, state *models.ConversationState) (string, models.Stage, error) {
	response, err := s.deps.Gen.Chat(ctx, greetingPrompt, state.Tail(chatHistoryTail), greetingMaxTokens)
	if err != nil {
		return "", "", err
	}
	return response, models.StageInfoGathering, nil
}

func (s *Service) handleInfoGathering(ctx context.Context, state *models.ConversationState) (string, models.Stage, error) {
	update, err := s.deps.Extract.ExtractApplicantInfo(ctx, state.Tail(extractHistoryTail))
	switch {
	case err == nil:
		state.Applicant.Merge(update)
	case commonerrors.CodeOf(err) == commonerrors.ErrCodeExtractionFailed:
		// Malformed extractor output is recovered locally: keep the record
		// unchanged and let the re-prompt below ask again.
		s.deps.Logger.WithError(err).WithFields(map[string]interface{}{
			"conversationId": state.ID,
		}).Warn("Extraction produced no usable fields", nil)
	default:
		return "", "", err
	}

	if IsComplete(state.Applicant) {
		history := append(state.Tail(chatHistoryTail), models.Message{
			Role:      models.RoleUser,
			Content:   confirmationRequest(state.Applicant),
			Timestamp: s.deps.Now(),
		})
		response, err := s.deps.Gen.Chat(ctx, confirmPrompt, history, confirmMaxTokens)
		if err != nil {
			return "", "", err
		}
		return response, models.StageVerification, nil
	}

	field := NextMissingField(state.Applicant)
	response, err := s.deps.Gen.Chat(ctx, askMissingPrompt(field, state.Applicant), state.Tail(chatHistoryTail), askFieldMaxTokens)
	if err != nil {
		return "", "", err
	}
	return response, models.StageInfoGathering, nil
}

func (s *Service) handleVerification(_ context.Context, state *models.ConversationState) (string, models.Stage, error) {
	result := CheckDocuments(state.Documents, state.Applicant, s.deps.Catalog)
	if result.Passed {
		return "Great! Your documents are verified. Now analyzing your eligibility...",
			models.StageUnderwriting, nil
	}
	for _, tag := range result.MissingDocs {
		if tag == models.DocVideoKYC {
			return "Almost there! Please complete your Video KYC by uploading a selfie holding your PAN card.",
				models.StageVideoKYC, nil
		}
	}
	return result.Message, models.StageVerification, nil
}

func (s *Service) handleVideoKYC(_ context.Context, state *models.ConversationState) (string, models.Stage, error) {
	if _, ok := state.Documents[models.DocVideoKYC]; !ok {
		return "Please complete the Video KYC to proceed. Upload a selfie holding your PAN card.",
			models.StageVideoKYC, nil
	}
	result := CheckDocuments(state.Documents, state.Applicant, s.deps.Catalog)
	if result.Passed {
		return "Video KYC received and verified! Proceeding with final eligibility checks...",
			models.StageUnderwriting, nil
	}
	return "Video KYC received. " + result.Message, models.StageVerification, nil
}

func (s *Service) handleUnderwriting(ctx context.Context, state *models.ConversationState) (string, models.Stage, error) {
	if state.Decision == nil {
		if err := s.enrichFromBureau(ctx, state); err != nil {
			return "", "", err
		}
		decision, err := AssessRisk(state.Applicant, s.deps.Now())
		if err != nil {
			return "", "", err
		}
		state.Decision = decision

		metrics.DecisionsIssued.WithLabelValues(string(decision.Status)).Inc()
		s.deps.Logger.WithFields(map[string]interface{}{
			"conversationId": state.ID,
			"status":         decision.Status,
			"reason":         decision.Reason,
		}).Info("Underwriting decision issued", nil)
		for _, hook := range s.deps.Hooks {
			hook.DecisionIssued(ctx, state)
		}
	}

	decision := state.Decision
	if decision.Approved() {
		response := fmt.Sprintf(
			"Congratulations %s! Your loan application has been APPROVED!\n\n"+
				"Approved Amount: Rs %s\n"+
				"Interest Rate: %.1f%% per annum\n"+
				"Tenure: %d months\n"+
				"Monthly EMI: Rs %s\n\n"+
				"Generating your sanction letter now. Send any message to receive it.",
			state.Applicant.Name,
			formatAmount(decision.ApprovedAmount),
			decision.InterestRate,
			decision.TenureMonths,
			formatAmount(decision.MonthlyEMI),
		)
		return response, models.StageSanction, nil
	}

	var b strings.Builder
	b.WriteString("I'm sorry, but we cannot approve your loan application at this time.\n\n")
	b.WriteString("Reason: " + decision.Reason)
	if len(decision.Suggestions) > 0 {
		b.WriteString("\n\nHere's what you can do:")
		for _, suggestion := range decision.Suggestions {
			b.WriteString("\n- " + suggestion)
		}
	}
	return b.String(), models.StageCompleted, nil
}

// enrichFromBureau fills credit score and existing loans from the bureau when
// a PAN is on record and no score has been collected yet.
func (s *Service) enrichFromBureau(ctx context.Context, state *models.ConversationState) error {
	if s.deps.Bureau == nil || state.Applicant.PANNumber == "" || state.Applicant.CreditScore > 0 {
		return nil
	}
	report, err := s.deps.Bureau.Lookup(ctx, state.Applicant.PANNumber)
	if err != nil {
		return err
	}
	state.Applicant.CreditScore = report.CreditScore
	if state.Applicant.ExistingLoans == 0 {
		state.Applicant.ExistingLoans = report.ExistingLoans
	}
	return nil
}

func (s *Service) handleSanction(ctx context.Context, state *models.ConversationState) (string, models.Stage, error) {
	if state.Decision == nil || !state.Decision.Approved() {
		return fallbackMessage, models.StageGreeting, nil
	}
	if state.SanctionLetterRef == "" {
		if s.deps.Letters == nil {
			return "", "", commonerrors.NewLetterRenderFailedError(fmt.Errorf("letter renderer not configured"))
		}
		ref, err := s.deps.Letters.Render(ctx, state.ID, state.Applicant, *state.Decision)
		if err != nil {
			return "", "", err
		}
		state.SanctionLetterRef = ref
		s.deps.Logger.WithFields(map[string]interface{}{
			"conversationId": state.ID,
			"letterRef":      ref,
		}).Info("Sanction letter rendered", nil)
	}
	response := fmt.Sprintf(
		"Your sanction letter is ready! Reference: %s\n\n"+
			"Thank you for choosing us, %s. Our team will contact you shortly with the disbursement details.",
		state.SanctionLetterRef, state.Applicant.Name)
	return response, models.StageCompleted, nil
}

// IngestDocument records an upload against the conversation and forwards the
// content to the document service. Document types outside the catalog are
// rejected up front. The tag is recorded before the service call, so a
// processing failure still leaves the document on file. Stage logic is
// untouched; the next chat turn picks the document up.
func (s *Service) IngestDocument(ctx context.Context, conversationID string, meta DocumentMeta, content []byte) (string, error) {
	if !s.deps.Catalog.Has(meta.DocType) {
		return "", commonerrors.NewDocumentValidationFailedError(
			fmt.Sprintf("unknown document type: %s", meta.DocType))
	}

	unlock := s.locks.lock(conversationID)
	defer unlock()

	state, err := s.deps.Registry.Get(ctx, conversationID)
	if err != nil {
		return "", err
	}

	meta.ConversationID = conversationID
	state.Documents[meta.DocType] = meta.Filename
	state.UpdatedAt = s.deps.Now()

	ackText := fmt.Sprintf("Received your %s.", s.deps.Catalog.DisplayName(meta.DocType))
	storedRef := meta.Filename
	if s.deps.Docs != nil {
		ack, err := s.deps.Docs.Receive(ctx, meta, content)
		if err != nil {
			s.deps.Logger.WithError(err).WithFields(map[string]interface{}{
				"conversationId": conversationID,
				"docType":        meta.DocType,
			}).Error("Document processing failed, tag kept on file", nil)
			ackText = fmt.Sprintf("Received your %s. Processing is delayed; we'll verify it shortly.",
				s.deps.Catalog.DisplayName(meta.DocType))
		} else {
			if ack.Message != "" {
				ackText = ack.Message
			}
			if ack.StoredRef != "" {
				storedRef = ack.StoredRef
				state.Documents[meta.DocType] = ack.StoredRef
			}
			if ack.PANNumber != "" {
				state.Applicant.Merge(models.ApplicantUpdate{PANNumber: &ack.PANNumber})
			}
		}
	}

	if err := s.deps.Registry.Put(ctx, state); err != nil {
		return "", err
	}

	metrics.DocumentsIngested.WithLabelValues(meta.DocType).Inc()
	if s.deps.Recorder != nil {
		if err := s.deps.Recorder.RecordDocument(ctx, conversationID, meta.DocType, storedRef); err != nil {
			s.deps.Logger.WithError(err).Warn("Failed to archive document record", nil)
		}
	}
	return ackText, nil
}

func (s *Service) recordTurn(ctx context.Context, state *models.ConversationState, user, assistant models.Message) {
	if s.deps.Recorder == nil {
		return
	}
	if err := s.deps.Recorder.RecordTurn(ctx, state, user, assistant); err != nil {
		s.deps.Logger.WithError(err).WithFields(map[string]interface{}{
			"conversationId": state.ID,
		}).Warn("Failed to archive turn", nil)
	}
}

// keyedMutex serializes turns per conversation. Entries are never removed;
// conversations are short-lived and the per-key cost is one mutex.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
