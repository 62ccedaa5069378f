// internal/notify/notifier_test.go
package notify

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanflow/internal/common/logger"
	"loanflow/internal/models"
)

type fakeSES struct {
	inputs []*ses.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{}, nil
}

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{}, nil
}

func enabledConfig() Config {
	return Config{
		EmailEnabled: true,
		SMSEnabled:   true,
		FromEmail:    "loans@example.com",
		OpsEmail:     "ops@example.com",
		OpsPhone:     "+919876543210",
	}
}

func decidedState(status models.DecisionStatus) *models.ConversationState {
	state := models.NewConversationState("conv-1", time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	state.Applicant.Name = "Priya Sharma"
	state.Applicant.LoanAmount = 500000
	state.Decision = &models.Decision{
		Status:         status,
		Reason:         "Application approved",
		ApprovedAmount: 500000,
		InterestRate:   12.5,
		TenureMonths:   36,
		MonthlyEMI:     16726.80,
		DecidedAt:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	return state
}

func TestDecisionIssued_ApprovedSendsEmailAndSMS(t *testing.T) {
	sesFake := &fakeSES{}
	snsFake := &fakeSNS{}
	notifier := NewNotifier(enabledConfig(), sesFake, snsFake, logger.NewTestLogger(t))

	notifier.DecisionIssued(context.Background(), decidedState(models.DecisionApproved))

	require.Len(t, sesFake.inputs, 1)
	email := sesFake.inputs[0]
	assert.Equal(t, "loans@example.com", *email.Source)
	assert.Equal(t, []string{"ops@example.com"}, email.Destination.ToAddresses)
	assert.Contains(t, *email.Message.Subject.Data, "APPROVED")
	assert.Contains(t, *email.Message.Body.Text.Data, "Priya Sharma")
	assert.Contains(t, *email.Message.Body.Text.Data, "Approved amount")

	require.Len(t, snsFake.inputs, 1)
	assert.Equal(t, "+919876543210", *snsFake.inputs[0].PhoneNumber)
	assert.Contains(t, *snsFake.inputs[0].Message, "APPROVED")
}

func TestDecisionIssued_RejectedIsEmailOnly(t *testing.T) {
	sesFake := &fakeSES{}
	snsFake := &fakeSNS{}
	notifier := NewNotifier(enabledConfig(), sesFake, snsFake, logger.NewTestLogger(t))

	state := decidedState(models.DecisionRejected)
	state.Decision.Reason = "Monthly salary is insufficient for EMI repayment"
	notifier.DecisionIssued(context.Background(), state)

	require.Len(t, sesFake.inputs, 1)
	assert.Contains(t, *sesFake.inputs[0].Message.Subject.Data, "REJECTED")
	assert.NotContains(t, *sesFake.inputs[0].Message.Body.Text.Data, "Approved amount")
	assert.Empty(t, snsFake.inputs, "rejections must not page over SMS")
}

func TestDecisionIssued_DisabledChannelsStaySilent(t *testing.T) {
	sesFake := &fakeSES{}
	snsFake := &fakeSNS{}
	config := enabledConfig()
	config.EmailEnabled = false
	config.SMSEnabled = false
	notifier := NewNotifier(config, sesFake, snsFake, logger.NewTestLogger(t))

	notifier.DecisionIssued(context.Background(), decidedState(models.DecisionApproved))

	assert.Empty(t, sesFake.inputs)
	assert.Empty(t, snsFake.inputs)
}

func TestDecisionIssued_NoDecisionIsNoOp(t *testing.T) {
	sesFake := &fakeSES{}
	snsFake := &fakeSNS{}
	notifier := NewNotifier(enabledConfig(), sesFake, snsFake, logger.NewTestLogger(t))

	state := models.NewConversationState("conv-1", time.Now().UTC())
	notifier.DecisionIssued(context.Background(), state)

	assert.Empty(t, sesFake.inputs)
	assert.Empty(t, snsFake.inputs)
}

func TestDecisionIssued_SendFailureIsSwallowed(t *testing.T) {
	sesFake := &fakeSES{err: assert.AnError}
	snsFake := &fakeSNS{err: assert.AnError}
	notifier := NewNotifier(enabledConfig(), sesFake, snsFake, logger.NewTestLogger(t))

	assert.NotPanics(t, func() {
		notifier.DecisionIssued(context.Background(), decidedState(models.DecisionApproved))
	})
	assert.Len(t, sesFake.inputs, 1)
	assert.Len(t, snsFake.inputs, 1)
}
