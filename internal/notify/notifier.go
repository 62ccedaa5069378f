// Package notify pushes underwriting decisions to the operations team over
// SES email and SNS SMS. It hangs off the orchestrator's decision hook and
// is strictly best effort: a send failure is logged and swallowed.
package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"loanflow/internal/common/logger"
	"loanflow/internal/models"
)

// Interfaces over the AWS clients so tests can mock the sends.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	FromEmail    string
	OpsEmail     string
	OpsPhone     string
}

type Notifier struct {
	config Config
	ses    SESService
	sns    SNSService
	logger logger.Logger
}

func NewNotifier(config Config, sesClient SESService, snsClient SNSService, log logger.Logger) *Notifier {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Notifier{
		config: config,
		ses:    sesClient,
		sns:    snsClient,
		logger: log.WithFields(map[string]interface{}{"component": "notify"}),
	}
}

// DecisionIssued sends the decision summary. SMS goes out only for
// approvals; rejections are email-only.
func (n *Notifier) DecisionIssued(ctx context.Context, state *models.ConversationState) {
	if state.Decision == nil {
		return
	}
	subject, body := composeDecision(state)

	if n.config.EmailEnabled && n.ses != nil && n.config.OpsEmail != "" {
		if err := n.sendEmail(ctx, subject, body); err != nil {
			n.logger.WithError(err).WithFields(map[string]interface{}{
				"conversationId": state.ID,
			}).Error("Decision email failed", nil)
		}
	}

	if n.config.SMSEnabled && n.sns != nil && n.config.OpsPhone != "" && state.Decision.Approved() {
		if err := n.sendSMS(ctx, subject); err != nil {
			n.logger.WithError(err).WithFields(map[string]interface{}{
				"conversationId": state.ID,
			}).Error("Decision SMS failed", nil)
		}
	}
}

func composeDecision(state *models.ConversationState) (subject, body string) {
	d := state.Decision
	subject = fmt.Sprintf("Loan application %s: %s", state.ID, d.Status)
	body = fmt.Sprintf(
		"Applicant: %s\nRequested: %.2f\nStatus: %s\nReason: %s\n",
		state.Applicant.Name, state.Applicant.LoanAmount, d.Status, d.Reason)
	if d.Approved() {
		body += fmt.Sprintf("Approved amount: %.2f\nEMI: %.2f over %d months at %.1f%%\n",
			d.ApprovedAmount, d.MonthlyEMI, d.TenureMonths, d.InterestRate)
	}
	return subject, body
}

func (n *Notifier) sendEmail(ctx context.Context, subject, body string) error {
	_, err := n.ses.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{n.config.OpsEmail},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.config.FromEmail),
	})
	return err
}

func (n *Notifier) sendSMS(ctx context.Context, message string) error {
	_, err := n.sns.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(n.config.OpsPhone),
		Message:     aws.String(message),
	})
	return err
}
