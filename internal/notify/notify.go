// Package notify sends the post-submission emails and the operations SNS
// ping. All sends are best effort and independent: one failing never stops
// the others, and the caller treats any failure as non-fatal.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"funding-apply/internal/common/config"
	"funding-apply/internal/common/logger"
	"funding-apply/internal/signature"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Interfaces for mocking the AWS clients in tests.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Submission carries everything the notifications reference.
type Submission struct {
	ApplicantName  string
	ApplicantEmail string
	BusinessName   string
	FundingAmount  string
	DocumentURL    string
	Certificate    signature.Certificate
}

// Result reports which sends succeeded. The pipeline logs it and moves on.
type Result struct {
	ApplicantEmailSent bool
	AdminEmailSent     bool
	OpsPingSent        bool
}

// Mailer sends the applicant confirmation, the admin alert, and the
// operations topic ping.
type Mailer struct {
	cfg       config.NotifyConfig
	sesClient SESService
	snsClient SNSService
	logger    logger.Logger
}

func NewMailer(cfg config.NotifyConfig, sesClient SESService, snsClient SNSService, log logger.Logger) *Mailer {
	return &Mailer{
		cfg:       cfg,
		sesClient: sesClient,
		snsClient: snsClient,
		logger:    log.WithFields(map[string]interface{}{"component": "notify"}),
	}
}

// Send fires all notifications for one submission. Each send is attempted
// regardless of what the previous ones did.
func (m *Mailer) Send(ctx context.Context, sub Submission) Result {
	var res Result

	if m.cfg.EmailEnabled && strings.TrimSpace(sub.ApplicantEmail) != "" {
		subject, body := applicantEmail(sub)
		if err := m.sendEmail(ctx, sub.ApplicantEmail, subject, body); err != nil {
			m.logger.Error("applicant email failed", map[string]interface{}{
				"error": err,
				"email": sub.ApplicantEmail,
			})
		} else {
			res.ApplicantEmailSent = true
		}
	}

	if m.cfg.EmailEnabled && strings.TrimSpace(m.cfg.AdminEmail) != "" {
		subject, body := adminEmail(sub)
		if err := m.sendEmail(ctx, m.cfg.AdminEmail, subject, body); err != nil {
			m.logger.Error("admin email failed", map[string]interface{}{
				"error": err,
				"email": m.cfg.AdminEmail,
			})
		} else {
			res.AdminEmailSent = true
		}
	}

	if m.cfg.SNSEnabled && strings.TrimSpace(m.cfg.SNSTopicARN) != "" {
		if err := m.publishOpsPing(ctx, sub); err != nil {
			m.logger.Error("ops ping failed", map[string]interface{}{
				"error": err,
				"topic": m.cfg.SNSTopicARN,
			})
		} else {
			res.OpsPingSent = true
		}
	}

	return res
}

func (m *Mailer) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := m.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
				Html: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(m.cfg.FromEmail),
	})
	return err
}

func (m *Mailer) publishOpsPing(ctx context.Context, sub Submission) error {
	message := renderTemplate(
		"New funding application: {{businessName}} requesting ${{fundingAmount}} (certificate {{signingId}})",
		templateData(sub),
	)
	_, err := m.snsClient.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(m.cfg.SNSTopicARN),
		Subject:  aws.String("Funding application received"),
		Message:  aws.String(message),
	})
	return err
}

func applicantEmail(sub Submission) (string, string) {
	data := templateData(sub)
	subject := renderTemplate("We received your funding application, {{applicantName}}", data)
	body := renderTemplate(
		"Hi {{applicantName}},\n\n"+
			"Thank you for applying. Your application for {{businessName}} requesting ${{fundingAmount}} "+
			"was signed and submitted on {{signedAt}}.\n\n"+
			"Certificate ID: {{signingId}}\n\n"+
			"Our team will review it and get back to you within two business days.",
		data,
	)
	return subject, body
}

func adminEmail(sub Submission) (string, string) {
	data := templateData(sub)
	subject := renderTemplate("New application: {{businessName}}", data)
	body := renderTemplate(
		"Business: {{businessName}}\n"+
			"Applicant: {{applicantName}} <{{applicantEmail}}>\n"+
			"Amount: ${{fundingAmount}}\n"+
			"Document: {{documentUrl}}\n"+
			"Certificate: {{signingId}} ({{signerIp}})",
		data,
	)
	return subject, body
}

func templateData(sub Submission) map[string]interface{} {
	return map[string]interface{}{
		"applicantName":  sub.ApplicantName,
		"applicantEmail": sub.ApplicantEmail,
		"businessName":   sub.BusinessName,
		"fundingAmount":  sub.FundingAmount,
		"documentUrl":    sub.DocumentURL,
		"signingId":      sub.Certificate.SigningID,
		"signerIp":       sub.Certificate.IP,
		"signedAt":       sub.Certificate.Timestamp.Format(time.RFC3339),
	}
}

// renderTemplate replaces {{placeholder}} tokens and strips any that are
// left unresolved.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
}
