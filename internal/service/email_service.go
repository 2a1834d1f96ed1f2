package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

// EmailService handles sending emails via Amazon SES
type EmailService struct {
	client     *sesv2.Client
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	debug      bool
}

// NewEmailService creates a new email service. An empty fromEmail yields
// a disabled service that logs instead of sending.
func NewEmailService(awsRegion, fromEmail, fromName, appBaseURL string, debug bool) (*EmailService, error) {
	if fromEmail == "" {
		log.Println("Email service disabled: SES_FROM_EMAIL not configured")
		return &EmailService{
			enabled: false,
			debug:   debug,
		}, nil
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(awsRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := sesv2.NewFromConfig(cfg)
	log.Printf("Email service enabled: from=%s, region=%s", fromEmail, awsRegion)

	return &EmailService{
		client:     client,
		fromEmail:  fromEmail,
		fromName:   fromName,
		appBaseURL: appBaseURL,
		enabled:    true,
		debug:      debug,
	}, nil
}

// IsEnabled returns whether the email service is enabled
func (s *EmailService) IsEnabled() bool {
	return s.enabled
}

// SendInvitationEmail tells someone they have been invited to a family
func (s *EmailService) SendInvitationEmail(ctx context.Context, toEmail, familyName, inviterName, code string) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): invitation to %s", toEmail)
		return nil
	}

	joinLink := fmt.Sprintf("%s/invitations?code=%s", s.appBaseURL, code)
	if inviterName == "" {
		inviterName = "A family member"
	}
	if familyName == "" {
		familyName = "their family"
	}

	subject := fmt.Sprintf("%s invited you to join %s", inviterName, familyName)
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #2e7d52; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.button { display: inline-block; padding: 12px 30px; background-color: #2e7d52; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Family Invitation</h1>
		</div>
		<div class="content">
			<p>Hi,</p>
			<p>%s has invited you to join <strong>%s</strong> and share the family's finance tracking.</p>
			<p style="text-align: center;">
				<a href="%s" class="button">View Invitation</a>
			</p>
			<p>Or copy and paste this link into your browser:</p>
			<p style="word-break: break-all; font-size: 12px; color: #666;">%s</p>
			<p>This invitation expires in 7 days.</p>
			<p>If you weren't expecting this invitation, you can safely ignore this email.</p>
		</div>
		<div class="footer">
			<p>This is an automated email. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, inviterName, familyName, joinLink, joinLink)

	textBody := fmt.Sprintf(`Hi,

%s has invited you to join %s and share the family's finance tracking.

View the invitation here:
%s

This invitation expires in 7 days.

If you weren't expecting this invitation, you can safely ignore this email.

---
This is an automated email. Please do not reply.
`, inviterName, familyName, joinLink)

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// reminderBucketOrder fixes the section order in reminder digests
var reminderBucketOrder = []struct {
	key   string
	title string
}{
	{BucketOverdue, "Overdue"},
	{BucketDueToday, "Due today"},
	{BucketUpcoming, "Coming up"},
}

// SendPaymentReminder sends one digest of upcoming installment payments
func (s *EmailService) SendPaymentReminder(ctx context.Context, toEmail, toName string, buckets map[string][]PaymentReminder) error {
	if !s.enabled {
		log.Printf("Skipping email send (service disabled): payment reminder to %s", toEmail)
		return nil
	}
	if toName == "" {
		toName = "there"
	}

	var htmlSections, textSections strings.Builder
	for _, bucket := range reminderBucketOrder {
		reminders := buckets[bucket.key]
		if len(reminders) == 0 {
			continue
		}
		htmlSections.WriteString(fmt.Sprintf("<h3>%s</h3><ul>", bucket.title))
		textSections.WriteString(fmt.Sprintf("\n%s:\n", bucket.title))
		for _, r := range reminders {
			line := fmt.Sprintf("%s %s, installment #%d: %s due %s",
				r.BankName, r.LoanType, r.InstallmentNumber, r.Amount.StringFixed(2), r.DueDate.Format("2006-01-02"))
			htmlSections.WriteString("<li>" + line + "</li>")
			textSections.WriteString("  - " + line + "\n")
		}
		htmlSections.WriteString("</ul>")
	}

	subject := "Your upcoming loan payments"
	if len(buckets[BucketOverdue]) > 0 {
		subject = "You have overdue loan payments"
	}

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #2e7d52; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">
		<div class="header">
			<h1>Payment Reminder</h1>
		</div>
		<div class="content">
			<p>Hi %s,</p>
			%s
		</div>
		<div class="footer">
			<p>This is an automated email. Please do not reply.</p>
		</div>
	</div>
</body>
</html>
`, toName, htmlSections.String())

	textBody := fmt.Sprintf(`Hi %s,
%s
---
This is an automated email. Please do not reply.
`, toName, textSections.String())

	return s.sendEmail(ctx, toEmail, subject, htmlBody, textBody)
}

// sendEmail sends an email using Amazon SES
func (s *EmailService) sendEmail(ctx context.Context, toEmail, subject, htmlBody, textBody string) error {
	fromAddress := s.fromEmail
	if s.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	if s.debug {
		log.Printf("[DEBUG] sendEmail: from=%s, to=%s, subject=%s", fromAddress, toEmail, subject)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{toEmail},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}

	if s.debug && result.MessageId != nil {
		log.Printf("[DEBUG] SES message ID: %s", *result.MessageId)
	}

	log.Printf("Email sent successfully: to=%s, subject=%s", toEmail, subject)
	return nil
}
