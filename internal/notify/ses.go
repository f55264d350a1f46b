// Package notify delivers caregiver invitation e-mails through Amazon SES.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	texttemplate "text/template"

	"babyhabits/internal/domain/baby"
	"babyhabits/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

type Config struct {
	Region     string
	FromEmail  string
	FromName   string
	AppBaseURL string
}

type sender interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Mailer sends invitation e-mails. Without a from address it is disabled
// and only logs what it would have sent.
type Mailer struct {
	client     sender
	fromEmail  string
	fromName   string
	appBaseURL string
	enabled    bool
	log        logger.Logger
}

func NewMailer(ctx context.Context, cfg Config, log logger.Logger) (*Mailer, error) {
	mailer := &Mailer{
		fromEmail:  strings.TrimSpace(cfg.FromEmail),
		fromName:   strings.TrimSpace(cfg.FromName),
		appBaseURL: strings.TrimRight(cfg.AppBaseURL, "/"),
		log:        log,
	}
	if mailer.fromEmail == "" {
		log.Info("notify: email disabled, SES_FROM_EMAIL not configured")
		return mailer, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	mailer.client = sesv2.NewFromConfig(awsCfg)
	mailer.enabled = true
	log.Info("notify: email enabled", "from", mailer.fromEmail, "region", cfg.Region)
	return mailer, nil
}

func (m *Mailer) Enabled() bool {
	return m.enabled
}

func (m *Mailer) SendInvitation(ctx context.Context, invite baby.InvitationEmail) error {
	link := m.joinLink(invite.Code)
	if !m.enabled {
		m.log.Info("notify: skipping invitation email", "to", invite.To, "baby", invite.BabyName)
		return nil
	}

	data := invitationData{
		BabyName:  invite.BabyName,
		Inviter:   invite.InviterEmail,
		Role:      string(invite.Role),
		Code:      invite.Code,
		Link:      link,
		ExpiresOn: invite.ExpiresAt.Format("2 January 2006"),
	}
	if data.Inviter == "" {
		data.Inviter = "A caregiver"
	}

	var html, text bytes.Buffer
	if err := invitationHTML.Execute(&html, data); err != nil {
		return fmt.Errorf("render invitation html: %w", err)
	}
	if err := invitationText.Execute(&text, data); err != nil {
		return fmt.Errorf("render invitation text: %w", err)
	}

	subject := fmt.Sprintf("You're invited to help track %s", invite.BabyName)
	return m.send(ctx, invite.To, subject, html.String(), text.String())
}

func (m *Mailer) send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	from := m.fromEmail
	if m.fromName != "" {
		from = fmt.Sprintf("%s <%s>", m.fromName, m.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
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

	result, err := m.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}

	messageID := ""
	if result != nil && result.MessageId != nil {
		messageID = *result.MessageId
	}
	m.log.Info("notify: email sent", "to", to, "message_id", messageID)
	return nil
}

func (m *Mailer) joinLink(code string) string {
	return m.appBaseURL + "/join?code=" + url.QueryEscape(code)
}

type invitationData struct {
	BabyName  string
	Inviter   string
	Role      string
	Code      string
	Link      string
	ExpiresOn string
}

var invitationHTML = template.Must(template.New("invitation").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<h1>Join {{.BabyName}} on BabyHabits</h1>
		<p>{{.Inviter}} invited you as a <strong>{{.Role}}</strong>.</p>
		<p style="text-align: center;">
			<a href="{{.Link}}" style="display: inline-block; padding: 12px 30px; background-color: #6b8e9f; color: white; text-decoration: none; border-radius: 5px;">Accept invitation</a>
		</p>
		<p>Or enter this code in the app: <strong>{{.Code}}</strong></p>
		<p>The invitation expires on {{.ExpiresOn}}.</p>
	</div>
</body>
</html>
`))

var invitationText = texttemplate.Must(texttemplate.New("invitation-text").Parse(`{{.Inviter}} invited you to help track {{.BabyName}} as a {{.Role}}.

Accept the invitation:
{{.Link}}

Or enter this code in the app: {{.Code}}

The invitation expires on {{.ExpiresOn}}.
`))
