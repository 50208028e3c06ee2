package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	pkglogger "github.com/icpac-net/booking-api/pkg/logger"
)

// EmailService defines the interface for delivering verification codes
type EmailService interface {
	SendVerificationCode(ctx context.Context, email, code string, expiresAt time.Time) error
}

// AWSSESEmailService sends verification codes using AWS SES
type AWSSESEmailService struct {
	sesClient     *ses.Client
	fromAddress   string
	subjectPrefix string
	logger        *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(region, fromAddress, subjectPrefix string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailService{
		sesClient:     ses.NewFromConfig(cfg),
		fromAddress:   fromAddress,
		subjectPrefix: subjectPrefix,
		logger:        logger,
	}, nil
}

// SendVerificationCode sends the one-time code to the user
func (s *AWSSESEmailService) SendVerificationCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	validFor := time.Until(expiresAt).Round(time.Minute)

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #f8f9fa; padding: 20px; text-align: center; border-radius: 4px; }
        .content { padding: 20px 0; }
        .code { font-size: 32px; letter-spacing: 8px; font-weight: bold; text-align: center; padding: 16px; background-color: #f8f9fa; border-radius: 4px; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
        .warning { background-color: #fff3cd; padding: 10px; border-left: 4px solid #ffc107; margin: 10px 0; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Your Verification Code</h1>
        </div>
        <div class="content">
            <p>Hello,</p>
            <p>Use the code below to sign in to the ICPAC booking system:</p>
            <div class="code">%s</div>
            <div class="warning">
                <strong>Security Notice:</strong> This code expires in %s and can only be used once.
            </div>
            <p><strong>Didn't request this code?</strong><br>
            If you didn't try to sign in, you can ignore this email. Your account remains secure.</p>
        </div>
        <div class="footer">
            <p>This is an automated message. Please do not reply to this email.</p>
        </div>
    </div>
</body>
</html>
`, code, validFor)

	textBody := fmt.Sprintf(`Your Verification Code

Use the code below to sign in to the ICPAC booking system:

%s

Security Notice: This code expires in %s and can only be used once.

Didn't request this code?
If you didn't try to sign in, you can ignore this email. Your account remains secure.

This is an automated message. Please do not reply to this email.
`, code, validFor)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(s.subjectPrefix + "Your verification code"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send verification code via SES",
			slog.String("email", pkglogger.SanitizedEmail(email)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("verification code sent",
		slog.String("email", pkglogger.SanitizedEmail(email)),
		slog.String("message_id", *result.MessageId))

	return nil
}

// LogEmailService writes codes to the application log instead of sending
// mail. Development only; never enable in production.
type LogEmailService struct {
	logger *slog.Logger
}

// NewLogEmailService creates a log-backed email service
func NewLogEmailService(logger *slog.Logger) *LogEmailService {
	return &LogEmailService{logger: logger}
}

// SendVerificationCode logs the code instead of delivering it
func (s *LogEmailService) SendVerificationCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	s.logger.Info("verification code (log delivery)",
		slog.String("email", email),
		slog.String("code", code),
		slog.Time("expires_at", expiresAt))
	return nil
}
