// Package services provides external service integrations and technical concerns like payments and tokens
package services

import (
	"fmt"
	"log"
	"net/smtp"
	"net/url"
	"strings"
)

// MailerService builds and sends the lifecycle emails. Callers hand it the
// plaintext token; the stored hash never reaches this layer.
type MailerService interface {
	SendVerificationEmail(email, name, token string) error
	SendPasswordResetEmail(email, name, token string) error
}

// MailerServiceImpl implements MailerService over an EmailProvider
type MailerServiceImpl struct {
	provider    EmailProvider
	frontendURL string
}

// EmailProvider interface for email delivery
type EmailProvider interface {
	SendEmail(email, subject, message string) error
}

// NewMailerService creates a new mailer service
func NewMailerService(provider EmailProvider, frontendURL string) MailerService {
	return &MailerServiceImpl{
		provider:    provider,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// SendVerificationEmail sends the email verification link
func (s *MailerServiceImpl) SendVerificationEmail(email, name, token string) error {
	if s.provider == nil {
		return fmt.Errorf("email provider not configured")
	}
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address: %s", email)
	}

	link := fmt.Sprintf("%s/verify-email?token=%s", s.frontendURL, url.QueryEscape(token))
	message := fmt.Sprintf(
		"Hi %s,\n\nPlease verify your email address by opening the link below. The link expires in 30 minutes.\n\n%s\n\nIf you did not create an account, you can ignore this email.",
		name, link)

	return s.provider.SendEmail(email, "Verify your email address", message)
}

// SendPasswordResetEmail sends the password reset link
func (s *MailerServiceImpl) SendPasswordResetEmail(email, name, token string) error {
	if s.provider == nil {
		return fmt.Errorf("email provider not configured")
	}
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address: %s", email)
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, url.QueryEscape(token))
	message := fmt.Sprintf(
		"Hi %s,\n\nA password reset was requested for your account. Open the link below to choose a new password. The link expires in 60 minutes.\n\n%s\n\nIf you did not request this, you can ignore this email.",
		name, link)

	return s.provider.SendEmail(email, "Reset your password", message)
}

type MockEmailProvider struct{}

func NewMockEmailProvider() EmailProvider {
	return &MockEmailProvider{}
}

func (p *MockEmailProvider) SendEmail(email, subject, message string) error {
	log.Printf("Email sent to %s [%s]: %s", email, subject, message)
	return nil
}

type SMTPEmailProvider struct {
	host      string
	port      int
	username  string
	password  string
	fromEmail string
}

func NewSMTPEmailProvider(host string, port int, username, password, fromEmail string) EmailProvider {
	return &SMTPEmailProvider{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromEmail: fromEmail,
	}
}

func (p *SMTPEmailProvider) SendEmail(email, subject, message string) error {
	addr := fmt.Sprintf("%s:%d", p.host, p.port)

	var auth smtp.Auth
	if p.username != "" {
		auth = smtp.PlainAuth("", p.username, p.password, p.host)
	}

	body := strings.Join([]string{
		"From: " + p.fromEmail,
		"To: " + email,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		message,
	}, "\r\n")

	if err := smtp.SendMail(addr, auth, p.fromEmail, []string{email}, []byte(body)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", email, err)
	}

	return nil
}
