// email/email.go
package email

import (
	"fmt"
	"html/template"
	"strings"

	"go-pharmacy/config"
)

// Message is an outbound email.
type Message struct {
	From     string
	To       string
	Subject  string
	HTMLBody string
}

// Provider delivers messages through a concrete mail transport.
type Provider interface {
	Send(msg Message) error
}

// Service renders verification and password-reset emails and hands them
// to the configured provider.
type Service struct {
	provider Provider
	sender   string
	baseURL  string
}

// NewService selects the provider named by the configuration.
func NewService(cfg *config.Config) (*Service, error) {
	var provider Provider
	switch cfg.EmailProvider {
	case "postmark":
		provider = NewPostmarkProvider(cfg.PostmarkToken)
	case "sendgrid":
		provider = NewSendGridProvider(cfg.SendGridKey)
	case "smtp":
		provider = NewSMTPProvider(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	default:
		return nil, fmt.Errorf("unknown email provider: %q", cfg.EmailProvider)
	}
	return &Service{provider: provider, sender: cfg.EmailSender, baseURL: cfg.BaseURL}, nil
}

// NewServiceWithProvider builds a service around an explicit provider.
func NewServiceWithProvider(provider Provider, sender, baseURL string) *Service {
	return &Service{provider: provider, sender: sender, baseURL: baseURL}
}

var verificationTemplate = template.Must(template.New("verification").Parse(`
<h1>Verify Your Email</h1>
<p>Please click the link below to verify your email address. This link will expire in 5 minutes.</p>
<a href="{{.Link}}">Verify Email</a>
`))

var passwordResetTemplate = template.Must(template.New("passwordReset").Parse(`
<h1>Reset Your Password</h1>
<p>Please click the link below to reset your password. This link will expire in 5 minutes.</p>
<a href="{{.Link}}">Reset Password</a>
`))

// SendVerificationEmail mails a verification link embedding the raw token.
func (s *Service) SendVerificationEmail(to, token string) error {
	link := fmt.Sprintf("%s/api/auth/verify/%s", s.baseURL, token)
	body, err := render(verificationTemplate, link)
	if err != nil {
		return err
	}
	return s.provider.Send(Message{
		From:     s.sender,
		To:       to,
		Subject:  "Email Verification",
		HTMLBody: body,
	})
}

// SendPasswordResetEmail mails a password-reset link embedding the raw token.
func (s *Service) SendPasswordResetEmail(to, token string) error {
	link := fmt.Sprintf("%s/api/auth/reset-password/%s", s.baseURL, token)
	body, err := render(passwordResetTemplate, link)
	if err != nil {
		return err
	}
	return s.provider.Send(Message{
		From:     s.sender,
		To:       to,
		Subject:  "Password Reset Request",
		HTMLBody: body,
	})
}

func render(tpl *template.Template, link string) (string, error) {
	var buf strings.Builder
	if err := tpl.Execute(&buf, struct{ Link string }{Link: link}); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}
