package email

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridProvider delivers mail via the SendGrid API.
type SendGridProvider struct {
	client *sendgrid.Client
}

func NewSendGridProvider(apiKey string) *SendGridProvider {
	return &SendGridProvider{client: sendgrid.NewSendClient(apiKey)}
}

func (p *SendGridProvider) Send(msg Message) error {
	from := sgmail.NewEmail("", msg.From)
	to := sgmail.NewEmail("", msg.To)
	message := sgmail.NewSingleEmail(from, msg.Subject, to, "", msg.HTMLBody)

	resp, err := p.client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid rejected message: status %d", resp.StatusCode)
	}
	return nil
}
