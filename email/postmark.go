package email

import (
	"fmt"

	"github.com/keighl/postmark"
)

// PostmarkProvider delivers mail via the Postmark API.
type PostmarkProvider struct {
	client *postmark.Client
}

func NewPostmarkProvider(serverToken string) *PostmarkProvider {
	return &PostmarkProvider{client: postmark.NewClient(serverToken, "")}
}

func (p *PostmarkProvider) Send(msg Message) error {
	_, err := p.client.SendEmail(postmark.Email{
		From:     msg.From,
		To:       msg.To,
		Subject:  msg.Subject,
		HtmlBody: msg.HTMLBody,
		TextBody: msg.HTMLBody,
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
