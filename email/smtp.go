package email

import (
	"fmt"

	gomail "gopkg.in/gomail.v2"
)

// SMTPProvider delivers mail through a plain SMTP relay.
type SMTPProvider struct {
	dialer *gomail.Dialer
}

func NewSMTPProvider(host string, port int, username, password string) *SMTPProvider {
	return &SMTPProvider{dialer: gomail.NewDialer(host, port, username, password)}
}

func (p *SMTPProvider) Send(msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTMLBody)

	if err := p.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
