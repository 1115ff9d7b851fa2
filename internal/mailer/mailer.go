package mailer

import (
	"fmt"
	"log"

	"github.com/resend/resend-go/v3"

	"github.com/janiskrasemann/forecast/internal/renderer"
)

// Sender is the part of the Resend client the mailer uses.
type Sender interface {
	Send(params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type Mailer struct {
	from   string
	to     string
	sender Sender
}

func New(from, to, apiKey string) *Mailer {
	return NewWithSender(from, to, resend.NewClient(apiKey).Emails)
}

func NewWithSender(from, to string, sender Sender) *Mailer {
	return &Mailer{from: from, to: to, sender: sender}
}

func (m *Mailer) Send(email *renderer.RenderedEmail) error {
	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{m.to},
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    email.Text,
	}

	sent, err := m.sender.Send(params)
	if err != nil {
		return fmt.Errorf("sending email via resend: %w", err)
	}

	log.Printf("Digest email sent: %s", sent.Id)
	return nil
}
