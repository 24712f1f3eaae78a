package queue

import "github.com/iliyamo/studio-booking/internal/model"

// MailEnvelope is one outbound mail as published to the mail queue.  The
// shape matches the document the external sender expects:
// {to, message: {subject, html}}.
type MailEnvelope struct {
	ID       uint64      `json:"id"`
	To       string      `json:"to"`
	Message  MailContent `json:"message"`
	QueuedAt string      `json:"queued_at"`
}

// MailContent is the rendered message.
type MailContent struct {
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// EnvelopeFor wraps a stored outbox row.
func EnvelopeFor(m model.MailMessage) MailEnvelope {
	return MailEnvelope{
		ID:       m.ID,
		To:       m.To,
		Message:  MailContent{Subject: m.Subject, HTML: m.HTML},
		QueuedAt: m.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
