// Package checkout prices a selection, opens a hosted payment session for it
// and hands verified payments to the ledger.
package checkout

import "context"

// SessionParams describes one hosted payment page.
type SessionParams struct {
	Reference     string
	ProductName   string
	AmountCents   int64
	Currency      string
	CustomerEmail string
	Locale        string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// Session is the processor's view of a hosted payment.
type Session struct {
	ID        string
	URL       string
	Reference string
	Paid      bool
}

// Gateway is the payment processor.
type Gateway interface {
	CreateSession(ctx context.Context, p SessionParams) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	// ParseWebhook verifies a webhook delivery.  It returns the completed
	// session, or nil for event types checkout does not act on.
	ParseWebhook(payload []byte, signature string) (*Session, error)
}
