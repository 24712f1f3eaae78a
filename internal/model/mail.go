package model

import "time"

// MailMessage is one row of the outbound mail queue.
type MailMessage struct {
	ID        uint64
	To        string
	Subject   string
	HTML      string
	CreatedAt time.Time
	RelayedAt *time.Time
}
