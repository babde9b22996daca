package models

import "time"

const (
	DocumentModeSingle = "single"
	DocumentModeBatch  = "batch"
)

// TicketDocument is an assembled PDF ready to be handed to the caller.
type TicketDocument struct {
	Filename string
	Mode     string
	Pages    int
	// Tickets holds the ticket number printed on each page, in page order.
	Tickets []string
	Content []byte
}

// DocumentGeneratedEvent is published after a document has been delivered.
type DocumentGeneratedEvent struct {
	GenerationID  string    `json:"generation_id"`
	Filename      string    `json:"filename"`
	Mode          string    `json:"mode"`
	Pages         int       `json:"pages"`
	TicketNumbers []string  `json:"ticket_numbers"`
	RequestedBy   string    `json:"requested_by,omitempty"`
	GeneratedAt   time.Time `json:"generated_at"`
}
