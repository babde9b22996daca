package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Generation is the audit row written for every delivered document. The
// document bytes themselves are never stored.
type Generation struct {
	bun.BaseModel `bun:"table:ticket_document_generations"`

	ID          string `bun:"id,pk"`
	Filename    string `bun:"filename,notnull"`
	Mode        string `bun:"mode,notnull"`
	Pages       int    `bun:"pages"`
	// TicketNumbers is comma separated with leading and trailing commas so
	// a single number can be matched with LIKE '%,<n>,%'.
	TicketNumbers string    `bun:"ticket_numbers"`
	RequestedBy   string    `bun:"requested_by"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
}
