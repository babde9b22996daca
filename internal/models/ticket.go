package models

// TicketRecord is one purchased ticket as supplied by the calling UI or the
// ticket backend. Field values are display-ready text.
type TicketRecord struct {
	EventTitle    string  `json:"eventTitle"`
	EventDate     string  `json:"eventDate"`
	EventLocation string  `json:"eventLocation"`
	AttendeeName  string  `json:"attendeeName"`
	AttendeeEmail string  `json:"attendeeEmail"`
	TicketNumber  string  `json:"ticketNumber"`
	TicketPrice   float64 `json:"ticketPrice"`
	Currency      string  `json:"currency"`
	PurchaseDate  string  `json:"purchaseDate"`
}
