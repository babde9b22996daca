package tickets

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"zafo-tickets/internal/logger"
	"zafo-tickets/internal/models"
	"zafo-tickets/internal/tickets/db"
	"zafo-tickets/internal/tickets/qr"
)

type DocumentRenderer interface {
	GenerateSingle(ctx context.Context, ticket models.TicketRecord) (*models.TicketDocument, error)
	GenerateBatch(ctx context.Context, tickets []models.TicketRecord) (*models.TicketDocument, error)
}

type GenerationStore interface {
	CreateGeneration(ctx context.Context, g *models.Generation) error
	CountGenerations(ctx context.Context) (int, error)
	ListGenerationsByTicket(ctx context.Context, ticketNumber string) ([]models.Generation, error)
}

// TicketSource looks tickets up in the platform's ticket service.
type TicketSource interface {
	TicketsByOrder(ctx context.Context, orderID string) ([]models.TicketRecord, error)
	Ticket(ctx context.Context, ticketNumber string) (*models.TicketRecord, error)
}

type EventPublisher interface {
	PublishDocumentGenerated(ctx context.Context, event models.DocumentGeneratedEvent) error
}

type PreviewEncoder interface {
	EncodeOrPlaceholder(payload string, size int) ([]byte, bool)
}

type DocumentService struct {
	Renderer  DocumentRenderer
	Store     GenerationStore
	Tickets   TicketSource
	Publisher EventPublisher
	QR        PreviewEncoder
	Logger    *logger.Logger
	// PreviewSize is used when a preview request names no size.
	PreviewSize int
	Now         func() time.Time
}

// SingleDocument renders one caller supplied ticket.
func (s *DocumentService) SingleDocument(ctx context.Context, ticket models.TicketRecord, requestedBy string) (*models.TicketDocument, error) {
	doc, err := s.Renderer.GenerateSingle(ctx, ticket)
	if err != nil {
		return nil, fmt.Errorf("render ticket %s: %w", ticket.TicketNumber, err)
	}
	s.record(ctx, doc, requestedBy)
	return doc, nil
}

// BatchDocument renders every ticket onto its own page. It returns nil for
// an empty list.
func (s *DocumentService) BatchDocument(ctx context.Context, tickets []models.TicketRecord, requestedBy string) (*models.TicketDocument, error) {
	doc, err := s.Renderer.GenerateBatch(ctx, tickets)
	if err != nil {
		return nil, fmt.Errorf("render %d tickets: %w", len(tickets), err)
	}
	if doc == nil {
		return nil, nil
	}
	s.record(ctx, doc, requestedBy)
	return doc, nil
}

// OrderDocument fetches an order's tickets and renders them as a batch.
func (s *DocumentService) OrderDocument(ctx context.Context, orderID, requestedBy string) (*models.TicketDocument, error) {
	tickets, err := s.Tickets.TicketsByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.BatchDocument(ctx, tickets, requestedBy)
}

// TicketDocument fetches one ticket by number and renders it.
func (s *DocumentService) TicketDocument(ctx context.Context, ticketNumber, requestedBy string) (*models.TicketDocument, error) {
	ticket, err := s.Tickets.Ticket(ctx, ticketNumber)
	if err != nil {
		return nil, err
	}
	return s.SingleDocument(ctx, *ticket, requestedBy)
}

// PreviewQR returns the inline preview raster for ticket. Encoding problems
// yield the placeholder.
func (s *DocumentService) PreviewQR(ticket models.TicketRecord, size int) []byte {
	if size <= 0 {
		size = s.PreviewSize
	}
	if size <= 0 {
		size = qr.PreviewSize
	}
	raster, ok := s.QR.EncodeOrPlaceholder(qr.Payload(ticket), size)
	if !ok {
		s.Logger.Warn("QR", fmt.Sprintf("Preview for ticket %s fell back to placeholder", ticket.TicketNumber))
	}
	return raster
}

func (s *DocumentService) CountGenerations(ctx context.Context) (int, error) {
	return s.Store.CountGenerations(ctx)
}

func (s *DocumentService) GenerationsForTicket(ctx context.Context, ticketNumber string) ([]models.Generation, error) {
	return s.Store.ListGenerationsByTicket(ctx, ticketNumber)
}

// record audits and announces a delivered document. The caller already has
// the bytes, so failures here are logged only.
func (s *DocumentService) record(ctx context.Context, doc *models.TicketDocument, requestedBy string) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	numbers := distinct(doc.Tickets)
	generation := &models.Generation{
		ID:            uuid.NewString(),
		Filename:      doc.Filename,
		Mode:          doc.Mode,
		Pages:         doc.Pages,
		TicketNumbers: db.JoinTicketNumbers(numbers),
		RequestedBy:   requestedBy,
		CreatedAt:     now().UTC(),
	}

	if s.Store != nil {
		if err := s.Store.CreateGeneration(ctx, generation); err != nil {
			s.Logger.Error("DATABASE", fmt.Sprintf("Failed to record generation of %s: %v", doc.Filename, err))
		}
	}

	if s.Publisher != nil {
		event := models.DocumentGeneratedEvent{
			GenerationID:  generation.ID,
			Filename:      doc.Filename,
			Mode:          doc.Mode,
			Pages:         doc.Pages,
			TicketNumbers: numbers,
			RequestedBy:   requestedBy,
			GeneratedAt:   generation.CreatedAt,
		}
		if err := s.Publisher.PublishDocumentGenerated(ctx, event); err != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish generation of %s: %v", doc.Filename, err))
		}
	}
}

// distinct drops repeats while keeping first-seen order; a tall single
// ticket lists its number once per page.
func distinct(numbers []string) []string {
	seen := make(map[string]bool, len(numbers))
	out := make([]string, 0, len(numbers))
	for _, n := range numbers {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
