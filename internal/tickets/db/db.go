package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"zafo-tickets/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// EnsureSchema creates the audit table when it is missing. Postgres
// deployments run the versioned migrations instead.
func (d *DB) EnsureSchema(ctx context.Context) error {
	_, err := d.Bun.NewCreateTable().
		Model((*models.Generation)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create generations table: %w", err)
	}
	return nil
}

// CreateGeneration stores g, assigning an id and timestamp when unset.
func (d *DB) CreateGeneration(ctx context.Context, g *models.Generation) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	if _, err := d.Bun.NewInsert().Model(g).Exec(ctx); err != nil {
		return fmt.Errorf("insert generation %s: %w", g.ID, err)
	}
	return nil
}

func (d *DB) CountGenerations(ctx context.Context) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Generation)(nil)).
		Count(ctx)
}

// ListGenerationsByTicket returns every document that included ticketNumber,
// newest first.
func (d *DB) ListGenerationsByTicket(ctx context.Context, ticketNumber string) ([]models.Generation, error) {
	var generations []models.Generation
	err := d.Bun.NewSelect().
		Model(&generations).
		Where("ticket_numbers LIKE ? ESCAPE '!'", "%,"+escapeLike(ticketNumber)+",%").
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list generations for %s: %w", ticketNumber, err)
	}
	return generations, nil
}

// JoinTicketNumbers produces the stored form of a ticket number list.
func JoinTicketNumbers(numbers []string) string {
	if len(numbers) == 0 {
		return ""
	}
	return "," + strings.Join(numbers, ",") + ","
}

func SplitTicketNumbers(stored string) []string {
	trimmed := strings.Trim(stored, ",")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, ",")
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
