package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"zafo-tickets/internal/models"
	"zafo-tickets/internal/tickets/db"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = bunDB.Close() })

	store := &db.DB{Bun: bunDB}
	require.NoError(t, store.EnsureSchema(context.Background()))
	return store
}

func TestCreateGeneration(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	g := &models.Generation{
		Filename:      "ticket-TKT-1.pdf",
		Mode:          models.DocumentModeSingle,
		Pages:         1,
		TicketNumbers: db.JoinTicketNumbers([]string{"TKT-1"}),
		RequestedBy:   "user-1",
	}
	require.NoError(t, store.CreateGeneration(ctx, g))
	assert.NotEmpty(t, g.ID)
	assert.False(t, g.CreatedAt.IsZero())

	count, err := store.CountGenerations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCreateGenerationDuplicateID(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	g := models.Generation{ID: "fixed", Filename: "a.pdf", Mode: models.DocumentModeSingle}
	require.NoError(t, store.CreateGeneration(ctx, &g))
	dup := g
	assert.Error(t, store.CreateGeneration(ctx, &dup))
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	store := setupTestDB(t)
	assert.NoError(t, store.EnsureSchema(context.Background()))
}

func TestListGenerationsByTicket(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	rows := []models.Generation{
		{Filename: "ticket-TKT-1.pdf", Mode: models.DocumentModeSingle, Pages: 1, TicketNumbers: db.JoinTicketNumbers([]string{"TKT-1"}), CreatedAt: base},
		{Filename: "all-tickets-2025-03-10.pdf", Mode: models.DocumentModeBatch, Pages: 2, TicketNumbers: db.JoinTicketNumbers([]string{"TKT-1", "TKT-10"}), CreatedAt: base.Add(time.Hour)},
		{Filename: "ticket-TKT-10.pdf", Mode: models.DocumentModeSingle, Pages: 1, TicketNumbers: db.JoinTicketNumbers([]string{"TKT-10"}), CreatedAt: base.Add(2 * time.Hour)},
		{Filename: "ticket-TAT.pdf", Mode: models.DocumentModeSingle, Pages: 1, TicketNumbers: db.JoinTicketNumbers([]string{"TAT"}), CreatedAt: base},
	}
	for i := range rows {
		require.NoError(t, store.CreateGeneration(ctx, &rows[i]))
	}

	found, err := store.ListGenerationsByTicket(ctx, "TKT-1")
	require.NoError(t, err)
	require.Len(t, found, 2, "TKT-10 must not match TKT-1")
	assert.Equal(t, "all-tickets-2025-03-10.pdf", found[0].Filename)
	assert.Equal(t, "ticket-TKT-1.pdf", found[1].Filename)

	found, err = store.ListGenerationsByTicket(ctx, "TXT")
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = store.ListGenerationsByTicket(ctx, "T_T")
	require.NoError(t, err)
	assert.Empty(t, found, "underscore is not a wildcard")
}

func TestTicketNumberEncoding(t *testing.T) {
	assert.Equal(t, "", db.JoinTicketNumbers(nil))
	assert.Equal(t, ",A,B,", db.JoinTicketNumbers([]string{"A", "B"}))
	assert.Equal(t, []string{"A", "B"}, db.SplitTicketNumbers(",A,B,"))
	assert.Nil(t, db.SplitTicketNumbers(""))
}
