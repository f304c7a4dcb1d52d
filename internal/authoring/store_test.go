package authoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/p-n-ai/pai-tos/internal/bloom"
	"github.com/p-n-ai/pai-tos/internal/platform/database"
	"github.com/p-n-ai/pai-tos/internal/qtype"
	"github.com/p-n-ai/pai-tos/internal/slot"
	"github.com/p-n-ai/pai-tos/internal/tos"
	"github.com/p-n-ai/pai-tos/internal/tqs"
)

func storedBlueprint(author string) *Blueprint {
	return &Blueprint{
		Input: Input{
			Title:        "Unit test",
			AuthorID:     author,
			Outcomes:     []tos.Outcome{{ID: 0, Text: "Add fractions", Hours: 1}},
			Weights:      tos.Weights{bloom.Remember: 100},
			TotalItems:   2,
			Distribution: qtype.Distribution{{ID: "e1", Type: qtype.MCQ, Items: 2, PointsPerItem: 1}},
		},
		Table: tos.Table{
			BloomTotals: tos.LevelTotals{bloom.Remember: 2},
			Matrix:      tos.Matrix{bloom.Remember: {0: 2}},
		},
		Slots: []slot.AssignedSlot{
			{OutcomeID: 0, OutcomeText: "Add fractions", Level: bloom.Remember, QuestionType: qtype.MCQ, Points: 1},
			{OutcomeID: 0, OutcomeText: "Add fractions", Level: bloom.Remember, QuestionType: qtype.MCQ, Points: 1},
		},
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func sheetFor(b *Blueprint) *tqs.Sheet {
	s := &tqs.Sheet{}
	for i, sl := range b.Slots {
		s.Questions = append(s.Questions, tqs.Question{
			Number: i + 1, OutcomeID: sl.OutcomeID, OutcomeText: sl.OutcomeText, Level: sl.Level,
			Type: sl.QuestionType, Points: sl.Points, Text: "q", Status: tqs.StatusPending,
		})
	}
	return s
}

// exerciseStore runs the same contract checks against any BlueprintStore.
func exerciseStore(t *testing.T, store BlueprintStore) {
	t.Helper()
	ctx := t.Context()

	b := storedBlueprint("author-1")
	id, err := store.Create(ctx, b)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, id, b.ID)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, b.Input.Title, got.Input.Title)
	assert.Equal(t, b.Table, got.Table)
	assert.Equal(t, b.Slots, got.Slots)
	assert.Nil(t, got.Sheet)
	assert.True(t, b.CreatedAt.Equal(got.CreatedAt))

	// Mutating a returned blueprint does not change what is stored.
	got.Slots[0].Points = 99
	again, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1.0, again.Slots[0].Points)

	require.NoError(t, store.SaveSheet(ctx, id, sheetFor(b)))
	withSheet, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, withSheet.Sheet)
	assert.Len(t, withSheet.Sheet.Questions, 2)
	assert.Equal(t, bloom.Remember, withSheet.Sheet.Questions[0].Level)

	_, err = store.Create(ctx, storedBlueprint("author-2"))
	require.NoError(t, err)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	mine, err := store.List(ctx, "author-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.True(t, mine[0].HasSheet)
	assert.Equal(t, 2, mine[0].TotalItems)

	require.NoError(t, store.Delete(ctx, id))
	_, err = store.Get(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, id), ErrNotFound)
	assert.ErrorIs(t, store.SaveSheet(ctx, id, &tqs.Sheet{}), ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestPostgresStore_NilPool(t *testing.T) {
	if _, err := NewPostgresStore(nil); err == nil {
		t.Fatal("NewPostgresStore(nil) should fail")
	}
}

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("tos"),
		postgres.WithUsername("tos"),
		postgres.WithPassword("tos"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := database.New(ctx, dsn, 4, 1)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	store, err := NewPostgresStore(db.Pool)
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.EnsureSchema(ctx), "schema creation is idempotent")

	exerciseStore(t, store)

	_, err = store.Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)

	b := storedBlueprint("author-3")
	_, err = store.Create(ctx, b)
	require.NoError(t, err)
	logger := NewPostgresEventLogger(db.Pool)
	require.NoError(t, logger.LogEvent(ctx, Event{BlueprintID: b.ID, AuthorID: "author-3", EventType: EventBlueprintGenerated}))

	var n int
	require.NoError(t, db.Pool.QueryRow(ctx, `SELECT count(*) FROM blueprint_events WHERE blueprint_id = $1::uuid`, b.ID).Scan(&n))
	assert.Equal(t, 1, n)
}
