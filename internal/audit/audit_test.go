package audit

import (
	"context"
	"testing"

	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"github.com/goldenbridgewomen/gbw-tracker/internal/repository"
	"github.com/goldenbridgewomen/gbw-tracker/internal/repository/memory"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNewEventLiftsProgramID(t *testing.T) {
	programID := primitive.NewObjectID()
	ctx := middleware.WithRequestID(context.Background(), "req-1")

	ev := NewEvent(ctx, primitive.NewObjectID(), models.ActionEditExpense, primitive.NewObjectID(), map[string]any{
		"programId": programID.Hex(),
		"reason":    "typo",
	})
	require.NotNil(t, ev.ProgramID)
	assert.Equal(t, programID, *ev.ProgramID)
	assert.Equal(t, "req-1", ev.RequestID)

	entry := ev.Entry()
	assert.Equal(t, programID, *entry.ProgramID)
	assert.Equal(t, "typo", entry.Details["reason"])
	assert.Equal(t, "req-1", entry.Details["requestId"])
}

func TestNewEventCopiesDetails(t *testing.T) {
	details := map[string]any{"reason": "a"}
	ev := NewEvent(context.Background(), primitive.NewObjectID(), models.ActionDeleteCycle, primitive.NewObjectID(), details)
	details["reason"] = "b"
	assert.Equal(t, "a", ev.Details["reason"])
	assert.Nil(t, ev.ProgramID)
}

func TestAsyncLoggerDrainsOnClose(t *testing.T) {
	store := memory.New().Audit
	l := NewAsyncLogger(store, 64)

	actor, target := primitive.NewObjectID(), primitive.NewObjectID()
	for i := 0; i < 10; i++ {
		l.Log(context.Background(), actor, models.ActionAddExpense, target, map[string]any{"n": i})
	}
	l.Close()
	assert.Equal(t, 10, store.Len())

	// logging after close is a no-op, not a panic
	l.Log(context.Background(), actor, models.ActionAddExpense, target, nil)
	l.Close()
	assert.Equal(t, 10, store.Len())
}

func TestRetentionKeepsNewest(t *testing.T) {
	store := memory.New().Audit
	l := NewStoreLogger(store)
	actor, target := primitive.NewObjectID(), primitive.NewObjectID()

	for i := 0; i < models.MaxAuditEntries+25; i++ {
		l.Log(context.Background(), actor, models.ActionAddExpense, target, map[string]any{"n": i})
	}
	assert.Equal(t, models.MaxAuditEntries, store.Len())

	entries, err := store.QueryEntries(context.Background(), repository.AuditFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.MaxAuditEntries+24, entries[0].Details["n"])
}

func TestQueryFilters(t *testing.T) {
	store := memory.New().Audit
	l := NewStoreLogger(store)
	ctx := context.Background()

	emily, jessica, maria := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	p1 := primitive.NewObjectID()

	l.Log(ctx, emily, models.ActionEditExpense, jessica, map[string]any{"programId": p1, "reason": "fix"})
	l.Log(ctx, emily, models.ActionAssignMilestone, maria, nil)
	l.Log(ctx, jessica, models.ActionProvideFeedback, maria, nil)

	byUser, err := store.QueryEntries(ctx, repository.AuditFilter{UserID: &jessica})
	require.NoError(t, err)
	assert.Len(t, byUser, 2, "matches actor or target")

	byProgram, err := store.QueryEntries(ctx, repository.AuditFilter{ProgramID: &p1})
	require.NoError(t, err)
	require.Len(t, byProgram, 1)
	assert.Equal(t, models.ActionEditExpense, byProgram[0].Action)

	byAction, err := store.QueryEntries(ctx, repository.AuditFilter{Action: models.ActionAssignMilestone})
	require.NoError(t, err)
	require.Len(t, byAction, 1)
	assert.Equal(t, maria, byAction[0].TargetID)
}
