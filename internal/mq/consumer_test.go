package mq

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/goldenbridgewomen/gbw-tracker/internal/audit"
	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"github.com/goldenbridgewomen/gbw-tracker/internal/repository"
	"github.com/goldenbridgewomen/gbw-tracker/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAuditHandlerPersistsPublishedEvent(t *testing.T) {
	store := memory.New().Audit
	programID := primitive.NewObjectID()
	ev := audit.NewEvent(context.Background(), primitive.NewObjectID(), models.ActionDeleteExpense,
		primitive.NewObjectID(), map[string]any{"programId": programID, "reason": "duplicate"})

	body, err := json.Marshal(ev)
	require.NoError(t, err)
	require.NoError(t, AuditHandler(store)(context.Background(), body))

	entries, err := store.QueryEntries(context.Background(), repository.AuditFilter{ProgramID: &programID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ev.ActorID, entries[0].UserID)
	assert.Equal(t, "duplicate", entries[0].Details["reason"])
}

func TestAuditHandlerDropsMalformed(t *testing.T) {
	store := memory.New().Audit
	assert.NoError(t, AuditHandler(store)(context.Background(), []byte("{not json")))
	assert.Equal(t, 0, store.Len())
}
