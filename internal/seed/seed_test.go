package seed

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/goldenbridgewomen/gbw-tracker/internal/audit"
	"github.com/goldenbridgewomen/gbw-tracker/internal/repository/memory"
	"github.com/goldenbridgewomen/gbw-tracker/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSeeder(store *memory.Store) *Seeder {
	programs := services.NewProgramService(store.Programs, store.Users, store.Invites, nil, "http://localhost:3000")
	return &Seeder{
		Store:      store.Users,
		Users:      services.NewUserService(store.Users, store.Programs, programs),
		Programs:   programs,
		Milestones: services.NewMilestoneService(store.Milestones, store.Templates, store.Programs, store.Users, nil, audit.Discard{}),
		Balances:   services.NewBalanceService(store.Cycles, store.Programs, audit.Discard{}),
	}
}

func TestSampleSeeds(t *testing.T) {
	f, err := Parse(bytes.NewReader(Sample))
	require.NoError(t, err)

	store := memory.New()
	ctx := context.Background()
	sum, err := newSeeder(store).Run(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, &Summary{Users: 3, Programs: 1, Cycles: 1, Expenses: 3, Milestones: 2}, sum)

	jessica, err := store.Users.GetUserByEmail(ctx, "jessica@example.com")
	require.NoError(t, err)
	require.Len(t, jessica.ProgramIDs, 1)

	emily, err := store.Users.GetUserByEmail(ctx, "emily@goldenbridgewomen.org")
	require.NoError(t, err)
	assert.Equal(t, jessica.ProgramIDs, emily.ManagedProgramIDs)

	cycle, err := store.Cycles.GetActiveCycle(ctx, jessica.ID)
	require.NoError(t, err)
	summary := cycle.Summary()
	assert.InDelta(t, 864.49, summary.TotalSpent, 0.001)
	assert.InDelta(t, 1635.51, summary.Remaining, 0.001)
}

func TestParseRejectsUnknownFieldsAndBadDates(t *testing.T) {
	_, err := Parse(strings.NewReader("admin: {email: a@b.co, password: x}\nunknown: 1\n"))
	assert.Error(t, err)

	_, err = Parse(strings.NewReader("admin: {email: a@b.co, password: x}\nprograms:\n  - name: P\n    start: 03/01/2026\n"))
	assert.Error(t, err)

	_, err = Parse(strings.NewReader("users: []\n"))
	assert.Error(t, err)
}

func TestRunStopsOnUnknownUser(t *testing.T) {
	f, err := Parse(strings.NewReader(`
admin: {name: Admin, email: admin@example.com, password: change-me-now}
cycles:
  - user: ghost@example.com
    budget: 100
    start: 2026-01-01
    end: 2026-02-01
`))
	require.NoError(t, err)

	_, err = newSeeder(memory.New()).Run(context.Background(), f)
	assert.ErrorContains(t, err, "ghost@example.com")
}
