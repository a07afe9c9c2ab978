package services

import (
	"context"
	"testing"

	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (w *world) jessicaCycle(t *testing.T) *CycleView {
	t.Helper()
	ctx := context.Background()
	cycle, err := w.balances.StartCycle(ctx, w.jessica, w.jessica.ID, CycleInput{
		Budget:    2500,
		StartDate: w.now,
		EndDate:   w.days(90),
	})
	require.NoError(t, err)
	for _, e := range []ExpenseInput{
		{Date: w.now, Item: "Laptop", Amount: 599.99},
		{Date: w.days(1), Item: "Business cards", Amount: 64.50},
		{Date: w.days(2), Item: "Workshop fee", Amount: 200},
	} {
		cycle, err = w.balances.AddExpense(ctx, w.jessica, cycle.ID, e)
		require.NoError(t, err)
	}
	return cycle
}

func TestCycleSummary(t *testing.T) {
	w := newWorld(t)
	cycle := w.jessicaCycle(t)

	assert.Equal(t, models.BudgetSummary{
		Budget:      2500,
		TotalSpent:  864.49,
		Remaining:   1635.51,
		Utilization: 35,
	}, cycle.Summary)
	assert.Empty(t, w.auditEntries(t, ""), "own changes are not audited")
}

func TestStartCycleDeactivatesPrevious(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	first := w.jessicaCycle(t)

	second, err := w.balances.StartCycle(ctx, w.emily, w.jessica.ID, CycleInput{Budget: 1000, StartDate: w.days(91), EndDate: w.days(180)})
	require.NoError(t, err)

	cycles, err := w.balances.GetCycles(ctx, w.jessica, w.jessica.ID)
	require.NoError(t, err)
	require.Len(t, cycles, 2)
	active := 0
	for _, c := range cycles {
		if c.IsActive {
			active++
			assert.Equal(t, second.ID, c.ID)
		} else {
			assert.Equal(t, first.ID, c.ID)
		}
	}
	assert.Equal(t, 1, active)

	current, err := w.balances.GetActiveCycle(ctx, w.jessica, w.jessica.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)
	assert.Len(t, w.auditEntries(t, models.ActionStartCycle), 1)
}

func TestGetActiveCycleNone(t *testing.T) {
	w := newWorld(t)
	c, err := w.balances.GetActiveCycle(context.Background(), w.maria, w.maria.ID)
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestCrossUserExpenseChangesNeedReason(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	cycle := w.jessicaCycle(t)
	laptop := cycle.Expenses[0]
	edit := ExpenseInput{Date: laptop.Date, Item: laptop.Item, Amount: 549.99}

	_, err := w.balances.EditExpense(ctx, w.emily, cycle.ID, laptop.ID, edit, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = w.balances.DeleteExpense(ctx, w.emily, cycle.ID, laptop.ID, "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)
	err = w.balances.DeleteCycle(ctx, w.emily, cycle.ID, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	updated, err := w.balances.EditExpense(ctx, w.emily, cycle.ID, laptop.ID, edit, "Receipt shows discount")
	require.NoError(t, err)
	assert.Equal(t, 814.49, updated.Summary.TotalSpent)

	entries := w.auditEntries(t, models.ActionEditExpense)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, w.emily.ID, e.UserID)
	assert.Equal(t, w.jessica.ID, e.TargetID)
	assert.Equal(t, 599.99, e.Details["oldAmount"])
	assert.Equal(t, 549.99, e.Details["newAmount"])
	assert.Equal(t, "Receipt shows discount", e.Details["reason"])
	require.NotNil(t, e.ProgramID)
	assert.Equal(t, w.p1.ID, *e.ProgramID)

	// The owner needs no reason.
	_, err = w.balances.DeleteExpense(ctx, w.jessica, cycle.ID, laptop.ID, "")
	require.NoError(t, err)
	assert.Empty(t, w.auditEntries(t, models.ActionDeleteExpense))
}

func TestFinancialAccessFollowsPrograms(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	cycle := w.jessicaCycle(t)

	_, err := w.balances.GetCycles(ctx, w.emily, w.jessica.ID)
	assert.NoError(t, err)
	_, err = w.balances.GetCycles(ctx, w.sarah, w.jessica.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = w.balances.AddExpense(ctx, w.maria, cycle.ID, ExpenseInput{Date: w.now, Item: "x", Amount: 1})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = w.balances.GetCycles(ctx, w.admin, w.lonnie.ID)
	assert.NoError(t, err)
	_, err = w.balances.StartCycle(ctx, w.emily, w.lonnie.ID, CycleInput{Budget: 10, StartDate: w.now, EndDate: w.now})
	assert.ErrorIs(t, err, ErrForbidden)

	added, err := w.balances.AddExpense(ctx, w.emily, cycle.ID, ExpenseInput{Date: w.now, Item: "Mentor lunch", Amount: 35.5})
	require.NoError(t, err)
	assert.Len(t, added.Expenses, 4)
	entries := w.auditEntries(t, models.ActionAddExpense)
	require.Len(t, entries, 1)
	assert.Equal(t, "emily", entries[0].Details["addedBy"])
}

func TestExpenseValidation(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	cycle := w.jessicaCycle(t)

	cases := map[string]ExpenseInput{
		"missing item":    {Date: w.now, Amount: 1},
		"missing date":    {Item: "x", Amount: 1},
		"negative amount": {Date: w.now, Item: "x", Amount: -1},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := w.balances.AddExpense(ctx, w.jessica, cycle.ID, in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	_, err := w.balances.StartCycle(ctx, w.jessica, w.jessica.ID, CycleInput{Budget: -5, StartDate: w.now, EndDate: w.now})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
