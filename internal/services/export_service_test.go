package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildReportScopes(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	svc := NewExportService(w.store.Programs, w.store.Users, w.store.Milestones, w.store.Cycles)
	w.jessicaCycle(t)
	w.assign(t, w.emily, true, w.jessica)

	report, err := svc.BuildReport(ctx, w.emily, &w.p1.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, "Spring Cohort", report.Title)
	assert.Equal(t, 1, report.Participants)
	assert.Equal(t, 1, report.Milestones.Total)
	assert.Equal(t, 864.49, report.Financial.TotalSpent)
	assert.Equal(t, 35, report.Financial.Utilization)

	_, err = svc.BuildReport(ctx, w.emily, &w.p2.ID, nil)
	assert.ErrorIs(t, err, ErrForbidden)

	self, err := svc.BuildReport(ctx, w.jessica, nil, &w.jessica.ID)
	require.NoError(t, err)
	assert.Nil(t, self.Program)
	assert.Equal(t, "jessica", self.Title)

	_, err = svc.BuildReport(ctx, w.jessica, &w.p1.ID, nil)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.BuildReport(ctx, w.jessica, nil, &w.maria.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.BuildReport(ctx, w.admin, &w.p1.ID, &w.maria.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.BuildReport(ctx, w.admin, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
