package cron

import (
	"context"
	"testing"
	"time"

	"github.com/goldenbridgewomen/gbw-tracker/internal/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopScanner struct{}

func (nopScanner) CheckAllDeadlines(context.Context, time.Time) (int, error) { return 0, nil }

func TestStartDeadlineCronDisabled(t *testing.T) {
	c, err := StartDeadlineCron("", jobs.NewDeadlineNotifier(nopScanner{}))
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestStartDeadlineCronRejectsBadSpec(t *testing.T) {
	_, err := StartDeadlineCron("every tuesday", jobs.NewDeadlineNotifier(nopScanner{}))
	assert.Error(t, err)
}

func TestStartDeadlineCronSchedules(t *testing.T) {
	c, err := StartDeadlineCron("@hourly", jobs.NewDeadlineNotifier(nopScanner{}))
	require.NoError(t, err)
	defer c.Stop()
	assert.Len(t, c.Entries(), 1)
}
