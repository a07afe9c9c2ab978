package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScanner struct {
	at  []time.Time
	err error
}

func (f *fakeScanner) CheckAllDeadlines(_ context.Context, now time.Time) (int, error) {
	f.at = append(f.at, now)
	return 2, f.err
}

func TestRunScanUsesClock(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	scanner := &fakeScanner{}
	d := NewDeadlineNotifier(scanner)
	d.Now = func() time.Time { return now }

	require.NoError(t, d.RunScan(context.Background()))
	assert.Equal(t, []time.Time{now}, scanner.at)
}

func TestRunScanWrapsError(t *testing.T) {
	boom := errors.New("boom")
	d := NewDeadlineNotifier(&fakeScanner{err: boom})

	err := d.RunScan(context.Background())
	assert.ErrorIs(t, err, boom)
}
