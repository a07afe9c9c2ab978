package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// DeadlineScanner is implemented by services.NotificationService.
type DeadlineScanner interface {
	CheckAllDeadlines(ctx context.Context, now time.Time) (int, error)
}

type DeadlineNotifier struct {
	Scanner DeadlineScanner
	Now     func() time.Time
}

// NewDeadlineNotifier creates a new instance of DeadlineNotifier
func NewDeadlineNotifier(scanner DeadlineScanner) *DeadlineNotifier {
	return &DeadlineNotifier{Scanner: scanner, Now: time.Now}
}

// RunScan sends 7, 3 and 1 day reminders for every participant's open milestones.
// Reminders already sent are skipped, so scans can run as often as needed.
func (d *DeadlineNotifier) RunScan(ctx context.Context) error {
	sent, err := d.Scanner.CheckAllDeadlines(ctx, d.Now())
	if err != nil {
		return fmt.Errorf("deadline scan failed: %w", err)
	}
	logrus.WithField("reminders", sent).Info("Deadline scan completed")
	return nil
}
