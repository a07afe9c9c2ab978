package cron

import (
	"context"
	"time"

	"github.com/goldenbridgewomen/gbw-tracker/internal/jobs"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const scanTimeout = 5 * time.Minute

// StartDeadlineCron runs the deadline scan on schedule (standard five-field cron syntax or
// descriptors like "@hourly"). An empty schedule leaves scanning to client polling and
// returns nil. Callers stop the returned scheduler on shutdown.
func StartDeadlineCron(schedule string, notifier *jobs.DeadlineNotifier) (*cron.Cron, error) {
	if schedule == "" {
		logrus.Info("Deadline cron disabled")
		return nil, nil
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
		defer cancel()
		if err := notifier.RunScan(ctx); err != nil {
			logrus.WithError(err).Error("Deadline scan failed")
		}
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	logrus.WithField("schedule", schedule).Info("Deadline cron started")
	return c, nil
}
