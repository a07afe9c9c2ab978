package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type recordingPusher struct {
	mu     sync.Mutex
	pushed map[primitive.ObjectID]int
}

func (p *recordingPusher) Push(userID primitive.ObjectID, _ string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pushed == nil {
		p.pushed = map[primitive.ObjectID]int{}
	}
	p.pushed[userID]++
}

func newNotificationService(w *world, pusher Pusher) *NotificationService {
	return NewNotificationService(w.store.Notifications, w.store.Milestones, w.store.Users, w.store.Deadlines, pusher)
}

func TestNotifyPersistsAndPushes(t *testing.T) {
	w := newWorld(t)
	pusher := &recordingPusher{}
	svc := newNotificationService(w, pusher)
	ctx := context.Background()

	svc.Notify(ctx, w.jessica.ID, models.NotificationGeneral, "Hello", "Welcome aboard", nil)

	list, err := svc.GetNotifications(ctx, w.jessica)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Read)
	assert.Equal(t, 1, pusher.pushed[w.jessica.ID])

	n, err := svc.GetUnreadCount(ctx, w.jessica)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	assert.ErrorIs(t, svc.MarkAsRead(ctx, w.maria, list[0].ID), ErrForbidden)
	assert.ErrorIs(t, svc.DeleteNotification(ctx, w.maria, list[0].ID), ErrForbidden)
	require.NoError(t, svc.MarkAsRead(ctx, w.jessica, list[0].ID))

	n, err = svc.GetUnreadCount(ctx, w.jessica)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, svc.DeleteNotification(ctx, w.jessica, list[0].ID))
	assert.ErrorIs(t, svc.MarkAsRead(ctx, w.jessica, list[0].ID), ErrNotFound)
}

func TestNotificationsAreCapped(t *testing.T) {
	w := newWorld(t)
	svc := newNotificationService(w, nil)
	ctx := context.Background()

	for i := 0; i < models.MaxNotificationsPerUser+15; i++ {
		svc.Notify(ctx, w.jessica.ID, models.NotificationGeneral, fmt.Sprintf("n%d", i), "", nil)
	}
	list, err := svc.GetNotifications(ctx, w.jessica)
	require.NoError(t, err)
	assert.Len(t, list, models.MaxNotificationsPerUser)
	assert.Equal(t, fmt.Sprintf("n%d", models.MaxNotificationsPerUser+14), list[0].Title)

	require.NoError(t, svc.MarkAllAsRead(ctx, w.jessica))
	n, err := svc.GetUnreadCount(ctx, w.jessica)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDaysRemaining(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, DaysRemaining(now.Add(2*time.Hour), now))
	assert.Equal(t, 3, DaysRemaining(now.Add(48*time.Hour+time.Minute), now))
	assert.Equal(t, 7, DaysRemaining(now.AddDate(0, 0, 7), now))
	assert.Equal(t, 0, DaysRemaining(now, now))
	assert.Equal(t, -1, DaysRemaining(now.Add(-25*time.Hour), now))
}

func TestCheckDeadlinesOncePerThreshold(t *testing.T) {
	w := newWorld(t)
	svc := newNotificationService(w, nil)
	ctx := context.Background()

	mk := func(title string, end time.Time, status models.MilestoneStatus) {
		_, err := w.store.Milestones.CreateMilestone(ctx, &models.Milestone{
			UserID:    w.jessica.ID,
			Title:     title,
			Category:  "other",
			StartDate: w.now,
			EndDate:   end,
			Status:    status,
		})
		require.NoError(t, err)
	}
	mk("due in a week", w.days(7), models.MilestoneInProgress)
	mk("due in three days", w.days(3), models.MilestoneNotStarted)
	mk("due tomorrow but done", w.days(1), models.MilestoneCompleted)
	mk("due in six days", w.days(6), models.MilestoneInProgress)

	sent, err := svc.CheckDeadlines(ctx, w.jessica.ID, w.now)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	sent, err = svc.CheckDeadlines(ctx, w.jessica.ID, w.now.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, sent)

	// Four days later the week-out milestone crosses the three-day threshold.
	sent, err = svc.CheckDeadlines(ctx, w.jessica.ID, w.days(4))
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	list, err := svc.GetNotifications(ctx, w.jessica)
	require.NoError(t, err)
	assert.Len(t, list, 3)
	for _, n := range list {
		assert.Equal(t, models.NotificationDeadline, n.Type)
	}
}

func TestCheckAllDeadlinesSkipsStaff(t *testing.T) {
	w := newWorld(t)
	svc := newNotificationService(w, nil)
	ctx := context.Background()

	for _, u := range []*models.User{w.emily, w.maria} {
		_, err := w.store.Milestones.CreateMilestone(ctx, &models.Milestone{
			UserID: u.ID, Title: "x", Category: "other", StartDate: w.now, EndDate: w.days(1), Status: models.MilestoneInProgress,
		})
		require.NoError(t, err)
	}

	sent, err := svc.CheckAllDeadlines(ctx, w.now)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}
