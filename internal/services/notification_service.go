package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"github.com/goldenbridgewomen/gbw-tracker/internal/permissions"
	"github.com/goldenbridgewomen/gbw-tracker/internal/repository"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/metrics"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Pusher delivers a message to the live connections of a user.
type Pusher interface {
	Push(userID primitive.ObjectID, msgType string, payload interface{})
}

// DeadlineReminderDays are the days-remaining values that trigger a reminder.
var DeadlineReminderDays = []int{7, 3, 1}

type NotificationService struct {
	repo       repository.NotificationStore
	milestones repository.MilestoneStore
	users      repository.UserStore
	tracker    repository.DeadlineTracker
	pusher     Pusher
}

func NewNotificationService(
	repo repository.NotificationStore,
	milestones repository.MilestoneStore,
	users repository.UserStore,
	tracker repository.DeadlineTracker,
	pusher Pusher,
) *NotificationService {
	return &NotificationService{
		repo:       repo,
		milestones: milestones,
		users:      users,
		tracker:    tracker,
		pusher:     pusher,
	}
}

// Notify stores a notification for userID and pushes it to open sockets. Failures are
// logged and never reach the caller.
func (s *NotificationService) Notify(ctx context.Context, userID primitive.ObjectID, notifType models.NotificationType, title, message string, data map[string]any) {
	if _, err := s.create(ctx, userID, notifType, title, message, data); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id": userID.Hex(),
			"type":    notifType,
		}).Warn("Failed to create notification")
	}
}

func (s *NotificationService) create(ctx context.Context, userID primitive.ObjectID, notifType models.NotificationType, title, message string, data map[string]any) (*models.Notification, error) {
	notif := &models.Notification{
		UserID:  userID,
		Type:    notifType,
		Title:   title,
		Message: message,
		Data:    data,
		Read:    false,
	}
	if err := s.repo.CreateNotification(ctx, notif); err != nil {
		return nil, err
	}
	if err := s.repo.TrimUserNotifications(ctx, userID, models.MaxNotificationsPerUser); err != nil {
		logrus.WithError(err).WithField("user_id", userID.Hex()).Warn("Failed to trim notifications")
	}
	metrics.NotificationsCreated.WithLabelValues(string(notifType)).Inc()
	if s.pusher != nil {
		s.pusher.Push(userID, "notification", notif)
	}
	return notif, nil
}

// GetNotifications returns the actor's notifications, newest first.
func (s *NotificationService) GetNotifications(ctx context.Context, actor *models.User) ([]models.Notification, error) {
	notifs, err := s.repo.GetUserNotifications(ctx, actor.ID)
	if err != nil {
		return nil, storeErr(err, "notifications")
	}
	return notifs, nil
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, actor *models.User) (int64, error) {
	n, err := s.repo.CountUnread(ctx, actor.ID)
	if err != nil {
		return 0, storeErr(err, "notifications")
	}
	return n, nil
}

func (s *NotificationService) loadOwn(ctx context.Context, actor *models.User, id primitive.ObjectID) error {
	notif, err := s.repo.GetNotificationByID(ctx, id)
	if err != nil {
		return storeErr(err, "notification")
	}
	if notif.UserID != actor.ID {
		return forbiddenf("notification belongs to another user")
	}
	return nil
}

// MarkAsRead is only allowed on the actor's own notifications.
func (s *NotificationService) MarkAsRead(ctx context.Context, actor *models.User, id primitive.ObjectID) error {
	if err := s.loadOwn(ctx, actor, id); err != nil {
		return err
	}
	return storeErr(s.repo.MarkAsRead(ctx, id), "notification")
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, actor *models.User) error {
	return storeErr(s.repo.MarkAllAsRead(ctx, actor.ID), "notifications")
}

func (s *NotificationService) DeleteNotification(ctx context.Context, actor *models.User, id primitive.ObjectID) error {
	if err := s.loadOwn(ctx, actor, id); err != nil {
		return err
	}
	return storeErr(s.repo.DeleteNotification(ctx, id), "notification")
}

// DaysRemaining counts whole days until end, rounding any partial day up.
func DaysRemaining(end, now time.Time) int {
	return int(math.Ceil(end.Sub(now).Hours() / 24))
}

func isReminderDay(days int) bool {
	for _, d := range DeadlineReminderDays {
		if d == days {
			return true
		}
	}
	return false
}

// CheckDeadlines sends each reminder for the user's open milestones at most once. It
// returns the number of reminders created.
func (s *NotificationService) CheckDeadlines(ctx context.Context, userID primitive.ObjectID, now time.Time) (int, error) {
	milestones, err := s.milestones.GetMilestonesByUser(ctx, userID)
	if err != nil {
		return 0, storeErr(err, "milestones")
	}

	sent := 0
	for _, m := range milestones {
		if m.Status == models.MilestoneCompleted {
			continue
		}
		days := DaysRemaining(m.EndDate, now)
		if !isReminderDay(days) {
			continue
		}
		key := fmt.Sprintf("%s_%d", m.ID.Hex(), days)
		first, err := s.tracker.MarkNotified(ctx, userID, key)
		if err != nil {
			logrus.WithError(err).WithField("milestone_id", m.ID.Hex()).Warn("Skipping deadline reminder")
			continue
		}
		if !first {
			continue
		}

		unit := "days"
		if days == 1 {
			unit = "day"
		}
		s.Notify(ctx, userID, models.NotificationDeadline,
			"Milestone deadline approaching",
			fmt.Sprintf("%q is due in %d %s.", m.Title, days, unit),
			map[string]any{"milestoneId": m.ID.Hex(), "daysRemaining": days},
		)
		sent++
	}
	return sent, nil
}

// CheckAllDeadlines runs CheckDeadlines for every participant.
func (s *NotificationService) CheckAllDeadlines(ctx context.Context, now time.Time) (int, error) {
	start := time.Now()
	defer func() { metrics.DeadlineScanDuration.Observe(time.Since(start).Seconds()) }()

	users, err := s.users.GetAllUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch users: %w", err)
	}
	total := 0
	for i := range users {
		if !permissions.IsParticipant(&users[i]) {
			continue
		}
		n, err := s.CheckDeadlines(ctx, users[i].ID, now)
		if err != nil {
			logrus.WithError(err).WithField("user_id", users[i].ID.Hex()).Warn("Deadline check failed")
			continue
		}
		total += n
	}
	return total, nil
}
