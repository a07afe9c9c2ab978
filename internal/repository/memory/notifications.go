package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"github.com/goldenbridgewomen/gbw-tracker/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationStore struct {
	mu    sync.RWMutex
	items []models.Notification
}

func (s *NotificationStore) CreateNotification(_ context.Context, notif *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if notif.ID.IsZero() {
		notif.ID = primitive.NewObjectID()
	}
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = time.Now()
	}
	s.items = append(s.items, *notif)
	return nil
}

func (s *NotificationStore) GetNotificationByID(_ context.Context, id primitive.ObjectID) (*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.items {
		if n.ID == id {
			return &n, nil
		}
	}
	return nil, repository.ErrNotFound
}

// GetUserNotifications returns newest first. Ties keep reverse insertion order.
func (s *NotificationStore) GetUserNotifications(_ context.Context, userID primitive.ObjectID) ([]models.Notification, error) {
	return s.forUser(userID), nil
}

func (s *NotificationStore) forUser(userID primitive.ObjectID) []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Notification{}
	for i := len(s.items) - 1; i >= 0; i-- {
		if s.items[i].UserID == userID {
			out = append(out, s.items[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *NotificationStore) CountUnread(_ context.Context, userID primitive.ObjectID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, item := range s.items {
		if item.UserID == userID && !item.Read {
			n++
		}
	}
	return n, nil
}

func (s *NotificationStore) MarkAsRead(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Read = true
		}
	}
	return nil
}

func (s *NotificationStore) MarkAllAsRead(_ context.Context, userID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].UserID == userID {
			s.items[i].Read = true
		}
	}
	return nil
}

func (s *NotificationStore) DeleteNotification(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = removeWhere(s.items, func(n models.Notification) bool { return n.ID == id })
	return nil
}

func (s *NotificationStore) TrimUserNotifications(_ context.Context, userID primitive.ObjectID, keep int) error {
	newest := s.forUser(userID)
	if len(newest) <= keep {
		return nil
	}
	stale := map[primitive.ObjectID]struct{}{}
	for _, n := range newest[keep:] {
		stale[n.ID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = removeWhere(s.items, func(n models.Notification) bool {
		_, ok := stale[n.ID]
		return ok
	})
	return nil
}

func removeWhere[T any](items []T, drop func(T) bool) []T {
	out := items[:0]
	for _, item := range items {
		if !drop(item) {
			out = append(out, item)
		}
	}
	return out
}

// ---- audit ----

// AuditStore keeps at most models.MaxAuditEntries entries, evicting the oldest.
type AuditStore struct {
	mu      sync.RWMutex
	entries []models.AuditLogEntry
}

func (s *AuditStore) AppendEntry(_ context.Context, entry *models.AuditLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	s.entries = append(s.entries, *entry)
	if over := len(s.entries) - models.MaxAuditEntries; over > 0 {
		s.entries = append([]models.AuditLogEntry(nil), s.entries[over:]...)
	}
	return nil
}

func (s *AuditStore) QueryEntries(_ context.Context, filter repository.AuditFilter) ([]models.AuditLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	limit := int(filter.Limit)
	if limit <= 0 || limit > models.MaxAuditEntries {
		limit = models.MaxAuditEntries
	}

	out := []models.AuditLogEntry{}
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := s.entries[i]
		if filter.UserID != nil && e.UserID != *filter.UserID && e.TargetID != *filter.UserID {
			continue
		}
		if filter.ProgramID != nil && (e.ProgramID == nil || *e.ProgramID != *filter.ProgramID) {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Len reports how many entries are retained.
func (s *AuditStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
