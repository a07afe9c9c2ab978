package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"github.com/goldenbridgewomen/gbw-tracker/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type InviteStore struct {
	mu    sync.RWMutex
	items map[primitive.ObjectID]models.Invite
}

func (s *InviteStore) CreateInvite(_ context.Context, invite *models.Invite) (*models.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if invite.ID.IsZero() {
		invite.ID = primitive.NewObjectID()
	}
	invite.Email = strings.ToLower(strings.TrimSpace(invite.Email))
	if invite.CreatedAt.IsZero() {
		invite.CreatedAt = time.Now()
	}
	s.items[invite.ID] = *invite
	return invite, nil
}

func (s *InviteStore) GetInviteByCode(_ context.Context, code string) (*models.Invite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, inv := range s.items {
		if inv.InviteCode == code {
			return &inv, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *InviteStore) GetPendingInvitesByProgram(_ context.Context, programID primitive.ObjectID) ([]models.Invite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Invite{}
	for _, inv := range s.items {
		if inv.ProgramID == programID && inv.Status == models.InvitePending {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *InviteStore) MarkInviteAccepted(_ context.Context, id primitive.ObjectID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	inv.Status = models.InviteAccepted
	inv.AcceptedAt = &at
	s.items[id] = inv
	return nil
}

// ---- templates ----

type TemplateStore struct {
	mu    sync.RWMutex
	items map[primitive.ObjectID]models.MilestoneTemplate
}

func (s *TemplateStore) CreateTemplate(_ context.Context, template *models.MilestoneTemplate) (*models.MilestoneTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if template.ID.IsZero() {
		template.ID = primitive.NewObjectID()
	}
	template.CreatedAt = time.Now()
	s.items[template.ID] = *template
	return template, nil
}

func (s *TemplateStore) GetTemplateByID(_ context.Context, id primitive.ObjectID) (*models.MilestoneTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (s *TemplateStore) GetAllTemplates(_ context.Context) ([]models.MilestoneTemplate, error) {
	return s.filter(func(models.MilestoneTemplate) bool { return true }), nil
}

func (s *TemplateStore) GetTemplatesByCreator(_ context.Context, userID primitive.ObjectID) ([]models.MilestoneTemplate, error) {
	return s.filter(func(t models.MilestoneTemplate) bool { return t.CreatedBy == userID }), nil
}

func (s *TemplateStore) filter(keep func(models.MilestoneTemplate) bool) []models.MilestoneTemplate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.MilestoneTemplate{}
	for _, t := range s.items {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

// ---- deadlines ----

type DeadlineTracker struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewDeadlineTracker is the process-local tracker used when redis is not configured.
func NewDeadlineTracker() *DeadlineTracker {
	return &DeadlineTracker{seen: map[string]struct{}{}}
}

func (t *DeadlineTracker) MarkNotified(_ context.Context, userID primitive.ObjectID, key string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := userID.Hex() + ":" + key
	if _, ok := t.seen[k]; ok {
		return false, nil
	}
	t.seen[k] = struct{}{}
	return true, nil
}
