// Package memory provides in-process implementations of the repository stores. They back
// the unit tests and the seed tool's dry-run mode.
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

// Store bundles one in-memory instance of every repository.
type Store struct {
	Users         *UserStore
	Programs      *ProgramStore
	Milestones    *MilestoneStore
	Cycles        *CycleStore
	Notifications *NotificationStore
	Audit         *AuditStore
	Invites       *InviteStore
	Templates     *TemplateStore
	Deadlines     *DeadlineTracker
}

func New() *Store {
	return &Store{
		Users:         &UserStore{items: map[primitive.ObjectID]models.User{}},
		Programs:      &ProgramStore{items: map[primitive.ObjectID]models.Program{}},
		Milestones:    &MilestoneStore{items: map[primitive.ObjectID]models.Milestone{}},
		Cycles:        &CycleStore{items: map[primitive.ObjectID]models.BalanceSheetCycle{}},
		Notifications: &NotificationStore{},
		Audit:         &AuditStore{},
		Invites:       &InviteStore{items: map[primitive.ObjectID]models.Invite{}},
		Templates:     &TemplateStore{items: map[primitive.ObjectID]models.MilestoneTemplate{}},
		Deadlines:     NewDeadlineTracker(),
	}
}

// ---- users ----

type UserStore struct {
	mu    sync.RWMutex
	items map[primitive.ObjectID]models.User
}

func (s *UserStore) CreateUser(_ context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, u := range s.items {
		if u.Email == user.Email {
			return nil, repository.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	s.items[user.ID] = cloneUser(*user)
	return user, nil
}

func (s *UserStore) GetUserByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := cloneUser(u)
	return &c, nil
}

func (s *UserStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.items {
		if u.Email == email {
			c := cloneUser(u)
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *UserStore) GetUsersByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.User{}
	for _, id := range ids {
		if u, ok := s.items[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	sortUsers(out)
	return out, nil
}

func (s *UserStore) GetAllUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.User, 0, len(s.items))
	for _, u := range s.items {
		out = append(out, cloneUser(u))
	}
	sortUsers(out)
	return out, nil
}

func (s *UserStore) UpdateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[user.ID]; !ok {
		return repository.ErrNotFound
	}
	user.UpdatedAt = time.Now()
	s.items[user.ID] = cloneUser(*user)
	return nil
}

func (s *UserStore) TouchLastActive(_ context.Context, id primitive.ObjectID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.LastActiveAt = at
	s.items[id] = u
	return nil
}

func cloneUser(u models.User) models.User {
	u.ProgramIDs = cloneIDs(u.ProgramIDs)
	u.ManagedProgramIDs = cloneIDs(u.ManagedProgramIDs)
	return u
}

func sortUsers(users []models.User) {
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
}

func cloneIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	if ids == nil {
		return nil
	}
	return append([]primitive.ObjectID(nil), ids...)
}

// ---- programs ----

type ProgramStore struct {
	mu    sync.RWMutex
	items map[primitive.ObjectID]models.Program
}

func (s *ProgramStore) CreateProgram(_ context.Context, program *models.Program) (*models.Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if program.ID.IsZero() {
		program.ID = primitive.NewObjectID()
	}
	program.CreatedAt = time.Now()
	program.UpdatedAt = program.CreatedAt
	s.items[program.ID] = cloneProgram(*program)
	return program, nil
}

func (s *ProgramStore) GetProgramByID(_ context.Context, id primitive.ObjectID) (*models.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := cloneProgram(p)
	return &c, nil
}

func (s *ProgramStore) GetAllPrograms(_ context.Context) ([]models.Program, error) {
	return s.filter(func(models.Program) bool { return true }), nil
}

func (s *ProgramStore) GetProgramsByManager(_ context.Context, managerID primitive.ObjectID) ([]models.Program, error) {
	return s.filter(func(p models.Program) bool { return models.ContainsID(p.ManagerIDs, managerID) }), nil
}

func (s *ProgramStore) GetProgramsByParticipant(_ context.Context, userID primitive.ObjectID) ([]models.Program, error) {
	return s.filter(func(p models.Program) bool { return models.ContainsID(p.ParticipantIDs, userID) }), nil
}

func (s *ProgramStore) filter(keep func(models.Program) bool) []models.Program {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Program{}
	for _, p := range s.items {
		if keep(p) {
			out = append(out, cloneProgram(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out
}

func (s *ProgramStore) UpdateProgram(_ context.Context, program *models.Program) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[program.ID]; !ok {
		return repository.ErrNotFound
	}
	program.UpdatedAt = time.Now()
	s.items[program.ID] = cloneProgram(*program)
	return nil
}

func cloneProgram(p models.Program) models.Program {
	p.ManagerIDs = cloneIDs(p.ManagerIDs)
	p.ParticipantIDs = cloneIDs(p.ParticipantIDs)
	return p
}

var (
	_ repository.UserStore         = (*UserStore)(nil)
	_ repository.ProgramStore      = (*ProgramStore)(nil)
	_ repository.MilestoneStore    = (*MilestoneStore)(nil)
	_ repository.CycleStore        = (*CycleStore)(nil)
	_ repository.NotificationStore = (*NotificationStore)(nil)
	_ repository.AuditStore        = (*AuditStore)(nil)
	_ repository.InviteStore       = (*InviteStore)(nil)
	_ repository.TemplateStore     = (*TemplateStore)(nil)
	_ repository.DeadlineTracker   = (*DeadlineTracker)(nil)
)
