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

type MilestoneStore struct {
	mu    sync.RWMutex
	items map[primitive.ObjectID]models.Milestone
}

func (s *MilestoneStore) CreateMilestone(_ context.Context, milestone *models.Milestone) (*models.Milestone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if milestone.ID.IsZero() {
		milestone.ID = primitive.NewObjectID()
	}
	if milestone.ProgressReports == nil {
		milestone.ProgressReports = []models.ProgressReport{}
	}
	milestone.CreatedAt = time.Now()
	milestone.UpdatedAt = milestone.CreatedAt
	s.items[milestone.ID] = cloneMilestone(*milestone)
	return milestone, nil
}

func (s *MilestoneStore) GetMilestoneByID(_ context.Context, id primitive.ObjectID) (*models.Milestone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := cloneMilestone(m)
	return &c, nil
}

func (s *MilestoneStore) GetMilestonesByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Milestone, error) {
	return s.GetMilestonesByUsers(ctx, []primitive.ObjectID{userID})
}

func (s *MilestoneStore) GetMilestonesByUsers(_ context.Context, userIDs []primitive.ObjectID) ([]models.Milestone, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Milestone{}
	for _, m := range s.items {
		if models.ContainsID(userIDs, m.UserID) {
			out = append(out, cloneMilestone(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndDate.Before(out[j].EndDate) })
	return out, nil
}

func (s *MilestoneStore) UpdateMilestone(_ context.Context, milestone *models.Milestone) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[milestone.ID]; !ok {
		return repository.ErrNotFound
	}
	milestone.UpdatedAt = time.Now()
	s.items[milestone.ID] = cloneMilestone(*milestone)
	return nil
}

func (s *MilestoneStore) DeleteMilestone(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func cloneMilestone(m models.Milestone) models.Milestone {
	if m.ProgressReports != nil {
		reports := make([]models.ProgressReport, len(m.ProgressReports))
		for i, r := range m.ProgressReports {
			r.ManagerFeedback = append([]models.ManagerFeedback(nil), r.ManagerFeedback...)
			reports[i] = r
		}
		m.ProgressReports = reports
	}
	if m.AssignmentInfo != nil {
		info := *m.AssignmentInfo
		if info.ManagerResponse != nil {
			resp := *info.ManagerResponse
			info.ManagerResponse = &resp
		}
		m.AssignmentInfo = &info
	}
	return m
}

// ---- cycles ----

type CycleStore struct {
	mu    sync.RWMutex
	items map[primitive.ObjectID]models.BalanceSheetCycle
}

func (s *CycleStore) CreateCycle(_ context.Context, cycle *models.BalanceSheetCycle) (*models.BalanceSheetCycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cycle.ID.IsZero() {
		cycle.ID = primitive.NewObjectID()
	}
	if cycle.Expenses == nil {
		cycle.Expenses = []models.Expense{}
	}
	cycle.CreatedAt = time.Now()
	cycle.UpdatedAt = cycle.CreatedAt
	s.items[cycle.ID] = cloneCycle(*cycle)
	return cycle, nil
}

func (s *CycleStore) GetCycleByID(_ context.Context, id primitive.ObjectID) (*models.BalanceSheetCycle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneCycle(c)
	return &out, nil
}

func (s *CycleStore) GetCyclesByUser(_ context.Context, userID primitive.ObjectID) ([]models.BalanceSheetCycle, error) {
	return s.filter(func(c models.BalanceSheetCycle) bool { return c.UserID == userID }), nil
}

func (s *CycleStore) GetActiveCycle(_ context.Context, userID primitive.ObjectID) (*models.BalanceSheetCycle, error) {
	found := s.filter(func(c models.BalanceSheetCycle) bool { return c.UserID == userID && c.IsActive })
	if len(found) == 0 {
		return nil, repository.ErrNotFound
	}
	return &found[0], nil
}

func (s *CycleStore) GetActiveCyclesByUsers(_ context.Context, userIDs []primitive.ObjectID) ([]models.BalanceSheetCycle, error) {
	return s.filter(func(c models.BalanceSheetCycle) bool {
		return c.IsActive && models.ContainsID(userIDs, c.UserID)
	}), nil
}

func (s *CycleStore) DeactivateCycles(_ context.Context, userID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.items {
		if c.UserID == userID && c.IsActive {
			c.IsActive = false
			c.UpdatedAt = time.Now()
			s.items[id] = c
		}
	}
	return nil
}

func (s *CycleStore) UpdateCycle(_ context.Context, cycle *models.BalanceSheetCycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[cycle.ID]; !ok {
		return repository.ErrNotFound
	}
	cycle.UpdatedAt = time.Now()
	s.items[cycle.ID] = cloneCycle(*cycle)
	return nil
}

func (s *CycleStore) DeleteCycle(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *CycleStore) filter(keep func(models.BalanceSheetCycle) bool) []models.BalanceSheetCycle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.BalanceSheetCycle{}
	for _, c := range s.items {
		if keep(c) {
			out = append(out, cloneCycle(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out
}

func cloneCycle(c models.BalanceSheetCycle) models.BalanceSheetCycle {
	if c.Expenses != nil {
		c.Expenses = append([]models.Expense(nil), c.Expenses...)
	}
	return c
}
