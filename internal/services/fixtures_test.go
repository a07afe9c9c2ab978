package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goldenbridgewomen/gbw-tracker/internal/audit"
	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"github.com/goldenbridgewomen/gbw-tracker/internal/repository"
	"github.com/goldenbridgewomen/gbw-tracker/internal/repository/memory"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type sentNotification struct {
	UserID primitive.ObjectID
	Type   models.NotificationType
	Title  string
	Data   map[string]any
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (n *recordingNotifier) Notify(_ context.Context, userID primitive.ObjectID, t models.NotificationType, title, _ string, data map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentNotification{UserID: userID, Type: t, Title: title, Data: data})
}

func (n *recordingNotifier) to(userID primitive.ObjectID, t models.NotificationType) []sentNotification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentNotification
	for _, s := range n.sent {
		if s.UserID == userID && s.Type == t {
			out = append(out, s)
		}
	}
	return out
}

// world is a small tracker: Emily manages p1 with Jessica, Sarah manages p2 with Maria, and
// Lonnie is enrolled nowhere.
type world struct {
	store    *memory.Store
	notifier *recordingNotifier
	now      time.Time

	admin, emily, sarah, jessica, maria, lonnie *models.User
	p1, p2                                      *models.Program

	milestones *MilestoneService
	balances   *BalanceService
}

func newWorld(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()
	w := &world{
		store:    memory.New(),
		notifier: &recordingNotifier{},
		now:      time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}

	mkUser := func(name string, role models.Role) *models.User {
		u, err := w.store.Users.CreateUser(ctx, &models.User{
			Name:  name,
			Email: name + "@example.com",
			Role:  role,
		})
		require.NoError(t, err)
		return u
	}
	w.admin = mkUser("admin", models.RoleAdmin)
	w.emily = mkUser("emily", models.RoleProgramManager)
	w.sarah = mkUser("sarah", models.RoleProgramManager)
	w.jessica = mkUser("jessica", models.RoleParticipant)
	w.maria = mkUser("maria", models.RoleParticipant)
	w.lonnie = mkUser("lonnie", models.RoleParticipant)

	mkProgram := func(name string, manager, participant *models.User) *models.Program {
		p, err := w.store.Programs.CreateProgram(ctx, &models.Program{
			Name:           name,
			ManagerIDs:     []primitive.ObjectID{manager.ID},
			ParticipantIDs: []primitive.ObjectID{participant.ID},
			StartDate:      w.now.AddDate(0, -1, 0),
			EndDate:        w.now.AddDate(0, 5, 0),
			CreatedBy:      w.admin.ID,
		})
		require.NoError(t, err)
		manager.ManagedProgramIDs = append(manager.ManagedProgramIDs, p.ID)
		participant.ProgramIDs = append(participant.ProgramIDs, p.ID)
		require.NoError(t, w.store.Users.UpdateUser(ctx, manager))
		require.NoError(t, w.store.Users.UpdateUser(ctx, participant))
		return p
	}
	w.p1 = mkProgram("Spring Cohort", w.emily, w.jessica)
	w.p2 = mkProgram("Fall Cohort", w.sarah, w.maria)

	auditLogger := audit.NewStoreLogger(w.store.Audit)
	w.milestones = NewMilestoneService(w.store.Milestones, w.store.Templates, w.store.Programs, w.store.Users, w.notifier, auditLogger)
	w.milestones.now = func() time.Time { return w.now }
	w.balances = NewBalanceService(w.store.Cycles, w.store.Programs, auditLogger)
	w.balances.now = func() time.Time { return w.now }
	return w
}

func (w *world) auditEntries(t *testing.T, action string) []models.AuditLogEntry {
	t.Helper()
	entries, err := w.store.Audit.QueryEntries(context.Background(), repository.AuditFilter{Action: action})
	require.NoError(t, err)
	return entries
}

func (w *world) days(n int) time.Time { return w.now.AddDate(0, 0, n) }

// enroll creates a participant and adds them to p.
func (w *world) enroll(t *testing.T, name string, p *models.Program) *models.User {
	t.Helper()
	ctx := context.Background()
	u, err := w.store.Users.CreateUser(ctx, &models.User{
		Name:       name,
		Email:      name + "@example.com",
		Role:       models.RoleParticipant,
		ProgramIDs: []primitive.ObjectID{p.ID},
	})
	require.NoError(t, err)
	p.ParticipantIDs = append(p.ParticipantIDs, u.ID)
	require.NoError(t, w.store.Programs.UpdateProgram(ctx, p))
	return u
}
