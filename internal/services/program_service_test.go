package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"github.com/goldenbridgewomen/gbw-tracker/internal/permissions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeMailer struct {
	enabled bool
	sent    []string
}

func (m *fakeMailer) Enabled() bool { return m.enabled }

func (m *fakeMailer) SendEmail(to, _, body string) error {
	m.sent = append(m.sent, to+"|"+body)
	return nil
}

func newProgramService(w *world, mailer Mailer) *ProgramService {
	svc := NewProgramService(w.store.Programs, w.store.Users, w.store.Invites, mailer, "https://gbw.example.org/")
	svc.now = func() time.Time { return w.now }
	return svc
}

func TestCreateProgramAdminOnly(t *testing.T) {
	w := newWorld(t)
	svc := newProgramService(w, nil)
	ctx := context.Background()
	in := ProgramInput{Name: "Summer Cohort", StartDate: w.days(10), EndDate: w.days(100), ManagerIDs: []primitive.ObjectID{w.sarah.ID}}

	_, err := svc.CreateProgram(ctx, w.emily, in)
	assert.ErrorIs(t, err, ErrForbidden)

	p, err := svc.CreateProgram(ctx, w.admin, in)
	require.NoError(t, err)
	assert.Equal(t, models.ProgramUpcoming, p.Status)
	assert.Equal(t, []primitive.ObjectID{w.sarah.ID}, p.ManagerIDs)

	sarah, err := w.store.Users.GetUserByID(ctx, w.sarah.ID)
	require.NoError(t, err)
	assert.True(t, models.ContainsID(sarah.ManagedProgramIDs, p.ID))

	bad := in
	bad.ManagerIDs = []primitive.ObjectID{w.jessica.ID}
	_, err = svc.CreateProgram(ctx, w.admin, bad)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListProgramsByRole(t *testing.T) {
	w := newWorld(t)
	svc := newProgramService(w, nil)
	ctx := context.Background()

	all, err := svc.ListPrograms(ctx, w.admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	managed, err := svc.ListPrograms(ctx, w.emily)
	require.NoError(t, err)
	require.Len(t, managed, 1)
	assert.Equal(t, w.p1.ID, managed[0].ID)
	assert.Equal(t, models.ProgramActive, managed[0].Status)

	enrolled, err := svc.ListPrograms(ctx, w.lonnie)
	require.NoError(t, err)
	assert.Empty(t, enrolled)

	_, err = svc.GetProgram(ctx, w.maria, w.p1.ID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestArchiveProgram(t *testing.T) {
	w := newWorld(t)
	svc := newProgramService(w, nil)
	ctx := context.Background()

	_, err := svc.ArchiveProgram(ctx, w.sarah, w.p1.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	p, err := svc.ArchiveProgram(ctx, w.emily, w.p1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProgramCompleted, p.Status)
	assert.NotNil(t, p.ArchivedAt)
}

func TestAddExistingParticipant(t *testing.T) {
	w := newWorld(t)
	svc := newProgramService(w, nil)
	ctx := context.Background()

	_, err := svc.AddParticipantByEmail(ctx, w.sarah, w.p1.ID, "lonnie@example.com")
	assert.ErrorIs(t, err, ErrForbidden)

	res, err := svc.AddParticipantByEmail(ctx, w.emily, w.p1.ID, " Lonnie@Example.com ")
	require.NoError(t, err)
	assert.True(t, res.Enrolled)

	programs, err := w.store.Programs.GetProgramsByParticipant(ctx, w.lonnie.ID)
	require.NoError(t, err)
	require.Len(t, programs, 1)
	lonnie, err := w.store.Users.GetUserByID(ctx, w.lonnie.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{w.p1.ID}, lonnie.ProgramIDs)
	assert.True(t, permissions.CanViewFinancialData(w.emily, w.lonnie.ID, programs))

	_, err = svc.AddParticipantByEmail(ctx, w.emily, w.p1.ID, "sarah@example.com")
	assert.ErrorIs(t, err, ErrInvalidInput)

	require.NoError(t, svc.RemoveParticipant(ctx, w.emily, w.p1.ID, w.lonnie.ID))
	assert.ErrorIs(t, svc.RemoveParticipant(ctx, w.emily, w.p1.ID, w.lonnie.ID), ErrNotFound)
}

func TestInviteAndRegister(t *testing.T) {
	w := newWorld(t)
	mailer := &fakeMailer{enabled: true}
	programs := newProgramService(w, mailer)
	users := NewUserService(w.store.Users, w.store.Programs, programs)
	ctx := context.Background()

	res, err := programs.AddParticipantByEmail(ctx, w.emily, w.p1.ID, "newcomer@example.com")
	require.NoError(t, err)
	assert.False(t, res.Enrolled)
	require.NotNil(t, res.Invite)
	assert.True(t, strings.HasPrefix(res.InviteURL, "https://gbw.example.org/signup?invite="))
	assert.True(t, res.Emailed)
	require.Len(t, mailer.sent, 1)

	again, err := programs.AddParticipantByEmail(ctx, w.emily, w.p1.ID, "newcomer@example.com")
	require.NoError(t, err)
	assert.Equal(t, res.Invite.InviteCode, again.Invite.InviteCode)

	_, err = users.Register(ctx, RegisterInput{Name: "Impostor", Email: "other@example.com", Password: "longenough", InviteCode: res.Invite.InviteCode})
	assert.ErrorIs(t, err, ErrInvalidInput)

	user, err := users.Register(ctx, RegisterInput{Name: "Newcomer", Email: "newcomer@example.com", Password: "longenough", InviteCode: res.Invite.InviteCode})
	require.NoError(t, err)
	assert.Equal(t, models.RoleParticipant, user.Role)
	assert.Equal(t, []primitive.ObjectID{w.p1.ID}, user.ProgramIDs)
	assert.Empty(t, user.InviteError)

	roster, err := programs.GetRoster(ctx, w.emily, w.p1.ID)
	require.NoError(t, err)
	assert.Len(t, roster.Participants, 2)
	assert.Empty(t, roster.PendingInvites)

	_, err = programs.CheckInvite(ctx, res.Invite.InviteCode, "newcomer@example.com")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAssignManager(t *testing.T) {
	w := newWorld(t)
	svc := newProgramService(w, nil)
	ctx := context.Background()

	_, err := svc.AssignManager(ctx, w.emily, w.p2.ID, w.emily.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	p, err := svc.AssignManager(ctx, w.admin, w.p2.ID, w.emily.ID)
	require.NoError(t, err)
	assert.Len(t, p.ManagerIDs, 2)

	emily, err := w.store.Users.GetUserByID(ctx, w.emily.ID)
	require.NoError(t, err)
	assert.True(t, permissions.CanManageProgram(emily, w.p2.ID))

	_, err = svc.RemoveManager(ctx, w.admin, w.p2.ID, w.emily.ID)
	require.NoError(t, err)
	emily, err = w.store.Users.GetUserByID(ctx, w.emily.ID)
	require.NoError(t, err)
	assert.False(t, permissions.CanManageProgram(emily, w.p2.ID))
}
