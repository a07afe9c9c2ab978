package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"github.com/goldenbridgewomen/gbw-tracker/internal/permissions"
	"github.com/goldenbridgewomen/gbw-tracker/internal/repository"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/logger"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/sanitize"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Mailer sends invite emails. It is optional.
type Mailer interface {
	Enabled() bool
	SendEmail(to, subject, body string) error
}

// ProgramService manages programs and their manager and participant membership. Membership
// is written to both the program and the user record.
type ProgramService struct {
	programs  repository.ProgramStore
	users     repository.UserStore
	invites   repository.InviteStore
	mailer    Mailer
	appOrigin string
	now       clock
}

func NewProgramService(programs repository.ProgramStore, users repository.UserStore, invites repository.InviteStore, mailer Mailer, appOrigin string) *ProgramService {
	return &ProgramService{
		programs:  programs,
		users:     users,
		invites:   invites,
		mailer:    mailer,
		appOrigin: strings.TrimRight(appOrigin, "/"),
		now:       time.Now,
	}
}

type ProgramInput struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	StartDate   time.Time            `json:"startDate"`
	EndDate     time.Time            `json:"endDate"`
	ManagerIDs  []primitive.ObjectID `json:"managerIds"`
}

func (in *ProgramInput) validate() error {
	in.Name = sanitize.Text(in.Name)
	in.Description = sanitize.Text(in.Description)
	if in.Name == "" {
		return invalidf("program name is required")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return invalidf("start and end dates are required")
	}
	if in.EndDate.Before(in.StartDate) {
		return invalidf("end date must not be before start date")
	}
	return nil
}

// CreateProgram is admin only.
func (s *ProgramService) CreateProgram(ctx context.Context, actor *models.User, in ProgramInput) (*models.Program, error) {
	if !permissions.CanCreateProgram(actor) {
		logger.Log.WithField("user_id", actor.ID.Hex()).Warn("Non-admin attempted to create a program")
		return nil, forbiddenf("only admins can create programs")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	managers := make([]*models.User, 0, len(in.ManagerIDs))
	for _, id := range in.ManagerIDs {
		m, err := s.loadManager(ctx, id)
		if err != nil {
			return nil, err
		}
		managers = append(managers, m)
	}

	program := &models.Program{
		Name:           in.Name,
		Description:    in.Description,
		ManagerIDs:     []primitive.ObjectID{},
		ParticipantIDs: []primitive.ObjectID{},
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		CreatedBy:      actor.ID,
	}
	for _, m := range managers {
		program.ManagerIDs = models.AddID(program.ManagerIDs, m.ID)
	}
	program.RefreshStatus(s.now())

	created, err := s.programs.CreateProgram(ctx, program)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to create program")
		return nil, storeErr(err, "program")
	}

	for _, m := range managers {
		m.ManagedProgramIDs = models.AddID(m.ManagedProgramIDs, created.ID)
		if err := s.users.UpdateUser(ctx, m); err != nil {
			return nil, storeErr(err, "manager")
		}
	}

	logger.Log.WithFields(logrus.Fields{
		"program_id": created.ID.Hex(),
		"managers":   len(managers),
	}).Info("Program created")
	return created, nil
}

func (s *ProgramService) loadManager(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	m, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "manager")
	}
	if !permissions.IsManager(m) {
		return nil, invalidf("user %s is not a program manager", id.Hex())
	}
	return m, nil
}

// GetProgram returns a program the actor manages or belongs to.
func (s *ProgramService) GetProgram(ctx context.Context, actor *models.User, id primitive.ObjectID) (*models.Program, error) {
	program, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !permissions.CanViewProgram(actor, program) {
		return nil, forbiddenf("cannot view this program")
	}
	return program, nil
}

func (s *ProgramService) load(ctx context.Context, id primitive.ObjectID) (*models.Program, error) {
	program, err := s.programs.GetProgramByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "program")
	}
	program.RefreshStatus(s.now())
	return program, nil
}

// ListPrograms returns all programs for admins, managed ones for managers and enrolled
// ones for participants.
func (s *ProgramService) ListPrograms(ctx context.Context, actor *models.User) ([]models.Program, error) {
	var (
		programs []models.Program
		err      error
	)
	switch permissions.ProgramListScope(actor) {
	case permissions.ListAll:
		programs, err = s.programs.GetAllPrograms(ctx)
	case permissions.ListManaged:
		programs, err = s.programs.GetProgramsByManager(ctx, actor.ID)
	case permissions.ListEnrolled:
		programs, err = s.programs.GetProgramsByParticipant(ctx, actor.ID)
	default:
		return nil, forbiddenf("cannot list programs")
	}
	if err != nil {
		return nil, storeErr(err, "programs")
	}
	now := s.now()
	for i := range programs {
		programs[i].RefreshStatus(now)
	}
	return programs, nil
}

// UpdateProgram changes the descriptive fields and dates. Membership is managed separately.
func (s *ProgramService) UpdateProgram(ctx context.Context, actor *models.User, id primitive.ObjectID, in ProgramInput) (*models.Program, error) {
	if !permissions.CanManageProgram(actor, id) {
		return nil, forbiddenf("cannot manage this program")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	program, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	program.Name = in.Name
	program.Description = in.Description
	program.StartDate = in.StartDate
	program.EndDate = in.EndDate
	program.RefreshStatus(s.now())

	if err := s.programs.UpdateProgram(ctx, program); err != nil {
		return nil, storeErr(err, "program")
	}
	logger.Log.WithField("program_id", id.Hex()).Info("Program updated")
	return program, nil
}

// ArchiveProgram soft-deletes a program; its status becomes completed.
func (s *ProgramService) ArchiveProgram(ctx context.Context, actor *models.User, id primitive.ObjectID) (*models.Program, error) {
	if !permissions.CanManageProgram(actor, id) {
		return nil, forbiddenf("cannot manage this program")
	}
	program, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if program.ArchivedAt != nil {
		return program, nil
	}
	now := s.now()
	program.ArchivedAt = &now
	program.RefreshStatus(now)
	if err := s.programs.UpdateProgram(ctx, program); err != nil {
		return nil, storeErr(err, "program")
	}
	logger.Log.WithField("program_id", id.Hex()).Info("Program archived")
	return program, nil
}

// AssignManager adds a program manager to a program. Admin only.
func (s *ProgramService) AssignManager(ctx context.Context, actor *models.User, programID, managerID primitive.ObjectID) (*models.Program, error) {
	if !permissions.CanAssignProgramManagers(actor) {
		return nil, forbiddenf("only admins can assign program managers")
	}
	program, err := s.load(ctx, programID)
	if err != nil {
		return nil, err
	}
	manager, err := s.loadManager(ctx, managerID)
	if err != nil {
		return nil, err
	}

	program.ManagerIDs = models.AddID(program.ManagerIDs, manager.ID)
	if err := s.programs.UpdateProgram(ctx, program); err != nil {
		return nil, storeErr(err, "program")
	}
	manager.ManagedProgramIDs = models.AddID(manager.ManagedProgramIDs, program.ID)
	if err := s.users.UpdateUser(ctx, manager); err != nil {
		return nil, storeErr(err, "manager")
	}
	return program, nil
}

// RemoveManager detaches a manager from a program. Admin only.
func (s *ProgramService) RemoveManager(ctx context.Context, actor *models.User, programID, managerID primitive.ObjectID) (*models.Program, error) {
	if !permissions.CanAssignProgramManagers(actor) {
		return nil, forbiddenf("only admins can assign program managers")
	}
	program, err := s.load(ctx, programID)
	if err != nil {
		return nil, err
	}
	program.ManagerIDs = models.RemoveID(program.ManagerIDs, managerID)
	if err := s.programs.UpdateProgram(ctx, program); err != nil {
		return nil, storeErr(err, "program")
	}
	if manager, err := s.users.GetUserByID(ctx, managerID); err == nil {
		manager.ManagedProgramIDs = models.RemoveID(manager.ManagedProgramIDs, programID)
		if err := s.users.UpdateUser(ctx, manager); err != nil {
			return nil, storeErr(err, "manager")
		}
	}
	return program, nil
}

// AddParticipantResult tells the caller whether the email was enrolled directly or invited.
type AddParticipantResult struct {
	Enrolled  bool               `json:"enrolled"`
	User      *models.PublicUser `json:"user,omitempty"`
	Invite    *models.Invite     `json:"invite,omitempty"`
	InviteURL string             `json:"inviteUrl,omitempty"`
	Emailed   bool               `json:"emailed"`
}

// AddParticipantByEmail enrols an existing participant, or creates an invite for an
// unknown email and returns its signup link.
func (s *ProgramService) AddParticipantByEmail(ctx context.Context, actor *models.User, programID primitive.ObjectID, email string) (*AddParticipantResult, error) {
	if !permissions.CanInviteParticipants(actor, programID) {
		return nil, forbiddenf("cannot manage this program")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRegex.MatchString(email) {
		return nil, invalidf("invalid email format")
	}
	program, err := s.load(ctx, programID)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.enroll(ctx, program, user); err != nil {
			return nil, err
		}
		pub := user.Public()
		return &AddParticipantResult{Enrolled: true, User: &pub}, nil
	case errors.Is(err, repository.ErrNotFound):
		return s.invite(ctx, actor, program, email)
	default:
		return nil, storeErr(err, "user")
	}
}

func (s *ProgramService) enroll(ctx context.Context, program *models.Program, user *models.User) error {
	if !permissions.IsParticipant(user) {
		return invalidf("only participants can be enrolled")
	}
	program.ParticipantIDs = models.AddID(program.ParticipantIDs, user.ID)
	if err := s.programs.UpdateProgram(ctx, program); err != nil {
		return storeErr(err, "program")
	}
	user.ProgramIDs = models.AddID(user.ProgramIDs, program.ID)
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return storeErr(err, "user")
	}
	logger.Log.WithFields(logrus.Fields{
		"program_id": program.ID.Hex(),
		"user_id":    user.ID.Hex(),
	}).Info("Participant enrolled")
	return nil
}

func (s *ProgramService) invite(ctx context.Context, actor *models.User, program *models.Program, email string) (*AddParticipantResult, error) {
	pending, err := s.invites.GetPendingInvitesByProgram(ctx, program.ID)
	if err != nil {
		return nil, storeErr(err, "invites")
	}
	var inv *models.Invite
	for i := range pending {
		if pending[i].Email == email {
			inv = &pending[i]
			break
		}
	}
	if inv == nil {
		inv, err = s.invites.CreateInvite(ctx, &models.Invite{
			ProgramID:  program.ID,
			Email:      email,
			InviteCode: uuid.NewString(),
			InvitedBy:  actor.ID,
			Status:     models.InvitePending,
			CreatedAt:  s.now(),
		})
		if err != nil {
			return nil, storeErr(err, "invite")
		}
	}

	res := &AddParticipantResult{Invite: inv, InviteURL: s.InviteURL(inv.InviteCode)}
	if s.mailer != nil && s.mailer.Enabled() {
		body := fmt.Sprintf("You have been invited to join %q on Golden Bridge Women.\n\nSign up here:\n%s", program.Name, res.InviteURL)
		if err := s.mailer.SendEmail(email, "You're invited to Golden Bridge Women", body); err != nil {
			logger.Log.WithError(err).WithField("email", email).Warn("Failed to send invite email")
		} else {
			res.Emailed = true
		}
	}
	logger.Log.WithField("program_id", program.ID.Hex()).Info("Participant invited")
	return res, nil
}

// InviteURL builds the shareable signup link for a code.
func (s *ProgramService) InviteURL(code string) string {
	return s.appOrigin + "/signup?invite=" + url.QueryEscape(code)
}

// RemoveParticipant unenrols a user from a program.
func (s *ProgramService) RemoveParticipant(ctx context.Context, actor *models.User, programID, userID primitive.ObjectID) error {
	if !permissions.CanManageProgram(actor, programID) {
		return forbiddenf("cannot manage this program")
	}
	program, err := s.load(ctx, programID)
	if err != nil {
		return err
	}
	if !models.ContainsID(program.ParticipantIDs, userID) {
		return fmt.Errorf("participant: %w", ErrNotFound)
	}
	program.ParticipantIDs = models.RemoveID(program.ParticipantIDs, userID)
	if err := s.programs.UpdateProgram(ctx, program); err != nil {
		return storeErr(err, "program")
	}
	if user, err := s.users.GetUserByID(ctx, userID); err == nil {
		user.ProgramIDs = models.RemoveID(user.ProgramIDs, programID)
		if err := s.users.UpdateUser(ctx, user); err != nil {
			return storeErr(err, "user")
		}
	}
	return nil
}

// Roster is the membership view of a program.
type Roster struct {
	Managers       []models.PublicUser `json:"managers"`
	Participants   []models.PublicUser `json:"participants"`
	PendingInvites []models.Invite     `json:"pendingInvites"`
}

func (s *ProgramService) GetRoster(ctx context.Context, actor *models.User, programID primitive.ObjectID) (*Roster, error) {
	if !permissions.CanManageProgram(actor, programID) {
		return nil, forbiddenf("cannot manage this program")
	}
	program, err := s.load(ctx, programID)
	if err != nil {
		return nil, err
	}
	managers, err := s.users.GetUsersByIDs(ctx, program.ManagerIDs)
	if err != nil {
		return nil, storeErr(err, "managers")
	}
	participants, err := s.users.GetUsersByIDs(ctx, program.ParticipantIDs)
	if err != nil {
		return nil, storeErr(err, "participants")
	}
	pending, err := s.invites.GetPendingInvitesByProgram(ctx, programID)
	if err != nil {
		return nil, storeErr(err, "invites")
	}
	return &Roster{
		Managers:       publicUsers(managers),
		Participants:   publicUsers(participants),
		PendingInvites: pending,
	}, nil
}

func publicUsers(users []models.User) []models.PublicUser {
	out := make([]models.PublicUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out
}

// CheckInvite verifies that code is a pending invite addressed to email.
func (s *ProgramService) CheckInvite(ctx context.Context, code, email string) (*models.Invite, error) {
	inv, err := s.invites.GetInviteByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, storeErr(err, "invite")
	}
	if inv.Status != models.InvitePending {
		return nil, conflictf("invite already used")
	}
	if !strings.EqualFold(inv.Email, strings.TrimSpace(email)) {
		return nil, invalidf("invite was issued to a different email")
	}
	return inv, nil
}

// AcceptInvite enrols user into the invite's program and marks the invite accepted.
func (s *ProgramService) AcceptInvite(ctx context.Context, user *models.User, code string) error {
	inv, err := s.CheckInvite(ctx, code, user.Email)
	if err != nil {
		return err
	}
	program, err := s.load(ctx, inv.ProgramID)
	if err != nil {
		return err
	}
	if err := s.enroll(ctx, program, user); err != nil {
		return err
	}
	if err := s.invites.MarkInviteAccepted(ctx, inv.ID, s.now()); err != nil {
		return storeErr(err, "invite")
	}
	return nil
}
