package repository

import (
	"context"
	"errors"
	"time"

	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrNotFound is returned by every store when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a unique key such as a user email is already taken.
var ErrDuplicate = errors.New("duplicate record")

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	GetAllUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	TouchLastActive(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

// ProgramStore persists programs. Programs are never hard-deleted.
type ProgramStore interface {
	CreateProgram(ctx context.Context, program *models.Program) (*models.Program, error)
	GetProgramByID(ctx context.Context, id primitive.ObjectID) (*models.Program, error)
	GetAllPrograms(ctx context.Context) ([]models.Program, error)
	GetProgramsByManager(ctx context.Context, managerID primitive.ObjectID) ([]models.Program, error)
	GetProgramsByParticipant(ctx context.Context, userID primitive.ObjectID) ([]models.Program, error)
	UpdateProgram(ctx context.Context, program *models.Program) error
}

// MilestoneStore persists milestones with their embedded progress reports.
type MilestoneStore interface {
	CreateMilestone(ctx context.Context, milestone *models.Milestone) (*models.Milestone, error)
	GetMilestoneByID(ctx context.Context, id primitive.ObjectID) (*models.Milestone, error)
	GetMilestonesByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Milestone, error)
	GetMilestonesByUsers(ctx context.Context, userIDs []primitive.ObjectID) ([]models.Milestone, error)
	UpdateMilestone(ctx context.Context, milestone *models.Milestone) error
	DeleteMilestone(ctx context.Context, id primitive.ObjectID) error
}

// CycleStore persists balance sheet cycles with their embedded expenses.
type CycleStore interface {
	CreateCycle(ctx context.Context, cycle *models.BalanceSheetCycle) (*models.BalanceSheetCycle, error)
	GetCycleByID(ctx context.Context, id primitive.ObjectID) (*models.BalanceSheetCycle, error)
	GetCyclesByUser(ctx context.Context, userID primitive.ObjectID) ([]models.BalanceSheetCycle, error)
	GetActiveCycle(ctx context.Context, userID primitive.ObjectID) (*models.BalanceSheetCycle, error)
	GetActiveCyclesByUsers(ctx context.Context, userIDs []primitive.ObjectID) ([]models.BalanceSheetCycle, error)
	DeactivateCycles(ctx context.Context, userID primitive.ObjectID) error
	UpdateCycle(ctx context.Context, cycle *models.BalanceSheetCycle) error
	DeleteCycle(ctx context.Context, id primitive.ObjectID) error
}

// NotificationStore persists per-user notifications, newest first.
type NotificationStore interface {
	CreateNotification(ctx context.Context, notif *models.Notification) error
	GetNotificationByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error)
	GetUserNotifications(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkAsRead(ctx context.Context, id primitive.ObjectID) error
	MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) error
	DeleteNotification(ctx context.Context, id primitive.ObjectID) error
	TrimUserNotifications(ctx context.Context, userID primitive.ObjectID, keep int) error
}

// AuditFilter narrows an audit query. UserID matches either the actor or the target.
type AuditFilter struct {
	UserID    *primitive.ObjectID
	ProgramID *primitive.ObjectID
	Action    string
	Limit     int64
}

// AuditStore is append-only and bounded to models.MaxAuditEntries.
type AuditStore interface {
	AppendEntry(ctx context.Context, entry *models.AuditLogEntry) error
	QueryEntries(ctx context.Context, filter AuditFilter) ([]models.AuditLogEntry, error)
}

// InviteStore persists pending program invitations.
type InviteStore interface {
	CreateInvite(ctx context.Context, invite *models.Invite) (*models.Invite, error)
	GetInviteByCode(ctx context.Context, code string) (*models.Invite, error)
	GetPendingInvitesByProgram(ctx context.Context, programID primitive.ObjectID) ([]models.Invite, error)
	MarkInviteAccepted(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

// TemplateStore persists milestone templates.
type TemplateStore interface {
	CreateTemplate(ctx context.Context, template *models.MilestoneTemplate) (*models.MilestoneTemplate, error)
	GetTemplateByID(ctx context.Context, id primitive.ObjectID) (*models.MilestoneTemplate, error)
	GetAllTemplates(ctx context.Context) ([]models.MilestoneTemplate, error)
	GetTemplatesByCreator(ctx context.Context, userID primitive.ObjectID) ([]models.MilestoneTemplate, error)
}

// DeadlineTracker remembers which deadline reminders a user has already received.
// MarkNotified returns true only the first time a key is seen for the user.
type DeadlineTracker interface {
	MarkNotified(ctx context.Context, userID primitive.ObjectID, key string) (bool, error)
}
