package services

import (
	"context"
	"time"

	"github.com/goldenbridgewomen/gbw-tracker/internal/export"
	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"github.com/goldenbridgewomen/gbw-tracker/internal/permissions"
	"github.com/goldenbridgewomen/gbw-tracker/internal/repository"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/logger"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExportService assembles reports for a whole program or a single participant.
type ExportService struct {
	programs   repository.ProgramStore
	users      repository.UserStore
	milestones repository.MilestoneStore
	cycles     repository.CycleStore
	now        clock
}

func NewExportService(
	programs repository.ProgramStore,
	users repository.UserStore,
	milestones repository.MilestoneStore,
	cycles repository.CycleStore,
) *ExportService {
	return &ExportService{
		programs:   programs,
		users:      users,
		milestones: milestones,
		cycles:     cycles,
		now:        time.Now,
	}
}

// BuildReport scopes the report to programID, to userID, or to both. With both set the
// report holds only that participant of the program.
func (s *ExportService) BuildReport(ctx context.Context, actor *models.User, programID, userID *primitive.ObjectID) (*export.ProgramReport, error) {
	if programID == nil && userID == nil {
		return nil, invalidf("programId or userId is required")
	}
	if !permissions.CanExportData(actor, programID, userID) {
		logger.Log.WithFields(logrus.Fields{"user_id": actor.ID.Hex()}).Warn("Export denied")
		return nil, forbiddenf("cannot export this data")
	}

	var program *models.Program
	var memberIDs []primitive.ObjectID
	if programID != nil {
		p, err := s.programs.GetProgramByID(ctx, *programID)
		if err != nil {
			return nil, storeErr(err, "program")
		}
		p.RefreshStatus(s.now())
		program = p
		memberIDs = p.ParticipantIDs
		if userID != nil {
			if !models.ContainsID(p.ParticipantIDs, *userID) {
				return nil, invalidf("user is not enrolled in this program")
			}
			memberIDs = []primitive.ObjectID{*userID}
		}
	} else {
		memberIDs = []primitive.ObjectID{*userID}
	}

	users, err := s.users.GetUsersByIDs(ctx, memberIDs)
	if err != nil {
		return nil, storeErr(err, "users")
	}
	if programID == nil && len(users) == 0 {
		return nil, storeErr(repository.ErrNotFound, "user")
	}
	milestones, err := s.milestones.GetMilestonesByUsers(ctx, memberIDs)
	if err != nil {
		return nil, storeErr(err, "milestones")
	}
	cycles, err := s.cycles.GetActiveCyclesByUsers(ctx, memberIDs)
	if err != nil {
		return nil, storeErr(err, "cycles")
	}

	report := export.Build(program, users, milestones, cycles, s.now())
	logger.Log.WithFields(logrus.Fields{
		"user_id":      actor.ID.Hex(),
		"participants": report.Participants,
	}).Info("Report built")
	return report, nil
}
