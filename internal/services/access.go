package services

import (
	"context"
	"time"

	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"github.com/goldenbridgewomen/gbw-tracker/internal/permissions"
	"github.com/goldenbridgewomen/gbw-tracker/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notifier is the fire-and-forget side channel used by the workflow services.
type Notifier interface {
	Notify(ctx context.Context, userID primitive.ObjectID, notifType models.NotificationType, title, message string, data map[string]any)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, primitive.ObjectID, models.NotificationType, string, string, map[string]any) {
}

// relations loads the programs a target user is enrolled in. They are the only programs
// through which anyone other than the target or an admin can reach the target's data.
type relations struct {
	programs repository.ProgramStore
}

func (r relations) of(ctx context.Context, targetID primitive.ObjectID) ([]models.Program, error) {
	programs, err := r.programs.GetProgramsByParticipant(ctx, targetID)
	if err != nil {
		return nil, storeErr(err, "programs")
	}
	return programs, nil
}

// auditProgram picks the program an audited change belongs to: the first program the actor
// manages the target through, otherwise the target's only program.
func auditProgram(actor *models.User, targetID primitive.ObjectID, programs []models.Program) *primitive.ObjectID {
	if shared := permissions.SharedPrograms(actor.ID, targetID, programs); len(shared) > 0 {
		return &shared[0]
	}
	if len(programs) == 1 {
		id := programs[0].ID
		return &id
	}
	return nil
}

// withProgram adds programId to audit details when one is known.
func withProgram(details map[string]any, programID *primitive.ObjectID) map[string]any {
	if programID != nil {
		details["programId"] = programID.Hex()
	}
	return details
}

func isCrossUser(actor *models.User, ownerID primitive.ObjectID) bool {
	return actor.ID != ownerID
}

// clock is swapped in tests.
type clock func() time.Time
