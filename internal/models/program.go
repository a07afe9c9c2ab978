package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProgramStatus string

const (
	ProgramUpcoming  ProgramStatus = "upcoming"
	ProgramActive    ProgramStatus = "active"
	ProgramCompleted ProgramStatus = "completed"
)

// Program is a time-bounded mentorship cohort. It is owned collectively by its managers.
type Program struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name           string               `bson:"name" json:"name"`
	Description    string               `bson:"description" json:"description"`
	ManagerIDs     []primitive.ObjectID `bson:"manager_ids" json:"managerIds"`
	ParticipantIDs []primitive.ObjectID `bson:"participant_ids" json:"participantIds"`
	StartDate      time.Time            `bson:"start_date" json:"startDate"`
	EndDate        time.Time            `bson:"end_date" json:"endDate"`
	Status         ProgramStatus        `bson:"status" json:"status"`
	ArchivedAt     *time.Time           `bson:"archived_at,omitempty" json:"archivedAt,omitempty"`
	CreatedBy      primitive.ObjectID   `bson:"created_by" json:"createdBy"`
	CreatedAt      time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time            `bson:"updated_at" json:"updatedAt"`
}

// StatusAt derives the program status from its date range. Archived programs are completed.
func (p *Program) StatusAt(now time.Time) ProgramStatus {
	switch {
	case p.ArchivedAt != nil:
		return ProgramCompleted
	case now.Before(p.StartDate):
		return ProgramUpcoming
	case now.After(p.EndDate):
		return ProgramCompleted
	default:
		return ProgramActive
	}
}

// RefreshStatus overwrites Status with the derived value.
func (p *Program) RefreshStatus(now time.Time) {
	p.Status = p.StatusAt(now)
}
