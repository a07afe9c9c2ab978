package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Audit actions recorded for manager or admin changes to participant-owned data.
const (
	ActionAddExpense      = "ADD_EXPENSE"
	ActionEditExpense     = "EDIT_EXPENSE"
	ActionDeleteExpense   = "DELETE_EXPENSE"
	ActionStartCycle      = "START_CYCLE"
	ActionDeleteCycle     = "DELETE_CYCLE"
	ActionAssignMilestone = "ASSIGN_MILESTONE"
	ActionEditMilestone   = "EDIT_MILESTONE"
	ActionDeleteMilestone = "DELETE_MILESTONE"
	ActionRespondDecline  = "RESPOND_DECLINE"
	ActionProvideFeedback = "PROVIDE_FEEDBACK"
)

// MaxAuditEntries caps the global audit log; the oldest entries are dropped first.
const MaxAuditEntries = 1000

// AuditLogEntry is an immutable record. UserID is the actor, TargetID the affected user.
type AuditLogEntry struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID  `bson:"user_id" json:"userId"`
	Action    string              `bson:"action" json:"action"`
	TargetID  primitive.ObjectID  `bson:"target_id" json:"targetId"`
	ProgramID *primitive.ObjectID `bson:"program_id,omitempty" json:"programId,omitempty"`
	Details   map[string]any      `bson:"details" json:"details"`
	Timestamp time.Time           `bson:"timestamp" json:"timestamp"`
}
