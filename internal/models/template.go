package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MilestoneTemplate is a reusable milestone definition managers assign from.
type MilestoneTemplate struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title        string              `bson:"title" json:"title"`
	Description  string              `bson:"description" json:"description"`
	Category     string              `bson:"category" json:"category"`
	DurationDays int                 `bson:"duration_days" json:"durationDays"`
	IsRequired   bool                `bson:"is_required" json:"isRequired"`
	CanDecline   bool                `bson:"can_decline" json:"canDecline"`
	ProgramID    *primitive.ObjectID `bson:"program_id,omitempty" json:"programId,omitempty"`
	CreatedBy    primitive.ObjectID  `bson:"created_by" json:"createdBy"`
	CreatedAt    time.Time           `bson:"created_at" json:"createdAt"`
}
