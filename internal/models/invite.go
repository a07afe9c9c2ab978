package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	InvitePending  = "pending"
	InviteAccepted = "accepted"
)

// Invite enrols a not-yet-registered email into a program once they sign up.
type Invite struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProgramID  primitive.ObjectID `bson:"program_id" json:"programId"`
	Email      string             `bson:"email" json:"email"`
	InviteCode string             `bson:"invite_code" json:"inviteCode"`
	InvitedBy  primitive.ObjectID `bson:"invited_by" json:"invitedBy"`
	Status     string             `bson:"status" json:"status"`
	CreatedAt  time.Time          `bson:"created_at" json:"createdAt"`
	AcceptedAt *time.Time         `bson:"accepted_at,omitempty" json:"acceptedAt,omitempty"`
}
