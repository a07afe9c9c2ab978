package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AssignmentType string

const (
	AssignmentSelfCreated     AssignmentType = "self_created"
	AssignmentManagerAssigned AssignmentType = "manager_assigned"
	AssignmentTemplateBased   AssignmentType = "template_based"
	AssignmentBulkAssigned    AssignmentType = "bulk_assigned"
)

// AssignmentState is derived from AssignmentInfo, it is never stored.
type AssignmentState string

const (
	AssignmentStateNone      AssignmentState = "none"
	AssignmentStateAssigned  AssignmentState = "assigned"
	AssignmentStateAccepted  AssignmentState = "accepted"
	AssignmentStateDeclined  AssignmentState = "declined"
	AssignmentStateResponded AssignmentState = "responded"
)

// AssignmentInfo is present on milestones created by someone other than the owner.
type AssignmentInfo struct {
	AssignedBy      primitive.ObjectID  `bson:"assigned_by" json:"assignedBy"`
	AssignedAt      time.Time           `bson:"assigned_at" json:"assignedAt"`
	AssignmentType  AssignmentType      `bson:"assignment_type" json:"assignmentType"`
	TemplateID      *primitive.ObjectID `bson:"template_id,omitempty" json:"templateId,omitempty"`
	IsRequired      bool                `bson:"is_required" json:"isRequired"`
	CanDecline      bool                `bson:"can_decline" json:"canDecline"`
	AcceptedAt      *time.Time          `bson:"accepted_at,omitempty" json:"acceptedAt,omitempty"`
	DeclineReason   string              `bson:"decline_reason,omitempty" json:"declineReason,omitempty"`
	DeclinedAt      *time.Time          `bson:"declined_at,omitempty" json:"declinedAt,omitempty"`
	ManagerResponse *ManagerResponse    `bson:"manager_response,omitempty" json:"managerResponse,omitempty"`
}

// ManagerResponse is a manager's answer to a declined assignment.
type ManagerResponse struct {
	Accepted    bool               `bson:"accepted" json:"accepted"`
	Comment     string             `bson:"comment" json:"comment"`
	RespondedBy primitive.ObjectID `bson:"responded_by" json:"respondedBy"`
	RespondedAt time.Time          `bson:"responded_at" json:"respondedAt"`
}

// State reports where the assignment is in the assign/accept/decline flow. A nil receiver
// or a self-created milestone has no assignment state. Assignments that cannot be declined
// count as accepted.
func (a *AssignmentInfo) State() AssignmentState {
	switch {
	case a == nil || a.AssignmentType == AssignmentSelfCreated:
		return AssignmentStateNone
	case a.DeclinedAt != nil && a.ManagerResponse != nil:
		return AssignmentStateResponded
	case a.DeclinedAt != nil:
		return AssignmentStateDeclined
	case a.AcceptedAt != nil || !a.CanDecline:
		return AssignmentStateAccepted
	default:
		return AssignmentStateAssigned
	}
}
