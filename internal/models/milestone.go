package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MilestoneStatus string

const (
	MilestoneNotStarted MilestoneStatus = "not_started"
	MilestoneInProgress MilestoneStatus = "in_progress"
	MilestonePaused     MilestoneStatus = "paused"
	MilestoneCompleted  MilestoneStatus = "completed"
)

// ValidMilestoneStatus reports whether s is one of the known statuses.
func ValidMilestoneStatus(s MilestoneStatus) bool {
	switch s {
	case MilestoneNotStarted, MilestoneInProgress, MilestonePaused, MilestoneCompleted:
		return true
	}
	return false
}

// AllowedCategories mirrors the categories offered by the client.
var AllowedCategories = map[string]struct{}{
	"education":  {},
	"career":     {},
	"business":   {},
	"financial":  {},
	"health":     {},
	"personal":   {},
	"community":  {},
	"networking": {},
	"skills":     {},
	"other":      {},
}

// Milestone is a goal owned by exactly one participant (UserID).
type Milestone struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID  `bson:"user_id" json:"userId"`
	ProgramID       *primitive.ObjectID `bson:"program_id,omitempty" json:"programId,omitempty"`
	Title           string              `bson:"title" json:"title"`
	Description     string              `bson:"description,omitempty" json:"description,omitempty"`
	Category        string              `bson:"category" json:"category"`
	StartDate       time.Time           `bson:"start_date" json:"startDate"`
	EndDate         time.Time           `bson:"end_date" json:"endDate"`
	Status          MilestoneStatus     `bson:"status" json:"status"`
	ProgressReports []ProgressReport    `bson:"progress_reports" json:"progressReports"`
	AssignmentInfo  *AssignmentInfo     `bson:"assignment_info,omitempty" json:"assignmentInfo,omitempty"`
	CreatedAt       time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updated_at" json:"updatedAt"`
}

// ReportForWeek returns the index of the progress report for week, or -1.
func (m *Milestone) ReportForWeek(week int) int {
	for i := range m.ProgressReports {
		if m.ProgressReports[i].WeekNumber == week {
			return i
		}
	}
	return -1
}

// ProgressReport is a weekly update on a milestone. WeekNumber is unique per milestone.
type ProgressReport struct {
	ID              primitive.ObjectID `bson:"_id" json:"id"`
	WeekNumber      int                `bson:"week_number" json:"weekNumber"`
	Summary         string             `bson:"summary" json:"summary"`
	Challenges      string             `bson:"challenges,omitempty" json:"challenges,omitempty"`
	NextSteps       string             `bson:"next_steps,omitempty" json:"nextSteps,omitempty"`
	SubmittedAt     time.Time          `bson:"submitted_at" json:"submittedAt"`
	ManagerFeedback []ManagerFeedback  `bson:"manager_feedback,omitempty" json:"managerFeedback,omitempty"`
}

// ManagerFeedback entries are append-only.
type ManagerFeedback struct {
	ManagerID    primitive.ObjectID `bson:"manager_id" json:"managerId"`
	Feedback     string             `bson:"feedback" json:"feedback"`
	FeedbackDate time.Time          `bson:"feedback_date" json:"feedbackDate"`
}
