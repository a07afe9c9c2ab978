// Package export builds program and participant reports and renders them as JSON, CSV or
// printable HTML.
package export

import (
	"math"
	"time"

	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MilestoneStats struct {
	Total          int `json:"total"`
	Completed      int `json:"completed"`
	InProgress     int `json:"inProgress"`
	NotStarted     int `json:"notStarted"`
	Paused         int `json:"paused"`
	CompletionRate int `json:"completionRate"`
}

func (s *MilestoneStats) add(status models.MilestoneStatus) {
	s.Total++
	switch status {
	case models.MilestoneCompleted:
		s.Completed++
	case models.MilestoneInProgress:
		s.InProgress++
	case models.MilestonePaused:
		s.Paused++
	default:
		s.NotStarted++
	}
}

func (s *MilestoneStats) finish() {
	if s.Total > 0 {
		s.CompletionRate = int(math.Round(float64(s.Completed) / float64(s.Total) * 100))
	}
}

type FinancialStats struct {
	TotalBudget float64 `json:"totalBudget"`
	TotalSpent  float64 `json:"totalSpent"`
	Remaining   float64 `json:"remaining"`
	Utilization int     `json:"utilization"`
}

// Row is one participant line of a report.
type Row struct {
	UserID      primitive.ObjectID `json:"userId"`
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	Milestones  MilestoneStats     `json:"milestones"`
	Budget      float64            `json:"budget"`
	Spent       float64            `json:"spent"`
	Remaining   float64            `json:"remaining"`
	Utilization int                `json:"utilization"`
	LastActive  *time.Time         `json:"lastActive,omitempty"`
}

// ProgramReport aggregates participants' milestones and active cycles. Program is nil for a
// single participant's self-export.
type ProgramReport struct {
	Program      *models.Program `json:"program,omitempty"`
	Title        string          `json:"title"`
	GeneratedAt  time.Time       `json:"generatedAt"`
	Participants int             `json:"participants"`
	Milestones   MilestoneStats  `json:"milestones"`
	Financial    FinancialStats  `json:"financial"`
	Rows         []Row           `json:"rows"`
}

// Build assembles a report. Only active cycles count towards the financial totals.
func Build(program *models.Program, users []models.User, milestones []models.Milestone, cycles []models.BalanceSheetCycle, now time.Time) *ProgramReport {
	report := &ProgramReport{
		Program:      program,
		GeneratedAt:  now,
		Participants: len(users),
		Rows:         make([]Row, 0, len(users)),
	}
	switch {
	case program != nil:
		report.Title = program.Name
	case len(users) == 1:
		report.Title = users[0].Name
	default:
		report.Title = "Report"
	}

	byUser := make(map[primitive.ObjectID][]models.Milestone, len(users))
	for _, m := range milestones {
		byUser[m.UserID] = append(byUser[m.UserID], m)
	}
	activeCycle := make(map[primitive.ObjectID]*models.BalanceSheetCycle, len(users))
	for i := range cycles {
		if cycles[i].IsActive {
			activeCycle[cycles[i].UserID] = &cycles[i]
		}
	}

	var totalBudget, totalSpent float64
	for _, u := range users {
		row := Row{UserID: u.ID, Name: u.Name, Email: u.Email}
		if !u.LastActiveAt.IsZero() {
			last := u.LastActiveAt
			row.LastActive = &last
		}
		for _, m := range byUser[u.ID] {
			row.Milestones.add(m.Status)
			report.Milestones.add(m.Status)
		}
		row.Milestones.finish()

		if c, ok := activeCycle[u.ID]; ok {
			sum := c.Summary()
			row.Budget, row.Spent, row.Remaining, row.Utilization = sum.Budget, sum.TotalSpent, sum.Remaining, sum.Utilization
			totalBudget += c.Budget
			for _, e := range c.Expenses {
				totalSpent += e.Amount
			}
		}
		report.Rows = append(report.Rows, row)
	}
	report.Milestones.finish()

	sum := models.NewBudgetSummary(totalBudget, totalSpent)
	report.Financial = FinancialStats{
		TotalBudget: sum.Budget,
		TotalSpent:  sum.TotalSpent,
		Remaining:   sum.Remaining,
		Utilization: sum.Utilization,
	}
	return report
}
