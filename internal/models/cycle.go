package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BalanceSheetCycle is a budget period for one participant. At most one cycle per user is active.
type BalanceSheetCycle struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"userId"`
	StartDate time.Time          `bson:"start_date" json:"startDate"`
	EndDate   time.Time          `bson:"end_date" json:"endDate"`
	Budget    float64            `bson:"budget" json:"budget"`
	Expenses  []Expense          `bson:"expenses" json:"expenses"`
	IsActive  bool               `bson:"is_active" json:"isActive"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}

type Expense struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	Date       time.Time          `bson:"date" json:"date"`
	Item       string             `bson:"item" json:"item"`
	Amount     float64            `bson:"amount" json:"amount"`
	ReceiptURL string             `bson:"receipt_url,omitempty" json:"receiptUrl,omitempty"`
	Contact    string             `bson:"contact,omitempty" json:"contact,omitempty"`
	Remarks    string             `bson:"remarks,omitempty" json:"remarks,omitempty"`
}

// ExpenseIndex returns the position of the expense with id, or -1.
func (c *BalanceSheetCycle) ExpenseIndex(id primitive.ObjectID) int {
	for i := range c.Expenses {
		if c.Expenses[i].ID == id {
			return i
		}
	}
	return -1
}

// BudgetSummary is the derived spending view of a cycle.
type BudgetSummary struct {
	Budget      float64 `json:"budget"`
	TotalSpent  float64 `json:"totalSpent"`
	Remaining   float64 `json:"remaining"`
	Utilization int     `json:"utilization"`
}

// Summary totals the expenses. Amounts are rounded to cents and utilization to a whole percent.
func (c *BalanceSheetCycle) Summary() BudgetSummary {
	var spent float64
	for _, e := range c.Expenses {
		spent += e.Amount
	}
	return NewBudgetSummary(c.Budget, spent)
}

// NewBudgetSummary derives remaining and utilization from a budget and an amount spent.
func NewBudgetSummary(budget, spent float64) BudgetSummary {
	s := BudgetSummary{
		Budget:     RoundCents(budget),
		TotalSpent: RoundCents(spent),
		Remaining:  RoundCents(budget - spent),
	}
	if budget > 0 {
		s.Utilization = int(math.Round(spent / budget * 100))
	}
	return s
}

func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
