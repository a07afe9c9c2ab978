package services

import (
	"context"
	"errors"
	"time"

	"github.com/goldenbridgewomen/gbw-tracker/internal/audit"
	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"github.com/goldenbridgewomen/gbw-tracker/internal/permissions"
	"github.com/goldenbridgewomen/gbw-tracker/internal/repository"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/logger"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/sanitize"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BalanceService manages balance sheet cycles and their expenses.
type BalanceService struct {
	repo  repository.CycleStore
	rel   relations
	audit audit.Logger
	now   clock
}

func NewBalanceService(repo repository.CycleStore, programs repository.ProgramStore, auditLogger audit.Logger) *BalanceService {
	if auditLogger == nil {
		auditLogger = audit.Discard{}
	}
	return &BalanceService{
		repo:  repo,
		rel:   relations{programs: programs},
		audit: auditLogger,
		now:   time.Now,
	}
}

// CycleView pairs a cycle with its derived budget summary.
type CycleView struct {
	models.BalanceSheetCycle
	Summary models.BudgetSummary `json:"summary"`
}

func viewOf(c *models.BalanceSheetCycle) *CycleView {
	return &CycleView{BalanceSheetCycle: *c, Summary: c.Summary()}
}

type CycleInput struct {
	Budget    float64   `json:"budget"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

type ExpenseInput struct {
	Date       time.Time `json:"date"`
	Item       string    `json:"item"`
	Amount     float64   `json:"amount"`
	ReceiptURL string    `json:"receiptUrl"`
	Contact    string    `json:"contact"`
	Remarks    string    `json:"remarks"`
}

func (in *ExpenseInput) validate() error {
	in.Item = sanitize.Text(in.Item)
	in.Contact = sanitize.Text(in.Contact)
	in.Remarks = sanitize.Text(in.Remarks)
	if in.Item == "" {
		return invalidf("expense item is required")
	}
	if in.Date.IsZero() {
		return invalidf("expense date is required")
	}
	if in.Amount < 0 {
		return invalidf("expense amount must not be negative")
	}
	in.Amount = models.RoundCents(in.Amount)
	return nil
}

func (s *BalanceService) authorize(ctx context.Context, actor *models.User, ownerID primitive.ObjectID, edit bool) ([]models.Program, error) {
	programs, err := s.rel.of(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	allowed := permissions.CanViewFinancialData(actor, ownerID, programs)
	if edit {
		allowed = permissions.CanEditFinancialData(actor, ownerID, programs)
	}
	if !allowed {
		logger.Log.WithFields(logrus.Fields{
			"actor_id": actor.ID.Hex(),
			"user_id":  ownerID.Hex(),
		}).Warn("Financial data access denied")
		return nil, forbiddenf("cannot access this balance sheet")
	}
	return programs, nil
}

// requireReason enforces a non-empty reason on changes made to someone else's data.
func requireReason(actor *models.User, ownerID primitive.ObjectID, reason string) (string, error) {
	reason = sanitize.Text(reason)
	if isCrossUser(actor, ownerID) && reason == "" {
		return "", invalidf("a reason is required when changing another user's data")
	}
	return reason, nil
}

// StartCycle deactivates every earlier cycle of the user and opens a new active one.
func (s *BalanceService) StartCycle(ctx context.Context, actor *models.User, userID primitive.ObjectID, in CycleInput) (*CycleView, error) {
	if in.Budget < 0 {
		return nil, invalidf("budget must not be negative")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return nil, invalidf("start and end dates are required")
	}
	if in.EndDate.Before(in.StartDate) {
		return nil, invalidf("end date must not be before start date")
	}
	programs, err := s.authorize(ctx, actor, userID, true)
	if err != nil {
		return nil, err
	}

	if err := s.repo.DeactivateCycles(ctx, userID); err != nil {
		logger.Log.WithField("user_id", userID.Hex()).WithError(err).Error("Failed to deactivate cycles")
		return nil, storeErr(err, "cycles")
	}
	cycle, err := s.repo.CreateCycle(ctx, &models.BalanceSheetCycle{
		UserID:    userID,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Budget:    models.RoundCents(in.Budget),
		Expenses:  []models.Expense{},
		IsActive:  true,
	})
	if err != nil {
		logger.Log.WithField("user_id", userID.Hex()).WithError(err).Error("Failed to create cycle")
		return nil, storeErr(err, "cycle")
	}

	if isCrossUser(actor, userID) {
		s.audit.Log(ctx, actor.ID, models.ActionStartCycle, userID, withProgram(map[string]any{
			"cycleId": cycle.ID.Hex(),
			"budget":  cycle.Budget,
		}, auditProgram(actor, userID, programs)))
	}
	logger.Log.WithFields(logrus.Fields{
		"cycle_id": cycle.ID.Hex(),
		"user_id":  userID.Hex(),
	}).Info("Balance cycle started")
	return viewOf(cycle), nil
}

// GetCycles returns every cycle of the user, newest first.
func (s *BalanceService) GetCycles(ctx context.Context, actor *models.User, userID primitive.ObjectID) ([]CycleView, error) {
	if _, err := s.authorize(ctx, actor, userID, false); err != nil {
		return nil, err
	}
	cycles, err := s.repo.GetCyclesByUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "cycles")
	}
	out := make([]CycleView, 0, len(cycles))
	for i := range cycles {
		out = append(out, *viewOf(&cycles[i]))
	}
	return out, nil
}

// GetActiveCycle returns nil without error when the user has no active cycle.
func (s *BalanceService) GetActiveCycle(ctx context.Context, actor *models.User, userID primitive.ObjectID) (*CycleView, error) {
	if _, err := s.authorize(ctx, actor, userID, false); err != nil {
		return nil, err
	}
	cycle, err := s.repo.GetActiveCycle(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(err, "cycle")
	}
	return viewOf(cycle), nil
}

func (s *BalanceService) GetCycle(ctx context.Context, actor *models.User, cycleID primitive.ObjectID) (*CycleView, error) {
	cycle, _, err := s.load(ctx, actor, cycleID, false)
	if err != nil {
		return nil, err
	}
	return viewOf(cycle), nil
}

func (s *BalanceService) load(ctx context.Context, actor *models.User, cycleID primitive.ObjectID, edit bool) (*models.BalanceSheetCycle, []models.Program, error) {
	cycle, err := s.repo.GetCycleByID(ctx, cycleID)
	if err != nil {
		return nil, nil, storeErr(err, "cycle")
	}
	programs, err := s.authorize(ctx, actor, cycle.UserID, edit)
	if err != nil {
		return nil, nil, err
	}
	return cycle, programs, nil
}

// AddExpense appends an expense to the cycle.
func (s *BalanceService) AddExpense(ctx context.Context, actor *models.User, cycleID primitive.ObjectID, in ExpenseInput) (*CycleView, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	cycle, programs, err := s.load(ctx, actor, cycleID, true)
	if err != nil {
		return nil, err
	}

	expense := models.Expense{
		ID:         primitive.NewObjectID(),
		Date:       in.Date,
		Item:       in.Item,
		Amount:     in.Amount,
		ReceiptURL: in.ReceiptURL,
		Contact:    in.Contact,
		Remarks:    in.Remarks,
	}
	cycle.Expenses = append(cycle.Expenses, expense)
	if err := s.repo.UpdateCycle(ctx, cycle); err != nil {
		logger.Log.WithField("cycle_id", cycleID.Hex()).WithError(err).Error("Failed to add expense")
		return nil, storeErr(err, "cycle")
	}

	if isCrossUser(actor, cycle.UserID) {
		s.audit.Log(ctx, actor.ID, models.ActionAddExpense, cycle.UserID, withProgram(map[string]any{
			"cycleId": cycle.ID.Hex(),
			"expense": expense,
			"addedBy": actor.Name,
		}, auditProgram(actor, cycle.UserID, programs)))
	}
	logger.Log.WithFields(logrus.Fields{
		"cycle_id":   cycleID.Hex(),
		"expense_id": expense.ID.Hex(),
	}).Info("Expense added")
	return viewOf(cycle), nil
}

// EditExpense replaces an expense. Editing another user's expense requires a reason.
func (s *BalanceService) EditExpense(ctx context.Context, actor *models.User, cycleID, expenseID primitive.ObjectID, in ExpenseInput, reason string) (*CycleView, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	cycle, programs, err := s.load(ctx, actor, cycleID, true)
	if err != nil {
		return nil, err
	}
	reason, err = requireReason(actor, cycle.UserID, reason)
	if err != nil {
		return nil, err
	}
	idx := cycle.ExpenseIndex(expenseID)
	if idx < 0 {
		return nil, storeErr(repository.ErrNotFound, "expense")
	}

	old := cycle.Expenses[idx]
	cycle.Expenses[idx] = models.Expense{
		ID:         old.ID,
		Date:       in.Date,
		Item:       in.Item,
		Amount:     in.Amount,
		ReceiptURL: in.ReceiptURL,
		Contact:    in.Contact,
		Remarks:    in.Remarks,
	}
	if err := s.repo.UpdateCycle(ctx, cycle); err != nil {
		logger.Log.WithField("cycle_id", cycleID.Hex()).WithError(err).Error("Failed to edit expense")
		return nil, storeErr(err, "cycle")
	}

	if isCrossUser(actor, cycle.UserID) {
		s.audit.Log(ctx, actor.ID, models.ActionEditExpense, cycle.UserID, withProgram(map[string]any{
			"cycleId":   cycle.ID.Hex(),
			"expenseId": expenseID.Hex(),
			"oldAmount": old.Amount,
			"newAmount": in.Amount,
			"reason":    reason,
		}, auditProgram(actor, cycle.UserID, programs)))
	}
	return viewOf(cycle), nil
}

// DeleteExpense removes an expense. Deleting another user's expense requires a reason.
func (s *BalanceService) DeleteExpense(ctx context.Context, actor *models.User, cycleID, expenseID primitive.ObjectID, reason string) (*CycleView, error) {
	cycle, programs, err := s.load(ctx, actor, cycleID, true)
	if err != nil {
		return nil, err
	}
	reason, err = requireReason(actor, cycle.UserID, reason)
	if err != nil {
		return nil, err
	}
	idx := cycle.ExpenseIndex(expenseID)
	if idx < 0 {
		return nil, storeErr(repository.ErrNotFound, "expense")
	}

	removed := cycle.Expenses[idx]
	cycle.Expenses = append(cycle.Expenses[:idx], cycle.Expenses[idx+1:]...)
	if err := s.repo.UpdateCycle(ctx, cycle); err != nil {
		logger.Log.WithField("cycle_id", cycleID.Hex()).WithError(err).Error("Failed to delete expense")
		return nil, storeErr(err, "cycle")
	}

	if isCrossUser(actor, cycle.UserID) {
		s.audit.Log(ctx, actor.ID, models.ActionDeleteExpense, cycle.UserID, withProgram(map[string]any{
			"cycleId": cycle.ID.Hex(),
			"expense": removed,
			"reason":  reason,
		}, auditProgram(actor, cycle.UserID, programs)))
	}
	return viewOf(cycle), nil
}

// DeleteCycle removes a cycle with all its expenses.
func (s *BalanceService) DeleteCycle(ctx context.Context, actor *models.User, cycleID primitive.ObjectID, reason string) error {
	cycle, programs, err := s.load(ctx, actor, cycleID, true)
	if err != nil {
		return err
	}
	reason, err = requireReason(actor, cycle.UserID, reason)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteCycle(ctx, cycleID); err != nil {
		logger.Log.WithField("cycle_id", cycleID.Hex()).WithError(err).Error("Failed to delete cycle")
		return storeErr(err, "cycle")
	}

	if isCrossUser(actor, cycle.UserID) {
		summary := cycle.Summary()
		s.audit.Log(ctx, actor.ID, models.ActionDeleteCycle, cycle.UserID, withProgram(map[string]any{
			"cycleId":    cycle.ID.Hex(),
			"budget":     cycle.Budget,
			"totalSpent": summary.TotalSpent,
			"expenses":   len(cycle.Expenses),
			"reason":     reason,
		}, auditProgram(actor, cycle.UserID, programs)))
	}
	logger.Log.WithField("cycle_id", cycleID.Hex()).Info("Balance cycle deleted")
	return nil
}
