package services

import (
	"context"
	"fmt"
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

// MilestoneService owns milestone CRUD, the assign/accept/decline workflow and progress
// reports with manager feedback.
type MilestoneService struct {
	repo      repository.MilestoneStore
	templates repository.TemplateStore
	programs  repository.ProgramStore
	users     repository.UserStore
	rel       relations
	notifier  Notifier
	audit     audit.Logger
	now       clock
}

func NewMilestoneService(
	repo repository.MilestoneStore,
	templates repository.TemplateStore,
	programs repository.ProgramStore,
	users repository.UserStore,
	notifier Notifier,
	auditLogger audit.Logger,
) *MilestoneService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if auditLogger == nil {
		auditLogger = audit.Discard{}
	}
	return &MilestoneService{
		repo:      repo,
		templates: templates,
		programs:  programs,
		users:     users,
		rel:       relations{programs: programs},
		notifier:  notifier,
		audit:     auditLogger,
		now:       time.Now,
	}
}

type MilestoneInput struct {
	ProgramID   *primitive.ObjectID    `json:"programId,omitempty"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Category    string                 `json:"category"`
	StartDate   time.Time              `json:"startDate"`
	EndDate     time.Time              `json:"endDate"`
	Status      models.MilestoneStatus `json:"status"`
}

func (in *MilestoneInput) validate() error {
	in.Title = sanitize.Text(in.Title)
	in.Description = sanitize.Text(in.Description)
	if in.Title == "" {
		return invalidf("milestone title is required")
	}
	category, err := normalizeCategory(in.Category)
	if err != nil {
		return err
	}
	in.Category = category
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return invalidf("start and end dates are required")
	}
	if in.EndDate.Before(in.StartDate) {
		return invalidf("end date must not be before start date")
	}
	if in.Status == "" {
		in.Status = models.MilestoneNotStarted
	}
	if !models.ValidMilestoneStatus(in.Status) {
		return invalidf("unknown status %q", in.Status)
	}
	return nil
}

// CreateMilestone creates a self-created milestone for the actor.
func (s *MilestoneService) CreateMilestone(ctx context.Context, actor *models.User, in MilestoneInput) (*models.Milestone, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.ProgramID != nil && !models.ContainsID(actor.ProgramIDs, *in.ProgramID) {
		return nil, invalidf("you are not enrolled in that program")
	}

	m := &models.Milestone{
		UserID:          actor.ID,
		ProgramID:       in.ProgramID,
		Title:           in.Title,
		Description:     in.Description,
		Category:        in.Category,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		Status:          in.Status,
		ProgressReports: []models.ProgressReport{},
	}
	created, err := s.repo.CreateMilestone(ctx, m)
	if err != nil {
		logger.Log.WithError(err).Error("Service failed to create milestone")
		return nil, storeErr(err, "milestone")
	}
	logger.Log.WithField("milestone_id", created.ID.Hex()).Info("Milestone created in service layer")
	return created, nil
}

// GetMilestones lists the milestones owned by userID.
func (s *MilestoneService) GetMilestones(ctx context.Context, actor *models.User, userID primitive.ObjectID) ([]models.Milestone, error) {
	programs, err := s.rel.of(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !permissions.CanViewMilestones(actor, userID, programs) {
		return nil, forbiddenf("cannot view these milestones")
	}
	milestones, err := s.repo.GetMilestonesByUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "milestones")
	}
	return milestones, nil
}

func (s *MilestoneService) GetMilestone(ctx context.Context, actor *models.User, id primitive.ObjectID) (*models.Milestone, error) {
	m, programs, err := s.loadWithPrograms(ctx, id)
	if err != nil {
		return nil, err
	}
	if !permissions.CanViewMilestones(actor, m.UserID, programs) {
		return nil, forbiddenf("cannot view this milestone")
	}
	return m, nil
}

func (s *MilestoneService) loadWithPrograms(ctx context.Context, id primitive.ObjectID) (*models.Milestone, []models.Program, error) {
	m, err := s.repo.GetMilestoneByID(ctx, id)
	if err != nil {
		return nil, nil, storeErr(err, "milestone")
	}
	programs, err := s.rel.of(ctx, m.UserID)
	if err != nil {
		return nil, nil, err
	}
	return m, programs, nil
}

// loadForEdit loads a milestone the actor may edit: the owner, or someone passing the
// milestone edit rule.
func (s *MilestoneService) loadForEdit(ctx context.Context, actor *models.User, id primitive.ObjectID) (*models.Milestone, []models.Program, error) {
	m, programs, err := s.loadWithPrograms(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !permissions.CanEditMilestones(actor, m.UserID, programs) {
		logger.Log.WithFields(logrus.Fields{
			"milestone_id": id.Hex(),
			"user_id":      actor.ID.Hex(),
		}).Warn("Milestone edit denied")
		return nil, nil, forbiddenf("cannot edit this milestone")
	}
	return m, programs, nil
}

// milestoneProgram prefers the milestone's own program for audit stamping.
func milestoneProgram(actor *models.User, m *models.Milestone, programs []models.Program) *primitive.ObjectID {
	if m.ProgramID != nil {
		return m.ProgramID
	}
	return auditProgram(actor, m.UserID, programs)
}

// UpdateMilestone replaces the editable fields. Manager edits are audited.
func (s *MilestoneService) UpdateMilestone(ctx context.Context, actor *models.User, id primitive.ObjectID, in MilestoneInput) (*models.Milestone, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	m, programs, err := s.loadForEdit(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if in.ProgramID != nil && !sameID(m.ProgramID, in.ProgramID) {
		if m.AssignmentInfo != nil {
			return nil, conflictf("the program of an assigned milestone cannot change")
		}
		if !programsContain(programs, *in.ProgramID) {
			return nil, invalidf("owner is not enrolled in that program")
		}
	}

	before := map[string]any{"title": m.Title, "status": string(m.Status), "endDate": m.EndDate}
	m.Title = in.Title
	m.Description = in.Description
	m.Category = in.Category
	m.StartDate = in.StartDate
	m.EndDate = in.EndDate
	m.Status = in.Status
	if in.ProgramID != nil {
		m.ProgramID = in.ProgramID
	}

	if err := s.repo.UpdateMilestone(ctx, m); err != nil {
		logger.Log.WithField("milestone_id", id.Hex()).WithError(err).Error("Failed to update milestone")
		return nil, storeErr(err, "milestone")
	}

	if isCrossUser(actor, m.UserID) {
		s.audit.Log(ctx, actor.ID, models.ActionEditMilestone, m.UserID, withProgram(map[string]any{
			"milestoneId": m.ID.Hex(),
			"before":      before,
			"after":       map[string]any{"title": m.Title, "status": string(m.Status), "endDate": m.EndDate},
		}, milestoneProgram(actor, m, programs)))
	}
	logger.Log.WithField("milestone_id", id.Hex()).Info("Milestone updated successfully in service layer")
	return m, nil
}

// UpdateMilestoneStatus changes only the status.
func (s *MilestoneService) UpdateMilestoneStatus(ctx context.Context, actor *models.User, id primitive.ObjectID, status models.MilestoneStatus) (*models.Milestone, error) {
	if !models.ValidMilestoneStatus(status) {
		return nil, invalidf("unknown status %q", status)
	}
	m, programs, err := s.loadForEdit(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	old := m.Status
	m.Status = status
	if err := s.repo.UpdateMilestone(ctx, m); err != nil {
		return nil, storeErr(err, "milestone")
	}
	if isCrossUser(actor, m.UserID) {
		s.audit.Log(ctx, actor.ID, models.ActionEditMilestone, m.UserID, withProgram(map[string]any{
			"milestoneId": m.ID.Hex(),
			"oldStatus":   string(old),
			"newStatus":   string(status),
		}, milestoneProgram(actor, m, programs)))
	}
	return m, nil
}

// DeleteMilestone hard-deletes a milestone together with its progress reports.
func (s *MilestoneService) DeleteMilestone(ctx context.Context, actor *models.User, id primitive.ObjectID) error {
	m, programs, err := s.loadForEdit(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteMilestone(ctx, id); err != nil {
		logger.Log.WithField("milestone_id", id.Hex()).WithError(err).Error("Failed to delete milestone")
		return storeErr(err, "milestone")
	}
	if isCrossUser(actor, m.UserID) {
		s.audit.Log(ctx, actor.ID, models.ActionDeleteMilestone, m.UserID, withProgram(map[string]any{
			"milestoneId": m.ID.Hex(),
			"title":       m.Title,
			"reports":     len(m.ProgressReports),
		}, milestoneProgram(actor, m, programs)))
	}
	logger.Log.WithField("milestone_id", id.Hex()).Info("Milestone deleted successfully in service layer")
	return nil
}

// ---- assignment workflow ----

// AssignRequest creates one milestone per participant. Fields left empty are taken from
// the template when one is given. Nil flags default to the template's, or to an optional
// assignment that can be declined.
type AssignRequest struct {
	ParticipantIDs []primitive.ObjectID `json:"participantIds"`
	ProgramID      *primitive.ObjectID  `json:"programId,omitempty"`
	TemplateID     *primitive.ObjectID  `json:"templateId,omitempty"`
	Title          string               `json:"title"`
	Description    string               `json:"description"`
	Category       string               `json:"category"`
	StartDate      time.Time            `json:"startDate"`
	EndDate        time.Time            `json:"endDate"`
	IsRequired     *bool                `json:"isRequired,omitempty"`
	CanDecline     *bool                `json:"canDecline,omitempty"`
}

type AssignFailure struct {
	UserID primitive.ObjectID `json:"userId"`
	Error  string             `json:"error"`
}

// AssignResult reports each participant independently; there is no batch rollback.
type AssignResult struct {
	Created []models.Milestone `json:"created"`
	Failed  []AssignFailure    `json:"failed"`
}

// AssignMilestone assigns a milestone to one or more participants.
func (s *MilestoneService) AssignMilestone(ctx context.Context, actor *models.User, req AssignRequest) (*AssignResult, error) {
	participants := uniqueIDs(req.ParticipantIDs)
	if len(participants) == 0 {
		return nil, invalidf("at least one participant is required")
	}

	if req.ProgramID != nil && !permissions.CanManageProgram(actor, *req.ProgramID) {
		return nil, forbiddenf("cannot assign milestones within that program")
	}

	in, isRequired, canDecline, err := s.resolveAssignment(ctx, req)
	if err != nil {
		return nil, err
	}

	assignmentType := models.AssignmentManagerAssigned
	switch {
	case len(participants) > 1:
		assignmentType = models.AssignmentBulkAssigned
	case req.TemplateID != nil:
		assignmentType = models.AssignmentTemplateBased
	}

	result := &AssignResult{Created: []models.Milestone{}, Failed: []AssignFailure{}}
	for _, pid := range participants {
		m, err := s.assignOne(ctx, actor, pid, req, in, assignmentType, isRequired, canDecline)
		if err != nil {
			logger.Log.WithFields(logrus.Fields{
				"participant_id": pid.Hex(),
				"error":          err,
			}).Warn("Milestone assignment failed for participant")
			result.Failed = append(result.Failed, AssignFailure{UserID: pid, Error: err.Error()})
			continue
		}
		result.Created = append(result.Created, *m)
	}

	logger.Log.WithFields(logrus.Fields{
		"created": len(result.Created),
		"failed":  len(result.Failed),
		"type":    assignmentType,
	}).Info("Milestone assignment finished")
	return result, nil
}

func (s *MilestoneService) resolveAssignment(ctx context.Context, req AssignRequest) (MilestoneInput, bool, bool, error) {
	in := MilestoneInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      models.MilestoneNotStarted,
	}
	isRequired, canDecline := false, true

	if req.TemplateID != nil {
		tmpl, err := s.templates.GetTemplateByID(ctx, *req.TemplateID)
		if err != nil {
			return in, false, false, storeErr(err, "template")
		}
		if in.Title == "" {
			in.Title = tmpl.Title
		}
		if in.Description == "" {
			in.Description = tmpl.Description
		}
		if in.Category == "" {
			in.Category = tmpl.Category
		}
		if in.StartDate.IsZero() {
			in.StartDate = s.now()
		}
		if in.EndDate.IsZero() {
			in.EndDate = in.StartDate.AddDate(0, 0, tmpl.DurationDays)
		}
		isRequired, canDecline = tmpl.IsRequired, tmpl.CanDecline
	}
	if req.IsRequired != nil {
		isRequired = *req.IsRequired
	}
	if req.CanDecline != nil {
		canDecline = *req.CanDecline
	}

	if err := in.validate(); err != nil {
		return in, false, false, err
	}
	return in, isRequired, canDecline, nil
}

func (s *MilestoneService) assignOne(
	ctx context.Context,
	actor *models.User,
	participantID primitive.ObjectID,
	req AssignRequest,
	in MilestoneInput,
	assignmentType models.AssignmentType,
	isRequired, canDecline bool,
) (*models.Milestone, error) {
	programs, err := s.rel.of(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if !permissions.CanAssignMilestones(actor, participantID, programs) {
		return nil, forbiddenf("cannot assign milestones to this participant")
	}

	programID := req.ProgramID
	if programID != nil && !programsContain(programs, *programID) {
		return nil, invalidf("participant is not enrolled in that program")
	}
	if programID == nil {
		programID = auditProgram(actor, participantID, programs)
	}

	now := s.now()
	m := &models.Milestone{
		UserID:          participantID,
		ProgramID:       programID,
		Title:           in.Title,
		Description:     in.Description,
		Category:        in.Category,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		Status:          models.MilestoneNotStarted,
		ProgressReports: []models.ProgressReport{},
		AssignmentInfo: &models.AssignmentInfo{
			AssignedBy:     actor.ID,
			AssignedAt:     now,
			AssignmentType: assignmentType,
			TemplateID:     req.TemplateID,
			IsRequired:     isRequired,
			CanDecline:     canDecline,
		},
	}
	created, err := s.repo.CreateMilestone(ctx, m)
	if err != nil {
		return nil, storeErr(err, "milestone")
	}

	s.notifier.Notify(ctx, participantID, models.NotificationAssignment,
		"New milestone assigned",
		fmt.Sprintf("%s assigned you a new milestone: %q", actor.Name, created.Title),
		map[string]any{"milestoneId": created.ID.Hex(), "assignedBy": actor.ID.Hex()},
	)
	if isCrossUser(actor, participantID) {
		s.audit.Log(ctx, actor.ID, models.ActionAssignMilestone, participantID, withProgram(map[string]any{
			"milestoneId":    created.ID.Hex(),
			"title":          created.Title,
			"assignmentType": string(assignmentType),
		}, programID))
	}
	return created, nil
}

func programsContain(programs []models.Program, id primitive.ObjectID) bool {
	for i := range programs {
		if programs[i].ID == id {
			return true
		}
	}
	return false
}

func sameID(a, b *primitive.ObjectID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func uniqueIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if !id.IsZero() {
			out = models.AddID(out, id)
		}
	}
	return out
}

// loadOwned loads an assigned milestone and checks that the actor owns it.
func (s *MilestoneService) loadOwned(ctx context.Context, actor *models.User, id primitive.ObjectID) (*models.Milestone, error) {
	m, err := s.repo.GetMilestoneByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "milestone")
	}
	if m.UserID != actor.ID {
		return nil, forbiddenf("only the milestone owner can do this")
	}
	return m, nil
}

// AcceptMilestone records the owner's acceptance and starts the milestone.
func (s *MilestoneService) AcceptMilestone(ctx context.Context, actor *models.User, id primitive.ObjectID) (*models.Milestone, error) {
	m, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	info := m.AssignmentInfo
	switch info.State() {
	case models.AssignmentStateAssigned:
	case models.AssignmentStateAccepted:
		if info.AcceptedAt != nil {
			return nil, conflictf("milestone already accepted")
		}
	case models.AssignmentStateNone:
		return nil, conflictf("milestone was not assigned")
	default:
		return nil, conflictf("milestone was declined")
	}

	now := s.now()
	info.AcceptedAt = &now
	if m.Status == models.MilestoneNotStarted {
		m.Status = models.MilestoneInProgress
	}
	if err := s.repo.UpdateMilestone(ctx, m); err != nil {
		return nil, storeErr(err, "milestone")
	}
	logger.Log.WithField("milestone_id", id.Hex()).Info("Assignment accepted")
	return m, nil
}

// DeclineMilestone records the owner's refusal. The milestone status is left untouched so
// the decline stays visible to managers.
func (s *MilestoneService) DeclineMilestone(ctx context.Context, actor *models.User, id primitive.ObjectID, reason string) (*models.Milestone, error) {
	m, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	info := m.AssignmentInfo
	if info.State() == models.AssignmentStateNone {
		return nil, conflictf("milestone was not assigned")
	}
	if !info.CanDecline {
		logger.Log.WithField("milestone_id", id.Hex()).Warn("Decline attempted on non-declinable assignment")
		return nil, conflictf("this assignment cannot be declined")
	}
	reason = sanitize.Text(reason)
	if reason == "" {
		return nil, invalidf("a reason is required to decline")
	}
	if info.State() != models.AssignmentStateAssigned {
		return nil, conflictf("assignment is no longer pending")
	}

	now := s.now()
	info.DeclineReason = reason
	info.DeclinedAt = &now
	if err := s.repo.UpdateMilestone(ctx, m); err != nil {
		return nil, storeErr(err, "milestone")
	}

	for _, managerID := range s.declineRecipients(ctx, m) {
		s.notifier.Notify(ctx, managerID, models.NotificationDecline,
			"Milestone declined",
			fmt.Sprintf("%s declined %q: %s", actor.Name, m.Title, reason),
			map[string]any{"milestoneId": m.ID.Hex(), "participantId": actor.ID.Hex()},
		)
	}
	logger.Log.WithField("milestone_id", id.Hex()).Info("Assignment declined")
	return m, nil
}

// declineRecipients fans out to every manager of the milestone's program, falling back to
// the assigner when the milestone has no program.
func (s *MilestoneService) declineRecipients(ctx context.Context, m *models.Milestone) []primitive.ObjectID {
	if m.ProgramID != nil {
		program, err := s.programs.GetProgramByID(ctx, *m.ProgramID)
		if err == nil && len(program.ManagerIDs) > 0 {
			return program.ManagerIDs
		}
		if err != nil {
			logger.Log.WithError(err).WithField("program_id", m.ProgramID.Hex()).Warn("Could not load program for decline fan-out")
		}
	}
	return []primitive.ObjectID{m.AssignmentInfo.AssignedBy}
}

// RespondToDecline records a manager's answer to a declined assignment.
func (s *MilestoneService) RespondToDecline(ctx context.Context, actor *models.User, id primitive.ObjectID, accepted bool, comment string) (*models.Milestone, error) {
	m, programs, err := s.loadWithPrograms(ctx, id)
	if err != nil {
		return nil, err
	}
	if !permissions.CanAssignMilestones(actor, m.UserID, programs) {
		return nil, forbiddenf("cannot respond for this participant")
	}
	if m.AssignmentInfo.State() != models.AssignmentStateDeclined {
		return nil, conflictf("milestone is not awaiting a decline response")
	}

	comment = sanitize.Text(comment)
	m.AssignmentInfo.ManagerResponse = &models.ManagerResponse{
		Accepted:    accepted,
		Comment:     comment,
		RespondedBy: actor.ID,
		RespondedAt: s.now(),
	}
	if err := s.repo.UpdateMilestone(ctx, m); err != nil {
		return nil, storeErr(err, "milestone")
	}

	verdict := "asked you to reconsider"
	if accepted {
		verdict = "accepted your decline of"
	}
	s.notifier.Notify(ctx, m.UserID, models.NotificationGeneral,
		"Response to your decline",
		fmt.Sprintf("%s %s %q", actor.Name, verdict, m.Title),
		map[string]any{"milestoneId": m.ID.Hex(), "accepted": accepted},
	)
	if isCrossUser(actor, m.UserID) {
		s.audit.Log(ctx, actor.ID, models.ActionRespondDecline, m.UserID, withProgram(map[string]any{
			"milestoneId": m.ID.Hex(),
			"accepted":    accepted,
			"comment":     comment,
		}, milestoneProgram(actor, m, programs)))
	}
	return m, nil
}

// ---- progress reports ----

type ReportInput struct {
	WeekNumber int    `json:"weekNumber"`
	Summary    string `json:"summary"`
	Challenges string `json:"challenges"`
	NextSteps  string `json:"nextSteps"`
}

// SubmitProgressReport adds the owner's weekly report. Week numbers are unique per milestone.
func (s *MilestoneService) SubmitProgressReport(ctx context.Context, actor *models.User, id primitive.ObjectID, in ReportInput) (*models.ProgressReport, error) {
	if in.WeekNumber < 1 {
		return nil, invalidf("week number must be at least 1")
	}
	in.Summary = sanitize.Text(in.Summary)
	if in.Summary == "" {
		return nil, invalidf("summary is required")
	}

	m, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if m.ReportForWeek(in.WeekNumber) >= 0 {
		return nil, conflictf("a report for week %d already exists", in.WeekNumber)
	}

	report := models.ProgressReport{
		ID:          primitive.NewObjectID(),
		WeekNumber:  in.WeekNumber,
		Summary:     in.Summary,
		Challenges:  sanitize.Text(in.Challenges),
		NextSteps:   sanitize.Text(in.NextSteps),
		SubmittedAt: s.now(),
	}
	m.ProgressReports = append(m.ProgressReports, report)
	if err := s.repo.UpdateMilestone(ctx, m); err != nil {
		return nil, storeErr(err, "milestone")
	}
	logger.Log.WithFields(logrus.Fields{
		"milestone_id": id.Hex(),
		"week":         in.WeekNumber,
	}).Info("Progress report submitted")
	return &report, nil
}

// AddFeedback appends manager feedback to the report for weekNumber.
func (s *MilestoneService) AddFeedback(ctx context.Context, actor *models.User, id primitive.ObjectID, weekNumber int, text string) (*models.ProgressReport, error) {
	text = sanitize.Text(text)
	if text == "" {
		return nil, invalidf("feedback text is required")
	}
	m, programs, err := s.loadWithPrograms(ctx, id)
	if err != nil {
		return nil, err
	}
	if !permissions.CanProvideFeedback(actor, m.UserID, programs) {
		return nil, forbiddenf("cannot give feedback on this milestone")
	}
	idx := m.ReportForWeek(weekNumber)
	if idx < 0 {
		return nil, fmt.Errorf("report for week %d: %w", weekNumber, ErrNotFound)
	}

	report := &m.ProgressReports[idx]
	report.ManagerFeedback = append(report.ManagerFeedback, models.ManagerFeedback{
		ManagerID:    actor.ID,
		Feedback:     text,
		FeedbackDate: s.now(),
	})
	if err := s.repo.UpdateMilestone(ctx, m); err != nil {
		return nil, storeErr(err, "milestone")
	}

	s.notifier.Notify(ctx, m.UserID, models.NotificationFeedback,
		"New feedback on your progress",
		fmt.Sprintf("%s left feedback on week %d of %q", actor.Name, weekNumber, m.Title),
		map[string]any{"milestoneId": m.ID.Hex(), "weekNumber": weekNumber},
	)
	if isCrossUser(actor, m.UserID) {
		s.audit.Log(ctx, actor.ID, models.ActionProvideFeedback, m.UserID, withProgram(map[string]any{
			"milestoneId": m.ID.Hex(),
			"weekNumber":  weekNumber,
			"feedback":    text,
		}, milestoneProgram(actor, m, programs)))
	}
	out := *report
	return &out, nil
}

// PendingDeclines lists declined assignments without a manager response across the
// participants the actor can assign to.
func (s *MilestoneService) PendingDeclines(ctx context.Context, actor *models.User, programID primitive.ObjectID) ([]models.Milestone, error) {
	if !permissions.CanManageProgram(actor, programID) {
		return nil, forbiddenf("cannot manage this program")
	}
	program, err := s.programs.GetProgramByID(ctx, programID)
	if err != nil {
		return nil, storeErr(err, "program")
	}
	all, err := s.repo.GetMilestonesByUsers(ctx, program.ParticipantIDs)
	if err != nil {
		return nil, storeErr(err, "milestones")
	}
	out := []models.Milestone{}
	for _, m := range all {
		if m.AssignmentInfo.State() == models.AssignmentStateDeclined {
			out = append(out, m)
		}
	}
	return out, nil
}
