package handlers

import (
	"net/http"

	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"github.com/goldenbridgewomen/gbw-tracker/internal/services"
	log "github.com/sirupsen/logrus"
)

// MilestoneHandler handles milestones, assignments and weekly progress reports.
type MilestoneHandler struct {
	Service *services.MilestoneService
}

func NewMilestoneHandler(service *services.MilestoneService) *MilestoneHandler {
	return &MilestoneHandler{Service: service}
}

// CreateMilestoneHandler handles POST /milestones for the caller's own milestone.
func (h *MilestoneHandler) CreateMilestoneHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	var in services.MilestoneInput
	if !decodeJSON(w, r, &in) {
		return
	}
	m, err := h.Service.CreateMilestone(r.Context(), actor, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.WithFields(log.Fields{"milestone_id": m.ID.Hex(), "user_id": actor.ID.Hex()}).Info("Milestone created")
	writeJSON(w, http.StatusCreated, m)
}

// GetUserMilestonesHandler handles GET /users/{id}/milestones.
func (h *MilestoneHandler) GetUserMilestonesHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	milestones, err := h.Service.GetMilestones(r.Context(), actor, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, milestones)
}

// GetMilestoneHandler handles GET /milestones/{id}.
func (h *MilestoneHandler) GetMilestoneHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	m, err := h.Service.GetMilestone(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// UpdateMilestoneHandler handles PUT /milestones/{id}.
func (h *MilestoneHandler) UpdateMilestoneHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in services.MilestoneInput
	if !decodeJSON(w, r, &in) {
		return
	}
	m, err := h.Service.UpdateMilestone(r.Context(), actor, id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// UpdateStatusHandler handles PATCH /milestones/{id}/status.
func (h *MilestoneHandler) UpdateStatusHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		Status models.MilestoneStatus `json:"status"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	m, err := h.Service.UpdateMilestoneStatus(r.Context(), actor, id, body.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// DeleteMilestoneHandler handles DELETE /milestones/{id}.
func (h *MilestoneHandler) DeleteMilestoneHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.Service.DeleteMilestone(r.Context(), actor, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message("Milestone deleted"))
}

// AssignMilestoneHandler handles POST /milestones/assign. Partial failures are reported
// per participant with 207 Multi-Status.
func (h *MilestoneHandler) AssignMilestoneHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	var req services.AssignRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.Service.AssignMilestone(r.Context(), actor, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusCreated
	switch {
	case len(result.Created) == 0:
		status = http.StatusUnprocessableEntity
	case len(result.Failed) > 0:
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, result)
}

// AcceptMilestoneHandler handles POST /milestones/{id}/accept.
func (h *MilestoneHandler) AcceptMilestoneHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	m, err := h.Service.AcceptMilestone(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// DeclineMilestoneHandler handles POST /milestones/{id}/decline.
func (h *MilestoneHandler) DeclineMilestoneHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	m, err := h.Service.DeclineMilestone(r.Context(), actor, id, body.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// RespondToDeclineHandler handles POST /milestones/{id}/decline-response.
func (h *MilestoneHandler) RespondToDeclineHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		Accepted bool   `json:"accepted"`
		Comment  string `json:"comment"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	m, err := h.Service.RespondToDecline(r.Context(), actor, id, body.Accepted, body.Comment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// SubmitReportHandler handles POST /milestones/{id}/reports.
func (h *MilestoneHandler) SubmitReportHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in services.ReportInput
	if !decodeJSON(w, r, &in) {
		return
	}
	report, err := h.Service.SubmitProgressReport(r.Context(), actor, id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// FeedbackHandler handles POST /milestones/{id}/reports/{week}/feedback.
func (h *MilestoneHandler) FeedbackHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	week, ok := pathInt(w, r, "week")
	if !ok {
		return
	}
	var body struct {
		Feedback string `json:"feedback"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	report, err := h.Service.AddFeedback(r.Context(), actor, id, week, body.Feedback)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
