package handlers

import (
	"context"
	"net/http"

	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"github.com/goldenbridgewomen/gbw-tracker/internal/services"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProgramHandler serves cohort management: programs, managers and enrolment.
type ProgramHandler struct {
	Programs   *services.ProgramService
	Milestones *services.MilestoneService
}

func NewProgramHandler(programs *services.ProgramService, milestones *services.MilestoneService) *ProgramHandler {
	return &ProgramHandler{Programs: programs, Milestones: milestones}
}

// POST /programs
func (h *ProgramHandler) CreateProgramHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	var in services.ProgramInput
	if !decodeJSON(w, r, &in) {
		return
	}
	program, err := h.Programs.CreateProgram(r.Context(), actor, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.WithFields(log.Fields{"program_id": program.ID.Hex(), "by": actor.ID.Hex()}).Info("Program created")
	writeJSON(w, http.StatusCreated, program)
}

// GET /programs
func (h *ProgramHandler) ListProgramsHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	programs, err := h.Programs.ListPrograms(r.Context(), actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, programs)
}

// GET /programs/{id}
func (h *ProgramHandler) GetProgramHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	program, err := h.Programs.GetProgram(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, program)
}

// PUT /programs/{id}
func (h *ProgramHandler) UpdateProgramHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in services.ProgramInput
	if !decodeJSON(w, r, &in) {
		return
	}
	program, err := h.Programs.UpdateProgram(r.Context(), actor, id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, program)
}

// POST /programs/{id}/archive
func (h *ProgramHandler) ArchiveProgramHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	program, err := h.Programs.ArchiveProgram(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, program)
}

// POST /programs/{id}/managers/{userId}
func (h *ProgramHandler) AssignManagerHandler(w http.ResponseWriter, r *http.Request) {
	h.changeManager(w, r, h.Programs.AssignManager)
}

// DELETE /programs/{id}/managers/{userId}
func (h *ProgramHandler) RemoveManagerHandler(w http.ResponseWriter, r *http.Request) {
	h.changeManager(w, r, h.Programs.RemoveManager)
}

type managerChange func(ctx context.Context, actor *models.User, programID, managerID primitive.ObjectID) (*models.Program, error)

func (h *ProgramHandler) changeManager(w http.ResponseWriter, r *http.Request, apply managerChange) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	programID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	managerID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	program, err := apply(r.Context(), actor, programID, managerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, program)
}

// POST /programs/{id}/participants  {"email": "..."}
func (h *ProgramHandler) AddParticipantHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	programID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	result, err := h.Programs.AddParticipantByEmail(r.Context(), actor, programID, body.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if !result.Enrolled {
		status = http.StatusAccepted
	}
	writeJSON(w, status, result)
}

// DELETE /programs/{id}/participants/{userId}
func (h *ProgramHandler) RemoveParticipantHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	programID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	if err := h.Programs.RemoveParticipant(r.Context(), actor, programID, userID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message("Participant removed"))
}

// GET /programs/{id}/roster
func (h *ProgramHandler) RosterHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	programID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	roster, err := h.Programs.GetRoster(r.Context(), actor, programID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roster)
}

// GET /programs/{id}/declines
func (h *ProgramHandler) PendingDeclinesHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	programID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	declined, err := h.Milestones.PendingDeclines(r.Context(), actor, programID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, declined)
}

// GET /invites/{code}?email=
//
// Used by the signup page to check a link before registering.
func (h *ProgramHandler) CheckInviteHandler(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	invite, err := h.Programs.CheckInvite(r.Context(), code, r.URL.Query().Get("email"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invite)
}
