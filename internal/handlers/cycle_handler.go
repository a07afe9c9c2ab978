package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/goldenbridgewomen/gbw-tracker/internal/services"
	log "github.com/sirupsen/logrus"
)

// CycleHandler serves balance sheet cycles and their expenses.
type CycleHandler struct {
	Service *services.BalanceService
}

func NewCycleHandler(service *services.BalanceService) *CycleHandler {
	return &CycleHandler{Service: service}
}

// StartCycleHandler handles POST /users/{id}/cycles.
func (h *CycleHandler) StartCycleHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in services.CycleInput
	if !decodeJSON(w, r, &in) {
		return
	}
	cycle, err := h.Service.StartCycle(r.Context(), actor, userID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.WithFields(log.Fields{"cycle_id": cycle.ID.Hex(), "user_id": userID.Hex()}).Info("Balance cycle started")
	writeJSON(w, http.StatusCreated, cycle)
}

// GetCyclesHandler handles GET /users/{id}/cycles.
func (h *CycleHandler) GetCyclesHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	cycles, err := h.Service.GetCycles(r.Context(), actor, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cycles)
}

// GetActiveCycleHandler handles GET /users/{id}/cycles/active. It answers null when the
// participant has no active cycle.
func (h *CycleHandler) GetActiveCycleHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	cycle, err := h.Service.GetActiveCycle(r.Context(), actor, userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cycle)
}

// GetCycleHandler handles GET /cycles/{id}.
func (h *CycleHandler) GetCycleHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	cycle, err := h.Service.GetCycle(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cycle)
}

// DeleteCycleHandler handles DELETE /cycles/{id}.
func (h *CycleHandler) DeleteCycleHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	reason, ok := reasonFrom(w, r)
	if !ok {
		return
	}
	if err := h.Service.DeleteCycle(r.Context(), actor, id, reason); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, message("Cycle deleted"))
}

// AddExpenseHandler handles POST /cycles/{id}/expenses.
func (h *CycleHandler) AddExpenseHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	cycleID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in services.ExpenseInput
	if !decodeJSON(w, r, &in) {
		return
	}
	cycle, err := h.Service.AddExpense(r.Context(), actor, cycleID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cycle)
}

// EditExpenseHandler handles PUT /cycles/{id}/expenses/{expenseId}. Staff edits of another
// user's sheet must carry a reason.
func (h *CycleHandler) EditExpenseHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	cycleID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	expenseID, ok := pathID(w, r, "expenseId")
	if !ok {
		return
	}
	var body struct {
		services.ExpenseInput
		Reason string `json:"reason"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	cycle, err := h.Service.EditExpense(r.Context(), actor, cycleID, expenseID, body.ExpenseInput, body.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cycle)
}

// DeleteExpenseHandler handles DELETE /cycles/{id}/expenses/{expenseId}.
func (h *CycleHandler) DeleteExpenseHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	cycleID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	expenseID, ok := pathID(w, r, "expenseId")
	if !ok {
		return
	}
	reason, ok := reasonFrom(w, r)
	if !ok {
		return
	}
	cycle, err := h.Service.DeleteExpense(r.Context(), actor, cycleID, expenseID, reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cycle)
}

// reasonFrom reads a change reason from ?reason= or an optional {"reason": ...} body.
func reasonFrom(w http.ResponseWriter, r *http.Request) (string, bool) {
	if q := strings.TrimSpace(r.URL.Query().Get("reason")); q != "" {
		return q, true
	}
	var body struct {
		Reason string `json:"reason"`
	}
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&body)
	if err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return "", false
	}
	return body.Reason, true
}
