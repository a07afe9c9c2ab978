package handlers

import (
	"net/http"
	"strconv"

	"github.com/goldenbridgewomen/gbw-tracker/internal/services"
)

type AuditHandler struct {
	Service *services.AuditService
}

func NewAuditHandler(service *services.AuditService) *AuditHandler {
	return &AuditHandler{Service: service}
}

// GetAuditLogHandler handles GET /audit?userId=&programId=&action=&limit=.
func (h *AuditHandler) GetAuditLogHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	userID, ok := queryID(w, r, "userId")
	if !ok {
		return
	}
	programID, ok := queryID(w, r, "programId")
	if !ok {
		return
	}
	q := services.AuditQuery{
		UserID:    userID,
		ProgramID: programID,
		Action:    r.URL.Query().Get("action"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || limit < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		q.Limit = limit
	}

	entries, err := h.Service.GetAuditLog(r.Context(), actor, q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
