package handlers

import (
	"net/http"

	"github.com/goldenbridgewomen/gbw-tracker/internal/services"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/logger"
)

// TemplateHandler handles HTTP requests related to milestone templates.
type TemplateHandler struct {
	TemplateService *services.TemplateService
}

// NewTemplateHandler creates a new instance of TemplateHandler.
func NewTemplateHandler(templateService *services.TemplateService) *TemplateHandler {
	return &TemplateHandler{TemplateService: templateService}
}

// CreateTemplateHandler lets staff create a reusable milestone template.
func (h *TemplateHandler) CreateTemplateHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}

	var in services.TemplateInput
	if !decodeJSON(w, r, &in) {
		return
	}

	created, err := h.TemplateService.CreateTemplate(r.Context(), actor, in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logger.Log.Infof("User %s created template %s", actor.ID.Hex(), created.ID.Hex())
	writeJSON(w, http.StatusCreated, created)
}

// GetTemplatesHandler lists every template, or only the caller's with ?mine=true.
func (h *TemplateHandler) GetTemplatesHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}

	list := h.TemplateService.ListTemplates
	if r.URL.Query().Get("mine") == "true" {
		list = h.TemplateService.ListOwnTemplates
	}
	templates, err := list(r.Context(), actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, templates)
}

// GetTemplateByIDHandler returns a single template.
func (h *TemplateHandler) GetTemplateByIDHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	tmpl, err := h.TemplateService.GetTemplate(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}
