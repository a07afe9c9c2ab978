package services

import (
	"context"
	"strings"

	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"github.com/goldenbridgewomen/gbw-tracker/internal/permissions"
	"github.com/goldenbridgewomen/gbw-tracker/internal/repository"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/logger"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/sanitize"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TemplateService manages reusable milestone definitions.
type TemplateService struct {
	repo repository.TemplateStore
}

func NewTemplateService(repo repository.TemplateStore) *TemplateService {
	return &TemplateService{repo: repo}
}

type TemplateInput struct {
	Title        string              `json:"title"`
	Description  string              `json:"description"`
	Category     string              `json:"category"`
	DurationDays int                 `json:"durationDays"`
	IsRequired   bool                `json:"isRequired"`
	CanDecline   bool                `json:"canDecline"`
	ProgramID    *primitive.ObjectID `json:"programId,omitempty"`
}

// CreateTemplate creates a new milestone template. Program-scoped templates need program
// management rights.
func (s *TemplateService) CreateTemplate(ctx context.Context, actor *models.User, in TemplateInput) (*models.MilestoneTemplate, error) {
	if !permissions.CanManageTemplates(actor) {
		return nil, forbiddenf("cannot create templates")
	}
	if in.ProgramID != nil && !permissions.CanManageProgram(actor, *in.ProgramID) {
		return nil, forbiddenf("cannot manage this program")
	}

	in.Title = sanitize.Text(in.Title)
	in.Description = sanitize.Text(in.Description)
	if in.Title == "" {
		return nil, invalidf("template title is required")
	}
	category, err := normalizeCategory(in.Category)
	if err != nil {
		return nil, err
	}
	if in.DurationDays <= 0 {
		return nil, invalidf("duration must be at least one day")
	}

	tmpl, err := s.repo.CreateTemplate(ctx, &models.MilestoneTemplate{
		Title:        in.Title,
		Description:  in.Description,
		Category:     category,
		DurationDays: in.DurationDays,
		IsRequired:   in.IsRequired,
		CanDecline:   in.CanDecline,
		ProgramID:    in.ProgramID,
		CreatedBy:    actor.ID,
	})
	if err != nil {
		return nil, storeErr(err, "template")
	}
	logger.Log.WithField("template_id", tmpl.ID.Hex()).Info("Milestone template created")
	return tmpl, nil
}

// ListTemplates returns every template. Only roles that can assign see them.
func (s *TemplateService) ListTemplates(ctx context.Context, actor *models.User) ([]models.MilestoneTemplate, error) {
	if !permissions.CanManageTemplates(actor) {
		return nil, forbiddenf("cannot view templates")
	}
	templates, err := s.repo.GetAllTemplates(ctx)
	if err != nil {
		return nil, storeErr(err, "templates")
	}
	return templates, nil
}

// ListOwnTemplates returns the templates the actor created.
func (s *TemplateService) ListOwnTemplates(ctx context.Context, actor *models.User) ([]models.MilestoneTemplate, error) {
	if !permissions.CanManageTemplates(actor) {
		return nil, forbiddenf("cannot view templates")
	}
	templates, err := s.repo.GetTemplatesByCreator(ctx, actor.ID)
	if err != nil {
		return nil, storeErr(err, "templates")
	}
	return templates, nil
}

func (s *TemplateService) GetTemplate(ctx context.Context, actor *models.User, id primitive.ObjectID) (*models.MilestoneTemplate, error) {
	if !permissions.CanManageTemplates(actor) {
		return nil, forbiddenf("cannot view templates")
	}
	tmpl, err := s.repo.GetTemplateByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "template")
	}
	return tmpl, nil
}

// normalizeCategory defaults an empty category to "other".
func normalizeCategory(c string) (string, error) {
	c = strings.ToLower(strings.TrimSpace(c))
	if c == "" {
		return "other", nil
	}
	if _, ok := models.AllowedCategories[c]; !ok {
		return "", invalidf("unknown category %q", c)
	}
	return c, nil
}
