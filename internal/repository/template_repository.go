package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type TemplateRepository struct {
	collection *mongo.Collection
}

func NewTemplateRepository(db *mongo.Database) *TemplateRepository {
	return &TemplateRepository{
		collection: db.Collection("milestone_templates"),
	}
}

func (r *TemplateRepository) CreateTemplate(ctx context.Context, template *models.MilestoneTemplate) (*models.MilestoneTemplate, error) {
	template.CreatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, template)
	if err != nil {
		return nil, fmt.Errorf("failed to insert template: %w", err)
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("failed to cast inserted ID")
	}
	template.ID = insertedID

	return template, nil
}

func (r *TemplateRepository) GetTemplateByID(ctx context.Context, id primitive.ObjectID) (*models.MilestoneTemplate, error) {
	var template models.MilestoneTemplate

	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&template)
	if err != nil {
		return nil, notFound(err, "template")
	}

	return &template, nil
}

func (r *TemplateRepository) GetAllTemplates(ctx context.Context) ([]models.MilestoneTemplate, error) {
	return r.find(ctx, bson.M{})
}

// GetTemplatesByCreator fetches templates created by a specific user.
func (r *TemplateRepository) GetTemplatesByCreator(ctx context.Context, userID primitive.ObjectID) ([]models.MilestoneTemplate, error) {
	return r.find(ctx, bson.M{"created_by": userID})
}

func (r *TemplateRepository) find(ctx context.Context, filter bson.M) ([]models.MilestoneTemplate, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch templates: %w", err)
	}
	defer cursor.Close(ctx)

	templates := []models.MilestoneTemplate{}
	for cursor.Next(ctx) {
		var template models.MilestoneTemplate
		if err := cursor.Decode(&template); err != nil {
			return nil, fmt.Errorf("failed to decode template: %w", err)
		}
		templates = append(templates, template)
	}

	return templates, nil
}
