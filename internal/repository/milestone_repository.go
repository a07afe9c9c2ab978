package repository

import (
	"context"
	"time"

	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MilestoneRepository handles database operations related to milestones.
// Progress reports are embedded, so deleting a milestone removes them too.
type MilestoneRepository struct {
	collection *mongo.Collection
}

// NewMilestoneRepository creates a new instance of MilestoneRepository
func NewMilestoneRepository(db *mongo.Database) *MilestoneRepository {
	return &MilestoneRepository{
		collection: db.Collection("milestones"),
	}
}

// CreateMilestone creates a new milestone in the database
func (r *MilestoneRepository) CreateMilestone(ctx context.Context, milestone *models.Milestone) (*models.Milestone, error) {
	milestone.CreatedAt = time.Now()
	milestone.UpdatedAt = milestone.CreatedAt
	if milestone.ProgressReports == nil {
		milestone.ProgressReports = []models.ProgressReport{}
	}

	result, err := r.collection.InsertOne(ctx, milestone)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to insert milestone")
		return nil, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if ok {
		milestone.ID = insertedID
	}

	logger.Log.WithField("milestone_id", milestone.ID.Hex()).Info("Milestone created successfully")
	return milestone, nil
}

// GetMilestoneByID fetches a milestone by its ID
func (r *MilestoneRepository) GetMilestoneByID(ctx context.Context, id primitive.ObjectID) (*models.Milestone, error) {
	var milestone models.Milestone

	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&milestone)
	if err != nil {
		logger.Log.WithError(err).WithField("milestone_id", id.Hex()).Warn("Failed to find milestone by ID")
		return nil, notFound(err, "milestone")
	}
	return &milestone, nil
}

// GetMilestonesByUser fetches every milestone owned by userID, soonest deadline first
func (r *MilestoneRepository) GetMilestonesByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Milestone, error) {
	return r.find(ctx, bson.M{"user_id": userID})
}

func (r *MilestoneRepository) GetMilestonesByUsers(ctx context.Context, userIDs []primitive.ObjectID) ([]models.Milestone, error) {
	if len(userIDs) == 0 {
		return []models.Milestone{}, nil
	}
	return r.find(ctx, bson.M{"user_id": bson.M{"$in": userIDs}})
}

func (r *MilestoneRepository) find(ctx context.Context, filter bson.M) ([]models.Milestone, error) {
	opts := options.Find().SetSort(bson.D{{Key: "end_date", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to fetch milestones")
		return nil, err
	}
	defer cursor.Close(ctx)

	milestones := []models.Milestone{}
	for cursor.Next(ctx) {
		var milestone models.Milestone
		if err := cursor.Decode(&milestone); err != nil {
			logger.Log.WithError(err).Error("Failed to decode milestone")
			return nil, err
		}
		milestones = append(milestones, milestone)
	}

	logger.Log.WithField("count", len(milestones)).Debug("Milestones fetched successfully")
	return milestones, nil
}

// UpdateMilestone replaces the milestone document. Last write wins.
func (r *MilestoneRepository) UpdateMilestone(ctx context.Context, milestone *models.Milestone) error {
	milestone.UpdatedAt = time.Now()

	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": milestone.ID}, milestone)
	if err != nil {
		logger.Log.WithError(err).WithField("milestone_id", milestone.ID.Hex()).Error("Failed to update milestone")
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	logger.Log.WithField("milestone_id", milestone.ID.Hex()).Info("Milestone updated successfully")
	return nil
}

// DeleteMilestone deletes a milestone from the database by its ID
func (r *MilestoneRepository) DeleteMilestone(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		logger.Log.WithError(err).WithField("milestone_id", id.Hex()).Error("Failed to delete milestone")
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}

	logger.Log.WithField("milestone_id", id.Hex()).Info("Milestone deleted successfully")
	return nil
}
