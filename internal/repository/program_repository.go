package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ProgramRepository handles database operations related to programs.
type ProgramRepository struct {
	collection *mongo.Collection
}

func NewProgramRepository(db *mongo.Database) *ProgramRepository {
	return &ProgramRepository{
		collection: db.Collection("programs"),
	}
}

func (r *ProgramRepository) CreateProgram(ctx context.Context, program *models.Program) (*models.Program, error) {
	program.CreatedAt = time.Now()
	program.UpdatedAt = program.CreatedAt

	result, err := r.collection.InsertOne(ctx, program)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to insert program")
		return nil, fmt.Errorf("failed to insert program: %w", err)
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("failed to cast inserted ID")
	}
	program.ID = insertedID

	logger.Log.WithField("program_id", program.ID.Hex()).Info("Program created successfully")
	return program, nil
}

func (r *ProgramRepository) GetProgramByID(ctx context.Context, id primitive.ObjectID) (*models.Program, error) {
	var program models.Program
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&program); err != nil {
		logger.Log.WithError(err).WithField("program_id", id.Hex()).Warn("Failed to find program by ID")
		return nil, notFound(err, "program")
	}
	return &program, nil
}

func (r *ProgramRepository) GetAllPrograms(ctx context.Context) ([]models.Program, error) {
	return r.find(ctx, bson.M{})
}

// GetProgramsByManager returns every program whose manager set contains managerID.
func (r *ProgramRepository) GetProgramsByManager(ctx context.Context, managerID primitive.ObjectID) ([]models.Program, error) {
	return r.find(ctx, bson.M{"manager_ids": managerID})
}

// GetProgramsByParticipant returns every program userID is enrolled in.
func (r *ProgramRepository) GetProgramsByParticipant(ctx context.Context, userID primitive.ObjectID) ([]models.Program, error) {
	return r.find(ctx, bson.M{"participant_ids": userID})
}

func (r *ProgramRepository) find(ctx context.Context, filter bson.M) ([]models.Program, error) {
	opts := options.Find().SetSort(bson.D{{Key: "start_date", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch programs: %w", err)
	}
	defer cursor.Close(ctx)

	programs := []models.Program{}
	if err := cursor.All(ctx, &programs); err != nil {
		return nil, fmt.Errorf("failed to decode programs: %w", err)
	}
	return programs, nil
}

func (r *ProgramRepository) UpdateProgram(ctx context.Context, program *models.Program) error {
	program.UpdatedAt = time.Now()
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": program.ID}, program)
	if err != nil {
		logger.Log.WithError(err).WithField("program_id", program.ID.Hex()).Error("Failed to update program")
		return fmt.Errorf("failed to update program: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("program: %w", ErrNotFound)
	}
	return nil
}
