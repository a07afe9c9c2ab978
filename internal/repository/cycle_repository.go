package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CycleRepository stores balance sheet cycles. Expenses live inside the cycle document.
type CycleRepository struct {
	collection *mongo.Collection
}

func NewCycleRepository(db *mongo.Database) *CycleRepository {
	return &CycleRepository{
		collection: db.Collection("balance_cycles"),
	}
}

func (r *CycleRepository) CreateCycle(ctx context.Context, cycle *models.BalanceSheetCycle) (*models.BalanceSheetCycle, error) {
	cycle.CreatedAt = time.Now()
	cycle.UpdatedAt = cycle.CreatedAt
	if cycle.Expenses == nil {
		cycle.Expenses = []models.Expense{}
	}

	result, err := r.collection.InsertOne(ctx, cycle)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert balance cycle")
		return nil, fmt.Errorf("failed to insert cycle: %w", err)
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("failed to cast inserted ID")
	}
	cycle.ID = insertedID

	logrus.WithFields(logrus.Fields{
		"cycle_id": cycle.ID.Hex(),
		"user_id":  cycle.UserID.Hex(),
	}).Info("Balance cycle created")
	return cycle, nil
}

func (r *CycleRepository) GetCycleByID(ctx context.Context, id primitive.ObjectID) (*models.BalanceSheetCycle, error) {
	var cycle models.BalanceSheetCycle
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&cycle); err != nil {
		return nil, notFound(err, "cycle")
	}
	return &cycle, nil
}

// GetCyclesByUser returns the user's cycles, newest first.
func (r *CycleRepository) GetCyclesByUser(ctx context.Context, userID primitive.ObjectID) ([]models.BalanceSheetCycle, error) {
	return r.find(ctx, bson.M{"user_id": userID})
}

func (r *CycleRepository) GetActiveCycle(ctx context.Context, userID primitive.ObjectID) (*models.BalanceSheetCycle, error) {
	var cycle models.BalanceSheetCycle
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID, "is_active": true}).Decode(&cycle)
	if err != nil {
		return nil, notFound(err, "active cycle")
	}
	return &cycle, nil
}

func (r *CycleRepository) GetActiveCyclesByUsers(ctx context.Context, userIDs []primitive.ObjectID) ([]models.BalanceSheetCycle, error) {
	if len(userIDs) == 0 {
		return []models.BalanceSheetCycle{}, nil
	}
	return r.find(ctx, bson.M{"user_id": bson.M{"$in": userIDs}, "is_active": true})
}

func (r *CycleRepository) find(ctx context.Context, filter bson.M) ([]models.BalanceSheetCycle, error) {
	opts := options.Find().SetSort(bson.D{{Key: "start_date", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cycles: %w", err)
	}
	defer cursor.Close(ctx)

	cycles := []models.BalanceSheetCycle{}
	if err := cursor.All(ctx, &cycles); err != nil {
		return nil, fmt.Errorf("failed to decode cycles: %w", err)
	}
	return cycles, nil
}

// DeactivateCycles clears the active flag on every cycle the user owns.
func (r *CycleRepository) DeactivateCycles(ctx context.Context, userID primitive.ObjectID) error {
	res, err := r.collection.UpdateMany(ctx,
		bson.M{"user_id": userID, "is_active": true},
		bson.M{"$set": bson.M{"is_active": false, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate cycles: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"user_id":     userID.Hex(),
		"deactivated": res.ModifiedCount,
	}).Info("Previous cycles deactivated")
	return nil
}

func (r *CycleRepository) UpdateCycle(ctx context.Context, cycle *models.BalanceSheetCycle) error {
	cycle.UpdatedAt = time.Now()
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": cycle.ID}, cycle)
	if err != nil {
		logrus.WithError(err).WithField("cycle_id", cycle.ID.Hex()).Error("Failed to update cycle")
		return fmt.Errorf("failed to update cycle: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("cycle: %w", ErrNotFound)
	}
	return nil
}

func (r *CycleRepository) DeleteCycle(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete cycle: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("cycle: %w", ErrNotFound)
	}
	return nil
}
