package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const auditCollection = "audit_log"

// AuditRepository stores audit entries in a capped collection, so Mongo itself drops
// the oldest entries once models.MaxAuditEntries is exceeded.
type AuditRepository struct {
	db         *mongo.Database
	collection *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{
		db:         db,
		collection: db.Collection(auditCollection),
	}
}

// EnsureCollection creates the capped collection and its indexes. It is safe to call on
// every start.
func (r *AuditRepository) EnsureCollection(ctx context.Context) error {
	opts := options.CreateCollection().
		SetCapped(true).
		SetSizeInBytes(16 << 20).
		SetMaxDocuments(models.MaxAuditEntries)

	if err := r.db.CreateCollection(ctx, auditCollection, opts); err != nil {
		var cmdErr mongo.CommandError
		// 48 NamespaceExists
		if !errors.As(err, &cmdErr) || cmdErr.Code != 48 {
			return fmt.Errorf("failed to create audit collection: %w", err)
		}
	}

	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "target_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "program_id", Value: 1}, {Key: "timestamp", Value: -1}}},
	})
	return err
}

// AppendEntry inserts one immutable audit record.
func (r *AuditRepository) AppendEntry(ctx context.Context, entry *models.AuditLogEntry) error {
	_, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		logrus.WithError(err).WithField("action", entry.Action).Error("Failed to insert audit entry")
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// QueryEntries returns matching entries, newest first.
func (r *AuditRepository) QueryEntries(ctx context.Context, filter AuditFilter) ([]models.AuditLogEntry, error) {
	query := bson.M{}
	if filter.UserID != nil {
		query["$or"] = []bson.M{
			{"user_id": *filter.UserID},
			{"target_id": *filter.UserID},
		}
	}
	if filter.ProgramID != nil {
		query["program_id"] = *filter.ProgramID
	}
	if filter.Action != "" {
		query["action"] = filter.Action
	}

	limit := filter.Limit
	if limit <= 0 || limit > models.MaxAuditEntries {
		limit = models.MaxAuditEntries
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	entries := []models.AuditLogEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}
	return entries, nil
}
