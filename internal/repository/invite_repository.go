package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type InviteRepository struct {
	collection *mongo.Collection
}

func NewInviteRepository(db *mongo.Database) *InviteRepository {
	return &InviteRepository{
		collection: db.Collection("invites"),
	}
}

func (r *InviteRepository) CreateInvite(ctx context.Context, invite *models.Invite) (*models.Invite, error) {
	invite.CreatedAt = time.Now()
	invite.Status = models.InvitePending
	invite.Email = strings.ToLower(strings.TrimSpace(invite.Email))

	result, err := r.collection.InsertOne(ctx, invite)
	if err != nil {
		return nil, fmt.Errorf("failed to create invite: %w", err)
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("failed to cast inserted ID")
	}
	invite.ID = insertedID

	return invite, nil
}

func (r *InviteRepository) GetInviteByCode(ctx context.Context, code string) (*models.Invite, error) {
	var invite models.Invite
	if err := r.collection.FindOne(ctx, bson.M{"invite_code": code}).Decode(&invite); err != nil {
		return nil, notFound(err, "invite")
	}
	return &invite, nil
}

func (r *InviteRepository) GetPendingInvitesByProgram(ctx context.Context, programID primitive.ObjectID) ([]models.Invite, error) {
	filter := bson.M{"program_id": programID, "status": models.InvitePending}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find invites: %w", err)
	}
	defer cursor.Close(ctx)

	invites := []models.Invite{}
	for cursor.Next(ctx) {
		var invite models.Invite
		if err := cursor.Decode(&invite); err != nil {
			return nil, err
		}
		invites = append(invites, invite)
	}
	return invites, nil
}

func (r *InviteRepository) MarkInviteAccepted(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": models.InviteAccepted, "accepted_at": at}},
	)
	if err != nil {
		return fmt.Errorf("failed to update invite status: %w", err)
	}
	return nil
}
