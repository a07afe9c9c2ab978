package services

import (
	"context"

	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"github.com/goldenbridgewomen/gbw-tracker/internal/permissions"
	"github.com/goldenbridgewomen/gbw-tracker/internal/repository"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/logger"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultAuditLimit = 100

// AuditService exposes the audit trail to the people allowed to read it.
type AuditService struct {
	repo repository.AuditStore
}

func NewAuditService(repo repository.AuditStore) *AuditService {
	return &AuditService{repo: repo}
}

type AuditQuery struct {
	UserID    *primitive.ObjectID
	ProgramID *primitive.ObjectID
	Action    string
	Limit     int64
}

// GetAuditLog returns matching entries, newest first.
func (s *AuditService) GetAuditLog(ctx context.Context, actor *models.User, q AuditQuery) ([]models.AuditLogEntry, error) {
	if !permissions.CanViewAuditLog(actor, permissions.AuditScope{UserID: q.UserID, ProgramID: q.ProgramID}) {
		logger.Log.WithFields(logrus.Fields{"user_id": actor.ID.Hex()}).Warn("Audit log access denied")
		return nil, forbiddenf("cannot view this audit log")
	}
	if q.Limit <= 0 || q.Limit > models.MaxAuditEntries {
		q.Limit = defaultAuditLimit
	}
	entries, err := s.repo.QueryEntries(ctx, repository.AuditFilter{
		UserID:    q.UserID,
		ProgramID: q.ProgramID,
		Action:    q.Action,
		Limit:     q.Limit,
	})
	if err != nil {
		return nil, storeErr(err, "audit log")
	}
	return entries, nil
}
