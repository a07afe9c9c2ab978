package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/logger"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const actorContextKey contextKey = "actor"

// ActorLoader resolves the authenticated user and records activity.
type ActorLoader interface {
	GetActor(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	TouchLastActive(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

// ActorMiddleware loads the current user record after AuthMiddleware so permission checks
// see up-to-date program memberships, and bumps the user's last-active time.
func ActorMiddleware(loader ActorLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetUserFromContext(r.Context())
			if claims == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			userID, err := primitive.ObjectIDFromHex(claims.UserID)
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			actor, err := loader.GetActor(r.Context(), userID)
			if err != nil {
				logger.Log.WithError(err).WithField("user_id", claims.UserID).Warn("Token user no longer resolvable")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if err := loader.TouchLastActive(r.Context(), userID, time.Now()); err != nil {
				logger.Log.WithFields(logrus.Fields{
					"user_id": claims.UserID,
					"error":   err,
				}).Debug("Failed to update last active")
			}

			ctx := context.WithValue(r.Context(), actorContextKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFromContext returns the user loaded by ActorMiddleware.
func ActorFromContext(ctx context.Context) *models.User {
	actor, _ := ctx.Value(actorContextKey).(*models.User)
	return actor
}

// WithActor stores a user in ctx. Handler tests use it to skip token handling.
func WithActor(ctx context.Context, actor *models.User) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}
