package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RedisDeadlineTracker keeps one redis set per user holding the reminder keys already sent.
type RedisDeadlineTracker struct {
	rdb *redis.Client
}

func NewRedisDeadlineTracker(rdb *redis.Client) *RedisDeadlineTracker {
	return &RedisDeadlineTracker{rdb: rdb}
}

func deadlineSetKey(userID primitive.ObjectID) string {
	return fmt.Sprintf("gbw:notified_deadlines:%s", userID.Hex())
}

// MarkNotified adds key to the user's set. SADD reports 1 only for a new member.
func (t *RedisDeadlineTracker) MarkNotified(ctx context.Context, userID primitive.ObjectID, key string) (bool, error) {
	added, err := t.rdb.SAdd(ctx, deadlineSetKey(userID), key).Result()
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id": userID.Hex(),
			"key":     key,
		}).Warn("Redis deadline dedupe failed")
		return false, fmt.Errorf("failed to record deadline reminder: %w", err)
	}
	return added == 1, nil
}
