package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotificationAssignment NotificationType = "assignment"
	NotificationFeedback   NotificationType = "feedback"
	NotificationDeadline   NotificationType = "deadline"
	NotificationDecline    NotificationType = "decline"
	NotificationGeneral    NotificationType = "general"
)

// MaxNotificationsPerUser is the retention cap; older notifications are dropped.
const MaxNotificationsPerUser = 100

type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"userId"`
	Type      NotificationType   `bson:"type" json:"type"`
	Title     string             `bson:"title" json:"title"`
	Message   string             `bson:"message" json:"message"`
	Data      map[string]any     `bson:"data,omitempty" json:"data,omitempty"`
	Read      bool               `bson:"read" json:"read"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}
