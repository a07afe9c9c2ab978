// Package audit records manager and admin changes to participant-owned data.
//
// Services emit an Event after their write has committed. Delivery is best effort: a
// failed or dropped audit record never fails the mutation that produced it.
package audit

import (
	"context"
	"time"

	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/middleware"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Logger is what services depend on. Implementations must not block for long and must
// never surface an error to the caller.
type Logger interface {
	Log(ctx context.Context, actorID primitive.ObjectID, action string, targetID primitive.ObjectID, details map[string]any)
}

// Event is the message emitted after a successful write.
type Event struct {
	ActorID   primitive.ObjectID  `json:"actorId"`
	Action    string              `json:"action"`
	TargetID  primitive.ObjectID  `json:"targetId"`
	ProgramID *primitive.ObjectID `json:"programId,omitempty"`
	Details   map[string]any      `json:"details"`
	RequestID string              `json:"requestId,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// NewEvent builds an event stamped with the current time. A programId key in details is
// lifted into the ProgramID column so program-filtered queries do not depend on the shape
// of the details map.
func NewEvent(ctx context.Context, actorID primitive.ObjectID, action string, targetID primitive.ObjectID, details map[string]any) Event {
	ev := Event{
		ActorID:   actorID,
		Action:    action,
		TargetID:  targetID,
		Details:   copyDetails(details),
		RequestID: middleware.RequestIDFromContext(ctx),
		Timestamp: time.Now().UTC(),
	}
	ev.ProgramID = programIDFrom(ev.Details)
	return ev
}

// Entry converts the event into its stored form.
func (e Event) Entry() *models.AuditLogEntry {
	details := copyDetails(e.Details)
	if e.RequestID != "" {
		details["requestId"] = e.RequestID
	}
	programID := e.ProgramID
	if programID == nil {
		programID = programIDFrom(details)
	}
	return &models.AuditLogEntry{
		UserID:    e.ActorID,
		Action:    e.Action,
		TargetID:  e.TargetID,
		ProgramID: programID,
		Details:   details,
		Timestamp: e.Timestamp,
	}
}

func programIDFrom(details map[string]any) *primitive.ObjectID {
	switch v := details["programId"].(type) {
	case primitive.ObjectID:
		if !v.IsZero() {
			return &v
		}
	case *primitive.ObjectID:
		if v != nil && !v.IsZero() {
			id := *v
			return &id
		}
	case string:
		if id, err := primitive.ObjectIDFromHex(v); err == nil {
			return &id
		}
	}
	return nil
}

func copyDetails(details map[string]any) map[string]any {
	out := make(map[string]any, len(details)+1)
	for k, v := range details {
		out[k] = v
	}
	return out
}

// Discard drops every event.
type Discard struct{}

func (Discard) Log(context.Context, primitive.ObjectID, string, primitive.ObjectID, map[string]any) {}
