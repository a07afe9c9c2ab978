package audit

import (
	"context"
	"sync"
	"time"

	"github.com/goldenbridgewomen/gbw-tracker/internal/repository"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/logger"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/metrics"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const persistTimeout = 5 * time.Second

// Persist writes one event to the store. It is shared by the in-process consumer and the
// queue worker.
func Persist(ctx context.Context, store repository.AuditStore, ev Event) error {
	entry := ev.Entry()
	if err := store.AppendEntry(ctx, entry); err != nil {
		metrics.AuditEvents.WithLabelValues("failed").Inc()
		logger.Log.WithError(err).WithFields(logrus.Fields{
			"action":    ev.Action,
			"actor_id":  ev.ActorID.Hex(),
			"target_id": ev.TargetID.Hex(),
		}).Error("Failed to persist audit entry")
		return err
	}
	metrics.AuditEvents.WithLabelValues("recorded").Inc()
	return nil
}

// StoreLogger persists synchronously on the caller's goroutine. Errors are logged only.
type StoreLogger struct {
	store repository.AuditStore
}

func NewStoreLogger(store repository.AuditStore) *StoreLogger {
	return &StoreLogger{store: store}
}

func (l *StoreLogger) Log(ctx context.Context, actorID primitive.ObjectID, action string, targetID primitive.ObjectID, details map[string]any) {
	_ = Persist(context.WithoutCancel(ctx), l.store, NewEvent(ctx, actorID, action, targetID, details))
}

// AsyncLogger hands events to a single consumer goroutine through a buffered channel. When
// the buffer is full the event is dropped with a warning rather than blocking the request.
type AsyncLogger struct {
	store  repository.AuditStore
	events chan Event
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewAsyncLogger(store repository.AuditStore, buffer int) *AsyncLogger {
	if buffer <= 0 {
		buffer = 256
	}
	l := &AsyncLogger{
		store:  store,
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *AsyncLogger) Log(ctx context.Context, actorID primitive.ObjectID, action string, targetID primitive.ObjectID, details map[string]any) {
	l.Emit(NewEvent(ctx, actorID, action, targetID, details))
}

// Emit enqueues a prepared event.
func (l *AsyncLogger) Emit(ev Event) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		logger.Log.WithField("action", ev.Action).Warn("Audit logger closed, dropping event")
		metrics.AuditEvents.WithLabelValues("dropped").Inc()
		return
	}
	select {
	case l.events <- ev:
	default:
		logger.Log.WithField("action", ev.Action).Warn("Audit buffer full, dropping event")
		metrics.AuditEvents.WithLabelValues("dropped").Inc()
	}
}

func (l *AsyncLogger) run() {
	defer close(l.done)
	for ev := range l.events {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		_ = Persist(ctx, l.store, ev)
		cancel()
	}
}

// Close stops accepting events and waits for the buffered ones to be written.
func (l *AsyncLogger) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	close(l.events)
	l.mu.Unlock()
	<-l.done
}
