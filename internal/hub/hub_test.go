package hub

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeConn struct {
	mu      sync.Mutex
	written []interface{}
	fail    bool
	closed  bool
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broken pipe")
	}
	f.written = append(f.written, v)
	return nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func TestPushReachesOnlyTargetUser(t *testing.T) {
	h := New()
	jessica, maria := primitive.NewObjectID(), primitive.NewObjectID()
	a, b, c := &fakeConn{}, &fakeConn{}, &fakeConn{}

	h.Register(jessica, a)
	h.Register(jessica, b)
	h.Register(maria, c)

	h.Push(jessica, "notification", map[string]string{"title": "hi"})

	assert.Len(t, a.written, 1)
	assert.Len(t, b.written, 1)
	assert.Empty(t, c.written)
	msg, ok := a.written[0].(Message)
	require.True(t, ok)
	assert.Equal(t, "notification", msg.Type)
}

func TestFailedSocketIsDropped(t *testing.T) {
	h := New()
	user := primitive.NewObjectID()
	good, bad := &fakeConn{}, &fakeConn{fail: true}
	h.Register(user, good)
	h.Register(user, bad)

	h.Push(user, "notification", nil)
	assert.Equal(t, 1, h.Connections(user))
	assert.True(t, bad.closed)
}

func TestUnregister(t *testing.T) {
	h := New()
	user := primitive.NewObjectID()
	conn := &fakeConn{}
	unregister := h.Register(user, conn)
	unregister()
	unregister()

	assert.Equal(t, 0, h.Connections(user))
	assert.True(t, conn.closed)
	h.Push(user, "notification", nil)
	assert.Empty(t, conn.written)
}
