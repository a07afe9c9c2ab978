package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	jwtutil "github.com/goldenbridgewomen/gbw-tracker/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stubLoader struct {
	users   map[primitive.ObjectID]*models.User
	touched []primitive.ObjectID
}

func (s *stubLoader) GetActor(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

func (s *stubLoader) TouchLastActive(_ context.Context, id primitive.ObjectID, _ time.Time) error {
	s.touched = append(s.touched, id)
	return nil
}

func TestAuthAndActorMiddleware(t *testing.T) {
	user := &models.User{ID: primitive.NewObjectID(), Name: "Jessica", Role: models.RoleParticipant}
	loader := &stubLoader{users: map[primitive.ObjectID]*models.User{user.ID: user}}

	var seen *models.User
	h := AuthMiddleware("secret")(ActorMiddleware(loader)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ActorFromContext(r.Context())
	})))

	token, err := jwtutil.GenerateToken(user.ID.Hex(), "j@example.com", "participant", "secret", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, seen)
	assert.Equal(t, user.ID, seen.ID)
	assert.Equal(t, []primitive.ObjectID{user.ID}, loader.touched)

	// query token works for websocket upgrades
	req = httptest.NewRequest(http.MethodGet, "/?token="+token, nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAuthMiddlewareRejects(t *testing.T) {
	h := AuthMiddleware("secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	for _, header := range []string{"", "Bearer garbage", "Basic abc"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, header)
	}
}

func TestActorMiddlewareUnknownUser(t *testing.T) {
	loader := &stubLoader{users: map[primitive.ObjectID]*models.User{}}
	h := AuthMiddleware("secret")(ActorMiddleware(loader)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	token, err := jwtutil.GenerateToken(primitive.NewObjectID().Hex(), "x@example.com", "admin", "secret", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	var fromCtx string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = RequestIDFromContext(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, fromCtx, 26)
	assert.Equal(t, fromCtx, rr.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-id")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "client-id", fromCtx)
}

func TestRateLimiter(t *testing.T) {
	l := NewRateLimiter(0.001, 2)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := []int{}
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/users/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	assert.True(t, l.Allow("10.0.0.2"), "other clients have their own bucket")
}
