package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goldenbridgewomen/gbw-tracker/internal/audit"
	"github.com/goldenbridgewomen/gbw-tracker/internal/config"
	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"github.com/goldenbridgewomen/gbw-tracker/internal/repository/memory"
	"github.com/goldenbridgewomen/gbw-tracker/internal/services"
	jwtutil "github.com/goldenbridgewomen/gbw-tracker/pkg/jwt"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/middleware"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "handler-test-secret"

// server wires the real services over the memory store. Requests authenticate with
// the X-User header holding a user id.
type server struct {
	store  *memory.Store
	router *mux.Router

	admin, emily, sarah, jessica, maria *models.User
	p1                                  *models.Program
}

func newServer(t *testing.T) *server {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	s := &server{store: store}

	mkUser := func(name string, role models.Role) *models.User {
		u, err := store.Users.CreateUser(ctx, &models.User{Name: name, Email: name + "@example.com", Role: role})
		require.NoError(t, err)
		return u
	}
	s.admin = mkUser("admin", models.RoleAdmin)
	s.emily = mkUser("emily", models.RoleProgramManager)
	s.sarah = mkUser("sarah", models.RoleProgramManager)
	s.jessica = mkUser("jessica", models.RoleParticipant)
	s.maria = mkUser("maria", models.RoleParticipant)

	mkProgram := func(name string, manager, participant *models.User) *models.Program {
		p, err := store.Programs.CreateProgram(ctx, &models.Program{
			Name:           name,
			ManagerIDs:     []primitive.ObjectID{manager.ID},
			ParticipantIDs: []primitive.ObjectID{participant.ID},
			StartDate:      time.Now().AddDate(0, -1, 0),
			EndDate:        time.Now().AddDate(0, 5, 0),
			CreatedBy:      s.admin.ID,
		})
		require.NoError(t, err)
		manager.ManagedProgramIDs = append(manager.ManagedProgramIDs, p.ID)
		participant.ProgramIDs = append(participant.ProgramIDs, p.ID)
		require.NoError(t, store.Users.UpdateUser(ctx, manager))
		require.NoError(t, store.Users.UpdateUser(ctx, participant))
		return p
	}
	s.p1 = mkProgram("Spring Cohort", s.emily, s.jessica)
	mkProgram("Fall Cohort", s.sarah, s.maria)

	auditLogger := audit.NewStoreLogger(store.Audit)
	programs := services.NewProgramService(store.Programs, store.Users, store.Invites, nil, "http://localhost:3000")
	users := services.NewUserService(store.Users, store.Programs, programs)
	notifications := services.NewNotificationService(store.Notifications, store.Milestones, store.Users, store.Deadlines, nil)
	milestones := services.NewMilestoneService(store.Milestones, store.Templates, store.Programs, store.Users, notifications, auditLogger)
	balances := services.NewBalanceService(store.Cycles, store.Programs, auditLogger)

	cfg := &config.Config{JWTSecret: testSecret, TokenExpiry: time.Hour}
	routes := &Routes{
		Users:         NewUserHandler(users, cfg),
		Programs:      NewProgramHandler(programs, milestones),
		Milestones:    NewMilestoneHandler(milestones),
		Cycles:        NewCycleHandler(balances),
		Notifications: NewNotificationHandler(notifications),
		Templates:     NewTemplateHandler(services.NewTemplateService(store.Templates)),
		Audit:         NewAuditHandler(services.NewAuditService(store.Audit)),
		Export:        NewExportHandler(services.NewExportService(store.Programs, store.Users, store.Milestones, store.Cycles)),
		Receipts:      NewReceiptHandler(t.TempDir()),
		Authenticate:  []mux.MiddlewareFunc{headerActor(store)},
	}
	s.router = mux.NewRouter()
	routes.Register(s.router)
	return s
}

func headerActor(store *memory.Store) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, err := primitive.ObjectIDFromHex(r.Header.Get("X-User")); err == nil {
				if u, err := store.Users.GetUserByID(r.Context(), id); err == nil {
					r = r.WithContext(middleware.WithActor(r.Context(), u))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *server) do(t *testing.T, as *models.User, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		req.Header.Set("X-User", as.ID.Hex())
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func TestRegisterAndLogin(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, nil, "POST", "/users/register", map[string]string{
		"name": "Nadia", "email": "nadia@example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "correct-horse")

	rec = s.do(t, nil, "POST", "/users/login", map[string]string{
		"email": "nadia@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, nil, "POST", "/users/login", map[string]string{
		"email": "nadia@example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	decode(t, rec, &resp)
	claims, err := jwtutil.ValidateToken(resp.Token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID.Hex(), claims.UserID)
	assert.Equal(t, "participant", claims.Role)
}

func TestProtectedRoutesNeedActor(t *testing.T) {
	s := newServer(t)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, nil, "GET", "/users/me", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, s.jessica, "GET", "/users/me", nil).Code)
}

func TestMilestoneRoutes(t *testing.T) {
	s := newServer(t)
	start := time.Now().UTC().Truncate(time.Second)

	rec := s.do(t, s.jessica, "POST", "/milestones", map[string]interface{}{
		"title":     "Launch website",
		"category":  "business",
		"startDate": start,
		"endDate":   start.AddDate(0, 1, 0),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var m models.Milestone
	decode(t, rec, &m)

	path := "/users/" + s.jessica.ID.Hex() + "/milestones"
	assert.Equal(t, http.StatusOK, s.do(t, s.emily, "GET", path, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, s.sarah, "GET", path, nil).Code)

	assert.Equal(t, http.StatusBadRequest, s.do(t, s.jessica, "GET", "/milestones/not-an-id", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, s.jessica, "GET", "/milestones/"+primitive.NewObjectID().Hex(), nil).Code)

	rec = s.do(t, s.jessica, "POST", "/milestones/"+m.ID.Hex()+"/reports", map[string]interface{}{
		"weekNumber": 1, "summary": "Bought a domain",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(t, s.emily, "POST", "/milestones/"+m.ID.Hex()+"/reports/1/feedback", map[string]string{
		"feedback": "Great start",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, s.jessica, "GET", "/notifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var notifs []models.Notification
	decode(t, rec, &notifs)
	require.NotEmpty(t, notifs)
	assert.Equal(t, models.NotificationFeedback, notifs[0].Type)
}

func TestAssignAndDeclineRoutes(t *testing.T) {
	s := newServer(t)
	start := time.Now().UTC().Truncate(time.Second)

	rec := s.do(t, s.emily, "POST", "/milestones/assign", map[string]interface{}{
		"participantIds": []string{s.jessica.ID.Hex(), s.maria.ID.Hex()},
		"programId":      s.p1.ID.Hex(),
		"title":          "Attend networking event",
		"category":       "networking",
		"startDate":      start,
		"endDate":        start.AddDate(0, 0, 14),
	})
	require.Equal(t, http.StatusMultiStatus, rec.Code, rec.Body.String())
	var result services.AssignResult
	decode(t, rec, &result)
	require.Len(t, result.Created, 1)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, s.maria.ID, result.Failed[0].UserID)

	id := result.Created[0].ID.Hex()
	rec = s.do(t, s.jessica, "POST", "/milestones/"+id+"/decline", map[string]string{"reason": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, s.jessica, "POST", "/milestones/"+id+"/decline", map[string]string{"reason": "Schedule conflict"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(t, s.jessica, "POST", "/milestones/"+id+"/accept", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, s.emily, "GET", "/programs/"+s.p1.ID.Hex()+"/declines", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var declined []models.Milestone
	decode(t, rec, &declined)
	assert.Len(t, declined, 1)

	rec = s.do(t, s.emily, "POST", "/milestones/"+id+"/decline-response", map[string]interface{}{
		"accepted": true, "comment": "Understood",
	})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestExpenseEditsByStaffNeedReason(t *testing.T) {
	s := newServer(t)
	start := time.Now().UTC().Truncate(time.Second)
	cycles := "/users/" + s.jessica.ID.Hex() + "/cycles"

	rec := s.do(t, s.jessica, "POST", cycles, map[string]interface{}{
		"budget": 2500, "startDate": start, "endDate": start.AddDate(0, 3, 0),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var cycle services.CycleView
	decode(t, rec, &cycle)

	rec = s.do(t, s.jessica, "POST", "/cycles/"+cycle.ID.Hex()+"/expenses", map[string]interface{}{
		"date": start, "item": "Laptop", "amount": 649.99,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decode(t, rec, &cycle)
	require.Len(t, cycle.Expenses, 1)
	expensePath := "/cycles/" + cycle.ID.Hex() + "/expenses/" + cycle.Expenses[0].ID.Hex()

	edit := map[string]interface{}{"date": start, "item": "Laptop", "amount": 600}
	assert.Equal(t, http.StatusBadRequest, s.do(t, s.emily, "PUT", expensePath, edit).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, s.sarah, "PUT", expensePath, edit).Code)

	edit["reason"] = "Matched receipt"
	rec = s.do(t, s.emily, "PUT", expensePath, edit)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &cycle)
	assert.InDelta(t, 600, cycle.Summary.TotalSpent, 0.001)

	rec = s.do(t, s.emily, "GET", "/users/"+s.jessica.ID.Hex()+"/cycles/active", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusBadRequest, s.do(t, s.emily, "DELETE", expensePath, nil).Code)
	rec = s.do(t, s.emily, "DELETE", expensePath+"?reason=Duplicate", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, s.admin, "GET", "/audit?action="+models.ActionEditExpense, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []models.AuditLogEntry
	decode(t, rec, &entries)
	assert.Len(t, entries, 1)

	assert.Equal(t, http.StatusForbidden, s.do(t, s.jessica, "GET", "/audit", nil).Code)
}

func TestExportDownload(t *testing.T) {
	s := newServer(t)

	req := httptest.NewRequest("GET", "/export?format=csv&programId="+s.p1.ID.Hex(), nil)
	req.Header.Set("X-User", s.emily.ID.Hex())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "spring-cohort-")
	assert.True(t, strings.Contains(rec.Body.String(), "jessica"))

	assert.Equal(t, http.StatusBadRequest, s.do(t, s.emily, "GET", "/export?format=pdf&programId="+s.p1.ID.Hex(), nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, s.sarah, "GET", "/export?programId="+s.p1.ID.Hex(), nil).Code)
}

func TestStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(services.ErrInvalidInput))
	assert.Equal(t, http.StatusForbidden, statusFor(services.ErrForbidden))
	assert.Equal(t, http.StatusNotFound, statusFor(services.ErrNotFound))
	assert.Equal(t, http.StatusConflict, statusFor(services.ErrConflict))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
