package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"github.com/goldenbridgewomen/gbw-tracker/internal/permissions"
	"github.com/goldenbridgewomen/gbw-tracker/internal/repository"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/logger"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/sanitize"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrInvalidCredentials is returned by Authenticate for any unknown email or wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

const minPasswordLength = 8

// InviteAcceptor enrols a freshly registered user through an invite code.
type InviteAcceptor interface {
	CheckInvite(ctx context.Context, code, email string) (*models.Invite, error)
	AcceptInvite(ctx context.Context, user *models.User, code string) error
}

// UserService encapsulates the business logic for user operations.
type UserService struct {
	repo    repository.UserStore
	rel     relations
	invites InviteAcceptor
}

// NewUserService creates a new instance of UserService. invites may be nil, in which case
// invite codes are rejected.
func NewUserService(repo repository.UserStore, programs repository.ProgramStore, invites InviteAcceptor) *UserService {
	return &UserService{
		repo:    repo,
		rel:     relations{programs: programs},
		invites: invites,
	}
}

type RegisterInput struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	InviteCode string `json:"inviteCode"`
}

type CreateUserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Registration is the new account plus, when the invite could not be applied after the
// account was created, the reason it was not enrolled.
type Registration struct {
	*models.User
	InviteError string `json:"inviteError,omitempty"`
}

// Register creates a participant account. Self-registration never grants another role.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*Registration, error) {
	logrus.Info("Registering new user")

	code := strings.TrimSpace(in.InviteCode)
	if code != "" {
		if s.invites == nil {
			return nil, invalidf("invites are not enabled")
		}
		if _, err := s.invites.CheckInvite(ctx, code, in.Email); err != nil {
			return nil, err
		}
	}

	user, err := s.create(ctx, in.Name, in.Email, in.Password, models.RoleParticipant)
	if err != nil {
		return nil, err
	}

	if code != "" {
		if err := s.invites.AcceptInvite(ctx, user, code); err != nil {
			logger.Log.WithError(err).WithField("user_id", user.ID.Hex()).Warn("Registered user but invite acceptance failed")
			return &Registration{User: user, InviteError: err.Error()}, nil
		}
		if fresh, err := s.repo.GetUserByID(ctx, user.ID); err == nil {
			user = fresh
		}
	}
	return &Registration{User: user}, nil
}

// CreateUser provisions an account with an explicit role. Admin only.
func (s *UserService) CreateUser(ctx context.Context, actor *models.User, in CreateUserInput) (*models.User, error) {
	if !permissions.CanCreateUsers(actor) {
		return nil, forbiddenf("only admins can create users")
	}
	role, err := models.ParseRole(in.Role)
	if err != nil {
		return nil, invalidf("%v", err)
	}
	return s.create(ctx, in.Name, in.Email, in.Password, role)
}

func (s *UserService) create(ctx context.Context, name, email, password string, role models.Role) (*models.User, error) {
	name = sanitize.Text(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" || email == "" || password == "" {
		logrus.Warn("Missing required fields during registration")
		return nil, invalidf("name, email and password are required")
	}
	if !emailRegex.MatchString(email) {
		logrus.WithField("email", email).Warn("Invalid email format during registration")
		return nil, invalidf("invalid email format")
	}
	if len(password) < minPasswordLength {
		return nil, invalidf("password must be at least %d characters", minPasswordLength)
	}

	switch _, err := s.repo.GetUserByEmail(ctx, email); {
	case err == nil:
		logrus.WithField("email", email).Warn("Email already in use")
		return nil, conflictf("email already in use")
	case !errors.Is(err, repository.ErrNotFound):
		logrus.WithError(err).Error("Failed to check for an existing user")
		return nil, storeErr(err, "user")
	}

	hashedPwd, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logrus.WithError(err).Error("Password hashing failed")
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:              name,
		Email:             email,
		HashedPassword:    string(hashedPwd),
		Role:              role,
		ProgramIDs:        []primitive.ObjectID{},
		ManagedProgramIDs: []primitive.ObjectID{},
	}
	created, err := s.repo.CreateUser(ctx, user)
	if err != nil {
		logrus.WithError(err).Error("User registration failed")
		return nil, storeErr(err, "user")
	}

	logrus.WithFields(logrus.Fields{
		"user_id": created.ID.Hex(),
		"role":    created.Role,
	}).Info("User registered successfully")
	return created, nil
}

// Authenticate checks an email and password pair.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, storeErr(err, "user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		logrus.WithField("user_id", user.ID.Hex()).Warn("Password mismatch")
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// GetActor loads the authenticated user for a request.
func (s *UserService) GetActor(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return user, nil
}

func (s *UserService) TouchLastActive(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return s.repo.TouchLastActive(ctx, id, at)
}

// GetUser returns a profile the actor is allowed to see.
func (s *UserService) GetUser(ctx context.Context, actor *models.User, id primitive.ObjectID) (*models.User, error) {
	programs, err := s.rel.of(ctx, id)
	if err != nil {
		return nil, err
	}
	if !permissions.CanViewUser(actor, id, programs) {
		return nil, forbiddenf("cannot view this user")
	}
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return user, nil
}

// ListUsers returns every account. Admin only.
func (s *UserService) ListUsers(ctx context.Context, actor *models.User) ([]models.User, error) {
	if !permissions.CanListAllUsers(actor) {
		return nil, forbiddenf("only admins can list users")
	}
	users, err := s.repo.GetAllUsers(ctx)
	if err != nil {
		return nil, storeErr(err, "users")
	}
	return users, nil
}

// FindUserByEmail is the lookup managers use before enrolling someone.
func (s *UserService) FindUserByEmail(ctx context.Context, actor *models.User, email string) (*models.PublicUser, error) {
	if !permissions.CanLookupUsers(actor) {
		return nil, forbiddenf("cannot look up users")
	}
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	pub := user.Public()
	return &pub, nil
}

// UpdateProfile lets users rename themselves.
func (s *UserService) UpdateProfile(ctx context.Context, actor *models.User, name string) (*models.User, error) {
	name = sanitize.Text(name)
	if name == "" {
		return nil, invalidf("name is required")
	}
	user, err := s.repo.GetUserByID(ctx, actor.ID)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	user.Name = name
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, storeErr(err, "user")
	}
	logrus.WithField("user_id", user.ID.Hex()).Info("Profile updated")
	return user, nil
}
