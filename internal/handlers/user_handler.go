package handlers

import (
	"net/http"

	"github.com/goldenbridgewomen/gbw-tracker/internal/config"
	"github.com/goldenbridgewomen/gbw-tracker/internal/services"
	jwtutil "github.com/goldenbridgewomen/gbw-tracker/pkg/jwt"
	log "github.com/sirupsen/logrus"
)

// UserHandler handles registration, login and user profiles.
type UserHandler struct {
	Service *services.UserService
	Config  *config.Config
}

func NewUserHandler(service *services.UserService, cfg *config.Config) *UserHandler {
	return &UserHandler{
		Service: service,
		Config:  cfg,
	}
}

// RegisterUserHandler handles self-registration, optionally with an invite code.
func (h *UserHandler) RegisterUserHandler(w http.ResponseWriter, r *http.Request) {
	log.Info("RegisterUserHandler called")
	var in services.RegisterInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.InviteCode == "" {
		in.InviteCode = r.URL.Query().Get("invite")
	}

	reg, err := h.Service.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	log.WithField("userID", reg.ID.Hex()).Info("User registered successfully")
	writeJSON(w, http.StatusCreated, reg)
}

// LoginUserHandler exchanges credentials for a JWT.
func (h *UserHandler) LoginUserHandler(w http.ResponseWriter, r *http.Request) {
	log.Info("LoginUserHandler called")
	var credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &credentials) {
		return
	}

	user, err := h.Service.Authenticate(r.Context(), credentials.Email, credentials.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, err := jwtutil.GenerateToken(user.ID.Hex(), user.Email, user.Role.String(), h.Config.JWTSecret, h.Config.TokenExpiry)
	if err != nil {
		log.WithError(err).Error("Failed to generate JWT token")
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	log.WithField("userID", user.ID.Hex()).Info("User logged in successfully")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// MeHandler returns the authenticated user.
func (h *UserHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, actor)
}

// GetUserHandler returns a profile visible to the actor.
func (h *UserHandler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	user, err := h.Service.GetUser(r.Context(), actor, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateProfileHandler lets the actor change their display name.
func (h *UserHandler) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	user, err := h.Service.UpdateProfile(r.Context(), actor, body.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ListUsersHandler is admin only.
func (h *UserHandler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	users, err := h.Service.ListUsers(r.Context(), actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// CreateUserHandler lets admins provision managers and other accounts.
func (h *UserHandler) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	var in services.CreateUserInput
	if !decodeJSON(w, r, &in) {
		return
	}
	user, err := h.Service.CreateUser(r.Context(), actor, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// LookupUserHandler finds a user by ?email= for enrolment.
func (h *UserHandler) LookupUserHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentActor(w, r)
	if !ok {
		return
	}
	user, err := h.Service.FindUserByEmail(r.Context(), actor, r.URL.Query().Get("email"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
