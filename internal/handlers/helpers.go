package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"github.com/goldenbridgewomen/gbw-tracker/internal/services"
	"github.com/goldenbridgewomen/gbw-tracker/pkg/middleware"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxJSONBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}

// statusFor maps service sentinels onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and replies with its mapped status. Internal errors are not echoed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	entry := log.WithFields(log.Fields{
		"path":       r.URL.Path,
		"status":     status,
		"request_id": middleware.RequestIDFromContext(r.Context()),
	}).WithError(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		entry.Error("Request failed")
		msg = "Internal server error"
	} else {
		entry.Warn("Request rejected")
	}
	http.Error(w, msg, status)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		log.WithError(err).Warn("Failed to decode request body")
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return false
	}
	return true
}

// currentActor returns the user loaded by ActorMiddleware, replying 401 when absent.
func currentActor(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	actor := middleware.ActorFromContext(r.Context())
	if actor == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	return actor, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)[name])
	if err != nil {
		http.Error(w, "Invalid "+name, http.StatusBadRequest)
		return primitive.NilObjectID, false
	}
	return id, true
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil {
		http.Error(w, "Invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return n, true
}

// queryID parses an optional id query parameter. An empty value yields nil.
func queryID(w http.ResponseWriter, r *http.Request, name string) (*primitive.ObjectID, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, true
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		http.Error(w, "Invalid "+name, http.StatusBadRequest)
		return nil, false
	}
	return &id, true
}

func message(text string) map[string]string {
	return map[string]string{"message": text}
}
