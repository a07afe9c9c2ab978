package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents an account in the tracker.
//
// ProgramIDs lists the programs the user participates in. ManagedProgramIDs is only
// meaningful for program managers.
type User struct {
	ID                primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name              string               `bson:"name" json:"name"`
	Email             string               `bson:"email" json:"email"`
	HashedPassword    string               `bson:"hashed_password" json:"-"`
	Role              Role                 `bson:"role" json:"role"`
	ProgramIDs        []primitive.ObjectID `bson:"program_ids" json:"programIds"`
	ManagedProgramIDs []primitive.ObjectID `bson:"managed_program_ids" json:"managedProgramIds"`
	LastActiveAt      time.Time            `bson:"last_active_at,omitempty" json:"lastActiveAt,omitempty"`
	CreatedAt         time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt         time.Time            `bson:"updated_at" json:"updatedAt"`
}

// PublicUser is the trimmed view returned in rosters.
type PublicUser struct {
	ID    primitive.ObjectID `json:"id"`
	Name  string             `json:"name"`
	Email string             `json:"email"`
	Role  Role               `json:"role"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

// ContainsID reports whether id is present in ids.
func ContainsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// AddID appends id unless it is already present.
func AddID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	if ContainsID(ids, id) {
		return ids
	}
	return append(ids, id)
}

// RemoveID returns ids without id.
func RemoveID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
