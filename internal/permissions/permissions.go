// Package permissions decides who may see or change whose data.
//
// Every function is pure: callers pass the acting user and the programs that relate the
// actor to the target, and get a boolean back. This is the only package that inspects
// user roles.
package permissions

import (
	"github.com/goldenbridgewomen/gbw-tracker/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func IsAdmin(u *models.User) bool {
	return u != nil && u.Role == models.RoleAdmin
}

func IsManager(u *models.User) bool {
	return u != nil && u.Role == models.RoleProgramManager
}

func IsParticipant(u *models.User) bool {
	return u != nil && u.Role == models.RoleParticipant
}

// ManagerOf reports whether managerID is in the program's manager set.
func ManagerOf(managerID primitive.ObjectID, p *models.Program) bool {
	return p != nil && models.ContainsID(p.ManagerIDs, managerID)
}

// ParticipantOf reports whether userID is in the program's participant set.
func ParticipantOf(userID primitive.ObjectID, p *models.Program) bool {
	return p != nil && models.ContainsID(p.ParticipantIDs, userID)
}

// SharedProgram holds when some program is managed by managerID and has targetID enrolled.
func SharedProgram(managerID, targetID primitive.ObjectID, programs []models.Program) bool {
	return len(SharedPrograms(managerID, targetID, programs)) > 0
}

// SharedPrograms lists every program through which managerID manages targetID.
func SharedPrograms(managerID, targetID primitive.ObjectID, programs []models.Program) []primitive.ObjectID {
	var ids []primitive.ObjectID
	for i := range programs {
		if ManagerOf(managerID, &programs[i]) && ParticipantOf(targetID, &programs[i]) {
			ids = append(ids, programs[i].ID)
		}
	}
	return ids
}

// canReach is the shared rule behind the financial and milestone checks: the actor is the
// target, an admin, or a manager of a program the target is enrolled in.
func canReach(actor *models.User, targetID primitive.ObjectID, programs []models.Program) bool {
	if actor == nil {
		return false
	}
	if actor.ID == targetID || IsAdmin(actor) {
		return true
	}
	return IsManager(actor) && SharedProgram(actor.ID, targetID, programs)
}

func CanViewFinancialData(actor *models.User, targetID primitive.ObjectID, programs []models.Program) bool {
	return canReach(actor, targetID, programs)
}

func CanEditFinancialData(actor *models.User, targetID primitive.ObjectID, programs []models.Program) bool {
	return canReach(actor, targetID, programs)
}

func CanViewMilestones(actor *models.User, targetID primitive.ObjectID, programs []models.Program) bool {
	return canReach(actor, targetID, programs)
}

func CanAssignMilestones(actor *models.User, targetID primitive.ObjectID, programs []models.Program) bool {
	return canReach(actor, targetID, programs)
}

func CanEditMilestones(actor *models.User, targetID primitive.ObjectID, programs []models.Program) bool {
	return canReach(actor, targetID, programs)
}

// CanViewUser gates profile lookups with the same reach rule.
func CanViewUser(actor *models.User, targetID primitive.ObjectID, programs []models.Program) bool {
	return canReach(actor, targetID, programs)
}

// CanProvideFeedback is role gated: participants never give feedback, not even on their own reports.
func CanProvideFeedback(actor *models.User, targetID primitive.ObjectID, programs []models.Program) bool {
	if !IsAdmin(actor) && !IsManager(actor) {
		return false
	}
	return canReach(actor, targetID, programs)
}

// CanManageProgram uses the actor's own managed list, not the program's manager set.
func CanManageProgram(actor *models.User, programID primitive.ObjectID) bool {
	if IsAdmin(actor) {
		return true
	}
	return IsManager(actor) && models.ContainsID(actor.ManagedProgramIDs, programID)
}

// CanCreateProgram has no self-access exception.
func CanCreateProgram(actor *models.User) bool {
	return IsAdmin(actor)
}

func CanAssignProgramManagers(actor *models.User) bool {
	return IsAdmin(actor)
}

func CanListAllUsers(actor *models.User) bool {
	return IsAdmin(actor)
}

// CanCreateUsers allows admins to provision accounts with an explicit role.
func CanCreateUsers(actor *models.User) bool {
	return IsAdmin(actor)
}

// CanLookupUsers covers email lookups used when enrolling participants.
func CanLookupUsers(actor *models.User) bool {
	return IsAdmin(actor) || IsManager(actor)
}

func CanInviteParticipants(actor *models.User, programID primitive.ObjectID) bool {
	return CanManageProgram(actor, programID)
}

// CanViewProgram lets anyone who manages or is enrolled in a program read it.
func CanViewProgram(actor *models.User, p *models.Program) bool {
	if actor == nil || p == nil {
		return false
	}
	return IsAdmin(actor) || ManagerOf(actor.ID, p) || ParticipantOf(actor.ID, p) ||
		CanManageProgram(actor, p.ID)
}

// CanManageTemplates covers creating milestone templates.
func CanManageTemplates(actor *models.User) bool {
	return IsAdmin(actor) || IsManager(actor)
}

// CanExportData scopes exports. A nil programID means an unscoped export; a nil targetID
// means the whole program rather than one user.
func CanExportData(actor *models.User, programID, targetID *primitive.ObjectID) bool {
	switch {
	case actor == nil:
		return false
	case IsAdmin(actor):
		return true
	case IsManager(actor):
		return programID != nil && models.ContainsID(actor.ManagedProgramIDs, *programID)
	case IsParticipant(actor):
		return programID == nil && targetID != nil && *targetID == actor.ID
	}
	return false
}

// AuditScope is the filter an actor asks the audit log for.
type AuditScope struct {
	UserID    *primitive.ObjectID
	ProgramID *primitive.ObjectID
}

// CanViewAuditLog lets admins read everything, managers read the trail of programs they
// manage and participants read only entries about themselves.
func CanViewAuditLog(actor *models.User, scope AuditScope) bool {
	switch {
	case actor == nil:
		return false
	case IsAdmin(actor):
		return true
	case IsManager(actor):
		return scope.ProgramID != nil && models.ContainsID(actor.ManagedProgramIDs, *scope.ProgramID)
	case IsParticipant(actor):
		return scope.ProgramID == nil && scope.UserID != nil && *scope.UserID == actor.ID
	}
	return false
}

// ListScope says which programs an actor may list.
type ListScope int

const (
	ListNone ListScope = iota
	ListAll
	ListManaged
	ListEnrolled
)

// ProgramListScope maps the actor's role onto the set of programs they may list.
func ProgramListScope(actor *models.User) ListScope {
	switch {
	case IsAdmin(actor):
		return ListAll
	case IsManager(actor):
		return ListManaged
	case IsParticipant(actor):
		return ListEnrolled
	}
	return ListNone
}
