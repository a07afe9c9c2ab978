package models

import (
	"fmt"
	"strings"
)

// Role is the account type of a user. It is fixed at creation time.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleProgramManager Role = "program_manager"
	RoleParticipant    Role = "participant"
)

// ParseRole validates a role string coming from a request or a seed file.
func ParseRole(s string) (Role, error) {
	switch Role(strings.TrimSpace(s)) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleProgramManager:
		return RoleProgramManager, nil
	case RoleParticipant:
		return RoleParticipant, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string { return string(r) }
