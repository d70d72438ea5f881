package domain

import (
	"errors"
	"fmt"
)

var ErrInvalidRole = errors.New("invalid role")

// ConnID identifies one live client connection. Assigned by the server,
// opaque to clients.
type ConnID string

type Role string

const (
	RoleNone        Role = ""
	RolePeer        Role = "peer"
	RoleBroadcaster Role = "broadcaster"
	RoleViewer      Role = "viewer"
)

func ParseRole(raw string) (Role, error) {
	switch r := Role(raw); r {
	case RoleNone, RolePeer, RoleBroadcaster, RoleViewer:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
}

// Member represents a connection's participation in a room.
// No transport or lifecycle logic here.
type Member struct {
	ID   ConnID `json:"id"`
	Role Role   `json:"role"`
}

func NewMember(id ConnID, role Role) Member {
	return Member{ID: id, Role: role}
}
