// Package domain contains entities without logic, just meta-data and
// validation of client-supplied identifiers.
package domain

import (
	"errors"
	"strings"
)

const MaxRoomIDLen = 128

var (
	ErrRoomIDEmpty      = errors.New("room id empty")
	ErrRoomIDTooLong    = errors.New("room id too long")
	ErrRoomNotFound     = errors.New("room not found")
	ErrDuplicateRole    = errors.New("room already has a broadcaster")
	ErrTopologyMismatch = errors.New("role does not fit room topology")
	ErrNotJoined        = errors.New("connection is not in a room")
)

type RoomID string

// Topology decides how members of a room relate to each other.
type Topology string

const (
	// TopologyMesh makes every member a peer of every other member.
	TopologyMesh Topology = "mesh"
	// TopologyBroadcast has one broadcaster and any number of viewers.
	TopologyBroadcast Topology = "broadcast"
)

func (t Topology) Valid() bool {
	return t == TopologyMesh || t == TopologyBroadcast
}

// TopologyFor picks the topology of a room created by a join with the given
// role. An explicit broadcaster/viewer role always means broadcast.
func TopologyFor(role Role, fallback Topology) Topology {
	switch role {
	case RoleBroadcaster, RoleViewer:
		return TopologyBroadcast
	case RolePeer:
		return TopologyMesh
	}
	return fallback
}

func NewRoomID(raw string) (RoomID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrRoomIDEmpty
	}
	if len(raw) > MaxRoomIDLen {
		return "", ErrRoomIDTooLong
	}
	return RoomID(raw), nil
}
