package core

import (
	"errors"

	"github.com/dkeye/Rendezvous/internal/domain"
)

// ErrRoomClosed is returned by AddMember once a room has been torn down.
// Callers get a fresh room from the manager and retry.
var ErrRoomClosed = errors.New("room closed")

type JoinResult struct {
	Member   domain.Member
	Topology domain.Topology
	// Others are the members present before the join, in join order.
	Others      []domain.Member
	Broadcaster domain.ConnID
	// Rejoined is set when the connection was already a member with the same role.
	Rejoined bool
}

type LeaveResult struct {
	Member domain.Member
	// Remaining members after the leave, in join order. Empty when evicted.
	Remaining []domain.Member
	// Evicted viewers when the broadcaster left a broadcast room.
	Evicted         []domain.Member
	BroadcasterGone bool
	Emptied         bool
}

// Closed reports whether the room was torn down by this leave.
func (r LeaveResult) Closed() bool { return r.Emptied || r.BroadcasterGone }

// Hooks run while the room lock is held so that notifications are queued in
// the order mutations are applied. They must not call back into the room.
type (
	JoinHook  func(JoinResult)
	LeaveHook func(LeaveResult)
)

type RoomInfo struct {
	ID             domain.RoomID   `json:"id"`
	Topology       domain.Topology `json:"topology"`
	MemberCount    int             `json:"memberCount"`
	HasBroadcaster bool            `json:"hasBroadcaster"`
}

// RoomService is the core-facing API of a room.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	ID() domain.RoomID
	Topology() domain.Topology
	Info() RoomInfo
	MemberCount() int
	Members() []domain.Member
	Member(id domain.ConnID) (domain.Member, bool)
	Broadcaster() (domain.ConnID, bool)
	Closed() bool

	AddMember(m domain.Member, hook JoinHook) (JoinResult, error)
	// CanAdmit reports whether AddMember would accept m, ignoring any
	// membership m already has here. A closed room admits nobody.
	CanAdmit(m domain.Member) error
	RemoveMember(id domain.ConnID, hook LeaveHook) (LeaveResult, bool)
	// CloseIfEmpty tears the room down when nobody is in it.
	CloseIfEmpty() bool
}

type RoomManager interface {
	GetOrCreate(id domain.RoomID, topology domain.Topology) RoomService
	Get(id domain.RoomID) (RoomService, bool)
	Join(id domain.RoomID, topology domain.Topology, m domain.Member, hook JoinHook) (RoomService, JoinResult, error)
	Leave(id domain.RoomID, conn domain.ConnID, hook LeaveHook) (LeaveResult, bool)
	MembersOf(id domain.RoomID, excluding domain.ConnID) []domain.ConnID
	List() []RoomInfo
	Count() int
}
