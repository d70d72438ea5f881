package orch

import (
	"errors"
	"fmt"

	"github.com/dkeye/Rendezvous/internal/app"
	"github.com/dkeye/Rendezvous/internal/core"
	"github.com/dkeye/Rendezvous/internal/domain"
	"github.com/rs/zerolog/log"
)

// Join puts sid into roomID, creating the room on first reference. A
// connection is in at most one room: joining another room (or the same one
// with a different role) leaves the current room first, once the target
// room is known to accept it.
func (o *Orchestrator) Join(sid domain.ConnID, roomID domain.RoomID, role domain.Role) error {
	logger := log.With().Str("module", "orch").Str("sid", string(sid)).Str("room", string(roomID)).Logger()
	if !o.Registry.IsOpen(sid) {
		return app.ErrNotFound
	}

	if cur, ok := o.Registry.RoomOf(sid); ok {
		if cur == roomID && o.resendJoined(sid, roomID, role) {
			logger.Debug().Msg("already joined")
			return nil
		}
		if err := o.admissible(roomID, domain.NewMember(sid, role)); err != nil {
			logger.Info().Err(err).Str("role", string(role)).Msg("join rejected, staying in current room")
			return err
		}
		if err := o.Leave(sid); err != nil {
			logger.Debug().Err(err).Msg("leave before join")
		}
		logger.Info().Str("from_room", string(cur)).Msg("left previous room")
	}

	bound := false
	topology := domain.TopologyFor(role, o.DefaultTopology)
	_, res, err := o.Rooms.Join(roomID, topology, domain.NewMember(sid, role), func(res core.JoinResult) {
		bound = o.Registry.BindRoom(sid, roomID)
		o.Lifecycle.NotifyMembers(res.Others, domain.MemberJoined(res.Member), sid)
		_ = o.Lifecycle.Send(sid, domain.Joined(roomID, res.Member, res.Topology, res.Broadcaster, res.Others))
	})
	if err != nil {
		logger.Info().Err(err).Str("role", string(role)).Msg("join rejected")
		return err
	}
	if res.Rejoined {
		bound = o.Registry.BindRoom(sid, roomID)
		_ = o.Lifecycle.Send(sid, domain.Joined(roomID, res.Member, res.Topology, res.Broadcaster, res.Others))
	}
	if !bound {
		// The connection closed while joining and its disconnect found no room.
		logger.Info().Msg("connection closed during join, undoing")
		o.leaveRoom(sid, roomID)
		return app.ErrNotFound
	}
	logger.Info().Str("role", string(res.Member.Role)).Int("others", len(res.Others)).Msg("joined")
	return nil
}

// admissible checks the target room before the current one is left, so a
// rejected join leaves membership untouched. A missing room admits anyone.
func (o *Orchestrator) admissible(roomID domain.RoomID, m domain.Member) error {
	room, ok := o.Rooms.Get(roomID)
	if !ok {
		return nil
	}
	if err := room.CanAdmit(m); err != nil && !errors.Is(err, core.ErrRoomClosed) {
		return fmt.Errorf("join %s: %w", roomID, err)
	}
	return nil
}

func (o *Orchestrator) resendJoined(sid domain.ConnID, roomID domain.RoomID, role domain.Role) bool {
	room, ok := o.Rooms.Get(roomID)
	if !ok {
		return false
	}
	m, ok := room.Member(sid)
	if !ok || (role != domain.RoleNone && role != m.Role) {
		return false
	}
	others := make([]domain.Member, 0)
	for _, other := range room.Members() {
		if other.ID != sid {
			others = append(others, other)
		}
	}
	bc, _ := room.Broadcaster()
	_ = o.Lifecycle.Send(sid, domain.Joined(roomID, m, room.Topology(), bc, others))
	return true
}

// Leave is the explicit leave; the connection stays open and gets a left event.
func (o *Orchestrator) Leave(sid domain.ConnID) error {
	roomID, ok := o.leave(sid)
	if !ok {
		return domain.ErrNotJoined
	}
	_ = o.Lifecycle.Send(sid, domain.Left(roomID))
	return nil
}

func (o *Orchestrator) leave(sid domain.ConnID) (domain.RoomID, bool) {
	roomID, ok := o.Registry.TakeRoom(sid)
	if !ok {
		return "", false
	}
	o.leaveRoom(sid, roomID)
	return roomID, true
}

func (o *Orchestrator) leaveRoom(sid domain.ConnID, roomID domain.RoomID) {
	res, ok := o.Rooms.Leave(roomID, sid, func(res core.LeaveResult) {
		switch {
		case res.BroadcasterGone:
			for _, v := range res.Evicted {
				o.Registry.TakeRoomIf(v.ID, roomID)
			}
			o.Lifecycle.NotifyMembers(res.Evicted, domain.BroadcasterGone(roomID), sid)
		case !res.Emptied:
			o.Lifecycle.NotifyMembers(res.Remaining, domain.MemberLeft(sid), sid)
		}
	})
	if !ok {
		return
	}
	log.Info().
		Str("module", "orch").
		Str("sid", string(sid)).
		Str("room", string(roomID)).
		Bool("room_closed", res.Closed()).
		Int("evicted", len(res.Evicted)).
		Msg("left room")
}
