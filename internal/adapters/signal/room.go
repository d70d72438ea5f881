package signal

import (
	"github.com/dkeye/Rendezvous/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleJoin(sid domain.ConnID, msg Message) {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", string(msg.RoomID)).Str("role", string(msg.Role)).Msg("join")
	if err := ctl.Orch.Join(sid, msg.RoomID, msg.Role); err != nil {
		ctl.fail(sid, err)
	}
}

// handleRoleAnnounce joins with a role. Without a room id it re-announces
// in the current room.
func (ctl *SignalWSController) handleRoleAnnounce(sid domain.ConnID, msg Message) {
	if msg.RoomID == "" {
		cur, ok := ctl.Orch.Registry.RoomOf(sid)
		if !ok {
			ctl.fail(sid, domain.ErrNotJoined)
			return
		}
		msg.RoomID = cur
	}
	ctl.handleJoin(sid, msg)
}

// handleLeave leaves the current room; the connection stays open.
func (ctl *SignalWSController) handleLeave(sid domain.ConnID) {
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("leave")
	if err := ctl.Orch.Leave(sid); err != nil {
		ctl.fail(sid, err)
	}
}
