package orch

import (
	"github.com/dkeye/Rendezvous/internal/core"
	"github.com/dkeye/Rendezvous/internal/domain"
	"github.com/rs/zerolog/log"
)

// Relay forwards an opaque signal from sid. Delivery is at most once and
// unacknowledged: a vanished target is dropped silently. The one surfaced
// failure is a viewer with no broadcaster to talk to, which gets no-target.
func (o *Orchestrator) Relay(sid domain.ConnID, sig domain.Signal) error {
	roomID, ok := o.Registry.RoomOf(sid)
	if !ok {
		return domain.ErrNotJoined
	}
	logger := log.With().
		Str("module", "orch").
		Str("sid", string(sid)).
		Str("room", string(roomID)).
		Str("signal", string(sig.Type)).
		Logger()

	room, ok := o.Rooms.Get(roomID)
	if !ok {
		logger.Debug().Msg("relay dropped, room gone")
		return nil
	}
	me, ok := room.Member(sid)
	if !ok {
		return domain.ErrNotJoined
	}

	targets, noTarget := o.targets(room, me, sig.TargetID)
	if noTarget {
		logger.Info().Msg("no broadcaster in room")
		_ = o.Lifecycle.Send(sid, domain.NoTarget(roomID))
		return nil
	}
	if len(targets) == 0 {
		logger.Debug().Str("target", string(sig.TargetID)).Msg("relay dropped, no such target")
		return nil
	}

	f, err := domain.SignalFrom(sid, sig).Encode()
	if err != nil {
		return err
	}
	sent := o.Lifecycle.Deliver(targets, core.Frame(f))
	logger.Debug().Int("targets", len(targets)).Int("sent_to", sent).Msg("relayed")
	return nil
}

// targets resolves who receives a signal from me. noTarget is reported only
// for a viewer whose room has no broadcaster.
func (o *Orchestrator) targets(room core.RoomService, me domain.Member, target domain.ConnID) ([]domain.ConnID, bool) {
	if target == me.ID {
		return nil, false
	}

	if room.Topology() == domain.TopologyBroadcast && me.Role == domain.RoleViewer {
		bc, ok := room.Broadcaster()
		if !ok {
			return nil, true
		}
		// Viewers only talk to the broadcaster.
		if target != "" && target != bc {
			return nil, false
		}
		return []domain.ConnID{bc}, false
	}

	if target != "" {
		if _, ok := room.Member(target); !ok {
			return nil, false
		}
		return []domain.ConnID{target}, false
	}

	members := room.Members()
	out := make([]domain.ConnID, 0, len(members))
	for _, m := range members {
		if m.ID != me.ID {
			out = append(out, m.ID)
		}
	}
	return out, false
}
