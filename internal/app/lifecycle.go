package app

import (
	"github.com/dkeye/Rendezvous/internal/core"
	"github.com/dkeye/Rendezvous/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Lifecycle mints session ids and fans membership events out to rooms.
// Delivery is best effort: a member that cannot be reached is already on
// its way out through the registry.
type Lifecycle struct {
	Registry *Registry
	Rooms    core.RoomManager
}

func NewLifecycle(reg *Registry, rooms core.RoomManager) *Lifecycle {
	return &Lifecycle{Registry: reg, Rooms: rooms}
}

// NewSessionID returns a uuid v4, usable both as a room id and as an
// invite code. It does not create a room.
func (l *Lifecycle) NewSessionID() string {
	return uuid.NewString()
}

func (l *Lifecycle) ActiveSessions() int {
	return l.Rooms.Count()
}

// Send delivers a single event.
func (l *Lifecycle) Send(id domain.ConnID, ev domain.Event) error {
	f, err := ev.Encode()
	if err != nil {
		log.Error().Err(err).Str("module", "app.lifecycle").Str("event", string(ev.Type)).Msg("encode event")
		return err
	}
	return l.Registry.Send(id, f)
}

// Deliver sends an already encoded frame to every id and reports how many
// sends were accepted. Failures never stop the loop.
func (l *Lifecycle) Deliver(ids []domain.ConnID, f core.Frame) int {
	sent := 0
	for _, id := range ids {
		if err := l.Registry.Send(id, f); err != nil {
			log.Debug().Err(err).Str("module", "app.lifecycle").Str("sid", string(id)).Msg("delivery skipped")
			continue
		}
		sent++
	}
	return sent
}

func (l *Lifecycle) NotifyMembers(members []domain.Member, ev domain.Event, excluding domain.ConnID) int {
	ids := make([]domain.ConnID, 0, len(members))
	for _, m := range members {
		if m.ID != excluding {
			ids = append(ids, m.ID)
		}
	}
	return l.notify(ids, ev)
}

// NotifyRoom broadcasts ev to the current members of roomID except excluding.
// Membership is read without the room lock, so it gives no ordering against
// concurrent joins and leaves; room hooks use NotifyMembers with their own
// snapshot instead.
func (l *Lifecycle) NotifyRoom(roomID domain.RoomID, ev domain.Event, excluding domain.ConnID) int {
	return l.notify(l.Rooms.MembersOf(roomID, excluding), ev)
}

func (l *Lifecycle) notify(ids []domain.ConnID, ev domain.Event) int {
	if len(ids) == 0 {
		return 0
	}
	f, err := ev.Encode()
	if err != nil {
		log.Error().Err(err).Str("module", "app.lifecycle").Str("event", string(ev.Type)).Msg("encode event")
		return 0
	}
	sent := l.Deliver(ids, f)
	log.Debug().
		Str("module", "app.lifecycle").
		Str("event", string(ev.Type)).
		Int("sent_to", sent).
		Int("dropped", len(ids)-sent).
		Msg("notify result")
	return sent
}
