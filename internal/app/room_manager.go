package app

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/dkeye/Rendezvous/internal/core"
	"github.com/dkeye/Rendezvous/internal/domain"
	"github.com/rs/zerolog/log"
)

// RoomManagerImpl is the room/session store. The map lock only guards
// lookup and deletion; membership is serialized by each room's own lock.
type RoomManagerImpl struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]core.RoomService
}

func NewRoomManager() *RoomManagerImpl {
	return &RoomManagerImpl{rooms: make(map[domain.RoomID]core.RoomService)}
}

var _ core.RoomManager = (*RoomManagerImpl)(nil)

// GetOrCreate returns the live room for id, creating it on first reference.
// The topology only applies when the room is created.
func (f *RoomManagerImpl) GetOrCreate(id domain.RoomID, topology domain.Topology) core.RoomService {
	f.mu.RLock()
	room, ok := f.rooms[id]
	f.mu.RUnlock()
	if ok && !room.Closed() {
		return room
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if room, ok = f.rooms[id]; ok && !room.Closed() {
		return room
	}
	room = core.NewRoomService(id, topology)
	f.rooms[id] = room
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Str("topology", string(topology)).Msg("room created")
	return room
}

func (f *RoomManagerImpl) Get(id domain.RoomID) (core.RoomService, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	room, ok := f.rooms[id]
	if !ok || room.Closed() {
		return nil, false
	}
	return room, true
}

func (f *RoomManagerImpl) Join(
	id domain.RoomID,
	topology domain.Topology,
	m domain.Member,
	hook core.JoinHook,
) (core.RoomService, core.JoinResult, error) {
	for {
		room := f.GetOrCreate(id, topology)
		res, err := room.AddMember(m, hook)
		if errors.Is(err, core.ErrRoomClosed) {
			f.drop(room)
			continue
		}
		if err != nil {
			if room.CloseIfEmpty() {
				f.drop(room)
			}
			return nil, core.JoinResult{}, fmt.Errorf("join %s: %w", id, err)
		}
		return room, res, nil
	}
}

func (f *RoomManagerImpl) Leave(id domain.RoomID, conn domain.ConnID, hook core.LeaveHook) (core.LeaveResult, bool) {
	room, ok := f.Get(id)
	if !ok {
		return core.LeaveResult{}, false
	}
	res, ok := room.RemoveMember(conn, hook)
	if ok && res.Closed() {
		f.drop(room)
	}
	return res, ok
}

// MembersOf lists member ids in join order, minus excluding.
func (f *RoomManagerImpl) MembersOf(id domain.RoomID, excluding domain.ConnID) []domain.ConnID {
	room, ok := f.Get(id)
	if !ok {
		return nil
	}
	members := room.Members()
	out := make([]domain.ConnID, 0, len(members))
	for _, m := range members {
		if m.ID != excluding {
			out = append(out, m.ID)
		}
	}
	return out
}

func (f *RoomManagerImpl) drop(room core.RoomService) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cur, ok := f.rooms[room.ID()]; ok && cur == room {
		delete(f.rooms, room.ID())
		log.Info().Str("module", "app.rooms").Str("room", string(room.ID())).Msg("room deleted")
	}
}

func (f *RoomManagerImpl) List() []core.RoomInfo {
	f.mu.RLock()
	out := make([]core.RoomInfo, 0, len(f.rooms))
	for _, r := range f.rooms {
		if !r.Closed() {
			out = append(out, r.Info())
		}
	}
	f.mu.RUnlock()
	slices.SortFunc(out, func(a, b core.RoomInfo) int { return strings.Compare(string(a.ID), string(b.ID)) })
	return out
}

func (f *RoomManagerImpl) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, r := range f.rooms {
		if !r.Closed() {
			n++
		}
	}
	return n
}
