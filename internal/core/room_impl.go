package core

import (
	"slices"
	"sync"

	"github.com/dkeye/Rendezvous/internal/domain"
	"github.com/rs/zerolog/log"
)

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	id       domain.RoomID
	topology domain.Topology

	mu          sync.Mutex
	order       []domain.ConnID
	members     map[domain.ConnID]domain.Member
	broadcaster domain.ConnID
	closed      bool
}

func NewRoomService(id domain.RoomID, topology domain.Topology) RoomService {
	return &roomImpl{
		id:       id,
		topology: topology,
		members:  make(map[domain.ConnID]domain.Member),
	}
}

func (r *roomImpl) ID() domain.RoomID         { return r.id }
func (r *roomImpl) Topology() domain.Topology { return r.topology }

func (r *roomImpl) Info() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomInfo{
		ID:             r.id,
		Topology:       r.topology,
		MemberCount:    len(r.order),
		HasBroadcaster: r.broadcaster != "",
	}
}

func (r *roomImpl) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

func (r *roomImpl) Members() []domain.Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked("")
}

func (r *roomImpl) Member(id domain.ConnID) (domain.Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[id]
	return m, ok
}

func (r *roomImpl) Broadcaster() (domain.ConnID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.broadcaster, r.broadcaster != ""
}

func (r *roomImpl) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *roomImpl) snapshotLocked(excluding domain.ConnID) []domain.Member {
	out := make([]domain.Member, 0, len(r.order))
	for _, id := range r.order {
		if id == excluding {
			continue
		}
		out = append(out, r.members[id])
	}
	return out
}

// resolveRole maps a requested role onto the room topology.
func (r *roomImpl) resolveRole(role domain.Role) (domain.Role, error) {
	switch r.topology {
	case domain.TopologyMesh:
		if role == domain.RoleNone || role == domain.RolePeer {
			return domain.RolePeer, nil
		}
		return "", domain.ErrTopologyMismatch
	default:
		switch role {
		case domain.RoleNone, domain.RoleViewer:
			return domain.RoleViewer, nil
		case domain.RoleBroadcaster:
			return domain.RoleBroadcaster, nil
		}
		return "", domain.ErrTopologyMismatch
	}
}

func (r *roomImpl) AddMember(m domain.Member, hook JoinHook) (JoinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return JoinResult{}, ErrRoomClosed
	}
	role, err := r.resolveRole(m.Role)
	if err != nil {
		return JoinResult{}, err
	}
	m.Role = role

	if cur, ok := r.members[m.ID]; ok && cur.Role == m.Role {
		return JoinResult{
			Member:      cur,
			Topology:    r.topology,
			Others:      r.snapshotLocked(m.ID),
			Broadcaster: r.broadcaster,
			Rejoined:    true,
		}, nil
	} else if ok {
		// Role change inside the same room is done by the router as leave+join.
		return JoinResult{}, domain.ErrDuplicateRole
	}

	if m.Role == domain.RoleBroadcaster {
		if r.broadcaster != "" {
			log.Info().
				Str("module", "core.room").
				Str("room", string(r.id)).
				Str("sid", string(m.ID)).
				Str("incumbent", string(r.broadcaster)).
				Msg("broadcaster slot taken")
			return JoinResult{}, domain.ErrDuplicateRole
		}
		r.broadcaster = m.ID
	}

	res := JoinResult{Member: m, Topology: r.topology, Others: r.snapshotLocked(""), Broadcaster: r.broadcaster}
	r.order = append(r.order, m.ID)
	r.members[m.ID] = m
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("sid", string(m.ID)).Str("role", string(m.Role)).Msg("member added")

	if hook != nil {
		hook(res)
	}
	return res, nil
}

func (r *roomImpl) CanAdmit(m domain.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRoomClosed
	}
	role, err := r.resolveRole(m.Role)
	if err != nil {
		return err
	}
	if role == domain.RoleBroadcaster && r.broadcaster != "" && r.broadcaster != m.ID {
		return domain.ErrDuplicateRole
	}
	return nil
}

func (r *roomImpl) RemoveMember(id domain.ConnID, hook LeaveHook) (LeaveResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[id]
	if !ok {
		return LeaveResult{}, false
	}
	delete(r.members, id)
	r.order = slices.DeleteFunc(r.order, func(c domain.ConnID) bool { return c == id })

	res := LeaveResult{Member: m}
	switch {
	case r.topology == domain.TopologyBroadcast && r.broadcaster == id:
		r.broadcaster = ""
		res.BroadcasterGone = true
		res.Evicted = r.snapshotLocked("")
		r.order = nil
		clear(r.members)
		r.closed = true
	case len(r.order) == 0:
		res.Emptied = true
		r.closed = true
	default:
		res.Remaining = r.snapshotLocked("")
	}
	log.Info().
		Str("module", "core.room").
		Str("room", string(r.id)).
		Str("sid", string(id)).
		Bool("broadcaster_gone", res.BroadcasterGone).
		Bool("emptied", res.Emptied).
		Msg("member removed")

	if hook != nil {
		hook(res)
	}
	return res, true
}

func (r *roomImpl) CloseIfEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.order) == 0 {
		r.closed = true
	}
	return r.closed
}
