// Package orch is the signaling state machine: it validates joins, relays
// and leaves against the room store and decides who receives what.
package orch

import (
	"github.com/dkeye/Rendezvous/internal/app"
	"github.com/dkeye/Rendezvous/internal/core"
	"github.com/dkeye/Rendezvous/internal/domain"
	"github.com/rs/zerolog/log"
)

type Orchestrator struct {
	Registry        *app.Registry
	Rooms           core.RoomManager
	Lifecycle       *app.Lifecycle
	DefaultTopology domain.Topology
}

// New wires the orchestrator as the registry's disconnect handler.
func New(reg *app.Registry, rooms core.RoomManager, lc *app.Lifecycle, topology domain.Topology) *Orchestrator {
	if !topology.Valid() {
		topology = domain.TopologyMesh
	}
	o := &Orchestrator{
		Registry:        reg,
		Rooms:           rooms,
		Lifecycle:       lc,
		DefaultTopology: topology,
	}
	reg.OnDisconnect(o.OnDisconnect)
	return o
}

// OnDisconnect is the implicit leave. It runs once per connection, from
// Registry.Unregister, whatever ended the connection.
func (o *Orchestrator) OnDisconnect(sid domain.ConnID) {
	roomID, ok := o.leave(sid)
	ev := log.Info().Str("module", "orch").Str("sid", string(sid))
	if ok {
		ev = ev.Str("room", string(roomID))
	}
	ev.Msg("disconnected")
}
