package signal

import "github.com/dkeye/Rendezvous/internal/domain"

func (ctl *SignalWSController) handleWhoAmI(sid domain.ConnID) {
	room, _ := ctl.Orch.Registry.RoomOf(sid)
	ctl.sendEvent(sid, domain.WhoAmI(sid, room))
}
