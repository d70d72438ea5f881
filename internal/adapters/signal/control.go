package signal

import "github.com/dkeye/Rendezvous/internal/domain"

func (ctl *SignalWSController) handlePing(sid domain.ConnID) {
	ctl.sendEvent(sid, domain.Pong())
}
