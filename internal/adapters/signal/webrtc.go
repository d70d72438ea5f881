package signal

import (
	"github.com/dkeye/Rendezvous/internal/domain"
)

func (ctl *SignalWSController) handleRelay(sid domain.ConnID, msg Message) {
	err := ctl.Orch.Relay(sid, domain.Signal{
		TargetID: msg.TargetID,
		Type:     msg.SignalType,
		Payload:  msg.Payload,
	})
	if err != nil {
		ctl.fail(sid, err)
	}
}
