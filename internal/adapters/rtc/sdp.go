package rtc

import (
	"errors"
	"fmt"

	"github.com/dkeye/Rendezvous/internal/domain"
	"github.com/pion/webrtc/v4"
)

var ErrSignalType = errors.New("signalType must be offer, answer or candidate")

// ParseSignalType checks the relay label only; the payload stays opaque.
func ParseSignalType(raw string) (domain.SignalType, error) {
	if raw == string(domain.SignalCandidate) {
		return domain.SignalCandidate, nil
	}
	switch webrtc.NewSDPType(raw) {
	case webrtc.SDPTypeOffer:
		return domain.SignalOffer, nil
	case webrtc.SDPTypeAnswer:
		return domain.SignalAnswer, nil
	}
	return "", fmt.Errorf("%w: %q", ErrSignalType, raw)
}
