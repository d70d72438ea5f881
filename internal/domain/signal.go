package domain

import "encoding/json"

type SignalType string

const (
	SignalOffer     SignalType = "offer"
	SignalAnswer    SignalType = "answer"
	SignalCandidate SignalType = "candidate"
)

// Signal is an inbound relay request. Payload is the SDP/ICE body and is
// never inspected. The sender is the connection the signal arrived on.
type Signal struct {
	TargetID ConnID
	Type     SignalType
	Payload  json.RawMessage
}
