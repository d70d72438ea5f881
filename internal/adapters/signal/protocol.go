package signal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/Rendezvous/internal/adapters/rtc"
	"github.com/dkeye/Rendezvous/internal/domain"
)

var (
	ErrMalformed    = errors.New("malformed message")
	ErrUnknownKind  = errors.New("unknown kind")
	ErrMissingField = errors.New("missing field")
)

type Kind string

const (
	KindJoin         Kind = "join"
	KindSignal       Kind = "signal"
	KindRoleAnnounce Kind = "role-announce"
	KindLeave        Kind = "leave"
	KindPing         Kind = "ping"
	KindWhoAmI       Kind = "whoami"
)

// envelope is the wire shape. type/sessionId/signal are the older field
// names still sent by the first browser clients.
type envelope struct {
	Kind       string          `json:"kind"`
	Type       string          `json:"type"`
	RoomID     string          `json:"roomId"`
	SessionID  string          `json:"sessionId"`
	Role       string          `json:"role"`
	TargetID   string          `json:"targetId"`
	SignalType string          `json:"signalType"`
	Payload    json.RawMessage `json:"payload"`
	Signal     json.RawMessage `json:"signal"`
}

// Message is a validated inbound message.
type Message struct {
	Kind       Kind
	RoomID     domain.RoomID
	Role       domain.Role
	TargetID   domain.ConnID
	SignalType domain.SignalType
	Payload    json.RawMessage
}

// ParseMessage decodes and validates one text frame. Any error it returns
// is a protocol violation.
func ParseMessage(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	kind := env.Kind
	if kind == "" {
		kind = env.Type
	}
	rawRoom := env.RoomID
	if rawRoom == "" {
		rawRoom = env.SessionID
	}
	payload := env.Payload
	if len(payload) == 0 {
		payload = env.Signal
	}

	msg := Message{Kind: Kind(kind)}
	switch msg.Kind {
	case Kind(domain.RoleViewer), Kind(domain.RoleBroadcaster):
		// {"type":"viewer","sessionId":"..."}
		msg.Kind = KindRoleAnnounce
		env.Role = kind
		fallthrough
	case KindJoin, KindRoleAnnounce:
		role, err := domain.ParseRole(env.Role)
		if err != nil {
			return Message{}, err
		}
		msg.Role = role
		if msg.Kind == KindRoleAnnounce && role == domain.RoleNone {
			return Message{}, fmt.Errorf("%w: role", ErrMissingField)
		}
		if rawRoom == "" && msg.Kind == KindRoleAnnounce {
			return msg, nil
		}
		room, err := domain.NewRoomID(rawRoom)
		if err != nil {
			return Message{}, err
		}
		msg.RoomID = room
	case KindSignal:
		if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
			return Message{}, fmt.Errorf("%w: payload", ErrMissingField)
		}
		if env.SignalType != "" {
			st, err := rtc.ParseSignalType(env.SignalType)
			if err != nil {
				return Message{}, err
			}
			msg.SignalType = st
		}
		msg.TargetID = domain.ConnID(env.TargetID)
		msg.Payload = payload
	case KindLeave, KindPing, KindWhoAmI:
	case "":
		return Message{}, fmt.Errorf("%w: kind", ErrMissingField)
	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return msg, nil
}

// Error codes carried by error events.
const (
	codeBadJSON       = "bad-json"
	codeUnknownKind   = "unknown-kind"
	codeBadPayload    = "bad-payload"
	codeBadRoom       = "bad-room"
	codeBadRole       = "bad-role"
	codeBadSignalType = "bad-signal-type"
	codeDuplicateRole = "duplicate-role"
	codeTopology      = "topology-mismatch"
	codeNotJoined     = "not-joined"
	codeRateLimited   = "rate-limited"
	codeInternal      = "internal"
)

func codeFor(err error) string {
	switch {
	case errors.Is(err, ErrMalformed):
		return codeBadJSON
	case errors.Is(err, ErrUnknownKind):
		return codeUnknownKind
	case errors.Is(err, ErrMissingField):
		return codeBadPayload
	case errors.Is(err, domain.ErrRoomIDEmpty), errors.Is(err, domain.ErrRoomIDTooLong):
		return codeBadRoom
	case errors.Is(err, domain.ErrInvalidRole):
		return codeBadRole
	case errors.Is(err, rtc.ErrSignalType):
		return codeBadSignalType
	case errors.Is(err, domain.ErrDuplicateRole):
		return codeDuplicateRole
	case errors.Is(err, domain.ErrTopologyMismatch):
		return codeTopology
	case errors.Is(err, domain.ErrNotJoined):
		return codeNotJoined
	case errors.Is(err, ErrRateLimited):
		return codeRateLimited
	}
	return codeInternal
}
