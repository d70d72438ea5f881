package domain

import (
	"bytes"
	"encoding/json"
)

type EventType string

const (
	EventWelcome         EventType = "welcome"
	EventJoined          EventType = "joined"
	EventLeft            EventType = "left"
	EventMemberJoined    EventType = "member-joined"
	EventMemberLeft      EventType = "member-left"
	EventBroadcasterGone EventType = "broadcaster-gone"
	EventSignal          EventType = "signal"
	EventNoTarget        EventType = "no-target"
	EventPong            EventType = "pong"
	EventWhoAmI          EventType = "whoami"
	EventError           EventType = "error"
)

// Event is a server->client message. Unused fields are omitted on the wire;
// a joined event without members means the joiner is alone.
type Event struct {
	Type          EventType  `json:"type"`
	RoomID        RoomID     `json:"roomId,omitempty"`
	ID            ConnID     `json:"id,omitempty"`
	Role          Role       `json:"role,omitempty"`
	Topology      Topology   `json:"topology,omitempty"`
	BroadcasterID ConnID     `json:"broadcasterId,omitempty"`
	Members       []Member   `json:"members,omitempty"`
	SenderID      ConnID     `json:"senderId,omitempty"`
	SignalType    SignalType `json:"signalType,omitempty"`
	Code          string     `json:"code,omitempty"`
	Error         string     `json:"error,omitempty"`

	// Payload is appended verbatim by Encode.
	Payload json.RawMessage `json:"-"`
}

func Welcome(id ConnID) Event { return Event{Type: EventWelcome, ID: id} }

func Joined(roomID RoomID, m Member, topology Topology, broadcaster ConnID, others []Member) Event {
	return Event{
		Type:          EventJoined,
		RoomID:        roomID,
		ID:            m.ID,
		Role:          m.Role,
		Topology:      topology,
		BroadcasterID: broadcaster,
		Members:       others,
	}
}

func Left(roomID RoomID) Event { return Event{Type: EventLeft, RoomID: roomID} }

func MemberJoined(m Member) Event {
	return Event{Type: EventMemberJoined, ID: m.ID, Role: m.Role}
}

func MemberLeft(id ConnID) Event { return Event{Type: EventMemberLeft, ID: id} }

func BroadcasterGone(roomID RoomID) Event {
	return Event{Type: EventBroadcasterGone, RoomID: roomID}
}

func NoTarget(roomID RoomID) Event { return Event{Type: EventNoTarget, RoomID: roomID} }

func SignalFrom(sender ConnID, s Signal) Event {
	return Event{Type: EventSignal, SenderID: sender, SignalType: s.Type, Payload: s.Payload}
}

func Pong() Event { return Event{Type: EventPong} }

func WhoAmI(id ConnID, roomID RoomID) Event {
	return Event{Type: EventWhoAmI, ID: id, RoomID: roomID}
}

func Failure(code string, err error) Event {
	e := Event{Type: EventError, Code: code}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// Encode marshals the event. encoding/json would compact and HTML-escape a
// RawMessage, so the payload is spliced in as the last field instead.
func (e Event) Encode() ([]byte, error) {
	head, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	if len(e.Payload) == 0 {
		return head, nil
	}
	var buf bytes.Buffer
	buf.Grow(len(head) + len(e.Payload) + len(`,"payload":`))
	buf.Write(head[:len(head)-1])
	buf.WriteString(`,"payload":`)
	buf.Write(e.Payload)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
