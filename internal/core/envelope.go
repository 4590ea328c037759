package core

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/Rendezvous/internal/domain"
)

type MessageType string

// Client-originated.
const (
	TypeJoinRoom     MessageType = "join-room"
	TypeLeaveRoom    MessageType = "leave-room"
	TypeOffer        MessageType = "offer"
	TypeAnswer       MessageType = "answer"
	TypeICECandidate MessageType = "ice-candidate"
)

// Server-originated.
const (
	TypeRoomJoined MessageType = "room-joined"
	TypeRoomFull   MessageType = "room-full"
	TypeNewUser    MessageType = "new-user"
	TypeUserLeft   MessageType = "user-left"
)

var (
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrUnknownType       = errors.New("unknown message type")
)

// Envelope is the JSON unit exchanged over the signaling socket.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound is the closed set of messages a client may send.
// Implementations: JoinRoom, LeaveRoom, Signal.
type Inbound interface {
	Kind() MessageType
	inbound()
}

type JoinRoom struct {
	RoomID   domain.RoomID
	Username string
}

type LeaveRoom struct {
	RoomID domain.RoomID
}

// Signal is an offer, answer or ice-candidate. Only the room id is read;
// Raw holds the frame exactly as received.
type Signal struct {
	Type   MessageType
	RoomID domain.RoomID
	Raw    Frame
}

func (JoinRoom) Kind() MessageType  { return TypeJoinRoom }
func (LeaveRoom) Kind() MessageType { return TypeLeaveRoom }
func (s Signal) Kind() MessageType  { return s.Type }

func (JoinRoom) inbound()  {}
func (LeaveRoom) inbound() {}
func (Signal) inbound()    {}

// IsSignal reports whether t is relayed verbatim between peers.
func IsSignal(t MessageType) bool {
	switch t {
	case TypeOffer, TypeAnswer, TypeICECandidate:
		return true
	}
	return false
}

// ParseInbound validates a client frame at the boundary. Errors wrap
// ErrMalformedEnvelope or ErrUnknownType.
func ParseInbound(data Frame) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEnvelope)
	}

	switch {
	case env.Type == TypeJoinRoom:
		var p struct {
			RoomID   *string `json:"roomId"`
			Username *string `json:"username"`
		}
		if err := decodePayload(env.Payload, &p); err != nil {
			return nil, err
		}
		if p.RoomID == nil || p.Username == nil {
			return nil, fmt.Errorf("%w: join-room needs roomId and username", ErrMalformedEnvelope)
		}
		id, err := domain.ParseRoomID(*p.RoomID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
		}
		name, err := domain.ParseUsername(*p.Username)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
		}
		return JoinRoom{RoomID: id, Username: name}, nil

	case env.Type == TypeLeaveRoom:
		id, err := decodeRoomID(env.Payload)
		if err != nil {
			return nil, err
		}
		return LeaveRoom{RoomID: id}, nil

	case IsSignal(env.Type):
		id, err := decodeRoomID(env.Payload)
		if err != nil {
			return nil, err
		}
		raw := make(Frame, len(data))
		copy(raw, data)
		return Signal{Type: env.Type, RoomID: id, Raw: raw}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing payload", ErrMalformedEnvelope)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return nil
}

func decodeRoomID(raw json.RawMessage) (domain.RoomID, error) {
	var p struct {
		RoomID *string `json:"roomId"`
	}
	if err := decodePayload(raw, &p); err != nil {
		return "", err
	}
	if p.RoomID == nil {
		return "", fmt.Errorf("%w: missing roomId", ErrMalformedEnvelope)
	}
	id, err := domain.ParseRoomID(*p.RoomID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	return id, nil
}

type RoomJoined struct {
	RoomID   domain.RoomID `json:"roomId"`
	Username string        `json:"username"`
}

type RoomFull struct {
	Message string `json:"message"`
}

type NewUser struct {
	RoomID   domain.RoomID `json:"roomId"`
	Username string        `json:"username"`
}

type UserLeft struct {
	RoomID domain.RoomID `json:"roomId"`
}

// Encode builds a server-originated frame.
func Encode(t MessageType, payload any) (Frame, error) {
	p, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", t, err)
	}
	b, err := json.Marshal(Envelope{Type: t, Payload: p})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", t, err)
	}
	return b, nil
}
