package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type FrameType string

const (
	ErrorFrameType    FrameType = "error"
	PresenceFrameType FrameType = "presence"
)

type PresenceEvent string

const (
	Joined PresenceEvent = "joined"
	Left   PresenceEvent = "left"
)

// ErrorFrame tells the author that one of its messages was not stored.
// Message records are sent without a type field, every other frame carries one.
type ErrorFrame struct {
	Type    FrameType `json:"type"`
	RoomID  uuid.UUID `json:"room_id"`
	Content string    `json:"content"`
	Reason  string    `json:"reason"`
}

type PresenceFrame struct {
	Type   FrameType     `json:"type"`
	Event  PresenceEvent `json:"event"`
	RoomID uuid.UUID     `json:"room_id"`
	UserID uuid.UUID     `json:"user_id"`
	At     time.Time     `json:"at"`
}

func NewErrorFrame(m ClientMessage, reason string) ErrorFrame {
	return ErrorFrame{Type: ErrorFrameType, RoomID: m.RoomID, Content: m.Content, Reason: reason}
}

func NewPresenceFrame(event PresenceEvent, roomID, userID uuid.UUID, at time.Time) PresenceFrame {
	return PresenceFrame{Type: PresenceFrameType, Event: event, RoomID: roomID, UserID: userID, At: at}
}

// Encode serializes any outbound frame once, so a broadcast shares the same bytes
// across every recipient.
func Encode(frame any) ([]byte, error) {
	return json.Marshal(frame)
}
