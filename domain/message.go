// Package domain contains core concepts of the chat system.
// This file defines Message records and the inbound ClientMessage.
// Messages are immutable once the store has assigned their id and timestamp.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents a persisted chat message.
// It is also the exact payload pushed to every live member of the room.
type Message struct {
	ID        uuid.UUID `json:"id"`
	RoomID    uuid.UUID `json:"room_id"`
	UserID    uuid.UUID `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ClientMessage is a raw text frame read from an admitted connection.
// Content is kept verbatim, the pipeline decides what to do with it.
type ClientMessage struct {
	UserID  uuid.UUID
	RoomID  uuid.UUID
	Content string
}
