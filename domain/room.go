package domain

import (
	"time"

	"github.com/google/uuid"
)

// Room is a named channel grouping the connections whose messages are mutually visible.
type Room struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
