// Package domain contains core concepts of the chat system.
// This file defines User accounts.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an account able to authenticate and join rooms.
// PasswordHash never leaves the process.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
