package errors

import "fmt"

var (
	ErrWorkerPanic       = fmt.Errorf("worker panic")
	ErrOnlyCensoredFiles = fmt.Errorf("censored directory contains directories")
	ErrEmptyWords        = fmt.Errorf("no words have been found")

	ErrCoordinatorStopped = fmt.Errorf("coordinator stopped")
	ErrAuthentication     = fmt.Errorf("authentication failed")
	ErrPersistence        = fmt.Errorf("message persistence failed")
	ErrDelivery           = fmt.Errorf("delivery failed")
	ErrSinkFull           = fmt.Errorf("sink is full")
	ErrSinkClosed         = fmt.Errorf("sink is closed")
	ErrProtocolViolation  = fmt.Errorf("protocol violation")
	ErrEmptyContent       = fmt.Errorf("message content is empty")
	ErrContentTooLong     = fmt.Errorf("message content is too long")
	ErrUnknownPolicy      = fmt.Errorf("unknown overflow policy")
	ErrUnknownOrdering    = fmt.Errorf("unknown room ordering")
	ErrUnknownDriver      = fmt.Errorf("unknown store driver")

	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("invalid password")
	ErrInvalidUsername    = fmt.Errorf("invalid username")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrRoomNotFound       = fmt.Errorf("room not found")
	ErrInvalidRoomName    = fmt.Errorf("invalid room name")
)
