//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"context"
	"reflect"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Sink is the capability to push a serialized payload to one live connection.
// Deliver must never block: it enqueues or fails immediately.
// Implementations must be comparable, the coordinator uses sink identity
// to tell a connection apart from the one that replaced it.
type Sink interface {
	Deliver(payload []byte) error
	Close()
}

type MessageStore interface {
	InsertMessage(ctx context.Context, roomID, userID uuid.UUID, content string) (domain.Message, error)
	ListMessages(ctx context.Context, roomID uuid.UUID) ([]domain.Message, error)
}

type RoomStore interface {
	CreateRoom(ctx context.Context, name string) (domain.Room, error)
	ListRooms(ctx context.Context) ([]domain.Room, error)
	GetRoom(ctx context.Context, roomID uuid.UUID) (domain.Room, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, username, hashedPassword string) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
	FindUsers(ctx context.Context, fragment string) ([]domain.User, error)
}

// Store is the durable storage engine behind every backend.
type Store interface {
	MessageStore
	RoomStore
	UserRepository
}

// IdentityVerifier turns a bearer credential into the user it was issued to.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (uuid.UUID, error)
}

// ContentPolicy inspects a message before it is persisted.
// It may rewrite the content or reject it.
type ContentPolicy interface {
	Apply(content string) (string, error)
}

type ICoordinator interface {
	Connect(ctx context.Context, userID, roomID uuid.UUID, sink Sink) error
	Disconnect(ctx context.Context, userID, roomID uuid.UUID, sink Sink) error
	Submit(ctx context.Context, message domain.ClientMessage) error
	Snapshot(ctx context.Context) (domain.Snapshot, error)
}
