package services

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type IChatService interface {
	CreateRoom(ctx context.Context, name string) (domain.Room, error)
	ListRooms(ctx context.Context) ([]domain.Room, error)
	ListMessages(ctx context.Context, roomID uuid.UUID) ([]domain.Message, error)
	SearchUsers(ctx context.Context, fragment string) ([]domain.User, error)
}

// ChatService serves the request/response side of the chat, live traffic goes through the coordinator.
type ChatService struct {
	rooms    contract.RoomStore
	messages contract.MessageStore
	users    contract.UserRepository
	validate *validator.Validate
}

func NewChatService(rooms contract.RoomStore, messages contract.MessageStore, users contract.UserRepository) *ChatService {
	return &ChatService{rooms: rooms, messages: messages, users: users, validate: validator.New()}
}

func (s *ChatService) CreateRoom(ctx context.Context, name string) (domain.Room, error) {
	name = strings.TrimSpace(name)
	if err := s.validate.Var(name, "required,max=64"); err != nil {
		return domain.Room{}, fmt.Errorf("%w: %w", errors.ErrInvalidRoomName, err)
	}
	return s.rooms.CreateRoom(ctx, name)
}

func (s *ChatService) ListRooms(ctx context.Context) ([]domain.Room, error) {
	return s.rooms.ListRooms(ctx)
}

// ListMessages returns the room history, oldest first.
func (s *ChatService) ListMessages(ctx context.Context, roomID uuid.UUID) ([]domain.Message, error) {
	if _, err := s.rooms.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return s.messages.ListMessages(ctx, roomID)
}

func (s *ChatService) SearchUsers(ctx context.Context, fragment string) ([]domain.User, error) {
	return s.users.FindUsers(ctx, strings.TrimSpace(fragment))
}
