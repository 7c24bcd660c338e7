package storage

import (
	"chat-relay/domain"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

// NewMessageRepository keeps at most limitMessages of the latest messages per read, nil means the whole history.
func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

type DiskMessage struct {
	ID        uuid.UUID `json:"id"`
	RoomID    uuid.UUID `json:"room_id"`
	UserID    uuid.UUID `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt int64     `json:"created_at"`
}

// messageKey is formatted as "msg:{room_id}:{timestamp_padded}:{uuid}" so that:
//  1. a prefix scan returns one room in chronological order (19-digit zero padding),
//  2. two messages created at the same nanosecond never collide.
func messageKey(m DiskMessage) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", m.RoomID, m.CreatedAt, m.ID))
}

func messagePrefix(roomID uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:%s:", roomID))
}

// InsertMessage assigns the id and the creation time, then persists the record.
func (m MessageRepository) InsertMessage(ctx context.Context, roomID, userID uuid.UUID, content string) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	message := domain.Message{
		ID:        uuid.New(),
		RoomID:    roomID,
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	disk := fromMessage(message)
	bytes, err := json.Marshal(disk)
	if err != nil {
		return domain.Message{}, err
	}
	if err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(disk), bytes)
	}); err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// ListMessages scans the room backwards from its newest key, so the limit keeps the latest messages,
// then returns them oldest first.
func (m MessageRepository) ListMessages(ctx context.Context, roomID uuid.UUID) ([]domain.Message, error) {
	var byteMessages [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(roomID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		// Past the last key of the room
		seekKey := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if m.limitMessages != nil && len(byteMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				break
			}
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			byteMessages = append(byteMessages, value)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	disks := make([]DiskMessage, len(byteMessages))
	for i, b := range byteMessages {
		if err = json.Unmarshal(b, &disks[i]); err != nil {
			return nil, err
		}
	}
	// Newest first from the scan
	return lo.Reverse(lo.Map(disks, func(disk DiskMessage, _ int) domain.Message {
		return toMessage(disk)
	})), nil
}

func fromMessage(message domain.Message) DiskMessage {
	return DiskMessage{
		ID:        message.ID,
		RoomID:    message.RoomID,
		UserID:    message.UserID,
		Content:   message.Content,
		CreatedAt: message.CreatedAt.UnixNano(),
	}
}

func toMessage(disk DiskMessage) domain.Message {
	return domain.Message{
		ID:        disk.ID,
		RoomID:    disk.RoomID,
		UserID:    disk.UserID,
		Content:   disk.Content,
		CreatedAt: time.Unix(0, disk.CreatedAt).UTC(),
	}
}
