package storage

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"encoding/json"
	"sort"
	"time"

	stderrors "errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const roomPrefix = "room:"

type RoomRepository struct {
	db *badger.DB
}

func NewRoomRepository(db *badger.DB) RoomRepository {
	return RoomRepository{db: db}
}

type DiskRoom struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt int64     `json:"created_at"`
}

func (r RoomRepository) CreateRoom(_ context.Context, name string) (domain.Room, error) {
	room := domain.Room{ID: uuid.New(), Name: name, CreatedAt: time.Now().UTC()}
	data, err := json.Marshal(DiskRoom{ID: room.ID, Name: room.Name, CreatedAt: room.CreatedAt.UnixNano()})
	if err != nil {
		return domain.Room{}, err
	}
	if err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(roomPrefix+room.ID.String()), data)
	}); err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

func (r RoomRepository) GetRoom(_ context.Context, roomID uuid.UUID) (domain.Room, error) {
	var disk DiskRoom
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(roomPrefix + roomID.String()))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &disk)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.Room{}, errors.ErrRoomNotFound
	}
	if err != nil {
		return domain.Room{}, err
	}
	return toRoom(disk), nil
}

// ListRooms returns every room, oldest first.
func (r RoomRepository) ListRooms(_ context.Context) ([]domain.Room, error) {
	rooms := []domain.Room{}
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := []byte(roomPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var disk DiskRoom
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &disk)
			}); err != nil {
				return err
			}
			rooms = append(rooms, toRoom(disk))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
	return rooms, nil
}

func toRoom(disk DiskRoom) domain.Room {
	return domain.Room{ID: disk.ID, Name: disk.Name, CreatedAt: time.Unix(0, disk.CreatedAt).UTC()}
}
