package storage

import (
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore gathers the repositories sharing one Badger database.
type BadgerStore struct {
	MessageRepository
	RoomRepository
	UserRepository
	db *badger.DB
}

// OpenBadger opens (or creates) the database at path, quiet below warnings.
func OpenBadger(path string) (*badger.DB, error) {
	return badger.Open(badger.DefaultOptions(path).WithLoggingLevel(badger.WARNING))
}

// NewBadgerStore caps history reads to the latest limitMessages when it is set.
func NewBadgerStore(db *badger.DB, log *slog.Logger, limitMessages *int) *BadgerStore {
	return &BadgerStore{
		MessageRepository: NewMessageRepository(db, log, limitMessages),
		RoomRepository:    NewRoomRepository(db),
		UserRepository:    NewUserRepository(db),
		db:                db,
	}
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
