package storage

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	stderrors "errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const userPrefix = "user:"

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) UserRepository {
	return UserRepository{db: db}
}

// DiskUser is the stored form of an account, keyed by its unique username.
type DiskUser struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    int64     `json:"created_at"`
}

// CreateUser persists a user whose password was already hashed.
// A taken username fails with ErrUserAlreadyExists.
func (u UserRepository) CreateUser(_ context.Context, username, hashedPassword string) (domain.User, error) {
	disk := DiskUser{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now().UTC().UnixNano(),
	}
	data, err := json.Marshal(disk)
	if err != nil {
		return domain.User{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		key := []byte(userPrefix + username)
		if _, err := txn.Get(key); err == nil {
			return errors.ErrUserAlreadyExists
		} else if !stderrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
	if stderrors.Is(err, badger.ErrConflict) {
		// A concurrent registration committed the same key first
		return domain.User{}, errors.ErrUserAlreadyExists
	}
	if err != nil {
		return domain.User{}, err
	}
	return toUser(disk), nil
}

func (u UserRepository) GetUserByUsername(_ context.Context, username string) (domain.User, error) {
	var disk DiskUser
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(userPrefix + username))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &disk)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return domain.User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return toUser(disk), nil
}

// FindUsers returns the users whose username contains the fragment, ordered by username.
// Password hashes are left out.
func (u UserRepository) FindUsers(ctx context.Context, fragment string) ([]domain.User, error) {
	users := []domain.User{}
	fragment = strings.ToLower(fragment)
	err := u.db.View(func(txn *badger.Txn) error {
		prefix := []byte(userPrefix)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			username := string(it.Item().Key()[len(prefix):])
			if !strings.Contains(strings.ToLower(username), fragment) {
				continue
			}
			var disk DiskUser
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &disk)
			}); err != nil {
				return err
			}
			user := toUser(disk)
			user.PasswordHash = ""
			users = append(users, user)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func toUser(disk DiskUser) domain.User {
	return domain.User{
		ID:           disk.ID,
		Username:     disk.Username,
		PasswordHash: disk.PasswordHash,
		CreatedAt:    time.Unix(0, disk.CreatedAt).UTC(),
	}
}
