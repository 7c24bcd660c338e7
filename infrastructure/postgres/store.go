package postgres

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"strings"

	stderrors "errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store keeps users, rooms and messages in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the tables when they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, querySchema)
	return err
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) InsertMessage(ctx context.Context, roomID, userID uuid.UUID, content string) (domain.Message, error) {
	var m domain.Message
	err := s.pool.QueryRow(ctx, queryInsertMessage, roomID, userID, content).
		Scan(&m.ID, &m.RoomID, &m.UserID, &m.Content, &m.CreatedAt)
	if err != nil {
		return domain.Message{}, mapPgError(err)
	}
	m.CreatedAt = m.CreatedAt.UTC()
	return m, nil
}

func (s *Store) ListMessages(ctx context.Context, roomID uuid.UUID) ([]domain.Message, error) {
	rows, err := s.pool.Query(ctx, queryListMessages, roomID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.CreatedAt = m.CreatedAt.UTC()
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *Store) CreateRoom(ctx context.Context, name string) (domain.Room, error) {
	var r domain.Room
	if err := s.pool.QueryRow(ctx, queryCreateRoom, name).Scan(&r.ID, &r.Name, &r.CreatedAt); err != nil {
		return domain.Room{}, mapPgError(err)
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return r, nil
}

func (s *Store) GetRoom(ctx context.Context, roomID uuid.UUID) (domain.Room, error) {
	var r domain.Room
	err := s.pool.QueryRow(ctx, queryGetRoom, roomID).Scan(&r.ID, &r.Name, &r.CreatedAt)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return domain.Room{}, errors.ErrRoomNotFound
	}
	if err != nil {
		return domain.Room{}, mapPgError(err)
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return r, nil
}

func (s *Store) ListRooms(ctx context.Context) ([]domain.Room, error) {
	rows, err := s.pool.Query(ctx, queryListRooms)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	rooms := []domain.Room{}
	for rows.Next() {
		var r domain.Room
		if err := rows.Scan(&r.ID, &r.Name, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.CreatedAt = r.CreatedAt.UTC()
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, username, hashedPassword string) (domain.User, error) {
	var u domain.User
	err := s.pool.QueryRow(ctx, queryCreateUser, username, hashedPassword).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return domain.User{}, mapPgError(err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	var u domain.User
	err := s.pool.QueryRow(ctx, queryGetUserByUsername, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, errors.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, mapPgError(err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

// FindUsers matches the fragment anywhere in the username, LIKE wildcards in it are taken literally.
func (s *Store) FindUsers(ctx context.Context, fragment string) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx, queryFindUsers, escapeLike(fragment))
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.CreatedAt = u.CreatedAt.UTC()
		users = append(users, u)
	}
	return users, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) {
		// 23505 - unique violation
		if pgErr.Code == "23505" {
			return errors.ErrUserAlreadyExists
		}
	}
	return err
}
