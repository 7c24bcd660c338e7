package search

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"context"
	"log/slog"
	"strings"

	"github.com/blugelabs/bluge"
	blugesearch "github.com/blugelabs/bluge/search"
	"github.com/google/uuid"
)

const (
	fieldUsername      = "username"
	fieldUsernameLower = "username_lower"
	fieldCreatedAt     = "created_at"
	fieldID            = "_id"
)

// UserIndex answers fragment searches from a bluge index and keeps it in step
// with the users created through it. Every other call goes to the wrapped repository.
type UserIndex struct {
	contract.UserRepository
	writer *bluge.Writer
	log    *slog.Logger
}

func OpenWriter(path string) (*bluge.Writer, error) {
	return bluge.OpenWriter(bluge.DefaultConfig(path))
}

func NewUserIndex(repository contract.UserRepository, writer *bluge.Writer, log *slog.Logger) *UserIndex {
	return &UserIndex{UserRepository: repository, writer: writer, log: log}
}

func userDocument(u domain.User) *bluge.Document {
	return bluge.NewDocument(u.ID.String()).
		AddField(bluge.NewKeywordField(fieldUsername, u.Username).StoreValue().Sortable()).
		AddField(bluge.NewKeywordField(fieldUsernameLower, strings.ToLower(u.Username))).
		AddField(bluge.NewDateTimeField(fieldCreatedAt, u.CreatedAt).StoreValue())
}

func (i *UserIndex) CreateUser(ctx context.Context, username, hashedPassword string) (domain.User, error) {
	user, err := i.UserRepository.CreateUser(ctx, username, hashedPassword)
	if err != nil {
		return domain.User{}, err
	}
	doc := userDocument(user)
	if err := i.writer.Update(doc.ID(), doc); err != nil {
		// The user exists, the next Sync indexes it
		i.log.Warn("User indexing failed", "user_id", user.ID, "error", err)
	}
	return user, nil
}

// Sync rebuilds the index from the repository, to be called at startup.
func (i *UserIndex) Sync(ctx context.Context) (int, error) {
	users, err := i.UserRepository.FindUsers(ctx, "")
	if err != nil {
		return 0, err
	}
	batch := bluge.NewBatch()
	for _, u := range users {
		doc := userDocument(u)
		batch.Update(doc.ID(), doc)
	}
	if err := i.writer.Batch(batch); err != nil {
		return 0, err
	}
	i.log.Info("User index synchronized", "users", len(users))
	return len(users), nil
}

// FindUsers returns the users whose username contains the fragment, case-insensitively, ordered by username.
func (i *UserIndex) FindUsers(ctx context.Context, fragment string) ([]domain.User, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	count, err := reader.Count()
	if err != nil {
		return nil, err
	}
	users := []domain.User{}
	if count == 0 {
		return users, nil
	}

	var query bluge.Query = bluge.NewMatchAllQuery()
	if term := sanitize(fragment); term != "" {
		query = bluge.NewWildcardQuery("*" + term + "*").SetField(fieldUsernameLower)
	}
	request := bluge.NewTopNSearch(int(count), query).SortBy([]string{fieldUsername})

	matches, err := reader.Search(ctx, request)
	if err != nil {
		return nil, err
	}
	match, err := matches.Next()
	for err == nil && match != nil {
		user, visitErr := toUser(match)
		if visitErr != nil {
			return nil, visitErr
		}
		users = append(users, user)
		match, err = matches.Next()
	}
	if err != nil {
		return nil, err
	}
	return users, nil
}

func toUser(match *blugesearch.DocumentMatch) (domain.User, error) {
	var user domain.User
	var fieldErr error
	err := match.VisitStoredFields(func(field string, value []byte) bool {
		switch field {
		case fieldID:
			user.ID, fieldErr = uuid.ParseBytes(value)
		case fieldUsername:
			user.Username = string(value)
		case fieldCreatedAt:
			user.CreatedAt, fieldErr = bluge.DecodeDateTime(value)
			user.CreatedAt = user.CreatedAt.UTC()
		}
		return fieldErr == nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, fieldErr
}

// sanitize lowercases the fragment and removes the wildcard operators.
func sanitize(fragment string) string {
	return strings.NewReplacer("*", "", "?", "").Replace(strings.ToLower(strings.TrimSpace(fragment)))
}
