package services

import (
	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/mocks"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newAuthService(t *testing.T) (*AuthService, *mocks.MockUserRepository, *auth.JWTVerifier) {
	ctrl := gomock.NewController(t)
	mockRepo := mocks.NewMockUserRepository(ctrl)
	tokens := auth.NewJWTVerifier("a-secret-long-enough-for-hs256", 24*time.Hour)
	return NewAuthService(logs.GetLoggerFromLevel(slog.LevelError), mockRepo, tokens), mockRepo, tokens
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("should register successfully when input is valid", func(t *testing.T) {
		req := require.New(t)
		svc, mockRepo, _ := newAuthService(t)
		password := "ComplexPass123!"
		expected := domain.User{ID: uuid.New(), Username: "alice", CreatedAt: time.Now().UTC()}

		// Expect CreateUser to be called with a hashed password, not the plain one
		mockRepo.EXPECT().
			CreateUser(gomock.Any(), "alice", gomock.Not(password)).
			DoAndReturn(func(_ context.Context, username, hashed string) (domain.User, error) {
				match, err := auth.ComparePassword(password, hashed)
				req.NoError(err)
				req.True(match)
				expected.PasswordHash = hashed
				return expected, nil
			}).
			Times(1)

		user, err := svc.Register(ctx, "alice", password)

		req.NoError(err)
		req.Equal(expected.ID, user.ID)
	})

	t.Run("should fail when password complexity is not met", func(t *testing.T) {
		req := require.New(t)
		svc, mockRepo, _ := newAuthService(t)

		// Repository should never be called
		mockRepo.EXPECT().CreateUser(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		_, err := svc.Register(ctx, "alice", "simple")

		req.ErrorIs(err, errors.ErrInvalidPassword)
	})

	t.Run("should fail when user already exists in repository", func(t *testing.T) {
		req := require.New(t)
		svc, mockRepo, _ := newAuthService(t)

		mockRepo.EXPECT().
			CreateUser(gomock.Any(), "bob", gomock.Any()).
			Return(domain.User{}, errors.ErrUserAlreadyExists).
			Times(1)

		_, err := svc.Register(ctx, "bob", "ComplexPass123!")

		req.ErrorIs(err, errors.ErrUserAlreadyExists)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	password := "Secret123456!"
	hashedPassword, err := auth.HashPassword(password)
	require.NoError(t, err)
	storedUser := domain.User{ID: uuid.New(), Username: "alice", PasswordHash: hashedPassword}

	t.Run("should login successfully with correct credentials", func(t *testing.T) {
		req := require.New(t)
		svc, mockRepo, tokens := newAuthService(t)

		mockRepo.EXPECT().GetUserByUsername(gomock.Any(), "alice").Return(storedUser, nil).Times(1)

		token, err := svc.Login(ctx, "alice", password)
		req.NoError(err)

		// The token resolves to the stored user
		userID, err := tokens.Verify(ctx, token.String())
		req.NoError(err)
		req.Equal(storedUser.ID, userID)
	})

	t.Run("should return invalid credentials when password matches nothing", func(t *testing.T) {
		req := require.New(t)
		svc, mockRepo, _ := newAuthService(t)

		mockRepo.EXPECT().GetUserByUsername(gomock.Any(), "alice").Return(storedUser, nil).Times(1)

		_, err := svc.Login(ctx, "alice", "WrongPassword1!")
		req.ErrorIs(err, errors.ErrInvalidCredentials)
	})

	t.Run("should hide unknown users behind invalid credentials", func(t *testing.T) {
		req := require.New(t)
		svc, mockRepo, _ := newAuthService(t)

		mockRepo.EXPECT().GetUserByUsername(gomock.Any(), "ghost").Return(domain.User{}, errors.ErrUserNotFound).Times(1)

		_, err := svc.Login(ctx, "ghost", password)
		req.ErrorIs(err, errors.ErrInvalidCredentials)
		req.NotErrorIs(err, errors.ErrUserNotFound)
	})
}
