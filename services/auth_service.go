package services

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"fmt"
	"log/slog"
)

type IAuthService interface {
	Register(ctx context.Context, username, password string) (domain.User, error)
	Login(ctx context.Context, username, password string) (Token, error)
}

type Token string

func (t Token) String() string {
	return string(t)
}

type AuthService struct {
	log            *slog.Logger
	userRepository contract.UserRepository
	tokens         *auth.JWTVerifier
}

func NewAuthService(log *slog.Logger, repo contract.UserRepository, tokens *auth.JWTVerifier) *AuthService {
	return &AuthService{log: log, userRepository: repo, tokens: tokens}
}

func (s *AuthService) Register(ctx context.Context, username, password string) (domain.User, error) {
	// Validated before any expensive cryptographic operation
	if err := auth.ValidateRegister(auth.RegisterRequest{Username: username, Password: password}); err != nil {
		return domain.User{}, err
	}

	// The repository never sees a plain password
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hashing failed: %w", err)
	}

	user, err := s.userRepository.CreateUser(ctx, username, hashedPassword)
	if err != nil {
		return domain.User{}, err
	}
	s.log.Info("User registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (Token, error) {
	user, err := s.userRepository.GetUserByUsername(ctx, username)
	if err != nil {
		// Same answer for an unknown user and a wrong password
		s.log.Debug("Login rejected", "username", username, "error", err)
		return "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Username)
	if err != nil {
		return "", err
	}
	return Token(token), nil
}
