package auth

import (
	"chat-relay/errors"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	req := require.New(t)
	password := "MyPasswordIsV3ryS@fe"

	hash, err := HashPassword(password)
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := ComparePassword(password, hash)
	req.NoError(err)
	req.True(match)

	// Wrong password
	match, err = ComparePassword("WrongPassword", hash)
	req.NoError(err)
	req.False(match)

	// Corrupted hash
	_, err = ComparePassword(password, "$bcrypt$whatever")
	req.ErrorIs(err, errors.ErrInvalidPassword)
}

func TestRegistrationValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr error
	}{
		{"Valid request", RegisterRequest{"alice", "ComplexPass123!"}, nil},
		{"Username too short", RegisterRequest{"al", "ComplexPass123!"}, errors.ErrInvalidUsername},
		{"Username with spaces", RegisterRequest{"al ice", "ComplexPass123!"}, errors.ErrInvalidUsername},
		{"Password too short", RegisterRequest{"alice", "Short1!"}, errors.ErrInvalidPassword},
		{"Missing digit", RegisterRequest{"alice", "NoDigitPass!"}, errors.ErrInvalidPassword},
		{"Missing special char", RegisterRequest{"alice", "NoSpecialChar123"}, errors.ErrInvalidPassword},
		{"Missing uppercase", RegisterRequest{"alice", "nouppercase123!"}, errors.ErrInvalidPassword},
		{"Password too long (edge case)", RegisterRequest{"alice", strings.Repeat("a", 73)}, errors.ErrInvalidPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			err := ValidateRegister(tt.req)
			if tt.wantErr == nil {
				req.NoError(err)
				return
			}
			req.ErrorIs(err, tt.wantErr)
		})
	}
}

func TestJWTVerifier_Verify(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	verifier := NewJWTVerifier("a-secret-long-enough-for-hs256", time.Hour)
	userID := uuid.New()

	// Given a token issued for a user
	token, err := verifier.GenerateToken(userID, "alice")
	req.NoError(err)

	// Then it resolves to that user
	got, err := verifier.Verify(ctx, token)
	req.NoError(err)
	req.Equal(userID, got)

	// And a missing or forged credential is rejected
	_, err = verifier.Verify(ctx, "")
	req.ErrorIs(err, errors.ErrAuthentication)
	_, err = verifier.Verify(ctx, "not-a-token")
	req.ErrorIs(err, errors.ErrAuthentication)

	other := NewJWTVerifier("another-secret-of-the-same-size", time.Hour)
	forged, err := other.GenerateToken(userID, "alice")
	req.NoError(err)
	_, err = verifier.Verify(ctx, forged)
	req.ErrorIs(err, errors.ErrAuthentication)
}

func TestJWTVerifier_Rejects_Expired_And_Foreign_Tokens(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	secret := "a-secret-long-enough-for-hs256"

	// Given an expired token
	expired, err := NewJWTVerifier(secret, -time.Minute).GenerateToken(uuid.New(), "alice")
	req.NoError(err)
	_, err = NewJWTVerifier(secret, time.Hour).Verify(ctx, expired)
	req.ErrorIs(err, errors.ErrAuthentication)
	req.ErrorIs(err, jwt.ErrTokenExpired)

	// Given a token whose subject is not a user id
	claims := jwt.RegisteredClaims{
		Subject:   "user-123",
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	req.NoError(err)
	_, err = NewJWTVerifier(secret, time.Hour).Verify(ctx, signed)
	req.ErrorIs(err, errors.ErrAuthentication)
}

func TestExtractCredential(t *testing.T) {
	req := require.New(t)

	r := httptest.NewRequest("GET", "/api/ws/a/b", nil)
	r.Header.Set("Authorization", "Bearer abc")
	req.Equal("abc", ExtractCredential(r))

	r = httptest.NewRequest("GET", "/api/ws/a/b?access_token=xyz", nil)
	req.Equal("xyz", ExtractCredential(r))

	r = httptest.NewRequest("GET", "/api/ws/a/b?access_token=xyz", nil)
	r.Header.Set("Authorization", "Basic abc")
	req.Empty(ExtractCredential(r))
}

func BenchmarkHashPassword(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = HashPassword("A-very-long-and-complex-password-for-bench-123!")
	}
}
