package auth

import (
	"chat-relay/errors"
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "chat-relay"

// CustomClaims defines the structure of the data stored inside the JWT.
// The subject holds the user id.
type CustomClaims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier issues and verifies HS256 tokens with a shared secret.
type JWTVerifier struct {
	secret   []byte
	duration time.Duration
}

func NewJWTVerifier(secret string, duration time.Duration) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), duration: duration}
}

// GenerateToken creates a signed JWT for a specific user.
func (v *JWTVerifier) GenerateToken(userID uuid.UUID, username string) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errors.ErrTokenGeneration, err)
	}
	return signed, nil
}

// ValidateToken parses and validates the signature and expiration of a JWT string.
func (v *JWTVerifier) ValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}

// Verify maps a credential to the user id it was issued for.
// Every failure wraps ErrAuthentication.
func (v *JWTVerifier) Verify(_ context.Context, credential string) (uuid.UUID, error) {
	if credential == "" {
		return uuid.Nil, fmt.Errorf("%w: missing credential", errors.ErrAuthentication)
	}
	claims, err := v.ValidateToken(credential)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", errors.ErrAuthentication, err)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid subject: %w", errors.ErrAuthentication, err)
	}
	return userID, nil
}
