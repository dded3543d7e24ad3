// Package auth signs and verifies the access and refresh tokens handed to
// clients. Both kinds are HS256 JWTs; callers pass the secret that matches
// the token kind so one secret can never validate the other kind.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/filekeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carries the standard registered claims plus the owning user id.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"id"`
}

// TokenInfo is the verified content of a token.
type TokenInfo struct {
	UserID    int64
	ExpiresAt time.Time
}

// now is replaced in tests.
var now = time.Now

// GenerateToken signs a token for userID that expires after validityDuration.
// Every token gets a random jti, so two tokens issued within the same second
// for the same user still differ.
func GenerateToken(userID int64, secretKey []byte, validityDuration time.Duration) (string, error) {
	issuedAt := now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(validityDuration)),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return tokenString, nil
}

// ParseToken verifies signature and expiry. It returns common.ErrTokenExpired
// for an expired but otherwise well-formed token and common.ErrInvalidToken
// for everything else.
func ParseToken(tokenString string, secretKey []byte) (*TokenInfo, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.UserID <= 0 {
		return nil, common.ErrInvalidToken
	}

	return &TokenInfo{UserID: claims.UserID, ExpiresAt: claims.ExpiresAt.Time}, nil
}
