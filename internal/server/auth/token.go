// Package auth implements the two credential primitives of the identity
// core: bearer token issuance/verification (HS256 JWT) and password hashing
// (PBKDF2-HMAC-SHA512 with a per-user salt).
package auth

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"authkeeper/internal/common"
)

// TokenInvalidMessage is returned to callers presenting a token that fails
// verification for any reason.
const TokenInvalidMessage = "Invalid or expired token"

// Claims is the set of fields embedded in and recoverable from a verified
// token: the public profile plus the registered iat/exp pair.
type Claims struct {
	jwt.RegisteredClaims
	Email      string  `json:"email"`
	Username   string  `json:"username"`
	Bio        *string `json:"bio"`
	Image      *string `json:"image"`
	CreateTime int64   `json:"createTime,omitempty"`
	UpdateTime int64   `json:"updateTime,omitempty"`
}

// timeNow is a seam for tests.
var timeNow = time.Now

// IssueToken signs claims into a bearer token valid for the given duration.
// IssuedAt and ExpiresAt are stamped here; exp is always iat + validity.
func IssueToken(claims Claims, secretKey []byte, validity time.Duration) (string, error) {
	now := timeNow()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(validity))

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secretKey)
	if err != nil {
		return "", common.InternalError(err)
	}
	return tokenString, nil
}

// VerifyToken validates the signature and expiry of tokenString and returns
// its claims. Bad signatures, malformed tokens, and elapsed expiry all
// surface as Unauthorized; a decoded payload of an unexpected shape surfaces
// as an internal error.
func VerifyToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	})
	if err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, common.InternalError(err)
		}
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed),
			errors.Is(err, jwt.ErrTokenExpired),
			errors.Is(err, jwt.ErrTokenNotValidYet),
			errors.Is(err, jwt.ErrTokenSignatureInvalid),
			errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, common.UnauthorizedError(TokenInvalidMessage)
		}
		return nil, common.InternalError(err)
	}

	if !token.Valid {
		return nil, common.UnauthorizedError(TokenInvalidMessage)
	}
	return claims, nil
}
