package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AppClaims defines the custom claims we include in our JWT.
// We embed jwt.RegisteredClaims to get standard claims like 'ExpiresAt'.
// UserID identifies the authenticated rider account.
type AppClaims struct {
	UserID string `json:"userID"`
	jwt.RegisteredClaims
}

// GenerateJWT creates a new signed JWT string for a given account ID.
// The token will have a standard expiration time.
func GenerateJWT(userID string, secret string) (string, error) {
	expirationTime := time.Now().Add(24 * time.Hour)

	claims := &AppClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
		},
	}

	// HS256 (HMAC using SHA-256) is a common and secure signing method.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	// Sign the token with our secret key so the client cannot tamper with it.
	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ValidateJWT parses and validates a JWT string. It checks the signature and
// standard claims like the expiration time, and returns the custom claims.
func ValidateJWT(tokenString string, secret string) (*AppClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Security check: ensure the token's signing method is what we expect.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})

	if err != nil {
		// Covers malformed tokens, invalid signatures and jwt.ErrTokenExpired.
		return nil, err
	}

	if claims, ok := token.Claims.(*AppClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
