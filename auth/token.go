package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims tags every command issued by a session. Epoch identifies
// the login that minted the token: a callback carrying an older epoch must
// never mutate a newer session's store.
type SessionClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	Epoch  uint64 `json:"epoch"`
	jwt.RegisteredClaims
}

// Tokens mints and validates HS256 session tokens.
type Tokens struct {
	key []byte
	ttl time.Duration
}

func NewTokens(key []byte, ttl time.Duration) *Tokens {
	return &Tokens{key: key, ttl: ttl}
}

func (t *Tokens) Mint(userID, role string, epoch uint64) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		UserID: userID,
		Role:   role,
		Epoch:  epoch,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "team-mail",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
}

func (t *Tokens) Parse(raw string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(raw, &SessionClaims{}, func(*jwt.Token) (interface{}, error) {
		return t.key, nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}
