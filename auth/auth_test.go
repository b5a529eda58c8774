package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPassword_HashAndVerify(t *testing.T) {
	req := require.New(t)

	phc, err := HashPassword("pw1")
	req.NoError(err)
	req.Contains(phc, "$argon2id$")

	ok, err := VerifyPassword("pw1", phc)
	req.NoError(err)
	req.True(ok)

	ok, err = VerifyPassword("wrong", phc)
	req.NoError(err)
	req.False(ok)
}

func TestPassword_RejectsMalformedHash(t *testing.T) {
	req := require.New(t)

	_, err := VerifyPassword("pw1", "not-a-phc-string")
	req.Error(err)
}

func TestTokens_MintAndParse(t *testing.T) {
	req := require.New(t)
	tokens := NewTokens([]byte("test-secret"), time.Hour)

	raw, err := tokens.Mint("u1", "owner", 7)
	req.NoError(err)

	claims, err := tokens.Parse(raw)
	req.NoError(err)
	req.Equal("u1", claims.UserID)
	req.Equal("owner", claims.Role)
	req.Equal(uint64(7), claims.Epoch)
}

func TestTokens_RejectsForeignSignature(t *testing.T) {
	req := require.New(t)

	raw, err := NewTokens([]byte("key-a"), time.Hour).Mint("u1", "worker", 1)
	req.NoError(err)

	_, err = NewTokens([]byte("key-b"), time.Hour).Parse(raw)
	req.Error(err)
}

func TestTokens_RejectsExpired(t *testing.T) {
	req := require.New(t)
	tokens := NewTokens([]byte("test-secret"), -time.Minute)

	raw, err := tokens.Mint("u1", "worker", 1)
	req.NoError(err)

	_, err = tokens.Parse(raw)
	req.Error(err)
}
