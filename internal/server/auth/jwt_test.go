package auth

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/finkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")

	tok, err := GenerateToken("user-123", secret, time.Hour)
	require.NoError(t, err)

	got, err := GetUserIDFromToken(tok, secret)
	require.NoError(t, err)
	assert.Equal(t, "user-123", got)
}

func TestGetUserIDFromToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok, err := GenerateToken("u1", secret, -time.Second)
	require.NoError(t, err)

	_, err = GetUserIDFromToken(tok, secret)
	require.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestGetUserIDFromToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken("u1", []byte("one"), time.Hour)
	require.NoError(t, err)

	_, err = GetUserIDFromToken(tok, []byte("two"))
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestGetUserIDFromToken_Garbage(t *testing.T) {
	t.Parallel()

	_, err := GetUserIDFromToken("not-a-jwt", []byte("k"))
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestGetUserIDFromToken_RejectsOtherAlg(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           "u1",
	}).SignedString(secret)
	require.NoError(t, err)

	_, err = GetUserIDFromToken(tok, secret)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestGetUserIDFromToken_NoUser(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	tok, err := GenerateToken("", secret, time.Hour)
	require.NoError(t, err)

	_, err = GetUserIDFromToken(tok, secret)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}
