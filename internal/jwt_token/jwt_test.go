package jwttoken_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "legado/internal/jwt_token"
	dErrors "legado/pkg/domain-errors"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	svc := jwttoken.NewJWTService("test-signing-key", "legado")

	token, err := svc.GenerateSessionToken("0xana", "V101", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "0xana", claims.Wallet)
	assert.Equal(t, "V101", claims.CivilID)
	assert.Equal(t, "legado", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateTokenExpired(t *testing.T) {
	svc := jwttoken.NewJWTService("test-signing-key", "legado")

	token, err := svc.GenerateSessionToken("0xana", "", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "expired")
}

func TestValidateTokenWrongKey(t *testing.T) {
	issuer := jwttoken.NewJWTService("key-one", "legado")
	verifier := jwttoken.NewJWTService("key-two", "legado")

	token, err := issuer.GenerateSessionToken("0xana", "", time.Hour)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func TestValidateTokenGarbage(t *testing.T) {
	svc := jwttoken.NewJWTService("test-signing-key", "legado")

	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}
