package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestGenerateParse_ConservaUsuarioYRol(t *testing.T) {
	token, err := Generate(secret, "ops-1", "operator", "device-stock-api", 5)
	require.NoError(t, err)

	userID, role, err := Parse(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "ops-1", userID)
	assert.Equal(t, "operator", role)

	_, _, err = Parse("otro-secret", token)
	assert.ErrorIs(t, err, gojwt.ErrTokenSignatureInvalid)
}

func TestParse_TokenExpirado(t *testing.T) {
	token, err := Generate(secret, "ops-1", "admin", "device-stock-api", -1)
	require.NoError(t, err)

	_, _, err = Parse(secret, token)
	assert.ErrorIs(t, err, gojwt.ErrTokenExpired)
}

func TestParse_RechazaAlgoritmoNone(t *testing.T) {
	claims := Claims{
		RegisteredClaims: gojwt.RegisteredClaims{ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour))},
		UserID:           "ops-1",
		Role:             "admin",
	}
	unsigned, err := gojwt.NewWithClaims(gojwt.SigningMethodNone, claims).SignedString(gojwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, _, err = Parse(secret, unsigned)
	assert.Error(t, err)
}

func TestSecretVacio(t *testing.T) {
	_, err := Generate("", "ops-1", "admin", "", 5)
	assert.Error(t, err)

	_, _, err = Parse("", "cualquier.cosa.aqui")
	assert.Error(t, err)
}
