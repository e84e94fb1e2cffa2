package jwt

import (
	"testing"
	"time"

	"github.com/authmesh/authcore/testutils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_RoundTrip(t *testing.T) {
	cfg := testutils.GetTestConfig()
	service := NewService(cfg, nil)

	before := time.Now()
	token, err := service.Generate(42, true, 15*time.Minute, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := service.Validate(token)
	require.NoError(t, err)

	assert.Equal(t, uint(42), claims.UserID)
	assert.True(t, claims.Admin)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, cfg.JWT.Issuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)

	// Timestamps survive the round trip at second resolution.
	assert.WithinDuration(t, before.Add(15*time.Minute), claims.ExpiresAt.Time, 2*time.Second)
	assert.WithinDuration(t, before, claims.IssuedAt.Time, 2*time.Second)
	assert.InDelta(t, before.Add(time.Hour).Unix(), claims.OTPExpires, 2)
	assert.False(t, claims.OTPTrustExpired())
}

func TestService_ZeroOTPTrustTTL(t *testing.T) {
	service := NewService(testutils.GetTestConfig(), nil)

	token, err := service.Generate(7, false, time.Hour, 0)
	require.NoError(t, err)

	claims, err := service.Validate(token)
	require.NoError(t, err)

	assert.True(t, claims.OTPTrustExpired())
}

func TestService_ExpiredToken(t *testing.T) {
	service := NewService(testutils.GetTestConfig(), nil)

	token, err := service.Generate(7, false, -time.Minute, 0)
	require.NoError(t, err)

	claims, err := service.Validate(token)

	assert.Nil(t, claims)
	testutils.AssertErrorType(t, ErrExpiredToken, err)
}

func TestService_MalformedToken(t *testing.T) {
	service := NewService(testutils.GetTestConfig(), nil)

	claims, err := service.Validate("not.a.token")

	assert.Nil(t, claims)
	testutils.AssertErrorType(t, ErrMalformedToken, err)
}

func TestService_WrongSecret(t *testing.T) {
	service := NewService(testutils.GetTestConfig(), nil)

	otherCfg := testutils.GetTestConfig()
	otherCfg.JWT.SecretKey = "z9y8x7w6v5u4t3s2r1q0p9o8n7m6l5k4"
	other := NewService(otherCfg, nil)

	token, err := other.Generate(7, false, time.Hour, 0)
	require.NoError(t, err)

	claims, err := service.Validate(token)

	assert.Nil(t, claims)
	testutils.AssertErrorType(t, ErrInvalidSignature, err)
}

func TestService_NoneAlgorithmRejected(t *testing.T) {
	service := NewService(testutils.GetTestConfig(), nil)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: 7,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	claims, err := service.Validate(token)

	assert.Nil(t, claims)
	require.Error(t, err)
}

func TestService_RemainingAccessTTL(t *testing.T) {
	service := NewService(testutils.GetTestConfig(), nil)

	token, err := service.Generate(7, false, 10*time.Minute, 0)
	require.NoError(t, err)

	claims, err := service.Validate(token)
	require.NoError(t, err)

	remaining := service.RemainingAccessTTL(claims)
	assert.Greater(t, remaining, 9*time.Minute)
	assert.LessOrEqual(t, remaining, 10*time.Minute)

	expired := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}
	assert.Equal(t, time.Duration(0), service.RemainingAccessTTL(expired))
}
