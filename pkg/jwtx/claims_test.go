package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/gotrue-go/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// signHS256 builds a token the way the service would; the client never
// verifies the signature so the key is arbitrary.
func signHS256(t *testing.T, claims jwt.Claims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestParseUnverified(t *testing.T) {
	exp := time.Unix(1_900_000_000, 0)

	token := signHS256(t, jwtx.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "6b6a4f0e-2c1a-4f55-9d4c-3d3f1f0b7a11",
			Issuer:    "https://proj.example.co/auth/v1",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Email:     "ada@example.com",
		Role:      "authenticated",
		SessionID: "sess-1",
		AAL:       "aal1",
		AMR:       []jwtx.AMREntry{{Method: "password", Timestamp: 1_700_000_000}},
	})

	claims, err := jwtx.ParseUnverified(token)
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", claims.Email)
	require.Equal(t, "sess-1", claims.SessionID)
	require.Len(t, claims.AMR, 1)
	require.Equal(t, "password", claims.AMR[0].Method)
	require.Equal(t, "https://proj.example.co/auth/v1", claims.Issuer)

	got, err := claims.Expiry()
	require.NoError(t, err)
	require.True(t, exp.Equal(got))

	unix, err := jwtx.ExpiryOf(token)
	require.NoError(t, err)
	require.EqualValues(t, 1_900_000_000, unix)
}

func TestParseUnverified_MissingExp(t *testing.T) {
	token := signHS256(t, jwt.RegisteredClaims{Subject: "someone"})

	_, err := jwtx.ExpiryOf(token)
	require.ErrorIs(t, err, jwtx.ErrMissingExp)
}

func TestParseUnverified_Malformed(t *testing.T) {
	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := jwtx.ParseUnverified(token)
		require.ErrorIs(t, err, jwtx.ErrMalformed, token)
	}
}

func TestExpiredAt(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(30 * time.Second)),
	}}

	require.False(t, c.ExpiredAt(now, 0))
	require.True(t, c.ExpiredAt(now, time.Minute))
	require.True(t, c.ExpiredAt(now.Add(30*time.Second), 0))

	var none jwtx.Claims
	require.False(t, none.ExpiredAt(now, time.Hour))
}
