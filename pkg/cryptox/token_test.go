package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantLen int
	}{
		{"128-bit token", TokenSize128, 22},
		{"256-bit token", TokenSize256, 43},
		{"custom size", 24, 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := GenerateToken(tt.size)
			require.NoError(t, err)
			require.Len(t, token, tt.wantLen)

			// Verify token is unique (generate another and compare)
			token2, err := GenerateToken(tt.size)
			require.NoError(t, err)
			require.NotEqual(t, token, token2, "tokens should be unique")
		})
	}
}

func TestGenerateToken_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		token, err := GenerateToken(size)
		require.Error(t, err)
		require.Empty(t, token)
	}
}

func TestFingerprintToken(t *testing.T) {
	fp1a := FingerprintToken("supabase.session")
	fp1b := FingerprintToken("supabase.session")
	fp2 := FingerprintToken("supabase.session-code-verifier")

	require.Equal(t, fp1a, fp1b, "same input should produce same fingerprint")
	require.NotEqual(t, fp1a, fp2)
	require.Len(t, fp1a, 43)
	require.NotContains(t, fp1a, "/")
}

func TestHashNonce(t *testing.T) {
	// sha256("abc")
	require.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		HashNonce("abc"),
	)
}

func TestNewNonce(t *testing.T) {
	raw, hashed, err := NewNonce()
	require.NoError(t, err)
	require.Len(t, raw, 43)
	require.Len(t, hashed, 64)
	require.Equal(t, HashNonce(raw), hashed)
	require.NotEqual(t, raw, hashed)
}
