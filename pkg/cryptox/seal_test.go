package cryptox_test

import (
	"bytes"
	"testing"

	"github.com/aussiebroadwan/gotrue-go/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func testSealer(t *testing.T) *cryptox.Sealer {
	t.Helper()

	key, err := cryptox.DeriveKey([]byte("correct horse battery staple"), []byte("gotrue-go-salt"))
	require.NoError(t, err)

	s, err := cryptox.NewSealer(key)
	require.NoError(t, err)
	return s
}

func TestSealOpen(t *testing.T) {
	s := testSealer(t)
	plaintext := []byte(`{"session":{"access_token":"A"}}`)

	sealed, err := s.Seal(plaintext, []byte("supabase.session"))
	require.NoError(t, err)
	require.False(t, bytes.Contains(sealed, []byte("access_token")))

	opened, err := s.Open(sealed, []byte("supabase.session"))
	require.NoError(t, err)
	require.Equal(t, plaintext, opened)
}

func TestSeal_RandomNonce(t *testing.T) {
	s := testSealer(t)

	// Same plaintext twice must produce different ciphertexts
	a, err := s.Seal([]byte("x"), nil)
	require.NoError(t, err)
	b, err := s.Seal([]byte("x"), nil)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestOpen_Failures(t *testing.T) {
	s := testSealer(t)

	sealed, err := s.Seal([]byte("secret"), []byte("key-a"))
	require.NoError(t, err)

	t.Run("wrong additional data", func(t *testing.T) {
		_, err := s.Open(sealed, []byte("key-b"))
		require.Error(t, err)
	})

	t.Run("tampered", func(t *testing.T) {
		bad := bytes.Clone(sealed)
		bad[len(bad)-1] ^= 0xff
		_, err := s.Open(bad, []byte("key-a"))
		require.Error(t, err)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := s.Open([]byte{1, 2, 3}, nil)
		require.ErrorIs(t, err, cryptox.ErrCiphertextShort)
	})

	t.Run("different key", func(t *testing.T) {
		key, err := cryptox.DeriveKey([]byte("another passphrase"), []byte("gotrue-go-salt"))
		require.NoError(t, err)
		other, err := cryptox.NewSealer(key)
		require.NoError(t, err)

		_, err = other.Open(sealed, []byte("key-a"))
		require.Error(t, err)
	})
}

func TestDeriveKey(t *testing.T) {
	a, err := cryptox.DeriveKey([]byte("pass"), []byte("saltsalt"))
	require.NoError(t, err)
	b, err := cryptox.DeriveKey([]byte("pass"), []byte("saltsalt"))
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a, cryptox.KeySize)

	_, err = cryptox.DeriveKey(nil, []byte("saltsalt"))
	require.Error(t, err)

	_, err = cryptox.DeriveKey([]byte("pass"), []byte("short"))
	require.Error(t, err)
}

func TestNewSealer_KeySize(t *testing.T) {
	_, err := cryptox.NewSealer(make([]byte, 16))
	require.Error(t, err)
}
