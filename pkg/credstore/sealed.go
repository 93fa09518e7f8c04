package credstore

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/gotrue-go/pkg/cryptox"
)

// DefaultSalt is used by NewSealedStoreFromPassphrase when none is given.
// Supply a per-installation salt where one can be kept.
var DefaultSalt = []byte("gotrue-go/credstore/v1")

// SealedStore encrypts values with AES-256-GCM before handing them to an
// inner store. The storage key is bound as additional data, so a value copied
// under a different key fails to open.
type SealedStore struct {
	inner  Store
	sealer *cryptox.Sealer
}

func NewSealedStore(inner Store, sealer *cryptox.Sealer) *SealedStore {
	return &SealedStore{inner: inner, sealer: sealer}
}

// NewSealedStoreFromPassphrase derives the key with Argon2id.
func NewSealedStoreFromPassphrase(inner Store, passphrase string, salt []byte) (*SealedStore, error) {
	if salt == nil {
		salt = DefaultSalt
	}

	key, err := cryptox.DeriveKey([]byte(passphrase), salt)
	if err != nil {
		return nil, err
	}

	sealer, err := cryptox.NewSealer(key)
	if err != nil {
		return nil, err
	}

	return NewSealedStore(inner, sealer), nil
}

func (s *SealedStore) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	plain, err := s.sealer.Open(sealed, []byte(key))
	if err != nil {
		return nil, fmt.Errorf("credstore: open %q: %w", key, err)
	}
	return plain, nil
}

func (s *SealedStore) Set(ctx context.Context, key string, value []byte) error {
	sealed, err := s.sealer.Seal(value, []byte(key))
	if err != nil {
		return fmt.Errorf("credstore: seal %q: %w", key, err)
	}
	return s.inner.Set(ctx, key, sealed)
}

func (s *SealedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}
