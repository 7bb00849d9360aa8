// Package credentials resolves opaque credential handles into usable
// exchange API key material.
package credentials

import (
	"context"

	apperrors "straddle-trader/internal/errors"
	"straddle-trader/internal/models"
	"straddle-trader/internal/security"
	"straddle-trader/internal/store"
)

// Resolver resolves a credential handle into API keys. Implementations
// must never log or persist the decrypted material.
type Resolver interface {
	Resolve(ctx context.Context, handle models.CredentialHandle) (models.APIKeys, error)
}

// StoreResolver resolves handles against the credential store,
// decrypting key material on demand. Resolved keys live only for the
// duration of a single execution.
type StoreResolver struct {
	store  store.Store
	cipher *security.Cipher
}

// NewStoreResolver creates a store-backed credential resolver.
func NewStoreResolver(st store.Store, cipher *security.Cipher) *StoreResolver {
	return &StoreResolver{store: st, cipher: cipher}
}

// Resolve loads and decrypts the credential behind a handle.
func (r *StoreResolver) Resolve(ctx context.Context, handle models.CredentialHandle) (models.APIKeys, error) {
	cred, err := r.store.GetCredential(ctx, string(handle))
	if err != nil {
		return models.APIKeys{}, err
	}
	if !cred.Active {
		return models.APIKeys{}, apperrors.ErrCredentialRevoked
	}

	key, err := r.cipher.Decrypt(cred.APIKeyEnc)
	if err != nil {
		return models.APIKeys{}, apperrors.Wrap(err, "decrypting api key")
	}
	secret, err := r.cipher.Decrypt(cred.APISecretEnc)
	if err != nil {
		return models.APIKeys{}, apperrors.Wrap(err, "decrypting api secret")
	}

	return models.APIKeys{Key: key, Secret: secret}, nil
}

// Static is a fixed-key resolver for tests and paper trading.
type Static struct {
	Keys models.APIKeys
}

// Resolve returns the fixed keys for any handle.
func (s Static) Resolve(ctx context.Context, handle models.CredentialHandle) (models.APIKeys, error) {
	return s.Keys, nil
}
