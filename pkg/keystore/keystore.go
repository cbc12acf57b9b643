package keystore

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/crypto/nacl/box"

	apperrors "github.com/DeBrosOfficial/wavechat/pkg/errors"
	"github.com/DeBrosOfficial/wavechat/pkg/logging"
	"github.com/DeBrosOfficial/wavechat/pkg/storage"
)

const keyPrefix = "keypair::"

// KeyStore generates and persists one key pair per identity on a local store.
type KeyStore struct {
	store  storage.Store
	rand   io.Reader
	logger *logging.ColoredLogger
}

// Option configures a KeyStore.
type Option func(*KeyStore)

// WithRandom replaces the entropy source used for key generation.
func WithRandom(r io.Reader) Option {
	return func(k *KeyStore) { k.rand = r }
}

// WithLogger sets the logger.
func WithLogger(l *logging.ColoredLogger) Option {
	return func(k *KeyStore) { k.logger = l }
}

// New creates a KeyStore over store. The store should be local to this
// process; secret keys are written to it in the clear.
func New(store storage.Store, opts ...Option) *KeyStore {
	k := &KeyStore{store: store, rand: rand.Reader, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// EnsureKeyPair returns the identity's key pair, generating and persisting one
// on first use. Concurrent first calls converge on a single pair: the first
// write wins and every caller returns what was stored.
func (k *KeyStore) EnsureKeyPair(ctx context.Context, identity string) (*KeyPair, error) {
	id := NormalizeIdentity(identity)
	if id == "" {
		return nil, apperrors.NewValidationError("identity", "identity is required", identity)
	}

	if kp, found, err := k.LoadKeyPair(ctx, id); err != nil || found {
		return kp, err
	}

	pub, sec, err := box.GenerateKey(k.rand)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}
	kp := &KeyPair{Identity: id, PublicKey: *pub, SecretKey: *sec}

	data, err := marshalKeyPair(kp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode key pair: %w", err)
	}
	won, err := k.store.SetIfAbsent(ctx, keyPrefix+id, data)
	if err != nil {
		return nil, fmt.Errorf("failed to persist key pair: %w", err)
	}
	if won {
		k.logger.ComponentInfo(logging.ComponentKeyStore, "Generated key pair", zap.String("identity", id))
		return kp, nil
	}

	// Another writer got there first; its pair is the only valid one.
	stored, found, err := k.LoadKeyPair(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.NewInternalError("key pair vanished after concurrent create", nil).WithOperation("ensure_key_pair")
	}
	k.logger.ComponentDebug(logging.ComponentKeyStore, "Key pair created concurrently, using stored pair", zap.String("identity", id))
	return stored, nil
}

// LoadKeyPair looks up an existing pair without generating one.
func (k *KeyStore) LoadKeyPair(ctx context.Context, identity string) (*KeyPair, bool, error) {
	id := NormalizeIdentity(identity)
	if id == "" {
		return nil, false, apperrors.NewValidationError("identity", "identity is required", identity)
	}

	data, err := k.store.Get(ctx, keyPrefix+id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read key pair: %w", err)
	}
	kp, err := unmarshalKeyPair(keyPrefix+id, data)
	if err != nil {
		return nil, false, err
	}
	return kp, true, nil
}

// Import stores an externally supplied pair (for example one restored with
// ImportFile). It refuses to replace a different existing pair.
func (k *KeyStore) Import(ctx context.Context, kp *KeyPair) error {
	id := NormalizeIdentity(kp.Identity)
	if id == "" {
		return apperrors.NewValidationError("identity", "identity is required", kp.Identity)
	}
	kp.Identity = id

	data, err := marshalKeyPair(kp)
	if err != nil {
		return fmt.Errorf("failed to encode key pair: %w", err)
	}
	won, err := k.store.SetIfAbsent(ctx, keyPrefix+id, data)
	if err != nil {
		return fmt.Errorf("failed to persist key pair: %w", err)
	}
	if won {
		return nil
	}

	existing, _, err := k.LoadKeyPair(ctx, id)
	if err != nil {
		return err
	}
	if existing.PublicKey != kp.PublicKey {
		return apperrors.NewConflictError("key pair", "identity", id)
	}
	return nil
}
