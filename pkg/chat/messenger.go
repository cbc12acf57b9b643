// Package chat is the client side of the protocol: it owns the caller's key
// pair and seals message bodies for every member before recording the
// uploaded pointers in the ledger. Reading reverses the path.
package chat

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/wavechat/pkg/content"
	"github.com/DeBrosOfficial/wavechat/pkg/envelope"
	apperrors "github.com/DeBrosOfficial/wavechat/pkg/errors"
	"github.com/DeBrosOfficial/wavechat/pkg/keystore"
	"github.com/DeBrosOfficial/wavechat/pkg/ledger"
	"github.com/DeBrosOfficial/wavechat/pkg/logging"
)

// Ledger is the subset of ledger operations a Messenger needs.
// *ledger.Ledger satisfies it.
type Ledger interface {
	RegisterProfile(ctx context.Context, caller string, in ledger.ProfileInput) (*ledger.Profile, error)
	GetProfile(ctx context.Context, caller, address string) (*ledger.Profile, error)
	GetConversation(ctx context.Context, caller, id string) (*ledger.Conversation, error)
	SendMessage(ctx context.Context, caller, conversationID string, in ledger.MessageInput) (*ledger.Message, error)
	FetchMessages(ctx context.Context, caller, conversationID string, cursor uint64, limit uint32) (*ledger.MessagePage, error)
}

// Messenger ties the ledger, the local key store, the content store and the
// envelope codec together.
type Messenger struct {
	ledger  Ledger
	keys    *keystore.KeyStore
	content content.Store
	codec   *envelope.Codec
	logger  *logging.ColoredLogger
}

// NewMessenger creates a Messenger. A nil codec or logger gets a default.
func NewMessenger(l Ledger, keys *keystore.KeyStore, store content.Store, codec *envelope.Codec, logger *logging.ColoredLogger) *Messenger {
	if codec == nil {
		codec = envelope.NewCodec()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Messenger{ledger: l, keys: keys, content: store, codec: codec, logger: logger}
}

// Register makes sure identity has a key pair and publishes its public key
// in the identity's profile. Whatever encryption key in carries is replaced.
func (m *Messenger) Register(ctx context.Context, identity string, in ledger.ProfileInput) (*ledger.Profile, error) {
	kp, err := m.keys.EnsureKeyPair(ctx, identity)
	if err != nil {
		return nil, err
	}
	in.EncryptionKey = kp.PublicKeyBase64()

	p, err := m.ledger.RegisterProfile(ctx, identity, in)
	if err != nil {
		return nil, err
	}
	m.logger.ComponentInfo(logging.ComponentChat, "Profile registered", zap.String("identity", identity))
	return p, nil
}

func (m *Messenger) keyPair(ctx context.Context, identity string) (*keystore.KeyPair, error) {
	kp, ok, err := m.keys.LoadKeyPair(ctx, identity)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NewNotFoundError("key pair", identity)
	}
	return kp, nil
}

// publishedKey returns the encryption key in address's profile.
func (m *Messenger) publishedKey(ctx context.Context, caller, address string) (string, error) {
	p, err := m.ledger.GetProfile(ctx, caller, address)
	if err != nil {
		return "", fmt.Errorf("failed to load profile %s: %w", address, err)
	}
	if p == nil || p.EncryptionKey == "" {
		return "", apperrors.NewNotFoundError("encryption key", address)
	}
	return p.EncryptionKey, nil
}
