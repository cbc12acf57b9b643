package cli

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/DeBrosOfficial/wavechat/pkg/chat"
	"github.com/DeBrosOfficial/wavechat/pkg/client"
	"github.com/DeBrosOfficial/wavechat/pkg/keystore"
	"github.com/DeBrosOfficial/wavechat/pkg/storage"
)

// session is a signed-in client plus the local key store.
type session struct {
	wallet    string
	client    *client.Client
	keys      *keystore.KeyStore
	messenger *chat.Messenger
	store     storage.Store
}

func (s *session) Close() error {
	return s.store.Close()
}

// loadOrCreateWallet reads the hex secp256k1 key at path, generating and
// saving one with 0600 permissions when the file does not exist.
func loadOrCreateWallet(path string) (*ecdsa.PrivateKey, bool, error) {
	key, err := ethcrypto.LoadECDSA(path)
	if err == nil {
		return key, false, nil
	}
	if !os.IsNotExist(err) {
		return nil, false, fmt.Errorf("failed to load wallet key %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, false, fmt.Errorf("failed to create wallet directory: %w", err)
	}
	key, err = ethcrypto.GenerateKey()
	if err != nil {
		return nil, false, fmt.Errorf("failed to generate wallet key: %w", err)
	}
	if err := ethcrypto.SaveECDSA(path, key); err != nil {
		return nil, false, fmt.Errorf("failed to save wallet key: %w", err)
	}
	return key, true, nil
}

func walletAddress(key *ecdsa.PrivateKey) string {
	return strings.ToLower(ethcrypto.PubkeyToAddress(key.PublicKey).Hex())
}

func openKeyStore(ctx context.Context, env *Env) (storage.Store, error) {
	kc := env.Config.KeyStore
	if kc.Backend != "sqlite" {
		return storage.NewMemoryStore(), nil
	}
	return storage.OpenSQLite(ctx, kc.SQLitePath, "chatctl_keys", env.Logger.Logger)
}

// openSession signs in with the wallet key and wires a Messenger over the
// gateway client.
func openSession(ctx context.Context, env *Env) (*session, error) {
	key, _, err := loadOrCreateWallet(env.WalletPath)
	if err != nil {
		return nil, err
	}

	c, err := client.NewClient(client.Config{
		GatewayURL: env.Config.Client.GatewayURL,
		Timeout:    env.Config.Client.Timeout,
	}, env.Logger)
	if err != nil {
		return nil, err
	}
	if _, err := c.SignIn(ctx, key); err != nil {
		return nil, fmt.Errorf("sign-in failed: %w", err)
	}

	store, err := openKeyStore(ctx, env)
	if err != nil {
		return nil, err
	}
	keys := keystore.New(store, keystore.WithLogger(env.Logger))
	return &session{
		wallet:    c.Wallet(),
		client:    c,
		keys:      keys,
		messenger: chat.NewMessenger(c, keys, c, nil, env.Logger),
		store:     store,
	}, nil
}
