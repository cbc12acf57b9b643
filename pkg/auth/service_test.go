package auth

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"strconv"
	"strings"
	"testing"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	apperrors "github.com/DeBrosOfficial/wavechat/pkg/errors"
	"github.com/DeBrosOfficial/wavechat/pkg/storage"
)

func personalSign(t *testing.T, key *ecdsa.PrivateKey, message string) string {
	t.Helper()
	prefix := []byte("\x19Ethereum Signed Message:\n" + strconv.Itoa(len(message)))
	hash := ethcrypto.Keccak256(prefix, []byte(message))
	sig, err := ethcrypto.Sign(hash, key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sig[64] += 27 // wallets report v as 27/28
	return "0x" + hex.EncodeToString(sig)
}

func newWallet(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key, ethcrypto.PubkeyToAddress(key.PublicKey).Hex()
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestService() (*Service, *clock) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	s := NewService(storage.NewMemoryStore(), Config{ChallengeTTL: time.Minute, SessionTTL: time.Hour}, nil)
	s.now = c.now
	return s, c
}

func TestVerifySignature(t *testing.T) {
	key, addr := newWallet(t)
	sig := personalSign(t, key, "nonce-123")

	tests := []struct {
		name    string
		wallet  string
		message string
		sig     string
		want    bool
		wantErr bool
	}{
		{"valid checksummed", addr, "nonce-123", sig, true, false},
		{"valid lowercase", strings.ToLower(addr), "nonce-123", sig, true, false},
		{"no 0x prefix", addr, "nonce-123", strings.TrimPrefix(sig, "0x"), true, false},
		{"other message", addr, "nonce-456", sig, false, false},
		{"other wallet", "0x0000000000000000000000000000000000000001", "nonce-123", sig, false, false},
		{"short signature", addr, "nonce-123", "0xdeadbeef", false, true},
		{"not hex", addr, "nonce-123", "0xzz", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VerifySignature(tt.wallet, tt.message, tt.sig)
			if (err != nil) != tt.wantErr {
				t.Fatalf("VerifySignature() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("VerifySignature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeWallet(t *testing.T) {
	got, err := NormalizeWallet(" 0xAbCdEf0123456789aBcDeF0123456789AbCdEf01 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "0xabcdef0123456789abcdef0123456789abcdef01" {
		t.Errorf("got %s", got)
	}
	if _, err := NormalizeWallet("alice"); !apperrors.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestChallengeFlow(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService()
	key, addr := newWallet(t)

	c, err := s.CreateChallenge(ctx, addr)
	if err != nil {
		t.Fatalf("CreateChallenge: %v", err)
	}
	if c.Wallet != strings.ToLower(addr) {
		t.Errorf("challenge wallet = %s", c.Wallet)
	}

	sess, err := s.Verify(ctx, addr, c.Nonce, personalSign(t, key, c.Nonce))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if sess.Token == "" {
		t.Fatal("expected a token")
	}

	wallet, err := s.Authenticate(ctx, sess.Token)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if wallet != strings.ToLower(addr) {
		t.Errorf("Authenticate() = %s", wallet)
	}

	// Nonces are single use.
	if _, err := s.Verify(ctx, addr, c.Nonce, personalSign(t, key, c.Nonce)); !apperrors.IsUnauthorized(err) {
		t.Errorf("expected replay to be rejected, got %v", err)
	}
}

func TestVerifyRejections(t *testing.T) {
	ctx := context.Background()
	key, addr := newWallet(t)
	otherKey, otherAddr := newWallet(t)

	t.Run("unknown nonce", func(t *testing.T) {
		s, _ := newTestService()
		if _, err := s.Verify(ctx, addr, "nope", personalSign(t, key, "nope")); !apperrors.IsUnauthorized(err) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("wrong signer", func(t *testing.T) {
		s, _ := newTestService()
		c, _ := s.CreateChallenge(ctx, addr)
		if _, err := s.Verify(ctx, addr, c.Nonce, personalSign(t, otherKey, c.Nonce)); !apperrors.IsUnauthorized(err) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("nonce for another wallet", func(t *testing.T) {
		s, _ := newTestService()
		c, _ := s.CreateChallenge(ctx, addr)
		if _, err := s.Verify(ctx, otherAddr, c.Nonce, personalSign(t, otherKey, c.Nonce)); !apperrors.IsUnauthorized(err) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("expired nonce", func(t *testing.T) {
		s, clk := newTestService()
		c, _ := s.CreateChallenge(ctx, addr)
		clk.t = clk.t.Add(2 * time.Minute)
		if _, err := s.Verify(ctx, addr, c.Nonce, personalSign(t, key, c.Nonce)); !apperrors.IsUnauthorized(err) {
			t.Errorf("got %v", err)
		}
	})

	t.Run("malformed signature", func(t *testing.T) {
		s, _ := newTestService()
		c, _ := s.CreateChallenge(ctx, addr)
		if _, err := s.Verify(ctx, addr, c.Nonce, "0x1234"); !apperrors.IsValidation(err) {
			t.Errorf("got %v", err)
		}
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	s, clk := newTestService()
	key, addr := newWallet(t)

	if _, err := s.Authenticate(ctx, ""); !apperrors.IsUnauthorized(err) {
		t.Errorf("empty token: got %v", err)
	}
	if _, err := s.Authenticate(ctx, "forged"); !apperrors.IsUnauthorized(err) {
		t.Errorf("unknown token: got %v", err)
	}

	c, _ := s.CreateChallenge(ctx, addr)
	sess, err := s.Verify(ctx, addr, c.Nonce, personalSign(t, key, c.Nonce))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	clk.t = clk.t.Add(2 * time.Hour)
	if _, err := s.Authenticate(ctx, sess.Token); !apperrors.IsUnauthorized(err) {
		t.Errorf("expired token: got %v", err)
	}
}
