// Package auth authenticates wallet owners: a client asks for a nonce, signs
// it with personal_sign and trades the signature for a bearer token.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	apperrors "github.com/DeBrosOfficial/wavechat/pkg/errors"
	"github.com/DeBrosOfficial/wavechat/pkg/logging"
	"github.com/DeBrosOfficial/wavechat/pkg/storage"
)

const (
	DefaultChallengeTTL = 5 * time.Minute
	DefaultSessionTTL   = 24 * time.Hour

	realm = "wavechat"
)

// Config holds the token lifetimes.
type Config struct {
	ChallengeTTL time.Duration
	SessionTTL   time.Duration
}

// Challenge is a nonce waiting to be signed.
type Challenge struct {
	Wallet    string    `json:"wallet"`
	Nonce     string    `json:"nonce"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Session is an issued bearer token. Token is only set when the session is
// first issued; the store keeps a hash of it.
type Session struct {
	Token     string    `json:"token,omitempty"`
	Wallet    string    `json:"wallet"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service issues challenges and sessions. Records live in a storage.Store so
// sessions survive a restart when the store is persistent.
type Service struct {
	store        storage.Store
	logger       *logging.ColoredLogger
	challengeTTL time.Duration
	sessionTTL   time.Duration
	now          func() time.Time
	rand         io.Reader
}

// NewService creates the auth service.
func NewService(store storage.Store, cfg Config, logger *logging.ColoredLogger) *Service {
	if cfg.ChallengeTTL <= 0 {
		cfg.ChallengeTTL = DefaultChallengeTTL
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		store:        store,
		logger:       logger,
		challengeTTL: cfg.ChallengeTTL,
		sessionTTL:   cfg.SessionTTL,
		now:          time.Now,
		rand:         rand.Reader,
	}
}

// NormalizeWallet validates an Ethereum address and lower-cases it.
func NormalizeWallet(wallet string) (string, error) {
	w := strings.TrimSpace(wallet)
	if !common.IsHexAddress(w) {
		return "", apperrors.NewValidationError("wallet", "wallet must be a hex address", wallet)
	}
	if !strings.HasPrefix(w, "0x") && !strings.HasPrefix(w, "0X") {
		w = "0x" + w
	}
	return strings.ToLower(w), nil
}

// CreateChallenge issues a single-use nonce for wallet.
func (s *Service) CreateChallenge(ctx context.Context, wallet string) (*Challenge, error) {
	w, err := NormalizeWallet(wallet)
	if err != nil {
		return nil, err
	}

	// Generate a URL-safe random nonce (32 bytes)
	buf := make([]byte, 32)
	if _, err := io.ReadFull(s.rand, buf); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	c := &Challenge{
		Wallet:    w,
		Nonce:     base64.RawURLEncoding.EncodeToString(buf),
		ExpiresAt: s.now().Add(s.challengeTTL).UTC(),
	}

	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, nonceKey(c.Nonce), data); err != nil {
		return nil, fmt.Errorf("failed to store nonce: %w", err)
	}
	return c, nil
}

// Verify checks the personal_sign signature over nonce and issues a session.
// A nonce is consumed by its first verification attempt, successful or not.
func (s *Service) Verify(ctx context.Context, wallet, nonce, signature string) (*Session, error) {
	w, err := NormalizeWallet(wallet)
	if err != nil {
		return nil, err
	}
	if nonce == "" {
		return nil, apperrors.NewValidationError("nonce", "nonce is required", nil)
	}

	data, err := s.store.Get(ctx, nonceKey(nonce))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, s.denied("unknown nonce")
		}
		return nil, fmt.Errorf("failed to load nonce: %w", err)
	}
	var c Challenge
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, apperrors.NewCorruptError(nonceKey(nonce), err)
	}

	fresh, err := s.store.SetIfAbsent(ctx, consumedKey(nonce), []byte(strconv.FormatInt(s.now().UnixMilli(), 10)))
	if err != nil {
		return nil, fmt.Errorf("failed to consume nonce: %w", err)
	}
	if !fresh {
		return nil, s.denied("nonce already used")
	}
	if c.Wallet != w {
		return nil, s.denied("nonce was issued to another wallet")
	}
	if s.now().After(c.ExpiresAt) {
		return nil, s.denied("nonce expired")
	}

	ok, err := VerifySignature(w, nonce, signature)
	if err != nil {
		return nil, apperrors.NewValidationError("signature", err.Error(), nil)
	}
	if !ok {
		return nil, s.denied("signature does not match wallet")
	}

	return s.issue(ctx, w)
}

func (s *Service) issue(ctx context.Context, wallet string) (*Session, error) {
	buf := make([]byte, 32)
	if _, err := io.ReadFull(s.rand, buf); err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	sess := Session{Wallet: wallet, ExpiresAt: s.now().Add(s.sessionTTL).UTC()}
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, sessionKey(token), data); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.ComponentInfo(logging.ComponentAuth, "Session issued",
		zap.String("wallet", wallet), logging.Secret("token", token), zap.Time("expires_at", sess.ExpiresAt))
	sess.Token = token
	return &sess, nil
}

// Authenticate resolves a bearer token to its wallet.
func (s *Service) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", apperrors.NewUnauthorizedError("missing bearer token").WithRealm(realm)
	}
	data, err := s.store.Get(ctx, sessionKey(token))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", apperrors.NewUnauthorizedError("invalid token").WithRealm(realm)
		}
		return "", fmt.Errorf("failed to load session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return "", apperrors.NewCorruptError("session", err)
	}
	if s.now().After(sess.ExpiresAt) {
		return "", apperrors.NewUnauthorizedError("token expired").WithRealm(realm)
	}
	return sess.Wallet, nil
}

func (s *Service) denied(reason string) error {
	s.logger.ComponentWarn(logging.ComponentAuth, "Wallet verification rejected", zap.String("reason", reason))
	return apperrors.NewUnauthorizedError(reason).WithRealm(realm)
}

// VerifySignature reports whether signature is wallet's personal_sign
// signature over message.
func VerifySignature(wallet, message, signature string) (bool, error) {
	msg := []byte(message)
	prefix := []byte("\x19Ethereum Signed Message:\n" + strconv.Itoa(len(msg)))
	hash := ethcrypto.Keccak256(prefix, msg)

	sigHex := strings.TrimSpace(signature)
	if strings.HasPrefix(sigHex, "0x") || strings.HasPrefix(sigHex, "0X") {
		sigHex = sigHex[2:]
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil || len(sig) != 65 {
		return false, fmt.Errorf("invalid signature format")
	}

	if sig[64] >= 27 {
		sig[64] -= 27
	}

	pub, err := ethcrypto.SigToPub(hash, sig)
	if err != nil {
		return false, fmt.Errorf("signature recovery failed: %w", err)
	}

	addr := ethcrypto.PubkeyToAddress(*pub).Hex()
	want := strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(wallet, "0x"), "0X"))
	got := strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(addr, "0x"), "0X"))

	return got == want, nil
}

func nonceKey(nonce string) string    { return "auth::nonce::" + nonce }
func consumedKey(nonce string) string { return "auth::consumed::" + nonce }

func sessionKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "auth::session::" + hex.EncodeToString(sum[:])
}
