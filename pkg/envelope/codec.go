package envelope

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/nacl/box"

	apperrors "github.com/DeBrosOfficial/wavechat/pkg/errors"
	"github.com/DeBrosOfficial/wavechat/pkg/keystore"
	"github.com/DeBrosOfficial/wavechat/pkg/logging"
)

// Codec seals and opens envelope sets. It holds no shared state besides its
// entropy source and clock, so one Codec may be used concurrently.
type Codec struct {
	rand   io.Reader
	now    func() time.Time
	logger *logging.ColoredLogger
}

// Option configures a Codec.
type Option func(*Codec)

// WithRandom replaces the nonce source.
func WithRandom(r io.Reader) Option {
	return func(c *Codec) { c.rand = r }
}

// WithClock replaces the clock used for createdAt.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *logging.ColoredLogger) Option {
	return func(c *Codec) { c.logger = l }
}

// NewCodec creates a Codec.
func NewCodec(opts ...Option) *Codec {
	c := &Codec{rand: rand.Reader, now: time.Now, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Encrypt seals body once per recipient and once for the author, who is
// always included. Recipients are deduplicated case-insensitively with the
// author taking precedence over a recipient entry for the same address.
func (c *Codec) Encrypt(author *keystore.KeyPair, conversationID string, body Body, recipients []Recipient) (*Sealed, error) {
	if author == nil || keystore.NormalizeIdentity(author.Identity) == "" {
		return nil, apperrors.NewValidationError("author", "author key pair is required", nil)
	}
	if conversationID == "" {
		return nil, apperrors.NewValidationError("conversationId", "conversation id is required", conversationID)
	}

	type target struct {
		address string
		key     [keystore.KeySize]byte
	}
	targets := []target{{address: author.Identity, key: author.PublicKey}}
	seen := map[string]struct{}{keystore.NormalizeIdentity(author.Identity): {}}

	for i, r := range recipients {
		norm := keystore.NormalizeIdentity(r.Address)
		if norm == "" {
			return nil, apperrors.NewValidationError(fmt.Sprintf("recipients[%d].address", i), "recipient address is required", r.Address)
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		key, err := keystore.ParsePublicKey(r.PublicKey)
		if err != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("recipients[%d].publicKey", i), err.Error(), r.Address)
		}
		seen[norm] = struct{}{}
		targets = append(targets, target{address: r.Address, key: key})
	}

	plaintext, err := marshalBody(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode body: %w", err)
	}

	senderKey := base64.StdEncoding.EncodeToString(author.PublicKey[:])
	envelopes := make(map[string]Envelope, len(targets))
	for _, t := range targets {
		var nonce [NonceSize]byte
		if _, err := io.ReadFull(c.rand, nonce[:]); err != nil {
			return nil, fmt.Errorf("failed to draw nonce: %w", err)
		}
		recipientKey := t.key
		sealed := box.Seal(nil, plaintext, &nonce, &recipientKey, &author.SecretKey)
		envelopes[t.address] = Envelope{
			Nonce:           base64.StdEncoding.EncodeToString(nonce[:]),
			Ciphertext:      base64.StdEncoding.EncodeToString(sealed),
			SenderPublicKey: senderKey,
		}
	}

	set := Set{
		Version:        Version,
		ConversationID: conversationID,
		Author:         author.Identity,
		CreatedAt:      c.now().UnixMilli(),
		Envelopes:      envelopes,
	}
	serialized, err := json.Marshal(set)
	if err != nil {
		return nil, fmt.Errorf("failed to encode envelope set: %w", err)
	}

	c.logger.ComponentDebug(logging.ComponentEnvelope, "Sealed envelope set",
		zap.String("conversation_id", conversationID),
		zap.Int("envelopes", len(envelopes)),
		zap.Int("bytes", len(serialized)),
	)
	return &Sealed{Serialized: serialized, Checksum: Checksum(serialized)}, nil
}

// Parse decodes a serialized envelope set.
func Parse(serialized []byte) (*Set, error) {
	var set Set
	if err := json.Unmarshal(serialized, &set); err != nil {
		return nil, apperrors.NewDecryptionError(apperrors.ReasonMalformedEnvelope, err)
	}
	if set.Envelopes == nil {
		return nil, apperrors.NewDecryptionError(apperrors.ReasonMalformedEnvelope, fmt.Errorf("envelope set has no envelopes"))
	}
	return &set, nil
}

// Decrypt opens the reader's envelope. Every failure is a DecryptionError;
// its Reason separates a missing envelope, failed authentication, a mangled
// envelope, and an opened body that is not a valid Body.
func (c *Codec) Decrypt(serialized []byte, reader string, secretKey *[keystore.KeySize]byte) (*Body, error) {
	set, err := Parse(serialized)
	if err != nil {
		return nil, err
	}
	return set.Open(reader, secretKey)
}

// Open opens the reader's envelope in an already parsed set.
func (s *Set) Open(reader string, secretKey *[keystore.KeySize]byte) (*Body, error) {
	env, ok := s.Lookup(reader)
	if !ok {
		return nil, apperrors.NewDecryptionError(apperrors.ReasonNoEnvelope, nil)
	}

	nonceRaw, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil || len(nonceRaw) != NonceSize {
		return nil, apperrors.NewDecryptionError(apperrors.ReasonMalformedEnvelope, fmt.Errorf("invalid nonce"))
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, apperrors.NewDecryptionError(apperrors.ReasonMalformedEnvelope, fmt.Errorf("invalid ciphertext: %w", err))
	}
	senderKey, err := keystore.ParsePublicKey(env.SenderPublicKey)
	if err != nil {
		return nil, apperrors.NewDecryptionError(apperrors.ReasonMalformedEnvelope, err)
	}

	var nonce [NonceSize]byte
	copy(nonce[:], nonceRaw)
	plaintext, ok := box.Open(nil, ciphertext, &nonce, &senderKey, secretKey)
	if !ok {
		return nil, apperrors.NewDecryptionError(apperrors.ReasonAuthentication, nil)
	}

	var body Body
	if err := json.Unmarshal(plaintext, &body); err != nil {
		return nil, apperrors.NewDecryptionError(apperrors.ReasonCorruptBody, err)
	}
	return &body, nil
}
