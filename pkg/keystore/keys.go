// Package keystore owns the local box key pair of each identity. Secret keys
// never leave this package except through ExportFile.
package keystore

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/DeBrosOfficial/wavechat/pkg/errors"
)

// KeySize is the length of a Curve25519 box key.
const KeySize = 32

// KeyPair is the box key material of one identity.
type KeyPair struct {
	Identity  string
	PublicKey [KeySize]byte
	SecretKey [KeySize]byte
}

// PublicKeyBase64 returns the public half in the form published on profiles.
func (kp *KeyPair) PublicKeyBase64() string {
	return base64.StdEncoding.EncodeToString(kp.PublicKey[:])
}

// NormalizeIdentity returns the case-normalized form used to key pairs.
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

// ParsePublicKey decodes a base64 box public key.
func ParsePublicKey(encoded string) ([KeySize]byte, error) {
	var key [KeySize]byte
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return key, fmt.Errorf("public key is not base64: %w", err)
	}
	if len(raw) != KeySize {
		return key, fmt.Errorf("public key must be %d bytes, got %d", KeySize, len(raw))
	}
	copy(key[:], raw)
	return key, nil
}

type keyPairRecord struct {
	Identity  string `json:"identity"`
	PublicKey string `json:"publicKey"`
	SecretKey string `json:"secretKey"`
}

func marshalKeyPair(kp *KeyPair) ([]byte, error) {
	return json.Marshal(keyPairRecord{
		Identity:  kp.Identity,
		PublicKey: base64.StdEncoding.EncodeToString(kp.PublicKey[:]),
		SecretKey: base64.StdEncoding.EncodeToString(kp.SecretKey[:]),
	})
}

func unmarshalKeyPair(key string, data []byte) (*KeyPair, error) {
	var rec keyPairRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, apperrors.NewCorruptError(key, err)
	}
	pub, err := ParsePublicKey(rec.PublicKey)
	if err != nil {
		return nil, apperrors.NewCorruptError(key, err)
	}
	sec, err := base64.StdEncoding.DecodeString(rec.SecretKey)
	if err != nil || len(sec) != KeySize {
		return nil, apperrors.NewCorruptError(key, fmt.Errorf("invalid secret key"))
	}

	kp := &KeyPair{Identity: rec.Identity, PublicKey: pub}
	copy(kp.SecretKey[:], sec)
	return kp, nil
}
