// Package envelope seals a message body independently for every recipient of
// a conversation with nacl box, and opens the reader's copy.
//
// The serialized envelope set is what gets uploaded to the content store; the
// ledger only keeps its reference and checksum.
package envelope

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// Version is written into every envelope set.
const Version = "1.0"

// NonceSize is the box nonce length.
const NonceSize = 24

// Body is the plaintext of a chat message.
type Body struct {
	Text      string `json:"text"`
	MediaCID  string `json:"mediaCid,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
	MediaURL  string `json:"mediaUrl,omitempty"`
}

// HasMedia reports whether the body points at an attachment.
func (b Body) HasMedia() bool {
	return b.MediaCID != "" || b.MediaURL != ""
}

// Recipient is an address and its published base64 box public key.
type Recipient struct {
	Address   string
	PublicKey string
}

// Envelope is one recipient's sealed copy of the body.
type Envelope struct {
	Nonce           string `json:"nonce"`
	Ciphertext      string `json:"ciphertext"`
	SenderPublicKey string `json:"senderPublicKey"`
}

// Set is the wire form of a sealed message.
type Set struct {
	Version        string              `json:"version"`
	ConversationID string              `json:"conversationId"`
	Author         string              `json:"author"`
	CreatedAt      int64               `json:"createdAt"`
	Envelopes      map[string]Envelope `json:"envelopes"`
}

// Lookup returns the envelope addressed to reader. An exact match wins; the
// fallback is a case-insensitive match, taking the smallest matching key so
// the choice does not depend on map order.
func (s *Set) Lookup(reader string) (Envelope, bool) {
	if env, ok := s.Envelopes[reader]; ok {
		return env, true
	}

	keys := make([]string, 0, len(s.Envelopes))
	for k := range s.Envelopes {
		if strings.EqualFold(k, reader) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return Envelope{}, false
	}
	sort.Strings(keys)
	return s.Envelopes[keys[0]], true
}

// Addresses returns the envelope keys in sorted order.
func (s *Set) Addresses() []string {
	out := make([]string, 0, len(s.Envelopes))
	for k := range s.Envelopes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Sealed is the result of Encrypt.
type Sealed struct {
	Serialized []byte
	Checksum   string
}

// Checksum returns the hex sha256 of data.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum reports whether data hashes to checksum. Comparison ignores
// hex case.
func VerifyChecksum(data []byte, checksum string) bool {
	return strings.EqualFold(Checksum(data), strings.TrimSpace(checksum))
}

func marshalBody(b Body) ([]byte, error) {
	return json.Marshal(b)
}
