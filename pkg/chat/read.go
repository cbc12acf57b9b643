package chat

import (
	"context"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/wavechat/pkg/envelope"
	apperrors "github.com/DeBrosOfficial/wavechat/pkg/errors"
	"github.com/DeBrosOfficial/wavechat/pkg/keystore"
	"github.com/DeBrosOfficial/wavechat/pkg/ledger"
	"github.com/DeBrosOfficial/wavechat/pkg/logging"
)

// DecryptFailedText is shown in place of a body that could not be opened.
const DecryptFailedText = "unable to decrypt payload"

// Item is one message of a Batch. Body is nil when Err is set.
type Item struct {
	Message ledger.Message `json:"message"`
	Body    *envelope.Body `json:"body,omitempty"`
	Error   string         `json:"error,omitempty"`
	Err     error          `json:"-"`
}

// Batch is a decrypted page.
type Batch struct {
	Cursor     uint64 `json:"cursor"`
	NextCursor uint64 `json:"nextCursor"`
	Items      []Item `json:"items"`
}

// Read fetches a page and decrypts every message independently. A payload
// that cannot be fetched, fails its checksum, or cannot be opened marks its
// own item and never fails the batch.
func (m *Messenger) Read(ctx context.Context, reader, conversationID string, cursor uint64, limit uint32) (*Batch, error) {
	page, err := m.ledger.FetchMessages(ctx, reader, conversationID, cursor, limit)
	if err != nil {
		return nil, err
	}
	kp, err := m.keyPair(ctx, reader)
	if err != nil {
		return nil, err
	}

	senderKeys := make(map[string]string)
	batch := &Batch{Cursor: page.Cursor, NextCursor: page.NextCursor, Items: make([]Item, 0, len(page.Messages))}
	for _, msg := range page.Messages {
		item := Item{Message: msg}
		body, err := m.open(ctx, reader, kp, msg, senderKeys)
		if err != nil {
			item.Err = err
			item.Error = DecryptFailedText
			m.logger.ComponentWarn(logging.ComponentChat, "Message could not be opened",
				zap.String("conversation_id", conversationID),
				zap.Uint64("id", msg.ID),
				zap.Error(err),
			)
		} else {
			item.Body = body
		}
		batch.Items = append(batch.Items, item)
	}
	return batch, nil
}

func (m *Messenger) open(ctx context.Context, reader string, kp *keystore.KeyPair, msg ledger.Message, senderKeys map[string]string) (*envelope.Body, error) {
	data, err := m.content.Get(ctx, msg.PayloadRef)
	if err != nil {
		return nil, err
	}
	if !envelope.VerifyChecksum(data, msg.CiphertextHash) {
		return nil, apperrors.NewDecryptionError(apperrors.ReasonChecksumMismatch, nil)
	}

	set, err := envelope.Parse(data)
	if err != nil {
		return nil, err
	}
	env, ok := set.Lookup(reader)
	if !ok {
		return nil, apperrors.NewDecryptionError(apperrors.ReasonNoEnvelope, nil)
	}

	// The envelope must carry the sender's published key.
	want, ok := senderKeys[msg.Sender]
	if !ok {
		want, err = m.publishedKey(ctx, reader, msg.Sender)
		if err != nil && !apperrors.IsNotFound(err) {
			return nil, err
		}
		senderKeys[msg.Sender] = want
	}
	if want != "" && env.SenderPublicKey != want {
		return nil, apperrors.NewDecryptionError(apperrors.ReasonAuthentication, nil)
	}

	return set.Open(reader, &kp.SecretKey)
}
