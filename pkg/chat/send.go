package chat

import (
	"context"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/wavechat/pkg/envelope"
	apperrors "github.com/DeBrosOfficial/wavechat/pkg/errors"
	"github.com/DeBrosOfficial/wavechat/pkg/ledger"
	"github.com/DeBrosOfficial/wavechat/pkg/logging"
)

const (
	// EnvelopeMimeType is recorded for every message; the payload is always
	// a serialized envelope set.
	EnvelopeMimeType = "application/json"
	// StatusSent is the status of a freshly appended message.
	StatusSent = "sent"
	// PreviewRunes caps the plaintext preview.
	PreviewRunes = 40
	// AttachmentPreview stands in for a body with no text.
	AttachmentPreview = "Encrypted attachment"
)

// Attachment is uploaded as-is before the body is sealed.
type Attachment struct {
	Data     []byte
	Name     string
	MimeType string
}

// Draft is a message before it is sealed.
type Draft struct {
	Text       string
	Attachment *Attachment
	// MediaURL refers to media hosted elsewhere.
	MediaURL  string
	ExpiresAt int64
}

// Send seals the draft for every member of the conversation, uploads the
// envelope set and appends a pointer to it.
func (m *Messenger) Send(ctx context.Context, sender, conversationID string, d Draft) (*ledger.Message, error) {
	if d.Text == "" && d.Attachment == nil && d.MediaURL == "" {
		return nil, apperrors.NewValidationError("text", "message needs text or an attachment", nil)
	}

	if _, err := m.publishedKey(ctx, sender, sender); err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFoundError("profile", sender)
		}
		return nil, err
	}

	conv, err := m.ledger.GetConversation(ctx, sender, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasMember(sender) {
		return nil, apperrors.NewForbiddenError("conversation", "send to")
	}

	author, err := m.keyPair(ctx, sender)
	if err != nil {
		return nil, err
	}

	recipients := make([]envelope.Recipient, 0, len(conv.Members))
	for _, member := range conv.Members {
		if member == sender {
			continue
		}
		key, err := m.publishedKey(ctx, sender, member)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, envelope.Recipient{Address: member, PublicKey: key})
	}

	body := envelope.Body{Text: d.Text, MediaURL: d.MediaURL}
	if a := d.Attachment; a != nil {
		ref, err := m.content.Put(ctx, a.Data, a.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to upload attachment: %w", err)
		}
		body.MediaCID = ref
		body.MediaType = a.MimeType
	}

	sealed, err := m.codec.Encrypt(author, conversationID, body, recipients)
	if err != nil {
		return nil, err
	}
	ref, err := m.content.Put(ctx, sealed.Serialized, "envelope.json")
	if err != nil {
		return nil, fmt.Errorf("failed to upload envelope set: %w", err)
	}

	msg, err := m.ledger.SendMessage(ctx, sender, conversationID, ledger.MessageInput{
		PayloadRef:     ref,
		CiphertextHash: sealed.Checksum,
		MimeType:       EnvelopeMimeType,
		Preview:        Preview(body),
		Status:         StatusSent,
		ExpiresAt:      d.ExpiresAt,
	})
	if err != nil {
		return nil, err
	}

	m.logger.ComponentDebug(logging.ComponentChat, "Message sent",
		zap.String("conversation_id", conversationID),
		zap.Uint64("id", msg.ID),
		zap.Int("recipients", len(recipients)),
	)
	return msg, nil
}

// Preview is the first PreviewRunes runes of the text, or AttachmentPreview
// when there is no text.
func Preview(b envelope.Body) string {
	if b.Text == "" {
		return AttachmentPreview
	}
	if utf8.RuneCountInString(b.Text) <= PreviewRunes {
		return b.Text
	}
	runes := []rune(b.Text)
	return string(runes[:PreviewRunes])
}
