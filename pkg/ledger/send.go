package ledger

import (
	"context"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/DeBrosOfficial/wavechat/pkg/errors"
	"github.com/DeBrosOfficial/wavechat/pkg/logging"
)

// SendMessage appends a message pointer to a conversation the caller belongs
// to.
func (l *Ledger) SendMessage(ctx context.Context, caller, conversationID string, in MessageInput) (m *Message, err error) {
	defer func(start time.Time) { l.observe(ctx, "send_message", start, err) }(time.Now())

	if err := checkIdentifier("caller", caller); err != nil {
		return nil, err
	}
	if err := checkIdentifier("conversationId", conversationID); err != nil {
		return nil, err
	}
	if in.PayloadRef == "" {
		return nil, apperrors.NewValidationError("payloadRef", "payload reference is required", nil)
	}
	if in.CiphertextHash == "" {
		return nil, apperrors.NewValidationError("ciphertextHash", "ciphertext hash is required", nil)
	}
	if in.ExpiresAt < 0 {
		return nil, apperrors.NewValidationError("expiresAt", "expiresAt must not be negative", in.ExpiresAt)
	}

	c, err := l.readConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	m, err = l.messages.Append(ctx, c, caller, in)
	if err != nil {
		return nil, err
	}

	l.logger.ComponentDebug(logging.ComponentLedger, "Message appended",
		zap.String("conversation_id", conversationID),
		zap.Uint64("id", m.ID),
		zap.String("sender", caller),
	)
	l.events.Publish(ctx, messageEvent(c, m, l.now()))
	return m, nil
}

// FetchMessages pages forward through a conversation the caller belongs to.
// A zero limit means the configured default page size.
func (l *Ledger) FetchMessages(ctx context.Context, caller, conversationID string, cursor uint64, limit uint32) (p *MessagePage, err error) {
	defer func(start time.Time) { l.observe(ctx, "fetch_messages", start, err) }(time.Now())

	if err := checkIdentifier("conversationId", conversationID); err != nil {
		return nil, err
	}
	c, err := l.readConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = l.pageSize
	}
	return l.messages.Page(ctx, c, caller, cursor, limit)
}
