package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/DeBrosOfficial/wavechat/pkg/errors"
	"github.com/DeBrosOfficial/wavechat/pkg/logging"
	"github.com/DeBrosOfficial/wavechat/pkg/storage"
)

// DefaultPageSize is the fetch limit used when the caller passes zero.
const DefaultPageSize uint32 = 50

// maxAppendAttempts bounds retries when another process appended to the same
// conversation between our counter read and our batch.
const maxAppendAttempts = 5

// MessageLedger is the per-conversation append-only log.
type MessageLedger struct {
	store  storage.Store
	locks  *keyedMutex
	now    func() time.Time
	logger *logging.ColoredLogger
}

// NewMessageLedger creates a log over store.
func NewMessageLedger(store storage.Store, now func() time.Time, logger *logging.ColoredLogger) *MessageLedger {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &MessageLedger{store: store, locks: newKeyedMutex(), now: now, logger: logger}
}

// Append assigns the next id and stores the message. Appends to the same
// conversation are serialized in-process, and the counter update and message
// insert commit as one batch; the insert fails if the id is already taken,
// which catches a concurrent writer in another process.
func (l *MessageLedger) Append(ctx context.Context, c *Conversation, sender string, in MessageInput) (*Message, error) {
	if !c.HasMember(sender) {
		return nil, apperrors.NewForbiddenError("conversation", "send to")
	}

	unlock := l.locks.lock(c.ID)
	defer unlock()

	for attempt := 1; attempt <= maxAppendAttempts; attempt++ {
		current, err := l.Total(ctx, c.ID)
		if err != nil {
			return nil, err
		}

		msg := &Message{
			ID:             current + 1,
			ConversationID: c.ID,
			Sender:         sender,
			PayloadRef:     in.PayloadRef,
			CiphertextHash: in.CiphertextHash,
			MimeType:       in.MimeType,
			Preview:        in.Preview,
			Status:         in.Status,
			Timestamp:      l.now().UnixMilli(),
			ExpiresAt:      in.ExpiresAt,
		}

		b := storage.NewBatch().
			Put(counterKey(c.ID), encodeCounter(msg.ID)).
			Insert(messageKey(c.ID, msg.ID), encodeMessage(msg))
		err = l.store.Apply(ctx, b)
		if err == nil {
			return msg, nil
		}
		if !errors.Is(err, storage.ErrKeyExists) {
			return nil, fmt.Errorf("failed to append message: %w", err)
		}
		l.logger.ComponentWarn(logging.ComponentLedger, "Message id taken by a concurrent writer, retrying",
			zap.String("conversation_id", c.ID),
			zap.Uint64("id", msg.ID),
			zap.Int("attempt", attempt),
		)
	}
	return nil, apperrors.NewInternalError("message id contention did not resolve", storage.ErrKeyExists).WithOperation("send_message")
}

// Total returns the conversation's counter, zero before the first message.
func (l *MessageLedger) Total(ctx context.Context, conversationID string) (uint64, error) {
	key := counterKey(conversationID)
	data, err := l.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read counter: %w", err)
	}
	return decodeCounter(key, data)
}

// Page returns up to limit messages starting at cursor (0 means 1). Ids with
// no stored record are skipped and not counted. NextCursor is one past the
// last returned id when the page is full, otherwise total+1.
func (l *MessageLedger) Page(ctx context.Context, c *Conversation, requester string, cursor uint64, limit uint32) (*MessagePage, error) {
	if !c.HasMember(requester) {
		return nil, apperrors.NewForbiddenError("conversation", "read")
	}
	if limit == 0 {
		limit = DefaultPageSize
	}

	start := cursor
	if start == 0 {
		start = 1
	}

	total, err := l.Total(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	page := &MessagePage{Cursor: start, Messages: []Message{}}
	var scanned uint32
	var last uint64
	for id := start; id <= total && scanned < limit; id++ {
		key := messageKey(c.ID, id)
		data, err := l.store.Get(ctx, key)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to read message %d: %w", id, err)
		}
		msg, err := decodeMessage(key, data)
		if err != nil {
			return nil, err
		}
		page.Messages = append(page.Messages, *msg)
		last = id
		scanned++
	}

	if scanned == limit {
		page.NextCursor = last + 1
	} else {
		page.NextCursor = total + 1
	}
	return page, nil
}
