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

// CreateConversation stores a new conversation and indexes every member in
// one batch. The caller becomes the creator and is added to the members if
// missing; duplicates are dropped keeping first occurrence.
func (l *Ledger) CreateConversation(ctx context.Context, caller string, in ConversationInput) (c *Conversation, err error) {
	defer func(start time.Time) { l.observe(ctx, "create_conversation", start, err) }(time.Now())

	if err := checkIdentifier("caller", caller); err != nil {
		return nil, err
	}
	if err := checkIdentifier("conversationId", in.ID); err != nil {
		return nil, err
	}
	for i, m := range in.Members {
		if err := checkIdentifier(fmt.Sprintf("members[%d]", i), m); err != nil {
			return nil, err
		}
	}

	members := uniqueMembers(in.Members, caller)
	if len(members) < 2 {
		return nil, apperrors.NewValidationError("members", "at least two members required", members)
	}

	c = &Conversation{
		ID:        in.ID,
		Title:     in.Title,
		Creator:   caller,
		AvatarRef: in.AvatarRef,
		IsGroup:   in.IsGroup,
		Members:   members,
		CreatedAt: l.nowMillis(),
	}

	b := storage.NewBatch().Insert(conversationKey(c.ID), encodeConversation(c))
	l.membership.Index(b, c)
	if err := l.store.Apply(ctx, b); err != nil {
		if errors.Is(err, storage.ErrKeyExists) {
			return nil, apperrors.NewConflictError("conversation", "id", c.ID)
		}
		return nil, fmt.Errorf("failed to store conversation: %w", err)
	}

	l.logger.ComponentDebug(logging.ComponentLedger, "Conversation created",
		zap.String("conversation_id", c.ID),
		zap.String("creator", caller),
		zap.Int("members", len(members)),
	)
	l.events.Publish(ctx, conversationEvent(c, l.now()))
	return c, nil
}

// GetConversation returns a conversation or NotFound.
func (l *Ledger) GetConversation(ctx context.Context, caller, id string) (c *Conversation, err error) {
	defer func(start time.Time) { l.observe(ctx, "get_conversation", start, err) }(time.Now())

	if err := checkIdentifier("conversationId", id); err != nil {
		return nil, err
	}
	return l.readConversation(ctx, id)
}

// ListConversations returns the conversations owner (or the caller) belongs
// to, in membership index key order.
func (l *Ledger) ListConversations(ctx context.Context, caller, owner string) (out []Conversation, err error) {
	defer func(start time.Time) { l.observe(ctx, "list_conversations", start, err) }(time.Now())

	target := owner
	if target == "" {
		target = caller
	}
	if err := checkIdentifier("owner", target); err != nil {
		return nil, err
	}

	ids, err := l.membership.ListFor(ctx, target)
	if err != nil {
		return nil, err
	}
	out = make([]Conversation, 0, len(ids))
	for _, id := range ids {
		c, err := l.readConversation(ctx, id)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil, apperrors.NewCorruptError(memberKey(target, id), err)
			}
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}

func uniqueMembers(members []string, creator string) []string {
	seen := make(map[string]struct{}, len(members)+1)
	out := make([]string, 0, len(members)+1)
	for _, m := range members {
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	if _, ok := seen[creator]; !ok {
		out = append(out, creator)
	}
	return out
}
