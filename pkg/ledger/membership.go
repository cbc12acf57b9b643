package ledger

import (
	"context"
	"fmt"

	"github.com/DeBrosOfficial/wavechat/pkg/storage"
)

// MembershipIndex maps an identity to the conversations it belongs to. Entries
// are written once, in the same batch that creates the conversation.
type MembershipIndex struct {
	store storage.Store
}

// NewMembershipIndex creates an index over store.
func NewMembershipIndex(store storage.Store) *MembershipIndex {
	return &MembershipIndex{store: store}
}

// Index queues one entry per member onto b.
func (m *MembershipIndex) Index(b *storage.Batch, c *Conversation) {
	for _, member := range c.Members {
		b.Put(memberKey(member, c.ID), []byte(c.ID))
	}
}

// ListFor returns the conversation ids identity belongs to, in key order.
// Callers should not read creation order into the result.
func (m *MembershipIndex) ListFor(ctx context.Context, identity string) ([]string, error) {
	entries, err := m.store.ScanPrefix(ctx, memberScanPrefix(identity))
	if err != nil {
		return nil, fmt.Errorf("failed to scan membership index: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, string(e.Value))
	}
	return ids, nil
}
