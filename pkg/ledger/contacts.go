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

// AddContact records peer in the caller's contact list. A second add for the
// same pair fails with a conflict and leaves the first alias in place.
func (l *Ledger) AddContact(ctx context.Context, caller, peer, alias string) (c *Contact, err error) {
	defer func(start time.Time) { l.observe(ctx, "add_contact", start, err) }(time.Now())

	if err := checkIdentifier("caller", caller); err != nil {
		return nil, err
	}
	if err := checkIdentifier("peer", peer); err != nil {
		return nil, err
	}
	if peer == caller {
		return nil, apperrors.NewValidationError("peer", "cannot add self as contact", peer)
	}

	c = &Contact{Owner: caller, Peer: peer, Alias: alias, CreatedAt: l.nowMillis()}
	err = l.store.Apply(ctx, storage.NewBatch().Insert(contactKey(caller, peer), encodeContact(c)))
	if err != nil {
		if errors.Is(err, storage.ErrKeyExists) {
			return nil, apperrors.NewConflictError("contact", "peer", peer)
		}
		return nil, fmt.Errorf("failed to store contact: %w", err)
	}

	l.logger.ComponentDebug(logging.ComponentLedger, "Contact linked",
		zap.String("owner", caller), zap.String("peer", peer))
	l.events.Publish(ctx, contactEvent(caller, peer, l.now()))
	return c, nil
}

// ListContacts returns owner's contacts (the caller's when owner is empty) in
// key order.
func (l *Ledger) ListContacts(ctx context.Context, caller, owner string) (out []Contact, err error) {
	defer func(start time.Time) { l.observe(ctx, "list_contacts", start, err) }(time.Now())

	target := owner
	if target == "" {
		target = caller
	}
	if err := checkIdentifier("owner", target); err != nil {
		return nil, err
	}

	entries, err := l.store.ScanPrefix(ctx, contactScanPrefix(target))
	if err != nil {
		return nil, fmt.Errorf("failed to scan contacts: %w", err)
	}
	out = make([]Contact, 0, len(entries))
	for _, e := range entries {
		c, err := decodeContact(e.Key, e.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, nil
}
