// Package ledger implements the chat ledger: profiles, contacts, immutable
// conversations with a membership index, and per-conversation append-only
// message logs, all stored in a storage.Store.
//
// Every operation takes the caller identity explicitly. Mutations validate
// their arguments before touching the store and commit in a single write or
// batch, so a failed call leaves nothing behind.
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

// SchemaVersion is appended to the label written by Bootstrap.
const SchemaVersion = "1.0.0"

// DefaultLabel names the ledger when Bootstrap is given no label.
const DefaultLabel = "WaveChat"

// Metrics observes completed operations.
type Metrics interface {
	ObserveOperation(ctx context.Context, op string, d time.Duration, err error)
}

type nopMetrics struct{}

func (nopMetrics) ObserveOperation(context.Context, string, time.Duration, error) {}

// Ledger is the operation surface. It is safe for concurrent use.
type Ledger struct {
	store      storage.Store
	now        func() time.Time
	logger     *logging.ColoredLogger
	events     EventSink
	metrics    Metrics
	locks      *keyedMutex
	membership *MembershipIndex
	messages   *MessageLedger
	pageSize   uint32
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces the clock used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.ColoredLogger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithEventSink sets where committed events go.
func WithEventSink(sink EventSink) Option {
	return func(l *Ledger) { l.events = sink }
}

// WithMetrics sets the operation observer.
func WithMetrics(m Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// WithDefaultPageSize overrides the fetch limit used when the caller passes 0.
func WithDefaultPageSize(n uint32) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.pageSize = n
		}
	}
}

// New creates a ledger over store.
func New(store storage.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:    store,
		now:      time.Now,
		logger:   logging.NewNop(),
		events:   nopSink{},
		metrics:  nopMetrics{},
		locks:    newKeyedMutex(),
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.membership = NewMembershipIndex(store)
	l.messages = NewMessageLedger(store, l.now, l.logger)
	return l
}

// Membership exposes the membership index.
func (l *Ledger) Membership() *MembershipIndex {
	return l.membership
}

// Messages exposes the message log.
func (l *Ledger) Messages() *MessageLedger {
	return l.messages
}

// Bootstrap writes the version record "<label>@<SchemaVersion>" if the store
// has none yet and returns whatever version record is stored afterwards.
func (l *Ledger) Bootstrap(ctx context.Context, label string) (string, error) {
	if label == "" {
		label = DefaultLabel
	}
	version := label + "@" + SchemaVersion

	wrote, err := l.store.SetIfAbsent(ctx, versionKey, []byte(version))
	if err != nil {
		return "", fmt.Errorf("failed to write version: %w", err)
	}
	if wrote {
		l.logger.ComponentInfo(logging.ComponentLedger, "Ledger bootstrapped", zap.String("version", version))
		l.events.Publish(ctx, bootEvent(label, l.now()))
		return version, nil
	}
	return l.Version(ctx)
}

// Version returns the stored version record, or NotFound before Bootstrap.
func (l *Ledger) Version(ctx context.Context) (string, error) {
	data, err := l.store.Get(ctx, versionKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", apperrors.NewNotFoundError("version", "")
		}
		return "", fmt.Errorf("failed to read version: %w", err)
	}
	return string(data), nil
}

func (l *Ledger) observe(ctx context.Context, op string, start time.Time, err error) {
	l.metrics.ObserveOperation(ctx, op, time.Since(start), err)
	if err != nil && !apperrors.IsValidation(err) && !apperrors.IsNotFound(err) &&
		!apperrors.IsConflict(err) && !apperrors.IsForbidden(err) {
		l.logger.ComponentError(logging.ComponentLedger, "Ledger operation failed",
			zap.String("op", op), zap.Error(err))
	}
}

func (l *Ledger) nowMillis() int64 {
	return l.now().UnixMilli()
}

// readConversation loads a conversation that must exist.
func (l *Ledger) readConversation(ctx context.Context, id string) (*Conversation, error) {
	key := conversationKey(id)
	data, err := l.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.NewNotFoundError("conversation", id)
		}
		return nil, fmt.Errorf("failed to read conversation: %w", err)
	}
	return decodeConversation(key, data)
}
