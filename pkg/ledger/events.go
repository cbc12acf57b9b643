package ledger

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/wavechat/pkg/logging"
)

// EventKind classifies ledger events.
type EventKind string

const (
	EventBoot                EventKind = "contract.boot"
	EventProfileUpdated      EventKind = "profile.updated"
	EventContactLinked       EventKind = "contact.linked"
	EventConversationCreated EventKind = "conversation.created"
	EventMessageAppended     EventKind = "message.appended"
)

// Event is emitted after a mutation commits. Topic uses the same
// "::"-joined form as the store keys.
type Event struct {
	Kind           EventKind `json:"kind"`
	Topic          string    `json:"topic"`
	Actor          string    `json:"actor,omitempty"`
	ConversationID string    `json:"conversationId,omitempty"`
	MessageID      uint64    `json:"messageId,omitempty"`
	Members        []string  `json:"members,omitempty"`
	At             time.Time `json:"at"`
}

func bootEvent(label string, at time.Time) Event {
	return Event{Kind: EventBoot, Topic: "contract::boot::" + label, At: at}
}

func profileEvent(address string, at time.Time) Event {
	return Event{Kind: EventProfileUpdated, Topic: "profile::updated::" + address, Actor: address, At: at}
}

func contactEvent(owner, peer string, at time.Time) Event {
	return Event{Kind: EventContactLinked, Topic: "contact::linked::" + owner + Separator + peer, Actor: owner, At: at}
}

func conversationEvent(c *Conversation, at time.Time) Event {
	return Event{
		Kind:           EventConversationCreated,
		Topic:          "conversation::created::" + c.ID,
		Actor:          c.Creator,
		ConversationID: c.ID,
		Members:        c.Members,
		At:             at,
	}
}

func messageEvent(c *Conversation, m *Message, at time.Time) Event {
	return Event{
		Kind:           EventMessageAppended,
		Topic:          "message::" + m.ConversationID + Separator + strconv.FormatUint(m.ID, 10),
		Actor:          m.Sender,
		ConversationID: m.ConversationID,
		MessageID:      m.ID,
		Members:        c.Members,
		At:             at,
	}
}

// EventSink receives committed events. Publish must not block for long; the
// mutation has already succeeded when it is called.
type EventSink interface {
	Publish(ctx context.Context, ev Event)
}

type nopSink struct{}

func (nopSink) Publish(context.Context, Event) {}

// LogSink writes every event at debug level.
type LogSink struct {
	Logger *logging.ColoredLogger
}

func (s LogSink) Publish(_ context.Context, ev Event) {
	s.Logger.ComponentDebug(logging.ComponentLedger, "Ledger event",
		zap.String("kind", string(ev.Kind)),
		zap.String("topic", ev.Topic),
	)
}

// MultiSink fans an event out to several sinks in order.
type MultiSink []EventSink

func (m MultiSink) Publish(ctx context.Context, ev Event) {
	for _, s := range m {
		s.Publish(ctx, ev)
	}
}

// Broker delivers events to in-process subscribers over buffered channels.
// A subscriber that falls behind loses events rather than stalling writers.
type Broker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]*subscription
	buffer int
}

type subscription struct {
	ch     chan Event
	filter func(Event) bool
}

// NewBroker creates a broker whose subscriber channels hold buffer events.
func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = 64
	}
	return &Broker{subs: make(map[int]*subscription), buffer: buffer}
}

// Subscribe registers a subscriber. filter may be nil to receive everything.
// The returned cancel func must be called to release the channel.
func (b *Broker) Subscribe(filter func(Event) bool) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	sub := &subscription{ch: make(chan Event, b.buffer), filter: filter}
	b.subs[id] = sub

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Publish implements EventSink.
func (b *Broker) Publish(_ context.Context, ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.filter != nil && !sub.filter(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// Subscribers returns the current subscriber count.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
