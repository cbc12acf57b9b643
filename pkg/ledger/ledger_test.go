package ledger

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/DeBrosOfficial/wavechat/pkg/errors"
	"github.com/DeBrosOfficial/wavechat/pkg/storage"
)

var testKey = base64.StdEncoding.EncodeToString(make([]byte, 32))

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Publish(_ context.Context, ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) topics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, ev := range s.events {
		out = append(out, ev.Topic)
	}
	return out
}

func newTestLedger(t *testing.T) (*Ledger, storage.Store, *recordingSink) {
	t.Helper()
	store := storage.NewMemoryStore()
	sink := &recordingSink{}
	clock := &fakeClock{t: time.UnixMilli(1_700_000_000_000)}
	return New(store, WithClock(clock.now), WithEventSink(sink)), store, sink
}

func createC1(t *testing.T, l *Ledger) *Conversation {
	t.Helper()
	c, err := l.CreateConversation(context.Background(), "A", ConversationInput{ID: "c1", Title: "chat", Members: []string{"A", "B"}})
	require.NoError(t, err)
	return c
}

func send(t *testing.T, l *Ledger, sender, conv string, n int) []uint64 {
	t.Helper()
	ids := make([]uint64, 0, n)
	for i := 0; i < n; i++ {
		m, err := l.SendMessage(context.Background(), sender, conv, MessageInput{
			PayloadRef:     fmt.Sprintf("ref-%d", i),
			CiphertextHash: "hash",
			MimeType:       "application/json",
			Status:         "sent",
		})
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}
	return ids
}

func pageIDs(p *MessagePage) []uint64 {
	ids := make([]uint64, 0, len(p.Messages))
	for _, m := range p.Messages {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestPaginationScenario(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger(t)
	createC1(t, l)
	assert.Equal(t, []uint64{1, 2, 3}, send(t, l, "A", "c1", 3))

	p, err := l.FetchMessages(ctx, "A", "c1", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, pageIDs(p))
	assert.Equal(t, uint64(1), p.Cursor)
	assert.Equal(t, uint64(3), p.NextCursor)

	p, err = l.FetchMessages(ctx, "A", "c1", 3, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{3}, pageIDs(p))
	assert.Equal(t, uint64(4), p.NextCursor)

	p, err = l.FetchMessages(ctx, "A", "c1", 4, 2)
	require.NoError(t, err)
	assert.Empty(t, p.Messages)
	assert.Equal(t, uint64(4), p.NextCursor)
}

func TestPagingConcatenationMatchesSinglePage(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger(t)
	createC1(t, l)
	send(t, l, "B", "c1", 11)

	full, err := l.FetchMessages(ctx, "B", "c1", 0, 11)
	require.NoError(t, err)

	for _, limit := range []uint32{1, 2, 3, 5, 11, 20} {
		var got []uint64
		cursor := uint64(0)
		for i := 0; i < 20; i++ {
			p, err := l.FetchMessages(ctx, "B", "c1", cursor, limit)
			require.NoError(t, err)
			got = append(got, pageIDs(p)...)
			if len(p.Messages) == 0 {
				break
			}
			cursor = p.NextCursor
		}
		assert.Equal(t, pageIDs(full), got, "limit %d", limit)
	}
}

func TestEmptyConversationPage(t *testing.T) {
	l, _, _ := newTestLedger(t)
	createC1(t, l)

	p, err := l.FetchMessages(context.Background(), "A", "c1", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, p.Messages)
	assert.Equal(t, uint64(1), p.Cursor)
	assert.Equal(t, uint64(1), p.NextCursor)
}

func TestDefaultPageSize(t *testing.T) {
	l, _, _ := newTestLedger(t)
	createC1(t, l)
	send(t, l, "A", "c1", int(DefaultPageSize)+5)

	p, err := l.FetchMessages(context.Background(), "A", "c1", 0, 0)
	require.NoError(t, err)
	assert.Len(t, p.Messages, int(DefaultPageSize))
	assert.Equal(t, uint64(DefaultPageSize)+1, p.NextCursor)
}

func TestPageSkipsMissingIDs(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	l := New(store)
	createC1(t, l)
	send(t, l, "A", "c1", 5)

	// Simulate out-of-band loss of message 2. The store has no delete, so
	// rebuild it without that key.
	pruned := storage.NewMemoryStore()
	entries, err := store.ScanPrefix(ctx, "")
	require.NoError(t, err)
	for _, e := range entries {
		if e.Key == messageKey("c1", 2) {
			continue
		}
		require.NoError(t, pruned.Set(ctx, e.Key, e.Value))
	}
	l = New(pruned)

	p, err := l.FetchMessages(ctx, "A", "c1", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 3}, pageIDs(p))
	assert.Equal(t, uint64(4), p.NextCursor)

	// Ids are never reassigned after the gap.
	m, err := l.SendMessage(ctx, "A", "c1", MessageInput{PayloadRef: "r", CiphertextHash: "h"})
	require.NoError(t, err)
	assert.Equal(t, uint64(6), m.ID)
}

func TestConcurrentAppendsGetDistinctIDs(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger(t)
	createC1(t, l)

	const n = 40
	var wg sync.WaitGroup
	ids := make(chan uint64, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sender := "A"
			if i%2 == 1 {
				sender = "B"
			}
			m, err := l.SendMessage(ctx, sender, "c1", MessageInput{PayloadRef: "r", CiphertextHash: "h"})
			if err != nil {
				t.Errorf("send: %v", err)
				return
			}
			ids <- m.ID
		}(i)
	}
	wg.Wait()
	close(ids)

	var got []int
	for id := range ids {
		got = append(got, int(id))
	}
	sort.Ints(got)
	require.Len(t, got, n)
	for i, id := range got {
		assert.Equal(t, i+1, id)
	}
	assert.Equal(t, 0, l.messages.locks.size())
}

func TestNonMemberIsRejected(t *testing.T) {
	ctx := context.Background()
	l, store, _ := newTestLedger(t)
	createC1(t, l)

	_, err := l.SendMessage(ctx, "C", "c1", MessageInput{PayloadRef: "r", CiphertextHash: "h"})
	assert.True(t, apperrors.IsUnauthorized(err), "send: %v", err)
	assert.True(t, apperrors.IsForbidden(err), "send: %v", err)

	_, err = l.FetchMessages(ctx, "C", "c1", 0, 10)
	assert.True(t, apperrors.IsUnauthorized(err), "fetch: %v", err)
	assert.True(t, apperrors.IsForbidden(err), "fetch: %v", err)

	ok, _ := store.Has(ctx, counterKey("c1"))
	assert.False(t, ok, "rejected send must not touch the counter")
}

func TestSendToUnknownConversation(t *testing.T) {
	l, _, _ := newTestLedger(t)
	_, err := l.SendMessage(context.Background(), "A", "nope", MessageInput{PayloadRef: "r", CiphertextHash: "h"})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSendValidation(t *testing.T) {
	l, _, _ := newTestLedger(t)
	createC1(t, l)

	tests := []struct {
		name string
		in   MessageInput
	}{
		{"missing payload", MessageInput{CiphertextHash: "h"}},
		{"missing hash", MessageInput{PayloadRef: "r"}},
		{"negative expiry", MessageInput{PayloadRef: "r", CiphertextHash: "h", ExpiresAt: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.SendMessage(context.Background(), "A", "c1", tt.in)
			assert.True(t, apperrors.IsValidation(err), "%v", err)
		})
	}
}

func TestProfileUpsert(t *testing.T) {
	ctx := context.Background()
	l, _, sink := newTestLedger(t)

	missing, err := l.GetProfile(ctx, "A", "")
	require.NoError(t, err)
	assert.Nil(t, missing)

	first, err := l.RegisterProfile(ctx, "A", ProfileInput{Username: "alice", EncryptionKey: testKey, Status: "online"})
	require.NoError(t, err)
	second, err := l.RegisterProfile(ctx, "A", ProfileInput{Username: "alice2", EncryptionKey: testKey, Bio: "hi"})
	require.NoError(t, err)

	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Greater(t, second.UpdatedAt, first.UpdatedAt)

	got, err := l.GetProfile(ctx, "B", "A")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice2", got.Username)
	assert.Equal(t, "hi", got.Bio)
	assert.Equal(t, "", got.Status)
	assert.Equal(t, []string{"profile::updated::A", "profile::updated::A"}, sink.topics())
}

func TestProfileValidation(t *testing.T) {
	l, store, _ := newTestLedger(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		caller string
		in     ProfileInput
	}{
		{"no caller", "", ProfileInput{Username: "a", EncryptionKey: testKey}},
		{"separator in caller", "a::b", ProfileInput{Username: "a", EncryptionKey: testKey}},
		{"trailing colon in caller", "a:", ProfileInput{Username: "a", EncryptionKey: testKey}},
		{"no username", "A", ProfileInput{EncryptionKey: testKey}},
		{"no key", "A", ProfileInput{Username: "a"}},
		{"bad key", "A", ProfileInput{Username: "a", EncryptionKey: "AAAA"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.RegisterProfile(ctx, tt.caller, tt.in)
			assert.True(t, apperrors.IsValidation(err), "%v", err)
		})
	}

	entries, err := store.ScanPrefix(ctx, profilePrefix)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestContacts(t *testing.T) {
	ctx := context.Background()
	l, _, sink := newTestLedger(t)

	_, err := l.AddContact(ctx, "A", "B", "bobby")
	require.NoError(t, err)
	_, err = l.AddContact(ctx, "A", "C", "")
	require.NoError(t, err)

	_, err = l.AddContact(ctx, "A", "B", "robert")
	assert.True(t, apperrors.IsConflict(err), "%v", err)

	_, err = l.AddContact(ctx, "A", "A", "me")
	assert.True(t, apperrors.IsValidation(err), "%v", err)

	contacts, err := l.ListContacts(ctx, "A", "")
	require.NoError(t, err)
	require.Len(t, contacts, 2)
	assert.Equal(t, "B", contacts[0].Peer)
	assert.Equal(t, "bobby", contacts[0].Alias)
	assert.Equal(t, "C", contacts[1].Peer)

	reverse, err := l.ListContacts(ctx, "A", "B")
	require.NoError(t, err)
	assert.Empty(t, reverse, "no reciprocal record")

	assert.Equal(t, []string{"contact::linked::A::B", "contact::linked::A::C"}, sink.topics())
}

func TestColonIdentitiesStayOutOfOtherScans(t *testing.T) {
	ctx := context.Background()
	l, store, _ := newTestLedger(t)

	_, err := l.CreateConversation(ctx, "mallory", ConversationInput{ID: "x", Members: []string{"alice:"}})
	assert.True(t, apperrors.IsValidation(err), "%v", err)

	_, err = l.AddContact(ctx, "alice:", "bob", "")
	assert.True(t, apperrors.IsValidation(err), "%v", err)
	_, err = l.AddContact(ctx, "mallory", ":bob", "")
	assert.True(t, apperrors.IsValidation(err), "%v", err)

	convs, err := l.ListConversations(ctx, "alice", "")
	require.NoError(t, err)
	assert.Empty(t, convs)
	contacts, err := l.ListContacts(ctx, "alice", "")
	require.NoError(t, err)
	assert.Empty(t, contacts)

	for _, prefix := range []string{memberPrefix, contactPrefix, conversationPrefix} {
		entries, err := store.ScanPrefix(ctx, prefix)
		require.NoError(t, err)
		assert.Empty(t, entries, prefix)
	}
}

func TestCreateConversation(t *testing.T) {
	ctx := context.Background()
	l, store, sink := newTestLedger(t)

	c, err := l.CreateConversation(ctx, "A", ConversationInput{ID: "g1", Title: "group", IsGroup: true, Members: []string{"B", "C", "B"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "A"}, c.Members)
	assert.Equal(t, "A", c.Creator)

	got, err := l.GetConversation(ctx, "Z", "g1")
	require.NoError(t, err)
	assert.Equal(t, c, got)

	_, err = l.CreateConversation(ctx, "D", ConversationInput{ID: "g1", Members: []string{"E"}})
	assert.True(t, apperrors.IsConflict(err), "%v", err)

	// The failed create must not index D or E.
	for _, who := range []string{"D", "E"} {
		ids, err := l.Membership().ListFor(ctx, who)
		require.NoError(t, err)
		assert.Empty(t, ids, who)
	}
	ok, _ := store.Has(ctx, memberKey("A", "g1"))
	assert.True(t, ok)

	assert.Equal(t, []string{"conversation::created::g1"}, sink.topics())
}

func TestCreateConversationValidation(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger(t)

	tests := []struct {
		name string
		in   ConversationInput
	}{
		{"only creator", ConversationInput{ID: "c", Members: []string{"A"}}},
		{"no members", ConversationInput{ID: "c"}},
		{"empty member", ConversationInput{ID: "c", Members: []string{"B", ""}}},
		{"no id", ConversationInput{Members: []string{"B"}}},
		{"separator in id", ConversationInput{ID: "x::y", Members: []string{"B"}}},
		{"separator in member", ConversationInput{ID: "c", Members: []string{"B::x"}}},
		{"trailing colon in member", ConversationInput{ID: "c", Members: []string{"B:"}}},
		{"colon in id", ConversationInput{ID: ":c", Members: []string{"B"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.CreateConversation(ctx, "A", tt.in)
			assert.True(t, apperrors.IsValidation(err), "%v", err)
		})
	}

	_, err := l.GetConversation(ctx, "A", "c")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListConversations(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger(t)

	for _, id := range []string{"c2", "c1", "c3"} {
		_, err := l.CreateConversation(ctx, "A", ConversationInput{ID: id, Members: []string{"B"}})
		require.NoError(t, err)
	}
	_, err := l.CreateConversation(ctx, "C", ConversationInput{ID: "c4", Members: []string{"D"}})
	require.NoError(t, err)

	convs, err := l.ListConversations(ctx, "B", "")
	require.NoError(t, err)
	ids := make([]string, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.ID)
	}
	assert.ElementsMatch(t, []string{"c1", "c2", "c3"}, ids)

	none, err := l.ListConversations(ctx, "B", "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCorruptRecordsSurface(t *testing.T) {
	ctx := context.Background()
	l, store, _ := newTestLedger(t)
	createC1(t, l)

	require.NoError(t, store.Set(ctx, profileKey("A"), []byte{1, 2}))
	_, err := l.GetProfile(ctx, "A", "")
	assert.True(t, apperrors.IsCorrupt(err), "%v", err)

	require.NoError(t, store.Set(ctx, counterKey("c1"), []byte("x")))
	_, err = l.SendMessage(ctx, "A", "c1", MessageInput{PayloadRef: "r", CiphertextHash: "h"})
	assert.True(t, apperrors.IsCorrupt(err), "%v", err)

	enc := encodeConversation(&Conversation{ID: "c9", Members: []string{"A", "B"}})
	require.NoError(t, store.Set(ctx, conversationKey("c9"), append(enc, 0)))
	_, err = l.GetConversation(ctx, "A", "c9")
	assert.True(t, apperrors.IsCorrupt(err), "trailing bytes: %v", err)
}

func TestBootstrap(t *testing.T) {
	ctx := context.Background()
	l, _, sink := newTestLedger(t)

	_, err := l.Version(ctx)
	assert.True(t, apperrors.IsNotFound(err))

	v, err := l.Bootstrap(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "WaveChat@1.0.0", v)

	v, err = l.Bootstrap(ctx, "Other")
	require.NoError(t, err)
	assert.Equal(t, "WaveChat@1.0.0", v, "bootstrap is write-once")
	assert.Equal(t, []string{"contract::boot::WaveChat"}, sink.topics())
}

func TestMessageEventsCarryMembers(t *testing.T) {
	l, _, sink := newTestLedger(t)
	createC1(t, l)
	send(t, l, "A", "c1", 2)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	last := sink.events[len(sink.events)-1]
	assert.Equal(t, EventMessageAppended, last.Kind)
	assert.Equal(t, "message::c1::2", last.Topic)
	assert.Equal(t, []string{"A", "B"}, last.Members)
}
