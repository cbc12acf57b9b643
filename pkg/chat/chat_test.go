package chat

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeBrosOfficial/wavechat/pkg/content"
	"github.com/DeBrosOfficial/wavechat/pkg/envelope"
	apperrors "github.com/DeBrosOfficial/wavechat/pkg/errors"
	"github.com/DeBrosOfficial/wavechat/pkg/keystore"
	"github.com/DeBrosOfficial/wavechat/pkg/ledger"
	"github.com/DeBrosOfficial/wavechat/pkg/storage"
)

const (
	alice = "0xalice"
	bob   = "0xbob"
	carol = "0xcarol"
)

type harness struct {
	ledger    *ledger.Ledger
	content   *tamperStore
	messenger *Messenger
	keys      *keystore.KeyStore
}

// tamperStore lets a test corrupt what a ref returns.
type tamperStore struct {
	*content.MemoryStore
	mu       sync.Mutex
	override map[string][]byte
}

func (s *tamperStore) Get(ctx context.Context, ref string) ([]byte, error) {
	s.mu.Lock()
	data, ok := s.override[ref]
	s.mu.Unlock()
	if ok {
		return data, nil
	}
	return s.MemoryStore.Get(ctx, ref)
}

func (s *tamperStore) tamper(ref string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.override[ref] = data
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	l := ledger.New(storage.NewMemoryStore())
	keys := keystore.New(storage.NewMemoryStore())
	cs := &tamperStore{MemoryStore: content.NewMemoryStore(), override: map[string][]byte{}}
	return &harness{
		ledger:    l,
		content:   cs,
		keys:      keys,
		messenger: NewMessenger(l, keys, cs, nil, nil),
	}
}

func (h *harness) register(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		p, err := h.messenger.Register(context.Background(), id, ledger.ProfileInput{Username: strings.TrimPrefix(id, "0x")})
		require.NoError(t, err)
		require.NotEmpty(t, p.EncryptionKey)
	}
}

func (h *harness) conversation(t *testing.T, creator string, members ...string) string {
	t.Helper()
	id := DirectConversationID(append(members, creator)...)
	_, err := h.ledger.CreateConversation(context.Background(), creator, ledger.ConversationInput{ID: id, Members: members})
	require.NoError(t, err)
	return id
}

func TestRegisterPublishesKey(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, alice)

	kp, ok, err := h.keys.LoadKeyPair(ctx, alice)
	require.NoError(t, err)
	require.True(t, ok)

	p, err := h.ledger.GetProfile(ctx, alice, alice)
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKeyBase64(), p.EncryptionKey)

	// Registering again keeps the same key.
	h.register(t, alice)
	p2, _ := h.ledger.GetProfile(ctx, alice, alice)
	assert.Equal(t, p.EncryptionKey, p2.EncryptionKey)
}

func TestSendAndRead(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, alice, bob)
	conv := h.conversation(t, alice, bob)

	msg, err := h.messenger.Send(ctx, alice, conv, Draft{Text: "hello bob"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), msg.ID)
	assert.Equal(t, EnvelopeMimeType, msg.MimeType)
	assert.Equal(t, StatusSent, msg.Status)
	assert.Equal(t, "hello bob", msg.Preview)

	for _, reader := range []string{alice, bob} {
		batch, err := h.messenger.Read(ctx, reader, conv, 0, 0)
		require.NoError(t, err, reader)
		require.Len(t, batch.Items, 1)
		item := batch.Items[0]
		require.NoError(t, item.Err, reader)
		assert.Equal(t, "hello bob", item.Body.Text)
		assert.Equal(t, uint64(2), batch.NextCursor)
	}
}

func TestSendWithAttachment(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, alice, bob)
	conv := h.conversation(t, alice, bob)

	msg, err := h.messenger.Send(ctx, alice, conv, Draft{
		Attachment: &Attachment{Data: []byte("\x89PNG"), Name: "cat.png", MimeType: "image/png"},
	})
	require.NoError(t, err)
	assert.Equal(t, AttachmentPreview, msg.Preview)

	batch, err := h.messenger.Read(ctx, bob, conv, 0, 0)
	require.NoError(t, err)
	body := batch.Items[0].Body
	require.NotNil(t, body)
	assert.Equal(t, "image/png", body.MediaType)

	data, err := h.content.Get(ctx, body.MediaCID)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(data))
}

func TestSendValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, alice, bob)
	conv := h.conversation(t, alice, bob)

	t.Run("empty draft", func(t *testing.T) {
		_, err := h.messenger.Send(ctx, alice, conv, Draft{})
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("sender without profile", func(t *testing.T) {
		_, err := h.messenger.Send(ctx, carol, conv, Draft{Text: "hi"})
		assert.True(t, apperrors.IsNotFound(err), "got %v", err)
	})

	t.Run("non member", func(t *testing.T) {
		h.register(t, carol)
		_, err := h.messenger.Send(ctx, carol, conv, Draft{Text: "hi"})
		assert.True(t, apperrors.IsUnauthorized(err), "got %v", err)
	})

	t.Run("member without key", func(t *testing.T) {
		other := "0xdave"
		id := h.conversation(t, alice, other)
		_, err := h.messenger.Send(ctx, alice, id, Draft{Text: "hi"})
		assert.True(t, apperrors.IsNotFound(err), "got %v", err)
		assert.Contains(t, err.Error(), other)

		total, err := h.ledger.Messages().Total(ctx, id)
		require.NoError(t, err)
		assert.Zero(t, total, "nothing is appended when sealing cannot start")
	})

	t.Run("unknown conversation", func(t *testing.T) {
		_, err := h.messenger.Send(ctx, alice, "missing", Draft{Text: "hi"})
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestReadMarksBadItems(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, alice, bob)
	conv := h.conversation(t, alice, bob)

	first, err := h.messenger.Send(ctx, alice, conv, Draft{Text: "one"})
	require.NoError(t, err)
	_, err = h.messenger.Send(ctx, bob, conv, Draft{Text: "two"})
	require.NoError(t, err)

	// Sealed for alice only, appended directly.
	aliceKP, _, _ := h.keys.LoadKeyPair(ctx, alice)
	sealed, err := envelope.NewCodec().Encrypt(aliceKP, conv, envelope.Body{Text: "secret"}, nil)
	require.NoError(t, err)
	ref, _ := h.content.Put(ctx, sealed.Serialized, "")
	_, err = h.ledger.SendMessage(ctx, alice, conv, ledger.MessageInput{PayloadRef: ref, CiphertextHash: sealed.Checksum})
	require.NoError(t, err)

	h.content.tamper(first.PayloadRef, []byte(`{"version":"1.0","envelopes":{}}`))

	batch, err := h.messenger.Read(ctx, bob, conv, 0, 0)
	require.NoError(t, err)
	require.Len(t, batch.Items, 3)

	assert.Equal(t, DecryptFailedText, batch.Items[0].Error)
	assert.Equal(t, apperrors.ReasonChecksumMismatch, apperrors.DecryptionReason(batch.Items[0].Err))

	require.NoError(t, batch.Items[1].Err)
	assert.Equal(t, "two", batch.Items[1].Body.Text)

	assert.Equal(t, DecryptFailedText, batch.Items[2].Error)
	assert.Equal(t, apperrors.ReasonNoEnvelope, apperrors.DecryptionReason(batch.Items[2].Err))
}

func TestReadRejectsForgedSenderKey(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.register(t, alice, bob)
	conv := h.conversation(t, alice, bob)

	// A key pair that is not alice's published one.
	forger, err := keystore.New(storage.NewMemoryStore()).EnsureKeyPair(ctx, alice)
	require.NoError(t, err)
	bobProfile, _ := h.ledger.GetProfile(ctx, alice, bob)

	sealed, err := envelope.NewCodec().Encrypt(forger, conv, envelope.Body{Text: "fake"},
		[]envelope.Recipient{{Address: bob, PublicKey: bobProfile.EncryptionKey}})
	require.NoError(t, err)
	ref, _ := h.content.Put(ctx, sealed.Serialized, "")
	_, err = h.ledger.SendMessage(ctx, alice, conv, ledger.MessageInput{PayloadRef: ref, CiphertextHash: sealed.Checksum})
	require.NoError(t, err)

	batch, err := h.messenger.Read(ctx, bob, conv, 0, 0)
	require.NoError(t, err)
	require.Len(t, batch.Items, 1)
	assert.Equal(t, apperrors.ReasonAuthentication, apperrors.DecryptionReason(batch.Items[0].Err))
}

func TestReadNonMember(t *testing.T) {
	h := newHarness(t)
	h.register(t, alice, bob, carol)
	conv := h.conversation(t, alice, bob)

	_, err := h.messenger.Read(context.Background(), carol, conv, 0, 0)
	assert.True(t, apperrors.IsUnauthorized(err), "got %v", err)
}

func TestPreview(t *testing.T) {
	long := strings.Repeat("é", 50)
	assert.Equal(t, strings.Repeat("é", 40), Preview(envelope.Body{Text: long}))
	assert.Equal(t, "short", Preview(envelope.Body{Text: "short"}))
	assert.Equal(t, AttachmentPreview, Preview(envelope.Body{MediaCID: "Qm"}))
}

func TestConversationIDs(t *testing.T) {
	a := DirectConversationID("0xB", "0xa")
	b := DirectConversationID(" 0xa", "0xb", "0xA")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, DirectConversationID("0xa", "0xc"))

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())

	g1, g2 := NewConversationID(), NewConversationID()
	assert.NotEqual(t, g1, g2)
	assert.NotContains(t, g1, "::")
}

func TestTimelineMerge(t *testing.T) {
	tl := NewTimeline()
	mk := func(id uint64, text string) Item {
		return Item{Message: ledger.Message{ID: id}, Body: &envelope.Body{Text: text}}
	}

	assert.Equal(t, 2, tl.Merge([]Item{mk(3, "c"), mk(1, "a")}))
	assert.Equal(t, 1, tl.Merge([]Item{mk(2, "b"), mk(3, "c2")}))

	items := tl.Items()
	require.Len(t, items, 3)
	assert.Equal(t, []uint64{1, 2, 3}, []uint64{items[0].Message.ID, items[1].Message.ID, items[2].Message.ID})
	assert.Equal(t, "c2", items[2].Body.Text)
}

func TestPoller(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.register(t, alice, bob)
	conv := h.conversation(t, alice, bob)

	_, err := h.messenger.Send(ctx, alice, conv, Draft{Text: "first"})
	require.NoError(t, err)

	ticks := make(chan time.Time)
	var delays []time.Duration
	var mu sync.Mutex
	p := NewPoller(h.messenger, bob, conv, PollerConfig{Interval: time.Second})
	p.after = func(d time.Duration) <-chan time.Time {
		mu.Lock()
		delays = append(delays, d)
		mu.Unlock()
		return ticks
	}

	batches := make(chan *Batch, 4)
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, func(b *Batch) { batches <- b }) }()

	b := <-batches
	require.Len(t, b.Items, 1)
	assert.Equal(t, "first", b.Items[0].Body.Text)

	ticks <- time.Now() // empty poll
	_, err = h.messenger.Send(ctx, alice, conv, Draft{Text: "second"})
	require.NoError(t, err)
	ticks <- time.Now()

	b = <-batches
	require.Len(t, b.Items, 1, "cursor advanced past the first message")
	assert.Equal(t, "second", b.Items[0].Body.Text)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	for _, d := range delays {
		assert.Equal(t, time.Second, d)
	}
}

func TestPollerBacksOff(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := NewPoller(h.messenger, bob, "missing", PollerConfig{Interval: time.Second, MaxBackoff: 5 * time.Second})
	delays := make(chan time.Duration, 8)
	ticks := make(chan time.Time)
	p.after = func(d time.Duration) <-chan time.Time {
		delays <- d
		return ticks
	}

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, func(*Batch) { t.Error("no batch expected") }) }()

	want := []time.Duration{2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}
	for i, w := range want {
		assert.Equal(t, w, <-delays, "attempt %d", i)
		if i < len(want)-1 {
			ticks <- time.Now()
		}
	}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
