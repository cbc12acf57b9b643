package ledger

import (
	"encoding/binary"
	"fmt"
	"io"

	apperrors "github.com/DeBrosOfficial/wavechat/pkg/errors"
)

// Records are stored in a compact positional encoding: strings are a u32
// little-endian length followed by UTF-8 bytes, integers are fixed-width
// little-endian, booleans are one byte, and string slices are a u32 count
// followed by that many strings. Field order is part of the format.

type recordWriter struct {
	buf []byte
}

func (w *recordWriter) str(s string) *recordWriter {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(len(s)))
	w.buf = append(w.buf, s...)
	return w
}

func (w *recordWriter) u64(v uint64) *recordWriter {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
	return w
}

func (w *recordWriter) i64(v int64) *recordWriter {
	return w.u64(uint64(v))
}

func (w *recordWriter) boolean(v bool) *recordWriter {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
	return w
}

func (w *recordWriter) strs(ss []string) *recordWriter {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(len(ss)))
	for _, s := range ss {
		w.str(s)
	}
	return w
}

func (w *recordWriter) bytes() []byte {
	return w.buf
}

// recordReader keeps the first error and turns every later read into a no-op,
// so decoders can read all fields and check once.
type recordReader struct {
	buf []byte
	off int
	err error
}

func (r *recordReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.buf)-r.off < n {
		r.err = io.ErrUnexpectedEOF
		return nil
	}
	out := r.buf[r.off : r.off+n]
	r.off += n
	return out
}

func (r *recordReader) str() string {
	lenBytes := r.take(4)
	if lenBytes == nil {
		return ""
	}
	n := binary.LittleEndian.Uint32(lenBytes)
	return string(r.take(int(n)))
}

func (r *recordReader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *recordReader) i64() int64 {
	return int64(r.u64())
}

func (r *recordReader) boolean() bool {
	b := r.take(1)
	if b == nil {
		return false
	}
	switch b[0] {
	case 0:
		return false
	case 1:
		return true
	default:
		r.err = fmt.Errorf("invalid bool byte %d", b[0])
		return false
	}
}

func (r *recordReader) strs() []string {
	countBytes := r.take(4)
	if countBytes == nil {
		return nil
	}
	count := binary.LittleEndian.Uint32(countBytes)
	// Each string needs at least its 4-byte length.
	if uint64(count)*4 > uint64(len(r.buf)-r.off) {
		r.err = io.ErrUnexpectedEOF
		return nil
	}
	out := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		out = append(out, r.str())
	}
	return out
}

// finish reports a decode failure, including trailing bytes, as Corrupt.
func (r *recordReader) finish(key string) error {
	if r.err == nil && r.off != len(r.buf) {
		r.err = fmt.Errorf("%d trailing bytes", len(r.buf)-r.off)
	}
	if r.err != nil {
		return apperrors.NewCorruptError(key, r.err)
	}
	return nil
}

func encodeProfile(p *Profile) []byte {
	w := &recordWriter{}
	return w.str(p.Address).str(p.Username).str(p.AvatarRef).str(p.Bio).
		str(p.EncryptionKey).str(p.Status).i64(p.CreatedAt).i64(p.UpdatedAt).bytes()
}

func decodeProfile(key string, data []byte) (*Profile, error) {
	r := &recordReader{buf: data}
	p := &Profile{
		Address:       r.str(),
		Username:      r.str(),
		AvatarRef:     r.str(),
		Bio:           r.str(),
		EncryptionKey: r.str(),
		Status:        r.str(),
		CreatedAt:     r.i64(),
		UpdatedAt:     r.i64(),
	}
	if err := r.finish(key); err != nil {
		return nil, err
	}
	return p, nil
}

func encodeContact(c *Contact) []byte {
	w := &recordWriter{}
	return w.str(c.Owner).str(c.Peer).str(c.Alias).i64(c.CreatedAt).bytes()
}

func decodeContact(key string, data []byte) (*Contact, error) {
	r := &recordReader{buf: data}
	c := &Contact{
		Owner:     r.str(),
		Peer:      r.str(),
		Alias:     r.str(),
		CreatedAt: r.i64(),
	}
	if err := r.finish(key); err != nil {
		return nil, err
	}
	return c, nil
}

func encodeConversation(c *Conversation) []byte {
	w := &recordWriter{}
	return w.str(c.ID).str(c.Title).str(c.Creator).str(c.AvatarRef).
		boolean(c.IsGroup).strs(c.Members).i64(c.CreatedAt).bytes()
}

func decodeConversation(key string, data []byte) (*Conversation, error) {
	r := &recordReader{buf: data}
	c := &Conversation{
		ID:        r.str(),
		Title:     r.str(),
		Creator:   r.str(),
		AvatarRef: r.str(),
		IsGroup:   r.boolean(),
		Members:   r.strs(),
		CreatedAt: r.i64(),
	}
	if err := r.finish(key); err != nil {
		return nil, err
	}
	return c, nil
}

func encodeMessage(m *Message) []byte {
	w := &recordWriter{}
	return w.u64(m.ID).str(m.ConversationID).str(m.Sender).str(m.PayloadRef).
		str(m.CiphertextHash).str(m.MimeType).str(m.Preview).str(m.Status).
		i64(m.Timestamp).i64(m.ExpiresAt).bytes()
}

func decodeMessage(key string, data []byte) (*Message, error) {
	r := &recordReader{buf: data}
	m := &Message{
		ID:             r.u64(),
		ConversationID: r.str(),
		Sender:         r.str(),
		PayloadRef:     r.str(),
		CiphertextHash: r.str(),
		MimeType:       r.str(),
		Preview:        r.str(),
		Status:         r.str(),
		Timestamp:      r.i64(),
		ExpiresAt:      r.i64(),
	}
	if err := r.finish(key); err != nil {
		return nil, err
	}
	return m, nil
}

func encodeCounter(v uint64) []byte {
	w := &recordWriter{}
	return w.u64(v).bytes()
}

func decodeCounter(key string, data []byte) (uint64, error) {
	r := &recordReader{buf: data}
	v := r.u64()
	if err := r.finish(key); err != nil {
		return 0, err
	}
	return v, nil
}
