package ledger

// Profile is the public record of an identity. EncryptionKey is the base64
// box public key peers encrypt to.
type Profile struct {
	Address       string `json:"address"`
	Username      string `json:"username"`
	AvatarRef     string `json:"avatarRef"`
	Bio           string `json:"bio"`
	EncryptionKey string `json:"encryptionKey"`
	Status        string `json:"status"`
	CreatedAt     int64  `json:"createdAt"`
	UpdatedAt     int64  `json:"updatedAt"`
}

// Contact links an owner to a peer. There is no reciprocal record.
type Contact struct {
	Owner     string `json:"owner"`
	Peer      string `json:"peer"`
	Alias     string `json:"alias"`
	CreatedAt int64  `json:"createdAt"`
}

// Conversation is immutable once created.
type Conversation struct {
	ID        string   `json:"conversationId"`
	Title     string   `json:"title"`
	Creator   string   `json:"creator"`
	AvatarRef string   `json:"avatarRef"`
	IsGroup   bool     `json:"isGroup"`
	Members   []string `json:"members"`
	CreatedAt int64    `json:"createdAt"`
}

// HasMember reports whether identity is one of the conversation's members.
func (c *Conversation) HasMember(identity string) bool {
	for _, m := range c.Members {
		if m == identity {
			return true
		}
	}
	return false
}

// Message is the ledger's pointer to an uploaded envelope set.
type Message struct {
	ID             uint64 `json:"id"`
	ConversationID string `json:"conversationId"`
	Sender         string `json:"sender"`
	PayloadRef     string `json:"payloadRef"`
	CiphertextHash string `json:"ciphertextHash"`
	MimeType       string `json:"mimeType"`
	Preview        string `json:"preview"`
	Status         string `json:"status"`
	Timestamp      int64  `json:"timestamp"`
	ExpiresAt      int64  `json:"expiresAt"`
}

// MessagePage is one fetch_messages result. Cursor is the id the scan started
// from; NextCursor is what to pass next time.
type MessagePage struct {
	Cursor     uint64    `json:"cursor"`
	NextCursor uint64    `json:"nextCursor"`
	Messages   []Message `json:"messages"`
}

// ProfileInput carries register_profile arguments.
type ProfileInput struct {
	Username      string `json:"username"`
	AvatarRef     string `json:"avatarRef"`
	Bio           string `json:"bio"`
	EncryptionKey string `json:"encryptionKey"`
	Status        string `json:"status"`
}

// ConversationInput carries create_conversation arguments.
type ConversationInput struct {
	ID        string   `json:"conversationId"`
	Title     string   `json:"title"`
	AvatarRef string   `json:"avatarRef"`
	IsGroup   bool     `json:"isGroup"`
	Members   []string `json:"members"`
}

// MessageInput carries send_message arguments.
type MessageInput struct {
	PayloadRef     string `json:"payloadRef"`
	CiphertextHash string `json:"ciphertextHash"`
	MimeType       string `json:"mimeType"`
	Preview        string `json:"preview"`
	Status         string `json:"status"`
	ExpiresAt      int64  `json:"expiresAt"`
}
