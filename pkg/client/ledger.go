package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/DeBrosOfficial/wavechat/pkg/ledger"
)

// The gateway derives the caller from the bearer token, so the caller
// arguments below only exist to satisfy chat.Ledger and are not sent.

func (c *Client) RegisterProfile(ctx context.Context, _ string, in ledger.ProfileInput) (*ledger.Profile, error) {
	var out struct {
		Profile *ledger.Profile `json:"profile"`
	}
	if err := c.do(ctx, http.MethodPut, "/v1/profile", nil, in, &out); err != nil {
		return nil, err
	}
	return out.Profile, nil
}

// GetProfile returns nil, nil when address has no profile.
func (c *Client) GetProfile(ctx context.Context, _ string, address string) (*ledger.Profile, error) {
	var out struct {
		Profile *ledger.Profile `json:"profile"`
	}
	q := url.Values{}
	if address != "" {
		q.Set("address", address)
	}
	if err := c.do(ctx, http.MethodGet, "/v1/profile", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Profile, nil
}

func (c *Client) AddContact(ctx context.Context, _ string, peer, alias string) (*ledger.Contact, error) {
	var out ledger.Contact
	in := map[string]string{"peer": peer, "alias": alias}
	if err := c.do(ctx, http.MethodPost, "/v1/contacts", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListContacts(ctx context.Context, _ string, owner string) ([]ledger.Contact, error) {
	var out struct {
		Contacts []ledger.Contact `json:"contacts"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/contacts", ownerQuery(owner), nil, &out); err != nil {
		return nil, err
	}
	return out.Contacts, nil
}

// CreateConversation lets the gateway pick an id when in.ID is empty.
func (c *Client) CreateConversation(ctx context.Context, _ string, in ledger.ConversationInput) (*ledger.Conversation, error) {
	var out ledger.Conversation
	if err := c.do(ctx, http.MethodPost, "/v1/conversations", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetConversation(ctx context.Context, _ string, id string) (*ledger.Conversation, error) {
	var out ledger.Conversation
	if err := c.do(ctx, http.MethodGet, conversationPath(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListConversations(ctx context.Context, _ string, owner string) ([]ledger.Conversation, error) {
	var out struct {
		Conversations []ledger.Conversation `json:"conversations"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/conversations", ownerQuery(owner), nil, &out); err != nil {
		return nil, err
	}
	return out.Conversations, nil
}

func (c *Client) SendMessage(ctx context.Context, _ string, conversationID string, in ledger.MessageInput) (*ledger.Message, error) {
	var out ledger.Message
	if err := c.do(ctx, http.MethodPost, conversationPath(conversationID)+"/messages", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FetchMessages(ctx context.Context, _ string, conversationID string, cursor uint64, limit uint32) (*ledger.MessagePage, error) {
	q := url.Values{}
	if cursor > 0 {
		q.Set("cursor", strconv.FormatUint(cursor, 10))
	}
	if limit > 0 {
		q.Set("limit", strconv.FormatUint(uint64(limit), 10))
	}
	var out ledger.MessagePage
	if err := c.do(ctx, http.MethodGet, conversationPath(conversationID)+"/messages", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func conversationPath(id string) string {
	return "/v1/conversations/" + url.PathEscape(id)
}

func ownerQuery(owner string) url.Values {
	if owner == "" {
		return nil
	}
	return url.Values{"owner": {owner}}
}
