package gateway

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/DeBrosOfficial/wavechat/pkg/chat"
	"github.com/DeBrosOfficial/wavechat/pkg/httputil"
	"github.com/DeBrosOfficial/wavechat/pkg/ledger"
)

type contactRequest struct {
	Peer  string `json:"peer"`
	Alias string `json:"alias"`
}

// identityParam reads an identity query parameter, defaulting to the caller.
// Identities are compared lower-cased, the same as authenticated wallets.
func identityParam(r *http.Request, key string) string {
	if v := strings.TrimSpace(r.URL.Query().Get(key)); v != "" {
		return strings.ToLower(v)
	}
	return callerFrom(r.Context())
}

func (g *Gateway) registerProfileHandler(w http.ResponseWriter, r *http.Request) {
	var in ledger.ProfileInput
	if err := httputil.DecodeJSONStrict(r, g.cfg.MaxBodyBytes, &in); err != nil {
		g.writeError(w, r, err)
		return
	}
	p, err := g.ledger.RegisterProfile(r.Context(), callerFrom(r.Context()), in)
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"profile": p})
}

func (g *Gateway) getProfileHandler(w http.ResponseWriter, r *http.Request) {
	p, err := g.ledger.GetProfile(r.Context(), callerFrom(r.Context()), identityParam(r, "address"))
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	// An absent profile is {"profile": null}, not a 404.
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"profile": p})
}

func (g *Gateway) addContactHandler(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := httputil.DecodeJSONStrict(r, g.cfg.MaxBodyBytes, &req); err != nil {
		g.writeError(w, r, err)
		return
	}
	c, err := g.ledger.AddContact(r.Context(), callerFrom(r.Context()), strings.ToLower(strings.TrimSpace(req.Peer)), req.Alias)
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, c)
}

func (g *Gateway) listContactsHandler(w http.ResponseWriter, r *http.Request) {
	contacts, err := g.ledger.ListContacts(r.Context(), callerFrom(r.Context()), identityParam(r, "owner"))
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"contacts": nonNil(contacts)})
}

func (g *Gateway) createConversationHandler(w http.ResponseWriter, r *http.Request) {
	var in ledger.ConversationInput
	if err := httputil.DecodeJSONStrict(r, g.cfg.MaxBodyBytes, &in); err != nil {
		g.writeError(w, r, err)
		return
	}
	caller := callerFrom(r.Context())
	for i, m := range in.Members {
		in.Members[i] = strings.ToLower(strings.TrimSpace(m))
	}
	if in.ID == "" {
		if !in.IsGroup && len(in.Members) == 1 {
			in.ID = chat.DirectConversationID(caller, in.Members[0])
		} else {
			in.ID = chat.NewConversationID()
		}
	}

	c, err := g.ledger.CreateConversation(r.Context(), caller, in)
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, c)
}

func (g *Gateway) getConversationHandler(w http.ResponseWriter, r *http.Request) {
	c, err := g.ledger.GetConversation(r.Context(), callerFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (g *Gateway) listConversationsHandler(w http.ResponseWriter, r *http.Request) {
	convs, err := g.ledger.ListConversations(r.Context(), callerFrom(r.Context()), identityParam(r, "owner"))
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"conversations": nonNil(convs)})
}

func (g *Gateway) sendMessageHandler(w http.ResponseWriter, r *http.Request) {
	var in ledger.MessageInput
	if err := httputil.DecodeJSONStrict(r, g.cfg.MaxBodyBytes, &in); err != nil {
		g.writeError(w, r, err)
		return
	}
	m, err := g.ledger.SendMessage(r.Context(), callerFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, m)
}

func (g *Gateway) fetchMessagesHandler(w http.ResponseWriter, r *http.Request) {
	cursor, err := httputil.QueryParamUint(r, "cursor", 64, 0)
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	limit, err := httputil.QueryParamUint(r, "limit", 32, 0)
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	page, err := g.ledger.FetchMessages(r.Context(), callerFrom(r.Context()), chi.URLParam(r, "id"), cursor, uint32(limit))
	if err != nil {
		g.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
