package gateway

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	apperrors "github.com/DeBrosOfficial/wavechat/pkg/errors"
	"github.com/DeBrosOfficial/wavechat/pkg/ledger"
	"github.com/DeBrosOfficial/wavechat/pkg/logging"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = 30 * time.Second
	wsPongWait   = wsPingPeriod + 10*time.Second
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Clients authenticate with a bearer token, not cookies.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// eventsWebsocketHandler streams ledger events to the caller. With
// ?conversation= the stream is limited to that conversation and the caller
// must be a member. Without it the caller sees events they took part in.
func (g *Gateway) eventsWebsocketHandler(w http.ResponseWriter, r *http.Request) {
	if g.broker == nil {
		g.writeError(w, r, apperrors.NewServiceError("events", "event stream disabled", http.StatusServiceUnavailable, nil))
		return
	}
	caller := callerFrom(r.Context())

	filter := participantFilter(caller)
	if cid := strings.TrimSpace(r.URL.Query().Get("conversation")); cid != "" {
		conv, err := g.ledger.GetConversation(r.Context(), caller, cid)
		if err != nil {
			g.writeError(w, r, err)
			return
		}
		if !conv.HasMember(caller) {
			g.writeError(w, r, apperrors.NewForbiddenError("conversation", "subscribe"))
			return
		}
		filter = func(ev ledger.Event) bool { return ev.ConversationID == cid }
	}

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.ComponentWarn(logging.ComponentGateway, "events ws: upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, cancel := g.broker.Subscribe(filter)
	defer cancel()

	g.logger.ComponentInfo(logging.ComponentGateway, "events ws: subscribed",
		zap.String("caller", caller),
		zap.Int("subscribers", g.broker.Subscribers()),
	)

	// Reader loop: the client sends nothing but control frames, so this only
	// exists to notice the close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				g.logger.ComponentWarn(logging.ComponentGateway, "events ws: write failed",
					zap.String("caller", caller), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// participantFilter passes events the identity acted in or is a member of.
func participantFilter(identity string) func(ledger.Event) bool {
	return func(ev ledger.Event) bool {
		if ev.Actor == identity {
			return true
		}
		for _, m := range ev.Members {
			if m == identity {
				return true
			}
		}
		return false
	}
}
