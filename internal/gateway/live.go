// ABOUTME: WebSocket live feed pushing newly received messages to the dashboard
// ABOUTME: Clients authenticate with a token query parameter and join the chat room

package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/2389/wadash/internal/conversation"
	"github.com/2389/wadash/internal/store"
)

// Frame types exchanged on the live feed.
const (
	frameJoinChat   = "join_chat"
	frameLeaveChat  = "leave_chat"
	frameJoined     = "joined"
	frameLeft       = "left"
	frameNewMessage = "new_message"
	frameError      = "error"
)

const liveWriteTimeout = 5 * time.Second

// clientFrame is a frame sent by the browser.
type clientFrame struct {
	Type string `json:"type"`
}

// serverFrame is a frame pushed to the browser.
type serverFrame struct {
	Type    string         `json:"type"`
	Room    string         `json:"room,omitempty"`
	Message *store.Message `json:"message,omitempty"`
	Error   string         `json:"error,omitempty"`
}

func (g *Gateway) handleLiveFeed(w http.ResponseWriter, r *http.Request) {
	op, err := g.issuer.Verify(r.URL.Query().Get("token"))
	if err != nil {
		g.sendJSONError(w, http.StatusUnauthorized, "Invalid token")
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	sessionID := uuid.NewString()
	logger := g.logger.With("session_id", sessionID, "username", op.Username)
	logger.Info("live session connected")
	defer logger.Info("live session disconnected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	frames := make(chan clientFrame)
	go func() {
		defer cancel()
		for {
			var f clientFrame
			if err := wsjson.Read(ctx, conn, &f); err != nil {
				return
			}
			select {
			case frames <- f:
			case <-ctx.Done():
				return
			}
		}
	}()

	write := func(f serverFrame) error {
		wctx, wcancel := context.WithTimeout(ctx, liveWriteTimeout)
		defer wcancel()
		return wsjson.Write(wctx, conn, f)
	}

	var events <-chan *conversation.Event
	for {
		select {
		case <-ctx.Done():
			g.hub.Leave(conversation.RoomLiveFeed, sessionID)
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return

		case f := <-frames:
			var reply serverFrame
			switch f.Type {
			case frameJoinChat:
				events = g.hub.Join(ctx, conversation.RoomLiveFeed, sessionID)
				reply = serverFrame{Type: frameJoined, Room: conversation.RoomLiveFeed}
			case frameLeaveChat:
				g.hub.Leave(conversation.RoomLiveFeed, sessionID)
				events = nil
				reply = serverFrame{Type: frameLeft, Room: conversation.RoomLiveFeed}
			default:
				reply = serverFrame{Type: frameError, Error: "unknown frame type " + f.Type}
			}
			if err := write(reply); err != nil {
				cancel()
			}

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if err := write(serverFrame{Type: frameNewMessage, Message: ev.Message}); err != nil {
				logger.Debug("live write failed", "error", err)
				cancel()
			}
		}
	}
}
