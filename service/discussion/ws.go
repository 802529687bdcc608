package discussion

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yawmintah/alumnet-server/cmd/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket is the session gate. The bearer credential comes off
// the handshake request; a missing, invalid or expired token, or a token
// for a user that no longer exists, fails the attempt before the upgrade
// and before any event can be processed. There is no retry: the client
// reconnects with a fresh credential.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	tokenString := utils.BearerToken(r)
	if tokenString == "" {
		http.Error(w, "Authorization required", http.StatusUnauthorized)
		return
	}

	userID, err := utils.ParseUserID(tokenString)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	if _, err := h.store.FindUser(r.Context(), userID); err != nil {
		http.Error(w, "Unknown user", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	log.Printf("websocket connection established for user %d", userID)

	c := h.hub.register(userID)

	go h.writePump(conn, c)
	go h.readPump(conn, c)
}

// readPump pulls events off the socket and hands them to the hub. Each
// event runs against a background context: dropping the connection does
// not cancel an in-flight store write, and a confirmed write still
// broadcasts to the rest of the room.
func (h *Handler) readPump(conn *websocket.Conn, c *connection) {
	defer func() {
		h.hub.unregister(c)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket error for user %d: %v", c.userID, err)
			}
			break
		}

		var ev clientEvent
		if err := json.Unmarshal(message, &ev); err != nil {
			h.hub.sendError(c, "malformed event")
			continue
		}

		h.hub.dispatch(context.Background(), c, ev)
	}
}

func (h *Handler) writePump(conn *websocket.Conn, c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
