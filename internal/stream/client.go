// Package stream is the websocket market-data/trade fan-out: it registers
// itself as the matching engine's trade/BBO/depth listener and relays
// each event, as JSON, to every client subscribed to that event's symbol.
package stream

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// clientMessage is a subscription control frame sent by a connected
// client: {"action": "subscribe"|"unsubscribe", "symbol": "BTC-USD"}.
type clientMessage struct {
	Action string `json:"action"`
	Symbol string `json:"symbol"`
}

// Envelope is the frame shape pushed to subscribed clients, per
// SPEC_FULL §6: {"type": "trade"|"bbo"|"depth", "payload": ...}.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// client is one connected websocket subscriber. Its subscription set lives
// in the hub's clients map, mutated only by Run, so client itself holds no
// state shared between the readPump and hub goroutines besides send.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan Envelope
}

func newClient(hub *Hub, conn *websocket.Conn) *client {
	return &client{
		hub:  hub,
		conn: conn,
		send: make(chan Envelope, sendBufferSize),
	}
}

func (c *client) readPump(logger zerolog.Logger) {
	defer func() {
		c.hub.unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Debug().Err(err).Msg("websocket read closed")
			}
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		switch msg.Action {
		case "subscribe":
			c.hub.subscribeCh <- subscription{client: c, symbol: msg.Symbol, enabled: true}
		case "unsubscribe":
			c.hub.subscribeCh <- subscription{client: c, symbol: msg.Symbol, enabled: false}
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case envelope, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteJSON(envelope); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
