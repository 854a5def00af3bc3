package main

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufSize    = 256
)

// Client represents a WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	playerID   string
	remoteAddr string
	limiter    *RateLimiter

	kick       chan struct{}
	kickOnce   sync.Once
	kickReason string
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		remoteAddr: remoteAddr,
		limiter:    NewRateLimiter(hub.cfg.MaxMessagesPerSec, time.Second),
		kick:       make(chan struct{}),
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.release(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				Log.Debugw("ws read error", "ip", c.remoteAddr, "err", err)
			}
			break
		}

		if !c.limiter.Allow(time.Now()) {
			c.hub.bans.Ban(c.remoteAddr, c.hub.cfg.BanDuration)
			c.hub.game.Metrics().RateKicks.Add(1)
			c.hub.analytics.Track(EvtRateKick, c.remoteAddr, "")
			Log.Warnw("rate limit exceeded, disconnecting", "ip", c.remoteAddr, "ban", c.hub.cfg.BanDuration)
			break
		}

		c.handleMessage(message)
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(message); err != nil {
				return
			}

		case <-c.kick:
			// flush what was queued before the kick, then close
		flush:
			for {
				select {
				case message, ok := <-c.send:
					if !ok {
						break flush
					}
					c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.write(message); err != nil {
						return
					}
				default:
					break flush
				}
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, c.kickReason))
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// write sends one queued frame. A 0xFF prefix marks a binary frame.
func (c *Client) write(message []byte) error {
	if len(message) > 0 && message[0] == 0xFF {
		return c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
	}
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		Log.Errorw("marshal error", "err", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message
// Prefixes with 0xFF marker byte so WritePump can distinguish from text
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF // binary marker
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

// Disconnect closes the connection after flushing queued messages
func (c *Client) Disconnect(reason string) {
	c.kickOnce.Do(func() {
		c.kickReason = reason
		close(c.kick)
	})
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope).
// Malformed payloads are dropped without a reply.
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return
	}

	switch env.T {
	case MsgJoin:
		c.handleJoin(env.D)
	case MsgMove:
		c.handleMove(env.D)
	case MsgShoot:
		c.handleShoot(env.D)
	case MsgBoost:
		c.handleBoost(env.D)
	case MsgChat:
		c.handleChat(env.D)
	}
}

func (c *Client) handleJoin(data json.RawMessage) {
	var msg JoinMsg
	if len(data) > 0 {
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
	}
	// re-joining replaces the previous avatar
	if c.playerID != "" {
		c.hub.game.RemovePlayer(c.playerID)
	}
	p := c.hub.game.Join(msg.Name, msg.Color, c)
	c.playerID = p.ID
}

func (c *Client) handleMove(data json.RawMessage) {
	if c.playerID == "" {
		return
	}
	var msg MoveMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if msg.X == nil || msg.Y == nil || !finite(*msg.X, *msg.Y) {
		return
	}
	c.hub.game.SubmitIntent(Intent{Kind: IntentMove, PlayerID: c.playerID, X: *msg.X, Y: *msg.Y, At: time.Now()})
}

func (c *Client) handleShoot(data json.RawMessage) {
	if c.playerID == "" {
		return
	}
	var msg ShootMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if msg.TargetX == nil || msg.TargetY == nil || !finite(*msg.TargetX, *msg.TargetY) {
		return
	}
	c.hub.game.SubmitIntent(Intent{Kind: IntentShoot, PlayerID: c.playerID, X: *msg.TargetX, Y: *msg.TargetY, At: time.Now()})
}

func (c *Client) handleBoost(data json.RawMessage) {
	if c.playerID == "" {
		return
	}
	var msg BoostMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	c.hub.game.SubmitIntent(Intent{Kind: IntentBoost, PlayerID: c.playerID, Active: msg.Active, At: time.Now()})
}

func (c *Client) handleChat(data json.RawMessage) {
	if c.playerID == "" {
		return
	}
	var msg ChatInMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	c.hub.game.Chat(c.playerID, msg.Text)
}
