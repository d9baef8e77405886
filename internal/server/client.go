package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-chatrelay/internal/config"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
	eventTimeout   = 5 * time.Second
)

const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
	ActionSend        = "send"
)

// clientFrame is what a connection writes: an action on a room, with an
// inbound event as the body of a send.
type clientFrame struct {
	Action string          `json:"action"`
	Room   string          `json:"room"`
	Body   json.RawMessage `json:"body"`
}

type Client struct {
	conn       *websocket.Conn
	chatServer *ChatServer
	router     *Router
	log        *zap.SugaredLogger
	remoteAddr string
	send       chan *ServerMessage
	limiter    *rate.Limiter
	// usernames joined per room and not yet left; only the read loop uses it
	joined   map[string][]string
	stop     chan struct{}
	stopOnce sync.Once
}

func NewClient(conn *websocket.Conn, cs *ChatServer, router *Router, rl config.RateLimit, l *zap.SugaredLogger) *Client {
	return &Client{
		conn:       conn,
		chatServer: cs,
		router:     router,
		log:        l,
		remoteAddr: conn.RemoteAddr().String(),
		send:       make(chan *ServerMessage, 256),
		limiter:    rate.NewLimiter(rate.Limit(rl.PerSecond), rl.Burst),
		joined:     make(map[string][]string),
		stop:       make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Debugw("write exiting", "remote", c.remoteAddr)
	}()

	for {
		select {
		case msg := <-c.send:
			bytes, err := json.Marshal(msg)
			if err != nil {
				c.log.Errorw("failed to serialize message", "error", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Debugw("read exiting", "remote", c.remoteAddr)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Warnw("ws read failed", "remote", c.remoteAddr, "error", err)
			}
			break
		}

		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.log.Debugw("error parsing frame", "remote", c.remoteAddr, "error", err)
			c.queueMessage(NewErrorEvent("Invalid message format"))
			continue
		}

		if frame.Room == "" {
			c.queueMessage(NewErrorEvent("Room is required"))
			continue
		}

		switch frame.Action {
		case ActionSubscribe:
			c.chatServer.Subscribe(Topic(frame.Room), c)
		case ActionUnsubscribe:
			c.chatServer.Unsubscribe(Topic(frame.Room), c)
		case ActionSend:
			if !c.limiter.Allow() {
				c.queueMessage(NewErrorEvent("rate limit exceeded"))
				continue
			}
			c.handleSend(frame.Room, frame.Body)
		default:
			c.queueMessage(NewErrorEvent("Invalid action"))
		}
	}
}

func (c *Client) handleSend(roomId string, body json.RawMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	ev, err := DecodeInbound(body)
	if err != nil {
		c.router.Reject(roomId, "", err)
		return
	}

	switch e := ev.(type) {
	case JoinEvent:
		if e.Username != "" {
			c.joined[roomId] = append(c.joined[roomId], e.Username)
		}
	case LeaveEvent:
		c.untrack(roomId, e.Username)
	}

	c.router.Dispatch(ctx, roomId, ev)
}

func (c *Client) untrack(roomId, username string) {
	users := c.joined[roomId]
	for i, u := range users {
		if u == username {
			users = append(users[:i], users[i+1:]...)
			break
		}
	}

	if len(users) == 0 {
		delete(c.joined, roomId)
		return
	}
	c.joined[roomId] = users
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		return false
	}

	return true
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Warnw("ws write failed", "remote", c.remoteAddr, "error", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// cleanup announces a leave for every join this connection did not undo, then
// removes the client from the server.
func (c *Client) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	for roomId, users := range c.joined {
		for _, u := range users {
			c.router.Dispatch(ctx, roomId, LeaveEvent{Username: u})
		}
	}
	c.joined = make(map[string][]string)

	c.chatServer.deRegister(c)
	c.stopClient()
}
