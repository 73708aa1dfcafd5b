package websocket

import (
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/rs/zerolog/log"

	"github.com/kataclub/kataclub_server/internal/user"
)

const (
	writeTimeout   = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 4 * 1024 // control messages only
	sendBufferSize = 256
)

type Client struct {
	hub           *Hub
	conn          *websocket.Conn
	user          *user.User
	send          chan interface{}
	subscriptions map[string]bool // entity -> subscribed
	mu            sync.RWMutex
}

func NewClient(hub *Hub, conn *websocket.Conn, u *user.User) *Client {
	return &Client{
		hub:           hub,
		conn:          conn,
		user:          u,
		send:          make(chan interface{}, sendBufferSize),
		subscriptions: make(map[string]bool),
	}
}

func (c *Client) Subscribe(entity string) {
	c.mu.Lock()
	c.subscriptions[entity] = true
	c.mu.Unlock()

	c.hub.Subscribe(c, entity)
}

func (c *Client) Unsubscribe(entity string) {
	c.mu.Lock()
	delete(c.subscriptions, entity)
	c.mu.Unlock()

	c.hub.Unsubscribe(c, entity)
}

func (c *Client) IsSubscribed(entity string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subscriptions[entity]
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg IncomingMessage
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Debug().
					Str("userId", c.user.ID).
					Err(err).
					Msg("[WS] Read error")
			} else {
				log.Debug().
					Str("userId", c.user.ID).
					Msg("[WS] Client disconnected")
			}
			return
		}

		c.handleMessage(&msg)
	}
}

func (c *Client) handleMessage(msg *IncomingMessage) {
	switch msg.Type {
	case MessageTypeSubscribe:
		if validEntity(msg.Entity) {
			c.Subscribe(msg.Entity)
		} else {
			c.send <- &OutgoingMessage{Type: MessageTypeError, Error: "unknown entity: " + msg.Entity}
		}

	case MessageTypeUnsubscribe:
		if msg.Entity != "" {
			c.Unsubscribe(msg.Entity)
		}

	case MessageTypePing:
		c.send <- &OutgoingMessage{Type: MessageTypePong}

	default:
		log.Debug().
			Str("type", string(msg.Type)).
			Msg("[WS] Unknown message type")
	}
}

func validEntity(entity string) bool {
	return entity == EntityKatas || entity == EntityPosts
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				// Channel closed
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			err := c.conn.WriteJSON(message)
			if err != nil {
				log.Debug().
					Str("userId", c.user.ID).
					Err(err).
					Msg("[WS] Write error")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Str("userId", c.user.ID).
					Err(err).
					Msg("[WS] Ping error")
				return
			}
		}
	}
}
