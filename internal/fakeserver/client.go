package fakeserver

import (
	"context"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"vinnyverse-client/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
	sendBufferSize = 256
)

// Client is a middleman between a logged-in websocket connection and the hub.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan frame
	logger *zap.Logger

	Username string
	SoulID   string
	token    string
}

// NewClient creates a Client for a connection that already passed login.
func NewClient(hub *Hub, conn *websocket.Conn, username, soulID, token string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan frame, sendBufferSize),
		logger:   hub.logger.With(zap.String("username", username)),
		Username: username,
		SoulID:   soulID,
		token:    token,
	}
}

// ReadPump pumps commands from the websocket connection to the hub.
func (c *Client) ReadPump() {
	c.logger.Debug("read pump started")
	defer func() {
		c.logger.Debug("read pump stopped")
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stop:
		}
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	ctx := context.Background()

	for {
		msgType, message, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure &&
				websocket.CloseStatus(err) != websocket.StatusGoingAway {
				c.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		env, err := protocol.Unmarshal(message)
		if err != nil {
			c.logger.Warn("failed to parse command", zap.Error(err))
			continue
		}
		select {
		case c.hub.commands <- command{client: c, env: env}:
		case <-c.hub.stop:
			return
		}
	}
}

// WritePump pumps frames from the hub to the websocket connection.
func (c *Client) WritePump() {
	c.logger.Debug("write pump started")
	defer func() {
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
		c.logger.Debug("write pump stopped")
	}()

	for msg := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		err := c.conn.Write(ctx, msg.typ, msg.data)
		cancel()
		if err != nil {
			return
		}
	}
}
