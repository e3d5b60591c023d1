// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/Tyrowin/chatrooms/internal/protocol"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client represents one WebSocket connection. A connection may speak for any
// number of participants across rooms; the hub tracks those bindings.
type Client struct {
	id          string
	conn        *websocket.Conn
	send        chan []byte
	hub         *Hub
	addr        string
	closed      bool
	rateLimiter *rateLimiter
}

// NewClient creates a client for conn registered against hub. The send
// channel is buffered according to the hub's configuration.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	cfg := hub.config
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}
	return &Client{
		id:          uuid.NewString(),
		conn:        conn,
		send:        make(chan []byte, cfg.SendBufferSize),
		hub:         hub,
		addr:        addr,
		rateLimiter: newRateLimiter(cfg.RateLimit),
	}
}

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Warn().Err(err).Str("client", c.id).Msg("error setting initial read deadline")
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

// logReadError records why the read loop ended.
func (c *Client) logReadError(err error) {
	logger := log.With().Str("client", c.id).Str("addr", c.addr).Err(err).Logger()

	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		logger.Warn().Int64("limit", c.hub.config.MaxMessageSize).Msg("message exceeded maximum size")
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure):
		logger.Info().Msg("client disconnected")
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		logger.Info().Msg("client connection closed")
	case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseMessageTooBig):
		logger.Warn().Msg("unexpected WebSocket close")
	default:
		logger.Warn().Msg("WebSocket read error")
	}
}

// processMessage decodes a raw frame and hands the command to the hub.
func (c *Client) processMessage(raw []byte) {
	if c.rateLimiter != nil {
		if wait, ok := c.rateLimiter.take(); !ok {
			log.Warn().Str("client", c.id).Dur("retry_in", wait).Msg("rate limit exceeded; discarding command")
			text := fmt.Sprintf("too many commands, retry in %s", wait.Round(time.Millisecond))
			c.hub.reply(c, protocol.ErrorEvent("", protocol.KindRateLimited, text))
			return
		}
	}

	cmd, err := protocol.DecodeCommand(raw)
	if err != nil {
		log.Debug().Err(err).Str("client", c.id).Msg("invalid command")
		c.hub.reply(c, protocol.ErrorEvent("", protocol.KindBadRequest, err.Error()))
		return
	}
	c.hub.handleCommand(c, cmd)
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
			c.hub.removeClient(c)
		}
		c.closeConnection()
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}
		c.processMessage(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !c.writeFrame(message, ok) {
				return
			}
		case <-ticker.C:
			if !c.writePing() {
				return
			}
		}
	}
}

func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		log.Warn().Err(err).Str("client", c.id).Msg("error closing connection")
	}
}

// writeFrame writes one event frame, or a close frame once the hub has
// closed the send channel. Each event travels in its own text message.
func (c *Client) writeFrame(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		log.Warn().Err(err).Str("client", c.id).Msg("error setting write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
			log.Debug().Err(err).Str("client", c.id).Msg("error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		log.Warn().Err(err).Str("client", c.id).Msg("error writing message")
		return false
	}
	return true
}

func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		log.Warn().Err(err).Str("client", c.id).Msg("error setting write deadline for ping")
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		log.Debug().Err(err).Str("client", c.id).Msg("error writing ping")
		return false
	}
	return true
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, websocket.ErrCloseSent) {
		return true
	}
	msg := err.Error()
	return containsAny(msg, "use of closed network connection", "broken pipe", "connection reset by peer")
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
