package twitch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"StreamPulse/internal/domain/models"
	drepo "StreamPulse/internal/domain/repository"
	"StreamPulse/pkg/logger"
)

// Client implements a ChatStream over the Twitch IRC-on-WebSocket protocol.
type Client struct {
	token        string
	nickname     string
	channel      string
	websocketURL string
	idleTimeout  time.Duration
	lgr          *logger.Logger

	conn      *websocket.Conn
	wmu       sync.Mutex
	connected bool
}

// New creates a new chat stream client. channel may carry a leading '#'.
func New(token, nickname, channel, websocketURL string, idleTimeout time.Duration, lgr *logger.Logger) drepo.ChatStream {
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Second
	}
	return &Client{
		token:        token,
		nickname:     nickname,
		channel:      strings.TrimPrefix(channel, "#"),
		websocketURL: websocketURL,
		idleTimeout:  idleTimeout,
		lgr:          lgr,
	}
}

// Connect dials the WebSocket endpoint and performs the auth handshake.
// Twitch accepts the handshake implicitly; a failed PASS surfaces as a
// NOTICE followed by a server-side close, which the read loop reports.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.websocketURL, nil)
	if err != nil {
		return fmt.Errorf("chat connect: %w", err)
	}
	c.conn = conn

	for _, line := range []string{
		"CAP REQ :twitch.tv/tags twitch.tv/commands",
		"PASS oauth:" + c.token,
		"NICK " + c.nickname,
	} {
		if err := c.writeLine(line); err != nil {
			_ = conn.Close()
			return fmt.Errorf("chat handshake: %w", err)
		}
	}

	c.connected = true
	c.lgr.Info("chat: connected", logger.String("url", c.websocketURL))
	return nil
}

// Join joins the configured channel.
func (c *Client) Join(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("chat not connected")
	}
	if err := c.writeLine("JOIN #" + c.channel); err != nil {
		return fmt.Errorf("join %s: %w", c.channel, err)
	}
	c.lgr.Info("chat: joined", logger.String("channel", c.channel))
	return nil
}

// Read streams parsed PRIVMSG lines and errors. A ticker goroutine sends
// client-side PING probes so the server answers during quiet stretches; every
// received frame (PONG replies included) pushes the read deadline forward. A
// deadline that still expires means the connection is dead, so the read error
// is surfaced and the adapter's reconnect path takes over. Incoming PING
// lines are answered with PONG; malformed lines are logged and dropped.
func (c *Client) Read(ctx context.Context) (<-chan *models.ChatMessage, <-chan error) {
	msgs := make(chan *models.ChatMessage, 256)
	errs := make(chan error, 1)

	// keep-alive loop
	go func() {
		interval := c.idleTimeout / 2
		if interval <= 0 {
			interval = time.Second
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.writeLine("PING :streampulse"); err != nil {
					return
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(msgs)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if c.conn == nil {
				errs <- fmt.Errorf("chat conn nil")
				return
			}
			_ = c.conn.SetReadDeadline(time.Now().Add(c.idleTimeout))
			_, b, err := c.conn.ReadMessage()
			if err != nil {
				errs <- fmt.Errorf("chat read: %w", err)
				return
			}

			for _, line := range strings.Split(string(b), "\r\n") {
				if line == "" {
					continue
				}
				c.handleLine(line, msgs)
			}
		}
	}()

	return msgs, errs
}

func (c *Client) handleLine(line string, msgs chan<- *models.ChatMessage) {
	msg, err := parseLine(line)
	if err != nil {
		c.lgr.Warn("chat: dropped malformed line", logger.Error(err))
		return
	}

	switch msg.Command {
	case "PING":
		if err := c.writeLine("PONG :" + msg.Trailing); err != nil {
			c.lgr.Warn("chat: pong failed", logger.Error(err))
		}
	case "JOIN":
		c.lgr.Debug("chat: join ack", logger.String("nick", msg.Nick()))
	case "PRIVMSG":
		channel := c.channel
		if len(msg.Params) > 0 {
			channel = strings.TrimPrefix(msg.Params[0], "#")
		}
		id := msg.Tags["id"]
		if id == "" {
			id = uuid.NewString()
		}
		select {
		case msgs <- &models.ChatMessage{
			ID:      id,
			Author:  msg.Nick(),
			Channel: channel,
			Text:    msg.Trailing,
		}:
		default:
			// drop on backpressure
		}
	default:
		// NOTICE, USERSTATE and friends carry nothing we ingest
	}
}

// writeLine serializes writers: the keep-alive ticker and the read loop's
// PONG replies share the connection.
func (c *Client) writeLine(line string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, []byte(line+"\r\n"))
}

// Close closes the connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
