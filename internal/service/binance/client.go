package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"StreamPulse/internal/domain/models"
	drepo "StreamPulse/internal/domain/repository"
	"StreamPulse/pkg/logger"
)

// Client implements a MarketStream backed by the Binance trade WebSocket.
type Client struct {
	symbol       string
	websocketURL string
	pingInterval time.Duration
	lgr          *logger.Logger

	conn      *websocket.Conn
	connected bool
}

// New creates a new market stream for symbol (e.g. "BTCUSDT").
func New(symbol, websocketURL string, pingInterval time.Duration, lgr *logger.Logger) drepo.MarketStream {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Client{
		symbol:       strings.ToUpper(symbol),
		websocketURL: websocketURL,
		pingInterval: pingInterval,
		lgr:          lgr,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.websocketURL, nil)
	if err != nil {
		return fmt.Errorf("market connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	c.lgr.Info("market: connected", logger.String("url", c.websocketURL))
	return nil
}

// Subscribe subscribes to the symbol's trade stream.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("market not connected")
	}
	msg := map[string]any{
		"method": "SUBSCRIBE",
		"params": []string{strings.ToLower(c.symbol) + "@trade"},
		"id":     1,
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe %s: %w", c.symbol, err)
	}
	c.lgr.Info("market: subscribed", logger.String("symbol", c.symbol))
	return nil
}

// rawTrade is the Binance trade frame: price and quantity arrive as strings,
// the timestamp as integer milliseconds.
type rawTrade struct {
	Event    string `json:"e"`
	Symbol   string `json:"s"`
	Price    string `json:"p"`
	Quantity string `json:"q"`
	Time     int64  `json:"t"`
}

// parseTrade decodes one frame. Non-trade frames (subscribe acks, other
// events) return (nil, nil).
func parseTrade(b []byte) (*models.Trade, error) {
	var raw rawTrade
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if raw.Event != "" && raw.Event != "trade" {
		return nil, nil
	}
	if raw.Symbol == "" || raw.Price == "" {
		return nil, nil
	}
	price, err := strconv.ParseFloat(raw.Price, 64)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", raw.Price, err)
	}
	qty, err := strconv.ParseFloat(raw.Quantity, 64)
	if err != nil {
		return nil, fmt.Errorf("parse quantity %q: %w", raw.Quantity, err)
	}
	return &models.Trade{
		Symbol:    raw.Symbol,
		Price:     price,
		Quantity:  qty,
		TradeTime: raw.Time,
	}, nil
}

// Read streams Trade events and errors.
func (c *Client) Read(ctx context.Context) (<-chan *models.Trade, <-chan error) {
	trades := make(chan *models.Trade, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PongMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(trades)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if c.conn == nil {
				errs <- fmt.Errorf("market conn nil")
				return
			}
			_, b, err := c.conn.ReadMessage()
			if err != nil {
				errs <- fmt.Errorf("market read: %w", err)
				return
			}
			trade, err := parseTrade(b)
			if err != nil {
				c.lgr.Warn("market: dropped malformed frame", logger.Error(err))
				continue
			}
			if trade == nil {
				continue
			}
			select {
			case trades <- trade:
			default:
				// drop on backpressure
			}
		}
	}()

	return trades, errs
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
