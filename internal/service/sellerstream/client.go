package sellerstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	drepo "SalesCast/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements an OrderStream backed by a seller-center WebSocket feed.
type Client struct {
	apiKey         string
	websocketURL   string
	platforms      []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a new seller-center OrderStream.
func New(apiKey, websocketURL string, platforms []string, reconnectDelay, pingInterval time.Duration) drepo.OrderStream {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		platforms:      platforms,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("sellerstream connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("sellerstream: connected")
	return nil
}

// Subscribe subscribes to configured platforms.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("sellerstream not connected")
	}
	for _, p := range c.platforms {
		msg := map[string]string{"type": "subscribe", "platform": p}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", p, err)
		}
		log.Printf("sellerstream: subscribed %s", p)
	}
	return nil
}

type wsOrder struct {
	Platform string  `json:"platform"`
	OrderID  string  `json:"order_id"`
	Paid     float64 `json:"paid"`
	Original float64 `json:"original"`
	Items    int     `json:"items"`
	T        int64   `json:"t"` // ms
}

type wsMessage struct {
	Type string    `json:"type"`
	Data []wsOrder `json:"data"`
}

// Read streams OrderEvents and errors.
func (c *Client) Read(ctx context.Context) (<-chan *drepo.OrderEvent, <-chan error) {
	orders := make(chan *drepo.OrderEvent, 1024)
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
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(orders)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("sellerstream conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("sellerstream read: %w", err)
					return
				}
				var m wsMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-order frames
					continue
				}
				if m.Type != "order" {
					continue
				}
				for _, d := range m.Data {
					sec := d.T / 1000
					ev := &drepo.OrderEvent{
						Platform:  d.Platform,
						OrderID:   d.OrderID,
						Timestamp: sec,
						Paid:      d.Paid,
						Original:  d.Original,
						Items:     d.Items,
					}
					select {
					case orders <- ev:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return orders, errs
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
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
