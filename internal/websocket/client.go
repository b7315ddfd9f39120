package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/shoplist/internal/events"
)

const pingInterval = 30 * time.Second

// Client streams bus events to a single WebSocket connection.
type Client struct {
	bus    *events.Bus
	conn   *ws.Conn
	logger *slog.Logger
}

// NewClient creates a Client tied to the given bus and connection.
func NewClient(bus *events.Bus, conn *ws.Conn, logger *slog.Logger) *Client {
	return &Client{bus: bus, conn: conn, logger: logger}
}

// Run subscribes to the bus, starts the write pump, and runs the read pump.
// It blocks until the connection is closed, then unsubscribes.
func (c *Client) Run(ctx context.Context) {
	sub := c.bus.Subscribe()
	defer c.bus.Unsubscribe(sub)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		c.writePump(ctx, sub)
		cancel()
	}()
	c.readPump(ctx)
}

// readPump discards incoming messages until the connection closes.
func (c *Client) readPump(ctx context.Context) {
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}

func (c *Client) writePump(ctx context.Context, sub *events.Subscription) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-sub.C:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				c.logger.Error("marshal event", "type", ev.Type, "error", err)
				continue
			}
			if err := c.conn.Write(ctx, ws.MessageText, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
